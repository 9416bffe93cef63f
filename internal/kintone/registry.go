package kintone

import "strings"

// wireShape describes how a field type is laid out on the wire inside its
// {"value": ...} envelope.
type wireShape int

const (
	shapeScalar     wireShape = iota // "value" is a plain string
	shapeStringList                  // "value" is an array of strings
	shapeCodeList                    // "value" is an array of {"code": ...} objects
	shapeUserScalar                  // "value" is a single {"code": ...} object (creator/modifier)
	shapeFileList                    // "value" is an array of file objects
)

// Descriptor is the static conversion metadata for one field type.
type Descriptor struct {
	Name       string // canonical upper-case type name
	Multi      bool   // wire value is an ordered sequence rather than a scalar
	ReadOnly   bool   // system-managed, decode only
	IsNumber   bool   // value is a decimal string that must be preserved verbatim
	TimeLayout string // non-empty for date/time types, Go reference layout
	shape      wireShape
}

var descriptors = []Descriptor{
	{Name: "SINGLE_LINE_TEXT"},
	{Name: "MULTI_LINE_TEXT"},
	{Name: "RICH_TEXT"},
	{Name: "NUMBER", IsNumber: true},
	{Name: "CALC", ReadOnly: true, IsNumber: true},
	{Name: "RADIO_BUTTON"},
	{Name: "CHECK_BOX", Multi: true, shape: shapeStringList},
	{Name: "MULTI_SELECT", Multi: true, shape: shapeStringList},
	{Name: "DROP_DOWN"},
	{Name: "DATE", TimeLayout: "2006-01-02"},
	{Name: "TIME", TimeLayout: "15:04"},
	{Name: "DATETIME", TimeLayout: "2006-01-02T15:04:05Z07:00"},
	{Name: "USER_SELECT", Multi: true, shape: shapeCodeList},
	{Name: "ORGANIZATION_SELECT", Multi: true, shape: shapeCodeList},
	{Name: "GROUP_SELECT", Multi: true, shape: shapeCodeList},
	{Name: "LINK"},
	{Name: "FILE", Multi: true, shape: shapeFileList},
	{Name: "RECORD_NUMBER", ReadOnly: true},
	{Name: "CREATED_TIME", ReadOnly: true},
	{Name: "UPDATED_TIME", ReadOnly: true},
	{Name: "CREATOR", ReadOnly: true, shape: shapeUserScalar},
	{Name: "MODIFIER", ReadOnly: true, shape: shapeUserScalar},
	{Name: "STATUS", ReadOnly: true},
	{Name: "STATUS_ASSIGNEE", ReadOnly: true, Multi: true, shape: shapeCodeList},
}

// registry is built once at process start; lookups are read-only after that.
var registry = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.Name] = d
	}
	return m
}()

// Describe resolves a field type name to its descriptor. Matching is
// case-insensitive to tolerate inconsistent casing from configuration.
func Describe(typeName string) (Descriptor, error) {
	d, ok := registry[strings.ToUpper(strings.TrimSpace(typeName))]
	if !ok {
		return Descriptor{}, newError(KindUnsupportedFieldType, "unsupported field type: %q", typeName)
	}
	return d, nil
}

// SupportedTypes returns the canonical names of all supported field types.
func SupportedTypes() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}
