package kintone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

var numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// FieldResult is the outcome of decoding one wire field. Converted is false
// when the wire shape was not understood and the raw payload was carried
// through instead of a converted value.
type FieldResult struct {
	Value     Value
	Converted bool
}

// Mapper converts field values between the generic representation and
// Kintone's per-type wire representation. The configured field list is
// read-only lookup context keyed by field code.
type Mapper struct {
	fields map[string]types.FieldConfig
}

// NewMapper builds a mapper over the configured fields.
func NewMapper(fields []types.FieldConfig) *Mapper {
	byCode := make(map[string]types.FieldConfig, len(fields))
	for _, f := range fields {
		byCode[f.FieldCode] = f
	}
	return &Mapper{fields: byCode}
}

// EncodeField converts a generic value into the wire envelope for the
// field's declared type. Encode failures are fatal: a malformed outgoing
// write must not partially apply.
func (m *Mapper) EncodeField(fieldCode string, v Value) (map[string]interface{}, error) {
	cfg, ok := m.fields[fieldCode]
	if !ok {
		return nil, newError(KindUnknownFieldCode, "unknown field code: %q", fieldCode)
	}
	desc, err := Describe(cfg.FieldType)
	if err != nil {
		return nil, err
	}
	if desc.ReadOnly {
		return nil, newError(KindReadOnlyFieldWrite, "field %q has system-managed type %s and cannot be written", fieldCode, desc.Name)
	}
	if v.Kind() == KindRaw {
		return nil, newError(KindInvalidFieldValue, "field %q: raw values cannot be encoded", fieldCode)
	}

	// Null encodes to the type's empty wire representation.
	if v.IsNull() {
		if desc.Multi {
			return envelope([]interface{}{}), nil
		}
		return envelope(""), nil
	}

	switch desc.shape {
	case shapeScalar:
		s, err := scalarString(fieldCode, v)
		if err != nil {
			return nil, err
		}
		// An empty string clears the field, like null, so it skips the
		// per-type format checks.
		if s == "" {
			return envelope(""), nil
		}
		if desc.IsNumber && !numberPattern.MatchString(s) {
			return nil, newError(KindInvalidFieldValue, "field %q: %q is not a decimal number", fieldCode, s)
		}
		if desc.TimeLayout != "" {
			if v.Kind() != KindString {
				return nil, newError(KindInvalidFieldValue, "field %q: %s values must be strings", fieldCode, desc.Name)
			}
			if _, err := time.Parse(desc.TimeLayout, s); err != nil {
				return nil, newError(KindInvalidFieldValue, "field %q: %q does not match the %s format", fieldCode, s, desc.Name)
			}
		}
		return envelope(s), nil

	case shapeStringList:
		list, err := sequence(fieldCode, v)
		if err != nil {
			return nil, err
		}
		return envelope(list), nil

	case shapeCodeList:
		list, err := sequence(fieldCode, v)
		if err != nil {
			return nil, err
		}
		entries := make([]map[string]string, len(list))
		for i, code := range list {
			entries[i] = map[string]string{"code": code}
		}
		return envelope(entries), nil

	case shapeFileList:
		list, err := sequence(fieldCode, v)
		if err != nil {
			return nil, err
		}
		entries := make([]map[string]string, len(list))
		for i, key := range list {
			entries[i] = map[string]string{"fileKey": key}
		}
		return envelope(entries), nil
	}

	return nil, newError(KindInvalidFieldValue, "field %q: type %s is not encodable", fieldCode, desc.Name)
}

// DecodeField converts one wire field into a generic value. Decode failures
// are per-field: an unrecognized shape yields the raw payload with
// Converted=false instead of an error.
func (m *Mapper) DecodeField(fieldCode string, wire json.RawMessage) FieldResult {
	inner := innerValue(wire)

	cfg, ok := m.fields[fieldCode]
	if !ok {
		// Field not in the configured schema; pass the value through.
		return passthrough(inner)
	}
	desc, err := Describe(cfg.FieldType)
	if err != nil {
		return passthrough(inner)
	}

	switch desc.shape {
	case shapeScalar:
		var s string
		if err := json.Unmarshal(inner, &s); err != nil {
			// Kintone represents numbers as strings, but tolerate a bare
			// number literal for numeric fields.
			if desc.IsNumber {
				trimmed := bytes.TrimSpace(inner)
				if len(trimmed) > 0 && numberPattern.Match(trimmed) {
					return FieldResult{Value: Number(string(trimmed)), Converted: true}
				}
			}
			return passthrough(inner)
		}
		if desc.IsNumber {
			if s == "" {
				return FieldResult{Value: Null(), Converted: true}
			}
			return FieldResult{Value: Number(s), Converted: true}
		}
		return FieldResult{Value: String(s), Converted: true}

	case shapeStringList:
		var ss []string
		if err := json.Unmarshal(inner, &ss); err != nil {
			return passthrough(inner)
		}
		return FieldResult{Value: StringList(ss), Converted: true}

	case shapeCodeList:
		var entries []struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(inner, &entries); err != nil {
			return passthrough(inner)
		}
		codes := make([]string, len(entries))
		for i, e := range entries {
			codes[i] = e.Code
		}
		return FieldResult{Value: StringList(codes), Converted: true}

	case shapeUserScalar:
		var entry struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(inner, &entry); err != nil {
			return passthrough(inner)
		}
		return FieldResult{Value: String(entry.Code), Converted: true}

	case shapeFileList:
		// File metadata (fileKey, name, size) has no place in the closed
		// variant; the wire array is carried through as-is.
		return FieldResult{Value: Raw(append(json.RawMessage(nil), inner...)), Converted: true}
	}

	return passthrough(inner)
}

// EncodeRecord encodes every field present in the input. Fields absent from
// the input are omitted so the remote store leaves them untouched.
func (m *Mapper) EncodeRecord(rec *Record) (map[string]interface{}, error) {
	wire := make(map[string]interface{}, rec.Len())
	for _, code := range rec.Codes() {
		v, _ := rec.Get(code)
		encoded, err := m.EncodeField(code, v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", code, err)
		}
		wire[code] = encoded
	}
	return wire, nil
}

// DecodeRecord decodes a wire record object, preserving field order. Keys
// beginning with "$" are envelope metadata ($id, $revision) owned by the
// client and are skipped here.
func (m *Mapper) DecodeRecord(wire json.RawMessage) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(wire))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode record: not a JSON object")
	}

	rec := NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		code, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode record: unexpected token %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode record field %q: %w", code, err)
		}
		if strings.HasPrefix(code, "$") {
			continue
		}
		rec.Set(code, m.DecodeField(code, raw).Value)
	}
	return rec, nil
}

func envelope(value interface{}) map[string]interface{} {
	return map[string]interface{}{"value": value}
}

// innerValue extracts the "value" member of a wire field envelope, falling
// back to the whole payload when the envelope shape is absent.
func innerValue(wire json.RawMessage) json.RawMessage {
	var env struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(wire, &env); err != nil || env.Value == nil {
		return wire
	}
	return env.Value
}

func passthrough(inner json.RawMessage) FieldResult {
	v, err := valueFromJSON(inner)
	if err != nil {
		v = Raw(append(json.RawMessage(nil), inner...))
	}
	return FieldResult{Value: v, Converted: false}
}

func scalarString(fieldCode string, v Value) (string, error) {
	switch v.Kind() {
	case KindString, KindNumber:
		return v.Str(), nil
	default:
		return "", newError(KindInvalidFieldValue, "field %q: expected a scalar, got %s", fieldCode, v.Kind())
	}
}

// sequence coerces a generic value to an ordered list of scalars. A bare
// scalar becomes a one-element sequence; this mirrors the configured app's
// historical behavior rather than rejecting the write.
func sequence(fieldCode string, v Value) ([]string, error) {
	switch v.Kind() {
	case KindStringList:
		return v.List(), nil
	case KindString, KindNumber:
		return []string{v.Str()}, nil
	default:
		return nil, newError(KindInvalidFieldValue, "field %q: expected a sequence of scalars, got %s", fieldCode, v.Kind())
	}
}
