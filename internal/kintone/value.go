package kintone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// ValueKind discriminates the closed set of generic value shapes.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber // decimal string, never converted through a float
	KindStringList
	KindRaw // unconverted wire payload carried through by the decode fallback
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindStringList:
		return "string list"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Value is a generic field value: the protocol-agnostic representation used
// above the wire boundary. The zero value is the null value.
type Value struct {
	kind ValueKind
	str  string
	list []string
	raw  json.RawMessage
}

func Null() Value { return Value{kind: KindNull} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(decimal string) Value { return Value{kind: KindNumber, str: decimal} }

func StringList(ss []string) Value { return Value{kind: KindStringList, list: ss} }

func Raw(raw json.RawMessage) Value { return Value{kind: KindRaw, raw: raw} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload for string and number values.
func (v Value) Str() string { return v.str }

// List returns the payload of a string-list value.
func (v Value) List() []string { return v.list }

// RawJSON returns the payload of a raw value.
func (v Value) RawJSON() json.RawMessage { return v.raw }

// Equal reports semantic equality between two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindNumber:
		return v.str == o.str
	case KindStringList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case KindRaw:
		return bytes.Equal(v.raw, o.raw)
	}
	return false
}

var decimalPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// MarshalJSON renders the value for the protocol layer. Numbers are emitted
// as JSON number literals with their decimal representation untouched.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if decimalPattern.MatchString(v.str) {
			return []byte(v.str), nil
		}
		// Not a valid JSON number literal; fall back to a string so the
		// digits still survive untouched.
		return json.Marshal(v.str)
	case KindStringList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindRaw:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return v.raw, nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := valueFromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// valueFromJSON maps arbitrary JSON onto the closed variant. Numbers keep
// their source digits, booleans become their string form, and anything that
// does not fit (objects, mixed arrays) is carried as raw.
func valueFromJSON(data []byte) (Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Null(), nil
	}
	switch trimmed[0] {
	case 'n':
		return Null(), nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case 't':
		return String("true"), nil
	case 'f':
		return String("false"), nil
	case '[':
		var ss []string
		if err := json.Unmarshal(trimmed, &ss); err == nil {
			return StringList(ss), nil
		}
		return Raw(append(json.RawMessage(nil), trimmed...)), nil
	case '{':
		return Raw(append(json.RawMessage(nil), trimmed...)), nil
	default:
		// JSON number literal; keep the digits verbatim.
		if !json.Valid(trimmed) {
			return Value{}, fmt.Errorf("invalid JSON value: %s", trimmed)
		}
		return Number(string(trimmed)), nil
	}
}
