package kintone

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an ordered mapping from field code to generic value. Insertion
// order is preserved so records render the way the caller (or the remote
// store) supplied them.
type Record struct {
	codes  []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores a value under a field code, appending the code to the order on
// first insertion.
func (r *Record) Set(code string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, exists := r.values[code]; !exists {
		r.codes = append(r.codes, code)
	}
	r.values[code] = v
}

// Get returns the value stored under a field code.
func (r *Record) Get(code string) (Value, bool) {
	v, ok := r.values[code]
	return v, ok
}

// Codes returns the field codes in insertion order.
func (r *Record) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Len returns the number of fields in the record.
func (r *Record) Len() int {
	return len(r.codes)
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, code := range r.codes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(code)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[code])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object into a record, preserving key order and
// keeping numeric literals as their source digits.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	out := Record{values: make(map[string]Value)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in record", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := valueFromJSON(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", code, err)
		}
		out.Set(code, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}
