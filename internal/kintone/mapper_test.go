package kintone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

var testFields = []types.FieldConfig{
	{FieldName: "Title", FieldType: "SINGLE_LINE_TEXT", FieldCode: "title"},
	{FieldName: "Notes", FieldType: "MULTI_LINE_TEXT", FieldCode: "notes"},
	{FieldName: "Estimate", FieldType: "NUMBER", FieldCode: "estimate"},
	{FieldName: "Priority", FieldType: "DROP_DOWN", FieldCode: "priority"},
	{FieldName: "Tags", FieldType: "check_box", FieldCode: "tags"},
	{FieldName: "Assignees", FieldType: "USER_SELECT", FieldCode: "assignees"},
	{FieldName: "Due", FieldType: "DATE", FieldCode: "due"},
	{FieldName: "Start", FieldType: "TIME", FieldCode: "start_at"},
	{FieldName: "Deadline", FieldType: "DATETIME", FieldCode: "deadline"},
	{FieldName: "Site", FieldType: "LINK", FieldCode: "site"},
	{FieldName: "Attachments", FieldType: "FILE", FieldCode: "attachments"},
	{FieldName: "No", FieldType: "RECORD_NUMBER", FieldCode: "record_no"},
	{FieldName: "Created", FieldType: "CREATED_TIME", FieldCode: "created_at"},
	{FieldName: "Status", FieldType: "STATUS", FieldCode: "status"},
}

func testMapper() *Mapper {
	return NewMapper(testFields)
}

func TestEncodeFieldScalars(t *testing.T) {
	m := testMapper()

	tests := []struct {
		name  string
		code  string
		value Value
		want  interface{}
	}{
		{"text", "title", String("Task A"), "Task A"},
		{"empty text", "title", String(""), ""},
		{"dropdown", "priority", String("High"), "High"},
		{"number kind", "estimate", Number("123.450"), "123.450"},
		{"number from string", "estimate", String("-2.5"), "-2.5"},
		{"date", "due", String("2024-01-31"), "2024-01-31"},
		{"time", "start_at", String("09:30"), "09:30"},
		{"datetime", "deadline", String("2024-01-31T09:30:00Z"), "2024-01-31T09:30:00Z"},
		{"link", "site", String("https://example.com"), "https://example.com"},
		{"number for text is stringified", "title", Number("42"), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.EncodeField(tt.code, tt.value)
			require.NoError(t, err)
			assert.Equal(t, map[string]interface{}{"value": tt.want}, got)
		})
	}
}

func TestEncodeFieldSequences(t *testing.T) {
	m := testMapper()

	t.Run("string list", func(t *testing.T) {
		got, err := m.EncodeField("tags", StringList([]string{"a", "b"}))
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"value": []string{"a", "b"}}, got)
	})

	t.Run("bare scalar coerced to singleton", func(t *testing.T) {
		got, err := m.EncodeField("tags", String("urgent"))
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"value": []string{"urgent"}}, got)
	})

	t.Run("user select wraps codes", func(t *testing.T) {
		got, err := m.EncodeField("assignees", StringList([]string{"u1", "u2"}))
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"value": []map[string]string{{"code": "u1"}, {"code": "u2"}},
		}, got)
	})

	t.Run("user select coerces scalar", func(t *testing.T) {
		got, err := m.EncodeField("assignees", String("u1"))
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"value": []map[string]string{{"code": "u1"}},
		}, got)
	})

	t.Run("file takes file keys", func(t *testing.T) {
		got, err := m.EncodeField("attachments", StringList([]string{"key1"}))
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{
			"value": []map[string]string{{"fileKey": "key1"}},
		}, got)
	})
}

func TestEncodeFieldNullEmptyRepresentation(t *testing.T) {
	m := testMapper()

	got, err := m.EncodeField("title", Null())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": ""}, got)

	got, err = m.EncodeField("tags", Null())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": []interface{}{}}, got)

	got, err = m.EncodeField("assignees", Null())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": []interface{}{}}, got)

	// An empty string clears a field the same way null does, even for types
	// with a value format check.
	for _, code := range []string{"estimate", "due", "start_at", "deadline"} {
		got, err = m.EncodeField(code, String(""))
		require.NoError(t, err, "field %s", code)
		assert.Equal(t, map[string]interface{}{"value": ""}, got, "field %s", code)
	}
}

func TestEncodeFieldErrors(t *testing.T) {
	m := testMapper()

	tests := []struct {
		name  string
		code  string
		value Value
		kind  ErrorKind
	}{
		{"unknown field code", "nope", String("x"), KindUnknownFieldCode},
		{"read-only status", "status", String("Done"), KindReadOnlyFieldWrite},
		{"read-only record number", "record_no", String("1"), KindReadOnlyFieldWrite},
		{"read-only created time", "created_at", String("2024-01-01T00:00:00Z"), KindReadOnlyFieldWrite},
		{"list for scalar", "title", StringList([]string{"a"}), KindInvalidFieldValue},
		{"malformed number", "estimate", String("12.3.4"), KindInvalidFieldValue},
		{"not a number at all", "estimate", String("abc"), KindInvalidFieldValue},
		{"malformed date", "due", String("2024/01/31"), KindInvalidFieldValue},
		{"impossible date", "due", String("2024-13-99"), KindInvalidFieldValue},
		{"malformed time", "start_at", String("9:30pm"), KindInvalidFieldValue},
		{"malformed datetime", "deadline", String("2024-01-31 09:30"), KindInvalidFieldValue},
		{"raw value", "title", Raw(json.RawMessage(`{"x":1}`)), KindInvalidFieldValue},
		{"raw value for list", "tags", Raw(json.RawMessage(`{}`)), KindInvalidFieldValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.EncodeField(tt.code, tt.value)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err), "error was: %v", err)
		})
	}
}

func TestEncodeFieldUnsupportedConfiguredType(t *testing.T) {
	m := NewMapper([]types.FieldConfig{
		{FieldName: "Ref", FieldType: "REFERENCE_TABLE", FieldCode: "ref"},
	})
	_, err := m.EncodeField("ref", String("x"))
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedFieldType, KindOf(err))
}

func TestRoundTrip(t *testing.T) {
	m := testMapper()

	tests := []struct {
		name  string
		code  string
		value Value
	}{
		{"text", "title", String("Task A")},
		{"multiline", "notes", String("line1\nline2")},
		{"number", "estimate", Number("123.450")},
		{"dropdown", "priority", String("High")},
		{"check box", "tags", StringList([]string{"a", "b"})},
		{"user select", "assignees", StringList([]string{"u1", "u2"})},
		{"date", "due", String("2024-01-31")},
		{"time", "start_at", String("09:30")},
		{"datetime", "deadline", String("2024-01-31T09:30:00Z")},
		{"link", "site", String("https://example.com")},
		{"null number", "estimate", Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := m.EncodeField(tt.code, tt.value)
			require.NoError(t, err)

			wire, err := json.Marshal(encoded)
			require.NoError(t, err)

			result := m.DecodeField(tt.code, wire)
			assert.True(t, result.Converted, "decode fell back to raw")
			assert.True(t, result.Value.Equal(tt.value),
				"round trip changed value: got %+v, want %+v", result.Value, tt.value)
		})
	}
}

func TestDecodeFieldSystemManaged(t *testing.T) {
	m := testMapper()

	result := m.DecodeField("status", json.RawMessage(`{"type":"STATUS","value":"In Progress"}`))
	assert.True(t, result.Converted)
	assert.True(t, result.Value.Equal(String("In Progress")))

	result = m.DecodeField("created_at", json.RawMessage(`{"type":"CREATED_TIME","value":"2024-01-01T00:00:00Z"}`))
	assert.True(t, result.Converted)
	assert.True(t, result.Value.Equal(String("2024-01-01T00:00:00Z")))
}

func TestDecodeFieldFallback(t *testing.T) {
	m := testMapper()

	t.Run("unknown field code passes value through", func(t *testing.T) {
		result := m.DecodeField("mystery", json.RawMessage(`{"value":"something"}`))
		assert.False(t, result.Converted)
		assert.True(t, result.Value.Equal(String("something")))
	})

	t.Run("shape mismatch carries raw payload", func(t *testing.T) {
		result := m.DecodeField("estimate", json.RawMessage(`{"value":{"weird":true}}`))
		assert.False(t, result.Converted)
		assert.Equal(t, KindRaw, result.Value.Kind())
		assert.JSONEq(t, `{"weird":true}`, string(result.Value.RawJSON()))
	})

	t.Run("list where scalar expected", func(t *testing.T) {
		result := m.DecodeField("title", json.RawMessage(`{"value":["a","b"]}`))
		assert.False(t, result.Converted)
		assert.True(t, result.Value.Equal(StringList([]string{"a", "b"})))
	})

	t.Run("bare number literal tolerated for number field", func(t *testing.T) {
		result := m.DecodeField("estimate", json.RawMessage(`{"value":12.50}`))
		assert.True(t, result.Converted)
		assert.True(t, result.Value.Equal(Number("12.50")))
	})

	t.Run("empty number decodes to null", func(t *testing.T) {
		result := m.DecodeField("estimate", json.RawMessage(`{"value":""}`))
		assert.True(t, result.Converted)
		assert.True(t, result.Value.IsNull())
	})

	t.Run("file decodes as raw passthrough", func(t *testing.T) {
		result := m.DecodeField("attachments", json.RawMessage(`{"value":[{"fileKey":"k","name":"a.txt"}]}`))
		assert.True(t, result.Converted)
		assert.Equal(t, KindRaw, result.Value.Kind())
	})
}

func TestEncodeRecordPartialUpdate(t *testing.T) {
	m := testMapper()

	rec := NewRecord()
	rec.Set("title", String("x"))

	wire, err := m.EncodeRecord(rec)
	require.NoError(t, err)

	assert.Len(t, wire, 1)
	assert.Contains(t, wire, "title")
	assert.NotContains(t, wire, "notes")
}

func TestEncodeRecordFieldFatal(t *testing.T) {
	m := testMapper()

	rec := NewRecord()
	rec.Set("title", String("x"))
	rec.Set("status", String("Done"))

	_, err := m.EncodeRecord(rec)
	require.Error(t, err)
	assert.Equal(t, KindReadOnlyFieldWrite, KindOf(err))
}

func TestDecodeRecordTolerance(t *testing.T) {
	m := testMapper()

	wire := json.RawMessage(`{
		"$id": {"type": "__ID__", "value": "7"},
		"$revision": {"type": "__REVISION__", "value": "3"},
		"title": {"type": "SINGLE_LINE_TEXT", "value": "Task A"},
		"estimate": {"type": "NUMBER", "value": {"weird": true}}
	}`)

	rec, err := m.DecodeRecord(wire)
	require.NoError(t, err)

	// Envelope metadata is skipped, both data fields survive.
	assert.Equal(t, []string{"title", "estimate"}, rec.Codes())

	title, _ := rec.Get("title")
	assert.True(t, title.Equal(String("Task A")))

	estimate, _ := rec.Get("estimate")
	assert.Equal(t, KindRaw, estimate.Kind())
}

func TestDecodeRecordMalformed(t *testing.T) {
	m := testMapper()
	_, err := m.DecodeRecord(json.RawMessage(`["not an object"]`))
	require.Error(t, err)
}
