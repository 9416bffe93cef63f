package types

// FieldConfig describes one configured field of the Kintone app. The field
// code is the wire identifier, unique within an app; the field name is the
// display label.
type FieldConfig struct {
	FieldName   string `json:"field_name" mapstructure:"field_name"`
	FieldType   string `json:"field_type" mapstructure:"field_type"`
	FieldCode   string `json:"field_code" mapstructure:"field_code"`
	Description string `json:"description" mapstructure:"description"`
}

// RecordHandle identifies a stored record. The ID is assigned by the remote
// store and immutable; the revision increases on every successful update and
// is the optimistic-lock token for update/delete. Both travel as
// numeric-looking strings, never native numbers.
type RecordHandle struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}

// AppInfo is the result of the get_app_info operation: remote app metadata,
// the app's live field schema, and the locally configured fields.
type AppInfo struct {
	AppID            string                 `json:"app_id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	AppDescription   string                 `json:"app_description,omitempty"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
	ConfiguredFields []FieldConfig          `json:"configured_fields"`
}

// Permission names one advisory API capability from configuration. The
// remote side remains the authoritative enforcement point.
type Permission string

const (
	PermissionRecordRead   Permission = "record_read"
	PermissionRecordCreate Permission = "record_create"
	PermissionRecordUpdate Permission = "record_update"
	PermissionRecordDelete Permission = "record_delete"
)

// MCPRequest represents an MCP protocol request.
type MCPRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// MCPResponse represents an MCP protocol response.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPTool represents an MCP tool definition.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetRecordsParams parameters for listing records. A nil limit means the
// default of 100.
type GetRecordsParams struct {
	Query string `json:"query,omitempty"`
	Limit *int   `json:"limit,omitempty"`
}

// GetRecordParams parameters for fetching a single record.
type GetRecordParams struct {
	RecordID string `json:"record_id"`
}

// UpdateRecordParams parameters for updating a record. Revision, when set,
// is sent as the optimistic-lock precondition.
type UpdateRecordParams struct {
	RecordID string `json:"record_id"`
	Revision string `json:"revision,omitempty"`
}

// DeleteRecordParams parameters for deleting a record.
type DeleteRecordParams struct {
	RecordID string `json:"record_id"`
	Revision string `json:"revision,omitempty"`
}

// SearchRecordsParams parameters for searching records. Query is mandatory.
type SearchRecordsParams struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}
