package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

// getAvailableTools returns the list of available MCP tools.
func (s *Server) getAvailableTools() []types.MCPTool {
	appInfoDescription := "Get information about the configured Kintone app including fields"
	if s.cfg.Kintone.AppDescription != "" {
		appInfoDescription += " - " + s.cfg.Kintone.AppDescription
	}

	return []types.MCPTool{
		{
			Name:        "get_app_info",
			Description: appInfoDescription,
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_records",
			Description: "Get records from the Kintone app with optional query and limit",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Query string to filter records (optional). Use Kintone query syntax.",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of records to retrieve (default: 100, max: 500)",
					},
				},
			},
		},
		{
			Name:        "get_record",
			Description: "Get a specific record by ID from the Kintone app",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"record_id": map[string]interface{}{
						"type":        "string",
						"description": "The ID of the record to retrieve",
					},
				},
				"required": []string{"record_id"},
			},
		},
		{
			Name:        "create_record",
			Description: "Create a new record in the Kintone app",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"record_data": map[string]interface{}{
						"type":        "object",
						"description": "Record data as field_code: value pairs",
					},
				},
				"required": []string{"record_data"},
			},
		},
		{
			Name:        "update_record",
			Description: "Update an existing record in the Kintone app",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"record_id": map[string]interface{}{
						"type":        "string",
						"description": "The ID of the record to update",
					},
					"record_data": map[string]interface{}{
						"type":        "object",
						"description": "Record data to update as field_code: value pairs",
					},
					"revision": map[string]interface{}{
						"type":        "string",
						"description": "Record revision for optimistic locking (optional)",
					},
				},
				"required": []string{"record_id", "record_data"},
			},
		},
		{
			Name:        "delete_record",
			Description: "Delete a record from the Kintone app",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"record_id": map[string]interface{}{
						"type":        "string",
						"description": "The ID of the record to delete",
					},
					"revision": map[string]interface{}{
						"type":        "string",
						"description": "Record revision for optimistic locking (optional)",
					},
				},
				"required": []string{"record_id"},
			},
		},
		{
			Name:        "search_records",
			Description: "Search records with a specific query string",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Query string using Kintone query syntax",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of records to retrieve (default: 100, max: 500)",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "health_check",
			Description: "Check the health status of the MCP server and the Kintone connection",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// executeTool executes a tool with the given arguments.
func (s *Server) executeTool(ctx context.Context, toolName string, args json.RawMessage) (interface{}, error) {
	switch toolName {
	case "get_app_info":
		return s.executeGetAppInfo(ctx)
	case "get_records":
		return s.executeGetRecords(ctx, args)
	case "get_record":
		return s.executeGetRecord(ctx, args)
	case "create_record":
		return s.executeCreateRecord(ctx, args)
	case "update_record":
		return s.executeUpdateRecord(ctx, args)
	case "delete_record":
		return s.executeDeleteRecord(ctx, args)
	case "search_records":
		return s.executeSearchRecords(ctx, args)
	case "health_check":
		return s.executeHealthCheck(ctx)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}
}
