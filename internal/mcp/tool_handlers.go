package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oogFranz/kintone-app-mcp/internal/kintone"
	"github.com/oogFranz/kintone-app-mcp/internal/validation"
	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

// textResult wraps a value as MCP tool-call content.
func textResult(label string, v interface{}) (interface{}, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render result: %w", err)
	}
	text := string(data)
	if label != "" {
		text = label + "\n" + text
	}
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}, nil
}

// resolveLimit applies the default when the caller omitted the limit. A
// caller-supplied non-positive limit is passed through so the client rejects
// it instead of being silently corrected.
func resolveLimit(limit *int) int {
	if limit == nil {
		return kintone.DefaultRecordLimit
	}
	return *limit
}

func (s *Server) executeGetAppInfo(ctx context.Context) (interface{}, error) {
	info, err := s.client.GetAppInfo(ctx)
	if err != nil {
		return nil, err
	}
	return textResult("App Information:", info)
}

func (s *Server) executeGetRecords(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params types.GetRecordsParams
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid get_records arguments: %w", err)
		}
	}
	if err := validation.ValidateQuery(params.Query); err != nil {
		return nil, err
	}

	page, err := s.client.GetRecords(ctx, params.Query, resolveLimit(params.Limit))
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Records (Total: %s):", page.TotalCount), page.Records)
}

func (s *Server) executeGetRecord(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params types.GetRecordParams
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid get_record arguments: %w", err)
	}
	if err := validation.ValidateRecordID(params.RecordID); err != nil {
		return nil, err
	}

	result, err := s.client.GetRecord(ctx, params.RecordID)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Record %s:", params.RecordID), result)
}

func (s *Server) executeCreateRecord(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		RecordData kintone.Record `json:"record_data"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid create_record arguments: %w", err)
	}
	if params.RecordData.Len() == 0 {
		return nil, fmt.Errorf("record_data is required")
	}

	handle, err := s.client.CreateRecord(ctx, &params.RecordData)
	if err != nil {
		return nil, err
	}
	return textResult("Record created successfully:", handle)
}

func (s *Server) executeUpdateRecord(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		RecordID   string         `json:"record_id"`
		RecordData kintone.Record `json:"record_data"`
		Revision   string         `json:"revision"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid update_record arguments: %w", err)
	}
	if err := validation.ValidateRecordID(params.RecordID); err != nil {
		return nil, err
	}
	if err := validation.ValidateRevision(params.Revision); err != nil {
		return nil, err
	}
	if params.RecordData.Len() == 0 {
		return nil, fmt.Errorf("record_data is required")
	}

	handle, err := s.client.UpdateRecord(ctx, params.RecordID, &params.RecordData, params.Revision)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Record %s updated successfully:", params.RecordID), handle)
}

func (s *Server) executeDeleteRecord(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params types.DeleteRecordParams
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid delete_record arguments: %w", err)
	}
	if err := validation.ValidateRecordID(params.RecordID); err != nil {
		return nil, err
	}
	if err := validation.ValidateRevision(params.Revision); err != nil {
		return nil, err
	}

	if err := s.client.DeleteRecord(ctx, params.RecordID, params.Revision); err != nil {
		return nil, err
	}
	return textResult("", map[string]string{
		"record_id": params.RecordID,
		"status":    "deleted",
	})
}

func (s *Server) executeSearchRecords(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params types.SearchRecordsParams
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid search_records arguments: %w", err)
	}
	if err := validation.ValidateQuery(params.Query); err != nil {
		return nil, err
	}

	page, err := s.client.SearchRecords(ctx, params.Query, resolveLimit(params.Limit))
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Search Results (Query: %s, Total: %s):", params.Query, page.TotalCount), page.Records)
}
