package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oogFranz/kintone-app-mcp/internal/audit"
	"github.com/oogFranz/kintone-app-mcp/internal/config"
	"github.com/oogFranz/kintone-app-mcp/internal/kintone"
	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

type mockKintoneClient struct {
	mock.Mock
}

func (m *mockKintoneClient) GetAppInfo(ctx context.Context) (*types.AppInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AppInfo), args.Error(1)
}

func (m *mockKintoneClient) GetRecords(ctx context.Context, query string, limit int) (*kintone.RecordsPage, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kintone.RecordsPage), args.Error(1)
}

func (m *mockKintoneClient) GetRecord(ctx context.Context, recordID string) (*kintone.RecordResult, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kintone.RecordResult), args.Error(1)
}

func (m *mockKintoneClient) CreateRecord(ctx context.Context, rec *kintone.Record) (types.RecordHandle, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(types.RecordHandle), args.Error(1)
}

func (m *mockKintoneClient) UpdateRecord(ctx context.Context, recordID string, rec *kintone.Record, revision string) (types.RecordHandle, error) {
	args := m.Called(ctx, recordID, rec, revision)
	return args.Get(0).(types.RecordHandle), args.Error(1)
}

func (m *mockKintoneClient) DeleteRecord(ctx context.Context, recordID, revision string) error {
	args := m.Called(ctx, recordID, revision)
	return args.Error(0)
}

func (m *mockKintoneClient) SearchRecords(ctx context.Context, query string, limit int) (*kintone.RecordsPage, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kintone.RecordsPage), args.Error(1)
}

func newTestServer(t *testing.T, client KintoneClient) *Server {
	t.Helper()

	logger, err := audit.NewLogger(audit.Config{
		FilePath: filepath.Join(t.TempDir(), "audit.log"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	cfg := config.DefaultConfig()
	cfg.Kintone = config.KintoneConfig{
		Domain:         "example.cybozu.com",
		AppID:          "1",
		APIToken:       "token",
		AppDescription: "Task tracker",
	}
	return NewServer(client, cfg, logger, "v1.2.3")
}

// resultText extracts the text content from a tool-call result.
func resultText(t *testing.T, result interface{}) string {
	t.Helper()
	wrapper, ok := result.(map[string]interface{})
	require.True(t, ok, "result is %T", result)
	content, ok := wrapper["content"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	text, ok := content[0]["text"].(string)
	require.True(t, ok)
	return text
}

func TestExecuteGetAppInfo(t *testing.T) {
	client := new(mockKintoneClient)
	client.On("GetAppInfo", mock.Anything).Return(&types.AppInfo{
		AppID: "1",
		Name:  "Task Tracker",
	}, nil)

	s := newTestServer(t, client)
	result, err := s.executeTool(context.Background(), "get_app_info", nil)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "App Information:")
	assert.Contains(t, text, "Task Tracker")
	client.AssertExpectations(t)
}

func TestExecuteGetRecords(t *testing.T) {
	t.Run("defaults applied when limit omitted", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("GetRecords", mock.Anything, "", kintone.DefaultRecordLimit).
			Return(&kintone.RecordsPage{TotalCount: "0"}, nil)

		s := newTestServer(t, client)
		_, err := s.executeTool(context.Background(), "get_records", json.RawMessage(`{}`))
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("explicit limit and query pass through", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("GetRecords", mock.Anything, `status = "Open"`, 25).
			Return(&kintone.RecordsPage{TotalCount: "2"}, nil)

		s := newTestServer(t, client)
		result, err := s.executeTool(context.Background(), "get_records",
			json.RawMessage(`{"query": "status = \"Open\"", "limit": 25}`))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), "Total: 2")
		client.AssertExpectations(t)
	})

	t.Run("zero limit reaches the client unchanged", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("GetRecords", mock.Anything, "", 0).
			Return(nil, &kintone.Error{Kind: kintone.KindInvalidArgument, Message: "limit must be positive"})

		s := newTestServer(t, client)
		_, err := s.executeTool(context.Background(), "get_records", json.RawMessage(`{"limit": 0}`))
		require.Error(t, err)
		assert.Equal(t, kintone.KindInvalidArgument, kintone.KindOf(err))
		client.AssertExpectations(t)
	})
}

func TestExecuteGetRecord(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rec := kintone.NewRecord()
		rec.Set("title", kintone.String("Task A"))

		client := new(mockKintoneClient)
		client.On("GetRecord", mock.Anything, "17").Return(&kintone.RecordResult{
			Handle: types.RecordHandle{ID: "17", Revision: "3"},
			Record: rec,
		}, nil)

		s := newTestServer(t, client)
		result, err := s.executeTool(context.Background(), "get_record",
			json.RawMessage(`{"record_id": "17"}`))
		require.NoError(t, err)

		text := resultText(t, result)
		assert.Contains(t, text, "Record 17:")
		assert.Contains(t, text, "Task A")
		client.AssertExpectations(t)
	})

	t.Run("invalid record id never reaches the client", func(t *testing.T) {
		client := new(mockKintoneClient)
		s := newTestServer(t, client)
		_, err := s.executeTool(context.Background(), "get_record",
			json.RawMessage(`{"record_id": "abc"}`))
		require.Error(t, err)
		client.AssertNotCalled(t, "GetRecord", mock.Anything, mock.Anything)
	})
}

func TestExecuteCreateRecord(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("CreateRecord", mock.Anything, mock.MatchedBy(func(rec *kintone.Record) bool {
			v, ok := rec.Get("title")
			return ok && v.Equal(kintone.String("Task A"))
		})).Return(types.RecordHandle{ID: "1", Revision: "1"}, nil)

		s := newTestServer(t, client)
		result, err := s.executeTool(context.Background(), "create_record",
			json.RawMessage(`{"record_data": {"title": "Task A"}}`))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), "created successfully")
		client.AssertExpectations(t)
	})

	t.Run("empty record data rejected", func(t *testing.T) {
		client := new(mockKintoneClient)
		s := newTestServer(t, client)
		_, err := s.executeTool(context.Background(), "create_record",
			json.RawMessage(`{"record_data": {}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record_data is required")
		client.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
	})
}

func TestExecuteUpdateRecord(t *testing.T) {
	client := new(mockKintoneClient)
	client.On("UpdateRecord", mock.Anything, "17", mock.Anything, "3").
		Return(types.RecordHandle{ID: "17", Revision: "4"}, nil)

	s := newTestServer(t, client)
	result, err := s.executeTool(context.Background(), "update_record",
		json.RawMessage(`{"record_id": "17", "record_data": {"priority": "Low"}, "revision": "3"}`))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "updated successfully")
	assert.Contains(t, text, `"4"`)
	client.AssertExpectations(t)
}

func TestExecuteUpdateRecordInvalidRevision(t *testing.T) {
	client := new(mockKintoneClient)
	s := newTestServer(t, client)
	_, err := s.executeTool(context.Background(), "update_record",
		json.RawMessage(`{"record_id": "17", "record_data": {"priority": "Low"}, "revision": "latest"}`))
	require.Error(t, err)
	client.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteDeleteRecord(t *testing.T) {
	t.Run("with revision", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("DeleteRecord", mock.Anything, "17", "4").Return(nil)

		s := newTestServer(t, client)
		result, err := s.executeTool(context.Background(), "delete_record",
			json.RawMessage(`{"record_id": "17", "revision": "4"}`))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), "deleted")
		client.AssertExpectations(t)
	})

	t.Run("without revision", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("DeleteRecord", mock.Anything, "17", "").Return(nil)

		s := newTestServer(t, client)
		_, err := s.executeTool(context.Background(), "delete_record",
			json.RawMessage(`{"record_id": "17"}`))
		require.NoError(t, err)
		client.AssertExpectations(t)
	})
}

func TestExecuteSearchRecords(t *testing.T) {
	client := new(mockKintoneClient)
	client.On("SearchRecords", mock.Anything, `priority = "High"`, kintone.DefaultRecordLimit).
		Return(&kintone.RecordsPage{TotalCount: "1"}, nil)

	s := newTestServer(t, client)
	result, err := s.executeTool(context.Background(), "search_records",
		json.RawMessage(`{"query": "priority = \"High\""}`))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Total: 1")
	client.AssertExpectations(t)
}

func TestExecuteUnknownTool(t *testing.T) {
	s := newTestServer(t, new(mockKintoneClient))
	_, err := s.executeTool(context.Background(), "drop_table", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestExecuteHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("GetAppInfo", mock.Anything).Return(&types.AppInfo{AppID: "1"}, nil)

		s := newTestServer(t, client)
		result, err := s.executeTool(context.Background(), "health_check", nil)
		require.NoError(t, err)

		text := resultText(t, result)
		assert.Contains(t, text, `"healthy"`)
		assert.Contains(t, text, "reachable")
	})

	t.Run("degraded when remote unreachable", func(t *testing.T) {
		client := new(mockKintoneClient)
		client.On("GetAppInfo", mock.Anything).
			Return(nil, &kintone.Error{Kind: kintone.KindNetworkError, Message: "connection refused"})

		s := newTestServer(t, client)
		result, err := s.executeTool(context.Background(), "health_check", nil)
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), `"degraded"`)
	})
}

func TestAvailableTools(t *testing.T) {
	s := newTestServer(t, new(mockKintoneClient))
	tools := s.getAvailableTools()
	require.Len(t, tools, 8)

	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"get_app_info", "get_records", "get_record", "create_record",
		"update_record", "delete_record", "search_records", "health_check",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}

	// The configured app description is surfaced in get_app_info.
	assert.Contains(t, tools[0].Description, "Task tracker")
}
