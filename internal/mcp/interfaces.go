package mcp

import (
	"context"

	"github.com/oogFranz/kintone-app-mcp/internal/kintone"
	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

// KintoneClient is the client surface the tool handlers depend on. The
// protocol layer only ever sees generic records and handles, never wire
// shapes.
type KintoneClient interface {
	GetAppInfo(ctx context.Context) (*types.AppInfo, error)
	GetRecords(ctx context.Context, query string, limit int) (*kintone.RecordsPage, error)
	GetRecord(ctx context.Context, recordID string) (*kintone.RecordResult, error)
	CreateRecord(ctx context.Context, rec *kintone.Record) (types.RecordHandle, error)
	UpdateRecord(ctx context.Context, recordID string, rec *kintone.Record, revision string) (types.RecordHandle, error)
	DeleteRecord(ctx context.Context, recordID, revision string) error
	SearchRecords(ctx context.Context, query string, limit int) (*kintone.RecordsPage, error)
}
