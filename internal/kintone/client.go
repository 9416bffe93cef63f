package kintone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oogFranz/kintone-app-mcp/internal/audit"
	"github.com/oogFranz/kintone-app-mcp/internal/config"
	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

const (
	// DefaultRecordLimit is applied when the caller does not specify one.
	DefaultRecordLimit = 100
	// MaxRecordLimit is the hard cap; larger limits are clamped, not rejected.
	MaxRecordLimit = 500

	defaultTimeout = 30 * time.Second
)

// Remote error codes the classifier inspects. The same HTTP status can be
// overloaded by the remote API for different semantic conditions, so payload
// codes take precedence over bare status interpretation.
const (
	codeRecordNotFound   = "GAIA_RE01"
	codeRevisionConflict = "GAIA_CO02"
)

// RecordResult pairs a record's handle with its decoded field values.
type RecordResult struct {
	Handle types.RecordHandle `json:"handle"`
	Record *Record            `json:"record"`
}

// RecordsPage is the result of a list or search operation.
type RecordsPage struct {
	Records    []RecordResult `json:"records"`
	TotalCount string         `json:"total_count,omitempty"`
}

// Client performs authenticated CRUD and search operations against one
// Kintone app. Operations are independent single request/response exchanges
// and safe to issue concurrently; the remote store arbitrates consistency
// through its revision mechanism, so the client holds no mutable shared
// state and never retries on its own.
type Client struct {
	cfg     *config.Config
	token   string
	baseURL string
	http    *http.Client
	mapper  *Mapper
	logger  *audit.Logger
}

// NewClient builds a client from the loaded configuration.
func NewClient(cfg *config.Config, logger *audit.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	token, err := cfg.ResolveToken()
	if err != nil {
		return nil, err
	}

	timeout := cfg.Server.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		cfg:     cfg,
		token:   token,
		baseURL: cfg.BaseURL(),
		http:    &http.Client{Timeout: timeout},
		mapper:  NewMapper(cfg.Fields),
		logger:  logger,
	}, nil
}

// Mapper exposes the client's field mapper.
func (c *Client) Mapper() *Mapper {
	return c.mapper
}

// GetAppInfo fetches app metadata and the app's live field schema.
func (c *Client) GetAppInfo(ctx context.Context) (*types.AppInfo, error) {
	appRaw, err := c.request(ctx, http.MethodGet, "app.json", url.Values{"id": {c.cfg.Kintone.AppID}}, nil)
	if err != nil {
		c.logFailure(audit.EventAppAccess, "", err)
		return nil, err
	}
	var app struct {
		AppID       string `json:"appId"`
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(appRaw, &app); err != nil {
		return nil, malformedResponse("app.json", err)
	}

	fieldsRaw, err := c.request(ctx, http.MethodGet, "app/form/fields.json", url.Values{"app": {c.cfg.Kintone.AppID}}, nil)
	if err != nil {
		c.logFailure(audit.EventAppAccess, "", err)
		return nil, err
	}
	var form struct {
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(fieldsRaw, &form); err != nil {
		return nil, malformedResponse("app/form/fields.json", err)
	}

	c.logSuccess(audit.EventAppAccess, "", nil)
	return &types.AppInfo{
		AppID:            app.AppID,
		Name:             app.Name,
		Description:      app.Description,
		AppDescription:   c.cfg.Kintone.AppDescription,
		Properties:       form.Properties,
		ConfiguredFields: c.cfg.Fields,
	}, nil
}

// GetRecords lists records, optionally filtered by a query expression. The
// query is passed through verbatim; its syntax is not validated here. The
// limit must be positive and is clamped to MaxRecordLimit.
func (c *Client) GetRecords(ctx context.Context, query string, limit int) (*RecordsPage, error) {
	if limit <= 0 {
		return nil, newError(KindInvalidArgument, "limit must be positive, got %d", limit)
	}
	if limit > MaxRecordLimit {
		limit = MaxRecordLimit
	}
	if err := c.checkPermission(types.PermissionRecordRead); err != nil {
		return nil, err
	}

	fullQuery := strings.TrimSpace(fmt.Sprintf("%s limit %d", query, limit))
	params := url.Values{
		"app":        {c.cfg.Kintone.AppID},
		"query":      {fullQuery},
		"totalCount": {"true"},
	}

	raw, err := c.request(ctx, http.MethodGet, "records.json", params, nil)
	if err != nil {
		c.logFailure(audit.EventRecordSearch, "", err)
		return nil, err
	}

	var payload struct {
		Records    []json.RawMessage `json:"records"`
		TotalCount string            `json:"totalCount"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, malformedResponse("records.json", err)
	}

	page := &RecordsPage{TotalCount: payload.TotalCount}
	for i, recRaw := range payload.Records {
		result, err := c.decodeRecord(recRaw)
		if err != nil {
			return nil, malformedResponse(fmt.Sprintf("records.json record %d", i), err)
		}
		page.Records = append(page.Records, *result)
	}

	c.logSuccess(audit.EventRecordSearch, "", map[string]interface{}{
		"query": query,
		"limit": limit,
		"count": len(page.Records),
	})
	return page, nil
}

// GetRecord fetches one record by ID.
func (c *Client) GetRecord(ctx context.Context, recordID string) (*RecordResult, error) {
	if recordID == "" {
		return nil, newError(KindInvalidArgument, "record id cannot be empty")
	}
	if err := c.checkPermission(types.PermissionRecordRead); err != nil {
		return nil, err
	}

	params := url.Values{"app": {c.cfg.Kintone.AppID}, "id": {recordID}}
	raw, err := c.request(ctx, http.MethodGet, "record.json", params, nil)
	if err != nil {
		c.logFailure(audit.EventRecordAccess, recordID, err)
		return nil, err
	}

	var payload struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Record == nil {
		return nil, malformedResponse("record.json", err)
	}

	result, err := c.decodeRecord(payload.Record)
	if err != nil {
		return nil, malformedResponse("record.json", err)
	}
	c.logSuccess(audit.EventRecordAccess, recordID, nil)
	return result, nil
}

// CreateRecord encodes and submits a new record, returning its handle.
// Read-only fields present in the input are rejected before any request is
// made.
func (c *Client) CreateRecord(ctx context.Context, rec *Record) (types.RecordHandle, error) {
	if err := c.checkPermission(types.PermissionRecordCreate); err != nil {
		return types.RecordHandle{}, err
	}

	wire, err := c.mapper.EncodeRecord(rec)
	if err != nil {
		return types.RecordHandle{}, err
	}

	body := map[string]interface{}{
		"app":    c.cfg.Kintone.AppID,
		"record": wire,
	}
	raw, err := c.request(ctx, http.MethodPost, "record.json", nil, body)
	if err != nil {
		c.logFailure(audit.EventRecordCreate, "", err)
		return types.RecordHandle{}, err
	}

	var payload struct {
		ID       string `json:"id"`
		Revision string `json:"revision"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.RecordHandle{}, malformedResponse("record.json", err)
	}

	handle := types.RecordHandle{ID: payload.ID, Revision: payload.Revision}
	c.logSuccess(audit.EventRecordCreate, handle.ID, nil)
	return handle, nil
}

// UpdateRecord submits a partial update. When revision is non-empty it is
// sent as an optimistic-lock precondition and the remote store rejects the
// update on mismatch; when empty the update is unconditional and the caller
// accepts last-writer-wins.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, rec *Record, revision string) (types.RecordHandle, error) {
	if recordID == "" {
		return types.RecordHandle{}, newError(KindInvalidArgument, "record id cannot be empty")
	}
	if err := c.checkPermission(types.PermissionRecordUpdate); err != nil {
		return types.RecordHandle{}, err
	}

	wire, err := c.mapper.EncodeRecord(rec)
	if err != nil {
		return types.RecordHandle{}, err
	}

	body := map[string]interface{}{
		"app":    c.cfg.Kintone.AppID,
		"id":     recordID,
		"record": wire,
	}
	if revision != "" {
		body["revision"] = revision
	}

	raw, err := c.request(ctx, http.MethodPut, "record.json", nil, body)
	if err != nil {
		c.logFailure(audit.EventRecordUpdate, recordID, err)
		return types.RecordHandle{}, err
	}

	var payload struct {
		Revision string `json:"revision"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.RecordHandle{}, malformedResponse("record.json", err)
	}

	handle := types.RecordHandle{ID: recordID, Revision: payload.Revision}
	c.logSuccess(audit.EventRecordUpdate, recordID, map[string]interface{}{"revision": handle.Revision})
	return handle, nil
}

// DeleteRecord deletes a record, with the same optimistic-lock contract as
// UpdateRecord.
func (c *Client) DeleteRecord(ctx context.Context, recordID, revision string) error {
	if recordID == "" {
		return newError(KindInvalidArgument, "record id cannot be empty")
	}
	if err := c.checkPermission(types.PermissionRecordDelete); err != nil {
		return err
	}

	body := map[string]interface{}{
		"app": c.cfg.Kintone.AppID,
		"ids": []string{recordID},
	}
	if revision != "" {
		body["revisions"] = []string{revision}
	}

	if _, err := c.request(ctx, http.MethodDelete, "records.json", nil, body); err != nil {
		c.logFailure(audit.EventRecordDelete, recordID, err)
		return err
	}
	c.logSuccess(audit.EventRecordDelete, recordID, nil)
	return nil
}

// SearchRecords is GetRecords with a mandatory query.
func (c *Client) SearchRecords(ctx context.Context, query string, limit int) (*RecordsPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newError(KindInvalidArgument, "query cannot be empty")
	}
	return c.GetRecords(ctx, query, limit)
}

// decodeRecord extracts the handle from the $id/$revision envelope fields
// and decodes the rest through the mapper.
func (c *Client) decodeRecord(raw json.RawMessage) (*RecordResult, error) {
	var system struct {
		ID       struct{ Value string } `json:"$id"`
		Revision struct{ Value string } `json:"$revision"`
	}
	if err := json.Unmarshal(raw, &system); err != nil {
		return nil, err
	}
	rec, err := c.mapper.DecodeRecord(raw)
	if err != nil {
		return nil, err
	}
	return &RecordResult{
		Handle: types.RecordHandle{ID: system.ID.Value, Revision: system.Revision.Value},
		Record: rec,
	}, nil
}

// checkPermission performs the advisory pre-check from configuration. An
// empty permission list means permissions were not configured and no
// pre-check applies; the remote side is authoritative either way.
func (c *Client) checkPermission(p types.Permission) error {
	if len(c.cfg.Kintone.APIPermissions) == 0 {
		return nil
	}
	if !c.cfg.HasPermission(p) {
		return newError(KindPermissionDenied, "configured api token does not grant %s", p)
	}
	return nil
}

// request performs one HTTP exchange and normalizes every failure into the
// typed taxonomy. A 2xx response returns the raw body for the caller to
// parse.
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, body interface{}) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, wrapError(KindInvalidArgument, err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, wrapError(KindInvalidArgument, err, "failed to build request")
	}
	req.Header.Set("X-Cybozu-API-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
			return nil, wrapError(KindCancelled, err, "request cancelled")
		}
		// Timeouts (context deadline or transport) and connection failures
		// all classify as network errors.
		return nil, wrapError(KindNetworkError, err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(KindNetworkError, err, "failed to read response from %s", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyRemote(resp.StatusCode, data)
	}
	return data, nil
}

// remotePayload is the shape of a Kintone error response body.
type remotePayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// classifyRemote maps a non-2xx response onto the error taxonomy. Priority:
// 401/403 are permission failures; then a not-found condition (payload code
// or 404); then a revision conflict (payload code or 409); everything else
// is a remote error carried verbatim. Payload inspection outranks the bare
// status because the remote API overloads statuses.
func classifyRemote(status int, body []byte) *Error {
	var payload remotePayload
	_ = json.Unmarshal(body, &payload)

	message := payload.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(status)
		}
	}

	kind := KindRemoteError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindPermissionDenied
	case payloadIndicatesNotFound(payload) || status == http.StatusNotFound:
		kind = KindRecordNotFound
	case payloadIndicatesConflict(payload) || status == http.StatusConflict:
		kind = KindRevisionConflict
	}

	return &Error{Kind: kind, Status: status, Code: payload.Code, Message: message}
}

func payloadIndicatesNotFound(p remotePayload) bool {
	if p.Code == codeRecordNotFound {
		return true
	}
	lower := strings.ToLower(p.Message)
	return strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")
}

func payloadIndicatesConflict(p remotePayload) bool {
	if p.Code == codeRevisionConflict {
		return true
	}
	return strings.Contains(strings.ToLower(p.Message), "revision")
}

func malformedResponse(endpoint string, err error) *Error {
	return &Error{
		Kind:    KindRemoteError,
		Code:    "MALFORMED_RESPONSE",
		Message: fmt.Sprintf("unparsable response from %s", endpoint),
		Err:     err,
	}
}

func (c *Client) logSuccess(op audit.EventType, recordID string, details map[string]interface{}) {
	if c.logger != nil {
		c.logger.LogRecordOperation(op, recordID, true, details)
	}
}

func (c *Client) logFailure(op audit.EventType, recordID string, err error) {
	if c.logger != nil {
		c.logger.LogRecordOperation(op, recordID, false, map[string]interface{}{
			"error": err.Error(),
		})
	}
}
