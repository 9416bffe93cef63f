package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oogFranz/kintone-app-mcp/internal/audit"
	"github.com/oogFranz/kintone-app-mcp/internal/config"
	"github.com/oogFranz/kintone-app-mcp/internal/kintone"
	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

// JSON-RPC error codes used by the server.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInternalError  = -32603
	codeToolError      = -32002
	codeRateLimited    = -32029
)

// Server implements the MCP protocol over stdio.
type Server struct {
	client      KintoneClient
	cfg         *config.Config
	logger      *audit.Logger
	rateLimiter *RateLimiter
	version     string
	startTime   time.Time
}

// NewServer creates a new MCP server around a Kintone client. The version is
// reported to clients in the initialize response.
func NewServer(client KintoneClient, cfg *config.Config, logger *audit.Logger, version string) *Server {
	rate := cfg.Server.RateLimit
	if rate <= 0 {
		rate = 60
	}
	if version == "" {
		version = "dev"
	}
	return &Server{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		rateLimiter: NewRateLimiter(rate),
		version:     version,
		startTime:   time.Now(),
	}
}

// Start runs the message loop, reading JSON-RPC requests line by line from
// stdin and writing responses to stdout until the context ends or stdin
// closes.
func (s *Server) Start(ctx context.Context) error {
	s.logger.LogSystem(audit.EventStartup, "MCP server started", map[string]interface{}{
		"app_id": s.cfg.Kintone.AppID,
		"domain": s.cfg.Kintone.Domain,
	})

	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogSystem(audit.EventShutdown, "MCP server stopped", map[string]interface{}{
				"uptime": time.Since(s.startTime).String(),
			})
			return ctx.Err()
		default:
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return fmt.Errorf("failed to read message: %w", err)
			}

			if err := s.processMessage(ctx, line, writer); err != nil {
				s.logger.LogError("mcp", err, nil)
			}
		}
	}
}

// processMessage handles a single request line.
func (s *Server) processMessage(ctx context.Context, data []byte, writer *bufio.Writer) error {
	var request types.MCPRequest
	if err := json.Unmarshal(data, &request); err != nil {
		_ = s.sendErrorResponse(writer, nil, codeParseError, "Parse error", nil)
		return fmt.Errorf("failed to parse request: %w", err)
	}

	if !s.rateLimiter.Allow() {
		_ = s.sendErrorResponse(writer, request.ID, codeRateLimited, "Rate limit exceeded", nil)
		return errors.New("rate limit exceeded")
	}

	switch request.Method {
	case "initialize":
		return s.handleInitialize(request, writer)
	case "initialized", "notifications/initialized":
		// Notification, no response.
		return nil
	case "tools/list":
		return s.handleToolsList(request, writer)
	case "tools/call":
		return s.handleToolCall(ctx, request, writer)
	default:
		_ = s.sendErrorResponse(writer, request.ID, codeMethodNotFound, "Method not found", nil)
		return fmt.Errorf("unknown method: %s", request.Method)
	}
}

func (s *Server) sendResponse(writer *bufio.Writer, id interface{}, result interface{}) error {
	response := types.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return writer.Flush()
}

func (s *Server) sendErrorResponse(writer *bufio.Writer, id interface{}, code int, message string, data interface{}) error {
	response := types.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &types.MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal error response: %w", err)
	}
	if _, err := writer.Write(responseData); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return writer.Flush()
}

// errorData extracts the structured detail callers need for programmatic
// handling: the error kind plus the original status and remote code.
func errorData(err error) map[string]interface{} {
	var ke *kintone.Error
	if !errors.As(err, &ke) {
		return nil
	}
	data := map[string]interface{}{"kind": string(ke.Kind)}
	if ke.Status != 0 {
		data["status"] = ke.Status
	}
	if ke.Code != "" {
		data["code"] = ke.Code
	}
	return data
}
