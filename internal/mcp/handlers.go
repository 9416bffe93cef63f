package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}

	if request.Params != nil {
		paramsBytes, err := json.Marshal(request.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		if err := json.Unmarshal(paramsBytes, &params); err != nil {
			return fmt.Errorf("failed to parse initialize params: %w", err)
		}
	}

	s.logger.LogSystem("CLIENT_CONNECT", "client connected", map[string]interface{}{
		"client_name":    params.ClientInfo.Name,
		"client_version": params.ClientInfo.Version,
		"protocol":       params.ProtocolVersion,
	})

	response := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"list": true,
				"call": true,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "kintone-app-mcp",
			"version": s.version,
		},
	}
	return s.sendResponse(writer, request.ID, response)
}

// handleToolsList handles the tools/list request.
func (s *Server) handleToolsList(request types.MCPRequest, writer *bufio.Writer) error {
	return s.sendResponse(writer, request.ID, map[string]interface{}{
		"tools": s.getAvailableTools(),
	})
}

// handleToolCall handles the tools/call request.
func (s *Server) handleToolCall(ctx context.Context, request types.MCPRequest, writer *bufio.Writer) error {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if request.Params != nil {
		paramsBytes, err := json.Marshal(request.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		if err := json.Unmarshal(paramsBytes, &params); err != nil {
			return fmt.Errorf("failed to parse tool call params: %w", err)
		}
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		_ = s.sendErrorResponse(writer, request.ID, codeToolError, err.Error(), errorData(err))
		return err
	}
	return s.sendResponse(writer, request.ID, result)
}
