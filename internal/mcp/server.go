// Package mcp serves the task store as MCP tools over line-delimited JSON-RPC.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"daily-tasks/internal/calendar"
)

const protocolVersion = "2024-11-05"

// Server implements the MCP server for the task store.
type Server struct {
	tools   *ToolHandler
	version string
	log     zerolog.Logger
}

// NewServer creates a new MCP server.
func NewServer(store Store, version string, log zerolog.Logger) *Server {
	return &Server{
		tools:   NewToolHandler(store, calendar.Now),
		version: version,
		log:     log,
	}
}

// MCP Protocol Types

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type CallToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type readResult struct {
	line []byte
	err  error
}

// Run serves requests from r and writes responses to w until EOF or ctx ends.
// A read blocked on an idle r does not delay the return on cancellation.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	s.log.Info().Msg("tool server running on stdio")

	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)

	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadBytes('\n')
			select {
			case lines <- readResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-lines:
			if len(res.line) > 0 {
				if werr := s.handleLine(ctx, res.line, w); werr != nil {
					return werr
				}
			}
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					return nil
				}
				return res.err
			}
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte, w io.Writer) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn().Err(err).Msg("malformed request")
		return s.sendResponse(w, &Response{JSONRPC: "2.0", Error: &Error{Code: codeParseError, Message: "Parse error"}})
	}

	resp := s.handleRequest(ctx, &req)
	if resp == nil {
		return nil
	}
	return s.sendResponse(w, resp)
}

func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "daily-tasks", Version: s.version},
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
		})
	case "tools/list":
		return s.reply(req, ListToolsResult{Tools: toolDefinitions()})
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "ping":
		return s.reply(req, struct{}{})
	case "notifications/initialized":
		return nil // Notification, no response
	default:
		if req.ID == nil {
			return nil
		}
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: codeMethodNotFound, Message: "Method not found"}}
	}
}

func (s *Server) handleCallTool(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: codeInvalidParams, Message: "Invalid params"}}
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	start := time.Now()
	result, err := s.tools.Handle(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Dur("took", time.Since(start)).Msg("tool call failed")
		return s.reply(req, CallToolResult{
			Content: []ToolContent{{Type: "text", Text: fmt.Sprintf("Error: %v", err)}},
			IsError: true,
		})
	}
	s.log.Info().Str("tool", params.Name).Dur("took", time.Since(start)).Msg("tool call")

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return s.reply(req, CallToolResult{
			Content: []ToolContent{{Type: "text", Text: fmt.Sprintf("Error: encode result: %v", err)}},
			IsError: true,
		})
	}
	return s.reply(req, CallToolResult{Content: []ToolContent{{Type: "text", Text: string(text)}}})
}

func (s *Server) reply(req *Request, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) sendResponse(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
