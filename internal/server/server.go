// Package server wires the environment and workflow operations into an MCP
// server speaking stdio.
package server

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/airbridge-project/airbridge/internal/audit"
	"github.com/airbridge-project/airbridge/internal/core"
	"github.com/airbridge-project/airbridge/internal/mwaa"
)

const (
	serverName    = "airbridge"
	serverVersion = "1.0.0"
)

// Server owns the MCP endpoint and the operation facade behind it.
type Server struct {
	mcp      *server.MCPServer
	svc      *mwaa.Service
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// New builds the MCP server and registers the full tool surface.
func New(svc *mwaa.Service, recorder *audit.Recorder, logger zerolog.Logger) *Server {
	s := &Server{
		svc:      svc,
		recorder: recorder,
		logger:   logger,
	}
	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	s.registerTools()
	return s
}

const instructions = `Amazon MWAA (Managed Workflows for Apache Airflow) operations server.
Environment tools talk to the MWAA control plane; DAG, task and variable
tools talk to each environment's Airflow REST API using short-lived CLI
tokens minted on demand. In read-only mode, create/update/delete and DAG
triggering are refused.`

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.recorder.Record(audit.EventServerStart, "", "", map[string]string{"version": serverVersion})
	return server.ServeStdio(s.mcp)
}

// Close releases cached data-plane clients and the audit log.
func (s *Server) Close() {
	s.svc.Close()
	if err := s.recorder.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("closing audit recorder")
	}
}

// render converts an operation result into the tool response and writes the
// audit trail entry for the invocation.
func (s *Server) render(tool, environment string, res core.Result) *mcp.CallToolResult {
	event := audit.EventToolCall
	detail := map[string]any{"ok": !res.IsError()}
	if res.IsError() {
		detail["error"] = res.Err.Code
		if res.Err.Kind == core.KindPolicy {
			event = audit.EventPolicyDenial
		}
	}
	if err := s.recorder.Record(event, tool, environment, detail); err != nil {
		s.logger.Warn().Err(err).Str("tool", tool).Msg("audit write failed")
	}

	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Str("tool", tool).Msg("encoding tool result")
		return mcp.NewToolResultError("encoding result: " + err.Error())
	}
	return mcp.NewToolResultText(string(body))
}
