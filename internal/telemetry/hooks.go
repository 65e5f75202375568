// Package telemetry logs MCP server lifecycle events through zerolog.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// NewServerHooks returns mcp-go hooks that log sessions, tool discovery,
// tool calls with their duration and outcome, and request errors.
func NewServerHooks(logger zerolog.Logger) *server.Hooks {
	return newToolTimer(logger, time.Now).hooks()
}

type toolTimer struct {
	logger  zerolog.Logger
	clock   func() time.Time
	started sync.Map // request id -> time.Time
}

func newToolTimer(logger zerolog.Logger, clock func() time.Time) *toolTimer {
	return &toolTimer{logger: logger, clock: clock}
}

func (t *toolTimer) hooks() *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		t.logger.Info().Str("session_id", session.SessionID()).Msg("session registered")
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		t.logger.Info().Str("session_id", session.SessionID()).Msg("session unregistered")
	})
	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		t.logger.Debug().Int("tools", len(res.Tools)).Msg("list_tools served")
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		t.started.Store(requestKey(id), t.clock())
	})
	hooks.AddAfterCallTool(t.afterCall)
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		t.started.Delete(requestKey(id))
		t.logger.Error().Str("method", string(method)).Err(err).Msg("request error")
	})
	return hooks
}

func (t *toolTimer) afterCall(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
	evt := t.logger.Info()
	if res != nil && res.IsError {
		evt = t.logger.Warn().Bool("tool_error", true)
	}
	if v, ok := t.started.LoadAndDelete(requestKey(id)); ok {
		evt = evt.Dur("duration", t.clock().Sub(v.(time.Time)))
	}
	evt.Str("tool", req.Params.Name).Msg("tool call served")
}

func requestKey(id any) string { return fmt.Sprint(id) }
