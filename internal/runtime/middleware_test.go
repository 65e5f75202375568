package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, ctrl *Controller, h server.ToolHandlerFunc) (*mcp.CallToolResult, error) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = "sales_kpis"
	return NewMiddleware(ctrl).ToolMiddleware(h)(context.Background(), req)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestToolMiddleware(t *testing.T) {
	cases := []struct {
		name      string
		opTimeout time.Duration
		saturate  bool
		handler   server.ToolHandlerFunc
		wantError bool
		wantText  string
	}{
		{
			name:      "passes through with capacity",
			opTimeout: time.Second,
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("kpis ready"), nil
			},
			wantText: "kpis ready",
		},
		{
			name:     "busy when request slots are taken",
			saturate: true,
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("unreachable"), nil
			},
			wantError: true,
			wantText:  "BUSY_RESOURCE",
		},
		{
			name:      "deadline becomes timeout",
			opTimeout: 20 * time.Millisecond,
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			wantError: true,
			wantText:  "TIMEOUT",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limits := NewLimits(1, 1)
			limits.OperationTimeout = tc.opTimeout
			limits.AcquireRequestTimeout = 15 * time.Millisecond
			ctrl := NewController(limits)
			if tc.saturate {
				require.NoError(t, ctrl.AcquireRequest(context.Background()))
				defer ctrl.ReleaseRequest()
			}

			res, err := callTool(t, ctrl, tc.handler)
			require.NoError(t, err)
			require.Equal(t, tc.wantError, res.IsError)
			require.Contains(t, resultText(t, res), tc.wantText)
		})
	}
}

func TestToolMiddleware_ReleasesSlotOnHandlerError(t *testing.T) {
	ctrl := NewController(NewLimits(1, 1))
	boom := errors.New("boom")

	_, err := callTool(t, ctrl, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, ctrl.AcquireRequest(context.Background()))
	ctrl.ReleaseRequest()
}
