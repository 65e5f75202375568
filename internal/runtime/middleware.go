package runtime

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/vinodismyname/salespulse/pkg/mcperr"
)

// Middleware bounds concurrent tool calls and applies the operation timeout.
type Middleware struct {
	ctrl *Controller
}

func NewMiddleware(ctrl *Controller) *Middleware {
	return &Middleware{ctrl: ctrl}
}

// ToolMiddleware wraps next with a request slot and a deadline. Saturation
// and timeouts come back as tool-level errors so the client can retry.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limits := m.ctrl.limits

		acquireCtx := ctx
		if limits.AcquireRequestTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, limits.AcquireRequestTimeout)
			defer cancel()
		}
		if err := m.ctrl.AcquireRequest(acquireCtx); err != nil {
			zerolog.Ctx(ctx).Warn().Str("tool", req.Params.Name).Int("max", limits.MaxConcurrentRequests).Msg("request rejected")
			return mcperr.Wrapf(mcperr.BusyResource, "concurrent request limit reached (max=%d)", limits.MaxConcurrentRequests), nil
		}
		defer m.ctrl.ReleaseRequest()

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if limits.OperationTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, limits.OperationTimeout)
		}
		defer cancel()

		res, err := next(callCtx, req)
		if errors.Is(err, context.DeadlineExceeded) || (res == nil && err == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)) {
			return mcperr.New(mcperr.Timeout, ""), nil
		}
		return res, err
	}
}
