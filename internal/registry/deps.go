package registry

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/datasets"
	"github.com/vinodismyname/salespulse/internal/runtime"
	"github.com/vinodismyname/salespulse/internal/sources"
	"github.com/vinodismyname/salespulse/pkg/mcperr"
)

// WritePathValidator approves export destinations.
type WritePathValidator interface {
	ValidateWritePath(path string) (string, error)
}

// Deps are the collaborators tool handlers need.
type Deps struct {
	Limits   runtime.Limits
	Datasets *datasets.Manager
	// DB backs load_dataset{table}; nil when no database is configured.
	DB sources.Querier
	// Exports validates export_dashboard paths; nil rejects every export.
	Exports WritePathValidator
	// Options are the pipeline defaults; tools override per call.
	Options analytics.Options
}

// dataset resolves id or returns an INVALID_HANDLE tool error.
func (d Deps) dataset(id string) (*datasets.Dataset, *mcp.CallToolResult) {
	ds, ok := d.Datasets.Get(id)
	if !ok {
		return nil, mcperr.Wrapf(mcperr.InvalidHandle, "dataset %q not found or expired", id)
	}
	return ds, nil
}

// dashboard runs (or reuses) the pipeline for ds under opts.
func (d Deps) dashboard(ctx context.Context, ds *datasets.Dataset, opts analytics.Options) (*analytics.Dashboard, *mcp.CallToolResult) {
	db, err := ds.Dashboard(ctx, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, mcperr.New(mcperr.Timeout, "")
		}
		return nil, mcperr.FromError(err, mcperr.AnalysisFailed)
	}
	return db, nil
}
