package registry

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/salespulse/config"
)

// ExportToolFilter hides tools that write files unless exports are enabled
// with SALESPULSE_ENABLE_EXPORT=true.
type ExportToolFilter struct {
	allowExport bool
}

// NewExportToolFilter constructs a filter with an explicit setting.
func NewExportToolFilter(allow bool) *ExportToolFilter {
	return &ExportToolFilter{allowExport: allow}
}

// NewExportToolFilterFromEnv reads SALESPULSE_ENABLE_EXPORT.
func NewExportToolFilterFromEnv() *ExportToolFilter {
	return NewExportToolFilter(ExportEnabled())
}

// ExportEnabled reports whether SALESPULSE_ENABLE_EXPORT is truthy.
func ExportEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(config.EnvEnableExport)))
	return v == "1" || v == "true" || v == "yes"
}

// FilterTools drops export_ tools from discovery when exports are disabled.
func (f *ExportToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if f.allowExport {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if strings.HasPrefix(strings.ToLower(t.Name), "export_") {
			continue
		}
		out = append(out, t)
	}
	return out
}
