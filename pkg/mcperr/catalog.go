package mcperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/security"
	"github.com/vinodismyname/salespulse/internal/sources"
)

// Code is a canonical tool error code.
type Code string

const (
	// Input
	Validation    Code = "VALIDATION"
	InvalidHandle Code = "INVALID_HANDLE"
	CursorInvalid Code = "CURSOR_INVALID"

	// Resource & Limits
	BusyResource  Code = "BUSY_RESOURCE"
	Timeout       Code = "TIMEOUT"
	LimitExceeded Code = "LIMIT_EXCEEDED"

	// Sources & Output
	LoadFailed        Code = "LOAD_FAILED"
	UnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	PermissionDenied  Code = "PERMISSION_DENIED"
	ExportFailed      Code = "EXPORT_FAILED"

	// Analysis
	Schema         Code = "SCHEMA"
	NoData         Code = "NO_DATA"
	AnalysisFailed Code = "ANALYSIS_FAILED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

var catalog = map[Code]Entry{
	Validation:    {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry"}},
	InvalidHandle: {Code: InvalidHandle, Message: "dataset handle not found or expired", Retryable: true, NextSteps: []string{"Reload the dataset with load_dataset and retry"}},
	CursorInvalid: {Code: CursorInvalid, Message: "cursor is invalid for current dataset", Retryable: true, NextSteps: []string{"Restart the preview from the first page"}},

	BusyResource:  {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:       {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Retry with a smaller dataset"}},
	LimitExceeded: {Code: LimitExceeded, Message: "open dataset limit reached", Retryable: true, NextSteps: []string{"Close unused datasets with close_dataset"}},

	LoadFailed:        {Code: LoadFailed, Message: "failed to load dataset", Retryable: true, NextSteps: []string{"Verify the path, sheet or table name"}},
	UnsupportedFormat: {Code: UnsupportedFormat, Message: "unsupported dataset format", Retryable: false, NextSteps: []string{"Provide .csv, .tsv, .txt, .xlsx or .xlsm"}},
	PermissionDenied:  {Code: PermissionDenied, Message: "path is outside the allowed directories", Retryable: false, NextSteps: []string{"Choose a file under SALESPULSE_ALLOWED_DIRS"}},
	ExportFailed:      {Code: ExportFailed, Message: "failed to write export", Retryable: false, NextSteps: []string{"Check the output directory and retry"}},

	Schema:         {Code: Schema, Message: "required column unavailable", Retryable: false, NextSteps: []string{"Call preview_dataset to inspect column names", "Rename duplicate headers"}},
	NoData:         {Code: NoData, Message: "no rows left after normalization", Retryable: false, NextSteps: []string{"Check Order_Date and Total_Amount values"}},
	AnalysisFailed: {Code: AnalysisFailed, Message: "analysis failed", Retryable: true, NextSteps: []string{"Retry or inspect sales_dashboard issues"}},
}

// Lookup returns the catalog entry for code.
func Lookup(code Code) (Entry, bool) {
	e, ok := catalog[code]
	return e, ok
}

// normalize renders "CODE: message | nextSteps: ..." for clients that surface
// only a message string.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", code, base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	code, msg, _ := strings.Cut(t, ":")
	return mcp.NewToolResultError(normalize(Code(strings.TrimSpace(code)), strings.TrimSpace(msg)))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// Classify maps a Go error from the sources, security or analytics packages
// to a code. fallback is used when nothing more specific matches.
func Classify(err error, fallback Code) Code {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, security.ErrNotAllowed):
		return PermissionDenied
	case errors.Is(err, security.ErrUnsupportedExtension), errors.Is(err, sources.ErrUnsupportedFormat):
		return UnsupportedFormat
	case errors.Is(err, security.ErrNotFound):
		return LoadFailed
	case errors.Is(err, analytics.ErrMissingColumn):
		return Schema
	case errors.Is(err, analytics.ErrNoData):
		return NoData
	}
	return fallback
}

// FromError builds a tool error result with the classified code and err's text.
func FromError(err error, fallback Code) *mcp.CallToolResult {
	return New(Classify(err, fallback), err.Error())
}
