package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/datasets"
	"github.com/vinodismyname/salespulse/internal/runtime"
	"github.com/vinodismyname/salespulse/pkg/mcperr"
	"github.com/vinodismyname/salespulse/pkg/pagination"
	"github.com/vinodismyname/salespulse/pkg/validation"
)

// LoadDatasetInput selects a file or a database table to load.
type LoadDatasetInput struct {
	Path  string `json:"path,omitempty" jsonschema_description:"Path to a .csv, .tsv, .txt, .xlsx or .xlsm file under an allowed directory" validate:"required_without=Table,excluded_with=Table,omitempty,dataset_ext"`
	Table string `json:"table,omitempty" jsonschema_description:"Postgres table (optionally schema-qualified) when a database is configured" validate:"omitempty,sql_ident"`
	Sheet string `json:"sheet,omitempty" jsonschema_description:"Workbook sheet; defaults to the first sheet"`
}

// LoadDatasetOutput describes a cached dataset.
type LoadDatasetOutput struct {
	DatasetID string                    `json:"dataset_id" jsonschema_description:"Handle for the analytics tools"`
	Source    string                    `json:"source"`
	Rows      int                       `json:"rows" jsonschema_description:"Raw rows read"`
	Columns   []string                  `json:"columns" jsonschema_description:"Raw header names"`
	Truncated bool                      `json:"truncated" jsonschema_description:"True when the row cap stopped the load"`
	Report    analytics.NormalizeReport `json:"report" jsonschema_description:"Normalization outcome: renamed, missing and colliding columns, dropped rows"`
}

// DatasetInput identifies a loaded dataset.
type DatasetInput struct {
	DatasetID string `json:"dataset_id" jsonschema_description:"Dataset handle from load_dataset" validate:"required"`
}

// PreviewDatasetInput pages through normalized rows.
type PreviewDatasetInput struct {
	DatasetID string `json:"dataset_id,omitempty" jsonschema_description:"Dataset handle; optional when cursor is supplied" validate:"required_without=Cursor"`
	Rows      int    `json:"rows,omitempty" jsonschema_description:"Rows per page" validate:"omitempty,min=1,max=1000"`
	Cursor    string `json:"cursor,omitempty" jsonschema_description:"Opaque cursor from a previous page" validate:"omitempty,cursor"`
}

// PageMeta captures paging metadata.
type PageMeta struct {
	Total      int    `json:"total"`
	Offset     int    `json:"offset"`
	Returned   int    `json:"returned"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// PreviewDatasetOutput is one page of normalized rows rendered as text.
type PreviewDatasetOutput struct {
	DatasetID string     `json:"dataset_id"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Meta      PageMeta   `json:"meta"`
}

// RegisterDatasetTools adds load_dataset, close_dataset and preview_dataset.
func RegisterDatasetTools(s *server.MCPServer, reg *Registry, deps Deps) {
	load := mcp.NewTool(
		"load_dataset",
		mcp.WithDescription("Load a sales transaction table from a file (CSV/TSV/XLSX) or a Postgres table and return a dataset_id. The table is normalized once: headers are canonicalized (spaces to underscores), Order_Date and Total_Amount are parsed and incomplete rows dropped. The report lists missing or colliding columns so you know which analyses will be unavailable."),
		mcp.WithInputSchema[LoadDatasetInput](),
		mcp.WithOutputSchema[LoadDatasetOutput](),
	)
	reg.add(s, load, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in LoadDatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		if in.Table != "" && deps.DB == nil {
			return mcperr.New(mcperr.Validation, "no database configured; load a file or set SALESPULSE_DATABASE_URL"), nil
		}

		var (
			ds  *datasets.Dataset
			err error
		)
		if in.Table != "" {
			ds, err = deps.Datasets.LoadTable(ctx, deps.DB, in.Table)
		} else {
			ds, err = deps.Datasets.Open(ctx, in.Path, in.Sheet)
		}
		if err != nil {
			return loadError(err), nil
		}
		db, errRes := deps.dashboard(ctx, ds, deps.Options)
		if errRes != nil {
			_ = deps.Datasets.CloseDataset(ds.ID)
			return errRes, nil
		}

		out := LoadDatasetOutput{
			DatasetID: ds.ID,
			Source:    ds.Source,
			Rows:      ds.Table.Len(),
			Columns:   append([]string(nil), ds.Table.Columns...),
			Truncated: ds.Truncated,
			Report:    db.Report,
		}
		lines := []string{fmt.Sprintf("dataset_id=%s rows=%d analyzed=%d dropped=%d truncated=%v", out.DatasetID, out.Rows, db.Report.OutputRows, db.Report.DroppedRows, out.Truncated)}
		if len(db.Report.MissingColumns) > 0 {
			lines = append(lines, "missing columns: "+strings.Join(db.Report.MissingColumns, ", "))
		}
		if c := db.Normalized.Collisions(); len(c) > 0 {
			lines = append(lines, "ambiguous columns (excluded): "+strings.Join(c, ", "))
		}
		return reg.result(out, lines), nil
	}))

	closeTool := mcp.NewTool(
		"close_dataset",
		mcp.WithDescription("Release a dataset handle and its memory"),
		mcp.WithInputSchema[DatasetInput](),
		mcp.WithOutputSchema[struct {
			Success bool `json:"success" jsonschema_description:"True when the handle was closed"`
		}](),
	)
	reg.add(s, closeTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		if err := deps.Datasets.CloseDataset(in.DatasetID); err != nil {
			return mcperr.Wrapf(mcperr.InvalidHandle, "dataset %q not found or expired", in.DatasetID), nil
		}
		out := struct {
			Success bool `json:"success"`
		}{Success: true}
		return reg.result(out, []string{"closed " + in.DatasetID}), nil
	}))

	preview := mcp.NewTool(
		"preview_dataset",
		mcp.WithDescription("Page through the normalized rows of a dataset (dates as YYYY-MM-DD, amounts as decimals). Pass meta.nextCursor back as cursor to continue; cursors are invalidated when the dataset is reloaded."),
		mcp.WithInputSchema[PreviewDatasetInput](),
		mcp.WithOutputSchema[PreviewDatasetOutput](),
	)
	reg.add(s, preview, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in PreviewDatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		out, errRes := previewPage(ctx, deps, in)
		if errRes != nil {
			return errRes, nil
		}
		lines := []string{fmt.Sprintf("rows %d-%d of %d", out.Meta.Offset+1, out.Meta.Offset+out.Meta.Returned, out.Meta.Total)}
		lines = append(lines, strings.Join(out.Columns, " | "))
		for _, r := range out.Rows {
			lines = append(lines, strings.Join(r, " | "))
		}
		return reg.result(out, lines), nil
	}))
}

func previewPage(ctx context.Context, deps Deps, in PreviewDatasetInput) (PreviewDatasetOutput, *mcp.CallToolResult) {
	id, off, size := in.DatasetID, 0, in.Rows
	var cur *pagination.Cursor
	if in.Cursor != "" {
		c, err := pagination.DecodeCursor(in.Cursor)
		if err != nil {
			return PreviewDatasetOutput{}, mcperr.New(mcperr.CursorInvalid, "")
		}
		if id != "" && id != c.Did {
			return PreviewDatasetOutput{}, mcperr.New(mcperr.CursorInvalid, "cursor belongs to another dataset")
		}
		cur, id, off, size = c, c.Did, c.Off, c.Ps
	}
	if size <= 0 {
		size = deps.Limits.PreviewRowLimit
	}

	ds, errRes := deps.dataset(id)
	if errRes != nil {
		return PreviewDatasetOutput{}, errRes
	}
	db, errRes := deps.dashboard(ctx, ds, deps.Options)
	if errRes != nil {
		return PreviewDatasetOutput{}, errRes
	}
	n := db.Normalized
	if cur != nil && cur.N != n.Len() {
		return PreviewDatasetOutput{}, mcperr.New(mcperr.CursorInvalid, "dataset changed since the cursor was issued")
	}

	start, end, next := pagination.Page(off, size, n.Len())
	out := PreviewDatasetOutput{
		DatasetID: id,
		Columns:   n.Columns(),
		Rows:      make([][]string, 0, end-start),
		Meta:      PageMeta{Total: n.Len(), Offset: start, Returned: end - start},
	}
	for i := start; i < end; i++ {
		row := n.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = analytics.Text(v)
		}
		out.Rows = append(out.Rows, cells)
	}
	if next > 0 {
		tok, err := pagination.EncodeCursor(pagination.Cursor{Did: id, Off: next, Ps: size, N: n.Len()})
		if err != nil {
			return PreviewDatasetOutput{}, mcperr.Wrapf(mcperr.AnalysisFailed, "encode cursor: %v", err)
		}
		out.Meta.NextCursor = tok
	}
	return out, nil
}

func loadError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, runtime.ErrDatasetLimit):
		return mcperr.New(mcperr.LimitExceeded, "")
	case errors.Is(err, context.DeadlineExceeded):
		return mcperr.New(mcperr.Timeout, "")
	}
	return mcperr.FromError(err, mcperr.LoadFailed)
}
