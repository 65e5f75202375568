package sources

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbookFile opens an Excel workbook and reads one sheet as a table.
func ReadWorkbookFile(ctx context.Context, path string, opts Options) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return ReadSheet(ctx, f, opts)
}

// ReadWorkbook reads a workbook from r, as delivered by an upload.
func ReadWorkbook(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return ReadSheet(ctx, f, opts)
}

// ReadSheet streams the selected sheet. The first non-empty row is the
// header; trailing columns past the header width are ignored.
func ReadSheet(ctx context.Context, f *excelize.File, opts Options) (Result, error) {
	sheet := strings.TrimSpace(opts.Sheet)
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Result{}, fmt.Errorf("sources: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	var res Result
	limit := opts.maxRows()
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		vals, err := rows.Columns()
		if err != nil {
			return res, err
		}
		if res.Table.Columns == nil {
			if isBlankRow(vals) {
				continue
			}
			res.Table.Columns = trimTrailingEmpties(vals)
			continue
		}
		if isBlankRow(vals) {
			continue
		}
		if len(res.Table.Rows) >= limit {
			res.Truncated = true
			break
		}
		res.Table.Rows = append(res.Table.Rows, toRow(vals, len(res.Table.Columns)))
	}
	if err := rows.Error(); err != nil {
		return res, err
	}
	if res.Table.Columns == nil {
		return res, ErrNoHeader
	}
	return res, nil
}

func isBlankRow(vals []string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func trimTrailingEmpties(xs []string) []string {
	end := len(xs)
	for end > 0 && strings.TrimSpace(xs[end-1]) == "" {
		end--
	}
	out := make([]string, end)
	copy(out, xs[:end])
	return out
}
