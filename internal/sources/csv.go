package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadDelimited parses a header row followed by data rows. Cells are kept
// as raw strings apart from NA literals, which become nil; typing happens
// in normalization.
// Ragged rows are padded with nulls or cut to the header width.
func ReadDelimited(ctx context.Context, r io.Reader, delim rune, opts Options) (Result, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrNoHeader
	}
	if err != nil {
		return Result{}, fmt.Errorf("sources: read header: %w", err)
	}
	cols := make([]string, len(header))
	copy(cols, header)
	if len(cols) > 0 {
		cols[0] = strings.TrimPrefix(cols[0], "\ufeff")
	}

	var res Result
	res.Table.Columns = cols
	limit := opts.maxRows()
	for {
		if len(res.Table.Rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("sources: read row %d: %w", len(res.Table.Rows)+2, err)
		}
		if len(res.Table.Rows) >= limit {
			res.Truncated = true
			break
		}
		res.Table.Rows = append(res.Table.Rows, toRow(rec, len(cols)))
	}
	return res, nil
}

// naValues are the file cell literals read as missing. The set and its exact
// case follow pandas' read_csv defaults, so "na" or "Na" stay values.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// toRow converts a file record to a row of header width. Missing trailing
// cells and NA literals become nil.
func toRow(rec []string, width int) []any {
	row := make([]any, width)
	for i := 0; i < width && i < len(rec); i++ {
		if _, na := naValues[rec[i]]; na {
			continue
		}
		row[i] = rec[i]
	}
	return row
}
