// Package sources loads raw transaction tables from delimited files,
// Excel workbooks and Postgres tables.
package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinodismyname/salespulse/config"
	"github.com/vinodismyname/salespulse/internal/analytics"
)

// ErrUnsupportedFormat indicates a file extension no loader handles.
var ErrUnsupportedFormat = errors.New("sources: unsupported format")

// ErrNoHeader indicates an input without a header row.
var ErrNoHeader = errors.New("sources: no header row")

// Options bound a load.
type Options struct {
	// Sheet selects a workbook sheet; the first sheet is used when empty.
	Sheet string
	// MaxRows caps data rows; config.DefaultMaxRows when <= 0.
	MaxRows int
}

func (o Options) maxRows() int {
	if o.MaxRows <= 0 {
		return config.DefaultMaxRows
	}
	return o.MaxRows
}

// Result is a loaded table plus provenance.
type Result struct {
	Table     analytics.Table
	Source    string
	Truncated bool
}

// SupportedExtensions lists the file extensions LoadFile accepts.
var SupportedExtensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm"}

// LoadFile reads a delimited or Excel file into a raw table.
func LoadFile(ctx context.Context, path string, opts Options) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return Result{}, err
		}
		defer f.Close()
		delim := ','
		if ext == ".tsv" {
			delim = '\t'
		}
		res, err := ReadDelimited(ctx, f, delim, opts)
		res.Source = path
		return res, err
	case ".xlsx", ".xlsm":
		res, err := ReadWorkbookFile(ctx, path, opts)
		res.Source = path
		return res, err
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
