// Command salesreport loads one sales table and prints the dashboard as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vinodismyname/salespulse/config"
	"github.com/vinodismyname/salespulse/internal/analytics"
	"github.com/vinodismyname/salespulse/internal/export"
	"github.com/vinodismyname/salespulse/internal/sources"
)

type options struct {
	file     string
	sheet    string
	dsn      string
	table    string
	top      int
	fillGaps bool
	sign     string
	thresA   float64
	thresB   float64
	xlsx     string
	maxRows  int
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	decimal.MarshalJSONWithoutQuotes = true

	var o options
	flag.StringVar(&o.file, "file", "", "CSV, TSV or XLSX file to analyze")
	flag.StringVar(&o.sheet, "sheet", "", "Workbook sheet (default: first sheet)")
	flag.StringVar(&o.dsn, "dsn", os.Getenv(config.EnvDatabaseURL), "Postgres connection string")
	flag.StringVar(&o.table, "table", "", "Postgres table to analyze instead of -file")
	flag.IntVar(&o.top, "top", config.DefaultTopN, "Ranking entries to print")
	flag.BoolVar(&o.fillGaps, "fill-gaps", false, "Emit zero-sales months between observed months")
	flag.StringVar(&o.sign, "sign", string(analytics.SignKeep), "Negative amounts: keep or exclude")
	flag.Float64Var(&o.thresA, "threshold-a", config.DefaultABCThresholdA, "ABC tier A upper cumulative %")
	flag.Float64Var(&o.thresB, "threshold-b", config.DefaultABCThresholdB, "ABC tier B upper cumulative %")
	flag.StringVar(&o.xlsx, "xlsx", "", "Also write the dashboard to this .xlsx file")
	flag.IntVar(&o.maxRows, "max-rows", config.DefaultMaxRows, "Maximum rows to read")
	flag.Parse()

	logger := zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("service", "salesreport").Logger()
	ctx, stop := signal.NotifyContext(logger.WithContext(context.Background()), os.Interrupt)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("salesreport failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	logger := zerolog.Ctx(ctx)

	sign, err := analytics.ParseSignPolicy(o.sign)
	if err != nil {
		return err
	}
	opts := analytics.Options{
		Sign:       sign,
		FillGaps:   o.fillGaps,
		Thresholds: analytics.Thresholds{A: o.thresA, B: o.thresB},
		TopN:       o.top,
	}

	res, err := load(ctx, o)
	if err != nil {
		return err
	}
	if res.Truncated {
		logger.Warn().Int("max_rows", o.maxRows).Msg("row cap reached; results cover a prefix of the source")
	}

	d, err := analytics.Run(ctx, res.Table, opts)
	if err != nil {
		return err
	}

	if o.xlsx != "" {
		if err := export.WriteDashboard(d, o.xlsx); err != nil {
			return err
		}
		logger.Info().Str("path", o.xlsx).Msg("dashboard exported")
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d.WithTop(o.top))
}

func load(ctx context.Context, o options) (sources.Result, error) {
	srcOpts := sources.Options{Sheet: o.sheet, MaxRows: o.maxRows}
	switch {
	case o.file != "" && o.table != "":
		return sources.Result{}, errors.New("use either -file or -table, not both")
	case o.file != "":
		return sources.LoadFile(ctx, o.file, srcOpts)
	case o.table != "":
		if o.dsn == "" {
			return sources.Result{}, fmt.Errorf("-table needs -dsn or %s", config.EnvDatabaseURL)
		}
		db, err := sources.OpenPostgres(ctx, o.dsn)
		if err != nil {
			return sources.Result{}, err
		}
		defer db.Close()
		return sources.LoadTable(ctx, db, o.table, srcOpts)
	}
	return sources.Result{}, errors.New("nothing to analyze: pass -file or -table")
}
