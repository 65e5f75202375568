package analytics

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Feature names not covered by a single aggregator.
const (
	FeatureNormalize     = "normalize"
	FeatureKPIs          = "kpi"
	FeatureConcentration = "concentration.product"
)

// Dashboard bundles every view derived from one normalized table.
type Dashboard struct {
	Report               NormalizeReport `json:"report"`
	Metrics              Metrics         `json:"metrics"`
	Monthly              []MonthlyPoint  `json:"monthly"`
	ByProduct            []RankedEntry   `json:"by_product"`
	ByRegion             []RankedEntry   `json:"by_region"`
	ABCProduct           []ABCEntry      `json:"abc_product"`
	ABCRegion            []ABCEntry      `json:"abc_region"`
	ProductConcentration *Concentration  `json:"product_concentration,omitempty"`
	Issues               Issues          `json:"issues,omitempty"`

	Normalized *Normalized `json:"-"`
}

// WithTop returns a copy whose rankings are truncated to n entries.
// ABC tables keep the full ranking they were computed from.
func (d Dashboard) WithTop(n int) Dashboard {
	d.ByProduct = Top(d.ByProduct, n)
	d.ByRegion = Top(d.ByRegion, n)
	return d
}

// Run normalizes raw once and derives KPIs, the monthly series, product
// and region rankings, their ABC classifications and product concentration.
// Views are independent reads of the normalized table and are computed
// concurrently. A view whose columns are unavailable is skipped and
// recorded in Issues; only context cancellation or invalid options fail Run.
func Run(ctx context.Context, raw Table, opts Options) (*Dashboard, error) {
	opts = opts.withDefaults()
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseSignPolicy(string(opts.Sign)); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)

	n, rep := Normalize(raw, opts.Sign)
	d := &Dashboard{Report: rep, Normalized: n}
	for _, e := range rep.ParseErrors() {
		d.Issues = append(d.Issues, newIssue(FeatureNormalize, e))
	}
	if n.Len() == 0 {
		d.Issues = append(d.Issues, newIssue(FeatureKPIs, ErrNoData))
	}
	logger.Debug().
		Int("input_rows", rep.InputRows).
		Int("output_rows", rep.OutputRows).
		Int("dropped_rows", rep.DroppedRows).
		Int("excluded_returns", rep.ExcludedReturns).
		Strs("missing_columns", rep.MissingColumns).
		Strs("collisions", n.Collisions()).
		Msg("table normalized")

	var mu sync.Mutex
	record := func(issues ...Issue) {
		mu.Lock()
		d.Issues = append(d.Issues, issues...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		m, issues := ComputeMetrics(n)
		d.Metrics = m
		record(issues...)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		series, err := MonthlySeries(n, opts.FillGaps)
		if err != nil {
			record(newIssue(FeatureMonthly, err))
			return nil
		}
		d.Monthly = series
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		ranked, classified, issues := rankAndClassify(n, ColProductName, FeatureABCProduct, opts.Thresholds)
		d.ByProduct, d.ABCProduct = ranked, classified
		if len(ranked) > 0 {
			c, err := Concentrate(ranked, opts.TopN)
			if err != nil {
				issues = append(issues, newIssue(FeatureConcentration, err))
			} else {
				d.ProductConcentration = &c
			}
		}
		record(issues...)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		ranked, classified, issues := rankAndClassify(n, ColRegion, FeatureABCRegion, opts.Thresholds)
		d.ByRegion, d.ABCRegion = ranked, classified
		record(issues...)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(d.Issues, func(i, j int) bool { return d.Issues[i].Feature < d.Issues[j].Feature })
	for _, is := range d.Issues {
		logger.Warn().Str("feature", is.Feature).Str("issue", is.Message).Msg("feature degraded")
	}
	return d, nil
}

func rankAndClassify(n *Normalized, dimension, abcFeature string, t Thresholds) ([]RankedEntry, []ABCEntry, Issues) {
	ranked, err := Rank(n, dimension)
	if err != nil {
		return nil, nil, Issues{newIssue(RankFeature(dimension), err), newIssue(abcFeature, err)}
	}
	classified, err := ClassifyABC(ranked, t)
	if err != nil {
		return ranked, nil, Issues{newIssue(abcFeature, err)}
	}
	return ranked, classified, nil
}
