package analytics

import (
	"context"
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestRun_EndToEndScenario(t *testing.T) {
	d, err := Run(context.Background(), scenarioTable(), DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, d.Issues)

	requireDecimal(t, "450", d.Metrics.TotalSales.Value)
	require.Equal(t, 2, d.Metrics.TotalCustomers.Value)
	require.Equal(t, 1, d.Metrics.RepeatCustomers.Value)

	require.Len(t, d.Monthly, 2)
	require.Equal(t, "2024-01", d.Monthly[0].Month.String())
	requireDecimal(t, "400", d.Monthly[0].Total)
	require.Equal(t, "2024-02", d.Monthly[1].Month.String())
	requireDecimal(t, "50", d.Monthly[1].Total)

	require.Equal(t, "Gadget", d.ByProduct[0].Key)
	requireDecimal(t, "300", d.ByProduct[0].Total)
	require.Equal(t, "Widget", d.ByProduct[1].Key)
	requireDecimal(t, "150", d.ByProduct[1].Total)

	require.Equal(t, "West", d.ByRegion[0].Key)
	require.Len(t, d.ABCProduct, 2)
	require.Equal(t, TierA, d.ABCProduct[0].Tier) // 66.7%
	require.Equal(t, TierC, d.ABCProduct[1].Tier)
	require.NotNil(t, d.ProductConcentration)
	require.Equal(t, 3, d.Normalized.Len())
}

func TestRun_EmptyTable(t *testing.T) {
	d, err := Run(context.Background(), Table{Columns: salesHeader}, DefaultOptions())
	require.NoError(t, err)
	require.False(t, d.Metrics.TotalSales.Valid)
	require.False(t, d.Metrics.AvgOrderValue.Valid)
	require.False(t, d.Metrics.TotalCustomers.Valid)
	require.False(t, d.Metrics.RepeatCustomers.Valid)
	require.Empty(t, d.Monthly)
	require.Empty(t, d.ByProduct)
	require.Empty(t, d.ByRegion)
	require.Empty(t, d.ABCProduct)
	require.Empty(t, d.ABCRegion)
	require.Nil(t, d.ProductConcentration)
	require.True(t, d.Issues.Has(FeatureKPIs))
}

func TestRun_MissingRegionDegradesRegionFeaturesOnly(t *testing.T) {
	raw := Table{
		Columns: []string{"Customer_ID", "Product_Name", "Order_Date", "Total_Amount"},
		Rows: [][]any{
			{"C1", "Widget", "2024-01-05", "100"},
			{"C2", "Gadget", "2024-01-06", "200"},
		},
	}
	d, err := Run(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)
	require.True(t, d.Issues.Has(FeatureRankRegion))
	require.True(t, d.Issues.Has(FeatureABCRegion))
	require.False(t, d.Issues.Has(FeatureRankProduct))
	require.Nil(t, d.ByRegion)
	require.Len(t, d.ByProduct, 2)
	require.Len(t, d.Monthly, 1)
	require.Equal(t, []string{ColRegion}, d.Report.MissingColumns)

	for i := 1; i < len(d.Issues); i++ {
		require.LessOrEqual(t, d.Issues[i-1].Feature, d.Issues[i].Feature)
	}
}

func TestRun_ReportsDroppedRows(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows, []any{"O4", "C9", "Widget", "East", "31/31/2024", "10"})
	d, err := Run(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, d.Report.DroppedRows)
	require.True(t, d.Issues.Has(FeatureNormalize))
	requireDecimal(t, "450", d.Metrics.TotalSales.Value)
}

func TestRun_WithTopTruncatesRankingsOnly(t *testing.T) {
	d, err := Run(context.Background(), scenarioTable(), DefaultOptions())
	require.NoError(t, err)
	top := d.WithTop(1)
	require.Len(t, top.ByProduct, 1)
	require.Len(t, top.ABCProduct, 2)
	require.Len(t, d.ByProduct, 2)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, scenarioTable(), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.Thresholds = Thresholds{A: 90, B: 90}
	_, err := Run(context.Background(), scenarioTable(), opts)
	require.Error(t, err)
}

func TestRun_ZeroTotalIssuesNameTheDimension(t *testing.T) {
	raw := Table{
		Columns: salesHeader,
		Rows: [][]any{
			{"O1", "C1", "Widget", "East", "2024-01-05", "40"},
			{"O2", "C2", "Widget", "East", "2024-01-06", "-40"},
		},
	}
	d, err := Run(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, d.ByProduct, 1)
	for _, f := range []string{FeatureABCProduct, FeatureABCRegion, FeatureConcentration} {
		got := d.Issues.For(f)
		require.Len(t, got, 1, f)
		require.ErrorIs(t, got[0].Err, ErrUndefinedShare)
		require.Contains(t, got[0].Message, f)
	}
}

func TestRun_NonFiniteCellsDoNotPanic(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows,
		[]any{"O4", "C3", "Widget", "East", "2024-01-05", math.Inf(1)},
		[]any{"O5", "C3", "Widget", math.Inf(-1), "2024-01-06", 5.0},
	)
	var d *Dashboard
	require.NotPanics(t, func() {
		var err error
		d, err = Run(context.Background(), raw, DefaultOptions())
		require.NoError(t, err)
	})
	require.Equal(t, 1, d.Report.UnparsedAmounts)
	require.Equal(t, 4, d.Normalized.Len())
	require.True(t, d.Issues.Has(FeatureNormalize))
	require.Contains(t, lo.Map(d.ByRegion, func(e RankedEntry, _ int) string { return e.Key }), "-Inf")
}

func TestIssues_ForSelectsFeatureFamilies(t *testing.T) {
	is := Issues{
		{Feature: FeatureKPIs},
		{Feature: FeatureAvgOrderValue},
		{Feature: FeatureRankRegion},
		{Feature: "kpis_extra"},
	}
	got := is.For(FeatureKPIs)
	require.Len(t, got, 2)
	require.Equal(t, FeatureAvgOrderValue, got[1].Feature)
	require.Len(t, is.For("rank", FeatureNormalize), 1)
	require.Empty(t, is.For("abc"))
}
