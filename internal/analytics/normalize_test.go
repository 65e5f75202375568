package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CanonicalizesHeaders(t *testing.T) {
	raw := Table{
		Columns: []string{" Order ID ", "Customer ID", "Product Name", "Region", "Order Date", "Total Amount"},
		Rows:    [][]any{{"O1", "C1", "Widget", "East", "2024-01-05", "100"}},
	}
	n, rep := Normalize(raw, SignKeep)
	require.Equal(t, salesHeader, n.Columns())
	require.Equal(t, "Order_ID", rep.Renamed[" Order ID "])
	require.Equal(t, "Total_Amount", rep.Renamed["Total Amount"])
	require.Empty(t, rep.MissingColumns)
	require.Equal(t, 1, n.Len())
}

func TestNormalize_ParsesDatesAndAmounts(t *testing.T) {
	n := normalized(t, scenarioTable())
	row := n.Row(0)
	require.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), row[4])
	requireDecimal(t, "100", row[5].(decimal.Decimal))

	raw := Table{
		Columns: []string{"Order_Date", "Total_Amount"},
		Rows: [][]any{
			{time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC), 12.5},
			{"03/15/2024", "$1,234.50"},
			{"2024-03-20T10:00:00Z", int64(7)},
		},
	}
	n = normalized(t, raw)
	require.Equal(t, 3, n.Len())
	require.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), n.Row(0)[0])
	requireDecimal(t, "1234.50", n.Row(1)[1].(decimal.Decimal))
	require.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), n.Row(2)[0])
}

func TestNormalize_UnparseableDateDroppedAndCounted(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows, []any{"O4", "C3", "Widget", "East", "not a date", "10"})
	n, rep := Normalize(raw, SignKeep)
	require.Equal(t, 3, n.Len())
	require.Equal(t, 1, rep.UnparsedDates)
	require.Equal(t, 1, rep.DroppedRows)

	errs := rep.ParseErrors()
	require.Len(t, errs, 1)
	var pe *ParseError
	require.True(t, errors.As(errs[0], &pe))
	require.Equal(t, ColOrderDate, pe.Column)
	require.Equal(t, 1, pe.Count)
}

func TestNormalize_DropsRowsWithNulls(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows,
		[]any{"O4", nil, "Widget", "East", "2024-03-01", "10"},
		[]any{"O5", "C4", "  ", "East", "2024-03-01", "10"},
		[]any{"O6", "C4", "Widget", nil, "2024-03-01", "10"},
		[]any{"O7", "C4", "Widget", "East", "2024-03-01", ""},
		[]any{"O8", "C4", "Widget"}, // ragged
	)
	n, rep := Normalize(raw, SignKeep)
	require.Equal(t, 3, n.Len())
	require.Equal(t, 5, rep.DroppedRows)
	require.Zero(t, rep.UnparsedAmounts, "blank amounts are nulls, not parse failures")
}

func TestNormalize_NonFiniteAmountsCountedAsUnparsed(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows,
		[]any{"O4", "C3", "Widget", "East", "2024-03-01", math.Inf(1)},
		[]any{"O5", "C3", "Widget", "East", "2024-03-01", math.Inf(-1)},
		[]any{"O6", "C3", "Widget", "East", "2024-03-01", float32(math.Inf(1))},
		[]any{"O7", "C3", "Widget", "East", "2024-03-01", math.NaN()},
	)
	var (
		n   *Normalized
		rep NormalizeReport
	)
	require.NotPanics(t, func() { n, rep = Normalize(raw, SignKeep) })
	require.Equal(t, 3, n.Len())
	require.Equal(t, 4, rep.DroppedRows)
	require.Equal(t, 3, rep.UnparsedAmounts, "NaN is a null, infinities are parse failures")
}

func TestNormalize_DatabaseTextLiteralsAreValues(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows, []any{"O4", "C3", "Widget", "NA", "2024-03-01", "25"})
	n, rep := Normalize(raw, SignKeep)
	require.Equal(t, 4, n.Len())
	require.Zero(t, rep.DroppedRows)
	require.Equal(t, "NA", n.Row(3)[3])
}

func TestText_NonFiniteFloats(t *testing.T) {
	require.NotPanics(t, func() {
		require.Equal(t, "+Inf", Text(math.Inf(1)))
		require.Equal(t, "-Inf", Text(math.Inf(-1)))
		require.Equal(t, "NaN", Text(math.NaN()))
	})
	require.Equal(t, "12.5", Text(12.5))
}

func TestNormalize_CollisionExcludesBothColumns(t *testing.T) {
	raw := Table{
		Columns: []string{"Region", " Region", "Total_Amount"},
		Rows:    [][]any{{"East", "West", "10"}},
	}
	n, rep := Normalize(raw, SignKeep)
	require.False(t, n.Has(ColRegion))
	require.Equal(t, []string{"Region"}, n.Collisions())
	require.ElementsMatch(t, []string{"Region", " Region"}, rep.Collisions["Region"])
	require.Contains(t, rep.MissingColumns, ColRegion)

	_, err := Rank(n, ColRegion)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	require.Equal(t, SchemaCollision, se.Kind)
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestNormalize_ReportsMissingColumns(t *testing.T) {
	raw := Table{Columns: []string{"Customer_ID", "Total_Amount"}, Rows: [][]any{{"C1", "5"}}}
	_, rep := Normalize(raw, SignKeep)
	require.Equal(t, []string{ColOrderDate, ColProductName, ColRegion}, rep.MissingColumns)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := Table{
		Columns: []string{"Customer ID", "Product Name", "Region", "Order Date", "Total Amount"},
		Rows: [][]any{
			{"C1", "Widget", "East", "2024-01-05", "100"},
			{"C2", "Gadget", "West", "bad", "300"},
			{"C3", nil, "West", "2024-01-07", "30"},
		},
	}
	first, _ := Normalize(raw, SignKeep)
	second, rep := Normalize(first.Table(), SignKeep)
	require.Equal(t, first.Columns(), second.Columns())
	require.Equal(t, first.Table(), second.Table())
	require.Zero(t, rep.DroppedRows)
	require.Empty(t, rep.Renamed)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := Table{
		Columns: []string{"Order Date", "Total Amount"},
		Rows:    [][]any{{"2024-01-05", "100"}, {nil, "5"}},
	}
	before := raw.Clone()
	_, _ = Normalize(raw, SignKeep)
	require.Equal(t, before, raw)
}

func TestNormalize_SignPolicyExclude(t *testing.T) {
	raw := scenarioTable()
	raw.Rows = append(raw.Rows, []any{"O4", "C2", "Gadget", "West", "2024-01-21", "-40"})

	keep, rep := Normalize(raw, SignKeep)
	require.Equal(t, 4, keep.Len())
	require.Zero(t, rep.ExcludedReturns)

	excl, rep := Normalize(raw, SignExclude)
	require.Equal(t, 3, excl.Len())
	require.Equal(t, 1, rep.ExcludedReturns)
	require.Zero(t, rep.DroppedRows)
}

func TestParseSignPolicy(t *testing.T) {
	p, err := ParseSignPolicy("")
	require.NoError(t, err)
	require.Equal(t, SignKeep, p)
	p, err = ParseSignPolicy(" Exclude ")
	require.NoError(t, err)
	require.Equal(t, SignExclude, p)
	_, err = ParseSignPolicy("absolute")
	require.Error(t, err)
}
