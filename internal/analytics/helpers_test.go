package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var salesHeader = []string{"Order_ID", "Customer_ID", "Product_Name", "Region", "Order_Date", "Total_Amount"}

// scenarioTable is the three-order example used across the package tests.
func scenarioTable() Table {
	return Table{
		Columns: salesHeader,
		Rows: [][]any{
			{"O1", "C1", "Widget", "East", "2024-01-05", "100"},
			{"O2", "C1", "Widget", "East", "2024-02-10", "50"},
			{"O3", "C2", "Gadget", "West", "2024-01-20", "300"},
		},
	}
}

func normalized(t *testing.T, raw Table) *Normalized {
	t.Helper()
	n, _ := Normalize(raw, SignKeep)
	return n
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func ranking(pairs ...any) []RankedEntry {
	out := make([]RankedEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, RankedEntry{Key: pairs[i].(string), Total: decimal.NewFromInt(int64(pairs[i+1].(int)))})
	}
	return out
}
