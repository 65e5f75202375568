package analytics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names the pipeline reads.
const (
	ColOrderID     = "Order_ID"
	ColCustomerID  = "Customer_ID"
	ColProductName = "Product_Name"
	ColRegion      = "Region"
	ColOrderDate   = "Order_Date"
	ColTotalAmount = "Total_Amount"
)

// ExpectedColumns lists the columns at least one feature depends on.
var ExpectedColumns = []string{ColTotalAmount, ColCustomerID, ColOrderDate, ColProductName, ColRegion}

// Table is a raw rectangular dataset as fetched from a file or database.
// A nil cell is null. Tables handed to the pipeline are treated as read-only.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Clone returns a deep copy of the row and header slices.
func (t Table) Clone() Table {
	out := Table{Columns: append([]string(nil), t.Columns...), Rows: make([][]any, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// cell returns row[i] or nil when the row is ragged.
func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// isNull reports whether a raw cell holds no usable value. Text literals
// such as "NA" are values here; file loaders map them to nil beforehand.
func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return isNullString(x)
	case []byte:
		return isNullString(string(x))
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case time.Time:
		return x.IsZero()
	}
	return false
}

func isNullString(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Text renders a cell as a grouping key.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateOnly)
	case decimal.Decimal:
		return x.String()
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return decimal.NewFromFloat(x).String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
