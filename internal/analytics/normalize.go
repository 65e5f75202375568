package analytics

import (
	"maps"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when parsing Order_Date text.
var dateLayouts = []string{
	time.RFC3339,
	time.DateOnly,
	time.DateTime,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"02-Jan-2006",
	"2006-01-02T15:04:05",
}

// NormalizeReport describes what normalization changed or dropped.
type NormalizeReport struct {
	InputRows       int                 `json:"input_rows"`
	OutputRows      int                 `json:"output_rows"`
	DroppedRows     int                 `json:"dropped_rows"`
	UnparsedDates   int                 `json:"unparsed_dates"`
	UnparsedAmounts int                 `json:"unparsed_amounts"`
	ExcludedReturns int                 `json:"excluded_returns"`
	Renamed         map[string]string   `json:"renamed,omitempty"`
	MissingColumns  []string            `json:"missing_columns,omitempty"`
	Collisions      map[string][]string `json:"collisions,omitempty"`
}

// ParseErrors returns the parse failures as errors, one per affected column.
func (r NormalizeReport) ParseErrors() []error {
	var out []error
	if r.UnparsedDates > 0 {
		out = append(out, &ParseError{Column: ColOrderDate, Count: r.UnparsedDates})
	}
	if r.UnparsedAmounts > 0 {
		out = append(out, &ParseError{Column: ColTotalAmount, Count: r.UnparsedAmounts})
	}
	return out
}

// Normalized is the cleaned transaction table. Every row has a parsed
// Order_Date (time.Time, UTC midnight) and Total_Amount (decimal.Decimal)
// when those columns exist, and no null cells. It is never mutated after
// construction; accessors hand out copies.
type Normalized struct {
	columns    []string
	rows       [][]any
	index      map[string]int
	collisions map[string][]string
}

// CanonicalName trims a header and replaces internal spaces with underscores.
func CanonicalName(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

// Normalize canonicalizes headers, parses dates and amounts, applies the
// sign policy and drops incomplete rows. The input table is not modified.
func Normalize(raw Table, sign SignPolicy) (*Normalized, NormalizeReport) {
	rep := NormalizeReport{InputRows: len(raw.Rows)}

	canon := make([]string, len(raw.Columns))
	sources := map[string][]string{}
	for i, c := range raw.Columns {
		canon[i] = CanonicalName(c)
		sources[canon[i]] = append(sources[canon[i]], c)
		if canon[i] != c {
			if rep.Renamed == nil {
				rep.Renamed = map[string]string{}
			}
			rep.Renamed[c] = canon[i]
		}
	}

	// Colliding names are excluded entirely.
	keep := make([]int, 0, len(canon))
	n := &Normalized{index: map[string]int{}}
	for i, name := range canon {
		if len(sources[name]) > 1 {
			if n.collisions == nil {
				n.collisions = map[string][]string{}
			}
			n.collisions[name] = sources[name]
			continue
		}
		keep = append(keep, i)
		n.index[name] = len(n.columns)
		n.columns = append(n.columns, name)
	}
	if len(n.collisions) > 0 {
		rep.Collisions = maps.Clone(n.collisions)
	}

	for _, col := range ExpectedColumns {
		if !n.Has(col) {
			rep.MissingColumns = append(rep.MissingColumns, col)
		}
	}

	dateIdx, hasDate := n.index[ColOrderDate]
	amtIdx, hasAmt := n.index[ColTotalAmount]

	for _, src := range raw.Rows {
		row := make([]any, len(keep))
		complete := true
		for j, i := range keep {
			v := cell(src, i)
			switch {
			case hasDate && j == dateIdx:
				d, ok := parseDate(v)
				if !ok {
					if !isNull(v) {
						rep.UnparsedDates++
					}
					complete = false
					continue
				}
				row[j] = d
			case hasAmt && j == amtIdx:
				a, ok := parseAmount(v)
				if !ok {
					if !isNull(v) {
						rep.UnparsedAmounts++
					}
					complete = false
					continue
				}
				row[j] = a
			default:
				if isNull(v) {
					complete = false
					continue
				}
				if b, isBytes := v.([]byte); isBytes {
					v = string(b)
				}
				row[j] = v
			}
		}
		if !complete {
			rep.DroppedRows++
			continue
		}
		if hasAmt && sign == SignExclude && row[amtIdx].(decimal.Decimal).IsNegative() {
			rep.ExcludedReturns++
			continue
		}
		n.rows = append(n.rows, row)
	}
	rep.OutputRows = len(n.rows)
	return n, rep
}

// Len returns the number of rows.
func (n *Normalized) Len() int { return len(n.rows) }

// Columns returns the canonical column names in input order.
func (n *Normalized) Columns() []string { return append([]string(nil), n.columns...) }

// Has reports whether a column is available.
func (n *Normalized) Has(col string) bool {
	_, ok := n.index[col]
	return ok
}

// Row returns a copy of row i.
func (n *Normalized) Row(i int) []any { return append([]any(nil), n.rows[i]...) }

// Table converts back to a raw Table; normalizing it again is a no-op.
func (n *Normalized) Table() Table {
	return Table{Columns: n.Columns(), Rows: lo.Map(n.rows, func(r []any, _ int) []any { return append([]any(nil), r...) })}
}

// Collisions lists canonical names excluded because several headers mapped to them.
func (n *Normalized) Collisions() []string {
	names := lo.Keys(n.collisions)
	sort.Strings(names)
	return names
}

// require returns a SchemaError for the first unavailable column.
func (n *Normalized) require(feature string, cols ...string) error {
	for _, c := range cols {
		if n.Has(c) {
			continue
		}
		if src, ok := n.collisions[c]; ok {
			return &SchemaError{Feature: feature, Column: c, Kind: SchemaCollision, Sources: src}
		}
		return &SchemaError{Feature: feature, Column: c, Kind: SchemaMissing}
	}
	return nil
}

func (n *Normalized) date(i int) time.Time {
	return n.rows[i][n.index[ColOrderDate]].(time.Time)
}

func (n *Normalized) amount(i int) decimal.Decimal {
	return n.rows[i][n.index[ColTotalAmount]].(decimal.Decimal)
}

func (n *Normalized) text(col string, i int) string {
	return Text(n.rows[i][n.index[col]])
}

func parseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return dateOf(x), true
	case []byte:
		return parseDate(string(x))
	case string:
		s := strings.TrimSpace(x)
		if isNullString(s) {
			return time.Time{}, false
		}
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return dateOf(t), true
			}
		}
	}
	return time.Time{}, false
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseAmount(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case []byte:
		return parseAmount(string(x))
	case string:
		s := strings.Map(func(r rune) rune {
			switch r {
			case ',', '$', ' ':
				return -1
			default:
				return r
			}
		}, x)
		if isNullString(s) {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}
