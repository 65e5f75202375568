package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FeatureMonthly is the Issue key for the monthly series.
const FeatureMonthly = "monthly_sales"

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) MonthKey { return MonthKey{Year: t.Year(), Month: t.Month()} }

func (k MonthKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month)) }

// Before orders keys chronologically.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Next returns the following month.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// MarshalText renders "YYYY-MM".
func (k MonthKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MonthlyPoint is one bucket of the monthly series.
type MonthlyPoint struct {
	Month  MonthKey        `json:"month"`
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders"`
}

// MonthlySeries sums Total_Amount per calendar month, ascending by month
// regardless of row order. Months without transactions are omitted unless
// fillGaps is set, in which case they appear with a zero total between the
// first and last observed month.
func MonthlySeries(n *Normalized, fillGaps bool) ([]MonthlyPoint, error) {
	if err := n.require(FeatureMonthly, ColOrderDate, ColTotalAmount); err != nil {
		return nil, err
	}
	buckets := map[MonthKey]*MonthlyPoint{}
	for i := 0; i < n.Len(); i++ {
		k := MonthOf(n.date(i))
		p, ok := buckets[k]
		if !ok {
			p = &MonthlyPoint{Month: k, Total: decimal.Zero}
			buckets[k] = p
		}
		p.Total = p.Total.Add(n.amount(i))
		p.Orders++
	}

	out := make([]MonthlyPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })

	if fillGaps && len(out) > 1 {
		filled := make([]MonthlyPoint, 0, len(out))
		for i, p := range out {
			if i > 0 {
				for k := out[i-1].Month.Next(); k.Before(p.Month); k = k.Next() {
					filled = append(filled, MonthlyPoint{Month: k, Total: decimal.Zero})
				}
			}
			filled = append(filled, p)
		}
		out = filled
	}
	return out, nil
}
