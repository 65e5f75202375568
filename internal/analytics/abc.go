package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ABC feature names.
const (
	FeatureABCProduct = "abc.product"
	FeatureABCRegion  = "abc.region"
)

// ABCFeature returns the Issue key for classifying dimension.
func ABCFeature(dimension string) string {
	switch dimension {
	case ColProductName:
		return FeatureABCProduct
	case ColRegion:
		return FeatureABCRegion
	}
	return "abc." + strings.ToLower(dimension)
}

// Tier is an ABC class.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	// TierNone marks a cumulative share outside (0, 100], which only
	// happens when negative amounts are kept.
	TierNone Tier = "-"
)

var hundred = decimal.NewFromInt(100)

// ABCEntry is a ranked entity with its cumulative share and tier.
type ABCEntry struct {
	Key           string          `json:"key"`
	Total         decimal.Decimal `json:"total"`
	Cumulative    decimal.Decimal `json:"cumulative"`
	CumulativePct float64         `json:"cumulative_pct"`
	Tier          Tier            `json:"tier"`
}

// ClassifyABC accumulates a full ranking in order and assigns tiers on the
// cumulative percentage: A for (0, t.A], B for (t.A, t.B], C for (t.B, 100].
// Percentages are computed in decimal so that boundary values are exact.
// An empty ranking yields an empty result; a zero total is a DivisionError.
func ClassifyABC(ranking []RankedEntry, t Thresholds) ([]ABCEntry, error) {
	if len(ranking) == 0 {
		return []ABCEntry{}, nil
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, r := range ranking {
		total = total.Add(r.Total)
	}
	if total.IsZero() {
		return nil, &DivisionError{Feature: "abc"}
	}

	a := decimal.NewFromFloat(t.A)
	b := decimal.NewFromFloat(t.B)
	out := make([]ABCEntry, len(ranking))
	cum := decimal.Zero
	for i, r := range ranking {
		cum = cum.Add(r.Total)
		pct := hundred
		if !cum.Equal(total) {
			pct = cum.Mul(hundred).Div(total)
		}
		out[i] = ABCEntry{
			Key:           r.Key,
			Total:         r.Total,
			Cumulative:    cum,
			CumulativePct: pct.InexactFloat64(),
			Tier:          tierFor(pct, a, b),
		}
	}
	return out, nil
}

func tierFor(pct, a, b decimal.Decimal) Tier {
	switch {
	case !pct.IsPositive() || pct.GreaterThan(hundred):
		return TierNone
	case pct.LessThanOrEqual(a):
		return TierA
	case pct.LessThanOrEqual(b):
		return TierB
	default:
		return TierC
	}
}

// TierCounts tallies entries per tier.
func TierCounts(entries []ABCEntry) map[Tier]int {
	out := map[Tier]int{}
	for _, e := range entries {
		out[e.Tier]++
	}
	return out
}
