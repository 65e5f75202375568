package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Ranking feature names.
const (
	FeatureRankProduct = "rank.product"
	FeatureRankRegion  = "rank.region"
)

// RankedEntry is one dimension value with its summed amount.
type RankedEntry struct {
	Key    string          `json:"key"`
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders"`
}

// Rank groups rows by dimension, sums Total_Amount and sorts by total
// descending. Equal totals are ordered by key ascending.
func Rank(n *Normalized, dimension string) ([]RankedEntry, error) {
	if err := n.require(RankFeature(dimension), dimension, ColTotalAmount); err != nil {
		return nil, err
	}
	acc := map[string]*RankedEntry{}
	for i := 0; i < n.Len(); i++ {
		key := n.text(dimension, i)
		e, ok := acc[key]
		if !ok {
			e = &RankedEntry{Key: key, Total: decimal.Zero}
			acc[key] = e
		}
		e.Total = e.Total.Add(n.amount(i))
		e.Orders++
	}
	out := make([]RankedEntry, 0, len(acc))
	for _, e := range acc {
		out = append(out, *e)
	}
	SortRanking(out)
	return out, nil
}

// SortRanking orders entries by total descending, then key ascending.
func SortRanking(entries []RankedEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Total.Cmp(entries[j].Total); c != 0 {
			return c > 0
		}
		return entries[i].Key < entries[j].Key
	})
}

// Top returns at most n leading entries; n <= 0 returns all.
func Top(entries []RankedEntry, n int) []RankedEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// ResolveDimension maps the aliases "product" and "region" to their
// canonical columns; any other name is canonicalized as a header.
func ResolveDimension(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "product", "products", "product_name":
		return ColProductName
	case "region", "regions":
		return ColRegion
	}
	return CanonicalName(name)
}

// RankFeature returns the Issue key for ranking by dimension.
func RankFeature(dimension string) string {
	switch dimension {
	case ColProductName:
		return FeatureRankProduct
	case ColRegion:
		return FeatureRankRegion
	}
	return "rank." + strings.ToLower(dimension)
}
