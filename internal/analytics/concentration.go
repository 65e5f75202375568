package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// GroupShare is a Top-N member's share of the total.
type GroupShare struct {
	Key   string          `json:"key"`
	Share float64         `json:"share"`
	Total decimal.Decimal `json:"total"`
}

// Concentration summarizes how much of the total the leading groups hold.
type Concentration struct {
	TopN       int          `json:"top_n"`
	Groups     []GroupShare `json:"groups"`
	OtherShare float64      `json:"other_share"`
	HHI        float64      `json:"hhi"`
	Band       string       `json:"band"`
}

// Concentrate computes Top-N shares and the Herfindahl-Hirschman index of a
// full ranking. A zero total is a DivisionError.
func Concentrate(ranking []RankedEntry, topN int) (Concentration, error) {
	out := Concentration{TopN: topN}
	total := decimal.Zero
	for _, r := range ranking {
		total = total.Add(r.Total)
	}
	if total.IsZero() {
		return out, &DivisionError{Feature: "concentration"}
	}
	tf := total.InexactFloat64()

	var topShare, hhi float64
	for i, r := range ranking {
		sh := r.Total.InexactFloat64() / tf
		hhi += sh * sh
		if i < topN {
			out.Groups = append(out.Groups, GroupShare{Key: r.Key, Share: round3(sh), Total: r.Total})
			topShare += sh
		}
	}
	out.OtherShare = round3(1.0 - topShare)
	out.HHI = round3(hhi)
	// Bands based on common antitrust thresholds
	switch {
	case hhi < 0.15:
		out.Band = "unconcentrated"
	case hhi < 0.25:
		out.Band = "moderately_concentrated"
	default:
		out.Band = "highly_concentrated"
	}
	return out, nil
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
