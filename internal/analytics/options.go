package analytics

import (
	"fmt"
	"os"
	"strings"

	"github.com/vinodismyname/salespulse/config"
)

// SignPolicy controls how negative Total_Amount values (returns, refunds) are treated.
type SignPolicy string

const (
	// SignKeep sums negative amounts together with sales.
	SignKeep SignPolicy = "keep"
	// SignExclude drops rows with a negative amount during normalization.
	SignExclude SignPolicy = "exclude"
)

// ParseSignPolicy accepts "keep", "exclude" or empty (keep).
func ParseSignPolicy(s string) (SignPolicy, error) {
	switch SignPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SignKeep:
		return SignKeep, nil
	case SignExclude:
		return SignExclude, nil
	}
	return "", fmt.Errorf("analytics: unknown sign policy %q (want keep or exclude)", s)
}

// Thresholds are the inclusive upper bounds, in percent, of tiers A and B.
// Tier C runs from B to 100.
type Thresholds struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// DefaultThresholds returns the 80/95 split.
func DefaultThresholds() Thresholds {
	return Thresholds{A: config.DefaultABCThresholdA, B: config.DefaultABCThresholdB}
}

// Validate requires 0 < A < B < 100.
func (t Thresholds) Validate() error {
	if !(t.A > 0 && t.A < t.B && t.B < 100) {
		return fmt.Errorf("analytics: invalid ABC thresholds a=%v b=%v; need 0 < a < b < 100", t.A, t.B)
	}
	return nil
}

// Options tune a pipeline run.
type Options struct {
	Sign       SignPolicy
	FillGaps   bool
	Thresholds Thresholds
	// TopN bounds the concentration breakdown; rankings are always complete.
	TopN int
}

// DefaultOptions keeps negative amounts, leaves month gaps unfilled and uses 80/95 tiers.
func DefaultOptions() Options {
	return Options{Sign: SignKeep, Thresholds: DefaultThresholds(), TopN: config.DefaultTopN}
}

// OptionsFromEnv starts from DefaultOptions and applies SALESPULSE_SIGN_POLICY
// and SALESPULSE_FILL_MONTHS.
func OptionsFromEnv() (Options, error) {
	opts := DefaultOptions()
	sign, err := ParseSignPolicy(os.Getenv(config.EnvSignPolicy))
	if err != nil {
		return opts, err
	}
	opts.Sign = sign
	v := strings.ToLower(strings.TrimSpace(os.Getenv(config.EnvFillMonths)))
	opts.FillGaps = v == "1" || v == "true" || v == "yes"
	return opts, nil
}

func (o Options) withDefaults() Options {
	if o.Sign == "" {
		o.Sign = SignKeep
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds()
	}
	if o.TopN <= 0 {
		o.TopN = config.DefaultTopN
	}
	return o
}
