package analytics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData marks a result that is undefined because there was nothing to aggregate.
	ErrNoData = errors.New("analytics: no data")
	// ErrMissingColumn is matched by every SchemaError.
	ErrMissingColumn = errors.New("analytics: required column unavailable")
	// ErrUndefinedShare is matched by every DivisionError.
	ErrUndefinedShare = errors.New("analytics: undefined (division by zero total)")
)

// SchemaErrorKind distinguishes an absent column from a name collision.
type SchemaErrorKind string

const (
	SchemaMissing   SchemaErrorKind = "missing"
	SchemaCollision SchemaErrorKind = "collision"
)

// SchemaError reports that a feature cannot run because a column it
// depends on is absent or ambiguous after header normalization.
type SchemaError struct {
	Feature string
	Column  string
	Kind    SchemaErrorKind
	Sources []string // original headers involved in a collision
}

func (e *SchemaError) Error() string {
	if e.Kind == SchemaCollision {
		return fmt.Sprintf("schema: column %q is ambiguous (%q collide) for %s", e.Column, e.Sources, e.Feature)
	}
	return fmt.Sprintf("schema: column %q missing for %s", e.Column, e.Feature)
}

func (e *SchemaError) Is(target error) bool { return target == ErrMissingColumn }

// DivisionError reports a mean or share over an empty or zero-sum input.
type DivisionError struct {
	Feature string
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("%s: undefined, no data to divide", e.Feature)
}

func (e *DivisionError) Is(target error) bool {
	return target == ErrUndefinedShare || target == ErrNoData
}

// ParseError counts cells that could not be parsed and were nulled.
type ParseError struct {
	Column string
	Count  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %d value(s) in %q could not be parsed; rows dropped", e.Count, e.Column)
}

// Issue records a feature that was skipped or degraded.
type Issue struct {
	Feature string `json:"feature"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func newIssue(feature string, err error) Issue {
	err = WithFeature(err, feature)
	return Issue{Feature: feature, Message: err.Error(), Err: err}
}

// WithFeature returns a DivisionError renamed to feature, so that a share
// computed for one dimension says which one. Other errors pass through.
func WithFeature(err error, feature string) error {
	var de *DivisionError
	if errors.As(err, &de) && de.Feature != feature {
		return &DivisionError{Feature: feature}
	}
	return err
}

// noData reports that feature had no rows to aggregate.
func noData(feature string) error {
	return fmt.Errorf("%s: %w", feature, ErrNoData)
}

// Issues is a list of per-feature problems reported alongside results.
type Issues []Issue

// Has reports whether any issue was recorded for feature.
func (is Issues) Has(feature string) bool {
	for _, i := range is {
		if i.Feature == feature {
			return true
		}
	}
	return false
}

// For returns the issues whose feature equals one of features or starts
// with it followed by a dot, so "kpi" selects "kpi.total_sales".
func (is Issues) For(features ...string) Issues {
	var out Issues
	for _, i := range is {
		for _, f := range features {
			if i.Feature == f || strings.HasPrefix(i.Feature, f+".") {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
