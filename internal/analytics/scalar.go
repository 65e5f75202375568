package analytics

import (
	"encoding/json"
	"fmt"
)

// NoData is how an invalid Scalar renders in text.
const NoData = "no data"

// Scalar is a KPI that may be undefined. An invalid Scalar marshals to JSON
// null and prints as "no data", never as a zero.
type Scalar[T any] struct {
	Value T
	Valid bool
}

// Some wraps a defined value.
func Some[T any](v T) Scalar[T] { return Scalar[T]{Value: v, Valid: true} }

func (s Scalar[T]) String() string {
	if !s.Valid {
		return NoData
	}
	return fmt.Sprint(s.Value)
}

func (s Scalar[T]) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Scalar[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		var zero T
		s.Value, s.Valid = zero, false
		return nil
	}
	if err := json.Unmarshal(b, &s.Value); err != nil {
		return err
	}
	s.Valid = true
	return nil
}
