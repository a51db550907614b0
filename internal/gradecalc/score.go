package gradecalc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Score is an optional grade value. The zero Score is absent, which is not
// the same thing as a present 0.0.
type Score struct {
	Value   float64
	Present bool
}

// Some returns a present Score.
func Some(v float64) Score { return Score{Value: v, Present: true} }

// None is the absent Score.
var None = Score{}

// Or returns the value, or def when absent.
func (s Score) Or(def float64) float64 {
	if !s.Present {
		return def
	}
	return s.Value
}

// MarshalJSON encodes absent scores as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Present {
		return []byte("null"), nil
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, s.Value, 'f', -1, 64), nil
}

func (s *Score) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = None
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Some(v)
	return nil
}

// roundTo rounds the exact binary value to places decimals, ties to even.
// 2.675 is stored as 2.67499... and becomes 2.67; 4.625 is exact and
// becomes 4.62.
func roundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func roundScore(s Score, places int) Score {
	if !s.Present {
		return s
	}
	return Some(roundTo(s.Value, places))
}
