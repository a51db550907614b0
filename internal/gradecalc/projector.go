package gradecalc

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned for a non-positive next weight.
var ErrInvalidArgument = errors.New("gradecalc: invalid argument")

// Projection is the grade needed on the next assessment.
// NoData is set when no weighted grade exists yet; Required is then absent.
type Projection struct {
	Required      Score   `json:"required_grade"`
	CurrentWeight float64 `json:"current_weight"`
	NextWeight    float64 `json:"next_weight"`
	NoData        bool    `json:"-"`
}

// WeightedTotals sums value*weight and weight over all records whose subject
// has a configured weight. Each record adds its subject's weight once.
func WeightedTotals(records []Record, weights map[string]float64) (score, weight float64) {
	for _, r := range records {
		w, ok := weights[r.Subject]
		if !ok {
			continue
		}
		score += r.Value * w
		weight += w
	}
	return score, weight
}

// RequiredGrade solves (score + x*next) / (weight + next) = target for x.
// The result is rounded but not clamped to the grade scale; values above 6
// or below 1 are returned as they are.
func (e *Engine) RequiredGrade(totalScore, totalWeight, target, nextWeight float64) (Projection, error) {
	if math.IsNaN(nextWeight) || math.IsInf(nextWeight, 0) || nextWeight <= 0 {
		return Projection{}, fmt.Errorf("%w: next weight must be positive, got %v", ErrInvalidArgument, nextWeight)
	}
	p := Projection{CurrentWeight: totalWeight, NextWeight: nextWeight}
	if totalWeight == 0 {
		p.NoData = true
		return p, nil
	}
	required := (target*(totalWeight+nextWeight) - totalScore) / nextWeight
	p.Required = Some(e.Round(required))
	return p, nil
}

// Project is RequiredGrade over raw records and subject weights.
func (e *Engine) Project(records []Record, weights map[string]float64, target, nextWeight float64) (Projection, error) {
	score, weight := WeightedTotals(records, weights)
	return e.RequiredGrade(score, weight, target, nextWeight)
}
