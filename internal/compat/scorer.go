// Package compat scores how well raw soil readings fit a crop's optimal
// ranges, independent of any learned model.
package compat

import (
	"math"

	"cropadvisor/domain/agronomy"
)

const (
	// NeutralScore is returned when there is nothing to compare against.
	NeutralScore = 50.0
	maxScore     = 100.0
	// penaltyPerHalfRange: the component reaches 0 at 2.5 half-ranges from the midpoint.
	penaltyPerHalfRange = 40.0
)

// Scorer computes 0-100 compatibility scores against a reference table.
type Scorer struct {
	refs *agronomy.ReferenceTable
}

func NewScorer(refs *agronomy.ReferenceTable) *Scorer {
	return &Scorer{refs: refs}
}

// Score averages the per-nutrient components over the nutrients that have
// both a reference range and a usable reading.
func (s *Scorer) Score(crop agronomy.Crop, obs agronomy.Observation) float64 {
	ref, ok := s.refs.Lookup(crop)
	if !ok {
		return NeutralScore
	}

	total, count := 0.0, 0
	for _, n := range agronomy.Nutrients {
		rng, ok := ref.Range(n)
		if !ok {
			continue
		}
		value, ok := obs.Nutrient(n)
		if !ok {
			continue
		}
		total += Component(value, rng)
		count++
	}
	if count == 0 {
		return NeutralScore
	}
	return total / float64(count)
}

// Component scores a single reading: 100 inside the closed range, otherwise
// a linear penalty on the distance from the midpoint in half-range units.
func Component(value float64, rng agronomy.Range) float64 {
	if rng.Contains(value) {
		return maxScore
	}
	half := rng.HalfWidth()
	if half <= 0 {
		return 0
	}
	distance := math.Abs(value-rng.Midpoint()) / half
	return math.Max(0, maxScore-distance*penaltyPerHalfRange)
}
