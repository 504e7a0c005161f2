// Package handicap recomputes per-player point multipliers from a cohort's
// season scores so that weaker players earn proportionally more fantasy
// points than stronger ones.
package handicap

import (
	"sort"
)

const (
	// LowBound is the multiplier assigned to the cohort's top scorer.
	LowBound = 0.69
	// HighBound is the multiplier assigned to the cohort's bottom scorer.
	HighBound = 5.0
	// Neutral is the multiplier for players without a meaningful sample.
	Neutral = 1.0
	// DefaultDriftRate is how far a drift pass moves a multiplier toward
	// its target each run.
	DefaultDriftRate = 0.15
)

// Mode selects how targets are applied to existing multipliers.
type Mode string

const (
	// ModeInitial snaps multipliers straight to their targets.
	ModeInitial Mode = "initial"
	// ModeDrift blends current multipliers toward targets by the drift rate.
	ModeDrift Mode = "drift"
)

// Change records one player's multiplier update.
type Change struct {
	PlayerID string
	Old      float64
	New      float64
	Target   float64
}

// Adjust computes a target multiplier for every player in scores and returns
// the resulting changes. Players with a zero season score are held at Neutral
// and excluded from the distribution that positions everyone else; a replayed
// pass over unchanged scores converges on the same targets.
func Adjust(scores map[string]float64, current map[string]float64, mode Mode, rate float64) []Change {
	if rate <= 0 || rate > 1 {
		rate = DefaultDriftRate
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	active := make([]float64, 0, len(ids))
	for _, id := range ids {
		if scores[id] != 0 {
			active = append(active, scores[id])
		}
	}

	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		old := current[id]
		if old == 0 {
			old = Neutral
		}

		target := Neutral
		if scores[id] != 0 {
			target = targetFor(scores[id], active)
		}

		updated := target
		if mode == ModeDrift {
			updated = old*(1-rate) + target*rate
		}
		updated = clampBounds(updated)

		changes = append(changes, Change{PlayerID: id, Old: old, New: updated, Target: target})
	}
	return changes
}

// targetFor interpolates a score's position within the cohort distribution:
// the minimum scorer lands on HighBound, the median on Neutral and the
// maximum on LowBound.
func targetFor(score float64, cohort []float64) float64 {
	min, med, max := distribution(cohort)

	switch {
	case score <= med:
		if med == min {
			return Neutral
		}
		frac := (score - min) / (med - min)
		return HighBound + frac*(Neutral-HighBound)
	default:
		if max == med {
			return Neutral
		}
		frac := (score - med) / (max - med)
		return Neutral + frac*(LowBound-Neutral)
	}
}

func distribution(cohort []float64) (min, med, max float64) {
	sorted := make([]float64, len(cohort))
	copy(sorted, cohort)
	sort.Float64s(sorted)

	min = sorted[0]
	max = sorted[len(sorted)-1]
	if n := len(sorted); n%2 == 1 {
		med = sorted[n/2]
	} else {
		med = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return min, med, max
}

func clampBounds(m float64) float64 {
	if m < LowBound {
		return LowBound
	}
	if m > HighBound {
		return HighBound
	}
	return m
}
