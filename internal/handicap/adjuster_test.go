package handicap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func changesByID(changes []Change) map[string]Change {
	out := make(map[string]Change, len(changes))
	for _, ch := range changes {
		out[ch.PlayerID] = ch
	}
	return out
}

func TestAdjustInitialDistribution(t *testing.T) {
	scores := map[string]float64{
		"a": 0,
		"b": 0,
		"c": 10,
		"d": 20,
		"e": 30,
	}
	current := map[string]float64{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1}

	changes := Adjust(scores, current, ModeInitial, DefaultDriftRate)
	require.Len(t, changes, 5)
	byID := changesByID(changes)

	// zero scorers sit out the distribution and stay neutral
	assert.Equal(t, Neutral, byID["a"].New)
	assert.Equal(t, Neutral, byID["b"].New)

	// bottom, median and top of the active cohort
	assert.InDelta(t, HighBound, byID["c"].New, 1e-9)
	assert.InDelta(t, Neutral, byID["d"].New, 1e-9)
	assert.InDelta(t, LowBound, byID["e"].New, 1e-9)
}

func TestAdjustInterpolatesBetweenAnchors(t *testing.T) {
	scores := map[string]float64{
		"low":  10,
		"mid1": 15,
		"med":  20,
		"mid2": 25,
		"high": 30,
	}
	current := map[string]float64{}

	byID := changesByID(Adjust(scores, current, ModeInitial, DefaultDriftRate))

	// halfway between min and median
	assert.InDelta(t, (HighBound+Neutral)/2, byID["mid1"].New, 1e-9)
	// halfway between median and max
	assert.InDelta(t, (Neutral+LowBound)/2, byID["mid2"].New, 1e-9)

	// monotone: better score never yields a larger multiplier
	assert.GreaterOrEqual(t, byID["low"].New, byID["mid1"].New)
	assert.GreaterOrEqual(t, byID["mid1"].New, byID["med"].New)
	assert.GreaterOrEqual(t, byID["med"].New, byID["mid2"].New)
	assert.GreaterOrEqual(t, byID["mid2"].New, byID["high"].New)
}

func TestAdjustDegenerateCohorts(t *testing.T) {
	t.Run("single active player", func(t *testing.T) {
		scores := map[string]float64{"solo": 42, "bench": 0}
		byID := changesByID(Adjust(scores, nil, ModeInitial, DefaultDriftRate))
		assert.Equal(t, Neutral, byID["solo"].New)
		assert.Equal(t, Neutral, byID["bench"].New)
	})

	t.Run("identical scores", func(t *testing.T) {
		scores := map[string]float64{"a": 25, "b": 25, "c": 25}
		for _, ch := range Adjust(scores, nil, ModeInitial, DefaultDriftRate) {
			assert.Equal(t, Neutral, ch.New)
		}
	})

	t.Run("empty cohort", func(t *testing.T) {
		assert.Empty(t, Adjust(map[string]float64{}, nil, ModeInitial, DefaultDriftRate))
	})
}

func TestAdjustDriftBlendsTowardTarget(t *testing.T) {
	scores := map[string]float64{"a": 10, "b": 20, "c": 30}
	current := map[string]float64{"a": 1.0, "b": 1.0, "c": 1.0}

	byID := changesByID(Adjust(scores, current, ModeDrift, 0.15))

	// a's target is HighBound, so one drift step moves 15% of the way there
	assert.InDelta(t, 1.0*0.85+HighBound*0.15, byID["a"].New, 1e-9)
	assert.InDelta(t, Neutral, byID["b"].New, 1e-9)
	assert.InDelta(t, 1.0*0.85+LowBound*0.15, byID["c"].New, 1e-9)

	assert.InDelta(t, HighBound, byID["a"].Target, 1e-9)
	assert.InDelta(t, LowBound, byID["c"].Target, 1e-9)
}

func TestAdjustDriftConvergesWithinBounds(t *testing.T) {
	scores := map[string]float64{"worst": 1, "med": 50, "best": 100}
	current := map[string]float64{"worst": 1.0, "med": 1.0, "best": 1.0}

	for i := 0; i < 100; i++ {
		for _, ch := range Adjust(scores, current, ModeDrift, DefaultDriftRate) {
			assert.GreaterOrEqual(t, ch.New, LowBound)
			assert.LessOrEqual(t, ch.New, HighBound)
			current[ch.PlayerID] = ch.New
		}
	}

	assert.InDelta(t, HighBound, current["worst"], 1e-3)
	assert.InDelta(t, LowBound, current["best"], 1e-3)
}

func TestAdjustMissingCurrentDefaultsToNeutral(t *testing.T) {
	scores := map[string]float64{"a": 10, "b": 20, "c": 30}

	byID := changesByID(Adjust(scores, nil, ModeDrift, 0.5))
	assert.Equal(t, Neutral, byID["b"].Old)
	assert.InDelta(t, Neutral*0.5+HighBound*0.5, byID["a"].New, 1e-9)
}

func TestAdjustInvalidRateFallsBack(t *testing.T) {
	scores := map[string]float64{"a": 10, "b": 20, "c": 30}
	current := map[string]float64{"a": 1.0}

	byID := changesByID(Adjust(scores, current, ModeDrift, -1))
	assert.InDelta(t, 1.0*(1-DefaultDriftRate)+HighBound*DefaultDriftRate, byID["a"].New, 1e-9)
}
