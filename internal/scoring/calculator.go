package scoring

import (
	"github.com/mholloway/cricket-fantasy/internal/scorecard"
)

// Breakdown itemizes how a performance's base points were earned. It is
// persisted alongside the record so a score can always be explained later.
type Breakdown struct {
	Batting  float64 `json:"batting"`
	Bowling  float64 `json:"bowling"`
	Fielding float64 `json:"fielding"`
	Bonus    float64 `json:"bonus"`
	Penalty  float64 `json:"penalty"`
	Total    float64 `json:"total"`
}

// Score computes the base fantasy points of a single performance under the
// given rule set. It is pure: no state, no I/O, same output for same input.
// Multipliers (handicaps) are applied by the aggregator, not here.
func Score(p scorecard.RawPerformance, rules RuleSet) (float64, Breakdown) {
	var bd Breakdown

	bd.Batting = battingPoints(p.Batting, rules)
	bd.Bowling = bowlingPoints(p.Bowling, rules)
	bd.Fielding = fieldingPoints(p.Fielding, p.Keeper, rules)
	bd.Bonus = bonusPoints(p.Batting, rules)
	bd.Penalty = duckPenalty(p.Batting, rules)

	total := bd.Batting + bd.Bowling + bd.Fielding + bd.Bonus - bd.Penalty
	if !rules.AllowNegativeTotal && total < rules.FloorPoints {
		total = rules.FloorPoints
	}
	bd.Total = total
	return total, bd
}

// battingPoints prices the runs through the tiered bands, then scales the
// tiered base by the strike-rate factor (1.0 at the reference strike rate).
// A player who faced no recorded balls gets no scaling.
func battingPoints(b scorecard.BattingFigures, rules RuleSet) float64 {
	base := tieredPoints(b.Runs, rules.RunBands)
	if b.BallsFaced <= 0 {
		return base
	}
	strikeRate := float64(b.Runs) * 100 / float64(b.BallsFaced)
	return base * (strikeRate / rules.ReferenceStrikeRate)
}

// bowlingPoints prices the wickets through the tiered bands, then scales the
// tiered base by the economy factor: reference economy divided by actual
// economy, so tighter bowling is worth more. The factor is capped to keep a
// near-zero economy from exploding the score, and maidens earn a flat rate
// outside the scaled base.
func bowlingPoints(b scorecard.BowlingFigures, rules RuleSet) float64 {
	base := tieredPoints(b.Wickets, rules.WicketBands)
	balls := scorecard.BallsFromOvers(b.Overs)

	factor := 1.0
	if balls > 0 {
		economy := float64(b.RunsConceded) * 6 / float64(balls)
		if economy <= 0 {
			factor = rules.MaxEconomyFactor
		} else {
			factor = rules.ReferenceEconomy / economy
			if factor > rules.MaxEconomyFactor {
				factor = rules.MaxEconomyFactor
			}
		}
	}

	return base*factor + float64(b.Maidens)*rules.MaidenPoints
}

func fieldingPoints(f scorecard.FieldingFigures, keeper bool, rules RuleSet) float64 {
	catchRate := rules.CatchPoints
	stumpingRate := rules.StumpingPoints
	if keeper && rules.KeeperDoubleRate {
		catchRate *= 2
		stumpingRate *= 2
	}
	return float64(f.Catches)*catchRate +
		float64(f.RunOuts)*rules.RunOutPoints +
		float64(f.Stumpings)*stumpingRate
}

func bonusPoints(b scorecard.BattingFigures, rules RuleSet) float64 {
	switch {
	case b.Runs >= 100:
		return rules.CenturyBonus
	case b.Runs >= 50:
		return rules.HalfCenturyBonus
	default:
		return 0
	}
}

// duckPenalty applies on a dismissal for zero runs. Whether it can drag the
// grand total negative is the rule set's call (AllowNegativeTotal).
func duckPenalty(b scorecard.BattingFigures, rules RuleSet) float64 {
	if b.Dismissed && b.Runs == 0 {
		return rules.DuckPenalty
	}
	return 0
}

// tieredPoints walks the ascending bands, pricing each slice of the count at
// its band rate. Counts beyond the last bounded band are priced at the final
// band's rate.
func tieredPoints(count int, bands []Band) float64 {
	if count <= 0 || len(bands) == 0 {
		return 0
	}

	total := 0.0
	remaining := count
	prev := 0
	for _, band := range bands {
		if remaining <= 0 {
			break
		}
		width := remaining
		if band.UpTo > 0 {
			if band.UpTo-prev < width {
				width = band.UpTo - prev
			}
			prev = band.UpTo
		}
		if width <= 0 {
			continue
		}
		total += float64(width) * band.Rate
		remaining -= width
	}
	if remaining > 0 {
		total += float64(remaining) * bands[len(bands)-1].Rate
	}
	return total
}
