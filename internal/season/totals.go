package season

import (
	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/internal/scorecard"
)

// SeasonTotals accumulates one player's figures across the season. The rate
// statistics are always recomputed from the raw sums, never stored on their
// own, so they cannot drift from their components.
type SeasonTotals struct {
	PlayerID string `json:"player_id"`
	Matches  int    `json:"matches"`

	Runs       int `json:"runs"`
	BallsFaced int `json:"balls_faced"`
	Fours      int `json:"fours"`
	Sixes      int `json:"sixes"`
	Dismissals int `json:"dismissals"`

	BallsBowled  int `json:"balls_bowled"`
	RunsConceded int `json:"runs_conceded"`
	Wickets      int `json:"wickets"`
	Maidens      int `json:"maidens"`

	Catches   int `json:"catches"`
	RunOuts   int `json:"run_outs"`
	Stumpings int `json:"stumpings"`

	Points float64 `json:"points"`

	// derived, recomputed from the sums above
	BattingAverage float64 `json:"batting_average"`
	StrikeRate     float64 `json:"strike_rate"`
	Economy        float64 `json:"economy"`
}

// totalsFromRecords re-derives a player's season totals from scratch. The
// aggregator always rebuilds rather than incrementing, so a replayed record
// can never double-count.
func totalsFromRecords(playerID string, records []models.PerformanceRecord) *SeasonTotals {
	t := &SeasonTotals{PlayerID: playerID}
	for _, rec := range records {
		t.Matches++
		t.Runs += rec.Runs
		t.BallsFaced += rec.BallsFaced
		t.Fours += rec.Fours
		t.Sixes += rec.Sixes
		if rec.Dismissed {
			t.Dismissals++
		}
		t.BallsBowled += scorecard.BallsFromOvers(rec.Overs)
		t.RunsConceded += rec.RunsConceded
		t.Wickets += rec.Wickets
		t.Maidens += rec.Maidens
		t.Catches += rec.Catches
		t.RunOuts += rec.RunOuts
		t.Stumpings += rec.Stumpings
		t.Points += rec.FinalPoints
	}
	t.recomputeRates()
	return t
}

func (t *SeasonTotals) recomputeRates() {
	t.BattingAverage = 0
	t.StrikeRate = 0
	t.Economy = 0
	if t.Dismissals > 0 {
		t.BattingAverage = float64(t.Runs) / float64(t.Dismissals)
	}
	if t.BallsFaced > 0 {
		t.StrikeRate = float64(t.Runs) * 100 / float64(t.BallsFaced)
	}
	if t.BallsBowled > 0 {
		t.Economy = float64(t.RunsConceded) * 6 / float64(t.BallsBowled)
	}
}
