package scorecard

import "fmt"

// BattingFigures holds one player's batting contribution in a match.
type BattingFigures struct {
	Runs       int  `json:"runs"`
	BallsFaced int  `json:"balls_faced"`
	Fours      int  `json:"fours"`
	Sixes      int  `json:"sixes"`
	Dismissed  bool `json:"dismissed"`
}

// BowlingFigures holds one player's bowling contribution in a match.
// Overs uses cricket notation: 7.3 means 7 overs and 3 balls.
type BowlingFigures struct {
	Overs        float64 `json:"overs"`
	RunsConceded int     `json:"runs_conceded"`
	Wickets      int     `json:"wickets"`
	Maidens      int     `json:"maidens"`
}

// FieldingFigures holds one player's fielding contribution in a match.
type FieldingFigures struct {
	Catches   int `json:"catches"`
	RunOuts   int `json:"run_outs"`
	Stumpings int `json:"stumpings"`
}

// RawPerformance is a single player's full contribution to one match, exactly
// as it appears in the source document. The name carries whatever spelling the
// match centre used; identity resolution happens downstream.
type RawPerformance struct {
	Name       string          `json:"name"`
	ExternalID string          `json:"external_id,omitempty"`
	Keeper     bool            `json:"keeper"`
	Batting    BattingFigures  `json:"batting"`
	Bowling    BowlingFigures  `json:"bowling"`
	Fielding   FieldingFigures `json:"fielding"`
}

// Context carries the match metadata an extraction runs under.
type Context struct {
	MatchRef    string
	Club        string
	Competition string
}

// Diagnostics reports what went wrong (or partially wrong) during an
// extraction. An unparsable document sets Reason and yields zero
// performances; section-level problems accumulate as warnings.
type Diagnostics struct {
	Reason   string
	Warnings []string
}

// Failed reports whether the extraction produced nothing usable.
func (d *Diagnostics) Failed() bool {
	return d.Reason != ""
}

func (d *Diagnostics) warnf(format string, args ...interface{}) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// BallsFromOvers converts cricket overs notation to a ball count.
// 7.3 -> 45 balls. The fractional digit is a ball count, never >= 6.
func BallsFromOvers(overs float64) int {
	whole := int(overs)
	balls := int((overs-float64(whole))*10 + 0.5)
	if balls > 5 {
		balls = 5
	}
	return whole*6 + balls
}
