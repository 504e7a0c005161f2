package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/mholloway/cricket-fantasy/internal/scorecard"
	"github.com/mholloway/cricket-fantasy/internal/scoring"
)

// PerformanceRecord is one player's contribution to one match, scored.
// Immutable once created; the unique index on (match_id, player_id) makes
// replaying a match a no-op at the persistence boundary as well.
type PerformanceRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	MatchID  string `gorm:"not null;uniqueIndex:idx_perf_match_player" json:"match_id"`
	PlayerID string `gorm:"type:uuid;not null;uniqueIndex:idx_perf_match_player" json:"player_id"`
	Club     string `gorm:"index" json:"club"`

	// SourceName keeps the spelling the scorecard used, for audit
	SourceName string `json:"source_name"`

	Runs       int  `json:"runs"`
	BallsFaced int  `json:"balls_faced"`
	Fours      int  `json:"fours"`
	Sixes      int  `json:"sixes"`
	Dismissed  bool `json:"dismissed"`

	Overs        float64 `json:"overs"`
	RunsConceded int     `json:"runs_conceded"`
	Wickets      int     `json:"wickets"`
	Maidens      int     `json:"maidens"`

	Catches   int `json:"catches"`
	RunOuts   int `json:"run_outs"`
	Stumpings int `json:"stumpings"`

	BasePoints  float64        `json:"base_points"`
	Multiplier  float64        `json:"multiplier"`
	FinalPoints float64        `json:"final_points"`
	Breakdown   datatypes.JSON `gorm:"type:jsonb" json:"breakdown"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (PerformanceRecord) TableName() string {
	return "performance_records"
}

// NewPerformanceRecord builds the immutable record for a scored performance.
func NewPerformanceRecord(matchID string, player *PlayerIdentity, raw scorecard.RawPerformance, base float64, bd scoring.Breakdown, multiplier float64) *PerformanceRecord {
	breakdown, _ := json.Marshal(bd)
	return &PerformanceRecord{
		MatchID:      matchID,
		PlayerID:     player.ID,
		Club:         player.Club,
		SourceName:   raw.Name,
		Runs:         raw.Batting.Runs,
		BallsFaced:   raw.Batting.BallsFaced,
		Fours:        raw.Batting.Fours,
		Sixes:        raw.Batting.Sixes,
		Dismissed:    raw.Batting.Dismissed,
		Overs:        raw.Bowling.Overs,
		RunsConceded: raw.Bowling.RunsConceded,
		Wickets:      raw.Bowling.Wickets,
		Maidens:      raw.Bowling.Maidens,
		Catches:      raw.Fielding.Catches,
		RunOuts:      raw.Fielding.RunOuts,
		Stumpings:    raw.Fielding.Stumpings,
		BasePoints:   base,
		Multiplier:   multiplier,
		FinalPoints:  base * multiplier,
		Breakdown:    datatypes.JSON(breakdown),
		CreatedAt:    time.Now().UTC(),
	}
}
