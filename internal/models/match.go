package models

import "time"

// Match processing states.
const (
	MatchPending   = "pending"
	MatchProcessed = "processed"
	MatchSkipped   = "skipped"
)

// Match is a fixture reference known to the system. The pipeline fetches the
// scorecard for each pending match of a club; a match that fails extraction
// is marked skipped with the reason and retried on the next run.
type Match struct {
	Ref         string    `gorm:"primaryKey" json:"ref"`
	Club        string    `gorm:"not null;index" json:"club"`
	Opponent    string    `json:"opponent"`
	Competition string    `json:"competition"`
	Date        time.Time `gorm:"index" json:"date"`
	Status      string    `gorm:"default:pending;index" json:"status"`
	LastError   string    `json:"last_error"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Match) TableName() string {
	return "matches"
}
