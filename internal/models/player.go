package models

import (
	"time"

	"github.com/google/uuid"
)

// NeutralMultiplier is the handicap assigned to players with no scoring
// history. The adjuster owns all other multiplier values.
const NeutralMultiplier = 1.0

// PlayerIdentity is the stable key for one real person. Created either from a
// legacy roster import or the first time a scorecard name fails to resolve.
// Never recreated; renames and merges happen through explicit operations.
type PlayerIdentity struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string    `gorm:"not null;index:idx_players_club_name" json:"name"`
	Club       string    `gorm:"not null;index:idx_players_club_name" json:"club"`
	ExternalID string    `gorm:"index" json:"external_id"`
	IsLegacy   bool      `gorm:"default:false" json:"is_legacy"`
	Multiplier float64   `gorm:"default:1.0" json:"multiplier"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlayerIdentity) TableName() string {
	return "players"
}

// NewPlayerIdentity creates a fresh identity for a name seen for the first
// time this season.
func NewPlayerIdentity(name, club, externalID string) *PlayerIdentity {
	return &PlayerIdentity{
		ID:         uuid.NewString(),
		Name:       name,
		Club:       club,
		ExternalID: externalID,
		Multiplier: NeutralMultiplier,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewLegacyPlayerIdentity seeds an identity from a prior season's roster.
// The legacy flag clears permanently on the player's first recorded
// performance.
func NewLegacyPlayerIdentity(name, club, externalID string) *PlayerIdentity {
	p := NewPlayerIdentity(name, club, externalID)
	p.IsLegacy = true
	return p
}
