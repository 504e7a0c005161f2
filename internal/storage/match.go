package storage

import (
	"fmt"
	"time"

	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/pkg/database"
)

// MatchRepository tracks fixture processing state.
type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Upsert records a fixture if it is new; a known ref keeps its status.
func (r *MatchRepository) Upsert(m *models.Match) error {
	var existing models.Match
	err := r.db.DB.Where("ref = ?", m.Ref).First(&existing).Error
	if err == nil {
		return nil
	}
	if err := r.db.DB.Create(m).Error; err != nil {
		return fmt.Errorf("failed to record match %s: %w", m.Ref, err)
	}
	return nil
}

// ListPending returns a club's unprocessed fixtures in stable order: match
// date first, ref as tiebreak.
func (r *MatchRepository) ListPending(club string) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.DB.
		Where("club = ? AND status IN ?", club, []string{models.MatchPending, models.MatchSkipped}).
		Order("date, ref").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending matches for %s: %w", club, err)
	}
	return matches, nil
}

func (r *MatchRepository) MarkProcessed(ref string) error {
	return r.setStatus(ref, models.MatchProcessed, "")
}

func (r *MatchRepository) MarkSkipped(ref, reason string) error {
	return r.setStatus(ref, models.MatchSkipped, reason)
}

func (r *MatchRepository) setStatus(ref, status, lastError string) error {
	err := r.db.DB.Model(&models.Match{}).Where("ref = ?", ref).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark match %s %s: %w", ref, status, err)
	}
	return nil
}
