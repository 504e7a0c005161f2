package storage

import (
	"fmt"

	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/pkg/database"
)

// PerformanceRepository persists scored match performances. Records are
// append-only; the unique (match_id, player_id) index backs the idempotence
// guarantee even under concurrent writers.
type PerformanceRepository struct {
	db *database.DB
}

func NewPerformanceRepository(db *database.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

func (r *PerformanceRepository) HasRecord(matchID, playerID string) (bool, error) {
	var count int64
	err := r.db.DB.Model(&models.PerformanceRecord{}).
		Where("match_id = ? AND player_id = ?", matchID, playerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check performance record: %w", err)
	}
	return count > 0, nil
}

func (r *PerformanceRepository) Create(rec *models.PerformanceRecord) error {
	if err := r.db.DB.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create performance record for match %s: %w", rec.MatchID, err)
	}
	return nil
}

func (r *PerformanceRepository) ListByPlayer(playerID string) ([]models.PerformanceRecord, error) {
	var records []models.PerformanceRecord
	err := r.db.DB.Where("player_id = ?", playerID).Order("created_at, id").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list performances for player %s: %w", playerID, err)
	}
	return records, nil
}

func (r *PerformanceRepository) ReassignPlayer(fromPlayerID, toPlayerID string) error {
	err := r.db.DB.Model(&models.PerformanceRecord{}).
		Where("player_id = ?", fromPlayerID).
		Update("player_id", toPlayerID).Error
	if err != nil {
		return fmt.Errorf("failed to reassign performances to player %s: %w", toPlayerID, err)
	}
	return nil
}
