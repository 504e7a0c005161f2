// Package storage provides the gorm-backed persistence layer for player
// identities, performance records and match state.
package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/pkg/database"
)

// RosterRepository persists player identities.
type RosterRepository struct {
	db *database.DB
}

func NewRosterRepository(db *database.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) ListByClub(club string) ([]models.PlayerIdentity, error) {
	var players []models.PlayerIdentity
	err := r.db.DB.Where("club = ?", club).Order("created_at, id").Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list players for %s: %w", club, err)
	}
	return players, nil
}

func (r *RosterRepository) FindByExternalID(externalID string) (*models.PlayerIdentity, error) {
	var player models.PlayerIdentity
	err := r.db.DB.Where("external_id = ?", externalID).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player by external id %s: %w", externalID, err)
	}
	return &player, nil
}

func (r *RosterRepository) Create(p *models.PlayerIdentity) error {
	if err := r.db.DB.Create(p).Error; err != nil {
		return fmt.Errorf("failed to create player %s: %w", p.Name, err)
	}
	return nil
}

func (r *RosterRepository) Save(p *models.PlayerIdentity) error {
	if err := r.db.DB.Save(p).Error; err != nil {
		return fmt.Errorf("failed to save player %s: %w", p.Name, err)
	}
	return nil
}

func (r *RosterRepository) Delete(p *models.PlayerIdentity) error {
	if err := r.db.DB.Delete(p).Error; err != nil {
		return fmt.Errorf("failed to delete player %s: %w", p.Name, err)
	}
	return nil
}
