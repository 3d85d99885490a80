package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
)

// ConfigRepository manages matching weight configurations.
type ConfigRepository struct {
	db *gorm.DB
}

func NewConfigRepository(database *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: database}
}

// GetActive returns the active configuration, or nil when none is active.
func (r *ConfigRepository) GetActive(ctx context.Context) (*db.MatchingConfig, error) {
	var c db.MatchingConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id DESC").
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfigRepository) Create(ctx context.Context, c *db.MatchingConfig) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Activate makes id the only active configuration. Missing ids surface as
// gorm.ErrRecordNotFound and leave the current state untouched.
func (r *ConfigRepository) Activate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c db.MatchingConfig
		if err := tx.Take(&c, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.MatchingConfig{}).
			Where("is_active = ? AND id <> ?", true, id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&c).Update("is_active", true).Error
	})
}
