package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
)

// AuditRepository stores admin actions.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(database *gorm.DB) *AuditRepository {
	return &AuditRepository{db: database}
}

func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *db.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ForTarget lists the entries about one target, oldest first.
func (r *AuditRepository) ForTarget(ctx context.Context, targetType string, targetID uint64) ([]db.AuditLog, error) {
	var out []db.AuditLog
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
