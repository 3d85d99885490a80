package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
)

// LedgerRepository appends to and reads the token transaction log. Rows
// are never updated or deleted.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(database *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: database}
}

func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

func (r *LedgerRepository) Append(ctx context.Context, tx *db.TokenTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// History returns the newest entries first.
func (r *LedgerRepository) History(ctx context.Context, userID uint64, limit int) ([]db.TokenTransaction, error) {
	var rows []db.TokenTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// HasDescription reports whether the user already has an entry with the
// exact description.
func (r *LedgerRepository) HasDescription(ctx context.Context, userID uint64, description string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.TokenTransaction{}).
		Where("user_id = ? AND description = ?", userID, description).
		Count(&n).Error
	return n > 0, err
}
