package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shida/shida-core/internal/db"
)

type PromoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(database *gorm.DB) *PromoRepository {
	return &PromoRepository{db: database}
}

func (r *PromoRepository) WithTx(tx *gorm.DB) *PromoRepository {
	return &PromoRepository{db: tx}
}

func (r *PromoRepository) Create(ctx context.Context, p *db.PromoCode) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	return r.db.WithContext(ctx).Create(p).Error
}

// LockActive reads an active code FOR UPDATE, or nil when there is none.
// code must already be normalized to upper case.
func (r *PromoRepository) LockActive(ctx context.Context, code string) (*db.PromoCode, error) {
	var p db.PromoCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ? AND is_active = ?", code, true).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromoRepository) IncrementUses(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.PromoCode{}).
		Where("id = ?", id).
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1)).Error
}
