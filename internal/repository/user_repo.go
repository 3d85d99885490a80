package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shida/shida-core/internal/db"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Get loads a user by id. Missing rows surface as gorm.ErrRecordNotFound.
func (r *UserRepository) Get(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWithProfile loads a user and its profile (nil when the user has none).
func (r *UserRepository) GetWithProfile(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Preload("Profile").Take(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Lock reads users with FOR UPDATE, always in ascending id order so two
// transactions locking the same pair cannot deadlock. Missing ids are
// simply absent from the result.
func (r *UserRepository) Lock(ctx context.Context, ids ...uint64) (map[uint64]*db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]*db.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// DebitTokens subtracts amount only when the balance covers it. It
// returns false when the row is missing or the balance is too low; the
// check and the write are one statement, so concurrent debits cannot
// overdraw.
func (r *UserRepository) DebitTokens(ctx context.Context, id uint64, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND tokens >= ?", id, amount).
		UpdateColumn("tokens", gorm.Expr("tokens - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreditTokens adds amount to the balance. It returns false when the user
// does not exist.
func (r *UserRepository) CreditTokens(ctx context.Context, id uint64, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		UpdateColumn("tokens", gorm.Expr("tokens + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Balance reads the current token balance.
func (r *UserRepository) Balance(ctx context.Context, id uint64) (int64, error) {
	var tokens int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Pluck("tokens", &tokens).Error
	return tokens, err
}

// SetVIP grants a VIP tier until expiresAt (nil means no expiry).
func (r *UserRepository) SetVIP(ctx context.Context, id uint64, tier string, expiresAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_vip":         true,
			"vip_type":       tier,
			"vip_expires_at": expiresAt,
		}).Error
}

func (r *UserRepository) SetGhostMode(ctx context.Context, id uint64, on bool) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("ghost_mode", on).Error
}

// Ban marks the user banned. deactivate also clears is_active.
func (r *UserRepository) Ban(ctx context.Context, id uint64, reason string, at time.Time, deactivate bool) error {
	updates := map[string]any{
		"is_banned":  true,
		"ban_reason": reason,
		"banned_at":  at.UTC(),
	}
	if deactivate {
		updates["is_active"] = false
	}
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Unban lifts a ban and reactivates the account.
func (r *UserRepository) Unban(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_banned":  false,
			"is_active":  true,
			"ban_reason": "",
			"banned_at":  nil,
		}).Error
}
