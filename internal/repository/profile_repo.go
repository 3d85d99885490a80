package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/domain"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

// GetByUserID returns the profile of userID, or nil when the user has none.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID loads a profile by primary key. Missing rows surface as
// gorm.ErrRecordNotFound.
func (r *ProfileRepository) GetByID(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Take(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Save inserts or updates the whole row.
func (r *ProfileRepository) Save(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// UpdateFields writes the given columns of the profile of userID.
func (r *ProfileRepository) UpdateFields(ctx context.Context, userID uint64, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}

// RecordView bumps the lifetime and weekday view counters of userID's
// profile. Users without a profile are ignored.
//
// The weekly buckets are a JSON column, so the row is read FOR UPDATE and
// rewritten; run it inside the caller's transaction.
func (r *ProfileRepository) RecordView(ctx context.Context, userID uint64, at time.Time) error {
	var p db.Profile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "views_count", "weekly_views").
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	views := domain.ParseWeeklyViews(p.WeeklyViews)
	views.Record(at)

	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", p.ID).
		UpdateColumns(map[string]any{
			"views_count":  gorm.Expr("views_count + ?", 1),
			"weekly_views": datatypes.JSON(views.JSON()),
		}).Error
}

// DiscoveryFilter narrows the candidate pool for one requester.
type DiscoveryFilter struct {
	RequesterID uint64
	// IncludeGhosts keeps ghost-mode users in the pool (VIP requesters).
	IncludeGhosts bool
	Limit         int
}

// Candidates returns discoverable profiles for the requester in fetch
// order (profile id ascending).
//
// Behavior:
//   - Excludes the requester, users the requester already liked and users
//     the requester was ever matched with.
//   - Only active, non-banned users with an approved profile.
//   - Ghost-mode users are hidden unless IncludeGhosts is set.
func (r *ProfileRepository) Candidates(ctx context.Context, f DiscoveryFilter) ([]db.Profile, error) {
	var profiles []db.Profile

	liked := r.db.Model(&db.Like{}).Select("receiver_id").Where("sender_id = ?", f.RequesterID)
	matchedAsUser1 := r.db.Model(&db.Match{}).Select("user2_id").Where("user1_id = ?", f.RequesterID)
	matchedAsUser2 := r.db.Model(&db.Match{}).Select("user1_id").Where("user2_id = ?", f.RequesterID)

	query := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Joins("JOIN users u ON u.id = profiles.user_id").
		Where("profiles.user_id <> ?", f.RequesterID).
		Where("u.is_active = ? AND u.is_banned = ?", true, false).
		Where("profiles.is_approved = ?", true).
		Where("profiles.user_id NOT IN (?)", liked).
		Where("profiles.user_id NOT IN (?)", matchedAsUser1).
		Where("profiles.user_id NOT IN (?)", matchedAsUser2)

	if !f.IncludeGhosts {
		query = query.Where("u.ghost_mode = ?", false)
	}

	err := query.
		Order("profiles.id ASC").
		Limit(f.Limit).
		Find(&profiles).Error
	return profiles, err
}

// PendingVerification lists profiles with a submitted verification photo
// awaiting review, newest first.
func (r *ProfileRepository) PendingVerification(ctx context.Context, limit int) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("verification_status = ? AND verification_photo <> ?", "pending", "").
		Order("id DESC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}
