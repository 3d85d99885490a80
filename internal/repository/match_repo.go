package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shida/shida-core/internal/db"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// CreateIfAbsent inserts m unless a match already exists for the unordered
// pair. The pair is normalized before insert. created reports whether this
// call inserted the row; either way m holds the stored match afterwards.
//
// Example:
//
//	created, err := repo.CreateIfAbsent(ctx, &db.Match{User1ID: 9, User2ID: 3, CompatibilityScore: 85})
//	// m.User1ID == 3, m.User2ID == 9
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, m *db.Match) (bool, error) {
	m.User1ID, m.User2ID = db.OrderedPair(m.User1ID, m.User2ID)
	m.IsActive = true

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	existing, err := r.FindByPair(ctx, m.User1ID, m.User2ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		*m = *existing
	}
	return false, nil
}

// FindByPair returns the match for the unordered pair, or nil.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	u1, u2 := db.OrderedPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get loads a match by id. Missing rows surface as gorm.ErrRecordNotFound.
func (r *MatchRepository) Get(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).Take(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActive returns the user's active matches, newest first.
func (r *MatchRepository) ListActive(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND is_active = ?", userID, userID, true).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// Deactivate soft-deletes a match.
func (r *MatchRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
