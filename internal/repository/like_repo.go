package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
// It encapsulates all queries related to directed likes between users.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *LikeRepository) WithTx(tx *gorm.DB) *LikeRepository {
	return &LikeRepository{db: tx}
}

// Create inserts a new directed like.
//
// Behavior:
//   - The (sender_id, receiver_id) unique index rejects a second row for the
//     same direction; the caller sees gorm.ErrDuplicatedKey.
//
// Example:
//
//	repo.Create(ctx, &db.Like{SenderID: 1, ReceiverID: 2}) // user 1 liked user 2
func (r *LikeRepository) Create(ctx context.Context, like *db.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// Find returns the like sender -> receiver, or nil when absent.
// Inside a transaction the row is read with FOR UPDATE.
func (r *LikeRepository) Find(ctx context.Context, senderID, receiverID uint64) (*db.Like, error) {
	var like db.Like
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Take(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// HasLiked checks whether sender has liked receiver.
//
// Example:
//
//	repo.HasLiked(ctx, 1, 2) // -> true if user 1 liked user 2
func (r *LikeRepository) HasLiked(ctx context.Context, senderID, receiverID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Count(&count).Error
	return count > 0, err
}

// MarkMatched flags the given likes as part of a match.
func (r *LikeRepository) MarkMatched(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("id IN ?", ids).
		Update("is_match", true).Error
}

// GetLikers returns likes received by receiverID that have not turned into
// a match yet.
//
// Behavior:
//   - Only rows where receiver_id = X and is_match = false are returned.
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, 42, nil, 20) // first 20 pending likes of user 42
func (r *LikeRepository) GetLikers(
	ctx context.Context,
	receiverID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("receiver_id = ? AND is_match = ?", receiverID, false).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.LikeID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LikeID:      last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers returns how many pending (unmatched) likes receiverID has.
// Used in conjunction with the Redis cache (DB is fallback).
func (r *LikeRepository) CountLikers(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("receiver_id = ? AND is_match = ?", receiverID, false).
		Count(&count).Error
	return count, err
}

// CountSentSince counts likes sent by senderID after since.
func (r *LikeRepository) CountSentSince(ctx context.Context, senderID uint64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("sender_id = ? AND created_at > ?", senderID, since.UTC()).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
