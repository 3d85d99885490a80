package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// Get loads a message by id. Missing rows surface as gorm.ErrRecordNotFound.
func (r *MessageRepository) Get(ctx context.Context, id uint64) (*db.Message, error) {
	var m db.Message
	if err := r.db.WithContext(ctx).Take(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByMatch returns the conversation in chronological order.
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// Last returns the newest message of a match, or nil.
func (r *MessageRepository) Last(ctx context.Context, matchID uint64) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountUnread counts messages in the match not sent by readerID and not
// yet read.
func (r *MessageRepository) CountUnread(ctx context.Context, matchID, readerID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, readerID, false).
		Count(&n).Error
	return n, err
}

// MarkRead flags every message of the match sent by the other side as read.
func (r *MessageRepository) MarkRead(ctx context.Context, matchID, readerID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, readerID, false).
		Update("is_read", true).Error
}

// CountBySender counts messages sent by senderID in match.
func (r *MessageRepository) CountBySender(ctx context.Context, matchID, senderID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id = ?", matchID, senderID).
		Count(&n).Error
	return n, err
}

// CountSentSince counts messages sent by senderID after since, across all
// matches.
func (r *MessageRepository) CountSentSince(ctx context.Context, senderID uint64, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND created_at > ?", senderID, since.UTC()).
		Count(&n).Error
	return n, err
}

// CountIdentical counts prior messages from senderID with exactly content.
func (r *MessageRepository) CountIdentical(ctx context.Context, senderID uint64, content string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND content = ?", senderID, content).
		Count(&n).Error
	return n, err
}

// Redact replaces the content of a message and flags it.
func (r *MessageRepository) Redact(ctx context.Context, id uint64, content, reason string) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":     content,
			"is_flagged":  true,
			"flag_reason": reason,
		}).Error
}
