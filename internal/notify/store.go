package notify

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/metrics"
)

// Store persists notifications in the notifications table, where clients
// poll them.
type Store struct {
	db      *gorm.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewStore(database *gorm.DB, logger *slog.Logger, m *metrics.Metrics) *Store {
	return &Store{db: database, logger: logger, metrics: m}
}

func (s *Store) Notify(ctx context.Context, n Notification) {
	n = stamp(n)
	row := db.Notification{
		EventID:   n.EventID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		ActionURL: n.ActionURL,
		CreatedAt: n.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Warn("failed to store notification", "user_id", n.UserID, "type", n.Type, "err", err)
		return
	}
	s.metrics.Notified(n.Type, "store")
}

// Unread lists unread notifications for a user, newest first.
func (s *Store) Unread(ctx context.Context, userID uint64, limit int) ([]db.Notification, error) {
	var rows []db.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, false).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkRead flags the given notifications of userID as read.
func (s *Store) MarkRead(ctx context.Context, userID uint64, ids ...uint64) error {
	q := s.db.WithContext(ctx).Model(&db.Notification{}).Where("user_id = ?", userID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	return q.Update("is_read", true).Error
}
