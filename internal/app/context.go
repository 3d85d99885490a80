package app

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/cache"
	"github.com/shida/shida-core/internal/metrics"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/ratelimit"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.Limiter

	// Now is the clock used for every timestamp the core writes.
	// nil means time.Now in UTC.
	Now func() time.Time
}

// New creates a new AppContext. Optional collaborators start as no-ops
// and can be replaced field by field.
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Notifier:   notify.Nop{},
		Limiter:    ratelimit.New(),
	}
}

// Clock returns the current time in UTC.
func (a *AppContext) Clock() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

// Notify dispatches n through the configured notifier.
func (a *AppContext) Notify(ctx context.Context, n notify.Notification) {
	if a.Notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = a.Clock()
	}
	a.Notifier.Notify(ctx, n)
}

// Throttle applies the rate limit of action to userID. A denial is a
// rate_limited error.
func (a *AppContext) Throttle(userID uint64, action string) error {
	if a.Limiter == nil {
		return nil
	}
	_, err := a.Limiter.Check(strconv.FormatUint(userID, 10), action)
	return err
}
