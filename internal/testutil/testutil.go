// Package testutil holds fixtures shared by repository and service tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shida/shida-core/internal/cache"
	"github.com/shida/shida-core/internal/db"
)

// NewDB opens a migrated, isolated in-memory SQLite database.
//
// The shared-cache DSN keeps the schema visible to every connection of the
// pool; the pool is capped to one connection so SQLite never reports
// "database is locked" under concurrent transactions.
//
// With one connection whole transactions run one after another. Concurrency
// tests on this database check the serialized outcome only; the row locks
// and unique indexes that make them hold under real contention are
// exercised on MySQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

// NewRedis starts a miniredis instance and returns a cache bound to it.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Client.Close() })
	return rc, mr
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock is a settable time source for services that take a Now func.
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// UserOpt tweaks a seeded user before insert.
type UserOpt func(*db.User)

func WithTokens(n int64) UserOpt { return func(u *db.User) { u.Tokens = n } }

func WithVIP(tier string) UserOpt {
	return func(u *db.User) {
		u.IsVIP = true
		u.VIPType = tier
	}
}

func WithGhostMode() UserOpt { return func(u *db.User) { u.GhostMode = true } }

func Banned() UserOpt { return func(u *db.User) { u.IsBanned = true } }

func CreatedAt(t time.Time) UserOpt { return func(u *db.User) { u.CreatedAt = t } }

// SeedUser inserts an active, unbanned user with the given email.
func SeedUser(t *testing.T, database *gorm.DB, email string, opts ...UserOpt) *db.User {
	t.Helper()
	u := &db.User{
		Email:        email,
		PasswordHash: "x",
		VIPType:      "free",
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := database.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return u
}

// ProfileOpt tweaks a seeded profile before insert.
type ProfileOpt func(*db.Profile)

func Attrs(objective, religion, location string, age int) ProfileOpt {
	return func(p *db.Profile) {
		p.Objective = objective
		p.Religion = religion
		p.Location = location
		p.Age = age
	}
}

func Interests(raw string) ProfileOpt {
	return func(p *db.Profile) { p.Interests = datatypes.JSON(raw) }
}

func Unapproved() ProfileOpt { return func(p *db.Profile) { p.IsApproved = false } }

// SeedProfile inserts an approved profile for userID.
func SeedProfile(t *testing.T, database *gorm.DB, userID uint64, name string, opts ...ProfileOpt) *db.Profile {
	t.Helper()
	p := &db.Profile{
		UserID:             userID,
		Name:               name,
		Age:                25,
		VerificationStatus: "pending",
		IsApproved:         true,
		WeeklyViews:        datatypes.JSON("[0,0,0,0,0,0,0]"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := database.Create(p).Error; err != nil {
		t.Fatalf("failed to seed profile for %d: %v", userID, err)
	}
	return p
}

// ReloadUser fetches the current row for id.
func ReloadUser(t *testing.T, database *gorm.DB, id uint64) db.User {
	t.Helper()
	var u db.User
	if err := database.WithContext(context.Background()).First(&u, id).Error; err != nil {
		t.Fatalf("failed to reload user %d: %v", id, err)
	}
	return u
}
