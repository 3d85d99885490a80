package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shida/shida-core/internal/config"
)

const (
	likeCountTTL = time.Hour
	matchTTL     = 24 * time.Hour
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForLikeCount generates Redis key for a user's pending-likes count
func KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

func KeyForMatch(matchID uint64) string {
	return fmt.Sprintf("match:%d", matchID)
}

// SetLikeCount stores the count of unmatched likes a user received.
func (c *RedisCache) SetLikeCount(ctx context.Context, userID uint64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, KeyForLikeCount(userID), count, likeCountTTL).Err()
}

// GetLikeCount returns the cached count and whether it was present.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// InvalidateLikeCounts drops cached counts for the given users.
func (c *RedisCache) InvalidateLikeCounts(ctx context.Context, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, KeyForLikeCount(id))
	}
	return c.Del(ctx, keys...)
}

// MatchSnapshot is the cached summary of a match.
type MatchSnapshot struct {
	MatchID   uint64
	User1ID   uint64
	User2ID   uint64
	Score     float64
	CreatedAt time.Time
}

// CacheMatch stores a match snapshot as a hash with a 24h TTL.
func (c *RedisCache) CacheMatch(ctx context.Context, s MatchSnapshot) error {
	key := KeyForMatch(s.MatchID)
	pipe := c.Client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user1_id":   s.User1ID,
		"user2_id":   s.User2ID,
		"score":      strconv.FormatFloat(s.Score, 'f', 2, 64),
		"created_at": s.CreatedAt.UTC().Unix(),
	})
	pipe.Expire(ctx, key, matchTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetMatch reads a cached snapshot. ok is false on a miss.
func (c *RedisCache) GetMatch(ctx context.Context, matchID uint64) (MatchSnapshot, bool, error) {
	vals, err := c.Client.HGetAll(ctx, KeyForMatch(matchID)).Result()
	if err != nil {
		return MatchSnapshot{}, false, err
	}
	if len(vals) == 0 {
		return MatchSnapshot{}, false, nil
	}
	s := MatchSnapshot{MatchID: matchID}
	s.User1ID, _ = strconv.ParseUint(vals["user1_id"], 10, 64)
	s.User2ID, _ = strconv.ParseUint(vals["user2_id"], 10, 64)
	s.Score, _ = strconv.ParseFloat(vals["score"], 64)
	if ts, err := strconv.ParseInt(vals["created_at"], 10, 64); err == nil {
		s.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return s, true, nil
}

func (c *RedisCache) InvalidateMatch(ctx context.Context, matchID uint64) error {
	return c.Del(ctx, KeyForMatch(matchID))
}
