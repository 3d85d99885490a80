package matching

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/cache"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/utils/pagination"
)

const (
	DefaultLikesPageSize = 20
	MaxLikesPageSize     = 50
)

// MatchView is one row of a user's matches list.
type MatchView struct {
	Match db.Match
	// Other is nil when the counterpart has no profile.
	Other       *domain.Profile
	LastMessage *db.Message
	Unread      int64
}

// ListMatches returns the active matches of userID, newest first, with
// the counterpart's profile, the last message and the unread count.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]MatchView, error) {
	s.appCtx.Logger.Debug("ListMatches called", "user_id", userID)

	rows, err := s.matches.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	out := make([]MatchView, 0, len(rows))
	for _, m := range rows {
		v := MatchView{Match: m}

		p, err := s.profiles.GetByUserID(ctx, m.Other(userID))
		if err != nil {
			return nil, fmt.Errorf("load match profile: %w", err)
		}
		if p != nil {
			d := p.Domain()
			v.Other = &d
		}

		if v.LastMessage, err = s.messages.Last(ctx, m.ID); err != nil {
			return nil, fmt.Errorf("load last message: %w", err)
		}
		if v.Unread, err = s.messages.CountUnread(ctx, m.ID, userID); err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Liker is a user whose like is still pending.
type Liker struct {
	UserID  uint64
	Profile *domain.Profile
	LikedAt time.Time
}

// LikesPage answers "who liked me". Likers is only filled for VIP users.
type LikesPage struct {
	Count     int64
	Likers    []Liker
	NextToken *string
}

// LikesReceived returns the pending likes of userID.
//
// Behavior:
//   - Everyone gets the count. It is read from Redis first; on a miss
//     the database is counted and the cache filled for an hour.
//   - VIP users also get the senders, newest first, paged with the
//     opaque token; a nil NextToken means the last page.
//   - An unreadable token is a validation error.
func (s *Service) LikesReceived(ctx context.Context, userID uint64, token *string, limit int) (LikesPage, error) {
	s.appCtx.Logger.Debug("LikesReceived called", "user_id", userID)

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return LikesPage{}, errors.NotFound("user")
		}
		return LikesPage{}, fmt.Errorf("load user: %w", err)
	}

	count, err := s.likeCount(ctx, userID)
	if err != nil {
		return LikesPage{}, err
	}
	page := LikesPage{Count: count}
	if !user.VIPActive(s.appCtx.Clock()) {
		return page, nil
	}

	if limit <= 0 {
		limit = DefaultLikesPageSize
	}
	if limit > MaxLikesPageSize {
		limit = MaxLikesPageSize
	}
	likes, next, err := s.likes.GetLikers(ctx, userID, token, limit)
	if err != nil {
		if stdErrors.Is(err, pagination.ErrInvalidToken) {
			return LikesPage{}, errors.Validation("invalid pagination token")
		}
		return LikesPage{}, fmt.Errorf("list likers: %w", err)
	}

	page.Likers = make([]Liker, 0, len(likes))
	for _, l := range likes {
		lk := Liker{UserID: l.SenderID, LikedAt: l.CreatedAt}
		p, err := s.profiles.GetByUserID(ctx, l.SenderID)
		if err != nil {
			return LikesPage{}, fmt.Errorf("load liker profile: %w", err)
		}
		if p != nil {
			d := p.Domain()
			lk.Profile = &d
		}
		page.Likers = append(page.Likers, lk)
	}
	page.NextToken = next
	return page, nil
}

// likeCount is cache-first; Redis failures fall through to the database.
func (s *Service) likeCount(ctx context.Context, userID uint64) (int64, error) {
	rc := s.appCtx.RedisCache
	if rc != nil {
		n, ok, err := rc.GetLikeCount(ctx, userID)
		if err != nil {
			s.appCtx.Logger.Warn("like count cache read failed", "user_id", userID, "err", err)
		}
		if ok {
			return n, nil
		}
	}

	n, err := s.likes.CountLikers(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count likers: %w", err)
	}
	if rc != nil {
		if err := rc.SetLikeCount(ctx, userID, n); err != nil {
			s.appCtx.Logger.Warn("like count cache write failed", "user_id", userID, "err", err)
		}
	}
	return n, nil
}

// Snapshot returns the score summary of a match userID is part of,
// reading the cache before the database.
func (s *Service) Snapshot(ctx context.Context, userID, matchID uint64) (cache.MatchSnapshot, error) {
	rc := s.appCtx.RedisCache
	if rc != nil {
		snap, ok, err := rc.GetMatch(ctx, matchID)
		if err != nil {
			s.appCtx.Logger.Warn("match cache read failed", "match_id", matchID, "err", err)
		}
		if ok {
			if snap.User1ID != userID && snap.User2ID != userID {
				return cache.MatchSnapshot{}, errors.ErrNotMatchParty
			}
			return snap, nil
		}
	}

	m, err := s.activeMatch(ctx, userID, matchID)
	if err != nil {
		return cache.MatchSnapshot{}, err
	}
	snap := snapshotOf(m)
	if rc != nil {
		if err := rc.CacheMatch(ctx, snap); err != nil {
			s.appCtx.Logger.Warn("failed to cache match", "match_id", matchID, "err", err)
		}
	}
	return snap, nil
}

// Unmatch deactivates a match on behalf of one of its users. Messaging
// stops; the rows are kept. Unmatching an inactive match is a no-op.
func (s *Service) Unmatch(ctx context.Context, userID, matchID uint64) error {
	s.appCtx.Logger.Debug("Unmatch called", "user_id", userID, "match_id", matchID)

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("match")
		}
		return fmt.Errorf("load match: %w", err)
	}
	if !m.HasParty(userID) {
		return errors.ErrNotMatchParty
	}
	if !m.IsActive {
		return nil
	}

	if err := s.matches.Deactivate(ctx, matchID); err != nil {
		return fmt.Errorf("deactivate match: %w", err)
	}
	if rc := s.appCtx.RedisCache; rc != nil {
		if err := rc.InvalidateMatch(ctx, matchID); err != nil {
			s.appCtx.Logger.Warn("failed to drop cached match", "match_id", matchID, "err", err)
		}
	}
	s.appCtx.Logger.Info("match deactivated", "match_id", matchID, "by_user_id", userID)
	return nil
}

func (s *Service) activeMatch(ctx context.Context, userID, matchID uint64) (*db.Match, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("match")
		}
		return nil, fmt.Errorf("load match: %w", err)
	}
	if !m.HasParty(userID) {
		return nil, errors.ErrNotMatchParty
	}
	if !m.IsActive {
		return nil, errors.NotFound("match")
	}
	return m, nil
}
