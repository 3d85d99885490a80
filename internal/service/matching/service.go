// Package matching runs the like/match state machine and the views built
// on top of it (matches list, likes received, unmatch).
package matching

import (
	"context"
	stdErrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/cache"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/repository"
	"github.com/shida/shida-core/internal/service/compat"
)

// Direction of a swipe.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ActionSwipe is the rate-limited action name for swipes.
const ActionSwipe = "swipe"

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	likes    *repository.LikeRepository
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	compat   *compat.Service
}

func NewService(appCtx *app.AppContext, compatSvc *compat.Service) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		likes:    repository.NewLikeRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		compat:   compatSvc,
	}
}

// SwipeResult is the outcome of RecordSwipe. Match is set whenever the
// pair is matched after the swipe.
type SwipeResult struct {
	Liked   bool
	Matched bool
	Match   *db.Match
}

// swipeOutcome carries what the transaction learned to the post-commit
// side effects.
type swipeOutcome struct {
	match      *db.Match
	created    bool
	senderName string
	targetName string
}

// RecordSwipe applies userID's swipe on the profile targetProfileID.
//
// Behavior:
//   - Swiping is rate limited per user ("swipe").
//   - Left only counts a view on the target profile; no like is stored.
//   - Right fails with target_unavailable when the target is missing,
//     banned or inactive, and with duplicate_like when userID already
//     liked the target. Otherwise the like is stored and a view counted.
//   - When the target already liked userID, both likes are marked as
//     matched and exactly one Match is created for the pair, carrying the
//     compatibility score of both profiles at that moment. Both users are
//     notified once.
//   - Everything from the user locks to the match insert is one
//     transaction; the unique pair index stops a concurrent duplicate.
//
// Example:
//
//	svc.RecordSwipe(ctx, 1, 20, matching.DirectionRight)
//	// -> {Liked: true, Matched: true, Match: &db.Match{User1ID: 1, User2ID: 2, ...}}
func (s *Service) RecordSwipe(ctx context.Context, userID, targetProfileID uint64, direction Direction) (SwipeResult, error) {
	s.appCtx.Logger.Debug("RecordSwipe called", "user_id", userID, "target_profile_id", targetProfileID, "direction", direction)

	if direction != DirectionLeft && direction != DirectionRight {
		return SwipeResult{}, errors.Validation("direction must be left or right")
	}
	if err := s.appCtx.Throttle(userID, ActionSwipe); err != nil {
		return SwipeResult{}, err
	}

	target, err := s.profiles.GetByID(ctx, targetProfileID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return SwipeResult{}, errors.ErrTargetUnavailable
		}
		return SwipeResult{}, fmt.Errorf("load target profile: %w", err)
	}
	targetID := target.UserID
	if targetID == userID {
		return SwipeResult{}, errors.Validation("cannot swipe on your own profile")
	}

	if direction == DirectionLeft {
		// The row lock taken by RecordView must outlive the bucket rewrite.
		now := s.appCtx.Clock()
		err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.profiles.WithTx(tx).RecordView(ctx, targetID, now)
		})
		if err != nil {
			return SwipeResult{}, fmt.Errorf("record view: %w", err)
		}
		return SwipeResult{}, nil
	}

	// Loaded before the transaction: the scorer reads the active config.
	scorer, err := s.compat.Scorer(ctx)
	if err != nil {
		return SwipeResult{}, err
	}

	var out swipeOutcome
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.like(ctx, tx, scorer, userID, targetID)
		return err
	})
	if err != nil {
		if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			return SwipeResult{}, errors.ErrDuplicateLike
		}
		return SwipeResult{}, err
	}

	s.afterLike(ctx, userID, targetID, out)
	return SwipeResult{Liked: true, Matched: out.match != nil, Match: out.match}, nil
}

func (s *Service) like(ctx context.Context, tx *gorm.DB, scorer compat.Scorer, senderID, targetID uint64) (swipeOutcome, error) {
	now := s.appCtx.Clock()
	likes := s.likes.WithTx(tx)
	profiles := s.profiles.WithTx(tx)

	locked, err := s.users.WithTx(tx).Lock(ctx, senderID, targetID)
	if err != nil {
		return swipeOutcome{}, fmt.Errorf("lock users: %w", err)
	}
	if _, ok := locked[senderID]; !ok {
		return swipeOutcome{}, errors.NotFound("user")
	}
	if t, ok := locked[targetID]; !ok || t.IsBanned || !t.IsActive {
		return swipeOutcome{}, errors.ErrTargetUnavailable
	}

	existing, err := likes.Find(ctx, senderID, targetID)
	if err != nil {
		return swipeOutcome{}, fmt.Errorf("find like: %w", err)
	}
	if existing != nil {
		return swipeOutcome{}, errors.ErrDuplicateLike
	}

	like := &db.Like{SenderID: senderID, ReceiverID: targetID, CreatedAt: now}
	if err := likes.Create(ctx, like); err != nil {
		return swipeOutcome{}, fmt.Errorf("create like: %w", err)
	}
	if err := profiles.RecordView(ctx, targetID, now); err != nil {
		return swipeOutcome{}, fmt.Errorf("record view: %w", err)
	}

	reverse, err := likes.Find(ctx, targetID, senderID)
	if err != nil {
		return swipeOutcome{}, fmt.Errorf("find reciprocal like: %w", err)
	}
	if reverse == nil {
		return swipeOutcome{}, nil
	}

	if err := likes.MarkMatched(ctx, like.ID, reverse.ID); err != nil {
		return swipeOutcome{}, fmt.Errorf("mark matched: %w", err)
	}

	out := swipeOutcome{}
	mine, err := profiles.GetByUserID(ctx, senderID)
	if err != nil {
		return swipeOutcome{}, fmt.Errorf("load sender profile: %w", err)
	}
	theirs, err := profiles.GetByUserID(ctx, targetID)
	if err != nil {
		return swipeOutcome{}, fmt.Errorf("load target profile: %w", err)
	}
	var score float64
	if mine != nil && theirs != nil {
		a, b := mine.Domain(), theirs.Domain()
		score = scorer.Score(&a, &b)
		out.senderName, out.targetName = mine.Name, theirs.Name
	}

	m := &db.Match{User1ID: senderID, User2ID: targetID, CompatibilityScore: score, CreatedAt: now}
	created, err := s.matches.WithTx(tx).CreateIfAbsent(ctx, m)
	if err != nil {
		return swipeOutcome{}, fmt.Errorf("create match: %w", err)
	}
	out.match, out.created = m, created
	return out, nil
}

// afterLike runs the side effects of a committed like: cache, metrics and
// notifications. Failures here are logged only.
func (s *Service) afterLike(ctx context.Context, senderID, targetID uint64, out swipeOutcome) {
	s.appCtx.Metrics.Like()

	if rc := s.appCtx.RedisCache; rc != nil {
		if err := rc.InvalidateLikeCounts(ctx, senderID, targetID); err != nil {
			s.appCtx.Logger.Warn("failed to invalidate like counts", "user_id", senderID, "target_id", targetID, "err", err)
		}
	}

	if out.match == nil || !out.created {
		return
	}
	m := out.match
	s.appCtx.Metrics.Match()
	s.appCtx.Logger.Info("match created", "match_id", m.ID, "user1_id", m.User1ID, "user2_id", m.User2ID, "score", m.CompatibilityScore)

	if rc := s.appCtx.RedisCache; rc != nil {
		if err := rc.CacheMatch(ctx, snapshotOf(m)); err != nil {
			s.appCtx.Logger.Warn("failed to cache match", "match_id", m.ID, "err", err)
		}
	}

	s.notifyMatch(ctx, senderID, out.targetName, m.ID)
	s.notifyMatch(ctx, targetID, out.senderName, m.ID)
}

func (s *Service) notifyMatch(ctx context.Context, userID uint64, otherName string, matchID uint64) {
	msg := "You have a new match!"
	if otherName != "" {
		msg = fmt.Sprintf("You and %s liked each other.", otherName)
	}
	s.appCtx.Notify(ctx, notify.Notification{
		UserID:    userID,
		Title:     "It's a match!",
		Message:   msg,
		Type:      notify.TypeMatch,
		ActionURL: fmt.Sprintf("/matches/%d", matchID),
	})
}

func snapshotOf(m *db.Match) cache.MatchSnapshot {
	return cache.MatchSnapshot{
		MatchID:   m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		Score:     m.CompatibilityScore,
		CreatedAt: m.CreatedAt,
	}
}
