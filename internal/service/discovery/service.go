// Package discovery builds the ranked candidate feed shown to a user.
package discovery

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/repository"
	"github.com/shida/shida-core/internal/service/compat"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// poolFactor oversizes the fetch so ranking has room to reorder.
	poolFactor = 2
)

// Candidate is one entry of the feed. Score is 0 when the requester has
// no profile to score against.
type Candidate struct {
	Profile domain.Profile
	Score   float64
}

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	compat   *compat.Service
}

func NewService(appCtx *app.AppContext, compatSvc *compat.Service) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		compat:   compatSvc,
	}
}

// ListCandidates returns up to limit profiles for userID, best match first.
//
// Behavior:
//   - Never includes the requester, profiles they liked, or users they
//     were matched with.
//   - Only active, non-banned users with approved profiles.
//   - Ghost-mode users are only visible to VIP requesters.
//   - Fetches 2×limit candidates, ranks them by compatibility with the
//     requester's profile (ties keep fetch order), then truncates.
//   - Without a requester profile the fetch order is returned as is.
//
// limit <= 0 means DefaultLimit; values above MaxLimit are capped.
func (s *Service) ListCandidates(ctx context.Context, userID uint64, limit int) ([]Candidate, error) {
	s.appCtx.Logger.Debug("ListCandidates called", "user_id", userID, "limit", limit)

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	user, err := s.users.GetWithProfile(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("user")
		}
		return nil, fmt.Errorf("load requester: %w", err)
	}

	rows, err := s.profiles.Candidates(ctx, repository.DiscoveryFilter{
		RequesterID:   userID,
		IncludeGhosts: user.VIPActive(s.appCtx.Clock()),
		Limit:         limit * poolFactor,
	})
	if err != nil {
		s.appCtx.Logger.Error("discovery query failed", "user_id", userID, "err", err)
		return nil, fmt.Errorf("discovery query: %w", err)
	}

	out := make([]Candidate, len(rows))
	for i := range rows {
		out[i] = Candidate{Profile: rows[i].Domain()}
	}

	if user.Profile != nil {
		scorer, err := s.compat.Scorer(ctx)
		if err != nil {
			return nil, err
		}
		me := user.Profile.Domain()
		for i := range out {
			out[i].Score = scorer.Score(&me, &out[i].Profile)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
