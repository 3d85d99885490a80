// Package profile edits user profiles, toggles ghost mode and runs the
// photo verification workflow.
package profile

import (
	"context"
	stdErrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/repository"
	"github.com/shida/shida-core/internal/service/fraud"
)

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	audit    *repository.AuditRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		audit:    repository.NewAuditRepository(appCtx.DB),
	}
}

// UpdateResult is the stored profile and its completeness/scam review.
type UpdateResult struct {
	Profile domain.Profile
	Review  fraud.ProfileVerdict
}

// UpdateProfile applies patch to the profile of userID.
//
// Behavior:
//   - Only the fields of Patch can change; each is validated first.
//   - A user without a profile gets one, which needs a name and an age.
//   - Existing profiles are updated column by column so view counters
//     written concurrently are not overwritten.
//   - The result carries the profile review; suspicious profiles are
//     logged for moderators.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, patch Patch) (UpdateResult, error) {
	s.appCtx.Logger.Debug("UpdateProfile called", "user_id", userID)

	if err := patch.Validate(); err != nil {
		return UpdateResult{}, err
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return UpdateResult{}, errors.NotFound("user")
		}
		return UpdateResult{}, fmt.Errorf("load user: %w", err)
	}

	var stored *db.Profile
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := s.profiles.WithTx(tx)
		existing, err := profiles.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}

		if existing == nil {
			if patch.Name == nil || patch.Age == nil {
				return errors.Validation("name and age are required to create a profile")
			}
			d := domain.Profile{UserID: userID, IsApproved: true, VerificationStatus: domain.VerificationPending}
			patch.apply(&d)
			row := &db.Profile{UserID: userID}
			row.ApplyDomain(d)
			if err := profiles.Save(ctx, row); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			stored = row
			return nil
		}

		if cols := patch.columns(); len(cols) > 0 {
			if err := profiles.UpdateFields(ctx, userID, cols); err != nil {
				return fmt.Errorf("update profile: %w", err)
			}
		}
		stored, err = profiles.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("reload profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}

	res := UpdateResult{Profile: stored.Domain()}
	res.Review = fraud.CheckProfile(res.Profile)
	if res.Review.Suspicious {
		s.appCtx.Logger.Warn("suspicious profile", "user_id", userID, "score", res.Review.Score, "flags", res.Review.Flags)
	}
	return res, nil
}

// ToggleGhostMode flips ghost mode for a VIP user and returns the new
// state. Non-VIP users get vip_required.
func (s *Service) ToggleGhostMode(ctx context.Context, userID uint64) (bool, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return false, errors.NotFound("user")
		}
		return false, fmt.Errorf("load user: %w", err)
	}
	if !user.VIPActive(s.appCtx.Clock()) {
		return false, errors.ErrVIPRequired
	}

	on := !user.GhostMode
	if err := s.users.SetGhostMode(ctx, userID, on); err != nil {
		return false, fmt.Errorf("set ghost mode: %w", err)
	}
	s.appCtx.Logger.Info("ghost mode toggled", "user_id", userID, "ghost_mode", on)
	return on, nil
}
