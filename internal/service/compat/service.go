package compat

import (
	"context"
	stdErrors "errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/domain"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/repository"
)

// Service scores profiles against the active matching configuration.
type Service struct {
	appCtx  *app.AppContext
	configs *repository.ConfigRepository
	groups  ObjectiveGroups
}

// NewService wires the scorer. A nil groups table uses
// DefaultObjectiveGroups.
func NewService(appCtx *app.AppContext, groups ObjectiveGroups) *Service {
	if groups == nil {
		groups = DefaultObjectiveGroups
	}
	return &Service{
		appCtx:  appCtx,
		configs: repository.NewConfigRepository(appCtx.DB),
		groups:  groups,
	}
}

// Weights returns the active configuration's weights, or DefaultWeights
// when no configuration is active.
func (s *Service) Weights(ctx context.Context) (domain.Weights, error) {
	cfg, err := s.configs.GetActive(ctx)
	if err != nil {
		return domain.Weights{}, err
	}
	if cfg == nil {
		return domain.DefaultWeights, nil
	}
	return cfg.Weights(), nil
}

// Scorer snapshots the active configuration so a batch of profiles is
// scored against one weight vector.
func (s *Service) Scorer(ctx context.Context) (Scorer, error) {
	w, err := s.Weights(ctx)
	if err != nil {
		s.appCtx.Logger.Error("failed to load matching config", "err", err)
		return Scorer{}, fmt.Errorf("load matching config: %w", err)
	}
	return Scorer{Weights: w, Groups: s.groups}, nil
}

// Score computes the compatibility of a and b with the active weights.
func (s *Service) Score(ctx context.Context, a, b *domain.Profile) (float64, error) {
	sc, err := s.Scorer(ctx)
	if err != nil {
		return 0, err
	}
	return sc.Score(a, b), nil
}

// CreateConfig stores a named weight vector, optionally activating it.
// Weights must be non-negative and sum to at most 1.
func (s *Service) CreateConfig(ctx context.Context, name string, w domain.Weights, activate bool) (*db.MatchingConfig, error) {
	if name == "" {
		return nil, errors.Validation("config name is required")
	}
	for _, v := range []float64{w.Religion, w.Location, w.Objective, w.Profession, w.Age, w.Interests} {
		if v < 0 || math.IsNaN(v) {
			return nil, errors.Validation("weights must be non-negative")
		}
	}
	if w.Sum() > 1+1e-9 {
		return nil, errors.Newf(errors.KindValidation, "invalid_input", "weights sum to %.2f, max 1.0", w.Sum())
	}

	cfg := &db.MatchingConfig{
		Name:             name,
		ReligionWeight:   w.Religion,
		LocationWeight:   w.Location,
		ObjectiveWeight:  w.Objective,
		ProfessionWeight: w.Profession,
		AgeWeight:        w.Age,
		InterestsWeight:  w.Interests,
	}
	if err := s.configs.Create(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create matching config: %w", err)
	}
	if activate {
		if err := s.ActivateConfig(ctx, cfg.ID); err != nil {
			return nil, err
		}
		cfg.IsActive = true
	}
	return cfg, nil
}

// ActivateConfig makes id the single active configuration.
func (s *Service) ActivateConfig(ctx context.Context, id uint64) error {
	s.appCtx.Logger.Debug("ActivateConfig called", "config_id", id)

	if err := s.configs.Activate(ctx, id); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("matching_config")
		}
		s.appCtx.Logger.Error("failed to activate matching config", "config_id", id, "err", err)
		return fmt.Errorf("activate matching config: %w", err)
	}
	return nil
}
