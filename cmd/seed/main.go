package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/config"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/logger"
	"github.com/shida/shida-core/internal/service"
	"github.com/shida/shida-core/internal/service/matching"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		log.Error("bad configuration", "err", err)
		os.Exit(1)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	profiles, err := db.SeedDemoData(database, cfg.Tokens.SignupBalance, log)
	if err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	// Swipes go through the matching service so likes, views and matches
	// are recorded exactly as in production. Seeding is not throttled.
	appCtx := app.New(database, nil, log)
	appCtx.Limiter = nil
	core := service.NewCore(appCtx)

	likes, matches := seedSwipes(context.Background(), core.Matching, profiles, log)
	log.Info("seeding completed", "profiles", len(profiles), "likes", likes, "matches", matches)
}

// seedSwipes has every member swipe on about twelve others, 70% of them
// right. Every third one-sided like is reciprocated so some pairs match.
func seedSwipes(ctx context.Context, svc *matching.Service, profiles []db.Profile, log *slog.Logger) (likes, matches int) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	right := 0
	for _, actor := range profiles {
		for j := 0; j < 12; j++ {
			target := profiles[r.Intn(len(profiles))]
			if target.UserID == actor.UserID {
				continue
			}

			dir := matching.DirectionLeft
			if r.Intn(100) < 70 {
				dir = matching.DirectionRight
			}
			res, err := svc.RecordSwipe(ctx, actor.UserID, target.ID, dir)
			if err != nil {
				// Repeated targets are expected with random picks.
				continue
			}
			if !res.Liked {
				continue
			}
			likes++
			if res.Matched {
				matches++
				continue
			}

			right++
			if right%3 != 0 {
				continue
			}
			back, err := svc.RecordSwipe(ctx, target.UserID, actor.ID, matching.DirectionRight)
			if err != nil {
				log.Warn("reciprocal like failed", "from", target.UserID, "to", actor.UserID, "err", err)
				continue
			}
			likes++
			if back.Matched {
				matches++
			}
		}
	}
	return likes, matches
}
