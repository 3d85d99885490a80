// Package service assembles the domain services around one AppContext.
package service

import (
	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/service/compat"
	"github.com/shida/shida-core/internal/service/discovery"
	"github.com/shida/shida-core/internal/service/fraud"
	"github.com/shida/shida-core/internal/service/matching"
	"github.com/shida/shida-core/internal/service/messaging"
	"github.com/shida/shida-core/internal/service/moderation"
	"github.com/shida/shida-core/internal/service/profile"
	"github.com/shida/shida-core/internal/service/tokens"
)

// Core is the full set of operations callers build on.
type Core struct {
	Compat     *compat.Service
	Discovery  *discovery.Service
	Matching   *matching.Service
	Messaging  *messaging.Service
	Fraud      *fraud.Service
	Tokens     *tokens.Service
	Profiles   *profile.Service
	Moderation *moderation.Service
}

// NewCore wires every service to appCtx with the stock objective groups.
func NewCore(appCtx *app.AppContext) *Core {
	compatSvc := compat.NewService(appCtx, compat.DefaultObjectiveGroups)
	fraudSvc := fraud.NewService(appCtx)
	tokenSvc := tokens.NewService(appCtx)

	return &Core{
		Compat:     compatSvc,
		Discovery:  discovery.NewService(appCtx, compatSvc),
		Matching:   matching.NewService(appCtx, compatSvc),
		Messaging:  messaging.NewService(appCtx, fraudSvc, tokenSvc),
		Fraud:      fraudSvc,
		Tokens:     tokenSvc,
		Profiles:   profile.NewService(appCtx),
		Moderation: moderation.NewService(appCtx),
	}
}
