package tokens

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
)

// Plans lists active pricing plans of planType (all when empty).
func (s *Service) Plans(ctx context.Context, planType string) ([]db.PricingPlan, error) {
	plans, err := s.commerce.ActivePlans(ctx, planType)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (s *Service) activePlan(ctx context.Context, tx *gorm.DB, planID uint64, planType string) (*db.PricingPlan, error) {
	plan, err := s.commerce.WithTx(tx).GetPlan(ctx, planID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("plan")
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if !plan.IsActive {
		return nil, errors.NotFound("plan")
	}
	if plan.PlanType != planType {
		return nil, errors.Newf(errors.KindValidation, "wrong_plan_type", "plan %d is not a %s plan", planID, planType)
	}
	return plan, nil
}

// PurchasePack credits the tokens of a token-pack plan. Payment is
// assumed confirmed by the caller.
func (s *Service) PurchasePack(ctx context.Context, userID, planID uint64, payment Payment) (CreditResult, error) {
	s.appCtx.Logger.Debug("PurchasePack called", "user_id", userID, "plan_id", planID)

	var res CreditResult
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.activePlan(ctx, tx, planID, db.PlanTokens)
		if err != nil {
			return err
		}
		price := plan.Price
		res, err = s.CreditTx(ctx, tx, userID, plan.TokensIncluded, db.TxTypePurchase, CreditOptions{
			Description: "Pack purchase: " + plan.Name,
			Price:       &price,
			Payment:     payment,
		})
		return err
	})
	return res, err
}

type SubscriptionResult struct {
	Subscription db.Subscription
	Tier         string
	TokensAdded  int64
}

// tierForPlan maps a subscription plan to its VIP tier.
func tierForPlan(name string) string {
	if strings.Contains(name, TierPlatinum) {
		return TierPlatinum
	}
	return TierGold
}

// Subscribe starts a subscription plan for userID.
//
// Behavior:
//   - Any active subscription is cancelled first.
//   - The user becomes VIP (Platinum when the plan name says so, else
//     Gold) until the plan's duration elapses; no duration means no expiry.
//   - Bonus tokens of the plan are credited as subscription_bonus.
func (s *Service) Subscribe(ctx context.Context, userID, planID uint64, payment Payment) (SubscriptionResult, error) {
	s.appCtx.Logger.Debug("Subscribe called", "user_id", userID, "plan_id", planID)

	now := s.appCtx.Clock()
	var res SubscriptionResult

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.users.WithTx(tx).Lock(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if locked[userID] == nil {
			return errors.NotFound("user")
		}

		plan, err := s.activePlan(ctx, tx, planID, db.PlanSubscription)
		if err != nil {
			return err
		}

		commerce := s.commerce.WithTx(tx)
		if err := commerce.CancelActive(ctx, userID); err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}

		var expiresAt *time.Time
		if plan.DurationDays > 0 {
			t := now.AddDate(0, 0, plan.DurationDays)
			expiresAt = &t
		}

		sub := db.Subscription{
			UserID:           userID,
			PlanID:           plan.ID,
			PlanName:         plan.Name,
			Price:            plan.Price,
			Currency:         plan.Currency,
			PaymentMethod:    payment.Method,
			PaymentReference: payment.Reference,
			Status:           db.SubscriptionActive,
			StartsAt:         now,
			ExpiresAt:        expiresAt,
			AutoRenew:        true,
			CreatedAt:        now,
		}
		if err := commerce.CreateSubscription(ctx, &sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		tier := tierForPlan(plan.Name)
		if err := s.users.WithTx(tx).SetVIP(ctx, userID, tier, expiresAt); err != nil {
			return fmt.Errorf("grant vip: %w", err)
		}

		if plan.TokensIncluded > 0 {
			zero := 0.0
			if _, err := s.CreditTx(ctx, tx, userID, plan.TokensIncluded, db.TxTypeSubscriptionBonus, CreditOptions{
				Description: "Subscription bonus: " + plan.Name,
				Price:       &zero,
			}); err != nil {
				return err
			}
		}

		res = SubscriptionResult{Subscription: sub, Tier: tier, TokensAdded: plan.TokensIncluded}
		return nil
	})
	if err != nil {
		return SubscriptionResult{}, err
	}

	s.appCtx.Logger.Info("subscription started", "user_id", userID, "plan", res.Subscription.PlanName, "tier", res.Tier)
	return res, nil
}

type PromoResult struct {
	Code            string
	Kind            string
	BonusTokens     int64
	TrialDays       int
	DiscountPercent float64
}

// PromoDescription is the ledger description marking a redemption.
func PromoDescription(code string) string {
	return "Promo code: " + code
}

// RedeemPromo applies a promo code for userID.
//
// Behavior:
//   - Codes are case-insensitive.
//   - The code must be active, inside its validity window and under its
//     usage cap; a user can redeem a given code once.
//   - tokens: credits the bonus. trial: grants Gold VIP for the given
//     number of days. percent: only recorded, never auto-applied.
//   - Every kind writes a "Promo code: CODE" ledger row (amount 0 unless
//     tokens are credited) and bumps the usage counter, atomically.
//
// Example:
//
//	svc.RedeemPromo(ctx, 7, "welcome10") // -> {Kind: "tokens", BonusTokens: 10}
//	svc.RedeemPromo(ctx, 7, "WELCOME10") // -> already_used
func (s *Service) RedeemPromo(ctx context.Context, userID uint64, code string) (PromoResult, error) {
	s.appCtx.Logger.Debug("RedeemPromo called", "user_id", userID, "code", code)

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PromoResult{}, errors.ErrPromoInvalid
	}
	now := s.appCtx.Clock()
	var res PromoResult

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		locked, err := users.Lock(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if locked[userID] == nil {
			return errors.NotFound("user")
		}

		promos := s.promos.WithTx(tx)
		promo, err := promos.LockActive(ctx, code)
		if err != nil {
			return fmt.Errorf("load promo: %w", err)
		}
		if promo == nil {
			return errors.ErrPromoInvalid
		}
		if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
			return errors.ErrPromoNotYetValid
		}
		if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
			return errors.ErrPromoExpired
		}
		if promo.MaxUses > 0 && promo.CurrentUses >= promo.MaxUses {
			return errors.ErrPromoExhausted
		}

		desc := PromoDescription(promo.Code)
		used, err := s.ledger.WithTx(tx).HasDescription(ctx, userID, desc)
		if err != nil {
			return fmt.Errorf("check promo usage: %w", err)
		}
		if used {
			return errors.ErrPromoAlreadyUsed
		}

		res = PromoResult{Code: promo.Code, Kind: promo.DiscountType}
		var bonus int64

		switch promo.DiscountType {
		case db.PromoTokens:
			bonus = int64(promo.DiscountValue)
			res.BonusTokens = bonus
		case db.PromoTrial:
			res.TrialDays = int(promo.DiscountValue)
			until := now.AddDate(0, 0, res.TrialDays)
			if err := users.SetVIP(ctx, userID, TierGold, &until); err != nil {
				return fmt.Errorf("grant trial: %w", err)
			}
		case db.PromoPercent:
			res.DiscountPercent = promo.DiscountValue
		default:
			return errors.Newf(errors.KindValidation, "promo_unsupported", "unsupported promo kind %q", promo.DiscountType)
		}

		if _, err := s.CreditTx(ctx, tx, userID, bonus, db.TxTypePromo, CreditOptions{Description: desc}); err != nil {
			return err
		}
		if err := promos.IncrementUses(ctx, promo.ID); err != nil {
			return fmt.Errorf("increment promo uses: %w", err)
		}
		return nil
	})
	if err != nil {
		return PromoResult{}, err
	}
	return res, nil
}

// CancelSubscription turns auto-renew off on the user's active
// subscription. The subscription, and the VIP it grants, run until
// ExpiresAt. No active subscription is not_found.
func (s *Service) CancelSubscription(ctx context.Context, userID uint64) (*db.Subscription, error) {
	s.appCtx.Logger.Debug("CancelSubscription called", "user_id", userID)

	sub, err := s.commerce.ActiveSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return nil, errors.NotFound("subscription")
	}
	if !sub.AutoRenew {
		return sub, nil
	}
	if err := s.commerce.DisableAutoRenew(ctx, sub.ID); err != nil {
		return nil, fmt.Errorf("disable auto renew: %w", err)
	}
	sub.AutoRenew = false
	return sub, nil
}

// CurrentSubscription returns the user's active subscription, or nil.
func (s *Service) CurrentSubscription(ctx context.Context, userID uint64) (*db.Subscription, error) {
	sub, err := s.commerce.ActiveSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}
