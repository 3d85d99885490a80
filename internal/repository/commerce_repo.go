package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/db"
)

// CommerceRepository covers pricing plans and subscriptions.
type CommerceRepository struct {
	db *gorm.DB
}

func NewCommerceRepository(database *gorm.DB) *CommerceRepository {
	return &CommerceRepository{db: database}
}

func (r *CommerceRepository) WithTx(tx *gorm.DB) *CommerceRepository {
	return &CommerceRepository{db: tx}
}

// GetPlan loads a plan by id. Missing rows surface as gorm.ErrRecordNotFound.
func (r *CommerceRepository) GetPlan(ctx context.Context, id uint64) (*db.PricingPlan, error) {
	var p db.PricingPlan
	if err := r.db.WithContext(ctx).Take(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ActivePlans lists active plans of planType (all types when empty),
// cheapest first.
func (r *CommerceRepository) ActivePlans(ctx context.Context, planType string) ([]db.PricingPlan, error) {
	var plans []db.PricingPlan
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if planType != "" {
		q = q.Where("plan_type = ?", planType)
	}
	err := q.Order("price ASC, id ASC").Find(&plans).Error
	return plans, err
}

func (r *CommerceRepository) CreatePlan(ctx context.Context, p *db.PricingPlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// CancelActive marks every active subscription of the user cancelled.
func (r *CommerceRepository) CancelActive(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Subscription{}).
		Where("user_id = ? AND status = ?", userID, db.SubscriptionActive).
		Update("status", db.SubscriptionCancelled).Error
}

// DisableAutoRenew stops the renewal of one subscription; it stays active
// until it expires.
func (r *CommerceRepository) DisableAutoRenew(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Subscription{}).
		Where("id = ?", id).
		Update("auto_renew", false).Error
}

func (r *CommerceRepository) CreateSubscription(ctx context.Context, s *db.Subscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ActiveSubscription returns the user's current subscription, or nil.
func (r *CommerceRepository) ActiveSubscription(ctx context.Context, userID uint64) (*db.Subscription, error) {
	var subs []db.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, db.SubscriptionActive).
		Order("id DESC").
		Limit(1).
		Find(&subs).Error
	if err != nil || len(subs) == 0 {
		return nil, err
	}
	return &subs[0], nil
}
