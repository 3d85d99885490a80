// Package tokens owns token balances: spending, crediting, purchases,
// subscriptions and promo codes. Every balance change is paired with one
// ledger row written in the same transaction.
package tokens

import (
	"context"
	stdErrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/repository"
)

type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	ledger   *repository.LedgerRepository
	promos   *repository.PromoRepository
	commerce *repository.CommerceRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		ledger:   repository.NewLedgerRepository(appCtx.DB),
		promos:   repository.NewPromoRepository(appCtx.DB),
		commerce: repository.NewCommerceRepository(appCtx.DB),
	}
}

type SpendResult struct {
	Remaining int64
	Used      int64
}

type CreditResult struct {
	Total int64
	Added int64
}

// Payment is the externally confirmed payment metadata of a purchase.
type Payment struct {
	Method    string
	Reference string
}

// CreditOptions annotates a credit's ledger row.
type CreditOptions struct {
	Description string
	Price       *float64
	Payment     Payment
}

// Spend debits the cost of action from userID.
//
// Behavior:
//   - Fails with insufficient_tokens when the balance is below the cost;
//     nothing is written in that case.
//   - On success the balance drops by exactly the cost and one ledger row
//     with the negative amount is appended, atomically.
//   - When the remaining balance is LowBalanceThreshold or less, a
//     low-tokens notification is sent after commit.
//
// Example:
//
//	svc.Spend(ctx, 7, "super_like", "") // -> {Remaining: 2, Used: 3}
func (s *Service) Spend(ctx context.Context, userID uint64, action, description string) (SpendResult, error) {
	s.appCtx.Logger.Debug("Spend called", "user_id", userID, "action", action)

	var res SpendResult
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.SpendTx(ctx, tx, userID, action, description)
		return err
	})
	if err != nil {
		return SpendResult{}, err
	}

	s.AfterSpend(ctx, userID, action, res)
	return res, nil
}

// SpendTx is Spend inside the caller's transaction. The caller must call
// AfterSpend once the transaction commits.
func (s *Service) SpendTx(ctx context.Context, tx *gorm.DB, userID uint64, action, description string) (SpendResult, error) {
	cost := Cost(action)
	users := s.users.WithTx(tx)

	ok, err := users.DebitTokens(ctx, userID, cost)
	if err != nil {
		return SpendResult{}, fmt.Errorf("debit tokens: %w", err)
	}
	if !ok {
		if _, err := users.Get(ctx, userID); err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return SpendResult{}, errors.NotFound("user")
			}
			return SpendResult{}, fmt.Errorf("load user: %w", err)
		}
		return SpendResult{}, errors.ErrInsufficientTokens
	}

	if description == "" {
		description = "Used: " + action
	}
	if err := s.ledger.WithTx(tx).Append(ctx, &db.TokenTransaction{
		UserID:          userID,
		Amount:          -cost,
		TransactionType: db.TxTypeUse,
		Description:     description,
		CreatedAt:       s.appCtx.Clock(),
	}); err != nil {
		return SpendResult{}, fmt.Errorf("append ledger: %w", err)
	}

	remaining, err := users.Balance(ctx, userID)
	if err != nil {
		return SpendResult{}, fmt.Errorf("read balance: %w", err)
	}
	return SpendResult{Remaining: remaining, Used: cost}, nil
}

// AfterSpend records metrics and sends the low-tokens warning.
func (s *Service) AfterSpend(ctx context.Context, userID uint64, action string, res SpendResult) {
	s.appCtx.Metrics.Spend(action, res.Used)
	if res.Remaining > LowBalanceThreshold {
		return
	}
	s.appCtx.Notify(ctx, notify.Notification{
		UserID:    userID,
		Title:     "Low tokens",
		Message:   fmt.Sprintf("Only %d token(s) left. Top up to keep meeting people.", res.Remaining),
		Type:      notify.TypeTokens,
		ActionURL: "/market",
	})
}

// Credit adds amount tokens to userID with a ledger row of txType
// (purchase when empty). Negative amounts are rejected.
func (s *Service) Credit(ctx context.Context, userID uint64, amount int64, txType string, opts CreditOptions) (CreditResult, error) {
	s.appCtx.Logger.Debug("Credit called", "user_id", userID, "amount", amount, "type", txType)

	var res CreditResult
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.CreditTx(ctx, tx, userID, amount, txType, opts)
		return err
	})
	return res, err
}

// CreditTx is Credit inside the caller's transaction.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID uint64, amount int64, txType string, opts CreditOptions) (CreditResult, error) {
	if amount < 0 {
		return CreditResult{}, errors.Validation("credit amount must not be negative")
	}
	if txType == "" {
		txType = db.TxTypePurchase
	}
	users := s.users.WithTx(tx)

	ok, err := users.CreditTokens(ctx, userID, amount)
	if err != nil {
		return CreditResult{}, fmt.Errorf("credit tokens: %w", err)
	}
	if !ok {
		return CreditResult{}, errors.NotFound("user")
	}

	desc := opts.Description
	if desc == "" {
		desc = fmt.Sprintf("Purchase of %d tokens", amount)
	}
	if err := s.ledger.WithTx(tx).Append(ctx, &db.TokenTransaction{
		UserID:           userID,
		Amount:           amount,
		TransactionType:  txType,
		Description:      desc,
		Price:            opts.Price,
		PaymentMethod:    opts.Payment.Method,
		PaymentReference: opts.Payment.Reference,
		CreatedAt:        s.appCtx.Clock(),
	}); err != nil {
		return CreditResult{}, fmt.Errorf("append ledger: %w", err)
	}

	total, err := users.Balance(ctx, userID)
	if err != nil {
		return CreditResult{}, fmt.Errorf("read balance: %w", err)
	}
	return CreditResult{Total: total, Added: amount}, nil
}

// History returns the newest ledger rows of userID. limit <= 0 means 50.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]db.TokenTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.ledger.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger history: %w", err)
	}
	return rows, nil
}
