package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the coarse error category callers branch on.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInsufficient Kind = "insufficient_resource"
	KindRateLimited  Kind = "rate_limited"
	KindFraudBlocked Kind = "fraud_blocked"
)

// Error is the single error type returned by the core services.
// Reason is a stable machine-readable code (e.g. "duplicate_like");
// Message is a human-readable description.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	// RetryAfter is only set for KindRateLimited.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Message)
}

// Is matches another *Error with the same kind and reason, so sentinels
// work with errors.Is even when the message differs.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// New builds an *Error.
func New(kind Kind, reason, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: msg}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Validation is shorthand for a validation_error with reason "invalid_input".
func Validation(msg string) *Error {
	return New(KindValidation, "invalid_input", msg)
}

// NotFound is shorthand for a not_found error on the given entity.
func NotFound(entity string) *Error {
	return Newf(KindNotFound, entity+"_not_found", "%s not found", entity)
}

// RateLimited builds a rate_limited error carrying the retry delay.
func RateLimited(action string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Reason:     "rate_limited",
		Message:    fmt.Sprintf("too many %s attempts, retry in %s", action, retryAfter.Round(time.Second)),
		RetryAfter: retryAfter,
	}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrTargetUnavailable  = New(KindNotFound, "target_unavailable", "target user is unavailable")
	ErrDuplicateLike      = New(KindConflict, "duplicate_like", "profile already liked")
	ErrInsufficientTokens = New(KindInsufficient, "insufficient_tokens", "not enough tokens")
	ErrNotMatchParty      = New(KindUnauthorized, "not_match_party", "user is not part of this match")
	ErrVIPRequired        = New(KindUnauthorized, "vip_required", "VIP feature")
	ErrMessageBlocked     = New(KindFraudBlocked, "message_blocked", "message rejected")
	ErrAlreadyGreeted     = New(KindConflict, "already_greeted", "match already greeted")

	ErrPromoInvalid     = New(KindNotFound, "promo_invalid", "invalid promo code")
	ErrPromoNotYetValid = New(KindValidation, "promo_not_yet_valid", "promo code not valid yet")
	ErrPromoExpired     = New(KindValidation, "promo_expired", "promo code expired")
	ErrPromoExhausted   = New(KindInsufficient, "promo_exhausted", "promo code usage limit reached")
	ErrPromoAlreadyUsed = New(KindConflict, "already_used", "promo code already redeemed")

	ErrAlreadyVerified = New(KindConflict, "already_verified", "profile already verified")
	ErrNotBanned       = New(KindConflict, "not_banned", "user is not banned")
)
