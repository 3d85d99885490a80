// Package notify dispatches user notifications. Dispatch is fire-and-forget:
// a failed send is logged and never fails the operation that triggered it.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TypeMatch        = "match"
	TypeMessage      = "message"
	TypeLike         = "like"
	TypeTokens       = "tokens"
	TypeVIP          = "vip"
	TypeVerification = "verification"
	TypeModeration   = "moderation"
)

type Notification struct {
	EventID   string    `json:"event_id"`
	UserID    uint64    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	ActionURL string    `json:"action_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier accepts notifications. Implementations must not block callers
// on failure and must not return errors.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// stamp fills the event id and timestamp once, so every sink of a fan-out
// sees the same event.
func stamp(n Notification) Notification {
	if n.EventID == "" {
		n.EventID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return n
}

// Fanout sends to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	n = stamp(n)
	for _, sink := range f {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}

// Nop drops everything.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

// Recorder keeps notifications in memory; handy in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, stamp(n))
}

// All returns everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// ForUser returns what was sent to userID.
func (r *Recorder) ForUser(userID uint64) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
