// Package ratelimit implements a per-(action, identifier) sliding-window
// throttle with a block period once the window is exhausted.
package ratelimit

import (
	"sync"
	"time"

	"github.com/shida/shida-core/internal/errors"
	"github.com/shida/shida-core/internal/metrics"
)

// Rule is the limit for one action.
type Rule struct {
	MaxRequests int
	Window      time.Duration
	Block       time.Duration
}

const DefaultAction = "default"

// DefaultRules is the stock limits table. Unknown actions fall back to
// the "default" rule.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"login":       {MaxRequests: 5, Window: 300 * time.Second, Block: 900 * time.Second},
		"register":    {MaxRequests: 3, Window: 3600 * time.Second, Block: 3600 * time.Second},
		"swipe":       {MaxRequests: 100, Window: 3600 * time.Second, Block: 600 * time.Second},
		"message":     {MaxRequests: 50, Window: 3600 * time.Second, Block: 600 * time.Second},
		"report":      {MaxRequests: 10, Window: 3600 * time.Second, Block: 1800 * time.Second},
		"api":         {MaxRequests: 200, Window: 60 * time.Second, Block: 300 * time.Second},
		DefaultAction: {MaxRequests: 60, Window: 60 * time.Second, Block: 300 * time.Second},
	}
}

// Limiter is safe for concurrent use. All state lives behind one mutex:
// pruning and appending are read-modify-write on the same slice.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	hits    map[bucket][]time.Time
	blocked map[bucket]time.Time

	now     func() time.Time
	metrics *metrics.Metrics
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(l *Limiter) { l.metrics = m } }

// WithRule sets or replaces the rule for one action.
func WithRule(action string, r Rule) Option { return func(l *Limiter) { l.rules[action] = r } }

func New(opts ...Option) *Limiter {
	l := &Limiter{
		rules:   DefaultRules(),
		hits:    make(map[bucket][]time.Time),
		blocked: make(map[bucket]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// bucket identifies one window. Identifiers are opaque: IPs, ip:port
// pairs and user ids never collide with each other.
type bucket struct {
	action     string
	identifier string
}

func key(identifier, action string) bucket {
	return bucket{action: action, identifier: identifier}
}

func (l *Limiter) rule(action string) Rule {
	if r, ok := l.rules[action]; ok {
		return r
	}
	return l.rules[DefaultAction]
}

// Check records one attempt for identifier/action.
//
// Behavior:
//   - While blocked, the attempt is denied and not counted.
//   - Otherwise timestamps older than the window are pruned; if the
//     remaining count is at the limit the key enters the block period
//     and the attempt is denied.
//   - Else the attempt is recorded and allowed.
//
// Denials return a rate_limited *errors.Error carrying RetryAfter.
func (l *Limiter) Check(identifier, action string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(identifier, action)
	r := l.rule(action)

	if until, ok := l.blocked[k]; ok {
		if now.Before(until) {
			l.metrics.RateLimited(action)
			return false, errors.RateLimited(action, until.Sub(now))
		}
		delete(l.blocked, k)
	}

	hits := l.prune(k, now, r.Window)
	if len(hits) >= r.MaxRequests {
		l.blocked[k] = now.Add(r.Block)
		l.metrics.RateLimited(action)
		return false, errors.RateLimited(action, r.Block)
	}

	l.hits[k] = append(hits, now)
	return true, nil
}

// Remaining returns how many attempts are left in the current window.
func (l *Limiter) Remaining(identifier, action string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.rule(action)
	hits := l.prune(key(identifier, action), l.now(), r.Window)
	if n := r.MaxRequests - len(hits); n > 0 {
		return n
	}
	return 0
}

// Blocked reports whether identifier/action is inside a block period.
func (l *Limiter) Blocked(identifier, action string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blocked[key(identifier, action)]
	return ok && l.now().Before(until)
}

// Reset clears the window and any block for identifier/action. An empty
// action clears every action for the identifier.
func (l *Limiter) Reset(identifier, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if action != "" {
		k := key(identifier, action)
		delete(l.hits, k)
		delete(l.blocked, k)
		return
	}

	for k := range l.hits {
		if k.identifier == identifier {
			delete(l.hits, k)
		}
	}
	for k := range l.blocked {
		if k.identifier == identifier {
			delete(l.blocked, k)
		}
	}
}

// prune drops timestamps at or before now-window. Caller holds mu.
func (l *Limiter) prune(k bucket, now time.Time, window time.Duration) []time.Time {
	hits := l.hits[k]
	cutoff := now.Add(-window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	kept := append([]time.Time(nil), hits[i:]...)
	if len(kept) == 0 {
		delete(l.hits, k)
		return nil
	}
	l.hits[k] = kept
	return kept
}
