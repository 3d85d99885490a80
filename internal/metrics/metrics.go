package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shida"

// Metrics groups the core counters. A nil *Metrics is valid and records
// nothing, so services can be built without a registry.
type Metrics struct {
	LikesRecorded     prometheus.Counter
	MatchesCreated    prometheus.Counter
	TokensSpent       *prometheus.CounterVec
	FraudVerdicts     *prometheus.CounterVec
	RateLimitDenials  *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	NotificationsLost *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LikesRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "likes_total",
			Help:      "Likes persisted",
		}),
		MatchesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Matches created from mutual likes",
		}),
		// Labels: action (greet_match, super_like, ...)
		TokensSpent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "spent_total",
			Help:      "Tokens spent by action",
		}, []string{"action"}),
		// Labels: kind (message, behavior), action (allow, flag, block, none, monitor, review, ban)
		FraudVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fraud",
			Name:      "verdicts_total",
			Help:      "Fraud heuristic verdicts",
		}, []string{"kind", "action"}),
		RateLimitDenials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Requests denied by the rate limiter",
		}, []string{"action"}),
		// Labels: type (match, message, tokens, ...), sink (store, kafka)
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Notifications dispatched",
		}, []string{"type", "sink"}),
		// Labels: sink, reason (queue_full, write_failed)
		NotificationsLost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "lost_total",
			Help:      "Notifications dropped before reaching a sink",
		}, []string{"sink", "reason"}),
	}
}

func (m *Metrics) Like() {
	if m == nil {
		return
	}
	m.LikesRecorded.Inc()
}

func (m *Metrics) Match() {
	if m == nil {
		return
	}
	m.MatchesCreated.Inc()
}

func (m *Metrics) Spend(action string, amount int64) {
	if m == nil {
		return
	}
	m.TokensSpent.WithLabelValues(action).Add(float64(amount))
}

func (m *Metrics) Fraud(kind, action string) {
	if m == nil {
		return
	}
	m.FraudVerdicts.WithLabelValues(kind, action).Inc()
}

func (m *Metrics) RateLimited(action string) {
	if m == nil {
		return
	}
	m.RateLimitDenials.WithLabelValues(action).Inc()
}

func (m *Metrics) Notified(typ, sink string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(typ, sink).Inc()
}

func (m *Metrics) NotifyLost(sink, reason string) {
	if m == nil {
		return
	}
	m.NotificationsLost.WithLabelValues(sink, reason).Inc()
}
