package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the event-driven core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	EventsDropped      *prometheus.CounterVec
	SubscriberFailures *prometheus.CounterVec
	BadgesAwarded      *prometheus.CounterVec
	BadgesDuplicate    prometheus.Counter
	RealtimeSessions   prometheus.Gauge
	RealtimeMessages   *prometheus.CounterVec
	RealtimeDropped    prometheus.Counter
	OperatorActions    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "missions_events_published_total",
			Help: "Domain events published on the bus, by tag",
		}, []string{"tag"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "missions_events_dropped_total",
			Help: "Domain events dropped because a subscriber mailbox was full",
		}, []string{"tag", "subscriber"}),
		SubscriberFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "missions_subscriber_failures_total",
			Help: "Subscriber handler errors and panics",
		}, []string{"tag", "subscriber"}),
		BadgesAwarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "missions_badges_awarded_total",
			Help: "Badges awarded automatically, by badge type",
		}, []string{"badge_type"}),
		BadgesDuplicate: f.NewCounter(prometheus.CounterOpts{
			Name: "missions_badges_already_awarded_total",
			Help: "Award attempts skipped because the user already held the badge",
		}),
		RealtimeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "missions_realtime_sessions",
			Help: "Currently connected realtime sessions",
		}),
		RealtimeMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "missions_realtime_messages_total",
			Help: "Realtime messages delivered to sessions, by message type",
		}, []string{"type"}),
		RealtimeDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "missions_realtime_dropped_total",
			Help: "Realtime messages dropped because a session buffer was full",
		}),
		OperatorActions: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "missions_operator_action_seconds",
			Help:    "Write-path action latency, by action and result",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "result"}),
	}
}

func (m *Metrics) IncEventsPublished(tag string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(tag).Inc()
}

func (m *Metrics) IncEventsDropped(tag, subscriber string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(tag, subscriber).Inc()
}

func (m *Metrics) IncSubscriberFailures(tag, subscriber string) {
	if m == nil {
		return
	}
	m.SubscriberFailures.WithLabelValues(tag, subscriber).Inc()
}

func (m *Metrics) IncBadgesAwarded(badgeType string) {
	if m == nil {
		return
	}
	m.BadgesAwarded.WithLabelValues(badgeType).Inc()
}

func (m *Metrics) IncBadgesDuplicate() {
	if m == nil {
		return
	}
	m.BadgesDuplicate.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.RealtimeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.RealtimeSessions.Dec()
}

func (m *Metrics) IncRealtimeMessages(messageType string) {
	if m == nil {
		return
	}
	m.RealtimeMessages.WithLabelValues(messageType).Inc()
}

func (m *Metrics) IncRealtimeDropped() {
	if m == nil {
		return
	}
	m.RealtimeDropped.Inc()
}

func (m *Metrics) ObserveAction(action, result string, seconds float64) {
	if m == nil {
		return
	}
	m.OperatorActions.WithLabelValues(action, result).Observe(seconds)
}
