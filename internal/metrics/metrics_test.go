package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncEventsPublished("mission.created")
		m.IncBadgesDuplicate()
		m.SessionOpened()
		m.ObserveAction("link-transactions", "ok", 0.1)
	})
}

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncEventsPublished("mission.completed")
	m.IncEventsPublished("mission.completed")
	m.IncEventsDropped("mission.completed", "notifier")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("mission.completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("mission.completed", "notifier")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealtimeSessions))
}
