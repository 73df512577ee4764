package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.ReservationsTotal)
	assert.NotNil(t, m.NotificationsTotal)
	assert.NotNil(t, m.OutboxPending)
}

func TestReservationOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ReservationOutcome(OutcomeReserved)
	m.ReservationOutcome(OutcomeReserved)
	m.ReservationOutcome(OutcomeCapacityExceeded)
	m.ReservationOutcome(OutcomeReplayed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues(OutcomeReserved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues(OutcomeCapacityExceeded)))
	assert.Equal(t, 3, testutil.CollectAndCount(m.ReservationsTotal))
}

func TestNotificationAndOutbox(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.Notification("reservation_created", "delivered")
	m.Notification("reservation_created", "retry")
	m.Notification("reservation_cancelled", "delivered")
	m.OutboxDue(7)

	assert.Equal(t, 3, testutil.CollectAndCount(m.NotificationsTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.OutboxPending))
}

func TestReleaseTransitionLock(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ReleaseOutcome("released")
	m.Transition("confirm")
	m.Transition("confirm")
	m.LockObserved("acquire", "success", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReleasesTotal.WithLabelValues("released")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("confirm")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "distributed_lock_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNilMetricsは何もしない(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReservationOutcome(OutcomeReserved)
		m.ReleaseOutcome("noop")
		m.Transition("complete")
		m.Notification("k", "r")
		m.OutboxDue(1)
		m.LockObserved("acquire", "failed", 0.1)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestGet_Init後のインスタンス(t *testing.T) {
	old := defaultMetrics
	t.Cleanup(func() { defaultMetrics = old })

	m := NewWithRegistry(prometheus.NewRegistry())
	defaultMetrics = m
	assert.Same(t, m, Get())
}
