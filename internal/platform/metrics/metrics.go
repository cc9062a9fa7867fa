// Package metrics exposes Prometheus instrumentation for the
// notification sweep.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics instruments notification sweeps. A nil *SweepMetrics is
// valid and records nothing, so tests can pass nil.
type SweepMetrics struct {
	sweepsTotal      prometheus.Counter
	sweepDuration    prometheus.Histogram
	usersConsidered  prometheus.Counter
	ineligibleUsers  *prometheus.CounterVec
	sprintsCreated   prometheus.Counter
	pushesSent       prometheus.Counter
	pushFailures     prometheus.Counter
	tokensCleared    prometheus.Counter
	receiptsResolved prometheus.Counter
}

// NewSweepMetrics creates and registers the sweep metrics on the given
// registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	m := &SweepMetrics{
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sweeps_total",
			Help: "Number of notification sweeps executed.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notification_sweep_duration_seconds",
			Help:    "Wall-clock duration of notification sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		usersConsidered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_users_considered_total",
			Help: "Users examined across all sweeps.",
		}),
		ineligibleUsers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_ineligible_users_total",
			Help: "Users skipped per ineligibility reason.",
		}, []string{"reason"}),
		sprintsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sprints_created_total",
			Help: "Pending sprints created by sweeps.",
		}),
		pushesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_pushes_sent_total",
			Help: "Push notifications accepted by the provider.",
		}),
		pushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_push_failures_total",
			Help: "Push notifications rejected by the provider.",
		}),
		tokensCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_tokens_cleared_total",
			Help: "Push tokens cleared after DeviceNotRegistered.",
		}),
		receiptsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_receipts_resolved_total",
			Help: "Delivery receipts fetched and reconciled.",
		}),
	}

	reg.MustRegister(
		m.sweepsTotal,
		m.sweepDuration,
		m.usersConsidered,
		m.ineligibleUsers,
		m.sprintsCreated,
		m.pushesSent,
		m.pushFailures,
		m.tokensCleared,
		m.receiptsResolved,
	)
	return m
}

// ObserveSweep records one completed sweep and its duration in seconds.
func (m *SweepMetrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweepDuration.Observe(seconds)
}

// AddUsersConsidered records examined users.
func (m *SweepMetrics) AddUsersConsidered(n int) {
	if m == nil {
		return
	}
	m.usersConsidered.Add(float64(n))
}

// IncIneligible records one skipped user by reason.
func (m *SweepMetrics) IncIneligible(reason string) {
	if m == nil {
		return
	}
	m.ineligibleUsers.WithLabelValues(reason).Inc()
}

// IncSprintCreated records one pending sprint created.
func (m *SweepMetrics) IncSprintCreated() {
	if m == nil {
		return
	}
	m.sprintsCreated.Inc()
}

// IncPushSent records one accepted push.
func (m *SweepMetrics) IncPushSent() {
	if m == nil {
		return
	}
	m.pushesSent.Inc()
}

// IncPushFailure records one rejected push.
func (m *SweepMetrics) IncPushFailure() {
	if m == nil {
		return
	}
	m.pushFailures.Inc()
}

// IncTokenCleared records one cleared push token.
func (m *SweepMetrics) IncTokenCleared() {
	if m == nil {
		return
	}
	m.tokensCleared.Inc()
}

// AddReceiptsResolved records reconciled delivery receipts.
func (m *SweepMetrics) AddReceiptsResolved(n int) {
	if m == nil {
		return
	}
	m.receiptsResolved.Add(float64(n))
}
