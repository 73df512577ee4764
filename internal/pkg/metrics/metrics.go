package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 予約結果ラベル
const (
	OutcomeReserved         = "reserved"
	OutcomeReplayed         = "replayed"
	OutcomeCapacityExceeded = "capacity_exceeded"
	OutcomeDuplicate        = "duplicate"
	OutcomeRejected         = "rejected"
	OutcomeError            = "error"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約試行の総数（outcome）
	ReservationsTotal *prometheus.CounterVec

	// 予約取消の総数（outcome: released, noop, error）
	ReleasesTotal *prometheus.CounterVec

	// 職員による状態遷移（transition: confirm, complete, no_show）
	TransitionsTotal *prometheus.CounterVec

	// 通知の送信結果（kind, result: delivered, retry, failed）
	NotificationsTotal *prometheus.CounterVec

	// 未送信の通知件数
	OutboxPending prometheus.Gauge

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slot_reservations_total",
				Help: "Reservation attempts by outcome",
			},
			[]string{"outcome"},
		),
		ReleasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slot_releases_total",
				Help: "Reservation releases by outcome",
			},
			[]string{"outcome"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_transitions_total",
				Help: "Officer driven reservation status transitions",
			},
			[]string{"transition"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification delivery attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		OutboxPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "notification_outbox_due",
				Help: "Outbox messages picked up in the last relay cycle",
			},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.ReleasesTotal,
		m.TransitionsTotal,
		m.NotificationsTotal,
		m.OutboxPending,
		m.DistributedLockDuration,
	)

	return m
}

// ObserveHTTP はリクエスト1件の件数とレイテンシを記録する（nil安全）
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ReservationOutcome は予約結果を1件数える（nil安全）
func (m *Metrics) ReservationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(outcome).Inc()
}

// ReleaseOutcome は取消結果を1件数える（nil安全）
func (m *Metrics) ReleaseOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ReleasesTotal.WithLabelValues(outcome).Inc()
}

// Transition は状態遷移を1件数える（nil安全）
func (m *Metrics) Transition(name string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(name).Inc()
}

// Notification は通知送信結果を1件数える（nil安全）
func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}

// OutboxDue は直近サイクルの対象件数を記録する（nil安全）
func (m *Metrics) OutboxDue(n int) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// LockObserved はロック操作時間を記録する（nil安全）
func (m *Metrics) LockObserved(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(seconds)
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
