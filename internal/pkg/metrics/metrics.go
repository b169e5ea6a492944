package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 台帳操作の総数（operation: reserve/release, status: success/conflict/not_found/error）
	CapacityOperationsTotal *prometheus.CounterVec

	// 台帳操作のレイテンシ（operation: reserve/release）
	CapacityOperationDuration *prometheus.HistogramVec

	// Webhook配信の総数（status: delivered/failed）
	WebhookDeliveriesTotal *prometheus.CounterVec

	// ステータス再導出ワーカーが修正した行数
	StatusDriftRepairsTotal prometheus.Counter

	// 残席キャッシュへの問い合わせ（result: hit/miss/error）
	AvailabilityCacheTotal *prometheus.CounterVec
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
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		CapacityOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capacity_operations_total",
				Help: "Total number of capacity ledger operations",
			},
			[]string{"operation", "status"},
		),
		CapacityOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capacity_operation_duration_seconds",
				Help:    "Time spent on atomic capacity updates",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		WebhookDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_deliveries_total",
				Help: "Total number of outbound webhook deliveries",
			},
			[]string{"status"},
		),
		StatusDriftRepairsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "status_drift_repairs_total",
				Help: "Departure rows whose group status was re-derived by the reconciler",
			},
		),
		AvailabilityCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availability_cache_requests_total",
				Help: "Availability cache lookups by result",
			},
			[]string{"result"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CapacityOperationsTotal,
		m.CapacityOperationDuration,
		m.WebhookDeliveriesTotal,
		m.StatusDriftRepairsTotal,
		m.AvailabilityCacheTotal,
	)

	return m
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
