// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、IDクライアント、ハンドラーから利用する。
type MetricsCollector interface {
	RecordGateDecision(action, category string)
	RecordIdentityCall(operation, result string, duration time.Duration)
	RecordHTTPStatus(method string, status int)
	RecordLoginAttempt(result string)
	RecordRecordCreated(kind string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gateDecisions   *prometheus.CounterVec
	identityCalls   *prometheus.CounterVec
	identityLatency *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
	recordsCreated  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "natillera_gate_decisions_total",
			Help: "セッションゲートの判定結果別の件数",
		}, []string{"action", "category"}),
		identityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "natillera_identity_calls_total",
			Help: "IDバックエンド呼び出しの操作・結果別の件数",
		}, []string{"operation", "result"}),
		identityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "natillera_identity_call_duration_seconds",
			Help:    "IDバックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "natillera_http_responses_total",
			Help: "HTTPメソッドとステータスコード別のレスポンス数",
		}, []string{"method", "status_code"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "natillera_login_attempts_total",
			Help: "ログイン試行の結果別の件数",
		}, []string{"result"}),
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "natillera_records_created_total",
			Help: "API経由で登録された記録の種類別の件数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.gateDecisions,
		c.identityCalls,
		c.identityLatency,
		c.httpStatus,
		c.loginAttempts,
		c.recordsCreated,
	)

	return c
}

// RecordGateDecision はゲートの判定結果を記録する。
func (c *Collector) RecordGateDecision(action, category string) {
	c.gateDecisions.WithLabelValues(action, category).Inc()
}

// RecordIdentityCall はIDバックエンド呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordIdentityCall(operation, result string, duration time.Duration) {
	c.identityCalls.WithLabelValues(operation, result).Inc()
	c.identityLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(method string, status int) {
	c.httpStatus.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordLoginAttempt はログイン試行の結果（success, invalid, error）を記録する。
func (c *Collector) RecordLoginAttempt(result string) {
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordRecordCreated は登録された記録の種類を記録する。
func (c *Collector) RecordRecordCreated(kind string) {
	c.recordsCreated.WithLabelValues(kind).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
