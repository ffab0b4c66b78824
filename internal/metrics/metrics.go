// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// サインイン結果のラベル値
const (
	OutcomeNewUser  = "new_user"
	OutcomePromoted = "promoted"
	OutcomeExisting = "existing"
	OutcomeFailed   = "failed"
)

// セッション検証結果のラベル値
const (
	SessionValid     = "valid"
	SessionRefreshed = "refreshed"
	SessionInvalid   = "invalid"
	SessionExpired   = "expired"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordSignIn(provider, outcome string)
	RecordSessionValidation(result string)
	RecordGuestCreated()
	RecordCleanupRows(target string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus        *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	signIn            *prometheus.CounterVec
	sessionValidation *prometheus.CounterVec
	guestCreated      prometheus.Counter
	cleanupRows       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wantify_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wantify_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wantify_sign_in_total",
			Help: "プロバイダー・結果別のサインイン数",
		}, []string{"provider", "outcome"}),
		sessionValidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wantify_session_validation_total",
			Help: "結果別のセッション検証数",
		}, []string{"result"}),
		guestCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wantify_guest_created_total",
			Help: "作成されたゲストユーザーの合計数",
		}),
		cleanupRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wantify_cleanup_rows_total",
			Help: "クリーンアップ対象別の処理行数",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.signIn,
		c.sessionValidation,
		c.guestCreated,
		c.cleanupRows,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordSignIn はサインイン結果を記録する。
func (c *Collector) RecordSignIn(provider, outcome string) {
	c.signIn.WithLabelValues(provider, outcome).Inc()
}

// RecordSessionValidation はセッション検証結果を記録する。
func (c *Collector) RecordSessionValidation(result string) {
	c.sessionValidation.WithLabelValues(result).Inc()
}

// RecordGuestCreated はゲストユーザー作成を記録する。
func (c *Collector) RecordGuestCreated() {
	c.guestCreated.Inc()
}

// RecordCleanupRows はクリーンアップで処理した行数を記録する。
func (c *Collector) RecordCleanupRows(target string, count int64) {
	c.cleanupRows.WithLabelValues(target).Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPStatus(int)                {}
func (Nop) RecordRequestDuration(time.Duration) {}
func (Nop) RecordSignIn(string, string)         {}
func (Nop) RecordSessionValidation(string)      {}
func (Nop) RecordGuestCreated()                 {}
func (Nop) RecordCleanupRows(string, int64)     {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
