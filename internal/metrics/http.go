package metrics

import (
	"net/http"
	"time"
)

// statusWriter はレスポンスのステータスコードを記録する。
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Middleware はレスポンスのステータスコードと処理時間を記録するミドルウェアを返す。
func Middleware(collector MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			collector.RecordHTTPStatus(sw.status)
			collector.RecordRequestDuration(time.Since(start))
		})
	}
}
