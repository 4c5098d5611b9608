package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder はHTTPリクエストメトリクスの記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int)
	RecordHTTPLatency(duration time.Duration)
	RecordRateLimited()
	RecordAuthFailure()
}

// NewMetricsMiddleware はリクエストごとのメトリクスを記録するミドルウェアを返す。
// パスラベルにはルーティングパターンではなく先頭2セグメントのみを使用し、
// ID入りパスによるラベル爆発を避ける。
func NewMetricsMiddleware(recorder RequestRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(r.Method, pathLabel(r.URL.Path), rec.statusCode)
			recorder.RecordHTTPLatency(time.Since(start))

			switch rec.statusCode {
			case http.StatusTooManyRequests:
				recorder.RecordRateLimited()
			case http.StatusUnauthorized, http.StatusForbidden:
				recorder.RecordAuthFailure()
			}
		})
	}
}

// pathLabel はメトリクスラベル用にパスを先頭2セグメントに正規化する。
// 例: /api/todos/123 → /api/todos
func pathLabel(path string) string {
	segments := 0
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			segments++
			if segments == 2 {
				return path[:i]
			}
		}
	}
	return path
}
