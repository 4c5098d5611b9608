package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/todoman/internal/identity"
)

// principalHolder は内側のミドルウェアが解決したプリンシパルを
// 外側のロギングミドルウェアへ伝えるためのリクエストスコープの入れ物。
// コンテキストの値は内側にしか流れないため、認証ミドルウェアが
// この入れ物を書き換えることでレスポンス後のログに反映させる。
type principalHolder struct {
	principal *identity.Principal
}

// principalHolderContextKey はリクエストコンテキストにprincipalHolderを格納するためのキー。
var principalHolderContextKey = contextKey("principalHolder")

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// 後段の認証ミドルウェアが解決したプリンシパルを受け取るための入れ物
			holder := &principalHolder{}
			r = r.WithContext(context.WithValue(r.Context(), principalHolderContextKey, holder))

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			// 認証ミドルウェアがプリンシパルを解決した場合はユーザーIDを追加
			if holder.principal != nil {
				attrs = append(attrs, slog.String("user_id", holder.principal.ID))
			} else if principal, err := PrincipalFromContext(r.Context()); err == nil {
				// 呼び出し側が事前にコンテキストへ注入している場合
				attrs = append(attrs, slog.String("user_id", principal.ID))
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
