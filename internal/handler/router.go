package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はルーター構築に必要な依存関係。
type RouterDeps struct {
	UserService       UserServiceInterface
	TodoService       TodoServiceInterface
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *middleware.RateLimiter
	HealthChecker     HealthChecker
	Logger            *slog.Logger
	MetricsRecorder   middleware.RequestRecorder
	MetricsHandler    http.Handler
	CORSAllowedOrigin string
}

// NewRouter はアプリケーション全体のHTTPルーターを構築する。
//
// ミドルウェアの適用順序:
//  1. パニックリカバリー
//  2. セキュリティヘッダー
//  3. CORS
//  4. リクエストログ
//  5. メトリクス記録
//  6. 全体レートリミット（/api配下）
//  7. 経路別レートリミット・認証
func NewRouter(deps RouterDeps) http.Handler {
	userHandler := NewUserHandler(deps.UserService)
	todoHandler := NewTodoHandler(deps.TodoService)
	authMiddleware := middleware.NewAuthMiddleware(deps.TokenVerifier)

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	// 運用エンドポイントはレートリミットの対象外
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.DefaultMiddleware())

		r.Route("/api/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())

			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			// ログアウトのみベアラートークン必須
			r.With(authMiddleware).Post("/logout", userHandler.Logout)
		})

		r.Route("/api/todos", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(deps.RateLimiter.TodoMiddleware())

			r.Post("/", todoHandler.Create)
			r.Get("/", todoHandler.List)
			r.Get("/{id}", todoHandler.Get)
			r.Put("/{id}", todoHandler.Update)
			r.Delete("/{id}", todoHandler.Delete)
		})
	})

	return r
}

// healthHandler はデータベース接続を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("ヘルスチェックに失敗しました", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
