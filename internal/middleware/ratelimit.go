package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// TierConfig は1つのレート制限層の設定を保持する。
// 固定ウィンドウ方式: ウィンドウ内のリクエスト数がMaxを超えた時点で、
// ウィンドウの残り時間が経過するまで拒否する。
type TierConfig struct {
	Window  time.Duration // カウント対象の時間ウィンドウ
	Max     int           // ウィンドウあたりの最大リクエスト数
	Message string        // 429レスポンスのメッセージ
}

// RateLimiterConfig はレート制限の設定を保持する。
// 認証系・ToDo系・その他の3層が互いに独立したウィンドウでカウントする。
type RateLimiterConfig struct {
	Auth    TierConfig // 認証エンドポイント用（狭いウィンドウ・低い上限）
	Todo    TierConfig // ToDoエンドポイント用（中庸）
	Default TierConfig // その他全トラフィック用（緩め）

	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔

	// KeyFunc はリクエストからカウントキーを導出する。
	// nilの場合はクライアントのネットワークアドレスを使用する。
	KeyFunc func(r *http.Request) string
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: 認証 5 req/15min、ToDo 30 req/min、その他 100 req/min
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Auth: TierConfig{
			Window:  15 * time.Minute,
			Max:     5,
			Message: "Too many login attempts, please try again after 15 minutes",
		},
		Todo: TierConfig{
			Window:  time.Minute,
			Max:     30,
			Message: "Too many requests, please try again later",
		},
		Default: TierConfig{
			Window:  time.Minute,
			Max:     100,
			Message: "Too many requests, please try again later",
		},
		CleanupInterval: 5 * time.Minute,
	}
}

// windowCounter は1キー分の固定ウィンドウカウンタを保持する。
type windowCounter struct {
	windowStart time.Time
	count       int
	lastAccess  time.Time
}

// tier は1層分のカウンタ群をミューテックスで保護して管理する。
type tier struct {
	config TierConfig

	mu       sync.Mutex
	counters map[string]*windowCounter
}

func newTier(config TierConfig) *tier {
	return &tier{
		config:   config,
		counters: make(map[string]*windowCounter),
	}
}

// allow はキーのカウンタをインクリメントし、上限超過を判定する。
// 拒否時はウィンドウの残り時間を返す。
// インクリメントと比較は同一ロック内で行う（並行バースト時の過小カウント防止）。
func (t *tier) allow(key string, now time.Time) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, exists := t.counters[key]
	if !exists || now.Sub(c.windowStart) >= t.config.Window {
		// 新規キー、またはウィンドウが切り替わった
		c = &windowCounter{windowStart: now}
		t.counters[key] = c
	}

	c.count++
	c.lastAccess = now

	if c.count > t.config.Max {
		return false, c.windowStart.Add(t.config.Window).Sub(now)
	}

	return true, 0
}

// keyCount は現在管理されているカウンタのエントリ数を返す。
func (t *tier) keyCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counters)
}

// cleanup は最終アクセスからttlを超えたエントリを削除する。
// 進行中のウィンドウを破棄しないよう、ttlはウィンドウ長を下回らないこと。
func (t *tier) cleanup(now time.Time, ttl time.Duration) {
	if ttl < t.config.Window {
		ttl = t.config.Window
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for key, c := range t.counters {
		if now.Sub(c.lastAccess) > ttl {
			delete(t.counters, key)
		}
	}
}

// RateLimiter はクライアント単位のレート制限を管理する。
// 状態はプロセスローカルで揮発的（再起動で消えてよい）。
type RateLimiter struct {
	config RateLimiterConfig

	auth *tier
	todo *tier
	def  *tier

	keyFunc func(r *http.Request) string
	stopCh  chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = clientAddressKey
	}

	rl := &RateLimiter{
		config:  config,
		auth:    newTier(config.Auth),
		todo:    newTier(config.Todo),
		def:     newTier(config.Default),
		keyFunc: keyFunc,
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// AuthMiddleware は認証エンドポイント用のレート制限ミドルウェアを返す。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.auth, "auth")
}

// TodoMiddleware はToDoエンドポイント用のレート制限ミドルウェアを返す。
// その他トラフィック用のレート制限とは独立に動作する。
func (rl *RateLimiter) TodoMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.todo, "todo")
}

// DefaultMiddleware はその他全トラフィック用のレート制限ミドルウェアを返す。
func (rl *RateLimiter) DefaultMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.def, "default")
}

// AuthKeyCount は認証層のカウンタエントリ数を返す。テストおよびメトリクス用。
func (rl *RateLimiter) AuthKeyCount() int { return rl.auth.keyCount() }

// TodoKeyCount はToDo層のカウンタエントリ数を返す。テストおよびメトリクス用。
func (rl *RateLimiter) TodoKeyCount() int { return rl.todo.keyCount() }

// DefaultKeyCount はその他層のカウンタエントリ数を返す。テストおよびメトリクス用。
func (rl *RateLimiter) DefaultKeyCount() int { return rl.def.keyCount() }

// middleware は指定層のレート制限ミドルウェアを生成する。
func (rl *RateLimiter) middleware(t *tier, tierName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)

			allowed, retryAfter := t.allow(key, time.Now())
			if !allowed {
				writeRateLimitResponse(w, t.config.Message, retryAfter)
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", tierName),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			ttl := rl.config.CleanupInterval * 2
			rl.auth.cleanup(now, ttl)
			rl.todo.cleanup(now, ttl)
			rl.def.cleanup(now, ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// clientAddressKey はクライアントのネットワークアドレスをカウントキーとして返す。
func clientAddressKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはウィンドウの残り秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, message string, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(ErrorResponseBody{
		Message: message,
		Details: "Retry after " + strconv.Itoa(retryAfterSec) + " seconds",
	})
}
