// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider (Supabase)
	SupabaseURL     string
	SupabaseAnonKey string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit
	// 認証系は厳格（狭いウィンドウ・低い上限）、ToDo系は中庸、その他は緩め。
	AuthLimitMax       int
	AuthLimitWindow    time.Duration
	TodoLimitMax       int
	TodoLimitWindow    time.Duration
	DefaultLimitMax    int
	DefaultLimitWindow time.Duration
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す（プロセスは起動を中断する）。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}

	cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	cfg.AuthLimitMax = getEnvInt("RATE_LIMIT_AUTH_MAX", 5)
	cfg.AuthLimitWindow = getEnvDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute)
	cfg.TodoLimitMax = getEnvInt("RATE_LIMIT_TODO_MAX", 30)
	cfg.TodoLimitWindow = getEnvDuration("RATE_LIMIT_TODO_WINDOW", time.Minute)
	cfg.DefaultLimitMax = getEnvInt("RATE_LIMIT_DEFAULT_MAX", 100)
	cfg.DefaultLimitWindow = getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
