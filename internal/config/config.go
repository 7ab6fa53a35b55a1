package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Identity backend
	SupabaseURL     string
	SupabaseAnonKey string
	IdentityTimeout time.Duration

	// Database
	DatabaseURL string

	// Gate
	GateLoginPath        string
	GateExcludedPrefixes []string // nilの場合は既定の除外パスを使う
	GateCookieMarkers    []string

	// Rate Limit（req/min）
	RateLimitLogin int
	RateLimitAPI   int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CSRFトークンCookieの有効期間
	CSRFTokenTTL time.Duration

	// CORS（空の場合は無効）
	CORSAllowedOrigins []string

	// /metrics を公開するか。ゲート対象外のため内部ネットワークからのみ到達できる構成にすること
	MetricsEnabled bool

	// リバースプロキシ配下ではX-Forwarded-For等からクライアントIPを復元する
	TrustProxy bool
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の変数名をすべて含むエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SupabaseURL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}

	cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.IdentityTimeout = getEnvDuration("IDENTITY_TIMEOUT", 10*time.Second)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.GateLoginPath = getEnvString("GATE_LOGIN_PATH", "/login")
	cfg.GateExcludedPrefixes = getEnvList("GATE_EXCLUDED_PREFIXES", nil)
	cfg.GateCookieMarkers = getEnvList("GATE_COOKIE_MARKERS", []string{"supabase", "sb-", "auth"})
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.RateLimitAPI = getEnvInt("RATE_LIMIT_API", 120)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", nil)
	cfg.CSRFTokenTTL = getEnvDuration("CSRF_TOKEN_TTL", 12*time.Hour)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)

	// ログインパスが "/" だとホームと区別できずリダイレクトが循環する
	if !strings.HasPrefix(cfg.GateLoginPath, "/") || cfg.GateLoginPath == "/" {
		return nil, fmt.Errorf("GATE_LOGIN_PATH must be an absolute path other than /: %q", cfg.GateLoginPath)
	}

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
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
