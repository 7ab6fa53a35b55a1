package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/natillera/internal/model"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// フロントエンドからJavaScriptで読み取れるよう、HttpOnlyではない。
	csrfCookieName = "csrf_token"

	// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	// csrfFormField はHTMLフォームからCSRFトークンを送信する際のフィールド名。
	csrfFormField = "csrf_token"
)

var csrfTokenContextKey = contextKey("csrf_token")

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	// TTL はトークンCookieの有効期間。0の場合は12時間。
	TTL time.Duration
}

func (c CSRFConfig) maxAge() int {
	if c.TTL <= 0 {
		return int((12 * time.Hour).Seconds())
	}
	return int(c.TTL.Seconds())
}

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF対策ミドルウェアを返す。
// 安全なメソッドではトークンCookieを用意してコンテキストに格納する。
// それ以外ではCookieとX-CSRF-Tokenヘッダー（またはフォームのcsrf_token）の一致を要求する。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				token := ensureCSRFCookie(w, r, config)
				ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if reason := verifyCSRFToken(r); reason != "" {
				rejectCSRF(w, r, reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifyCSRFToken はトークンを検証し、失敗理由を返す。成功時は空文字列。
func verifyCSRFToken(r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return "missing_cookie"
	}

	sent := r.Header.Get(csrfHeaderName)
	if sent == "" {
		sent = r.PostFormValue(csrfFormField)
	}
	if sent == "" {
		return "missing_token"
	}

	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(sent)) != 1 {
		return "mismatch"
	}
	return ""
}

// rejectCSRF は403を返す。APIにはJSON、フォーム送信にはテキストで応答する。
func rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	slog.WarnContext(r.Context(), "CSRF検証に失敗しました",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFromContext(r.Context())),
	)

	if wantsJSON(r) {
		WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFInvalidError())
		return
	}
	http.Error(w, model.NewCSRFInvalidError().Message, http.StatusForbidden)
}

// wantsJSON はAPI向けのリクエストかどうかを判定する。
func wantsJSON(r *http.Request) bool {
	if isAPIPath(r.URL.Path) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// NewCSRFTokenHandler はCSRFトークン取得エンドポイントのハンドラーを返す。
// GET /api/csrf-token
// 既存のCSRFトークンCookieがある場合はそれを返し、なければ新規生成する。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ensureCSRFCookie(w, r, config)
		if token == "" {
			WriteInternalServerError(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(map[string]string{
			"token": token,
		})
	})
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// CSRFTokenFromContext はフォームに埋め込むCSRFトークンを返す。
// CSRFミドルウェアを通過した安全なメソッドのリクエストでのみ有効。
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenContextKey).(string)
	return token
}

// ensureCSRFCookie はCSRFトークンCookieが未設定の場合に設定し、有効なトークンを返す。
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		// 既にCookieが設定されている
		return cookie.Value
	}

	token, err := generateCSRFToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "CSRFトークンの生成に失敗しました", slog.String("error", err.Error()))
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.maxAge(),
		HttpOnly: false,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
