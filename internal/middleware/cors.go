package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// corsAllowedMethods はAPIが受け付けるメソッド。ページ側のフォームはCORSを使わない。
const corsAllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"

// NewCORSMiddleware は許可リストに含まれるOriginにだけCORSヘッダーを返すミドルウェアを返す。
// 資格情報付きのリクエストを受けるため、受信したOriginをそのまま反映し、ワイルドカードは使わない。
// 許可リストが空の場合は何もしない。
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowed := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" || !slices.Contains(allowed, origin) {
				// 許可外のプリフライトは拒否、通常リクエストはヘッダーなしで通す
				if isPreflight(r) {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")

			if isPreflight(r) {
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+csrfHeaderName+", "+RequestIDHeader)
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			next.ServeHTTP(w, r)
		})
	}
}

// isPreflight はCORSプリフライトリクエストかどうかを判定する。
func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}
