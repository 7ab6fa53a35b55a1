// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/natillera/internal/identity"
	"github.com/hitoshi/natillera/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済みPrincipalを格納するためのキー。
var principalContextKey = contextKey("principal")

// SessionValidator はセッション検証に必要なインターフェース。
// identity.Clientが実装する。
type SessionValidator interface {
	ValidateSession(ctx context.Context, tokens model.Tokens) (*model.Principal, error)
}

// NewAPISessionMiddleware はCookieのセッションをIDバックエンドで検証するAPI用ミドルウェアを返す。
// 認証済みPrincipalをリクエストコンテキストに注入する。
// HTMLページと異なりリダイレクトは行わず、未認証リクエストには401のJSONを返す。
func NewAPISessionMiddleware(validator SessionValidator, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからセッション資格情報を取得
			tokens := identity.TokensFromCookies(r.Cookies())

			// 2. IDバックエンドでセッションを検証
			principal, err := validator.ValidateSession(r.Context(), tokens)
			if err != nil {
				if errors.Is(err, identity.ErrTransport) {
					logger.Warn("session validation failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みPrincipalをコンテキストに注入
			setLogUserID(r.Context(), principal.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済みPrincipalを取得する。
// ゲートまたはAPIセッションミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return p.ID, nil
}

// ContextWithUserID はコンテキストにユーザーIDのみを持つPrincipalを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithPrincipal(ctx, &model.Principal{ID: userID})
}
