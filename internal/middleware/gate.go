package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/natillera/internal/gate"
	"github.com/hitoshi/natillera/internal/identity"
)

// GateRecorder はゲートの判定結果を記録するインターフェース。
// metrics.Collectorが実装する。
type GateRecorder interface {
	RecordGateDecision(action, category string)
}

// GateConfig はセッションゲートの設定。
type GateConfig struct {
	Classifier   *gate.Classifier
	Policy       gate.Policy
	CookieDomain string
	CookieSecure bool
	Logger       *slog.Logger
	Recorder     GateRecorder // nil可
}

// NewGateMiddleware はページリクエストごとにセッションを検証し、
// 表示・ログイン画面へのリダイレクト・ホームへのリダイレクトを振り分けるミドルウェアを返す。
// 除外パスは一切手を加えずに通過させる。
// 検証に失敗した場合はエラーの種類によらず未認証として扱う。
func NewGateMiddleware(validator SessionValidator, cfg GateConfig) func(next http.Handler) http.Handler {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = gate.NewClassifier(gate.DefaultLoginPrefix, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults := gate.DefaultPolicy()
	policy := cfg.Policy
	if policy.LoginPath == "" {
		policy.LoginPath = defaults.LoginPath
	}
	if policy.HomePath == "" {
		policy.HomePath = defaults.HomePath
	}
	if policy.Markers == nil {
		policy.Markers = defaults.Markers
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			// 1. 除外パスは検証もヘッダー付与も行わない
			if classifier.Excluded(path) {
				next.ServeHTTP(w, r)
				return
			}

			// 2. ルートを分類
			category := classifier.Classify(path)

			// 3. セッションを検証
			cookies := r.Cookies()
			tokens := identity.TokensFromCookies(cookies)
			principal, err := validator.ValidateSession(r.Context(), tokens)
			if err != nil {
				principal = nil
				logValidationFailure(logger, r, tokens.AccessToken, err)
			}

			// 4. 判定
			names := make([]string, 0, len(cookies))
			for _, c := range cookies {
				names = append(names, c.Name)
			}
			decision := gate.Decide(category, principal, names, policy)

			if cfg.Recorder != nil {
				cfg.Recorder.RecordGateDecision(decision.Action.String(), category.String())
			}

			// 5. ヘッダーとCookieの変更を適用
			gate.ApplyHeaders(w.Header(), decision.Headers)
			for _, m := range decision.Cookies {
				http.SetCookie(w, cfg.cookieFor(m))
			}

			// 6. リダイレクトまたは通過
			if decision.Action != gate.ActionAllow {
				logger.Debug("gate redirect",
					slog.String("path", path),
					slog.String("category", category.String()),
					slog.String("action", decision.Action.String()),
					slog.Int("cookies_cleared", len(decision.Cookies)),
				)
				http.Redirect(w, r, decision.Location, decision.StatusCode(r.Method))
				return
			}

			ctx := r.Context()
			if principal != nil {
				setLogUserID(ctx, principal.ID)
				ctx = ContextWithPrincipal(ctx, principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// cookieFor はCookie変更をレスポンス用のCookieに変換する。
func (cfg GateConfig) cookieFor(m gate.CookieMutation) *http.Cookie {
	return &http.Cookie{
		Name:     m.Name,
		Value:    m.Value,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   m.MaxAge,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// logValidationFailure は検証失敗をログに記録する。
// IDバックエンドへの到達失敗はWarn、セッションの欠落・無効はInfoとする。
func logValidationFailure(logger *slog.Logger, r *http.Request, accessToken string, err error) {
	attrs := []slog.Attr{
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if hint, ok := identity.Hint(accessToken, time.Now()); ok {
		attrs = append(attrs, hint.LogAttrs()...)
	}

	level := slog.LevelInfo
	if errors.Is(err, identity.ErrTransport) {
		level = slog.LevelWarn
	}
	logger.LogAttrs(r.Context(), level, "session validation failed", attrs...)
}
