package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/natillera/internal/gate"
	"github.com/hitoshi/natillera/internal/identity"
	"github.com/hitoshi/natillera/internal/middleware"
	"github.com/hitoshi/natillera/internal/model"
)

// refreshCookieMaxAge はリフレッシュトークンCookieの有効期間。
const refreshCookieMaxAge = 30 * 24 * time.Hour

// ログイン画面のエラーコード（クエリパラメータ error の値）
const (
	loginErrorCredentials = "credenciales"
	loginErrorService     = "servicio"
)

var loginErrorMessages = map[string]string{
	loginErrorCredentials: "Correo o contraseña incorrectos.",
	loginErrorService:     "El servicio de autenticación no está disponible. Intente más tarde.",
}

// AuthHandlerConfig はログイン・ログアウトで発行するCookieの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	CookieMarkers []string // ログアウト時に削除するCookie名の部分文字列
	LoginPath     string
	HomePath      string
}

// AuthHandler はログイン画面とセッション発行・破棄のHTTPハンドラー。
type AuthHandler struct {
	identity IdentityService
	config   AuthHandlerConfig
	recorder Recorder
	login    *template.Template
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(svc IdentityService, config AuthHandlerConfig, recorder Recorder, logger *slog.Logger) (*AuthHandler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	policy := gate.DefaultPolicy()
	if config.LoginPath == "" {
		config.LoginPath = policy.LoginPath
	}
	if config.HomePath == "" {
		config.HomePath = policy.HomePath
	}
	if config.CookieMarkers == nil {
		config.CookieMarkers = policy.Markers
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		identity: svc,
		config:   config,
		recorder: recorder,
		login:    templates["login"],
		logger:   logger,
	}, nil
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:     "Iniciar sesión",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Error:     loginErrorMessages[r.URL.Query().Get("error")],
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.login.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "login page rendering failed", slog.String("error", err.Error()))
	}
}

// Login はメールアドレスとパスワードでIDバックエンドにログインし、セッションCookieを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// 1. フォームを読み取る
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		h.recorder.RecordLoginAttempt("invalid_credentials")
		h.redirectLoginError(w, r, loginErrorCredentials)
		return
	}

	// 2. IDバックエンドでログイン
	result, err := h.identity.SignInWithPassword(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.recorder.RecordLoginAttempt("invalid_credentials")
			h.redirectLoginError(w, r, loginErrorCredentials)
			return
		}
		h.recorder.RecordLoginAttempt("error")
		h.logger.WarnContext(r.Context(), "sign in failed",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		h.redirectLoginError(w, r, loginErrorService)
		return
	}

	// 3. セッションCookieを発行
	http.SetCookie(w, h.sessionCookie(identity.AccessTokenCookie, result.AccessToken, result.ExpiresIn))
	http.SetCookie(w, h.sessionCookie(identity.RefreshTokenCookie, result.RefreshToken, int(refreshCookieMaxAge.Seconds())))

	h.recorder.RecordLoginAttempt("success")
	h.logger.InfoContext(r.Context(), "user signed in", slog.String("user_id", result.Principal.ID))

	// 4. ホームへリダイレクト
	http.Redirect(w, r, h.config.HomePath, http.StatusSeeOther)
}

// Logout はIDバックエンドのセッションを破棄し、セッションCookieを削除する。
// IDバックエンドでの破棄に失敗してもCookieは削除する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokens := identity.TokensFromCookies(r.Cookies())
	if tokens.AccessToken != "" {
		if err := h.identity.SignOut(r.Context(), tokens.AccessToken); err != nil {
			h.logger.WarnContext(r.Context(), "sign out failed", slog.String("error", err.Error()))
		}
	}

	for _, c := range r.Cookies() {
		if gate.MatchesMarker(c.Name, h.config.CookieMarkers) {
			http.SetCookie(w, h.sessionCookie(c.Name, "", -1))
		}
	}

	http.Redirect(w, r, h.config.LoginPath, http.StatusSeeOther)
}

// meResponse はログイン中の利用者情報のAPIレスポンス。
type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Me はログイン中の利用者情報を返す。
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: p.ID, Email: p.Email, Role: p.Role})
}

func (h *AuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.config.LoginPath+"?error="+code, http.StatusSeeOther)
}

// sessionCookie はセッション用のCookieを生成する。maxAgeが負の場合は削除用となる。
func (h *AuthHandler) sessionCookie(name, value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	return c
}
