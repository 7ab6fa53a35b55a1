package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/natillera/internal/identity"
	"github.com/hitoshi/natillera/internal/model"
)

func newTestAuthHandler(t *testing.T, svc IdentityService, rec Recorder) *AuthHandler {
	t.Helper()
	h, err := NewAuthHandler(svc, AuthHandlerConfig{CookieDomain: "natillera.test", CookieSecure: true}, rec,
		slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewAuthHandler failed: %v", err)
	}
	return h
}

func postLoginForm(email, password string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_LoginPage_ErrorMessages(t *testing.T) {
	tests := []struct {
		query     string
		wantAlert string
	}{
		{"", ""},
		{"?error=credenciales", "Correo o contraseña incorrectos."},
		{"?error=servicio", "El servicio de autenticación no está disponible"},
		{"?error=desconocido", ""},
	}
	h := newTestAuthHandler(t, &mockIdentityService{}, nil)

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/login"+tt.query, nil)
			w := httptest.NewRecorder()
			h.LoginPage(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			doc := parseHTML(t, w)
			alert := findByClass(doc, "alert")
			if tt.wantAlert == "" {
				if alert != nil {
					t.Errorf("unexpected alert %q", textOf(alert))
				}
				return
			}
			if alert == nil || !strings.Contains(textOf(alert), tt.wantAlert) {
				t.Errorf("alert missing %q", tt.wantAlert)
			}
		})
	}
}

func TestAuthHandler_LoginPage_HasPasswordForm(t *testing.T) {
	h := newTestAuthHandler(t, &mockIdentityService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	h.LoginPage(w, req)

	doc := parseHTML(t, w)
	forms := findAll(doc, "form")
	if len(forms) != 1 || attr(forms[0], "action") != "/login" {
		t.Fatalf("expected a single /login form")
	}
	names := map[string]bool{}
	for _, in := range findAll(forms[0], "input") {
		names[attr(in, "name")] = true
	}
	for _, want := range []string{"csrf_token", "email", "password"} {
		if !names[want] {
			t.Errorf("form is missing input %q", want)
		}
	}
}

func TestAuthHandler_Login_Success_SetsSessionCookies(t *testing.T) {
	var gotEmail, gotPassword string
	svc := &mockIdentityService{
		signInFn: func(ctx context.Context, email, password string) (*model.SignInResult, error) {
			gotEmail, gotPassword = email, password
			return &model.SignInResult{
				Tokens:    model.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"},
				ExpiresIn: 3600,
				Principal: model.Principal{ID: "user-1", Email: email},
			}, nil
		},
	}
	rec := &mockRecorder{}
	h := newTestAuthHandler(t, svc, rec)

	w := httptest.NewRecorder()
	h.Login(w, postLoginForm(" tesorera@natillera.co ", "secreta"))

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	if gotEmail != "tesorera@natillera.co" || gotPassword != "secreta" {
		t.Errorf("sign in called with (%q, %q)", gotEmail, gotPassword)
	}

	access := findCookie(resp, identity.AccessTokenCookie)
	if access == nil {
		t.Fatal("access token cookie not set")
	}
	if access.Value != "access-1" || access.MaxAge != 3600 || !access.HttpOnly || !access.Secure {
		t.Errorf("access cookie = %+v", access)
	}
	if access.SameSite != http.SameSiteLaxMode || access.Path != "/" || access.Domain != "natillera.test" {
		t.Errorf("access cookie attributes = %+v", access)
	}
	refresh := findCookie(resp, identity.RefreshTokenCookie)
	if refresh == nil || refresh.Value != "refresh-1" || refresh.MaxAge != 30*24*60*60 {
		t.Errorf("refresh cookie = %+v", refresh)
	}

	if len(rec.logins) != 1 || rec.logins[0] != "success" {
		t.Errorf("login attempts = %v", rec.logins)
	}
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	tests := []struct {
		name         string
		email        string
		password     string
		signInErr    error
		wantLocation string
		wantResult   string
		wantCalled   bool
	}{
		{"empty form", "", "", nil, "/login?error=credenciales", "invalid_credentials", false},
		{"rejected credentials", "a@b.co", "mala", identity.ErrInvalidCredentials, "/login?error=credenciales", "invalid_credentials", true},
		{"backend down", "a@b.co", "clave", identity.ErrTransport, "/login?error=servicio", "error", true},
		{"unexpected error", "a@b.co", "clave", errors.New("boom"), "/login?error=servicio", "error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockIdentityService{
				signInFn: func(ctx context.Context, email, password string) (*model.SignInResult, error) {
					called = true
					return nil, tt.signInErr
				},
			}
			rec := &mockRecorder{}
			h := newTestAuthHandler(t, svc, rec)

			w := httptest.NewRecorder()
			h.Login(w, postLoginForm(tt.email, tt.password))

			resp := w.Result()
			if resp.StatusCode != http.StatusSeeOther {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
			}
			if loc := resp.Header.Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
			if called != tt.wantCalled {
				t.Errorf("sign in called = %v, want %v", called, tt.wantCalled)
			}
			if len(resp.Cookies()) != 0 {
				t.Errorf("no cookies expected on failure, got %v", resp.Cookies())
			}
			if len(rec.logins) != 1 || rec.logins[0] != tt.wantResult {
				t.Errorf("login attempts = %v, want [%s]", rec.logins, tt.wantResult)
			}
		})
	}
}

func TestAuthHandler_Logout_ClearsMarkerCookies(t *testing.T) {
	var signedOut string
	svc := &mockIdentityService{
		signOutFn: func(ctx context.Context, accessToken string) error {
			signedOut = accessToken
			return errors.New("backend unavailable")
		},
	}
	h := newTestAuthHandler(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: identity.AccessTokenCookie, Value: "access-1"})
	req.AddCookie(&http.Cookie{Name: identity.RefreshTokenCookie, Value: "refresh-1"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.AddCookie(&http.Cookie{Name: "preferencias", Value: "oscuro"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("status = %d Location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if signedOut != "access-1" {
		t.Errorf("sign out token = %q, want access-1", signedOut)
	}

	cleared := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 && c.Value == "" {
			cleared[c.Name] = true
		}
	}
	if !cleared[identity.AccessTokenCookie] || !cleared[identity.RefreshTokenCookie] {
		t.Errorf("session cookies not cleared: %v", cleared)
	}
	if cleared["csrf_token"] || cleared["preferencias"] {
		t.Errorf("unrelated cookies must be kept: %v", cleared)
	}
}

func TestAuthHandler_Logout_WithoutSessionSkipsBackend(t *testing.T) {
	called := false
	svc := &mockIdentityService{
		signOutFn: func(ctx context.Context, accessToken string) error {
			called = true
			return nil
		},
	}
	h := newTestAuthHandler(t, svc, nil)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if called {
		t.Error("sign out must not be called without an access token")
	}
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := newTestAuthHandler(t, &mockIdentityService{}, nil)

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = withPrincipal(req, &model.Principal{ID: "user-1", Email: "a@b.co", Role: "authenticated"})
		w := httptest.NewRecorder()
		h.Me(w, req)

		var resp meResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ID != "user-1" || resp.Role != "authenticated" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
