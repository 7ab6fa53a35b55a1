// Package identity はホスト型IDバックエンド（Supabase Auth）との通信を提供する。
// セッションの有効性は常にサーバー側で確認し、ローカルでのトークン解析結果を信用しない。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitoshi/natillera/internal/model"
)

const (
	userPath   = "/auth/v1/user"
	tokenPath  = "/auth/v1/token"
	logoutPath = "/auth/v1/logout"

	// maxResponseSize はIDバックエンドのレスポンスとして読み取る最大バイト数。
	maxResponseSize = 1 << 20

	tracerName = "github.com/hitoshi/natillera/internal/identity"
)

// セッション検証の失敗理由。いずれもゲートでは「principalなし」として扱われる。
var (
	// ErrMissingSession はリクエストにアクセストークンが存在しないことを示す。
	ErrMissingSession = errors.New("identity: missing session")
	// ErrInvalidSession はIDバックエンドがセッションを拒否したことを示す。
	ErrInvalidSession = errors.New("identity: invalid session")
	// ErrTransport はIDバックエンドに到達できない、または応答を解釈できないことを示す。
	ErrTransport = errors.New("identity: transport error")
	// ErrInvalidCredentials はパスワードログインで資格情報が拒否されたことを示す。
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Config はIDバックエンドクライアントの設定。
// プロセス起動時に一度だけ構築し、NewClientに注入する。
type Config struct {
	BaseURL    string       // 例: https://xyzcompany.supabase.co
	APIKey     string       // 公開（anon）キー
	HTTPClient *http.Client // nilの場合はTimeout付きのクライアントを生成する
	Timeout    time.Duration
	Logger     *slog.Logger
	Recorder   Recorder // nil可
}

// Recorder はIDバックエンド呼び出しの結果を記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordIdentityCall(operation, result string, duration time.Duration)
}

// Client はIDバックエンドのHTTPクライアント。
// 状態を持たないため、複数のgoroutineから同時に利用できる。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// NewClient はClientを生成する。
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
		recorder:   cfg.Recorder,
		tracer:     otel.Tracer(tracerName),
	}
}

// userResponse は /auth/v1/user のレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// tokenResponse は /auth/v1/token のレスポンス。
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// ValidateSession はアクセストークンが現在も有効かをIDバックエンドに問い合わせ、
// 認証済みのPrincipalを返す。失効・取り消し済みのセッションを検出するため、
// 構造上正しいトークンであっても必ずネットワーク越しに確認する。
// 失敗時はErrMissingSession、ErrInvalidSession、ErrTransportのいずれかをラップして返す。
func (c *Client) ValidateSession(ctx context.Context, tokens model.Tokens) (*model.Principal, error) {
	ctx, span := c.tracer.Start(ctx, "identity.ValidateSession")
	defer span.End()

	start := time.Now()
	principal, err := c.validate(ctx, tokens)
	result := resultLabel(err)
	c.record("validate", result, time.Since(start))

	span.SetAttributes(attribute.String("identity.result", result))
	if err != nil {
		if errors.Is(err, ErrTransport) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "identity backend unreachable")
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("identity.user_id", principal.ID))
	return principal, nil
}

func (c *Client) validate(ctx context.Context, tokens model.Tokens) (*model.Principal, error) {
	if tokens.AccessToken == "" {
		return nil, ErrMissingSession
	}

	req, err := c.newRequest(ctx, http.MethodGet, userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidSession, status)
	case status >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransport, status)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrInvalidSession, status)
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to parse user response: %v", ErrTransport, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidSession)
	}

	return &model.Principal{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// SignInWithPassword はメールアドレスとパスワードでログインし、新しいセッションを返す。
// POST /auth/v1/token?grant_type=password
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.SignInResult, error) {
	ctx, span := c.tracer.Start(ctx, "identity.SignInWithPassword")
	defer span.End()

	start := time.Now()
	res, err := c.signIn(ctx, email, password)
	result := resultLabel(err)
	c.record("sign_in", result, time.Since(start))
	span.SetAttributes(attribute.String("identity.result", result))
	if err != nil && errors.Is(err, ErrTransport) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity backend unreachable")
	}
	return res, err
}

func (c *Client) signIn(ctx context.Context, email, password string) (*model.SignInResult, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, tokenPath+"?grant_type=password", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: sign-in returned status %d", ErrTransport, status)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", ErrTransport, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrTransport)
	}

	return &model.SignInResult{
		Tokens: model.Tokens{
			AccessToken:  tr.AccessToken,
			RefreshToken: tr.RefreshToken,
		},
		ExpiresIn: tr.ExpiresIn,
		Principal: model.Principal{
			ID:    tr.User.ID,
			Email: tr.User.Email,
			Role:  tr.User.Role,
		},
	}, nil
}

// SignOut はIDバックエンド側のセッションを破棄する。
// POST /auth/v1/logout
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrMissingSession
	}

	start := time.Now()
	req, err := c.newRequest(ctx, http.MethodPost, logoutPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	status, _, err := c.do(req)
	if err == nil && status >= 400 && status != http.StatusUnauthorized {
		err = fmt.Errorf("%w: sign-out returned status %d", ErrTransport, status)
	}
	c.record("sign_out", resultLabel(err), time.Since(start))
	return err
}

// newRequest は公開キーを付与したリクエストを生成する。
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid identity URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do はリクエストを実行し、ステータスコードとボディを返す。
// 通信エラーはErrTransportでラップする。
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("identity backend request failed",
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return 0, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) record(operation, result string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordIdentityCall(operation, result, d)
	}
}

// resultLabel はエラーをメトリクス用のラベルに変換する。
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingSession):
		return "missing"
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidCredentials):
		return "invalid"
	default:
		return "transport_error"
	}
}
