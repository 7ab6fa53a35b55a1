package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/natillera/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	Validator          middleware.SessionValidator
	Gate               middleware.GateConfig
	CSRF               middleware.CSRFConfig
	CORSAllowedOrigins []string
	TrustProxy         bool // trueの場合はRealIPでRemoteAddrを書き換える
	RateLimiter        *middleware.RateLimiter
	StatusObserver     middleware.StatusObserver // nil可

	// 運用
	HealthCheck    HealthCheckFunc
	MetricsHandler http.Handler // nilの場合は /metrics を公開しない
	Recorder       Recorder

	// 認証
	Identity   IdentityService
	AuthConfig AuthHandlerConfig

	// 業務サービス
	Members    MemberServiceInterface
	Ledger     LedgerServiceInterface
	Loans      LoanServiceInterface
	Activities ActivityServiceInterface
}

// NewRouter は画面とAPIのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序（全ルート）:
//
//	[RealIP] → Recovery → RequestID → Logging → SecurityHeaders → Gate
//
// RealIPはTrustProxyが有効な場合のみ先頭に入る。
// /health, /metrics, /static/*, /api/* はゲートの除外パスとして扱われ、
// /api/* は独自のセッションミドルウェアで401のJSONを返す。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Gate.Logger == nil {
		deps.Gate.Logger = logger
	}

	pageHandler, err := NewPageHandler(PageDeps{
		Members:    deps.Members,
		Ledger:     deps.Ledger,
		Loans:      deps.Loans,
		Activities: deps.Activities,
	}, logger)
	if err != nil {
		return nil, err
	}
	authHandler, err := NewAuthHandler(deps.Identity, deps.AuthConfig, deps.Recorder, logger)
	if err != nil {
		return nil, err
	}
	memberHandler := NewMemberHandler(deps.Members, deps.Recorder)
	ledgerHandler := NewLedgerHandler(deps.Ledger, deps.Recorder)
	loanHandler := NewLoanHandler(deps.Loans, deps.Recorder)
	activityHandler := NewActivityHandler(deps.Activities, deps.Recorder)

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusObserver))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewGateMiddleware(deps.Validator, deps.Gate))

	// --- ゲート除外ルート ---
	r.Get("/health", NewHealthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", StaticHandler())

	// --- HTML画面 ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/login", authHandler.LoginPage)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Get("/", pageHandler.Dashboard)
		r.Get("/socios", pageHandler.Members)
		r.Get("/cuotas", pageHandler.Contributions)
		r.Get("/multas", pageHandler.LateFees)
		r.Get("/prestamos", pageHandler.Loans)
		r.Get("/intereses", pageHandler.Interest)
		r.Get("/caja", pageHandler.Cash)
		r.Get("/liquidacion", pageHandler.Settlement)
		r.Get("/gastos-bancarios", pageHandler.BankFees)
		r.Get("/actividades", pageHandler.Activities)
	})

	// --- API ---
	// ミドルウェアスタック: CORS → APISession → RateLimit(General) → CSRF
	r.Route("/api", func(r chi.Router) {
		if len(deps.CORSAllowedOrigins) > 0 {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
		}
		r.Use(middleware.NewAPISessionMiddleware(deps.Validator, logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))
		r.Get("/me", authHandler.Me)

		// 会員
		r.Route("/members", func(r chi.Router) {
			r.Get("/", memberHandler.List)
			r.Post("/", memberHandler.Create)
			r.Get("/{id}", memberHandler.Get)
			r.Delete("/{id}", memberHandler.Withdraw)
		})

		// 掛金
		r.Route("/contributions", func(r chi.Router) {
			r.Get("/", ledgerHandler.ListContributions)
			r.Post("/", ledgerHandler.CreateContribution)
			r.Delete("/{id}", ledgerHandler.DeleteContribution)
		})

		// 延滞金
		r.Route("/late-fees", func(r chi.Router) {
			r.Get("/", ledgerHandler.ListLateFees)
			r.Post("/", ledgerHandler.CreateLateFee)
			r.Put("/{id}/paid", ledgerHandler.MarkLateFeePaid)
			r.Delete("/{id}", ledgerHandler.DeleteLateFee)
		})

		// 貸付
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", loanHandler.List)
			r.Post("/", loanHandler.Create)
			r.Put("/{id}/status", loanHandler.UpdateStatus)
		})

		// 利息
		r.Route("/interest-payments", func(r chi.Router) {
			r.Get("/", loanHandler.ListPayments)
			r.Post("/", loanHandler.CreatePayment)
			r.Get("/total", loanHandler.Total)
		})

		// 金庫
		r.Route("/cash-movements", func(r chi.Router) {
			r.Get("/", ledgerHandler.ListCashMovements)
			r.Post("/", ledgerHandler.CreateCashMovement)
			r.Get("/balance", ledgerHandler.CashBalance)
		})

		// 銀行手数料
		r.Route("/bank-fees", func(r chi.Router) {
			r.Get("/", ledgerHandler.ListBankFees)
			r.Post("/", ledgerHandler.CreateBankFee)
			r.Delete("/{id}", ledgerHandler.DeleteBankFee)
		})

		// 活動
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", activityHandler.List)
			r.Post("/", activityHandler.Create)
			r.Delete("/{id}", activityHandler.Delete)
		})

		r.Get("/settlements/{year}", ledgerHandler.Settlement)
	})

	return r, nil
}
