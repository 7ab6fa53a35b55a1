package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/natillera/internal/activity"
	"github.com/hitoshi/natillera/internal/config"
	"github.com/hitoshi/natillera/internal/database"
	"github.com/hitoshi/natillera/internal/gate"
	"github.com/hitoshi/natillera/internal/handler"
	"github.com/hitoshi/natillera/internal/identity"
	"github.com/hitoshi/natillera/internal/ledger"
	"github.com/hitoshi/natillera/internal/loan"
	"github.com/hitoshi/natillera/internal/logger"
	"github.com/hitoshi/natillera/internal/member"
	"github.com/hitoshi/natillera/internal/metrics"
	"github.com/hitoshi/natillera/internal/middleware"
	"github.com/hitoshi/natillera/internal/repository"
	"github.com/hitoshi/natillera/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	if cmd == CommandHelp {
		return PrintUsage(w)
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandMigrateDown:
		return runMigrateDown(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. ルーターの構築
	router, rateLimiter, err := buildHandler(cfg, db, collector, reg)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	defer rateLimiter.Stop()

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// buildHandler はリポジトリ・サービス・ミドルウェアをワイヤリングしたHTTPハンドラーを返す。
// 返されたRateLimiterはサーバー停止時にStopすること。
func buildHandler(cfg *config.Config, db *sql.DB, collector *metrics.Collector, gatherer prometheus.Gatherer) (http.Handler, *middleware.RateLimiter, error) {
	// 1. IDバックエンドクライアント
	identityClient := identity.NewClient(identity.Config{
		BaseURL:  cfg.SupabaseURL,
		APIKey:   cfg.SupabaseAnonKey,
		Timeout:  cfg.IdentityTimeout,
		Logger:   slog.Default(),
		Recorder: collector,
	})

	// 2. リポジトリの初期化
	memberRepo := repository.NewPostgresMemberRepo(db)
	contributionRepo := repository.NewPostgresContributionRepo(db)
	lateFeeRepo := repository.NewPostgresLateFeeRepo(db)
	loanRepo := repository.NewPostgresLoanRepo(db)
	interestRepo := repository.NewPostgresInterestPaymentRepo(db)
	cashRepo := repository.NewPostgresCashMovementRepo(db)
	bankFeeRepo := repository.NewPostgresBankFeeRepo(db)
	activityRepo := repository.NewPostgresActivityRepo(db)
	settlementRepo := repository.NewPostgresSettlementRepo(db)

	// 3. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer(security.DefaultMaxRunes)
	memberService := member.NewService(memberRepo, sanitizer)
	ledgerService := ledger.NewService(ledger.Repositories{
		Members:       memberRepo,
		Contributions: contributionRepo,
		LateFees:      lateFeeRepo,
		Cash:          cashRepo,
		BankFees:      bankFeeRepo,
		Settlements:   settlementRepo,
	}, sanitizer)
	loanService := loan.NewService(loanRepo, interestRepo, memberRepo)
	activityService := activity.NewService(activityRepo, sanitizer)

	// 4. ゲートとレート制限の設定
	policy := gate.DefaultPolicy()
	policy.LoginPath = cfg.GateLoginPath
	policy.Markers = cfg.GateCookieMarkers

	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))

	// 5. ルーターの構築
	router, err := handler.NewRouter(&handler.RouterDeps{
		Logger:    slog.Default(),
		Validator: identityClient,
		Gate: middleware.GateConfig{
			Classifier:   gate.NewClassifier(cfg.GateLoginPath, cfg.GateExcludedPrefixes),
			Policy:       policy,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
			Recorder:     collector,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			TTL:          cfg.CSRFTokenTTL,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:         cfg.TrustProxy,
		RateLimiter:        rateLimiter,
		StatusObserver:     collector,

		HealthCheck: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		MetricsHandler: metricsHandler(cfg, gatherer),
		Recorder:       collector,

		Identity: identityClient,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			CookieMarkers: cfg.GateCookieMarkers,
			LoginPath:     cfg.GateLoginPath,
		},

		Members:    memberService,
		Ledger:     ledgerService,
		Loans:      loanService,
		Activities: activityService,
	})
	if err != nil {
		rateLimiter.Stop()
		return nil, nil, err
	}

	return router, rateLimiter, nil
}

// rateLimiterConfig は設定値（req/min）からレート制限設定を構築する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rl.LoginBurst = cfg.RateLimitLogin
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitAPI) / 60.0)
	rl.GeneralBurst = cfg.RateLimitAPI
	return rl
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// metricsHandler はMETRICS_ENABLEDが有効な場合のみ /metrics のハンドラーを返す。
func metricsHandler(cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	if !cfg.MetricsEnabled {
		return nil
	}
	return metrics.Handler(gatherer)
}

// runMigrateDown は直近のマイグレーションを1つ戻す。
func runMigrateDown(cfg *config.Config) error {
	slog.Warn("rolling back the latest migration",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RollbackMigration(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("ロールバックに失敗しました: %w", err)
	}

	slog.Info("migration rolled back", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
