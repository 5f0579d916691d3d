package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/healthreport/reportd/internal/assessment"
	"github.com/healthreport/reportd/internal/config"
	"github.com/healthreport/reportd/internal/extract"
	"github.com/healthreport/reportd/internal/platform/auth"
	"github.com/healthreport/reportd/internal/platform/blobstore"
	"github.com/healthreport/reportd/internal/platform/db"
	"github.com/healthreport/reportd/internal/platform/middleware"
	"github.com/healthreport/reportd/internal/platform/reporting"
	"github.com/healthreport/reportd/internal/render"
	"github.com/healthreport/reportd/internal/report"
	"github.com/healthreport/reportd/internal/user"
)

const version = "0.1.0"

// devJWTSecret signs tokens when ENV=development and no JWT_SECRET is set.
const devJWTSecret = "development-only-insecure-secret"

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// loadCatalog reads the assessment configuration named by path, or the
// built-in configuration when path is empty.
func loadCatalog(path string) (*extract.Catalog, error) {
	if path == "" {
		return extract.DefaultCatalog()
	}
	return extract.LoadConfigFile(path)
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BackendDisk:
		return blobstore.NewDiskBlobStore(cfg.ReportsDir)
	case config.BackendMinio:
		return blobstore.NewMinioBlobStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return blobstore.NewInMemoryBlobStore(), nil
}

// app holds the wired services of one server instance.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	tokens *auth.TokenManager

	catalog      *extract.Catalog
	blobs        blobstore.BlobStore
	assessStore  assessment.Store
	reportStore  report.Store
	userStore    user.Store
	assessments  *assessment.Service
	reports      *report.Service
	users        *user.Service
	dashboard    *reporting.Dashboard
	closeBackend func()
}

// newApp builds the stores and services selected by cfg. The caller must
// call close when done.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	catalog, err := loadCatalog(cfg.AssessmentConfig)
	if err != nil {
		return nil, err
	}
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDev() {
		secret = devJWTSecret
	}

	a := &app{
		cfg:          cfg,
		logger:       logger,
		tokens:       auth.NewTokenManager([]byte(secret), "reportd", cfg.JWTTTL),
		catalog:      catalog,
		blobs:        blobs,
		closeBackend: func() {},
	}

	if cfg.UsesPostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closeBackend = pool.Close
		a.assessStore = assessment.NewPGStore(pool)
		a.reportStore = report.NewPGStore(pool)
		a.userStore = user.NewPGStore(pool)
		logger.Info().Msg("connected to database")
	} else {
		a.assessStore = assessment.NewMemoryStore()
		a.reportStore = report.NewMemoryStore()
		a.userStore = user.NewMemoryStore()
	}

	processor := extract.NewProcessor(extract.NewTransformer(catalog.Names(), logger), logger)
	a.assessments = assessment.NewService(a.assessStore, catalog)
	a.reports = report.NewService(a.assessments, report.NewAssembler(catalog, processor),
		render.DefaultChain(logger), blobs, a.reportStore, logger)
	a.users = user.NewService(a.userStore, a.tokens, logger)
	a.dashboard = reporting.NewDashboard(a.assessStore, a.userStore, a.reportStore, catalog.Names())
	return a, nil
}

func (a *app) close() {
	a.closeBackend()
}

// seed loads the demo accounts and the sample assessments. seedFile replaces
// the built-in samples when set.
func (a *app) seed(ctx context.Context, seedFile string) error {
	n, err := user.Seed(ctx, a.users, user.DemoAccounts)
	if err != nil {
		return err
	}
	var res assessment.SeedResult
	if seedFile != "" {
		res, err = assessment.SeedFile(ctx, a.assessments, seedFile)
	} else {
		res, err = assessment.Seed(ctx, a.assessments, nil)
	}
	if err != nil {
		return err
	}
	a.logger.Info().
		Int("users", n).
		Int("assessments", res.Created).
		Int("skipped", res.Skipped).
		Msg("seed data loaded")
	return nil
}

// newServer returns the configured echo instance.
func (a *app) newServer() *echo.Echo {
	cfg := a.cfg
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{HSTS: cfg.IsProduction()}))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(a.tokens))
	} else {
		e.Use(auth.JWTMiddleware(a.tokens))
	}

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 || rateLimitCfg.BurstSize <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"backend": cfg.StoreBackend,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
		reporting.NewMeasureHandler(a.pool).RegisterRoutes(apiV1)
	}

	user.NewHandler(a.users).RegisterRoutes(apiV1)
	assessment.NewHandler(a.assessments).RegisterRoutes(apiV1)
	report.NewHandler(a.reports).RegisterRoutes(apiV1)
	reporting.NewHandler(a.dashboard).RegisterRoutes(apiV1)
	blobstore.NewBlobHandler(a.blobs).RegisterRoutes(apiV1.Group("", auth.RequireRole(auth.RoleAdmin)))

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.SeedData && !cfg.UsesPostgres() {
		if err := a.seed(ctx, ""); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	e := a.newServer()
	go func() {
		addr := ":" + cfg.Port
		logger.Info().
			Str("addr", addr).
			Str("store", cfg.StoreBackend).
			Str("blobs", cfg.BlobBackend).
			Str("config_version", a.catalog.Version()).
			Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
