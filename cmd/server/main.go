package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/config"
	"github.com/iliyamo/daycare-center/internal/database"
	"github.com/iliyamo/daycare-center/internal/handler"
	"github.com/iliyamo/daycare-center/internal/logging"
	"github.com/iliyamo/daycare-center/internal/middleware"
	"github.com/iliyamo/daycare-center/internal/queue"
	"github.com/iliyamo/daycare-center/internal/repository"
	"github.com/iliyamo/daycare-center/internal/router"
	"github.com/iliyamo/daycare-center/internal/service"
	"github.com/iliyamo/daycare-center/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.UsesDefaultSecret() {
		log.Warn("SECRET_KEY not set, phone numbers are encrypted with the default key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	cipher, err := utils.NewPIICipher(cfg.SecretKey)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	secure, err := repository.NewSecureStore(ctx, sink, cipher, log)
	if err != nil {
		return err
	}
	content, err := repository.NewContentStore(ctx, sink, log)
	if err != nil {
		return err
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.RabbitURL, config.NewCircuitBreaker(config.BreakerRabbitMQ, log))
		log.Info("event publishing enabled")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	var tokens service.TokenStore = repository.NewMemoryTokenRepo()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		tokens = repository.NewRedisTokenRepo(rdb)
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)

	accounts := service.NewAccountService(secure, content, events, log)
	contentSvc := service.NewContentService(content, cache)
	auth := service.NewAuthService(accounts, tokens, service.TokenConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
	}, log)

	if n := accounts.ReconcileLinks(ctx); n > 0 {
		log.Info("startup reconcile linked children", zap.Int("links", n))
	}

	if cfg.AuditConsumer {
		consumer := &queue.AuditConsumer{URL: cfg.RabbitURL, Dir: cfg.LogDir, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))

	router.RegisterRoutes(e, router.Handlers{
		Auth:     handler.NewAuthHandler(accounts, auth),
		Me:       handler.NewMeHandler(accounts, contentSvc),
		Accounts: handler.NewAccountsHandler(accounts),
		Children: handler.NewChildrenHandler(accounts),
		Content:  handler.NewContentHandler(contentSvc),
	}, router.Middlewares{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:     cache.Middleware(),
	}, cfg.JWTSecret)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

// openSink returns the file sink, mirrored to MySQL when enabled.  A
// mirror that cannot be opened is logged and skipped.
func openSink(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.DocumentSink, func(), error) {
	files := repository.NewFileSink(cfg.DataDir)
	if !cfg.DBMirror {
		return files, func() {}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Warn("mysql mirror disabled", zap.Error(err))
		return files, func() {}, nil
	}
	mirror := repository.NewSQLSink(db, config.NewCircuitBreaker(config.BreakerMySQL, log))
	if err := mirror.EnsureSchema(ctx); err != nil {
		log.Warn("mysql mirror disabled", zap.Error(err))
		_ = db.Close()
		return files, func() {}, nil
	}
	log.Info("mysql mirror enabled", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return repository.NewMultiSink(files, mirror), func() { _ = db.Close() }, nil
}
