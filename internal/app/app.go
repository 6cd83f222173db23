// Package app assembles the shortening server from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/cache/memory"
	"github.com/joshdurbin/shortlink/internal/config"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	"github.com/joshdurbin/shortlink/internal/repository/sqlite"
	"github.com/joshdurbin/shortlink/internal/service"
	"github.com/joshdurbin/shortlink/internal/shortener"
	httpTransport "github.com/joshdurbin/shortlink/internal/transport/http"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	redisPingWait   = 5 * time.Second
)

// App is a fully wired server
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	shortener service.URLShortener
	server    *httpTransport.Server
}

// New opens storage and builds every component. Nothing runs until Start.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	generator, err := shortener.NewGenerator(cfg.Shortener, repo, logger.Named("shortener"))
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create shortener generator: %w", err)
	}
	logger.Info("shortener generator ready", zap.String("type", generator.Type()))

	limiter, err := newLimiter(cfg.RateLimit)
	if err != nil {
		generator.Close()
		repo.Close()
		return nil, err
	}
	logger.Info("rate limiter ready",
		zap.String("backend", cfg.RateLimit.Backend),
		zap.Int("quota", cfg.RateLimit.Quota),
		zap.Duration("window", cfg.RateLimit.Window))

	m := metrics.New()
	urlShortener := service.NewURLShortener(
		repo,
		memory.New(memory.WithLogger(logger.Named("cache"))),
		generator,
		limiter,
		service.Config{
			BaseURL:       cfg.Server.ServerURL,
			Domain:        cfg.Server.Domain,
			DefaultExpiry: cfg.Server.DefaultExpiry,
		},
		service.WithLogger(logger.Named("service")),
		service.WithPurgeObserver(m),
	)

	server := httpTransport.NewServer(urlShortener, m, logger.Named("http"), httpTransport.Config{
		Port:        cfg.Server.Port,
		TrustProxy:  cfg.Server.TrustProxy,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		shortener: urlShortener,
		server:    server,
	}, nil
}

func newLimiter(cfg config.RateLimitConfig) (ratelimit.Limiter, error) {
	switch cfg.Backend {
	case config.LimiterRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingWait)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return ratelimit.NewRedisLimiter(rdb, cfg.Config), nil
	default:
		return ratelimit.NewMemoryLimiter(cfg.Config), nil
	}
}

// Start loads the cache and starts the background sync. The sync outlives
// ctx and is stopped by Shutdown.
func (a *App) Start(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if err := a.shortener.InitializeCache(loadCtx); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := a.shortener.StartCacheSync(context.WithoutCancel(ctx), a.cfg.Cache.SyncInterval); err != nil {
		return fmt.Errorf("failed to start cache sync: %w", err)
	}

	return nil
}

// Run starts the app and serves HTTP until ctx is cancelled or the listener fails
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.close()
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.server.Start()
	}()

	var serveErr error
	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(serveErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops the listener, flushes pending usage and releases every component
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down server: %w", err))
	}

	if err := a.shortener.StopCacheSync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop cache sync: %w", err))
	}

	if err := a.close(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("server stopped")
	return errors.Join(errs...)
}

func (a *App) close() error {
	if err := a.shortener.Close(); err != nil {
		return fmt.Errorf("failed to close shortener: %w", err)
	}
	return nil
}

// Handler returns the routed HTTP handler, useful with httptest
func (a *App) Handler() http.Handler {
	return a.server.Router()
}

// Shortener returns the wired service
func (a *App) Shortener() service.URLShortener {
	return a.shortener
}
