package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"url-shortener/internal/api"
	"url-shortener/internal/cache"
	"url-shortener/internal/clicks"
	"url-shortener/internal/config"
	"url-shortener/internal/db"
	"url-shortener/internal/geo"
	"url-shortener/internal/logger"
	"url-shortener/internal/registry"
	"url-shortener/internal/service"
	"url-shortener/internal/shortener"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load application configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.MustNew(func(o *logger.Options) {
		o.Level = cfg.LogLevel
		o.Encoding = logger.Encoding(cfg.LogFormat)
		o.FilePath = cfg.LogFilePath
		o.Development = cfg.GinMode != gin.ReleaseMode
	})

	// run returns only after its deferred cleanup has happened.
	err = run(cfg, logg)
	if err != nil {
		logg.Error("server stopped with error", zap.Error(err))
	}
	_ = logg.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *zap.Logger) error {
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info("connecting to database",
		zap.String("driver", cfg.DatabaseDriver), zap.String("dsn", cfg.RedactedDatabaseURL()))
	conn, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DatabaseMaxConns, logg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.DatabaseDriver, logg); err != nil {
		return err
	}
	logg.Info("database connection successful and schema migrated")

	regOpts := []registry.Option{
		registry.WithLogger(logg.Named("registry")),
		registry.WithMaxAttempts(cfg.MaxAllocationAttempts),
	}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logg.Warn("redis unavailable, continuing without lookup cache", zap.Error(err))
		} else {
			defer redisCache.Close()
			regOpts = append(regOpts, registry.WithCache(redisCache))
			logg.Info("redis lookup cache enabled", zap.Duration("ttl", cfg.CacheTTL))
		}
	}
	reg := registry.New(conn, shortener.NewGenerator(cfg.ShortCodeLength), regOpts...)

	recorder := clicks.NewRecorder(conn, logg.Named("clicks"))
	var (
		writer service.ClickWriter = recorder
		queue  *clicks.Queue
	)
	if cfg.ClickWorkerCount > 0 {
		queue = clicks.NewQueue(recorder, cfg.ClickWorkerCount, cfg.ClickQueueSize, logg.Named("click_queue"))
		defer queue.Shutdown()
		writer = queue
	}

	locator := geo.Static(geo.Location{Country: cfg.GeoCountry, Region: cfg.GeoRegion, City: cfg.GeoCity})
	svc := service.New(cfg.BaseURL, reg, writer, recorder, locator,
		service.WithLogger(logg.Named("service")),
		service.WithDefaultValidity(cfg.DefaultValidityMinutes))

	params := api.RouterParams{
		Service:        svc,
		Logger:         logg.Named("http"),
		DB:             conn.DB(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
		QRCodeSize:     cfg.QRCodeSize,
	}
	if queue != nil {
		params.ClickQueue = queue
	}

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           api.SetupRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info("starting server", zap.String("addr", cfg.ServerPort), zap.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logg.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("http server shutdown failed", zap.Error(err))
	}
	return nil
}
