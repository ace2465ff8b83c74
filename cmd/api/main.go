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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"carbonos/carbon-engine-backend/internal/accesslog"
	"carbonos/carbon-engine-backend/internal/auth"
	"carbonos/carbon-engine-backend/internal/benchmarks"
	"carbonos/carbon-engine-backend/internal/companies"
	"carbonos/carbon-engine-backend/internal/config"
	"carbonos/carbon-engine-backend/internal/emissions"
	"carbonos/carbon-engine-backend/internal/factors"
	"carbonos/carbon-engine-backend/internal/methodology"
	pkgcache "carbonos/carbon-engine-backend/pkg/cache"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&companies.Company{},
		&emissions.EmissionRecord{},
		&emissions.EmissionLineItem{},
		&methodology.ReductionCalculation{},
		&accesslog.Entry{},
	); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	journal := accesslog.NewAsyncJournal(db, logger, cfg.Audit.BufferSize)
	defer journal.Close()

	// Wire services.
	companyRepo := companies.NewRepository(db)
	emissionService := emissions.NewService(emissions.NewRepository(db), journal, logger)

	factorCache := pkgcache.New[string, []factors.Factor](cfg.Factors.CacheTTL)
	catalog := factors.NewBaseCarboneCatalog(cfg.Factors.CatalogURL, cfg.Factors.APIKey, cfg.Factors.RequestTimeout, logger)
	resolver := factors.NewResolver(catalog, factorCache, cfg.Factors.CacheTTL, logger)

	benchmarkService := benchmarks.NewService(benchmarks.NewRepository(db), companyRepo, journal, logger)

	registry := methodology.NewRegistry()
	engine := methodology.NewEngine(registry, db, journal, logger)

	// Periodic sweep of expired factor cache entries.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Factors.SweepSchedule, func() {
		if removed := factorCache.Cleanup(); removed > 0 {
			logger.Debug("factor cache swept", zap.Int("removed", removed))
		}
	}); err != nil {
		logger.Fatal("invalid cache sweep schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(auth.Middleware([]byte(cfg.Security.JWTSecret)))
	{
		companies.NewHandler(companyRepo, logger).RegisterRoutes(api)
		emissions.NewHandler(emissionService, logger).RegisterRoutes(api)
		factors.NewHandler(resolver, logger).RegisterRoutes(api)
		benchmarks.NewHandler(benchmarkService, logger).RegisterRoutes(api)
		methodology.NewHandler(engine, registry, logger).RegisterRoutes(api)
	}

	server := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return cfg.Build()
}
