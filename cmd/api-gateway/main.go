package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/recurring-todo-api/internal/handler"
	"github.com/noah-isme/recurring-todo-api/internal/repository"
	"github.com/noah-isme/recurring-todo-api/internal/service"
	"github.com/noah-isme/recurring-todo-api/pkg/cache"
	"github.com/noah-isme/recurring-todo-api/pkg/config"
	"github.com/noah-isme/recurring-todo-api/pkg/database"
	"github.com/noah-isme/recurring-todo-api/pkg/logger"
)

// @title Recurring To-Do API
// @version 1.0.0
// @description Recurring to-do series and their merged occurrence listings
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db.DB)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("migrations applied", zap.Int64s("versions", applied))
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, occurrence cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	location, err := time.LoadLocation(cfg.Occurrences.Timezone)
	if err != nil {
		logr.Warn("unknown occurrences timezone, using UTC", zap.String("timezone", cfg.Occurrences.Timezone), zap.Error(err))
		location = time.UTC
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	seriesRepo := repository.NewSeriesRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	seriesSvc := service.NewSeriesService(seriesRepo, cacheSvc, validate, logr, service.SeriesServiceConfig{
		PreviewMaxDates: cfg.Occurrences.PreviewMaxDates,
		MaxRangeDays:    cfg.Occurrences.MaxRangeDays,
	})
	occurrenceSvc := service.NewOccurrenceService(service.OccurrenceServiceParams{
		Occurrences: occurrenceRepo,
		Series:      seriesRepo,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Config: service.OccurrenceServiceConfig{
			MaxRangeDays:    cfg.Occurrences.MaxRangeDays,
			DefaultPageSize: cfg.Occurrences.DefaultPageSize,
			MaxPageSize:     cfg.Occurrences.MaxPageSize,
			Workers:         cfg.Occurrences.ExpansionWorkers,
			Location:        location,
			CacheTTL:        cfg.Cache.TTL,
		},
	})

	var exports *service.ExportService
	if cfg.Exports.Enabled {
		exports = service.NewExportService(occurrenceSvc, nil, nil, nil, validate, logr)
	}

	if cfg.Purge.Enabled {
		purge, err := service.NewPurgeService(seriesRepo, metrics, logr, service.PurgeServiceConfig{
			Schedule:  cfg.Purge.Schedule,
			Retention: cfg.Purge.Retention,
			Retries:   cfg.Purge.WorkerRetries,
		})
		if err != nil {
			return err
		}
		if err := purge.Start(ctx); err != nil {
			return err
		}
		defer purge.Stop()
	}

	checks := map[string]handler.Pinger{"postgres": seriesRepo}
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}

	router := newRouter(cfg, logr, routes{
		series:      handler.NewSeriesHandler(seriesSvc),
		occurrences: newOccurrenceHandler(occurrenceSvc, exports),
		metrics:     handler.NewMetricsHandler(metrics, checks),
		tokens:      service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer),
		metricsSvc:  metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newOccurrenceHandler keeps a nil *ExportService from becoming a non-nil interface.
func newOccurrenceHandler(svc *service.OccurrenceService, exports *service.ExportService) *handler.OccurrenceHandler {
	if exports == nil {
		return handler.NewOccurrenceHandler(svc, nil)
	}
	return handler.NewOccurrenceHandler(svc, exports)
}
