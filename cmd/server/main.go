package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediaecomx/dashboard-project/internal/attribution"
	"github.com/mediaecomx/dashboard-project/internal/delivery"
	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/internal/infrastructure"
	"github.com/mediaecomx/dashboard-project/internal/usecase"
	"github.com/mediaecomx/dashboard-project/pkg/config"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
	"github.com/mediaecomx/dashboard-project/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting dashboard server")

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		log.WithError(err).Fatal("Invalid report timezone")
	}

	engine, err := attribution.NewEngine(cfg.Vocabulary)
	if err != nil {
		log.WithError(err).Fatal("Invalid marketer mapping")
	}

	m := metrics.New()

	trafficClient := infrastructure.NewAnalyticsClient(
		cfg.Analytics.BaseURL,
		cfg.Analytics.APIKey,
		cfg.Analytics.RequestTimeout,
		cfg.Analytics.RateLimitPerSecond,
		log,
		m,
	)
	storeClient := infrastructure.NewStoreClient(cfg.Report.StoreTimeout, cfg.Report.HistoryTimeout, log, m)

	snapshots := buildSnapshotStore(cfg, log)

	scheduler := usecase.NewFetchScheduler(
		usecase.SchedulerConfig{
			GuardThreshold:    cfg.Quota.GuardThreshold,
			DegradedThreshold: cfg.Quota.DegradedThreshold,
			NormalTTL:         cfg.Quota.NormalTTL,
			DegradedTTL:       cfg.Quota.DegradedTTL,
		},
		trafficClient,
		cfg.Analytics.PropertyIDs,
		log,
		m,
	)
	aggregator := usecase.NewPurchaseAggregator(storeClient, cfg.Stores, cfg.Report.RealtimeWindow, loc, log, m)
	builder := usecase.NewReportBuilder(engine, log, m)

	realtimeService := usecase.NewRealtimeService(scheduler, aggregator, builder, snapshots, log, m)
	historicalService := usecase.NewHistoricalService(trafficClient, cfg.Analytics.PropertyIDs, aggregator, builder, loc, log, m)

	budgets := delivery.QuotaBudgets{Hourly: cfg.Quota.HourlyBudget, Daily: cfg.Quota.DailyBudget}
	handlers := delivery.NewHTTPHandlers(realtimeService, historicalService, loc, budgets, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m)

	log.WithFields(map[string]any{
		"port":       cfg.Server.Port,
		"properties": len(cfg.Analytics.PropertyIDs),
		"stores":     len(cfg.Stores),
		"timezone":   cfg.Report.Timezone,
	}).Info("Server configured")

	if err := router.SetupRoutes().Run(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

// buildSnapshotStore wires the trend store: redis when enabled and reachable,
// otherwise the in-process fallback.
func buildSnapshotStore(cfg *config.Config, log *logger.Logger) domain.SnapshotRepository {
	if !cfg.Redis.Enabled {
		return infrastructure.NewMemorySnapshotStore(cfg.Report.TrendRetention)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := infrastructure.NewRedisSnapshotStore(client, cfg.Redis.Key, cfg.Report.TrendRetention, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.WithError(err).Warn("Redis unreachable, using in-memory trend store")
		return infrastructure.NewMemorySnapshotStore(cfg.Report.TrendRetention)
	}

	log.WithField("addr", cfg.Redis.Addr).Info("Trend snapshots backed by redis")
	return store
}
