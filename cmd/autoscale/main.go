package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/ad-autoscaler/internal/api"
	"github.com/mohamedkhairy/ad-autoscaler/internal/autoscale"
	"github.com/mohamedkhairy/ad-autoscaler/internal/config"
	"github.com/mohamedkhairy/ad-autoscaler/internal/metrics"
	"github.com/mohamedkhairy/ad-autoscaler/internal/provider"
	"github.com/mohamedkhairy/ad-autoscaler/internal/pubsub"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const timezoneCacheTTL = time.Hour

func main() {
	runMode := flag.String("run", "", "run one batch and exit: hourly, daily or rule")
	ruleID := flag.String("rule-id", "", "rule to run with -run rule")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting autoscale service",
		logger.String("port", fmt.Sprintf("%d", cfg.Autoscale.Port)),
		logger.String("health_port", fmt.Sprintf("%d", cfg.Autoscale.HealthCheckPort)),
		logger.String("default_timezone", cfg.Autoscale.DefaultTimezone),
		logger.Bool("dry_run", cfg.Autoscale.DryRun),
		logger.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	db, err := storage.OpenDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			logger.ErrorField(err),
		)
	}
	defer db.Close()

	products := storage.NewPostgresProductRepository(db)
	history := storage.NewPostgresHistoryStore(db)
	ruleStore := rules.NewDatabaseRuleStore(db)

	var timezones storage.TimezoneLookup = products
	var publisher autoscale.SummaryPublisher

	// Redis is optional: it caches bot timezones and carries batch summaries
	if cfg.Redis.Enabled {
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()

		timezones = storage.NewCachedTimezoneLookup(products, redisClient, timezoneCacheTTL)
		if cfg.Autoscale.SummaryStream != "" {
			publisher = pubsub.NewSummaryPublisher(redisClient, pubsub.DefaultSummaryPublisherConfig(cfg.Autoscale.SummaryStream))
		}
	}

	compiler, err := rules.NewCompiler()
	if err != nil {
		logger.Fatal("Failed to initialize rule compiler",
			logger.ErrorField(err),
		)
	}

	registry := provider.NewRegistry(storage.NewPostgresCredentialStore(db), provider.Config{
		Timeout: cfg.Autoscale.ProviderTimeout,
		DryRun:  cfg.Autoscale.DryRun,
	})

	runner, err := autoscale.NewRunner(autoscale.Dependencies{
		Rules:     ruleStore,
		Assets:    storage.NewPostgresAssetRepository(db),
		Timezones: timezones,
		Resolver:  metrics.NewResolver(storage.NewPostgresMetricStore(db), storage.NewPostgresRevenueCalculator(db), nil),
		Compiler:  compiler,
		Executor:  autoscale.NewExecutor(registry, products, autoscale.NewCooldownGate(history), cfg.Autoscale.ProviderTimeout),
		Recorder:  autoscale.NewHistoryRecorder(history, cfg.Autoscale.HistoryMaxRetries, cfg.Autoscale.HistoryRetryDelay),
		Publisher: publisher,
	}, autoscale.RunnerConfig{
		DefaultLocation: cfg.Autoscale.DefaultLocation(),
		QueryTimeout:    cfg.Autoscale.QueryTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize rule runner",
			logger.ErrorField(err),
		)
	}

	if *runMode != "" {
		code := runOnce(runner, *runMode, *ruleID)
		logger.Sync()
		db.Close()
		os.Exit(code)
	}

	serve(cfg, db, runner, ruleStore, history)
}

// runOnce runs a single batch for external schedulers and prints its summary
func runOnce(runner *autoscale.Runner, mode, ruleID string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		summary *autoscale.BatchSummary
		err     error
	)
	switch mode {
	case autoscale.KindHourly:
		summary, err = runner.RunHourly(ctx)
	case autoscale.KindDaily:
		summary, err = runner.RunDaily(ctx)
	case autoscale.KindRule:
		if ruleID == "" {
			logger.Error("-rule-id is required with -run rule")
			return 2
		}
		summary, err = runner.RunRule(ctx, ruleID)
	default:
		logger.Error("Unknown run mode", logger.String("mode", mode))
		return 2
	}
	if err != nil {
		logger.Error("Batch run failed",
			logger.String("mode", mode),
			logger.ErrorField(err),
		)
		return 1
	}

	if err := json.NewEncoder(os.Stdout).Encode(summary); err != nil {
		logger.Error("Failed to write summary", logger.ErrorField(err))
		return 1
	}
	return 0
}

func serve(cfg *config.Config, db *sql.DB, runner *autoscale.Runner, ruleStore rules.RuleStore, history storage.HistoryStore) {
	done := make(chan struct{})
	defer close(done)

	handler := api.NewAutoscaleHandler(runner, ruleStore, history)
	router := api.NewRouter(handler, api.RouterConfig{
		Auth:         api.NewAuthManager(cfg.API.JWTSecret),
		RateLimitRPS: cfg.API.RateLimitRPS,
		Done:         done,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Autoscale.Port),
		Handler: router,
	}

	// Set up HTTP server for health checks and metrics
	healthMux := mux.NewRouter()

	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	healthMux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "reason": "database unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	healthMux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	healthMux.Handle("/metrics", promhttp.Handler())

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Autoscale.HealthCheckPort),
		Handler: healthMux,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	go func() {
		logger.Info("Starting health check server",
			logger.String("addr", healthServer.Addr),
		)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start health check server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down autoscale service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}
	if err := healthServer.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down health check server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Autoscale service stopped")
}
