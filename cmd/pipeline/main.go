package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mholloway/cricket-fantasy/internal/handicap"
	"github.com/mholloway/cricket-fantasy/internal/metrics"
	"github.com/mholloway/cricket-fantasy/internal/providers"
	"github.com/mholloway/cricket-fantasy/internal/scoring"
	"github.com/mholloway/cricket-fantasy/internal/services"
	"github.com/mholloway/cricket-fantasy/internal/storage"
	"github.com/mholloway/cricket-fantasy/pkg/config"
	"github.com/mholloway/cricket-fantasy/pkg/database"
)

func main() {
	once := flag.Bool("once", false, "run a single pipeline pass and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logger := logrus.StandardLogger()

	if len(cfg.Clubs) == 0 {
		logrus.Fatal("No clubs configured; set CLUBS to a comma-separated list")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Scoring rules
	rules := scoring.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = scoring.LoadRules(cfg.RulesPath)
		if err != nil {
			logrus.Fatalf("Failed to load scoring rules: %v", err)
		}
		logrus.Infof("Loaded scoring rules %s from %s", rules.Version, cfg.RulesPath)
	}

	// Initialize services
	cacheService := services.NewCacheService(redisClient)
	fetcher := providers.NewMatchCentreClient(cfg.MatchCentreBaseURL, cfg.MatchCentreRate, cfg.MatchCentreTimeout, cacheService, logger)

	rosterRepo := storage.NewRosterRepository(db)
	perfRepo := storage.NewPerformanceRepository(db)
	matchRepo := storage.NewMatchRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	pipeline := services.NewPipelineService(
		fetcher, matchRepo, rosterRepo, perfRepo,
		rules, m, buildNotifier(cfg, logger), logger,
		services.PipelineConfig{
			Clubs:          cfg.Clubs,
			Season:         cfg.Season,
			Concurrency:    cfg.ExtractWorkers,
			ExtractTimeout: cfg.ExtractTimeout,
			AdjustMode:     adjustMode(cfg, logger),
			DriftRate:      cfg.DriftRate,
			OperatorPhone:  cfg.OperatorPhone,
		},
	)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.PipelineTimeout)
		defer cancel()
		summary, err := pipeline.Run(ctx)
		if err != nil {
			logrus.Fatalf("Pipeline run failed: %v", err)
		}
		if err := cacheService.SetSimple(services.BatchSummaryCacheKey(summary.RunID), summary, 7*24*time.Hour); err != nil {
			logrus.Warnf("Failed to cache run summary: %v", err)
		}
		logrus.Info(summary.Text())
		return
	}

	scheduler := services.NewSchedulerService(pipeline, cacheService, cfg.PipelineSchedule, cfg.PipelineTimeout, logger)
	if err := scheduler.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(scheduler.Status()); err != nil {
			logrus.Warnf("Failed to write health response: %v", err)
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Metrics server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start metrics server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Metrics server forced to shutdown: %v", err)
	}

	logrus.Info("Pipeline exited")
}

func buildNotifier(cfg *config.Config, logger *logrus.Logger) services.Notifier {
	switch cfg.SMSProvider {
	case "twilio":
		limiter := services.NewNotifyRateLimiter(cfg.SMSHourlyCap, time.Hour)
		return services.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, limiter, logger)
	default:
		return services.NewMockNotifier(logger)
	}
}

func adjustMode(cfg *config.Config, logger *logrus.Logger) handicap.Mode {
	switch cfg.AdjustMode {
	case string(handicap.ModeInitial):
		return handicap.ModeInitial
	case string(handicap.ModeDrift):
		return handicap.ModeDrift
	default:
		logger.Warnf("Unknown adjust mode %q, using drift", cfg.AdjustMode)
		return handicap.ModeDrift
	}
}
