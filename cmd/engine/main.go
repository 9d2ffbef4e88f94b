// Package main is the entry point for the gamification engine. It prepares
// the database, seeds the achievement catalog and serves the ops endpoints.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wholefood-engine/internal/config"
	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/pkg/db"
	"wholefood-engine/internal/repository"
	"wholefood-engine/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	configureLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(dbPool.Pool)
	m := metrics.New(prometheus.DefaultRegisterer)
	registerPoolStats(prometheus.DefaultRegisterer, dbPool)

	gm := cfg.Gamification
	clock := service.NewClock(gm.Location())
	achievementService := service.NewAchievementService(store, m, clock)

	seeded, err := achievementService.SeedCatalog(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed achievement catalog")
	}

	scheduler, err := startReconcileJob(service.NewXPService(store, m, clock), gm.ReconcileInterval, gm.ReconcileBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	log.Info().
		Int("seeded", seeded).
		Str("timezone", gm.Location().String()).
		Float64("nutrition_threshold", gm.NutritionThreshold).
		Msg("Engine ready")

	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthHandler(dbPool)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Ops server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Ops server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ops server shutdown failed")
	}
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
	}
	log.Info().Msg("Engine stopped gracefully")
}

func configureLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.Console {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// startReconcileJob periodically repairs users whose cached XP drifted from
// the ledger. A zero interval disables the job.
func startReconcileJob(xp *service.XPService, interval time.Duration, batch int) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			repaired, err := xp.ReconcileAll(ctx, batch)
			if err != nil {
				log.Error().Err(err).Msg("XP reconcile sweep failed")
				return
			}
			if repaired > 0 {
				log.Info().Int("repaired", repaired).Msg("XP reconcile sweep finished")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func healthHandler(pool *db.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

// registerPoolStats exposes connection pool usage.
func registerPoolStats(reg prometheus.Registerer, pool *db.Pool) {
	gauge := func(name, help string, value func() float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "engine_db_pool_" + name,
			Help: help,
		}, value)
	}
	reg.MustRegister(
		gauge("total_conns", "Connections currently in the pool", func() float64 {
			return float64(pool.Stats().TotalConns())
		}),
		gauge("acquired_conns", "Connections currently checked out", func() float64 {
			return float64(pool.Stats().AcquiredConns())
		}),
		gauge("idle_conns", "Idle connections in the pool", func() float64 {
			return float64(pool.Stats().IdleConns())
		}),
	)
}
