package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/cmd/mainconfig"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/api/router"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/assistant"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/clinic"
	appconfig "github.com/Lubabaloboqwana6/clinicconnect-platform/internal/config"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/http/handlers"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/observability/metrics"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/state"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicconnect API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, counter, cleanup := buildStore(ctx, cfg, logger)
	defer cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	queueMetrics := metrics.NewQueueMetrics(registry)

	directory := clinic.NewDirectory(st)
	checker := clinic.NewChecker(directory, st, cfg.AvgServiceMinutes, cfg.MinWaitMinutes, cfg.MaxQueueSize, logger)
	coord := queue.NewCoordinator(st, counter, checker, queue.Rules{
		AvgServiceMinutes: cfg.AvgServiceMinutes,
		MinWaitMinutes:    cfg.MinWaitMinutes,
		PositionMode:      queue.PositionMode(cfg.PositionMode),
	}, logger, queueMetrics)
	apptRepo := appointments.NewRepository(st)
	sessions := state.NewManager(st, coord, directory, cfg.AppointmentRecency, cfg.ReminderDelay, queueMetrics, logger)
	defer sessions.CloseAll()

	if cfg.StoreBackend == "memory" {
		seedClinics(ctx, directory, logger)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:               logger,
		QueueHandler:         handlers.NewQueueHandler(sessions, coord, logger),
		ClinicsHandler:       handlers.NewClinicsHandler(directory, checker, coord, sessions, logger),
		NotificationsHandler: handlers.NewNotificationsHandler(sessions),
		AppointmentsHandler:  handlers.NewAppointmentsHandler(apptRepo, logger),
		AssistantHandler:     handlers.NewAssistantHandler(assistant.Stub{}, logger),
		StreamHandler:        handlers.NewStreamHandler(sessions, cfg.WSWriteTimeout, logger),
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the stream endpoint holds connections open.
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildStore selects the document-store backend. The returned cleanup closes
// backend connections and must run after all sessions are closed.
func buildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (store.Client, store.Counter, func()) {
	switch cfg.StoreBackend {
	case "dynamo":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		redisClient := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisTLS)
		bus := store.NewRedisChangeBus(redisClient, logger)
		dyn := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.QueueTable, bus, logger)
		return dyn, dyn, func() { _ = redisClient.Close() }

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		pg := store.NewPostgres(pool, logger)
		go func() {
			if err := pg.Listen(ctx); err != nil {
				logger.Error("postgres listener stopped", "error", err)
			}
		}()
		return pg, pg, pool.Close

	case "memory":
		mem := store.NewMemory()
		return mem, mem, func() {}

	default:
		logger.Error("unknown store backend", "backend", cfg.StoreBackend)
		os.Exit(1)
		return nil, nil, nil
	}
}

// seedClinics loads a small starter directory so the memory backend is
// usable out of the box.
func seedClinics(ctx context.Context, directory *clinic.Directory, logger *logging.Logger) {
	seeds := []clinic.Clinic{
		{
			Name:              "Soweto Community Clinic",
			Address:           "123 Vilakazi Street, Soweto",
			Specialty:         "General Practice",
			Phone:             "+27 11 555 0100",
			OpenTime:          "07:00",
			CloseTime:         "17:00",
			MaxQueueSize:      50,
			AvgServiceMinutes: 15,
		},
		{
			Name:              "Hillbrow Health Centre",
			Address:           "45 Claim Street, Hillbrow",
			Specialty:         "Family Medicine",
			Phone:             "+27 11 555 0145",
			OpenTime:          "08:00",
			CloseTime:         "16:30",
			MaxQueueSize:      40,
			AvgServiceMinutes: 20,
		},
		{
			Name:              "Alexandra Day Clinic",
			Address:           "8 London Road, Alexandra",
			Specialty:         "Pediatrics",
			Phone:             "+27 11 555 0188",
			OpenTime:          "07:30",
			CloseTime:         "18:00",
			MaxQueueSize:      30,
			AvgServiceMinutes: 12,
		},
	}
	for _, c := range seeds {
		if _, err := directory.Add(ctx, c); err != nil {
			logger.Warn("failed to seed clinic", "name", c.Name, "error", err)
		}
	}
}
