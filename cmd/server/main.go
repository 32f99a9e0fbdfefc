package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/handlers"
	"github.com/tch-helper-go/internal/i18n"
	"github.com/tch-helper-go/internal/middleware"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/ai"
	"github.com/tch-helper-go/internal/services/cache"
	dynamicconfig "github.com/tch-helper-go/internal/services/config"
	"github.com/tch-helper-go/internal/services/phrasebook"
	"github.com/tch-helper-go/internal/services/storage"
	"github.com/tch-helper-go/internal/services/suggestion"
	"github.com/tch-helper-go/internal/services/templates"
	"github.com/tch-helper-go/pkg/logger"
)

const phrasebookRefreshInterval = 5 * time.Minute

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting suggestion server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := middleware.NewMetrics()

	storageManager, err := storage.NewManager(cfg, log, metrics)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer storageManager.Close()

	// Runtime AI settings override the static model config
	aiSettings := dynamicconfig.NewDynamicConfigService(storageManager, &cfg.Models, log)
	if err := aiSettings.Load(ctx); err != nil {
		log.WithError(err).Error("Failed to load AI settings, using static config")
	}

	aiService := ai.NewGroqAI(&cfg.Models, aiSettings, log, metrics)
	cacheService := cache.NewCache(cfg, log)

	aiSettings.RegisterConfigChangeListener(func(models.AISettings) {
		if err := cacheService.Clear(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to clear suggestion cache")
		}
	})

	rateLimiter := middleware.NewRateLimiter(cfg, log, metrics)
	defer rateLimiter.Close()

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	suggestionService := suggestion.NewService(
		suggestion.OptionsFromConfig(cfg.Suggest),
		aiService,
		cacheService,
		storageManager,
		rateLimiter,
		metrics,
		log,
	)

	if cfg.Phrasebook.Enabled {
		book := phrasebook.NewPhrasebookService(cfg.Suggest.MaxLength, log)
		book.OnReload(func() {
			if pools, ok := book.Pools(cfg.Phrasebook.Locale); ok {
				suggestionService.SetPools(pools)
			}
		})
		if err := book.Load(ctx, cfg.Phrasebook.Directory); err != nil {
			log.WithError(err).Error("Failed to load phrasebook, using built-in phrases")
		}
		go refreshPhrasebook(ctx, book, log)
	}

	templateService := templates.NewService(
		storageManager,
		localizer,
		cfg.Templates.DefaultCoolDownMs,
		cfg.Suggest.HistoryLimit,
		log,
		metrics,
	)

	handler := handlers.NewHandler(
		suggestionService,
		templateService,
		aiSettings,
		localizer,
		metrics,
		log,
		cfg.I18n.Languages,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.Monitoring.Metrics.Enabled {
		metricsServer = middleware.NewMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path)
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Metrics server shutdown failed")
		}
	}

	log.Info("Server stopped")
}

// refreshPhrasebook reloads the phrasebook directory until ctx is done
func refreshPhrasebook(ctx context.Context, book phrasebook.Service, log *logrus.Logger) {
	ticker := time.NewTicker(phrasebookRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := book.Refresh(ctx); err != nil {
				log.WithError(err).Warn("Failed to refresh phrasebook")
			}
		}
	}
}
