// Package main provides the REST API entry point for the pharmacy
// decision support service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/api"
	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/his"
	"github.com/pharmacy-mcp-server/internal/history"
	"github.com/pharmacy-mcp-server/internal/knowledge"
	"github.com/pharmacy-mcp-server/internal/service"
	"github.com/pharmacy-mcp-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting pharmacy decision support API server")

	// HIS client per configuration
	var hisClient his.Client
	switch cfg.HIS.Mode {
	case "", "mock":
		hisClient = his.NewMockClient(logger)
	case "http":
		hisClient = his.NewHTTPClient(cfg.HIS, logger)
	default:
		log.Fatalf("Unknown HIS mode: %s", cfg.HIS.Mode)
	}

	// Order history store. The API degrades to 503 on history endpoints
	// when the database is unreachable instead of refusing to start.
	var historyStore history.Store
	if store, err := history.NewPostgresStoreFromURL(configManager.GetDatabaseURL()); err != nil {
		logger.WithError(err).Warn("Order history store unavailable, history endpoints disabled")
	} else {
		historyStore = store
		defer store.Close()
	}

	// External drug data for interaction label enrichment. Redis caching is
	// best effort.
	var labelCache *external.CacheClient
	if cacheClient, err := external.NewCacheClient(cfg.Cache); err != nil {
		logger.WithError(err).Warn("Redis unavailable, external data caching disabled")
	} else {
		labelCache = cacheClient
		defer cacheClient.Close()
	}
	drugData := external.NewResilientDrugDataClient(cfg.External, labelCache, logger)

	// Domain services
	formulary := knowledge.NewFormulary(logger)
	renal := knowledge.NewRenalDosing(logger)
	prescriptionService := service.NewPrescriptionService(
		formulary, renal, hisClient, historyStore, logger)
	dosageService := service.NewDosageService(logger)
	interactionService := service.NewInteractionService(drugData, logger)

	// Create server
	server := api.NewServer(
		configManager, prescriptionService, dosageService, interactionService,
		historyStore, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}
