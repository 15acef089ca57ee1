package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/gridport/internal/api"
	"github.com/timmy/gridport/internal/auth"
	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/engine"
	"github.com/timmy/gridport/internal/logger"
	"github.com/timmy/gridport/internal/provision"
	"github.com/timmy/gridport/internal/recovery"
	"github.com/timmy/gridport/internal/service"
	"github.com/timmy/gridport/internal/session"
	"github.com/timmy/gridport/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewFromEnv()
	logger.SetDefault(appLogger)
	defer logger.Sync()

	// Initialize session store
	sessions, err := newSessionStore(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize session store")
	}

	// Initialize upload archive storage (optional)
	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		archive, err = storage.NewStorage(&storage.Config{
			Provider:  cfg.Storage.Provider,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize archive storage")
		}
	}

	// Initialize datastore client and credential manager
	client := datastore.NewClient(&cfg.Datastore)
	tokens := auth.NewManager(client, auth.Options{
		BufferWindow:       cfg.Auth.BufferWindow(),
		MinRefreshInterval: cfg.Auth.MinRefreshInterval(),
	})

	// Initialize pipeline components
	recoveryManager := recovery.NewManager(sessions, client, tokens, archive)
	provisioner := provision.New(client, tokens)
	importEngine := engine.New(client, tokens, cfg.Import)

	importService := service.NewImportService(
		sessions,
		recoveryManager,
		provisioner,
		importEngine,
		client,
		archive,
	)
	registry := service.NewRegistry(importService, appLogger)

	// Setup router
	router := api.SetupRouter(importService, registry, cfg, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

// newSessionStore selects the session cache backend from configuration.
func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionCache.Driver {
	case "", "memory":
		return session.NewMemoryStore(cfg.SessionCache.MaxContentBytes), nil
	default:
		db, err := session.InitDB(&cfg.SessionCache)
		if err != nil {
			return nil, err
		}
		return session.NewGormStore(db, cfg.SessionCache.MaxContentBytes), nil
	}
}
