package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/timmy/gridport/internal/auth"
	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/engine"
	"github.com/timmy/gridport/internal/logger"
	"github.com/timmy/gridport/internal/provision"
	"github.com/timmy/gridport/internal/recovery"
	"github.com/timmy/gridport/internal/service"
	"github.com/timmy/gridport/internal/session"
	"github.com/timmy/gridport/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "gridport-import",
	})
	logger.SetDefault(appLogger)
	defer logger.Sync()

	// Parse command line flags
	filePath := flag.String("file", "", "Path to the delimited text file to import")
	tableName := flag.String("table", "", "Destination table name (defaults to the file name)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *filePath == "" {
		appLogger.Fatal("Missing required -file flag")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	content, err := os.ReadFile(*filePath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read input file")
	}

	// Initialize archive storage (optional)
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

	// A one-shot run never outlives the process; the in-memory session
	// store suffices regardless of the configured driver.
	sessions := session.NewMemoryStore(cfg.SessionCache.MaxContentBytes)

	client := datastore.NewClient(&cfg.Datastore)
	tokens := auth.NewManager(client, auth.Options{
		BufferWindow:       cfg.Auth.BufferWindow(),
		MinRefreshInterval: cfg.Auth.MinRefreshInterval(),
	})

	importService := service.NewImportService(
		sessions,
		recovery.NewManager(sessions, client, tokens, archive),
		provision.New(client, tokens),
		engine.New(client, tokens, cfg.Import),
		client,
		archive,
	)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	name := filepath.Base(*filePath)
	record, err := importService.Upload(ctx, &domain.SourceFile{
		Name:     name,
		Size:     int64(len(content)),
		MIMEType: "text/csv",
		Content:  string(content),
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Upload failed")
	}

	result, err := importService.Run(ctx, &service.RunRequest{
		RecordID:  record.RecordID,
		TableName: *tableName,
		Sink: func(s domain.ProgressSnapshot) {
			appLogger.WithFields(logger.Fields{
				"current": s.Current,
				"total":   s.Total,
				"percent": s.Percentage,
				"failed":  s.Failed,
			}).Info("Import progress")
		},
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Import failed")
	}

	appLogger.WithFields(logger.Fields{
		"table":     result.TableName,
		"attempted": result.Attempted,
		"created":   result.Created,
		"failed":    result.Failed,
		"verified":  result.VerifiedRows,
	}).Info("Import completed")

	for reason, count := range result.FailureReasons {
		appLogger.WithFields(logger.Fields{
			"reason": reason,
			"count":  count,
		}).Warn("Records failed")
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
