// Package main is the entry point for the cannapos background worker.
// It runs the scheduled regulator sync and relays the event outbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cannapos/internal/config"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/infrastructure/cache"
	"cannapos/internal/infrastructure/messaging/rabbitmq"
	"cannapos/internal/infrastructure/metrc"
	"cannapos/internal/infrastructure/storage/postgres"
	"cannapos/internal/infrastructure/storage/postgres/catalog_repo"
	"cannapos/internal/infrastructure/storage/postgres/compliance_repo"
	"cannapos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.App.Storage != config.StoragePostgres {
		log.Fatalw("worker requires postgres storage", "storage", cfg.App.Storage)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting cannapos worker")

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	txManager := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		log.Fatalw("failed to connect to rabbitmq", "error", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(cfg.RabbitMQ.Exchange); err != nil {
		log.Fatalw("failed to declare topology", "error", err)
	}

	complianceService := compliance.NewService(compliance.ServiceConfig{
		Repo:      compliance_repo.New(txManager),
		Catalog:   catalog.NewService(catalog_repo.New(txManager), cache.NewLocalLimitCache(cfg.Redis.TTL)),
		TxManager: txManager,
		Regulator: metrc.NewClient(cfg.Metrc),
		Audit:     auditService,
		Events:    postgres.NewOutboxPublisher(txManager),
		Metrc:     cfg.Metrc,
	})

	worker := NewWorker(WorkerConfig{
		Sync:     complianceService,
		Relay:    postgres.NewOutboxRelay(txManager, cfg.Worker.OutboxBatch, rabbitmq.NewOutboxHandler(mq, cfg.RabbitMQ.Exchange)),
		Pool:     pool,
		Settings: cfg.Worker,
		Logger:   log,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
