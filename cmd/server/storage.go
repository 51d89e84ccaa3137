package main

import (
	"context"
	"fmt"

	"cannapos/internal/config"
	"cannapos/internal/core/tx"
	"cannapos/internal/domain/audit"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/domain/events"
	"cannapos/internal/domain/order"
	"cannapos/internal/domain/registers/stock"
	"cannapos/internal/infrastructure/http/v1/handlers"
	"cannapos/internal/infrastructure/storage/memory"
	"cannapos/internal/infrastructure/storage/postgres"
	"cannapos/internal/infrastructure/storage/postgres/catalog_repo"
	"cannapos/internal/infrastructure/storage/postgres/compliance_repo"
	"cannapos/internal/infrastructure/storage/postgres/order_repo"
)

// storage bundles the repositories of one backend.
type storage struct {
	pool       *postgres.Pool
	txManager  tx.Manager
	catalog    catalog.Repository
	orders     order.Repository
	packages   order.PackageReader
	compliance compliance.Repository
	stock      stock.Repository
	audit      audit.Recorder
	events     events.Publisher
	checks     map[string]handlers.Pinger
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.App.Storage == config.StorageMemory {
		store := memory.New()
		return &storage{
			txManager:  memory.NewTxManager(store),
			catalog:    store,
			orders:     store,
			packages:   store,
			compliance: store,
			stock:      store,
			audit:      store,
			events:     store,
			checks:     map[string]handlers.Pinger{},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	txManager := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: %w", err)
	}

	packages := compliance_repo.New(txManager)
	return &storage{
		pool:       pool,
		txManager:  txManager,
		catalog:    catalog_repo.New(txManager),
		orders:     order_repo.New(txManager),
		packages:   packages,
		compliance: packages,
		stock:      packages,
		audit:      auditService,
		events:     postgres.NewOutboxPublisher(txManager),
		checks:     map[string]handlers.Pinger{"postgres": handlers.PingFunc(pool.Ping)},
	}, nil
}

func (s *storage) close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
