package main

import (
	"context"
	"time"

	"cannapos/internal/config"
	"cannapos/pkg/logger"
)

// Syncer pulls regulator packages for every connected dispensary.
type Syncer interface {
	SyncAll(ctx context.Context) (int, error)
}

// Relay delivers pending outbox messages.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
}

// StatsLogger reports connection pool usage.
type StatsLogger interface {
	LogStats(ctx context.Context)
}

// WorkerConfig holds the worker dependencies.
type WorkerConfig struct {
	Sync     Syncer
	Relay    Relay
	Pool     StatsLogger
	Settings config.WorkerConfig
	Logger   *logger.Logger
}

// Worker runs the periodic background jobs.
type Worker struct {
	sync     Syncer
	relay    Relay
	pool     StatsLogger
	settings config.WorkerConfig
	log      *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		sync:     cfg.Sync,
		relay:    cfg.Relay,
		pool:     cfg.Pool,
		settings: cfg.Settings,
		log:      cfg.Logger.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled. The regulator sync runs once at
// start and then every SyncInterval.
func (w *Worker) Run(ctx context.Context) {
	syncTicker := time.NewTicker(w.settings.SyncInterval)
	defer syncTicker.Stop()

	outboxTicker := time.NewTicker(w.settings.OutboxInterval)
	defer outboxTicker.Stop()

	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	w.syncRegulator(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			w.syncRegulator(ctx)
		case <-outboxTicker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.moveFailed(ctx)
			if w.pool != nil {
				w.pool.LogStats(ctx)
			}
		}
	}
}

func (w *Worker) syncRegulator(ctx context.Context) {
	n, err := w.sync.SyncAll(ctx)
	if err != nil {
		w.log.Errorw("regulator sync failed", "error", err)
		return
	}
	w.log.Infow("regulator sync finished", "dispensaries", n)
}

func (w *Worker) processOutbox(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Debugw("outbox batch delivered", "count", n)
	}
}

func (w *Worker) moveFailed(ctx context.Context) {
	n, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("failed to move outbox messages to dlq", "error", err)
		return
	}
	if n > 0 {
		w.log.Warnw("outbox messages moved to dlq", "count", n)
	}
}
