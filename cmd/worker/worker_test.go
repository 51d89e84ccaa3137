package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cannapos/internal/config"
	"cannapos/pkg/logger"
)

type countingSyncer struct{ calls atomic.Int32 }

func (s *countingSyncer) SyncAll(context.Context) (int, error) {
	s.calls.Add(1)
	return 1, nil
}

type countingRelay struct {
	batches atomic.Int32
	err     error
}

func (r *countingRelay) ProcessBatch(context.Context) (int, error) {
	r.batches.Add(1)
	return 0, r.err
}

func (r *countingRelay) MoveToDLQ(context.Context) (int64, error) { return 0, nil }

func TestWorker_Run(t *testing.T) {
	syncer := &countingSyncer{}
	relay := &countingRelay{err: errors.New("broker down")}

	w := NewWorker(WorkerConfig{
		Sync:  syncer,
		Relay: relay,
		Settings: config.WorkerConfig{
			SyncInterval:   time.Hour,
			OutboxInterval: 5 * time.Millisecond,
		},
		Logger: logger.Default(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return relay.batches.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), syncer.calls.Load(), "sync runs once at start")
}
