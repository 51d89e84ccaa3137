package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cannapos/internal/domain/catalog"
	"cannapos/pkg/logger"
)

// LimitsChannel is the NOTIFY channel raised when purchase limits change.
// The payload is the dispensary id.
const LimitsChannel = "purchase_limits_changed"

// Invalidator drops cached purchase limits on PostgreSQL NOTIFY events.
type Invalidator struct {
	pool  *pgxpool.Pool
	cache catalog.LimitCache

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewInvalidator creates an invalidator for cache.
func NewInvalidator(pool *pgxpool.Pool, cache catalog.LimitCache) *Invalidator {
	return &Invalidator{pool: pool, cache: cache}
}

// Start begins listening in the background.
func (i *Invalidator) Start(ctx context.Context) {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()
	if i.started {
		return
	}
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.started = true

	i.wg.Add(1)
	go i.listenLoop()
	logger.Info(i.ctx, "limit cache invalidator started")
}

// Stop ends listening and waits for the loop to exit.
func (i *Invalidator) Stop() {
	i.lifecycleMu.Lock()
	if !i.started {
		i.lifecycleMu.Unlock()
		return
	}
	cancel := i.cancel
	i.started = false
	i.lifecycleMu.Unlock()

	cancel()
	i.wg.Wait()
}

func (i *Invalidator) listenLoop() {
	defer i.wg.Done()

	for i.ctx.Err() == nil {
		conn, err := i.pool.Acquire(i.ctx)
		if err != nil {
			logger.Error(i.ctx, "acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if _, err := conn.Exec(i.ctx, "LISTEN "+LimitsChannel); err != nil {
			logger.Error(i.ctx, "LISTEN failed", "channel", LimitsChannel, "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		i.wait(conn)
		conn.Release()
	}
}

func (i *Invalidator) wait(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(i.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()
		if err != nil {
			if i.ctx.Err() != nil {
				return
			}
			if ctx.Err() == nil {
				// Connection broken; reacquire.
				logger.Warn(i.ctx, "notification wait failed", "error", err)
				return
			}
			continue
		}
		i.Handle(i.ctx, n.Payload)
	}
}

// Handle invalidates the dispensary named by payload.
func (i *Invalidator) Handle(ctx context.Context, payload string) {
	dispensaryID, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		logger.Warn(ctx, "invalid limits notification", "payload", payload)
		return
	}
	if err := i.cache.Invalidate(ctx, dispensaryID); err != nil {
		logger.Error(ctx, "invalidate limits", "dispensary_id", dispensaryID, "error", err)
		return
	}
	logger.Debug(ctx, "purchase limits invalidated", "dispensary_id", dispensaryID)
}
