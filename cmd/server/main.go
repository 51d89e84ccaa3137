// Package main is the entry point for the cannapos API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"cannapos/internal/config"
	"cannapos/internal/domain/auth"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/domain/order"
	"cannapos/internal/domain/registers/stock"
	"cannapos/internal/domain/tax"
	"cannapos/internal/infrastructure/cache"
	v1 "cannapos/internal/infrastructure/http/v1"
	"cannapos/internal/infrastructure/http/v1/handlers"
	"cannapos/internal/infrastructure/metrc"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting cannapos server", "storage", cfg.App.Storage, "metrc_mode", cfg.Metrc.Mode)

	// --- Storage ---
	st, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer st.close()

	// --- Purchase limit cache and rate limiter store ---
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit.Rate)
	if err != nil {
		log.Fatalw("invalid rate limit", "error", err)
	}

	var (
		limitCache catalog.LimitCache
		limitStore limiter.Store
	)
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisCache := cache.NewRedisLimitCacheFromClient(client, cfg.Redis.TTL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisCache.Close()

		limitStore, err = limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "cannapos:ratelimit"})
		if err != nil {
			log.Fatalw("failed to create rate limit store", "error", err)
		}
		limitCache = redisCache
		st.checks["redis"] = handlers.PingFunc(redisCache.Ping)
		log.Infow("redis connection established", "addr", cfg.Redis.Addr)
	} else {
		limitCache = cache.NewLocalLimitCache(cfg.Redis.TTL)
		limitStore = limitermemory.NewStore()
	}

	if st.pool != nil {
		inv := cache.NewInvalidator(st.pool.Pool, limitCache)
		inv.Start(ctx)
		defer inv.Stop()
	}

	// --- Domain services ---
	matcher, err := tax.NewRuleMatcher()
	if err != nil {
		log.Fatalw("failed to compile tax rule matcher", "error", err)
	}
	catalogService := catalog.NewService(st.catalog, limitCache)
	regulatorClient := metrc.NewClient(cfg.Metrc)

	orderService := order.NewService(order.ServiceConfig{
		Repo:      st.orders,
		Packages:  st.packages,
		Catalog:   catalogService,
		TxManager: st.txManager,
		Taxes:     tax.NewCalculator(matcher),
		Stock:     stock.NewService(st.stock),
		Regulator: regulatorClient,
		Audit:     st.audit,
		Events:    st.events,
		Metrc:     cfg.Metrc,
	})
	complianceService := compliance.NewService(compliance.ServiceConfig{
		Repo:      st.compliance,
		Catalog:   catalogService,
		TxManager: st.txManager,
		Regulator: regulatorClient,
		Audit:     st.audit,
		Events:    st.events,
		Metrc:     cfg.Metrc,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:      limiter.New(limitStore, rate),
		Orders:       orderService,
		Compliance:   complianceService,
		Checks:       st.checks,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
