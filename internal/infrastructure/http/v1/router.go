// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	appctx "cannapos/internal/core/context"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/domain/order"
	"cannapos/internal/infrastructure/http/v1/handlers"
	"cannapos/internal/infrastructure/http/v1/middleware"
	"cannapos/pkg/logger"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator
	// Limiter throttles /api/v1; nil disables rate limiting.
	Limiter    *limiter.Limiter
	Orders     *order.Service
	Compliance *compliance.Service
	// Checks are pinged by /health/ready.
	Checks map[string]handlers.Pinger
}

// NewRouter creates and configures the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: ErrorHandler must wrap every handler.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.Checks)
	router.GET("/health/live", health.Live)
	router.GET("/health/ready", health.Ready)

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Limiter != nil {
		api.Use(middleware.RateLimit(cfg.Limiter))
	}
	api.Use(middleware.RequireRole(appctx.RoleUser, appctx.RoleManager))

	registerOrderRoutes(api, handlers.NewOrderHandler(cfg.Orders))
	registerPackageRoutes(api, handlers.NewPackageHandler(cfg.Compliance))

	return router
}

func registerOrderRoutes(api *gin.RouterGroup, h *handlers.OrderHandler) {
	manager := middleware.RequireRole(appctx.RoleManager)

	orders := api.Group("/orders")
	orders.POST("", h.Create)
	orders.GET("/:id/amount", h.Amount)
	orders.POST("/:id/items", h.AddItem)
	orders.POST("/:id/return-items", h.AddReturnItem)
	orders.DELETE("/:id/items/:itemId", h.RemoveItem)
	orders.POST("/:id/discount", h.ApplyDiscount)
	orders.DELETE("/:id/discount", manager, h.CancelDiscount)
	orders.POST("/:id/loyalty", h.ApplyLoyalty)
	orders.DELETE("/:id/loyalty", h.CancelLoyalty)
	orders.POST("/:id/tax", h.RecomputeTax)
	orders.POST("/:id/hold", h.Hold)
	orders.POST("/:id/unhold", h.Unhold)
	orders.POST("/:id/cancel", h.Cancel)
	orders.POST("/:id/return", h.ConvertToReturn)
	orders.POST("/:id/complete", h.Complete)
	orders.POST("/:id/void", manager, h.Void)
	orders.POST("/:id/sync", h.Sync)
	orders.POST("/:id/unsync", h.Unsync)
}

func registerPackageRoutes(api *gin.RouterGroup, h *handlers.PackageHandler) {
	packages := api.Group("/packages")
	packages.GET("/drift", h.Drift)
	packages.GET("/adjustments", h.Pending)
	packages.POST("/sync", h.Sync)
	packages.POST("/finish-empty", h.FinishEmpty)
	packages.POST("/:id/adjust", h.Adjust)
	packages.POST("/:id/finish", h.Finish)
	packages.POST("/:id/reactivate", h.Reactivate)
	packages.POST("/:id/hold", h.Hold)
	packages.POST("/:id/unhold", h.Unhold)

	adjustments := api.Group("/adjustments")
	adjustments.POST("/:id/reconcile", h.Reconcile)
	adjustments.DELETE("/:id", h.CancelReconcile)
}
