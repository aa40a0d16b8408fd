// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"tradebook/internal/domain/bill"
	"tradebook/internal/domain/payment"
	"tradebook/internal/domain/stock"
	"tradebook/internal/infrastructure/http/v1/handlers"
	"tradebook/internal/infrastructure/http/v1/middleware"
	"tradebook/internal/infrastructure/storage/postgres"
	"tradebook/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks); may be nil
	// when running against the in-memory store.
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Domain services
	BillService    *bill.Service
	PaymentService *payment.Service
	StockService   *stock.Service
}

// NewRouter creates and configures the Gin router.
//
// Bills and payments are exposed under a :kind path segment (purchase|sale);
// one handler serves both sides of the trade.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		baseHandler := handlers.NewBaseHandler()

		billHandler := handlers.NewBillHandler(baseHandler, cfg.BillService)
		billHandler.RegisterRoutes(v1.Group("/bills/:kind"))

		paymentHandler := handlers.NewPaymentHandler(baseHandler, cfg.PaymentService)
		paymentHandler.RegisterRoutes(v1.Group("/payments/:kind"))

		stockHandler := handlers.NewStockHandler(baseHandler, cfg.StockService)
		stockHandler.RegisterRoutes(v1.Group("/stock"))
	}

	return router
}
