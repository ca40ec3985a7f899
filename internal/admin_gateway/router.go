package admin_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hr-leave-ledger/internal/admin_gateway/handler"
	"github.com/hr-leave-ledger/internal/admin_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	balanceHandler *handler.BalanceHandler,
	engineHandler *handler.EngineHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Ledger reads and initialization
		balances := v1.Group("/balances")
		{
			balances.GET("/:employeeID", balanceHandler.GetByEmployee)
			balances.POST("/:employeeID/initialize", balanceHandler.Initialize)
			balances.POST("/:employeeID/recompute", balanceHandler.Recompute)
		}

		// Engine operations
		v1.POST("/accruals/run", engineHandler.RunAccrual)
		v1.POST("/settlements/:requestID", engineHandler.Settle)
		v1.POST("/reconciliation/run", engineHandler.RunReconciliation)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
