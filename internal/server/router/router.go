package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(engine *handlers.EngineHandler, reports *handlers.ReportHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/sales/resolve", engine.ResolveSaleItem)

		owner := v1.Group("/owners/:owner_id")
		{
			owner.POST("/sales", engine.LogSale)
			owner.POST("/expenses", engine.LogExpense)
			owner.POST("/payments", engine.LogCustomerPayment)
			owner.POST("/stock/receive", engine.ReceiveStock)
			owner.POST("/bank-accounts", engine.OpenBankAccount)
			owner.PATCH("/transactions/:id", engine.EditTransaction)
			owner.DELETE("/transactions/:id", engine.DeleteTransaction)

			owner.GET("/transactions", reports.ListTransactions)
			owner.GET("/reports/profit-loss", reports.ProfitAndLoss)
			owner.GET("/products", reports.ListProducts)
			owner.GET("/products/:product_id/audit", engine.ListInventoryAudit)
			owner.GET("/bank-accounts", reports.ListBankBalances)
			owner.GET("/customers", reports.ListCustomers)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
