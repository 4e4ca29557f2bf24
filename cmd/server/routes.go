package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"paymenow.backend/internal/infrastructure/metrics"
	"paymenow.backend/internal/interfaces/http/handlers"
	"paymenow.backend/internal/interfaces/http/middleware"
)

const (
	serviceName    = "paymenow-backend"
	serviceVersion = "1.0.0"
)

type routeDeps struct {
	ledgerHandler  *handlers.LedgerHandler
	accountHandler *handlers.AccountHandler
	webhookHandler *handlers.SettlementWebhookHandler
	authMiddleware gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		transfers := v1.Group("/transfers")
		transfers.Use(d.authMiddleware, middleware.IdempotencyMiddleware())
		{
			transfers.POST("/internal", d.ledgerHandler.TransferInternal)
			transfers.POST("/external", d.ledgerHandler.TransferExternal)
		}

		v1.POST("/deposits", d.authMiddleware, middleware.RequireAdmin(), middleware.IdempotencyMiddleware(), d.ledgerHandler.Deposit)

		balances := v1.Group("/balances")
		balances.Use(d.authMiddleware)
		{
			balances.GET("", d.accountHandler.ListBalances)
			balances.GET("/:asset", d.accountHandler.GetBalance)
		}

		transactions := v1.Group("/transactions")
		transactions.Use(d.authMiddleware)
		{
			transactions.GET("", d.accountHandler.ListTransactions)
			transactions.GET("/:id", d.accountHandler.GetTransaction)
		}

		// shared-secret authenticated
		v1.POST("/webhooks/settlement", d.webhookHandler.HandleSettlement)
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

const readinessTimeout = 2 * time.Second

// registerReadinessRoute answers 503 until every dependency check passes
func registerReadinessRoute(r *gin.Engine, checks map[string]func(context.Context) error) {
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Idempotency-Hit")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
