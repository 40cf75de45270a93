// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-grocery-backend/internal/config"
	"github.com/tbourn/go-grocery-backend/internal/domain"
	"github.com/tbourn/go-grocery-backend/internal/http/handlers"
	"github.com/tbourn/go-grocery-backend/internal/http/middleware"
	"github.com/tbourn/go-grocery-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Actor: resolve the acting user before logging and rate limiting
//  4. Logger: structured logs keyed by request and user
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS, security headers, gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, payments services.PaymentCharger, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Resolve the acting user from the gateway identity headers
	r.Use(middleware.Actor())

	// 4) Structured access logging
	r.Use(middleware.Logger())

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderUserID, middleware.HeaderUserRole, "Idempotency-Key",
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps
		// tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compress JSON responses; /metrics stays uncompressed for scrapers.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db/audit/payments/config
	sink := &services.GormAuditSink{}
	settings := services.CheckoutSettings{
		// Amounts were validated in config.Load; RequireFromString cannot
		// panic here.
		DeliveryMinTotal:       decimal.RequireFromString(cfg.Checkout.DeliveryMinTotal),
		DeliveryFeeUnderMin:    decimal.RequireFromString(cfg.Checkout.DeliveryFeeUnderMin),
		DeliverySourceBranchID: cfg.Checkout.DeliverySourceBranchID,
	}
	checkoutSvc := services.NewCheckoutService(db, sink, payments, settings)
	orderSvc := services.NewOrderService(db, sink)
	opsSvc := services.NewOpsOrderService(db, sink)
	stockSvc := services.NewStockRequestService(db, sink)
	h := handlers.New(checkoutSvc, orderSvc, opsSvc, stockSvc)

	staff := middleware.RequireRole(domain.RoleEmployee, domain.RoleManager, domain.RoleAdmin)
	reviewers := middleware.RequireRole(domain.RoleManager, domain.RoleAdmin)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.RequireUser())
	{
		// Checkout
		api.POST("/checkout/preview", h.PreviewCheckout)
		api.POST("/checkout/confirm", h.ConfirmCheckout)

		// Customer orders
		api.GET("/orders", h.ListMyOrders)
		api.GET("/orders/:id", h.GetMyOrder)
		api.POST("/orders/:id/cancel", h.CancelMyOrder)

		// Ops order queue (fulfillment staff)
		ops := api.Group("/ops", staff)
		{
			ops.GET("/orders", h.ListOpsOrders)
			ops.GET("/orders/:id", h.GetOpsOrder)
			ops.PATCH("/orders/:id/status", h.UpdateOrderStatus)
			ops.PATCH("/orders/:id/items/:itemID/status", h.UpdateItemPickedStatus)
			ops.POST("/orders/:id/sync", h.SyncOrder)
			ops.POST("/orders/:id/items/:itemID/damage-report", h.ReportDamage)
		}

		// Stock requests
		api.POST("/stock-requests", staff, h.CreateStockRequest)
		api.GET("/stock-requests/mine", staff, h.ListMyStockRequests)

		admin := api.Group("/admin", reviewers)
		{
			admin.GET("/stock-requests", h.ListStockRequests)
			admin.POST("/stock-requests/review", h.ReviewStockRequest)
			admin.POST("/stock-requests/bulk-review", h.BulkReviewStockRequests)
		}
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap error on body read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
