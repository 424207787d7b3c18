// Package httpapi wires the HTTP transport (Gin) to the enrichment services,
// middleware, and route handlers. It owns middleware ordering and the route
// table; every dependency is injected.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-enrich-backend/docs" // registers the OpenAPI document
	"github.com/tbourn/go-enrich-backend/internal/config"
	"github.com/tbourn/go-enrich-backend/internal/http/handlers"
	"github.com/tbourn/go-enrich-backend/internal/http/middleware"
	"github.com/tbourn/go-enrich-backend/internal/repo"
)

// maxBodyBytes caps every request body. Callback payloads are the largest.
const maxBodyBytes = 1 << 20

// Deps are the collaborators RegisterRoutes mounts.
type Deps struct {
	Store    repo.Store // readiness and idempotency lookups
	Jobs     handlers.JobDispatcher
	Results  handlers.ResultStore
	Profiles handlers.ProfileStore
	Tokens   middleware.TokenVerifier
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(dispatchKeyLookup(d.Store)))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", readiness(d.Store))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(d.Jobs, d.Results, d.Profiles)
	identity := middleware.RequireIdentity(d.Tokens)

	callbacks := []gin.HandlerFunc{h.ReceiveCallback}
	if cfg.Enrich.CallbackSecret != "" {
		callbacks = append([]gin.HandlerFunc{middleware.CallbackSecret(cfg.Enrich.CallbackSecret)}, callbacks...)
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Jobs
		api.POST("/jobs", h.DispatchJob)
		api.POST("/callbacks", callbacks...)
		api.GET("/results", h.GetResult)

		// Profiles
		api.POST("/profiles/staged", h.StageProfile)
		api.POST("/profiles/associate", identity, h.AssociateProfile)
		api.GET("/profile", identity, h.GetProfile)
	}
}

// dispatchKeyLookup reports whether an Idempotency-Key already dispatched a
// job, so replays skip the rate limiter.
func dispatchKeyLookup(store repo.Store) middleware.IdempotencyLookup {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, key string) (bool, error) {
		_, err := store.Get(ctx, repo.DispatchKey(key))
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}

func readiness(store repo.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store not ready")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// corsMiddleware allows any origin when none are configured, otherwise only
// the allowlist. Producers and browsers both need the custom headers.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderIdempotencyKey,
			middleware.HeaderCallbackSecret,
			handlers.HeaderCorrelationID,
		},
		ExposeHeaders: []string{
			middleware.HeaderRequestID,
			middleware.HeaderIdempotencyReplayed,
			"Content-Length",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody caps the request body at maxBytes; reads past it fail.
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
