// Command server runs the company-enrichment HTTP API.
//
// @title                      Company Enrichment API
// @version                    1.0
// @description                Dispatches company-domain enrichment jobs, receives producer callbacks, serves polled results, and stages profiles for association after sign-in.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-enrich-backend/internal/auth"
	"github.com/tbourn/go-enrich-backend/internal/config"
	"github.com/tbourn/go-enrich-backend/internal/enrich"
	httpapi "github.com/tbourn/go-enrich-backend/internal/http"
	"github.com/tbourn/go-enrich-backend/internal/observability"
	"github.com/tbourn/go-enrich-backend/internal/repo"
	"github.com/tbourn/go-enrich-backend/internal/services"
	"github.com/tbourn/go-enrich-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sysutil.SetupLogging(os.Stderr, cfg.LogLevel, cfg.OTEL.ServiceName, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version,
		observability.PipelineAttributes(cfg.Enrich.Mode, cfg.Store.Backend)...)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	results := services.NewResultService(store, cfg.ResultTTL)
	profiles := services.NewProfileService(store, cfg.StagingTTL)
	dispatcher := services.NewDispatcher(newStrategy(cfg, results), store, cfg.IdempotencyTTL)

	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Store:    store,
		Jobs:     dispatcher,
		Results:  results,
		Profiles: profiles,
		Tokens:   auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("mode", cfg.Enrich.Mode).
			Str("store", cfg.Store.Backend).
			Str("version", version).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Running fan-outs still write through the store.
	dispatcher.Wait()
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("closing store")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (repo.Store, error) {
	switch sc.Backend {
	case config.StoreRedis:
		s, err := repo.NewRedisStore(ctx, repo.RedisOptions{
			Addr:     sc.RedisAddr,
			Username: sc.RedisUsername,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil

	case config.StoreSQLite:
		db, err := repo.OpenSQLite(sc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		s, err := repo.NewSQLStore(db)
		if err != nil {
			return nil, err
		}
		go s.RunPurger(ctx, sc.PurgeInterval)
		return s, nil

	default:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return repo.NewMemoryStore(), nil
	}
}

func newStrategy(cfg config.Config, sink services.ResultSink) services.Strategy {
	ec := cfg.Enrich
	if ec.Mode == config.DispatchDelegated {
		return &services.DelegatedFanOut{
			Webhook:     enrich.NewWebhookClient(ec.WebhookURL, nil),
			CallbackURL: strings.TrimRight(ec.CallbackBaseURL, "/") + cfg.APIBasePath + "/callbacks",
		}
	}
	batch := len(ec.Prompts)
	if batch == 0 {
		batch = len(enrich.DefaultPrompts)
	}
	return &services.DirectFanOut{
		Completer: enrich.NewCompletionClient(enrich.CompletionOptions{
			BaseURL:          ec.CompletionBaseURL,
			APIKey:           ec.CompletionAPIKey,
			Model:            ec.CompletionModel,
			Timeout:          ec.CompletionTimeout,
			HalfOpenRequests: uint32(batch),
		}),
		Sink:    sink,
		Prompts: ec.Prompts,
		Timeout: ec.FanOutTimeout,
	}
}
