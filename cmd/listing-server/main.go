// cmd/listing-server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"findmysecurity/internal/api"
	"findmysecurity/internal/common/auth"
	"findmysecurity/internal/common/config"
	"findmysecurity/internal/common/database"
	commonhttp "findmysecurity/internal/common/http"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/observability"
	listingfetcher "findmysecurity/internal/listing/listing-fetcher"
	"findmysecurity/internal/listing/listing-fetcher/sources"
	postcodevalidator "findmysecurity/internal/listing/postcode-validator"
	"findmysecurity/internal/listing/schema"
	"findmysecurity/internal/models"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting listing server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("listingSource", cfg.Listing.Source),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()
	checks := map[string]api.ReadinessCheck{}

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	checks["redis"] = redis.Ping
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL with retry (session checks only) ---
	var pg *database.PostgresClient
	if cfg.Auth.CheckSessions {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry (search-index source only) ---
	var esClient *database.ElasticsearchClient
	if cfg.Listing.Source == config.SourceElasticsearch {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = esClient.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Postcode lookup ---
	postcodeConfig := postcodevalidator.ConfigFrom(cfg.Postcode)
	var lookup postcodevalidator.Lookup = postcodevalidator.NewHTTPLookup(postcodeConfig)
	if postcodeConfig.CacheTTL > 0 {
		lookup = postcodevalidator.NewCachedLookup(lookup, redis, postcodeConfig.CacheTTL, log)
	}

	// --- Session evidence ---
	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	var sessionDB *sql.DB
	if pg != nil {
		sessionDB = pg.DB
	}
	sessions := auth.NewSessionChecker(verifier, redis.Client, sessionDB,
		config.GetDuration(cfg.Auth.SessionCacheTTL), log)

	var drafts *api.DraftStore
	if cfg.Drafts.Enabled {
		drafts = api.NewDraftStore(redis, config.GetDuration(cfg.Drafts.TTL), log)
	}

	// --- Listing pages ---
	deps := api.PageDeps{
		FetchConfig:    listingfetcher.ConfigFrom(cfg.Listing),
		PostcodeConfig: postcodeConfig,
		Lookup:         lookup,
		Logger:         log,
	}
	pages := []api.Page{
		newPage[models.Professional](models.EntityProfessionals, cfg, esClient, deps, log),
		newPage[models.Company](models.EntityCompanies, cfg, esClient, deps, log),
		newPage[models.CourseProvider](models.EntityCourseProviders, cfg, esClient, deps, log),
	}

	server := api.NewServer(api.Options{
		Pages:           pages,
		Validator:       postcodevalidator.NewValidator(postcodeConfig, lookup, log),
		Sessions:        sessions,
		Drafts:          drafts,
		CookieName:      cfg.Auth.CookieName,
		LoginURL:        cfg.Server.LoginURL,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ReadinessChecks: checks,
		Observability:   obs,
		Logger:          log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Listing server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Listing server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down meter provider", zap.Error(err))
	}
	zapLog.Info("Listing server stopped gracefully")
}

// newPage picks the configured listing source for one entity.
func newPage[T any](entity models.EntityType, cfg *config.Config, es *database.ElasticsearchClient, deps api.PageDeps, log logger.Logger) api.Page {
	s, err := schema.Lookup(entity)
	if err != nil {
		panic(err)
	}

	var source listingfetcher.Source[T]
	switch cfg.Listing.Source {
	case config.SourceElasticsearch:
		source = sources.NewElasticsearchSource[T](es, log)
	default:
		client := commonhttp.NewClient(config.GetDuration(cfg.Listing.Timeout))
		source = sources.NewHTTPSource[T](cfg.Listing.BaseURL, func(s schema.Schema) string {
			return cfg.Listing.EndpointFor(string(s.Entity))
		}, client, log)
	}
	return api.NewPage[T](s, source, deps)
}
