package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-complaints-api/internal/geo"
	"github.com/noah-isme/civic-complaints-api/internal/handler"
	"github.com/noah-isme/civic-complaints-api/internal/middleware"
	"github.com/noah-isme/civic-complaints-api/internal/repository"
	"github.com/noah-isme/civic-complaints-api/internal/router"
	"github.com/noah-isme/civic-complaints-api/internal/service"
	"github.com/noah-isme/civic-complaints-api/pkg/cache"
	"github.com/noah-isme/civic-complaints-api/pkg/config"
	"github.com/noah-isme/civic-complaints-api/pkg/database"
	"github.com/noah-isme/civic-complaints-api/pkg/logger"
	"github.com/noah-isme/civic-complaints-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	checks := map[string]handler.Pinger{"postgres": db}
	metrics := service.NewMetricsService()

	var counters middleware.CounterStore
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and submission limits", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		counters = redisClient
		cacheRepo = repository.NewCacheRepository(redisClient, "civic")
		checks["redis"] = redisPinger{client: redisClient}
	}

	files, err := newFileStore(ctx, cfg.Uploads)
	if err != nil {
		return fmt.Errorf("file store: %w", err)
	}

	resolverOpts := []geo.ResolverOption{
		geo.WithMetrics(metrics),
		geo.WithLogger(logr.Named("geo")),
	}
	if cacheRepo != nil && cfg.Geocoder.CacheEnabled {
		geoCache := service.NewCacheService(cacheRepo, metrics, cfg.Geocoder.CacheTTL, logr, true)
		resolverOpts = append(resolverOpts, geo.WithCache(geoCache, cfg.Geocoder.CacheTTL))
	}
	resolver := geo.NewResolver(
		geo.ExifExtractor{ApplyHemisphere: cfg.Geocoder.ApplyHemisphere},
		geo.NewNominatimClient(geo.NominatimConfig{
			BaseURL:      cfg.Geocoder.BaseURL,
			UserAgent:    cfg.Geocoder.UserAgent,
			Timeout:      cfg.Geocoder.Timeout,
			RateLimitRPS: cfg.Geocoder.RateLimitRPS,
		}),
		resolverOpts...,
	)

	validate := validator.New()
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	complaintSvc := service.NewComplaintService(
		complaintRepo,
		auditRepo,
		files,
		resolver,
		storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL),
		metrics,
		validate,
		logr.Named("complaints"),
		service.ComplaintServiceConfig{
			APIPrefix:     cfg.APIPrefix,
			MaxImageBytes: cfg.Uploads.MaxFileSizeBytes,
		},
	)

	engine := router.New(router.Options{
		APIPrefix:            cfg.APIPrefix,
		AllowedOrigins:       cfg.CORS.AllowedOrigins,
		EnableDocs:           cfg.Env != config.EnvProduction,
		DailySubmissionLimit: cfg.Complaints.DailySubmissionLimit,
		Logger:               logr,
		Metrics:              metrics,
		Tokens:               authSvc,
		Counters:             counters,
		AuditLogs:            auditRepo,
		Auth:                 handler.NewAuthHandler(authSvc),
		Complaints:           handler.NewComplaintHandler(complaintSvc, cfg.Uploads.MaxFileSizeBytes),
		Health:               handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newFileStore(ctx context.Context, cfg config.UploadsConfig) (service.FileStore, error) {
	switch cfg.Backend {
	case config.UploadBackendMinIO:
		return storage.NewObjectStorage(ctx, cfg.MinIO)
	case config.UploadBackendLocal, "":
		return storage.NewLocalStorage(cfg.StorageDir)
	default:
		return nil, fmt.Errorf("unknown uploads backend %q", cfg.Backend)
	}
}
