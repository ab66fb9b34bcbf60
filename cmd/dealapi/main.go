package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsrekognition "github.com/aws/aws-sdk-go-v2/service/rekognition"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/couchcryptid/deal-discovery/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/deal-discovery/internal/adapter/kafka"
	"github.com/couchcryptid/deal-discovery/internal/adapter/mapbox"
	"github.com/couchcryptid/deal-discovery/internal/adapter/postgres"
	"github.com/couchcryptid/deal-discovery/internal/adapter/rekognition"
	"github.com/couchcryptid/deal-discovery/internal/adapter/s3"
	"github.com/couchcryptid/deal-discovery/internal/adapter/sqs"
	"github.com/couchcryptid/deal-discovery/internal/config"
	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/geotag"
	"github.com/couchcryptid/deal-discovery/internal/observability"
	"github.com/couchcryptid/deal-discovery/internal/ocr"
	"github.com/couchcryptid/deal-discovery/internal/pipeline"
	"github.com/couchcryptid/deal-discovery/internal/query"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	db, err := connectDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	store := s3.NewStore(awss3.NewFromConfig(awsCfg), cfg.PhotoBucket)
	detector := ocr.NewAdapter(rekognition.NewDetector(awsrekognition.NewFromConfig(awsCfg)))

	publisher, closePublisher := newPublisher(cfg, awsCfg, logger)
	defer closePublisher()

	geocoder := newGeocoder(cfg, logger, metrics)

	intake := pipeline.New(store, geotag.NewExtractor(cfg.FallbackLocation), detector, publisher, logger, metrics,
		pipeline.WithMaxPhotoBytes(cfg.MaxPhotoBytes))

	repo := postgres.NewRepository(db)
	enricher := query.NewAddressEnricher(geocoder, cfg.MapboxTimeout, logger, metrics)
	engine := query.NewEngine(repo, enricher, geocoder, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		// Base64 inflates by 4/3; leave room for the JSON envelope.
		MaxBodyBytes: int64(cfg.MaxPhotoBytes)*4/3 + 64<<10,
	}, intake, engine, readiness{repo, store}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	return nil
}

// connectDB opens the pool, retrying with backoff while the database comes up.
func connectDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	const attempts = 5
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn("database not reachable", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, 10*time.Second)
	}
	return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempts, lastErr)
}

// newPublisher selects the queue backend. The returned func releases it.
func newPublisher(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (pipeline.Publisher, func()) {
	if cfg.QueueBackend == config.QueueSQS {
		logger.Info("queue backend", "backend", config.QueueSQS, "queue_url", cfg.ProcessingQueueURL)
		return sqs.NewPublisher(awssqs.NewFromConfig(awsCfg), cfg.ProcessingQueueURL, logger), func() {}
	}

	logger.Info("queue backend", "backend", config.QueueKafka, "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	p := kafkaadapter.NewPublisher(cfg, logger)
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
}

// newGeocoder returns nil when geocoding is disabled, which leaves addresses
// on their coordinate fallback and fails near queries with AddressNotFound.
func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if !cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	metrics.GeocodeEnabled.Set(1)

	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout, "cache", cfg.GeocodeCache, "cache_ttl", cfg.GeocodeCacheTTL)

	switch cfg.GeocodeCache {
	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return mapbox.NewCachedGeocoder(client, mapbox.NewRedisCache(rdb, cfg.GeocodeCacheTTL, logger), metrics)
	case config.CacheMemory:
		return mapbox.NewCachedGeocoder(client, mapbox.NewMemoryCache(cfg.GeocodeCacheTTL), metrics)
	default:
		return client
	}
}

// readiness reports ready when every dependency check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
