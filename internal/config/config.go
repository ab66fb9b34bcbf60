package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Queue backends.
const (
	QueueKafka = "kafka"
	QueueSQS   = "sqs"
)

// Geocode cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	DatabaseURL    string
	DBMaxOpenConns int

	AWSRegion   string
	PhotoBucket string

	QueueBackend       string
	KafkaBrokers       []string
	KafkaTopic         string
	ProcessingQueueURL string

	// Photo intake.
	FallbackLocation domain.Coordinate
	MaxPhotoBytes    int

	// Mapbox geocoding configuration.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration

	GeocodeCache    string
	GeocodeCacheTTL time.Duration
	RedisAddr       string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("GEOCODE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	maxOpenConns, err := parsePositiveInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}

	maxPhotoBytes, err := parsePositiveInt("MAX_PHOTO_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}

	fallback, err := parseFallbackLocation()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		DatabaseURL:    sharedcfg.EnvOrDefault("DATABASE_URL", "postgres://localhost:5432/deals?sslmode=disable"),
		DBMaxOpenConns: maxOpenConns,

		AWSRegion:   sharedcfg.EnvOrDefault("AWS_REGION", "us-east-1"),
		PhotoBucket: sharedcfg.EnvOrDefault("PHOTO_BUCKET", "deal-photos"),

		QueueBackend:       sharedcfg.EnvOrDefault("QUEUE_BACKEND", QueueKafka),
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "photo-processing"),
		ProcessingQueueURL: os.Getenv("PROCESSING_QUEUE_URL"),

		FallbackLocation: fallback,
		MaxPhotoBytes:    maxPhotoBytes,

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,

		GeocodeCache:    sharedcfg.EnvOrDefault("GEOCODE_CACHE", CacheMemory),
		GeocodeCacheTTL: cacheTTL,
		RedisAddr:       sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.QueueBackend {
	case QueueKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required")
		}
	case QueueSQS:
		if c.ProcessingQueueURL == "" {
			return errors.New("PROCESSING_QUEUE_URL is required when QUEUE_BACKEND is sqs")
		}
	default:
		return fmt.Errorf("invalid QUEUE_BACKEND %q: must be kafka or sqs", c.QueueBackend)
	}

	switch c.GeocodeCache {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("invalid GEOCODE_CACHE %q: must be memory, redis, or none", c.GeocodeCache)
	}

	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseFallbackLocation() (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("FALLBACK_LATITUDE", "37.89197"), 64)
	if err != nil {
		return domain.Coordinate{}, errors.New("invalid FALLBACK_LATITUDE")
	}
	lon, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("FALLBACK_LONGITUDE", "-76.44494"), 64)
	if err != nil {
		return domain.Coordinate{}, errors.New("invalid FALLBACK_LONGITUDE")
	}
	c := domain.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return domain.Coordinate{}, errors.New("invalid FALLBACK_LATITUDE/FALLBACK_LONGITUDE: out of range")
	}
	return c, nil
}
