package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "postgres://localhost:5432/deals?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "deal-photos", cfg.PhotoBucket)
	assert.Equal(t, QueueKafka, cfg.QueueBackend)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "photo-processing", cfg.KafkaTopic)
	assert.Empty(t, cfg.ProcessingQueueURL)
	assert.Equal(t, domain.Coordinate{Latitude: 37.89197, Longitude: -76.44494}, cfg.FallbackLocation)
	assert.Equal(t, 10*1024*1024, cfg.MaxPhotoBytes)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, CacheMemory, cfg.GeocodeCache)
	assert.Equal(t, 24*time.Hour, cfg.GeocodeCacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://deals.example.com, http://localhost:3000")
	t.Setenv("DATABASE_URL", "postgres://db:5432/prod")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("PHOTO_BUCKET", "custom-bucket")
	t.Setenv("QUEUE_BACKEND", QueueSQS)
	t.Setenv("PROCESSING_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/123/processing")
	t.Setenv("FALLBACK_LATITUDE", "40.7128")
	t.Setenv("FALLBACK_LONGITUDE", "-74.006")
	t.Setenv("MAX_PHOTO_BYTES", "2048")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "2s")
	t.Setenv("GEOCODE_CACHE", CacheRedis)
	t.Setenv("GEOCODE_CACHE_TTL", "1h")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://deals.example.com", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "postgres://db:5432/prod", cfg.DatabaseURL)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "custom-bucket", cfg.PhotoBucket)
	assert.Equal(t, QueueSQS, cfg.QueueBackend)
	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/123/processing", cfg.ProcessingQueueURL)
	assert.Equal(t, domain.Coordinate{Latitude: 40.7128, Longitude: -74.006}, cfg.FallbackLocation)
	assert.Equal(t, 2048, cfg.MaxPhotoBytes)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 2*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, CacheRedis, cfg.GeocodeCache)
	assert.Equal(t, time.Hour, cfg.GeocodeCacheTTL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"MAPBOX_TIMEOUT", "bad", "MAPBOX_TIMEOUT"},
		{"GEOCODE_CACHE_TTL", "0s", "GEOCODE_CACHE_TTL"},
		{"DB_MAX_OPEN_CONNS", "0", "DB_MAX_OPEN_CONNS"},
		{"MAX_PHOTO_BYTES", "lots", "MAX_PHOTO_BYTES"},
		{"FALLBACK_LATITUDE", "north", "FALLBACK_LATITUDE"},
		{"FALLBACK_LONGITUDE", "west", "FALLBACK_LONGITUDE"},
		{"FALLBACK_LATITUDE", "91", "FALLBACK_LATITUDE"},
		{"QUEUE_BACKEND", "rabbitmq", "QUEUE_BACKEND"},
		{"GEOCODE_CACHE", "memcached", "GEOCODE_CACHE"},
		{"KAFKA_BROKERS", " , ", "KAFKA_BROKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_SQSRequiresQueueURL(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", QueueSQS)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROCESSING_QUEUE_URL")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
