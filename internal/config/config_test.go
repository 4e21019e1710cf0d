package config

import (
	"ms-events/internal/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "KAFKA_BROKERS", "REDIS_ENABLED", "MAX_UPLOAD_MB", "IMAGE_DIR", "IMAGE_URL_PREFIX"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8085", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "UploadedImages", cfg.Storage.ImageDir)
	assert.Equal(t, "UploadedImages", cfg.Storage.ImageURLPrefix)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Database.MaxLifetime)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("EVENT_CACHE_TTL_SECONDS", "30")
	t.Setenv("SERVER_READ_TIMEOUT", "750ms")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 750*time.Millisecond, cfg.Server.ReadTimeout)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("REDIS_ENABLED", "maybe")
	t.Setenv("SERVER_IDLE_TIMEOUT", "forever")

	assert.Equal(t, 25, getEnvInt("DB_MAX_OPEN_CONNS", 25))
	assert.False(t, getEnvBool("REDIS_ENABLED", false))
	assert.Equal(t, time.Minute, getEnvDuration("SERVER_IDLE_TIMEOUT", time.Minute))
	assert.Equal(t, []string{"x"}, getEnvList("UNSET_LIST_FOR_TEST", []string{"x"}))
}

func TestValidateImageURLPrefixIndependentOfDir(t *testing.T) {
	t.Setenv("IMAGE_DIR", "/")
	t.Setenv("IMAGE_URL_PREFIX", "/media/images/")

	cfg := Load()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "media/images", cfg.Storage.ImageURLPrefix)
	assert.Equal(t, "/", cfg.Storage.ImageDir)
}

func TestValidateRejectsBadImageURLPrefix(t *testing.T) {
	for _, prefix := range []string{"/", ".", "..", "events", "/metrics/img"} {
		t.Setenv("IMAGE_URL_PREFIX", prefix)

		err := Load().Validate()

		assert.Error(t, err, prefix)
	}

	t.Setenv("IMAGE_URL_PREFIX", "/")
	assert.ErrorIs(t, Load().Validate(), storage.ErrInvalidURLPrefix)
}

func TestValidateRejectsNonPositiveUploadLimit(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "0")

	assert.Error(t, Load().Validate())
}
