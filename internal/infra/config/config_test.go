package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, TokensRandom, cfg.TokenMode)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.False(t, cfg.UsesMongo())
	assert.False(t, cfg.UsesRedis())
	assert.False(t, cfg.UsesKafka())
	assert.False(t, cfg.UsesS3())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"STORAGE":       "Mongo",
		"MONGO_URI":     "mongodb://localhost:27017",
		"KAFKA_BROKERS": "k1:9092, ,k2:9092",
		"RETRY_BACKOFF": "2s,",
		"S3_ENDPOINT":   "http://minio:9000",
		"TOKEN_MODE":    "jwt",
		"JWT_SECRET":    "s3cret",
		"SESSION_TTL":   "90m",
	})
	require.NoError(t, err)
	assert.True(t, cfg.UsesMongo())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{2 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "http://minio:9000", cfg.S3PublicEndpoint)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
}

func TestLoadFrom_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri": {"STORAGE": "mongo"},
		"unknown storage":   {"STORAGE": "postgres"},
		"jwt without key":   {"TOKEN_MODE": "jwt"},
		"bad backoff":       {"RETRY_BACKOFF": "1s,soon"},
		"bad duration":      {"SESSION_TTL": "forever"},
		"zero ttl":          {"SESSION_TTL": "0s"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}
