package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"

	TokensRandom = "random"
	TokensJWT    = "jwt"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	Storage  string `env:"STORAGE" envDefault:"memory"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"hostelfinder"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_SESSION_CHANNEL" envDefault:"hostelfinder:sessions"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix   string        `env:"KAFKA_TOPIC_PREFIX"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	RetryBackoffRaw    string        `env:"RETRY_BACKOFF" envDefault:"1s,5s,30s"`
	RetryBackoff       []time.Duration

	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3PublicEndpoint string `env:"S3_PUBLIC_ENDPOINT"`
	S3AccessKey      string `env:"S3_ACCESS_KEY" envDefault:"minioadmin"`
	S3SecretKey      string `env:"S3_SECRET_KEY" envDefault:"minioadmin"`
	S3Bucket         string `env:"S3_BUCKET" envDefault:"hostel-images"`
	S3UseSSL         bool   `env:"S3_USE_SSL" envDefault:"false"`

	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	TokenMode    string        `env:"TOKEN_MODE" envDefault:"random"`
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTIssuer    string        `env:"JWT_ISSUER" envDefault:"hostelfinder"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	HostelFixtures string `env:"HOSTEL_FIXTURES"`
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.finish()
}

// LoadFrom parses configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: vars})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.finish()
}

func (cfg Config) finish() (Config, error) {
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case "":
		cfg.Storage = StorageMemory
	case StorageMemory, StorageMongo:
	default:
		return Config{}, fmt.Errorf("invalid STORAGE %q", cfg.Storage)
	}
	if cfg.Storage == StorageMongo && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE=mongo")
	}

	cfg.TokenMode = strings.ToLower(strings.TrimSpace(cfg.TokenMode))
	switch cfg.TokenMode {
	case "":
		cfg.TokenMode = TokensRandom
	case TokensRandom:
	case TokensJWT:
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET is required when TOKEN_MODE=jwt")
		}
	default:
		return Config{}, fmt.Errorf("invalid TOKEN_MODE %q", cfg.TokenMode)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}

	cfg.RetryBackoff = nil
	for _, raw := range strings.Split(cfg.RetryBackoffRaw, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	brokers := cfg.KafkaBrokers[:0]
	for _, b := range cfg.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.KafkaBrokers = brokers

	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	return cfg, nil
}

func (cfg Config) UsesMongo() bool { return cfg.Storage == StorageMongo }
func (cfg Config) UsesRedis() bool { return cfg.RedisAddr != "" }
func (cfg Config) UsesKafka() bool { return len(cfg.KafkaBrokers) > 0 }
func (cfg Config) UsesS3() bool    { return cfg.S3Endpoint != "" }
