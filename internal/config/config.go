// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret   = "your-secret-key-change-in-production"
	defaultMediaSecret = "media-signing-secret-change-in-production"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"`

	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL  string `mapstructure:"REDIS_URL"`
	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	JWTAud    string `mapstructure:"JWT_AUDIENCE"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	MediaSigningSecret string        `mapstructure:"MEDIA_SIGNING_SECRET"`
	MediaBaseURL       string        `mapstructure:"MEDIA_BASE_URL"`
	MediaPublicBaseURL string        `mapstructure:"MEDIA_PUBLIC_BASE_URL"`
	MediaPublicBuckets string        `mapstructure:"MEDIA_PUBLIC_BUCKETS"`
	MediaSignedURLTTL  time.Duration `mapstructure:"MEDIA_SIGNED_URL_TTL"`
	MediaBucketTimeout time.Duration `mapstructure:"MEDIA_BUCKET_TIMEOUT"`

	EmbeddingURL       string        `mapstructure:"EMBEDDING_URL"`
	EmbeddingAPIKey    string        `mapstructure:"EMBEDDING_API_KEY"`
	EmbeddingTimeout   time.Duration `mapstructure:"EMBEDDING_TIMEOUT"`
	EmbeddingCacheSize int           `mapstructure:"EMBEDDING_CACHE_SIZE"`
	EmbeddingCacheTTL  time.Duration `mapstructure:"EMBEDDING_CACHE_TTL"`

	FeedDefaultLimit int `mapstructure:"FEED_DEFAULT_LIMIT"`

	RateLimitWrites   int           `mapstructure:"RATE_LIMIT_WRITES"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RateLimitFailOpen bool          `mapstructure:"RATE_LIMIT_FAIL_OPEN"`

	AllowedOrigins   string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags     string `mapstructure:"FEATURE_FLAGS"`
	FeatureFlagsFile string `mapstructure:"FEATURE_FLAGS_FILE"`

	OTelExporter string `mapstructure:"OTEL_EXPORTER"`
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from a local .env, config files
// and environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "iskrib")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "iskrib-auth")
	viper.SetDefault("JWT_AUDIENCE", "iskrib-api")

	viper.SetDefault("MONGO_URI", "")
	viper.SetDefault("MONGO_DATABASE", "iskrib")

	viper.SetDefault("MEDIA_SIGNING_SECRET", defaultMediaSecret)
	viper.SetDefault("MEDIA_BASE_URL", "http://localhost:8080")
	viper.SetDefault("MEDIA_PUBLIC_BASE_URL", "")
	viper.SetDefault("MEDIA_PUBLIC_BUCKETS", "")
	viper.SetDefault("MEDIA_SIGNED_URL_TTL", time.Hour)
	viper.SetDefault("MEDIA_BUCKET_TIMEOUT", 3*time.Second)

	viper.SetDefault("EMBEDDING_URL", "")
	viper.SetDefault("EMBEDDING_API_KEY", "")
	viper.SetDefault("EMBEDDING_TIMEOUT", 10*time.Second)
	viper.SetDefault("EMBEDDING_CACHE_SIZE", 500)
	viper.SetDefault("EMBEDDING_CACHE_TTL", time.Hour)

	viper.SetDefault("FEED_DEFAULT_LIMIT", 5)

	viper.SetDefault("RATE_LIMIT_WRITES", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	viper.SetDefault("RATE_LIMIT_FAIL_OPEN", true)

	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("FEATURE_FLAGS_FILE", "")

	viper.SetDefault("OTEL_EXPORTER", "stdout")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
}

// IsProduction reports whether the service runs with production rules.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// PublicBuckets lists the buckets served without signing.
func (c *Config) PublicBuckets() []string {
	var out []string
	for _, b := range strings.Split(c.MediaPublicBuckets, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.FeedDefaultLimit < 1 || c.FeedDefaultLimit > 20 {
		return errors.New("FEED_DEFAULT_LIMIT must be between 1 and 20")
	}
	if c.EmbeddingCacheSize < 0 {
		return errors.New("EMBEDDING_CACHE_SIZE must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.MediaSigningSecret == "" || c.MediaSigningSecret == defaultMediaSecret {
			return errors.New("MEDIA_SIGNING_SECRET must be set in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters")
	}

	return nil
}
