// Package bootstrap connects the stores and collaborators the API runs on.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"iskrib/internal/cache"
	"iskrib/internal/config"
	"iskrib/internal/database"
	"iskrib/internal/embedding"
	"iskrib/internal/featureflags"
	"iskrib/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the initialized dependencies of one process.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Mongo is nil when media is kept in memory.
	Mongo    *storage.MongoClient
	Store    storage.ObjectStore
	Embedder embedding.Provider
	Flags    *featureflags.Manager
}

// InitRuntime connects to the database, Redis and object storage and builds
// the embedding provider and feature flags.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client means Redis is unreachable; caching and rate limits degrade.
	cache.InitRedis(cfg.RedisURL)

	rt := &Runtime{
		DB:    db,
		Redis: cache.GetClient(),
	}

	if cfg.MongoURI != "" {
		mc, err := storage.NewMongoConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("object storage connection failed: %w", err)
		}
		rt.Mongo = mc
		rt.Store = storage.NewGridFSStore(mc)
	} else {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("MONGO_URI is required in production")
		}
		slog.Warn("MONGO_URI not set, media is kept in memory")
		rt.Store = storage.NewMemoryStore()
	}

	rt.Embedder = NewEmbedder(cfg)

	flags, err := NewFlags(cfg)
	if err != nil {
		return nil, err
	}
	rt.Flags = flags

	return rt, nil
}

// NewEmbedder returns the HTTP embedding provider, behind the in-process
// cache when one is configured.
func NewEmbedder(cfg *config.Config) embedding.Provider {
	provider := embedding.NewHTTPProvider(cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingTimeout)
	if cfg.EmbeddingURL == "" {
		slog.Warn("EMBEDDING_URL not set, journals are stored without vectors")
	}
	if cfg.EmbeddingCacheSize == 0 {
		return provider
	}
	return embedding.NewCachedProvider(provider, embedding.NewCache(cfg.EmbeddingCacheSize, cfg.EmbeddingCacheTTL))
}

// NewFlags loads feature flags from FEATURE_FLAGS_FILE when set, with
// FEATURE_FLAGS applied on top.
func NewFlags(cfg *config.Config) (*featureflags.Manager, error) {
	if cfg.FeatureFlagsFile == "" {
		return featureflags.NewManager(cfg.FeatureFlags), nil
	}
	flags, err := featureflags.LoadFile(cfg.FeatureFlagsFile, cfg.FeatureFlags)
	if err != nil {
		return nil, fmt.Errorf("load feature flags: %w", err)
	}
	return flags, nil
}

// Close releases every connection held by rt.
func (rt *Runtime) Close(ctx context.Context) {
	if rt.Mongo != nil {
		if err := rt.Mongo.Close(ctx); err != nil {
			slog.Error("error closing mongodb", slog.String("error", err.Error()))
		}
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				slog.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}
	if rt.Redis != nil {
		if rerr := rt.Redis.Close(); rerr != nil {
			slog.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}
}
