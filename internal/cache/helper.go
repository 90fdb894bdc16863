package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"iskrib/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first and on a miss calls fetch, which must populate
// dest, then stores dest with ttl. Cache failures fall through to fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	gctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "GET")
	found, err := GetJSON(gctx, key, dest)
	observability.RecordErrorInContext(gctx, err)
	span.SetAttributes(attribute.Bool("cache.hit", found))
	span.End()
	if err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	sctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "SET")
	observability.RecordErrorInContext(sctx, SetJSON(sctx, key, dest, ttl))
	span.End()
	return nil
}
