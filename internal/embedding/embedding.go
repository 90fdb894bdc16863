// Package embedding turns journal text into vectors for similarity search.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"iskrib/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Dimensions is the vector length produced by the model.
const Dimensions = 384

// ErrUnavailable is returned when no embedding service is configured.
var ErrUnavailable = errors.New("embedding service unavailable")

// Provider computes a vector for (title, body). It returns nil, nil when
// both are blank.
type Provider interface {
	Embed(ctx context.Context, title, body string) ([]float32, error)
}

// Text joins title and body the way vectors are computed and cached.
func Text(title, body string) string {
	return strings.TrimSpace(strings.TrimSpace(title) + "  " + strings.TrimSpace(body))
}

// HTTPProvider calls a feature-extraction service that answers
// {"embedding": [...]} for {"input": "..."}.
type HTTPProvider struct {
	url     string
	apiKey  string
	timeout time.Duration
}

// NewHTTPProvider returns a provider for url. An empty url yields a provider
// that always reports ErrUnavailable.
func NewHTTPProvider(url, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{url: url, apiKey: apiKey, timeout: timeout}
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements Provider.
func (p *HTTPProvider) Embed(ctx context.Context, title, body string) ([]float32, error) {
	text := Text(title, body)
	if text == "" {
		return nil, nil
	}
	if p.url == "" {
		return nil, ErrUnavailable
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	agent := fiber.Post(p.url).JSON(embedRequest{Input: text}).Timeout(timeout)
	if p.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+p.apiKey)
	}
	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("embedding request: %w", errors.Join(errs...))
	}
	if status != fiber.StatusOK {
		return nil, fmt.Errorf("embedding request: status %d", status)
	}

	var resp embedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("embedding response: %w", err)
	}
	if len(resp.Embedding) != Dimensions {
		return nil, fmt.Errorf("embedding response: got %d dimensions, want %d", len(resp.Embedding), Dimensions)
	}
	return resp.Embedding, nil
}

// Cache is a bounded LRU of computed vectors whose entries expire after a
// fixed TTL. When full, the least recently used entry is evicted.
type Cache struct {
	lru *expirable.LRU[string, []float32]
}

// NewCache returns a cache holding at most size vectors for ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 500
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{lru: expirable.NewLRU[string, []float32](size, nil, ttl)}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text.
func (c *Cache) Get(text string) ([]float32, bool) {
	return c.lru.Get(cacheKey(text))
}

// Add stores the vector for text.
func (c *Cache) Add(text string, vec []float32) {
	c.lru.Add(cacheKey(text), vec)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// CachedProvider memoises another provider.
type CachedProvider struct {
	next  Provider
	cache *Cache
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next Provider, cache *Cache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache}
}

// Embed implements Provider.
func (p *CachedProvider) Embed(ctx context.Context, title, body string) ([]float32, error) {
	text := Text(title, body)
	if text == "" {
		return nil, nil
	}
	if vec, ok := p.cache.Get(text); ok {
		observability.EmbeddingCacheLookups.WithLabelValues("hit").Inc()
		return vec, nil
	}
	observability.EmbeddingCacheLookups.WithLabelValues("miss").Inc()

	vec, err := p.next.Embed(ctx, title, body)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		p.cache.Add(text, vec)
	}
	return vec, nil
}

// Encode renders a vector in the text form pgvector accepts.
func Encode(vec []float32) string {
	if vec == nil {
		return ""
	}
	raw, _ := json.Marshal(vec)
	return string(raw)
}
