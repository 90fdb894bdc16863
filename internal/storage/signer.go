package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const mediaAudience = "iskrib-media"

// ErrInvalidSignature is returned when a media token does not match.
var ErrInvalidSignature = errors.New("invalid media signature")

type mediaClaims struct {
	Bucket string `json:"b"`
	Path   string `json:"p"`
	jwt.RegisteredClaims
}

// Signer issues time-limited HMAC tokens for object URLs and builds public
// URLs for buckets served without a token.
type Signer struct {
	secret        []byte
	baseURL       string
	publicBaseURL string
	publicBuckets map[string]bool
	now           func() time.Time
}

// SignerConfig configures a Signer.
type SignerConfig struct {
	Secret string
	// BaseURL is where this API serves /media/:bucket/*.
	BaseURL string
	// PublicBaseURL serves public buckets directly, e.g. a CDN.
	PublicBaseURL string
	PublicBuckets []string
}

// NewSigner returns a Signer.
func NewSigner(cfg SignerConfig) *Signer {
	public := make(map[string]bool, len(cfg.PublicBuckets))
	for _, b := range cfg.PublicBuckets {
		public[b] = true
	}
	return &Signer{
		secret:        []byte(cfg.Secret),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		publicBuckets: public,
		now:           time.Now,
	}
}

// SignedURL returns a URL valid for ttl.
func (s *Signer) SignedURL(_ context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("media signing secret is not configured")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("invalid ttl %s", ttl)
	}
	now := s.now()
	claims := mediaClaims{
		Bucket: bucket,
		Path:   objectPath,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{mediaAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign media url: %w", err)
	}
	return s.baseURL + "/media/" + url.PathEscape(bucket) + "/" + escapePath(objectPath) + "?token=" + url.QueryEscape(token), nil
}

// PublicURL returns the unsigned URL of an object in a public bucket, or ""
// when the bucket is not public.
func (s *Signer) PublicURL(bucket, objectPath string) string {
	if s.publicBaseURL == "" || !s.publicBuckets[bucket] {
		return ""
	}
	return s.publicBaseURL + "/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)
}

// Verify checks that token grants access to bucket/objectPath.
func (s *Signer) Verify(token, bucket, objectPath string) error {
	claims := &mediaClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithAudience(mediaAudience), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ErrInvalidSignature
	}
	if claims.Bucket != bucket || claims.Path != objectPath {
		return ErrInvalidSignature
	}
	return nil
}

// IsPublic reports whether bucket is readable without a token.
func (s *Signer) IsPublic(bucket string) bool {
	return s.publicBuckets[bucket]
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
