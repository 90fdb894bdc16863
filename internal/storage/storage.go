// Package storage provides bucket-oriented object storage and URL resolution
// for user media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// SortOrder orders listings by object name.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListOptions pages through a bucket listing by offset.
type ListOptions struct {
	Limit  int
	Offset int
	Order  SortOrder
}

// Object describes one stored blob.
type Object struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	ContentType string     `json:"content_type,omitempty"`
	Size        int64      `json:"size"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ObjectStore is the blob store the media feed lists from.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string, opts ListOptions) ([]Object, error)
	Remove(ctx context.Context, bucket string, paths []string) error
	Put(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (*Object, error)
	Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, *Object, error)
}

// URLResolver turns an object location into a retrievable URL.
type URLResolver interface {
	SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error)
	PublicURL(bucket, objectPath string) string
}

// CleanPath normalises an object path and rejects traversal.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty object path")
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(p, "/") || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}

// IsImage reports whether an object looks like a displayable image.
func IsImage(o Object) bool {
	if strings.HasPrefix(o.ContentType, "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(o.Name)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".avif":
		return true
	}
	return false
}
