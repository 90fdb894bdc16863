// Package pagination implements keyset pagination with peek-ahead and the
// merge of several independently paginated sources into one page.
package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"iskrib/internal/models"
)

// Range is the inclusive limit range an endpoint accepts.
type Range struct {
	Min     int
	Max     int
	Default int
}

// Per-endpoint limit ranges.
var (
	FeedRange    = Range{Min: 1, Max: 20, Default: 5}
	ListRange    = Range{Min: 1, Max: 20, Default: 20}
	MediaRange   = Range{Min: 1, Max: 10, Default: 6}
	WallRange    = Range{Min: 1, Max: 400, Default: 200}
	NoticesRange = Range{Min: 1, Max: 20, Default: 10}
	RankedRange  = Range{Min: 1, Max: 20, Default: 10}
)

// Validate rejects a limit outside the range.
func (r Range) Validate(limit int) error {
	if limit < r.Min || limit > r.Max {
		return models.NewValidationError(r.message())
	}
	return nil
}

// Parse reads a raw query value. An empty value yields the default.
func (r Range) Parse(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.Default, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(r.message())
	}
	if err := r.Validate(limit); err != nil {
		return 0, err
	}
	return limit, nil
}

func (r Range) message() string {
	return fmt.Sprintf("limit should be an integer between %d and %d", r.Min, r.Max)
}

// Page is the response envelope shared by every list endpoint.
type Page[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Fetcher loads up to limit rows past the caller's cursor. The limit it
// receives already includes the peek-ahead row.
type Fetcher[T any] func(ctx context.Context, limit int) ([]T, error)

// Fetch validates limit, loads limit+1 rows and trims them into a page.
// Nothing is fetched when the limit is out of range.
func Fetch[T any](ctx context.Context, r Range, limit int, fetch Fetcher[T], cursorOf func(T) string) (Page[T], error) {
	if err := r.Validate(limit); err != nil {
		return Page[T]{}, err
	}
	rows, err := fetch(ctx, limit+1)
	if err != nil {
		return Page[T]{}, models.MapStoreError("paginate", err)
	}
	return Trim(rows, limit, cursorOf), nil
}

// Trim applies peek-ahead: more than limit rows means another page exists.
func Trim[T any](rows []T, limit int, cursorOf func(T) string) Page[T] {
	page := Page[T]{Data: rows}
	if len(rows) > limit {
		page.HasMore = true
		page.Data = rows[:limit]
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	if page.HasMore && cursorOf != nil && len(page.Data) > 0 {
		page.NextCursor = cursorOf(page.Data[len(page.Data)-1])
	}
	return page
}

// FormatTime encodes a timestamp cursor.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime decodes a timestamp cursor. An empty value means no cursor.
func ParseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, models.NewValidationError("cursor should be an RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

// ParseID decodes an id cursor. An empty value means no cursor.
func ParseID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, models.NewValidationError("cursor should be a positive integer id")
	}
	v := uint(id)
	return &v, nil
}
