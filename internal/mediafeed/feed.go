// Package mediafeed lists a user's media across several object-storage
// buckets as one newest-first feed with a resumable cursor.
package mediafeed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/observability"
	"iskrib/internal/pagination"
	"iskrib/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Bucket names holding profile media.
const (
	BucketBackground    = "background"
	BucketJournalImages = "journal-images"
	BucketAvatars       = "avatars"
)

// DefaultBuckets are listed in this order on every round.
var DefaultBuckets = []string{BucketBackground, BucketJournalImages, BucketAvatars}

const (
	defaultMaxRounds = 6
	defaultSignedTTL = time.Hour
)

// Item is one media object in the feed.
type Item struct {
	Bucket      string    `json:"bucket"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url,omitempty"`
}

// Result is a media page. UnavailableBuckets lists buckets whose listing
// failed during this call.
type Result struct {
	Data               []Item   `json:"data"`
	HasMore            bool     `json:"hasMore"`
	NextCursor         string   `json:"nextCursor,omitempty"`
	UnavailableBuckets []string `json:"unavailableBuckets"`
}

// Feed builds media pages.
type Feed struct {
	store       storage.ObjectStore
	urls        storage.URLResolver
	buckets     []string
	maxRounds   int
	signedTTL   time.Duration
	listTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Feed.
type Option func(*Feed)

// WithBuckets overrides the listed buckets.
func WithBuckets(buckets ...string) Option {
	return func(f *Feed) { f.buckets = buckets }
}

// WithSignedTTL sets the lifetime of signed URLs.
func WithSignedTTL(ttl time.Duration) Option {
	return func(f *Feed) {
		if ttl > 0 {
			f.signedTTL = ttl
		}
	}
}

// WithListTimeout bounds each bucket listing; a listing that times out makes
// the bucket unavailable for the call. Zero disables it.
func WithListTimeout(d time.Duration) Option {
	return func(f *Feed) { f.listTimeout = d }
}

// WithMaxRounds caps the fan-out rounds per call.
func WithMaxRounds(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.maxRounds = n
		}
	}
}

// WithLogger sets the logger for degraded listings.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// New returns a Feed over store, resolving URLs with urls.
func New(store storage.ObjectStore, urls storage.URLResolver, opts ...Option) *Feed {
	f := &Feed{
		store:     store,
		urls:      urls,
		buckets:   DefaultBuckets,
		maxRounds: defaultMaxRounds,
		signedTTL: defaultSignedTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OwnerPrefix is the folder holding a user's objects in every bucket.
func OwnerPrefix(userID uint) string {
	return fmt.Sprintf("user_id_%d/", userID)
}

type chunk struct {
	items []Item
	count int
	err   error
}

// Page returns up to limit media items of owner, newest first, resuming from
// cursor when given.
func (f *Feed) Page(ctx context.Context, ownerID uint, limit int, cursor string) (*Result, error) {
	if err := pagination.MediaRange.Validate(limit); err != nil {
		return nil, err
	}
	state := newState()
	if cursor != "" {
		decoded, err := Decode(cursor)
		if err != nil {
			return nil, err
		}
		state = decoded
		if state.Offsets == nil {
			state.Offsets = map[string]int{}
		}
		if state.Exhausted == nil {
			state.Exhausted = map[string]bool{}
		}
		if err := f.checkPending(state.Pending, ownerID); err != nil {
			return nil, err
		}
	}

	span, ctx := observability.NewSpan(ctx, "mediafeed.page")
	defer span.End()

	prefix := OwnerPrefix(ownerID)
	unavailable := map[string]bool{}
	pending := append([]Item(nil), state.Pending...)

	for round := 0; round < f.maxRounds && len(pending) < limit; round++ {
		active := f.activeBuckets(state, unavailable)
		if len(active) == 0 {
			break
		}

		chunks := f.listRound(ctx, active, prefix, state, limit)

		returned := 0
		for i, bucket := range active {
			c := chunks[i]
			if c.err != nil {
				unavailable[bucket] = true
				observability.MediaBucketUnavailable.WithLabelValues(bucket).Inc()
				f.logger.WarnContext(ctx, "media bucket listing failed",
					slog.String("bucket", bucket),
					slog.Uint64("owner_id", uint64(ownerID)),
					slog.String("error", c.err.Error()))
				continue
			}
			state.Offsets[bucket] += c.count
			if c.count < limit {
				state.Exhausted[bucket] = true
			}
			returned += c.count
			pending = append(pending, c.items...)
		}
		if returned == 0 {
			break
		}
	}

	sortNewestFirst(pending)

	selected, remaining := f.resolve(ctx, pending, limit)

	res := &Result{
		Data:               selected,
		UnavailableBuckets: []string{},
	}
	for _, bucket := range f.buckets {
		if unavailable[bucket] {
			res.UnavailableBuckets = append(res.UnavailableBuckets, bucket)
		}
	}

	res.HasMore = len(remaining) > 0 || len(f.activeBuckets(state, unavailable)) > 0
	if res.HasMore {
		state.Pending = remaining
		token, err := Encode(state)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		res.NextCursor = token
	}

	span.AddAttributes(
		attribute.Int("media.returned", len(res.Data)),
		attribute.Int("media.unavailable", len(res.UnavailableBuckets)),
		attribute.Bool("media.has_more", res.HasMore),
	)
	return res, nil
}

// checkPending rejects carried items that this owner's listing could not
// have produced.
func (f *Feed) checkPending(pending []Item, ownerID uint) error {
	prefix := OwnerPrefix(ownerID)
	for _, it := range pending {
		if !slices.Contains(f.buckets, it.Bucket) {
			return invalidCursor()
		}
		p, err := storage.CleanPath(it.Path)
		if err != nil || p != it.Path || !strings.HasPrefix(p, prefix) {
			return invalidCursor()
		}
		if it.Name != p[strings.LastIndex(p, "/")+1:] || !storage.IsImage(storage.Object{Name: it.Name, ContentType: it.ContentType}) {
			return invalidCursor()
		}
	}
	return nil
}

func (f *Feed) activeBuckets(state State, unavailable map[string]bool) []string {
	var out []string
	for _, b := range f.buckets {
		if !state.Exhausted[b] && !unavailable[b] {
			out = append(out, b)
		}
	}
	return out
}

// listRound lists the next chunk of every active bucket concurrently. Each
// goroutine writes only its own slot, and failures are reported per slot.
func (f *Feed) listRound(ctx context.Context, buckets []string, prefix string, state State, limit int) []chunk {
	chunks := make([]chunk, len(buckets))
	var g errgroup.Group
	for i, bucket := range buckets {
		offset := state.Offsets[bucket]
		g.Go(func() error {
			lctx := ctx
			if f.listTimeout > 0 {
				var cancel context.CancelFunc
				lctx, cancel = context.WithTimeout(ctx, f.listTimeout)
				defer cancel()
			}
			done := observability.TrackFanout("mediafeed", bucket)
			objects, err := f.store.List(lctx, bucket, prefix, storage.ListOptions{
				Limit:  limit,
				Offset: offset,
				Order:  storage.SortDesc,
			})
			if err == nil && lctx.Err() != nil {
				err = lctx.Err()
			}
			done(err)
			if err != nil {
				chunks[i] = chunk{err: err}
				return nil
			}
			c := chunk{count: len(objects)}
			for _, o := range objects {
				if !storage.IsImage(o) {
					continue
				}
				p := o.Path
				if p == "" {
					p = prefix + o.Name
				}
				c.items = append(c.items, Item{
					Bucket:      bucket,
					Path:        p,
					Name:        o.Name,
					ContentType: o.ContentType,
					CreatedAt:   Timestamp(o),
				})
			}
			chunks[i] = c
			return nil
		})
	}
	_ = g.Wait()
	return chunks
}

// resolve attaches URLs to the first limit items, dropping any item without a
// retrievable URL and backfilling from the rest.
func (f *Feed) resolve(ctx context.Context, pending []Item, limit int) (selected, remaining []Item) {
	selected = make([]Item, 0, limit)
	next := 0
	for len(selected) < limit && next < len(pending) {
		batch := pending[next:min(next+limit-len(selected), len(pending))]
		next += len(batch)

		urls := make([]string, len(batch))
		var g errgroup.Group
		for i, it := range batch {
			g.Go(func() error {
				urls[i] = f.urlFor(ctx, it)
				return nil
			})
		}
		_ = g.Wait()

		for i, it := range batch {
			if urls[i] == "" {
				observability.MediaURLDropped.Inc()
				continue
			}
			it.URL = urls[i]
			selected = append(selected, it)
		}
	}
	remaining = append([]Item{}, pending[next:]...)
	return selected, remaining
}

func (f *Feed) urlFor(ctx context.Context, it Item) string {
	signed, err := f.urls.SignedURL(ctx, it.Bucket, it.Path, f.signedTTL)
	if err == nil && signed != "" {
		return signed
	}
	return f.urls.PublicURL(it.Bucket, it.Path)
}

func sortNewestFirst(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := strings.Compare(a.Bucket, b.Bucket); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
}

var stampedName = regexp.MustCompile(`^(\d{10,13})[_-]`)

// Timestamp derives the sort key of an object: a unix seconds or millis
// prefix in the file name, then the stored created and updated times.
func Timestamp(o storage.Object) time.Time {
	if m := stampedName.FindStringSubmatch(o.Name); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			if len(m[1]) == 13 {
				return time.UnixMilli(n).UTC()
			}
			return time.Unix(n, 0).UTC()
		}
	}
	if o.CreatedAt != nil && !o.CreatedAt.IsZero() {
		return o.CreatedAt.UTC()
	}
	if o.UpdatedAt != nil && !o.UpdatedAt.IsZero() {
		return o.UpdatedAt.UTC()
	}
	return time.Time{}
}
