package pagination

import (
	"cmp"
	"context"
	"slices"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Entry is the common projection of a row from any merged source.
type Entry struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Payload   any       `json:"payload"`
}

// Source is one structurally distinct table contributing to a merged feed.
// List returns at most limit rows owned by owner, newest first, created
// strictly before the cursor when one is given, already projected to Entry.
type Source interface {
	Name() string
	List(ctx context.Context, owner uint, before *time.Time, limit int) ([]Entry, error)
}

// Merger paginates across several sources that share no index.
type Merger struct {
	component string
	sources   []Source
}

// NewMerger returns a Merger over sources. component labels metrics and spans.
func NewMerger(component string, sources ...Source) *Merger {
	return &Merger{component: component, sources: sources}
}

// Page fetches limit+1 rows from every source concurrently, sorts the union
// newest first and trims it to limit. A source error fails the whole page.
//
// Each source is capped at limit+1 independently, so a source that is much
// denser near the cursor than the others can lose rows that belong to the
// true global top-limit.
func (m *Merger) Page(ctx context.Context, r Range, owner uint, limit int, before *time.Time) (Page[Entry], error) {
	if err := r.Validate(limit); err != nil {
		return Page[Entry]{}, err
	}

	span, ctx := observability.NewSpan(ctx, m.component+".merge")
	defer span.End()
	span.AddAttributes(attribute.Int("limit", limit), attribute.Int("sources", len(m.sources)))

	results := make([][]Entry, len(m.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		g.Go(func() error {
			done := observability.TrackFanout(m.component, src.Name())
			fctx, fspan := observability.GetTraceLayer().TraceFanout(gctx, m.component, src.Name())
			defer fspan.End()

			rows, err := src.List(fctx, owner, before, limit+1)
			done(err)
			if err != nil {
				fspan.RecordError(err)
				return models.MapStoreError(m.component+"."+src.Name(), err)
			}
			for j := range rows {
				rows[j].Source = src.Name()
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return Page[Entry]{}, err
	}

	merged := make([]Entry, 0, len(m.sources)*(limit+1))
	for _, rows := range results {
		merged = append(merged, rows...)
	}
	SortNewestFirst(merged)

	return Trim(merged, limit, func(e Entry) string { return FormatTime(e.CreatedAt) }), nil
}

// SortNewestFirst orders entries by descending time, then descending id, then
// source name so the order is total.
func SortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ID, a.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
}
