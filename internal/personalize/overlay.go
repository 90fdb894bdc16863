// Package personalize annotates a result set with per-viewer flags using one
// batched membership query per flag kind.
package personalize

import (
	"context"

	"iskrib/internal/models"
	"iskrib/internal/observability"

	"golang.org/x/sync/errgroup"
)

// Kind names an interaction edge type that produces a has_<kind> flag.
type Kind string

const (
	Like     Kind = "like"
	Bookmark Kind = "bookmark"
)

// Lookup returns the subset of ids the viewer has an edge of the given kind to.
type Lookup interface {
	MatchingIDs(ctx context.Context, kind Kind, viewerID uint, ids []uint) ([]uint, error)
}

// Target is an item that can carry personalization flags. SetFlag receives
// the Kind as a plain string so model types need not import this package.
type Target interface {
	OverlayID() uint
	SetFlag(kind string, value bool)
}

// Overlay fills flags on result sets.
type Overlay struct {
	lookup Lookup
}

// NewOverlay returns an Overlay backed by lookup.
func NewOverlay(lookup Lookup) *Overlay {
	return &Overlay{lookup: lookup}
}

// Apply sets every requested flag on items. An anonymous viewer (0) gets all
// flags false without touching the store; so does an empty item set. Kinds
// are queried concurrently and may reflect slightly different instants.
func (o *Overlay) Apply(ctx context.Context, viewerID uint, items []Target, kinds ...Kind) error {
	for _, it := range items {
		for _, k := range kinds {
			it.SetFlag(string(k), false)
		}
	}
	if viewerID == 0 || len(items) == 0 || len(kinds) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(items))
	seen := make(map[uint]struct{}, len(items))
	for _, it := range items {
		id := it.OverlayID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sets := make([]map[uint]struct{}, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			done := observability.TrackFanout("overlay", string(kind))
			matched, err := o.lookup.MatchingIDs(gctx, kind, viewerID, ids)
			done(err)
			if err != nil {
				return models.MapStoreError("overlay."+string(kind), err)
			}
			set := make(map[uint]struct{}, len(matched))
			for _, id := range matched {
				set[id] = struct{}{}
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, it := range items {
		for i, k := range kinds {
			_, ok := sets[i][it.OverlayID()]
			it.SetFlag(string(k), ok)
		}
	}
	return nil
}

// Targets adapts a slice of pointers to the Target interface.
func Targets[T Target](items []T) []Target {
	out := make([]Target, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
