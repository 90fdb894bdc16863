package personalize

import (
	"context"
	"errors"
	"sync"
	"testing"

	"iskrib/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id    uint
	flags map[Kind]bool
}

func (i *item) OverlayID() uint { return i.id }

func (i *item) SetFlag(kind string, value bool) {
	if i.flags == nil {
		i.flags = map[Kind]bool{}
	}
	i.flags[Kind(kind)] = value
}

type fakeLookup struct {
	mu    sync.Mutex
	edges map[Kind]map[uint]map[uint]bool // kind -> viewer -> id
	calls map[Kind]int
	err   error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{edges: map[Kind]map[uint]map[uint]bool{}, calls: map[Kind]int{}}
}

func (f *fakeLookup) add(kind Kind, viewer, id uint) {
	if f.edges[kind] == nil {
		f.edges[kind] = map[uint]map[uint]bool{}
	}
	if f.edges[kind][viewer] == nil {
		f.edges[kind][viewer] = map[uint]bool{}
	}
	f.edges[kind][viewer][id] = true
}

func (f *fakeLookup) MatchingIDs(_ context.Context, kind Kind, viewer uint, ids []uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind]++
	if f.err != nil {
		return nil, f.err
	}
	var out []uint
	for _, id := range ids {
		if f.edges[kind][viewer][id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func makeItems(ids ...uint) []*item {
	out := make([]*item, len(ids))
	for i, id := range ids {
		out[i] = &item{id: id, flags: map[Kind]bool{Like: true, Bookmark: true}}
	}
	return out
}

func TestApplyAnonymousViewerSkipsLookup(t *testing.T) {
	lookup := newFakeLookup()
	items := makeItems(1, 2, 3)

	require.NoError(t, NewOverlay(lookup).Apply(context.Background(), 0, Targets(items), Like, Bookmark))

	for _, it := range items {
		assert.False(t, it.flags[Like])
		assert.False(t, it.flags[Bookmark])
	}
	assert.Empty(t, lookup.calls)
}

func TestApplyEmptyItemsSkipsLookup(t *testing.T) {
	lookup := newFakeLookup()
	require.NoError(t, NewOverlay(lookup).Apply(context.Background(), 9, nil, Like, Bookmark))
	assert.Empty(t, lookup.calls)
}

func TestApplyOneQueryPerKind(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add(Like, 9, 2)
	lookup.add(Bookmark, 9, 3)
	lookup.add(Like, 8, 1)

	items := makeItems(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	require.NoError(t, NewOverlay(lookup).Apply(context.Background(), 9, Targets(items), Like, Bookmark))

	assert.Equal(t, 1, lookup.calls[Like])
	assert.Equal(t, 1, lookup.calls[Bookmark])
	for _, it := range items {
		assert.Equal(t, it.id == 2, it.flags[Like], "like on %d", it.id)
		assert.Equal(t, it.id == 3, it.flags[Bookmark], "bookmark on %d", it.id)
	}
}

func TestApplyViewerWithoutInteractions(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add(Like, 1, 5)
	items := makeItems(5, 6)

	require.NoError(t, NewOverlay(lookup).Apply(context.Background(), 2, Targets(items), Like, Bookmark))
	for _, it := range items {
		assert.False(t, it.flags[Like])
		assert.False(t, it.flags[Bookmark])
	}
}

func TestApplyDuplicateIDs(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add(Like, 4, 7)
	items := makeItems(7, 7)

	require.NoError(t, NewOverlay(lookup).Apply(context.Background(), 4, Targets(items), Like))
	assert.True(t, items[0].flags[Like])
	assert.True(t, items[1].flags[Like])
}

func TestApplyLookupFailure(t *testing.T) {
	lookup := newFakeLookup()
	lookup.err = errors.New("db down")

	err := NewOverlay(lookup).Apply(context.Background(), 3, Targets(makeItems(1)), Like, Bookmark)
	require.Error(t, err)
	assert.Equal(t, 500, models.StatusFor(err))
}
