package repository

import (
	"context"
	"sync"
	"testing"

	"iskrib/internal/models"
	"iskrib/internal/personalize"
	"iskrib/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionRepository_AddRemove(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	j := fx.Journal(alice, models.VisibilityPublic, "j")

	created, err := repo.Add(ctx, personalize.Like, alice.ID, j.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Add(ctx, personalize.Like, alice.ID, j.ID)
	require.NoError(t, err)
	assert.False(t, created, "second insert should collapse into the existing edge")

	ok, err := repo.Exists(ctx, personalize.Like, alice.ID, j.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, personalize.Bookmark, alice.ID, j.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := repo.Remove(ctx, personalize.Like, alice.ID, j.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Remove(ctx, personalize.Like, alice.ID, j.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestInteractionRepository_ConcurrentAddKeepsOneEdge(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewInteractionRepository(db)

	alice := fx.User("alice")
	j := fx.Journal(alice, models.VisibilityPublic, "j")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Add(context.Background(), personalize.Bookmark, alice.ID, j.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int64
	require.NoError(t, db.Model(&models.Bookmark{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestInteractionRepository_MatchingIDs(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	bob := fx.User("bob")
	j1 := fx.Journal(alice, models.VisibilityPublic, "1")
	j2 := fx.Journal(alice, models.VisibilityPublic, "2")
	j3 := fx.Journal(alice, models.VisibilityPublic, "3")
	fx.Like(bob, j1)
	fx.Like(bob, j3)
	fx.Like(alice, j2)

	got, err := repo.MatchingIDs(ctx, personalize.Like, bob.ID, []uint{j1.ID, j2.ID, j3.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{j1.ID, j3.ID}, got)

	got, err = repo.MatchingIDs(ctx, personalize.Bookmark, bob.ID, []uint{j1.ID})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repo.MatchingIDs(ctx, personalize.Kind("clap"), bob.ID, []uint{j1.ID})
	assert.Error(t, err)
}

func TestInteractionRepository_Follow(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	bob := fx.User("bob")

	created, err := repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)
	following, err = repo.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	removed, err := repo.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}
