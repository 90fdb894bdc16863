package repository

import (
	"context"
	"testing"

	"iskrib/internal/models"
	"iskrib/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListTopLevel(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	j := fx.Journal(alice, models.VisibilityPublic, "j")
	c1 := fx.Comment(alice, j, "one")
	c2 := fx.Comment(alice, j, "two")
	c3 := fx.Comment(alice, j, "three")
	reply := &models.Comment{PostID: j.ID, UserID: alice.ID, ParentID: &c1.ID, Comment: "reply", CreatedAt: fx.Clock.Next()}
	require.NoError(t, repo.Create(ctx, reply))

	got, err := repo.ListTopLevel(ctx, j.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, got, 2, "limit is passed through as-is")
	assert.Equal(t, c3.ID, got[0].ID)
	assert.Equal(t, c2.ID, got[1].ID)
	require.NotNil(t, got[0].User)

	got, err = repo.ListTopLevel(ctx, j.ID, &c2.CreatedAt, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c1.ID, got[0].ID)
}

func TestOpinionRepository_ListReplies(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewOpinionRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	bob := fx.User("bob")
	root := fx.Opinion(alice, nil, "root")
	r1 := fx.Opinion(bob, root, "r1")
	r2 := fx.Opinion(bob, root, "r2")
	r3 := fx.Opinion(alice, root, "r3")
	fx.Opinion(bob, r1, "nested")

	got, err := repo.ListReplies(ctx, root.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, r3.ID, got[0].ID)
	assert.Equal(t, r2.ID, got[1].ID)

	got, err = repo.ListReplies(ctx, root.ID, &r2.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r1.ID, got[0].ID)

	fetched, err := repo.GetByID(ctx, root.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.User)
	assert.Equal(t, "alice", fetched.User.Name)
}
