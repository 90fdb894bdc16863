package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func ids(journals []*models.Journal) []uint {
	out := make([]uint, len(journals))
	for i, j := range journals {
		out[i] = j.ID
	}
	return out
}

func TestJournalRepository_ListAppliesVisibility(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	bob := fx.User("bob")
	pub := fx.Journal(alice, models.VisibilityPublic, "sunrise")
	priv := fx.Journal(alice, models.VisibilityPrivate, "secret")
	bobs := fx.Journal(bob, models.VisibilityPublic, "rain")

	anon, err := repo.List(ctx, JournalListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []uint{bobs.ID, pub.ID}, ids(anon))

	own, err := repo.List(ctx, JournalListOptions{ViewerID: alice.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []uint{bobs.ID, priv.ID, pub.ID}, ids(own))

	visited, err := repo.List(ctx, JournalListOptions{AuthorID: alice.ID, ViewerID: bob.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []uint{pub.ID}, ids(visited))
}

func TestJournalRepository_ListKeyset(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	var all []*models.Journal
	for i := 0; i < 5; i++ {
		all = append(all, fx.Journal(alice, models.VisibilityPublic, "entry"))
	}

	first, err := repo.List(ctx, JournalListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{all[4].ID, all[3].ID}, ids(first))

	cursor := first[1].CreatedAt
	second, err := repo.List(ctx, JournalListOptions{Before: &cursor, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{all[2].ID, all[1].ID}, ids(second))
}

func TestJournalRepository_Counts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)

	alice := fx.User("alice")
	bob := fx.User("bob")
	j := fx.Journal(alice, models.VisibilityPublic, "counted")
	fx.Like(alice, j)
	fx.Like(bob, j)
	fx.Bookmark(bob, j)
	fx.Comment(bob, j, "nice")

	got, err := repo.GetByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.LikeCount)
	assert.Equal(t, int64(1), got.BookmarkCount)
	assert.Equal(t, int64(1), got.CommentCount)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Name)
	assert.False(t, got.HasLiked)

	_, err = repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestJournalRepository_Bookmarks(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	bob := fx.User("bob")
	j1 := fx.Journal(alice, models.VisibilityPublic, "one")
	j2 := fx.Journal(alice, models.VisibilityPublic, "two")
	hidden := fx.Journal(alice, models.VisibilityPublic, "three")

	fx.Bookmark(bob, j2)
	fx.Bookmark(bob, j1)
	fx.Bookmark(bob, hidden)
	require.NoError(t, db.Model(hidden).Update("privacy", models.VisibilityPrivate).Error)

	marks, err := repo.ListBookmarked(ctx, bob.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, j1.ID, marks[0].JournalID)
	assert.Equal(t, j2.ID, marks[1].JournalID)
	require.NotNil(t, marks[0].Journal)
	assert.Equal(t, int64(1), marks[0].Journal.BookmarkCount)
	require.NotNil(t, marks[0].Journal.User)

	total, err := repo.CountBookmarks(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	cursor := marks[0].CreatedAt
	rest, err := repo.ListBookmarked(ctx, bob.ID, &cursor, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, j2.ID, rest[0].JournalID)
}

func TestJournalRepository_SearchText(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	hit := fx.Journal(alice, models.VisibilityPublic, "Morning Walk")
	fx.Journal(alice, models.VisibilityPublic, "evening")
	fx.Journal(alice, models.VisibilityPrivate, "walk alone")
	pct := fx.Journal(alice, models.VisibilityPublic, "100% done")

	got, err := repo.SearchText(ctx, "WALK", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{hit.ID}, ids(got))

	got, err = repo.SearchText(ctx, "%", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{pct.ID}, ids(got))
}

func TestJournalRepository_ListByIDsKeepsOrder(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)

	alice := fx.User("alice")
	a := fx.Journal(alice, models.VisibilityPublic, "a")
	b := fx.Journal(alice, models.VisibilityPublic, "b")
	c := fx.Journal(alice, models.VisibilityPrivate, "c")

	got, err := repo.ListByIDs(context.Background(), []uint{b.ID, c.ID, a.ID, 404}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID}, ids(got))
}

func TestJournalRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	j := fx.Journal(alice, models.VisibilityPublic, "gone")
	fx.Like(alice, j)
	fx.Bookmark(alice, j)
	fx.Comment(alice, j, "bye")

	require.NoError(t, repo.Delete(ctx, j.ID))
	for _, model := range []any{&models.Journal{}, &models.Like{}, &models.Bookmark{}, &models.Comment{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}

	assert.ErrorIs(t, repo.Delete(ctx, j.ID), gorm.ErrRecordNotFound)
}

func TestJournalRepository_IncrementViewsAndUpdate(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)
	ctx := context.Background()

	alice := fx.User("alice")
	j := fx.Journal(alice, models.VisibilityPublic, "viewed")

	views, err := repo.IncrementViews(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)
	views, err = repo.IncrementViews(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), views)

	_, err = repo.IncrementViews(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	j.Title = "renamed"
	j.Privacy = models.VisibilityPrivate
	require.NoError(t, repo.Update(ctx, j))
	got, err := repo.GetByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, models.VisibilityPrivate, got.Privacy)
	assert.Equal(t, int64(2), got.Views)
}

func TestJournalRepository_Hottest(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewJournalRepository(db)

	alice := fx.User("alice")
	bob := fx.User("bob")
	cold := fx.Journal(alice, models.VisibilityPublic, "cold")
	hot := fx.Journal(alice, models.VisibilityPublic, "hot")
	fx.Journal(alice, models.VisibilityPrivate, "private")
	fx.Like(alice, hot)
	fx.Like(bob, hot)
	fx.Like(bob, cold)

	got, err := repo.Hottest(context.Background(), time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	assert.Equal(t, []uint{hot.ID, cold.ID}, ids(got))
}

func TestJournalRepository_MatchEmbeddingCallsRankingFunction(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewJournalRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, similarity FROM match_journals($1, $2, $3)`)).
		WithArgs("[0.1,0.2]", 6, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "similarity"}).AddRow(4, 0.9).AddRow(2, 0.5))

	got, err := repo.MatchEmbedding(context.Background(), "[0.1,0.2]", 7, 6)
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepository_GetByIDSelectsCounts(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewJournalRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT journals.*, (SELECT COUNT(*) FROM likes WHERE likes.journal_id = journals.id) AS like_count`)).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "like_count"}).AddRow(3, 10, "t", 4))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(10, "ten"))

	got, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.LikeCount)
	assert.Equal(t, "ten", got.User.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
