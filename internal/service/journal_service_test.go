package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"iskrib/internal/embedding"
	"iskrib/internal/models"
	"iskrib/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textDoc = `{"root":{"children":[` +
	`{"type":"paragraph","children":[{"type":"text","text":"hello world"}]},` +
	`{"type":"image","src":"https://cdn.example.com/a.png"}]}}`

func newJournalService(e *env, embedder embedding.Provider) *JournalService {
	return NewJournalService(e.journals, e.overlay, embedder)
}

func TestJournalService_CreateJournalValidation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	author := e.fx.User("ana")

	tests := []struct {
		name string
		in   CreateJournalInput
	}{
		{"empty title", CreateJournalInput{Title: "  ", Content: textDoc}},
		{"long title", CreateJournalInput{Title: strings.Repeat("t", 181), Content: textDoc}},
		{"unknown privacy", CreateJournalInput{Title: "t", Content: textDoc, Privacy: "friends"}},
		{"unknown post type", CreateJournalInput{Title: "t", Content: textDoc, PostType: "video"}},
		{"missing text content", CreateJournalInput{Title: "t"}},
		{"broken text content", CreateJournalInput{Title: "t", Content: "{"}},
		{"missing canvas doc", CreateJournalInput{Title: "t", PostType: "canvas"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = author.ID
			_, err := svc.CreateJournal(context.Background(), tt.in)
			assertValidationError(t, err)
		})
	}

	var count int64
	require.NoError(t, e.db.Model(&models.Journal{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestJournalService_CreateJournalEmbeds(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	author := e.fx.User("ana")

	var gotTitle, gotBody string
	svc := newJournalService(e, embedFunc(func(_ context.Context, title, body string) ([]float32, error) {
		gotTitle, gotBody = title, body
		return []float32{0.5, 0.25}, nil
	}))

	j, err := svc.CreateJournal(context.Background(), CreateJournalInput{
		UserID:  author.ID,
		Title:   "  First entry ",
		Content: textDoc,
		Privacy: "Private",
	})
	require.NoError(t, err)
	assert.Equal(t, "First entry", j.Title)
	assert.Equal(t, models.VisibilityPrivate, j.Privacy)
	assert.Equal(t, models.PostTypeText, j.PostType)
	assert.Equal(t, "First entry", gotTitle)
	assert.Equal(t, "hello world", gotBody)

	var stored models.Journal
	require.NoError(t, e.db.First(&stored, j.ID).Error)
	assert.Equal(t, embedding.Encode([]float32{0.5, 0.25}), stored.Embedding)
}

func TestJournalService_CreateJournalEmbeddingFailures(t *testing.T) {
	t.Parallel()

	t.Run("unavailable stores without vector", func(t *testing.T) {
		e := newEnv(t)
		author := e.fx.User("ana")
		svc := newJournalService(e, embedFunc(func(context.Context, string, string) ([]float32, error) {
			return nil, embedding.ErrUnavailable
		}))

		j, err := svc.CreateJournal(context.Background(), CreateJournalInput{
			UserID:    author.ID,
			Title:     "canvas",
			PostType:  "canvas",
			CanvasDoc: json.RawMessage(`{"snippets":[{"text":"hi"}]}`),
		})
		require.NoError(t, err)
		assert.Equal(t, models.PostTypeCanvas, j.PostType)

		var stored models.Journal
		require.NoError(t, e.db.First(&stored, j.ID).Error)
		assert.Empty(t, stored.Embedding)
	})

	t.Run("provider error fails the write", func(t *testing.T) {
		e := newEnv(t)
		author := e.fx.User("ana")
		svc := newJournalService(e, embedFunc(func(context.Context, string, string) ([]float32, error) {
			return nil, errors.New("model overloaded")
		}))

		_, err := svc.CreateJournal(context.Background(), CreateJournalInput{
			UserID: author.ID, Title: "t", Content: textDoc,
		})
		assertCode(t, err, models.CodeInternal)

		var count int64
		require.NoError(t, e.db.Model(&models.Journal{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestJournalService_ListJournals(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	pub1 := e.fx.Journal(ana, models.VisibilityPublic, "pub1")
	own := e.fx.Journal(ana, models.VisibilityPrivate, "own")
	pub2 := e.fx.Journal(ben, models.VisibilityPublic, "pub2")
	_ = e.fx.Journal(ben, models.VisibilityPrivate, "hidden")
	e.fx.Like(ana, pub2)

	t.Run("public feed never shows private journals", func(t *testing.T) {
		page, err := svc.ListJournals(ctx, ListJournalsInput{ViewerID: ana.ID, Limit: 5})
		require.NoError(t, err)
		require.Len(t, page.Data, 2)
		assert.Equal(t, pub2.ID, page.Data[0].ID)
		assert.Equal(t, pub1.ID, page.Data[1].ID)
		assert.True(t, page.Data[0].HasLiked)
		assert.False(t, page.Data[1].HasLiked)
		assert.False(t, page.HasMore)
	})

	t.Run("author feed shows own private journals", func(t *testing.T) {
		page, err := svc.ListJournals(ctx, ListJournalsInput{ViewerID: ana.ID, AuthorID: ana.ID, Limit: 5})
		require.NoError(t, err)
		require.Len(t, page.Data, 2)
		assert.Equal(t, own.ID, page.Data[0].ID)
	})

	t.Run("other author feed hides private journals", func(t *testing.T) {
		page, err := svc.ListJournals(ctx, ListJournalsInput{ViewerID: ana.ID, AuthorID: ben.ID, Limit: 5})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, pub2.ID, page.Data[0].ID)
	})

	t.Run("keyset continuation", func(t *testing.T) {
		first, err := svc.ListJournals(ctx, ListJournalsInput{Limit: 1})
		require.NoError(t, err)
		require.True(t, first.HasMore)
		require.NotEmpty(t, first.NextCursor)

		before, err := time.Parse(time.RFC3339Nano, first.NextCursor)
		require.NoError(t, err)
		second, err := svc.ListJournals(ctx, ListJournalsInput{Limit: 1, Before: &before})
		require.NoError(t, err)
		require.Len(t, second.Data, 1)
		assert.Equal(t, pub1.ID, second.Data[0].ID)
		assert.False(t, second.HasMore)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := svc.ListJournals(ctx, ListJournalsInput{Limit: 21})
		assertValidationError(t, err)
	})
}

func TestJournalService_GetJournal(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	secret := e.fx.Journal(ana, models.VisibilityPrivate, "secret")

	_, err := svc.GetJournal(ctx, secret.ID, ben.ID)
	assertNotFoundError(t, err)
	_, err = svc.GetJournal(ctx, secret.ID, visibility.Anonymous)
	assertNotFoundError(t, err)
	_, err = svc.GetJournal(ctx, 9999, ana.ID)
	assertNotFoundError(t, err)

	got, err := svc.GetJournal(ctx, secret.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)

	created, err := svc.CreateJournal(ctx, CreateJournalInput{UserID: ana.ID, Title: "open", Content: textDoc})
	require.NoError(t, err)
	anon, err := svc.GetJournal(ctx, created.ID, visibility.Anonymous)
	require.NoError(t, err)
	assert.Equal(t, "hello world", anon.Preview)
	assert.Equal(t, "https://cdn.example.com/a.png", anon.Cover)
	assert.False(t, anon.HasLiked)
}

func TestJournalService_UpdateAndDeleteOwnership(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	open := e.fx.Journal(ana, models.VisibilityPublic, "open")
	secret := e.fx.Journal(ana, models.VisibilityPrivate, "secret")
	title := "taken over"

	_, err := svc.UpdateJournal(ctx, UpdateJournalInput{UserID: ben.ID, JournalID: open.ID, Title: &title})
	assertForbiddenError(t, err)
	_, err = svc.UpdateJournal(ctx, UpdateJournalInput{UserID: ben.ID, JournalID: secret.ID, Title: &title})
	assertNotFoundError(t, err)
	assertForbiddenError(t, svc.DeleteJournal(ctx, ben.ID, open.ID))
	assertNotFoundError(t, svc.DeleteJournal(ctx, ben.ID, secret.ID))

	newTitle := "renamed"
	private := "private"
	updated, err := svc.UpdateJournal(ctx, UpdateJournalInput{
		UserID: ana.ID, JournalID: open.ID, Title: &newTitle, Privacy: &private,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, models.VisibilityPrivate, updated.Privacy)

	e.fx.Like(ben, secret)
	require.NoError(t, svc.DeleteJournal(ctx, ana.ID, secret.ID))
	var likes int64
	require.NoError(t, e.db.Model(&models.Like{}).Where("journal_id = ?", secret.ID).Count(&likes).Error)
	assert.Zero(t, likes)
	assertNotFoundError(t, svc.DeleteJournal(ctx, ana.ID, secret.ID))
}

func TestJournalService_ListBookmarks(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	for i := 0; i < 3; i++ {
		e.fx.Bookmark(ana, e.fx.Journal(ben, models.VisibilityPublic, "j"))
	}

	first, err := svc.ListBookmarks(ctx, ana.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, first.Data, 2)
	require.NotNil(t, first.TotalBookmarks)
	assert.EqualValues(t, 3, *first.TotalBookmarks)
	assert.True(t, first.HasMore)
	assert.True(t, first.Data[0].Journal.HasBookmarked)

	before, err := time.Parse(time.RFC3339Nano, first.NextCursor)
	require.NoError(t, err)
	second, err := svc.ListBookmarks(ctx, ana.ID, 2, &before)
	require.NoError(t, err)
	assert.Len(t, second.Data, 1)
	assert.Nil(t, second.TotalBookmarks)
	assert.False(t, second.HasMore)
}

func TestJournalService_Hottest(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	quiet := e.fx.Journal(ana, models.VisibilityPublic, "quiet")
	loud := e.fx.Journal(ana, models.VisibilityPublic, "loud")
	hidden := e.fx.Journal(ana, models.VisibilityPrivate, "hidden")
	e.fx.Like(ana, loud)
	e.fx.Like(ben, loud)
	e.fx.Like(ben, quiet)
	e.fx.Like(ben, hidden)
	e.fx.Like(ana, hidden)
	e.fx.Like(e.fx.User("cy"), hidden)

	_, err := svc.Hottest(ctx, ben.ID, 0)
	assertValidationError(t, err)

	got, err := svc.Hottest(ctx, ben.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, loud.ID, got[0].ID)
	assert.EqualValues(t, 2, got[0].LikeCount)
	assert.True(t, got[0].HasLiked)
	assert.Equal(t, quiet.ID, got[1].ID)
}

func TestJournalService_RemixCanvas(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	ctx := context.Background()

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	text := e.fx.Journal(ana, models.VisibilityPublic, "plain")
	private := e.fx.CanvasJournal(ana, models.VisibilityPrivate)
	source := e.fx.CanvasJournal(ana, models.VisibilityPublic)

	_, err := svc.RemixCanvas(ctx, ben.ID, text.ID, "")
	assertValidationError(t, err)
	_, err = svc.RemixCanvas(ctx, ben.ID, private.ID, "")
	assertNotFoundError(t, err)

	remix, err := svc.RemixCanvas(ctx, ben.ID, source.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ben.ID, remix.UserID)
	assert.Equal(t, "Remix: canvas", remix.Title)
	assert.True(t, remix.IsRemix)
	require.NotNil(t, remix.RemixSourceID)
	assert.Equal(t, source.ID, *remix.RemixSourceID)
	assert.JSONEq(t, string(source.CanvasDoc), string(remix.CanvasDoc))

	named, err := svc.RemixCanvas(ctx, ben.ID, source.ID, "  my take ")
	require.NoError(t, err)
	assert.Equal(t, "my take", named.Title)
}

func TestJournalService_AddView(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	svc := newJournalService(e, nil)
	ctx := context.Background()

	ana := e.fx.User("ana")
	open := e.fx.Journal(ana, models.VisibilityPublic, "open")
	secret := e.fx.Journal(ana, models.VisibilityPrivate, "secret")

	views, err := svc.AddView(ctx, open.ID, visibility.Anonymous)
	require.NoError(t, err)
	assert.EqualValues(t, 1, views)
	views, err = svc.AddView(ctx, open.ID, ana.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, views)

	_, err = svc.AddView(ctx, secret.ID, visibility.Anonymous)
	assertNotFoundError(t, err)
}
