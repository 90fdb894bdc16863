package service

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"iskrib/internal/mediafeed"
	"iskrib/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaService(t *testing.T) (*MediaService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	signer := storage.NewSigner(storage.SignerConfig{Secret: "media-secret", BaseURL: "http://api.test"})
	buckets := []string{"journal-images", "avatars"}
	feed := mediafeed.New(store, signer, mediafeed.WithBuckets(buckets...))
	svc := NewMediaService(feed, store, signer, time.Hour, buckets...)
	svc.now = func() time.Time { return time.UnixMilli(1767225600123).UTC() }
	return svc, store
}

func TestMediaService_UploadMedia(t *testing.T) {
	t.Parallel()
	svc, _ := newMediaService(t)
	ctx := context.Background()

	item, err := svc.UploadMedia(ctx, UploadMediaInput{
		UserID:      7,
		Bucket:      "journal-images",
		Filename:    "Holiday.PNG",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user_id_7/1767225600123_[0-9a-f-]{36}\.png$`), item.Path)
	assert.Equal(t, time.UnixMilli(1767225600123).UTC(), item.CreatedAt)
	assert.Contains(t, item.URL, "http://api.test/media/journal-images/user_id_7/")
	assert.Contains(t, item.URL, "token=")

	page, err := svc.ListMedia(ctx, 7, 6, "")
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, item.Path, page.Data[0].Path)
}

func TestMediaService_UploadMediaRejects(t *testing.T) {
	t.Parallel()
	svc, _ := newMediaService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadMediaInput
	}{
		{"unknown bucket", UploadMediaInput{Bucket: "secrets", Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")}},
		{"not an image", UploadMediaInput{Bucket: "avatars", Filename: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")}},
		{"empty body", UploadMediaInput{Bucket: "avatars", Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("")}},
		{"too large", UploadMediaInput{Bucket: "avatars", Filename: "a.png", ContentType: "image/png", Body: bytes.NewReader(make([]byte, MaxUploadSize+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = 1
			_, err := svc.UploadMedia(ctx, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestMediaService_DeleteMedia(t *testing.T) {
	t.Parallel()
	svc, store := newMediaService(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "avatars", "user_id_7/1767225600000_me.png", "image/png", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "avatars", "user_id_8/1767225600000_other.png", "image/png", strings.NewReader("b"))
	require.NoError(t, err)

	assertForbiddenError(t, svc.DeleteMedia(ctx, DeleteMediaInput{UserID: 7, Bucket: "private", Path: "user_id_7/x.png"}))
	assertForbiddenError(t, svc.DeleteMedia(ctx, DeleteMediaInput{UserID: 7, Bucket: "avatars", Path: "user_id_8/1767225600000_other.png"}))
	assertForbiddenError(t, svc.DeleteMedia(ctx, DeleteMediaInput{UserID: 7, Bucket: "avatars", Path: "user_id_70/x.png"}))
	assertValidationError(t, svc.DeleteMedia(ctx, DeleteMediaInput{UserID: 7, Bucket: "avatars", Path: "user_id_7/../user_id_8/1767225600000_other.png"}))

	require.NoError(t, svc.DeleteMedia(ctx, DeleteMediaInput{UserID: 7, Bucket: "avatars", Path: "user_id_7/1767225600000_me.png"}))
	_, _, err = store.Open(ctx, "avatars", "user_id_7/1767225600000_me.png")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, _, err = store.Open(ctx, "avatars", "user_id_8/1767225600000_other.png")
	assert.NoError(t, err)
}
