package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"iskrib/internal/mediafeed"
	"iskrib/internal/models"
	"iskrib/internal/storage"

	"github.com/google/uuid"
)

// MaxUploadSize caps a single media upload.
const MaxUploadSize = 5 << 20

type MediaService struct {
	feed    *mediafeed.Feed
	store   storage.ObjectStore
	urls    storage.URLResolver
	buckets map[string]bool
	ttl     time.Duration
	now     func() time.Time
}

type UploadMediaInput struct {
	UserID      uint
	Bucket      string
	Filename    string
	ContentType string
	Body        io.Reader
}

type DeleteMediaInput struct {
	UserID uint
	Bucket string
	Path   string
}

// NewMediaService serves media from buckets; deletes and uploads outside
// them are refused.
func NewMediaService(feed *mediafeed.Feed, store storage.ObjectStore, urls storage.URLResolver, signedTTL time.Duration, buckets ...string) *MediaService {
	allowed := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		allowed[b] = true
	}
	if signedTTL <= 0 {
		signedTTL = time.Hour
	}
	return &MediaService{
		feed:    feed,
		store:   store,
		urls:    urls,
		buckets: allowed,
		ttl:     signedTTL,
		now:     time.Now,
	}
}

// ListMedia returns one page of the owner's media across every bucket.
func (s *MediaService) ListMedia(ctx context.Context, ownerID uint, limit int, cursor string) (*mediafeed.Result, error) {
	return s.feed.Page(ctx, ownerID, limit, cursor)
}

// UploadMedia stores an image under the uploader's folder. The name starts
// with the upload time in millis so the media feed can order it.
func (s *MediaService) UploadMedia(ctx context.Context, in UploadMediaInput) (*mediafeed.Item, error) {
	if !s.buckets[in.Bucket] {
		return nil, models.NewValidationError("unknown media bucket")
	}
	ext := strings.ToLower(path.Ext(in.Filename))
	if !storage.IsImage(storage.Object{Name: "upload" + ext, ContentType: in.ContentType}) {
		return nil, models.NewValidationError("only image uploads are accepted")
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, MaxUploadSize+1))
	if err != nil {
		return nil, models.NewValidationError("could not read upload")
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("upload is empty")
	}
	if len(data) > MaxUploadSize {
		return nil, models.NewValidationError("upload exceeds 5MB")
	}

	now := s.now().UTC()
	objectPath := fmt.Sprintf("%s%d_%s%s", mediafeed.OwnerPrefix(in.UserID), now.UnixMilli(), uuid.NewString(), ext)
	obj, err := s.store.Put(ctx, in.Bucket, objectPath, in.ContentType, bytes.NewReader(data))
	if err != nil {
		return nil, models.NewDependencyError("upload media", err)
	}

	item := &mediafeed.Item{
		Bucket:      in.Bucket,
		Path:        obj.Path,
		Name:        obj.Name,
		ContentType: obj.ContentType,
		CreatedAt:   mediafeed.Timestamp(*obj),
	}
	if url, err := s.urls.SignedURL(ctx, in.Bucket, obj.Path, s.ttl); err == nil {
		item.URL = url
	} else {
		item.URL = s.urls.PublicURL(in.Bucket, obj.Path)
	}
	return item, nil
}

// DeleteMedia removes one of the user's own objects.
func (s *MediaService) DeleteMedia(ctx context.Context, in DeleteMediaInput) error {
	if !s.buckets[in.Bucket] {
		return models.NewForbiddenError("bucket is not allowed")
	}
	objectPath, err := storage.CleanPath(in.Path)
	if err != nil {
		return models.NewValidationError("invalid media path")
	}
	if !strings.HasPrefix(objectPath, mediafeed.OwnerPrefix(in.UserID)) {
		return models.NewForbiddenError("You can only delete your own media")
	}
	if err := s.store.Remove(ctx, in.Bucket, []string{objectPath}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewNotFoundError("Media", objectPath)
		}
		return models.NewDependencyError("delete media", err)
	}
	return nil
}
