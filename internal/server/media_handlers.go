package server

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"iskrib/internal/models"
	"iskrib/internal/pagination"
	"iskrib/internal/service"
	"iskrib/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type deleteMediaRequest struct {
	Bucket string `json:"bucket" validate:"required"`
	Path   string `json:"path" validate:"required"`
}

func (s *Server) listMedia(c *fiber.Ctx, ownerID uint) error {
	limit, err := queryLimit(c, pagination.MediaRange)
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.mediaService.ListMedia(c.UserContext(), ownerID, limit, c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ListMyMedia handles GET /api/users/me/media
func (s *Server) ListMyMedia(c *fiber.Ctx) error {
	return s.listMedia(c, viewerID(c))
}

// ListUserMedia handles GET /api/users/:id/media
func (s *Server) ListUserMedia(c *fiber.Ctx) error {
	ownerID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.listMedia(c, ownerID)
}

// UploadMedia handles POST /api/users/me/media/:bucket with a multipart
// "file" field.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, models.NewValidationError("file is required"))
	}
	src, err := file.Open()
	if err != nil {
		return respondError(c, models.NewValidationError("could not read upload"))
	}
	defer func() { _ = src.Close() }()

	item, err := s.mediaService.UploadMedia(c.UserContext(), service.UploadMediaInput{
		UserID:      viewerID(c),
		Bucket:      c.Params("bucket"),
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Body:        src,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// DeleteMedia handles DELETE /api/users/me/media
func (s *Server) DeleteMedia(c *fiber.Ctx) error {
	var req deleteMediaRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}
	err := s.mediaService.DeleteMedia(c.UserContext(), service.DeleteMediaInput{
		UserID: viewerID(c),
		Bucket: req.Bucket,
		Path:   req.Path,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ServeMedia handles GET /media/:bucket/* and streams an object to holders
// of a valid signed URL. Public buckets need no token.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	if !slices.Contains(uploadBuckets, bucket) {
		return respondError(c, models.NewForbiddenError("unknown media bucket"))
	}
	raw, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return respondError(c, models.NewValidationError("invalid media path"))
	}
	objectPath, err := storage.CleanPath(raw)
	if err != nil {
		return respondError(c, models.NewValidationError("invalid media path"))
	}

	if !s.signer.IsPublic(bucket) {
		if err := s.signer.Verify(c.Query("token"), bucket, objectPath); err != nil {
			return respondError(c, models.NewForbiddenError("invalid or expired media link"))
		}
	}

	body, obj, err := s.store.Open(c.UserContext(), bucket, objectPath)
	if errors.Is(err, storage.ErrNotFound) {
		return respondError(c, models.NewNotFoundError("Media", objectPath))
	}
	if err != nil {
		return respondError(c, models.NewDependencyError("open media", err))
	}

	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	}
	c.Set(fiber.HeaderCacheControl, fmt.Sprintf("private, max-age=%d", int(s.config.MediaSignedURLTTL.Seconds())))
	return c.SendStream(body, int(obj.Size))
}
