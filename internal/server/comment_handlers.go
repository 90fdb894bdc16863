package server

import (
	"iskrib/internal/pagination"
	"iskrib/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreateComment creates a comment on a journal (protected)
func (s *Server) CreateComment(c *fiber.Ctx) error {
	journalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:    viewerID(c),
		JournalID: journalID,
		Content:   req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetComments returns the top-level comments of a journal, newest first.
func (s *Server) GetComments(c *fiber.Ctx) error {
	journalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	limit, err := queryLimit(c, pagination.ListRange)
	if err != nil {
		return respondError(c, err)
	}
	before, err := queryCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.commentService.ListComments(c.UserContext(), service.ListCommentsInput{
		JournalID: journalID,
		ViewerID:  viewerID(c),
		Limit:     limit,
		Before:    before,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
