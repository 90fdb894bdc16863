package server

import (
	"iskrib/internal/pagination"
	"iskrib/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListOpinionReplies handles GET /api/opinions/:id/replies
// The cursor is the id of the last reply seen.
func (s *Server) ListOpinionReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	limit, err := queryLimit(c, pagination.ListRange)
	if err != nil {
		return respondError(c, err)
	}
	beforeID, err := pagination.ParseID(c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.opinionService.ListReplies(c.UserContext(), id, limit, beforeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ReplyToOpinion handles POST /api/opinions/:id/replies
func (s *Server) ReplyToOpinion(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	reply, err := s.opinionService.Reply(c.UserContext(), service.ReplyInput{
		UserID:   viewerID(c),
		ParentID: id,
		Content:  req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}
