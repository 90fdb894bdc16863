package server

import (
	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/journals/:id/like
// A second call removes the like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.interactionService.ToggleLike(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ToggleBookmark handles POST /api/journals/:id/bookmark
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.interactionService.ToggleBookmark(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ToggleFollow handles POST /api/users/:id/follow
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.interactionService.ToggleFollow(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
