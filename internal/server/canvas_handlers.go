package server

import (
	"iskrib/internal/service"
	"iskrib/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type marginRequest struct {
	ItemType string             `json:"item_type" validate:"required"`
	Payload  validation.Payload `json:"payload" validate:"required"`
}

// X and Y arrive as numbers or numeric strings.
type stampRequest struct {
	SnippetID string `json:"snippet_id" validate:"required"`
	WordKey   string `json:"word_key"`
	StampType string `json:"stamp_type" validate:"required"`
	X         any    `json:"x"`
	Y         any    `json:"y"`
}

// ListMargins handles GET /api/journals/:id/margins
func (s *Server) ListMargins(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	items, err := s.canvasService.ListMargins(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddMargin handles POST /api/journals/:id/margins
func (s *Server) AddMargin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req marginRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	item, err := s.canvasService.AddMargin(c.UserContext(), service.AddMarginInput{
		UserID:    viewerID(c),
		JournalID: id,
		ItemType:  req.ItemType,
		Payload:   req.Payload,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// DeleteMargin handles DELETE /api/margins/:id
func (s *Server) DeleteMargin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.canvasService.DeleteMargin(c.UserContext(), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListStamps handles GET /api/journals/:id/stamps
func (s *Server) ListStamps(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	stamps, err := s.canvasService.ListStamps(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": stamps})
}

// AddStamp handles POST /api/journals/:id/stamps
func (s *Server) AddStamp(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req stampRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	stamp, err := s.canvasService.AddStamp(c.UserContext(), service.AddStampInput{
		UserID:    viewerID(c),
		JournalID: id,
		Stamp: validation.StampInput{
			SnippetID: req.SnippetID,
			WordKey:   req.WordKey,
			StampType: req.StampType,
			X:         req.X,
			Y:         req.Y,
		},
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stamp)
}

// DeleteStamp handles DELETE /api/stamps/:id
func (s *Server) DeleteStamp(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.canvasService.DeleteStamp(c.UserContext(), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
