package server

import (
	"iskrib/internal/pagination"
	"iskrib/internal/service"
	"iskrib/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type createWallItemRequest struct {
	WeekID   uint               `json:"week_id" validate:"required"`
	ItemType string             `json:"item_type" validate:"required"`
	Payload  validation.Payload `json:"payload"`
	ZIndex   int                `json:"z_index"`
}

type updateWallItemRequest struct {
	Payload validation.Payload `json:"payload"`
	ZIndex  *int               `json:"z_index"`
}

// CurrentWallWeek handles GET /api/freedom-wall/current
func (s *Server) CurrentWallWeek(c *fiber.Ctx) error {
	week, err := s.wallService.CurrentWeek(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(week)
}

// ListWallItems handles GET /api/freedom-wall/weeks/:id/items
// Items come back in paint order; the cursor is the last created_at seen.
func (s *Server) ListWallItems(c *fiber.Ctx) error {
	weekID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	limit, err := queryLimit(c, pagination.WallRange)
	if err != nil {
		return respondError(c, err)
	}
	after, err := queryCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.wallService.ListItems(c.UserContext(), service.ListWallItemsInput{
		WeekID: weekID,
		Limit:  limit,
		After:  after,
		Types:  c.Query("types"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateWallItem handles POST /api/freedom-wall/items
func (s *Server) CreateWallItem(c *fiber.Ctx) error {
	var req createWallItemRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}
	item, err := s.wallService.CreateItem(c.UserContext(), service.CreateWallItemInput{
		UserID:   viewerID(c),
		WeekID:   req.WeekID,
		ItemType: req.ItemType,
		Payload:  req.Payload,
		ZIndex:   req.ZIndex,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateWallItem handles PATCH /api/freedom-wall/items/:id
func (s *Server) UpdateWallItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateWallItemRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}
	item, err := s.wallService.UpdateItem(c.UserContext(), service.UpdateWallItemInput{
		UserID:  viewerID(c),
		ItemID:  id,
		Payload: req.Payload,
		ZIndex:  req.ZIndex,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteWallItem handles DELETE /api/freedom-wall/items/:id
func (s *Server) DeleteWallItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.wallService.DeleteItem(c.UserContext(), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
