package server

import (
	"iskrib/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /api/notifications
// Content and opinion notifications come back as one newest-first page.
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	limit, err := queryLimit(c, pagination.NoticesRange)
	if err != nil {
		return respondError(c, err)
	}
	before, err := queryCursor(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.notificationService.List(c.UserContext(), viewerID(c), limit, before)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// UnreadNotificationCount handles GET /api/notifications/unread-count
func (s *Server) UnreadNotificationCount(c *fiber.Ctx) error {
	n, err := s.notificationService.UnreadCount(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// MarkAllNotificationsRead handles PATCH /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	if err := s.notificationService.MarkAllRead(c.UserContext(), viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkNotificationRead handles PATCH /api/notifications/:source/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.MarkRead(c.UserContext(), c.Params("source"), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteNotification handles DELETE /api/notifications/:source/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.Delete(c.UserContext(), c.Params("source"), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
