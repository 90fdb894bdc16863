package server

import (
	"encoding/json"

	"iskrib/internal/pagination"
	"iskrib/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createJournalRequest struct {
	Title     string          `json:"title" validate:"required"`
	Content   string          `json:"content"`
	Privacy   string          `json:"privacy" validate:"omitempty,oneof=public private"`
	PostType  string          `json:"post_type" validate:"omitempty,oneof=text canvas"`
	CanvasDoc json.RawMessage `json:"canvas_doc"`
}

type updateJournalRequest struct {
	Title     *string         `json:"title"`
	Content   *string         `json:"content"`
	Privacy   *string         `json:"privacy" validate:"omitempty,oneof=public private"`
	CanvasDoc json.RawMessage `json:"canvas_doc"`
}

type remixRequest struct {
	Title string `json:"title" validate:"max=400"`
}

// feedRange is the feed limit range with the configured default.
func (s *Server) feedRange() pagination.Range {
	r := pagination.FeedRange
	if d := s.config.FeedDefaultLimit; d >= r.Min && d <= r.Max {
		r.Default = d
	}
	return r
}

// listJournals serves the public feed (authorID 0) and author feeds.
func (s *Server) listJournals(c *fiber.Ctx, authorID uint) error {
	limit, err := queryLimit(c, s.feedRange())
	if err != nil {
		return respondError(c, err)
	}
	before, err := queryCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.journalService.ListJournals(c.UserContext(), service.ListJournalsInput{
		ViewerID: viewerID(c),
		AuthorID: authorID,
		Limit:    limit,
		Before:   before,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListJournals handles GET /api/journals
//
//	@Summary	Public journal feed
//	@Tags		journals
//	@Param		limit	query	int		false	"1-20"
//	@Param		cursor	query	string	false	"nextCursor of the previous page"
//	@Router		/journals [get]
func (s *Server) ListJournals(c *fiber.Ctx) error {
	return s.listJournals(c, 0)
}

// ListMyJournals handles GET /api/users/me/journals
func (s *Server) ListMyJournals(c *fiber.Ctx) error {
	return s.listJournals(c, viewerID(c))
}

// ListUserJournals handles GET /api/users/:id/journals
func (s *Server) ListUserJournals(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.listJournals(c, authorID)
}

// SearchJournals handles GET /api/journals/search?q=...
func (s *Server) SearchJournals(c *fiber.Ctx) error {
	limit, err := queryLimit(c, pagination.RankedRange)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.searchService.Search(c.UserContext(), service.SearchInput{
		Query:    c.Query("q"),
		ViewerID: viewerID(c),
		Limit:    limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// HottestJournals handles GET /api/journals/hottest
func (s *Server) HottestJournals(c *fiber.Ctx) error {
	limit, err := queryLimit(c, pagination.RankedRange)
	if err != nil {
		return respondError(c, err)
	}
	journals, err := s.journalService.Hottest(c.UserContext(), viewerID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": journals})
}

// GetJournal handles GET /api/journals/:id
func (s *Server) GetJournal(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	journal, err := s.journalService.GetJournal(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(journal)
}

// CreateJournal handles POST /api/journals
//
//	@Summary	Create a journal
//	@Tags		journals
//	@Security	BearerAuth
//	@Router		/journals [post]
func (s *Server) CreateJournal(c *fiber.Ctx) error {
	var req createJournalRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	journal, err := s.journalService.CreateJournal(c.UserContext(), service.CreateJournalInput{
		UserID:    viewerID(c),
		Title:     req.Title,
		Content:   req.Content,
		Privacy:   req.Privacy,
		PostType:  req.PostType,
		CanvasDoc: req.CanvasDoc,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(journal)
}

// UpdateJournal handles PATCH /api/journals/:id
func (s *Server) UpdateJournal(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateJournalRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	journal, err := s.journalService.UpdateJournal(c.UserContext(), service.UpdateJournalInput{
		UserID:    viewerID(c),
		JournalID: id,
		Title:     req.Title,
		Content:   req.Content,
		Privacy:   req.Privacy,
		CanvasDoc: req.CanvasDoc,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(journal)
}

// DeleteJournal handles DELETE /api/journals/:id
func (s *Server) DeleteJournal(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.journalService.DeleteJournal(c.UserContext(), viewerID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddJournalView handles POST /api/journals/:id/views
func (s *Server) AddJournalView(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	views, err := s.journalService.AddView(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"views": views})
}

// RemixJournal handles POST /api/journals/:id/remix. The title is optional.
func (s *Server) RemixJournal(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req remixRequest
	if len(c.Body()) > 0 {
		if err := bindBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}

	remix, err := s.journalService.RemixCanvas(c.UserContext(), viewerID(c), id, req.Title)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(remix)
}

// ListBookmarks handles GET /api/bookmarks
func (s *Server) ListBookmarks(c *fiber.Ctx) error {
	limit, err := queryLimit(c, s.feedRange())
	if err != nil {
		return respondError(c, err)
	}
	before, err := queryCursor(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.journalService.ListBookmarks(c.UserContext(), viewerID(c), limit, before)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
