package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"iskrib/internal/cache"
	"iskrib/internal/content"
	"iskrib/internal/embedding"
	"iskrib/internal/models"
	"iskrib/internal/pagination"
	"iskrib/internal/personalize"
	"iskrib/internal/repository"
	"iskrib/internal/validation"
	"iskrib/internal/visibility"
)

const (
	maxTitleLen   = 180
	maxContentLen = 200000
)

type JournalService struct {
	journals repository.JournalRepository
	overlay  *personalize.Overlay
	embedder embedding.Provider
	now      func() time.Time
}

type CreateJournalInput struct {
	UserID    uint
	Title     string
	Content   string
	Privacy   string
	PostType  string
	CanvasDoc json.RawMessage
}

// UpdateJournalInput changes only the fields that are set.
type UpdateJournalInput struct {
	UserID    uint
	JournalID uint
	Title     *string
	Content   *string
	Privacy   *string
	CanvasDoc json.RawMessage
}

type ListJournalsInput struct {
	ViewerID uint
	// AuthorID restricts the list to one author when non-zero.
	AuthorID uint
	Limit    int
	Before   *time.Time
}

// BookmarkPage is a bookmarks page. TotalBookmarks is only set on the first
// page.
type BookmarkPage struct {
	pagination.Page[*models.Bookmark]
	TotalBookmarks *int64 `json:"totalBookmarks,omitempty"`
}

func NewJournalService(
	journals repository.JournalRepository,
	overlay *personalize.Overlay,
	embedder embedding.Provider,
) *JournalService {
	return &JournalService{
		journals: journals,
		overlay:  overlay,
		embedder: embedder,
		now:      time.Now,
	}
}

func parsePrivacy(raw string) (models.Visibility, error) {
	if strings.TrimSpace(raw) == "" {
		return models.VisibilityPublic, nil
	}
	v := models.Visibility(strings.ToLower(strings.TrimSpace(raw)))
	if !v.Valid() {
		return "", models.NewValidationError("privacy should be public or private")
	}
	return v, nil
}

func parsePostType(raw string) (models.PostType, error) {
	switch models.PostType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", models.PostTypeText:
		return models.PostTypeText, nil
	case models.PostTypeCanvas:
		return models.PostTypeCanvas, nil
	default:
		return "", models.NewValidationError("post_type should be text or canvas")
	}
}

// embeddingBody validates the body of a journal and returns the text the
// embedding is computed from.
func embeddingBody(postType models.PostType, rawContent string, canvasDoc json.RawMessage) (string, error) {
	if postType == models.PostTypeCanvas {
		return content.CanvasText(canvasDoc)
	}
	if len(rawContent) > maxContentLen {
		return "", models.NewValidationError("content is too long")
	}
	parsed, err := content.Parse(rawContent)
	if err != nil {
		return "", err
	}
	return parsed.WholeText, nil
}

// embed computes the vector of a journal. An unconfigured provider stores
// the journal without one; it is then only reachable through text search.
func (s *JournalService) embed(ctx context.Context, title, body string) (string, error) {
	if s.embedder == nil {
		return "", nil
	}
	vec, err := s.embedder.Embed(ctx, title, body)
	if errors.Is(err, embedding.ErrUnavailable) {
		slog.WarnContext(ctx, "journal stored without embedding", "reason", err.Error())
		return "", nil
	}
	if err != nil {
		return "", models.NewDependencyError("embed journal", err)
	}
	return embedding.Encode(vec), nil
}

func (s *JournalService) CreateJournal(ctx context.Context, in CreateJournalInput) (*models.Journal, error) {
	title, err := validation.Text("title", in.Title, 1, maxTitleLen)
	if err != nil {
		return nil, err
	}
	privacy, err := parsePrivacy(in.Privacy)
	if err != nil {
		return nil, err
	}
	postType, err := parsePostType(in.PostType)
	if err != nil {
		return nil, err
	}
	body, err := embeddingBody(postType, in.Content, in.CanvasDoc)
	if err != nil {
		return nil, err
	}
	vector, err := s.embed(ctx, title, body)
	if err != nil {
		return nil, err
	}

	journal := &models.Journal{
		UserID:    in.UserID,
		Title:     title,
		PostType:  postType,
		Privacy:   privacy,
		Embedding: vector,
	}
	if postType == models.PostTypeCanvas {
		journal.CanvasDoc = models.JSON(in.CanvasDoc)
	} else {
		journal.Content = in.Content
	}
	if err := s.journals.Create(ctx, journal); err != nil {
		return nil, models.MapStoreError("create journal", err)
	}
	return s.loadVisible(ctx, journal.ID, in.UserID)
}

// loadVisible fetches a journal and hides it from viewers who may not see it.
func (s *JournalService) loadVisible(ctx context.Context, id, viewerID uint) (*models.Journal, error) {
	journal, err := s.journals.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Journal", id, "get journal")
	}
	if err := visibility.Check("Journal", id, journal.Privacy, journal.UserID, viewerID); err != nil {
		return nil, err
	}
	return journal, nil
}

// GetJournal returns one journal with the viewer's flags. Anonymous reads go
// through the cache.
func (s *JournalService) GetJournal(ctx context.Context, id, viewerID uint) (*models.Journal, error) {
	if viewerID == visibility.Anonymous {
		var journal models.Journal
		err := cache.Aside(ctx, cache.JournalKey(id), &journal, cache.JournalTTL, func() error {
			loaded, err := s.journals.GetByID(ctx, id)
			if err != nil {
				return err
			}
			journal = *loaded
			return nil
		})
		if err != nil {
			return nil, notFoundOr(err, "Journal", id, "get journal")
		}
		if err := visibility.Check("Journal", id, journal.Privacy, journal.UserID, viewerID); err != nil {
			return nil, err
		}
		decorate(&journal)
		return &journal, nil
	}

	journal, err := s.loadVisible(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.personalize(ctx, viewerID, []*models.Journal{journal}); err != nil {
		return nil, err
	}
	return journal, nil
}

func (s *JournalService) personalize(ctx context.Context, viewerID uint, journals []*models.Journal) error {
	for _, j := range journals {
		decorate(j)
	}
	if err := s.overlay.Apply(ctx, viewerID, personalize.Targets(journals), personalize.Like, personalize.Bookmark); err != nil {
		return models.MapStoreError("personalize journals", err)
	}
	return nil
}

// decorate fills the feed preview of text journals. Unparseable content
// just gets no preview.
func decorate(j *models.Journal) {
	if j.PostType != models.PostTypeText || j.Content == "" {
		return
	}
	parsed, err := content.Parse(j.Content)
	if err != nil {
		return
	}
	j.Preview = parsed.SlicedText
	if parsed.FirstImage != nil {
		j.Cover = parsed.FirstImage.Src
	}
}

func journalCursor(j *models.Journal) string {
	return pagination.FormatTime(j.CreatedAt)
}

// ListJournals pages journals newest first. With AuthorID zero it is the
// public feed, which never shows private journals, not even the viewer's own.
func (s *JournalService) ListJournals(ctx context.Context, in ListJournalsInput) (pagination.Page[*models.Journal], error) {
	gateViewer := in.ViewerID
	if in.AuthorID == 0 {
		gateViewer = visibility.Anonymous
	}
	page, err := pagination.Fetch(ctx, pagination.FeedRange, in.Limit,
		func(ctx context.Context, limit int) ([]*models.Journal, error) {
			return s.journals.List(ctx, repository.JournalListOptions{
				AuthorID: in.AuthorID,
				ViewerID: gateViewer,
				Before:   in.Before,
				Limit:    limit,
			})
		}, journalCursor)
	if err != nil {
		return page, err
	}
	if err := s.personalize(ctx, in.ViewerID, page.Data); err != nil {
		return pagination.Page[*models.Journal]{}, err
	}
	return page, nil
}

// ListBookmarks pages the viewer's bookmarks by bookmark time.
func (s *JournalService) ListBookmarks(ctx context.Context, userID uint, limit int, before *time.Time) (*BookmarkPage, error) {
	page, err := pagination.Fetch(ctx, pagination.FeedRange, limit,
		func(ctx context.Context, limit int) ([]*models.Bookmark, error) {
			return s.journals.ListBookmarked(ctx, userID, before, limit)
		}, func(b *models.Bookmark) string { return pagination.FormatTime(b.CreatedAt) })
	if err != nil {
		return nil, err
	}

	journals := make([]*models.Journal, 0, len(page.Data))
	for _, b := range page.Data {
		if b.Journal != nil {
			journals = append(journals, b.Journal)
		}
	}
	if err := s.personalize(ctx, userID, journals); err != nil {
		return nil, err
	}

	out := &BookmarkPage{Page: page}
	if before == nil {
		total, err := s.journals.CountBookmarks(ctx, userID)
		if err != nil {
			return nil, models.MapStoreError("count bookmarks", err)
		}
		out.TotalBookmarks = &total
	}
	return out, nil
}

// Hottest ranks this month's public journals by likes.
func (s *JournalService) Hottest(ctx context.Context, viewerID uint, limit int) ([]*models.Journal, error) {
	if err := pagination.RankedRange.Validate(limit); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	journals, err := s.journals.Hottest(ctx, since, limit)
	if err != nil {
		return nil, models.MapStoreError("hottest journals", err)
	}
	if err := s.personalize(ctx, viewerID, journals); err != nil {
		return nil, err
	}
	return journals, nil
}

func (s *JournalService) UpdateJournal(ctx context.Context, in UpdateJournalInput) (*models.Journal, error) {
	journal, err := s.loadVisible(ctx, in.JournalID, in.UserID)
	if err != nil {
		return nil, err
	}
	if journal.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own journals")
	}

	if in.Title != nil {
		title, err := validation.Text("title", *in.Title, 1, maxTitleLen)
		if err != nil {
			return nil, err
		}
		journal.Title = title
	}
	if in.Privacy != nil {
		privacy, err := parsePrivacy(*in.Privacy)
		if err != nil {
			return nil, err
		}
		journal.Privacy = privacy
	}
	if journal.PostType == models.PostTypeCanvas {
		if len(in.CanvasDoc) > 0 {
			journal.CanvasDoc = models.JSON(in.CanvasDoc)
		}
	} else if in.Content != nil && strings.TrimSpace(*in.Content) != "" {
		journal.Content = *in.Content
	}

	body, err := embeddingBody(journal.PostType, journal.Content, json.RawMessage(journal.CanvasDoc))
	if err != nil {
		return nil, err
	}
	vector, err := s.embed(ctx, journal.Title, body)
	if err != nil {
		return nil, err
	}
	if vector != "" {
		journal.Embedding = vector
	}
	journal.UpdatedAt = s.now().UTC()

	if err := s.journals.Update(ctx, journal); err != nil {
		return nil, models.MapStoreError("update journal", err)
	}
	return s.GetJournal(ctx, journal.ID, in.UserID)
}

func (s *JournalService) DeleteJournal(ctx context.Context, userID, id uint) error {
	journal, err := s.loadVisible(ctx, id, userID)
	if err != nil {
		return err
	}
	if journal.UserID != userID {
		return models.NewForbiddenError("You can only delete your own journals")
	}
	if err := s.journals.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Journal", id, "delete journal")
	}
	return nil
}

// AddView increments the view counter of a journal the viewer can see.
func (s *JournalService) AddView(ctx context.Context, id, viewerID uint) (int64, error) {
	if _, err := s.loadVisible(ctx, id, viewerID); err != nil {
		return 0, err
	}
	views, err := s.journals.IncrementViews(ctx, id)
	if err != nil {
		return 0, notFoundOr(err, "Journal", id, "increment views")
	}
	return views, nil
}

// RemixCanvas copies a canvas journal the user can see into a new journal
// of theirs.
func (s *JournalService) RemixCanvas(ctx context.Context, userID, sourceID uint, title string) (*models.Journal, error) {
	source, err := s.loadVisible(ctx, sourceID, userID)
	if err != nil {
		return nil, err
	}
	if source.PostType != models.PostTypeCanvas {
		return nil, models.NewValidationError("journal is not a canvas post")
	}

	title = validation.Cut(validation.SanitizeText(title), maxTitleLen)
	if title == "" {
		title = validation.Cut("Remix: "+source.Title, maxTitleLen)
	}
	body, err := content.CanvasText(json.RawMessage(source.CanvasDoc))
	if err != nil {
		return nil, err
	}
	vector, err := s.embed(ctx, title, body)
	if err != nil {
		return nil, err
	}

	remix := &models.Journal{
		UserID:        userID,
		Title:         title,
		PostType:      models.PostTypeCanvas,
		CanvasDoc:     source.CanvasDoc,
		Privacy:       models.VisibilityPublic,
		Embedding:     vector,
		IsRemix:       true,
		RemixSourceID: &source.ID,
	}
	if err := s.journals.Create(ctx, remix); err != nil {
		return nil, models.MapStoreError("create remix", err)
	}
	return s.loadVisible(ctx, remix.ID, userID)
}
