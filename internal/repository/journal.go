// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"iskrib/internal/cache"
	"iskrib/internal/models"
	"iskrib/internal/observability"
	"iskrib/internal/pagination"
	"iskrib/internal/visibility"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// JournalListOptions selects one keyset page of journals.
type JournalListOptions struct {
	// AuthorID restricts the page to one author when non-zero.
	AuthorID uint
	ViewerID uint
	Before   *time.Time
	Limit    int
}

// JournalRepository defines the interface for journal data operations
type JournalRepository interface {
	Create(ctx context.Context, journal *models.Journal) error
	GetByID(ctx context.Context, id uint) (*models.Journal, error)
	List(ctx context.Context, opts JournalListOptions) ([]*models.Journal, error)
	ListByIDs(ctx context.Context, ids []uint, viewerID uint) ([]*models.Journal, error)
	ListBookmarked(ctx context.Context, userID uint, before *time.Time, limit int) ([]*models.Bookmark, error)
	CountBookmarks(ctx context.Context, userID uint) (int64, error)
	Hottest(ctx context.Context, since time.Time, limit int) ([]*models.Journal, error)
	SearchText(ctx context.Context, query string, viewerID uint, limit int) ([]*models.Journal, error)
	MatchEmbedding(ctx context.Context, vector string, viewerID uint, limit int) ([]uint, error)
	Update(ctx context.Context, journal *models.Journal) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) (int64, error)
}

type journalRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *gorm.DB) JournalRepository {
	return &journalRepository{db: db, log: observability.NewRepoLogger("journals")}
}

// withCounts selects the derived counts next to the journal columns.
func withCounts(db *gorm.DB) *gorm.DB {
	return db.Select("journals.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.journal_id = journals.id) AS like_count, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = journals.id) AS comment_count, " +
		"(SELECT COUNT(*) FROM bookmarks WHERE bookmarks.journal_id = journals.id) AS bookmark_count")
}

func (r *journalRepository) Create(ctx context.Context, journal *models.Journal) error {
	if err := r.db.WithContext(ctx).Create(journal).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": journal.ID, "user_id": journal.UserID})
	return nil
}

// GetByID loads a journal with counts and author. It applies no visibility
// rule; callers gate the result.
func (r *journalRepository) GetByID(ctx context.Context, id uint) (*models.Journal, error) {
	var journal models.Journal
	err := withCounts(r.db.WithContext(ctx).Model(&models.Journal{})).
		Preload("User").
		Where("journals.id = ?", id).
		Take(&journal).Error
	if err != nil {
		return nil, err
	}
	return &journal, nil
}

func (r *journalRepository) List(ctx context.Context, opts JournalListOptions) ([]*models.Journal, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "journals", "List")
	defer span.End()

	q := withCounts(r.db.WithContext(ctx).Model(&models.Journal{})).
		Preload("User").
		Scopes(visibility.Scope("journals", opts.ViewerID))
	if opts.AuthorID != 0 {
		q = q.Where("journals.user_id = ?", opts.AuthorID)
	}

	var journals []*models.Journal
	err := q.Scopes(pagination.Before("journals", opts.Before, opts.Limit)).Find(&journals).Error
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
	}
	return journals, err
}

// ListByIDs loads visible journals and returns them in the order of ids.
func (r *journalRepository) ListByIDs(ctx context.Context, ids []uint, viewerID uint) ([]*models.Journal, error) {
	if len(ids) == 0 {
		return []*models.Journal{}, nil
	}
	var rows []*models.Journal
	err := withCounts(r.db.WithContext(ctx).Model(&models.Journal{})).
		Preload("User").
		Scopes(visibility.Scope("journals", viewerID)).
		Where("journals.id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Journal, len(rows))
	for _, j := range rows {
		byID[j.ID] = j
	}
	out := make([]*models.Journal, 0, len(rows))
	for _, id := range ids {
		if j, ok := byID[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

// ListBookmarked pages the user's bookmarks by bookmark time. Journals that
// are no longer visible to the user are skipped.
func (r *journalRepository) ListBookmarked(ctx context.Context, userID uint, before *time.Time, limit int) ([]*models.Bookmark, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "bookmarks", "ListBookmarked")
	defer span.End()

	var bookmarks []*models.Bookmark
	err := r.db.WithContext(ctx).
		Joins("JOIN journals ON journals.id = bookmarks.journal_id").
		Where("bookmarks.user_id = ?", userID).
		Scopes(visibility.Scope("journals", userID)).
		Preload("Journal", func(db *gorm.DB) *gorm.DB { return withCounts(db) }).
		Preload("Journal.User").
		Scopes(pagination.Before("bookmarks", before, limit)).
		Find(&bookmarks).Error
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
	}
	return bookmarks, err
}

func (r *journalRepository) CountBookmarks(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Joins("JOIN journals ON journals.id = bookmarks.journal_id").
		Where("bookmarks.user_id = ?", userID).
		Scopes(visibility.Scope("journals", userID)).
		Count(&n).Error
	return n, err
}

// Hottest ranks public journals created since the given time by likes.
func (r *journalRepository) Hottest(ctx context.Context, since time.Time, limit int) ([]*models.Journal, error) {
	var journals []*models.Journal
	err := withCounts(r.db.WithContext(ctx).Model(&models.Journal{})).
		Preload("User").
		Where("journals.privacy = ? AND journals.created_at >= ?", models.VisibilityPublic, since).
		Order("like_count DESC").
		Order("journals.created_at DESC").
		Limit(limit).
		Find(&journals).Error
	return journals, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// SearchText is the substring fallback used when vector search is off or
// failing.
func (r *journalRepository) SearchText(ctx context.Context, query string, viewerID uint, limit int) ([]*models.Journal, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "journals", "SearchText")
	defer span.End()

	like := "%" + strings.ToLower(escapeLike(query)) + "%"
	var journals []*models.Journal
	err := withCounts(r.db.WithContext(ctx).Model(&models.Journal{})).
		Preload("User").
		Scopes(visibility.Scope("journals", viewerID)).
		Where(`(LOWER(journals.title) LIKE ? ESCAPE '\' OR LOWER(journals.content) LIKE ? ESCAPE '\')`, like, like).
		Order("journals.created_at DESC").
		Order("journals.id DESC").
		Limit(limit).
		Find(&journals).Error
	return journals, err
}

type match struct {
	ID         uint
	Similarity float64
}

// MatchEmbedding calls the match_journals ranking function and returns ids by
// descending similarity.
func (r *journalRepository) MatchEmbedding(ctx context.Context, vector string, viewerID uint, limit int) ([]uint, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "journals", "MatchEmbedding")
	defer span.End()

	var matches []match
	err := r.db.WithContext(ctx).
		Raw("SELECT id, similarity FROM match_journals(?, ?, ?)", vector, limit, viewerID).
		Scan(&matches).Error
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return nil, err
	}
	observability.AddTraceAttributesToContext(ctx, attribute.Int("search.matches", len(matches)))
	ids := make([]uint, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids, nil
}

func (r *journalRepository) Update(ctx context.Context, journal *models.Journal) error {
	err := r.db.WithContext(ctx).
		Model(journal).
		Select("title", "content", "canvas_doc", "privacy", "embedding", "updated_at").
		Updates(journal).Error
	if err != nil {
		return err
	}
	cache.InvalidateJournal(ctx, journal.ID)
	return nil
}

// Delete removes the journal and every row hanging off it.
func (r *journalRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dep := range []struct {
			model  any
			column string
		}{
			{&models.Like{}, "journal_id"},
			{&models.Bookmark{}, "journal_id"},
			{&models.Comment{}, "post_id"},
			{&models.Notification{}, "journal_id"},
			{&models.CanvasMarginItem{}, "journal_id"},
			{&models.CanvasStamp{}, "journal_id"},
		} {
			if err := tx.Where(dep.column+" = ?", id).Delete(dep.model).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Journal{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.LogError(ctx, err, "delete")
		}
		return err
	}
	r.log.LogDelete(ctx, map[string]any{"id": id})
	cache.InvalidateJournal(ctx, id)
	return nil
}

// IncrementViews bumps the counter and returns the new value.
func (r *journalRepository) IncrementViews(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Journal{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var views int64
	if err := r.db.WithContext(ctx).Model(&models.Journal{}).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	cache.InvalidateJournal(ctx, id)
	return views, nil
}
