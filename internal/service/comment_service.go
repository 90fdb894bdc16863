package service

import (
	"context"
	"time"

	"iskrib/internal/cache"
	"iskrib/internal/models"
	"iskrib/internal/pagination"
	"iskrib/internal/repository"
	"iskrib/internal/validation"
	"iskrib/internal/visibility"

	"golang.org/x/sync/errgroup"
)

const maxCommentLen = 2000

type CommentService struct {
	journals      repository.JournalRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
}

type CreateCommentInput struct {
	UserID    uint
	JournalID uint
	Content   string
}

type ListCommentsInput struct {
	JournalID uint
	ViewerID  uint
	Limit     int
	Before    *time.Time
}

func NewCommentService(
	journals repository.JournalRepository,
	comments repository.CommentRepository,
	notifications repository.NotificationRepository,
) *CommentService {
	return &CommentService{
		journals:      journals,
		comments:      comments,
		notifications: notifications,
	}
}

func (s *CommentService) journalFor(ctx context.Context, journalID, viewerID uint) (*models.Journal, error) {
	journal, err := s.journals.GetByID(ctx, journalID)
	if err != nil {
		return nil, notFoundOr(err, "Journal", journalID, "get journal")
	}
	if err := visibility.Check("Journal", journalID, journal.Privacy, journal.UserID, viewerID); err != nil {
		return nil, err
	}
	return journal, nil
}

// CreateComment adds a top-level comment and notifies the journal author,
// unless the author is commenting.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	text, err := validation.Text("comment", in.Content, 1, maxCommentLen)
	if err != nil {
		return nil, err
	}
	journal, err := s.journalFor(ctx, in.JournalID, in.UserID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  in.JournalID,
		UserID:  in.UserID,
		Comment: text,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.comments.Create(gctx, comment)
	})
	if journal.UserID != in.UserID {
		g.Go(func() error {
			return s.notifications.Create(gctx, &models.Notification{
				ReceiverID: journal.UserID,
				SenderID:   in.UserID,
				JournalID:  in.JournalID,
				Type:       models.NotificationComment,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, models.MapStoreError("create comment", err)
	}
	cache.InvalidateJournal(ctx, in.JournalID)
	return comment, nil
}

// ListComments pages the top-level comments of a journal the viewer can see.
func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) (pagination.Page[*models.Comment], error) {
	if err := pagination.ListRange.Validate(in.Limit); err != nil {
		return pagination.Page[*models.Comment]{}, err
	}
	if _, err := s.journalFor(ctx, in.JournalID, in.ViewerID); err != nil {
		return pagination.Page[*models.Comment]{}, err
	}
	return pagination.Fetch(ctx, pagination.ListRange, in.Limit,
		func(ctx context.Context, limit int) ([]*models.Comment, error) {
			return s.comments.ListTopLevel(ctx, in.JournalID, in.Before, limit)
		}, func(c *models.Comment) string { return pagination.FormatTime(c.CreatedAt) })
}
