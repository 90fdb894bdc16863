package service

import (
	"context"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/pagination"
	"iskrib/internal/repository"
)

type NotificationService struct {
	repo   repository.NotificationRepository
	merger *pagination.Merger
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		repo:   repo,
		merger: pagination.NewMerger("notifications", repo.Sources()...),
	}
}

// List returns one merged page across content and opinion notifications.
func (s *NotificationService) List(ctx context.Context, receiverID uint, limit int, before *time.Time) (pagination.Page[pagination.Entry], error) {
	return s.merger.Page(ctx, pagination.NoticesRange, receiverID, limit, before)
}

func (s *NotificationService) UnreadCount(ctx context.Context, receiverID uint) (int64, error) {
	n, err := s.repo.UnreadCount(ctx, receiverID)
	if err != nil {
		return 0, models.MapStoreError("count unread notifications", err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, receiverID uint) error {
	if err := s.repo.MarkAllRead(ctx, receiverID); err != nil {
		return models.MapStoreError("mark notifications read", err)
	}
	return nil
}

// MarkRead flags one notification. Notifications of other receivers look
// absent.
func (s *NotificationService) MarkRead(ctx context.Context, source string, id, receiverID uint) error {
	if err := checkSource(source); err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, source, id, receiverID)
	if err != nil {
		return models.MapStoreError("mark notification read", err)
	}
	if !ok {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, source string, id, receiverID uint) error {
	if err := checkSource(source); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, source, id, receiverID)
	if err != nil {
		return models.MapStoreError("delete notification", err)
	}
	if !ok {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

func checkSource(source string) error {
	switch source {
	case models.SourceContent, models.SourceOpinion:
		return nil
	default:
		return models.NewValidationError("source should be content or opinion")
	}
}
