package repository

import (
	"context"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/pagination"

	"gorm.io/gorm"
)

// NotificationRepository manages both notification tables.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateOpinion(ctx context.Context, n *models.OpinionNotification) error
	DeleteLike(ctx context.Context, senderID, journalID uint) error
	UnreadCount(ctx context.Context, receiverID uint) (int64, error)
	MarkRead(ctx context.Context, source string, id, receiverID uint) (bool, error)
	MarkAllRead(ctx context.Context, receiverID uint) error
	Delete(ctx context.Context, source string, id, receiverID uint) (bool, error)
	Sources() []pagination.Source
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) CreateOpinion(ctx context.Context, n *models.OpinionNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// DeleteLike removes the like notification a sender produced on a journal.
func (r *notificationRepository) DeleteLike(ctx context.Context, senderID, journalID uint) error {
	return r.db.WithContext(ctx).
		Where("sender_id = ? AND journal_id = ? AND type = ?", senderID, journalID, models.NotificationLike).
		Delete(&models.Notification{}).Error
}

func (r *notificationRepository) UnreadCount(ctx context.Context, receiverID uint) (int64, error) {
	var content, opinion int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Count(&content).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OpinionNotification{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Count(&opinion).Error; err != nil {
		return 0, err
	}
	return content + opinion, nil
}

func sourceModel(source string) (any, bool) {
	switch source {
	case models.SourceContent:
		return &models.Notification{}, true
	case models.SourceOpinion:
		return &models.OpinionNotification{}, true
	default:
		return nil, false
	}
}

// MarkRead flags one notification owned by receiverID. It reports false when
// no such notification exists for that receiver.
func (r *notificationRepository) MarkRead(ctx context.Context, source string, id, receiverID uint) (bool, error) {
	model, ok := sourceModel(source)
	if !ok {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND receiver_id = ?", id, receiverID).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, receiverID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Notification{}, &models.OpinionNotification{}} {
			if err := tx.Model(model).
				Where("receiver_id = ? AND read = ?", receiverID, false).
				Update("read", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *notificationRepository) Delete(ctx context.Context, source string, id, receiverID uint) (bool, error) {
	model, ok := sourceModel(source)
	if !ok {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND receiver_id = ?", id, receiverID).
		Delete(model)
	return res.RowsAffected > 0, res.Error
}

// Sources returns the two notification tables as merger sources.
func (r *notificationRepository) Sources() []pagination.Source {
	return []pagination.Source{
		&contentNotifications{db: r.db},
		&opinionNotifications{db: r.db},
	}
}

type contentNotifications struct {
	db *gorm.DB
}

func (s *contentNotifications) Name() string { return models.SourceContent }

func (s *contentNotifications) List(ctx context.Context, receiverID uint, before *time.Time, limit int) ([]pagination.Entry, error) {
	var rows []*models.Notification
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("notifications.receiver_id = ?", receiverID).
		Scopes(pagination.Before("notifications", before, limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]pagination.Entry, len(rows))
	for i, n := range rows {
		entries[i] = pagination.Entry{ID: n.ID, CreatedAt: n.CreatedAt, Payload: n}
	}
	return entries, nil
}

type opinionNotifications struct {
	db *gorm.DB
}

func (s *opinionNotifications) Name() string { return models.SourceOpinion }

func (s *opinionNotifications) List(ctx context.Context, receiverID uint, before *time.Time, limit int) ([]pagination.Entry, error) {
	var rows []*models.OpinionNotification
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("notification_opinions.receiver_id = ?", receiverID).
		Scopes(pagination.Before("notification_opinions", before, limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]pagination.Entry, len(rows))
	for i, n := range rows {
		entries[i] = pagination.Entry{ID: n.ID, CreatedAt: n.CreatedAt, Payload: n}
	}
	return entries, nil
}
