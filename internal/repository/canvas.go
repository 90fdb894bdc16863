package repository

import (
	"context"

	"iskrib/internal/models"

	"gorm.io/gorm"
)

// CanvasRepository stores margin items and stamps of canvas journals.
type CanvasRepository interface {
	CreateMargin(ctx context.Context, item *models.CanvasMarginItem) error
	ListMargins(ctx context.Context, journalID uint) ([]*models.CanvasMarginItem, error)
	GetMargin(ctx context.Context, id uint) (*models.CanvasMarginItem, error)
	DeleteMargin(ctx context.Context, id uint) error
	CreateStamp(ctx context.Context, stamp *models.CanvasStamp) error
	ListStamps(ctx context.Context, journalID uint) ([]*models.CanvasStamp, error)
	GetStamp(ctx context.Context, id uint) (*models.CanvasStamp, error)
	DeleteStamp(ctx context.Context, id uint) error
}

type canvasRepository struct {
	db *gorm.DB
}

// NewCanvasRepository creates a new CanvasRepository
func NewCanvasRepository(db *gorm.DB) CanvasRepository {
	return &canvasRepository{db: db}
}

func (r *canvasRepository) CreateMargin(ctx context.Context, item *models.CanvasMarginItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("User").First(item, item.ID).Error
}

func (r *canvasRepository) ListMargins(ctx context.Context, journalID uint) ([]*models.CanvasMarginItem, error) {
	var items []*models.CanvasMarginItem
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("journal_id = ?", journalID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *canvasRepository) GetMargin(ctx context.Context, id uint) (*models.CanvasMarginItem, error) {
	var item models.CanvasMarginItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *canvasRepository) DeleteMargin(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.CanvasMarginItem{}, id).Error
}

func (r *canvasRepository) CreateStamp(ctx context.Context, stamp *models.CanvasStamp) error {
	if err := r.db.WithContext(ctx).Create(stamp).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("User").First(stamp, stamp.ID).Error
}

func (r *canvasRepository) ListStamps(ctx context.Context, journalID uint) ([]*models.CanvasStamp, error) {
	var stamps []*models.CanvasStamp
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("journal_id = ?", journalID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&stamps).Error
	return stamps, err
}

func (r *canvasRepository) GetStamp(ctx context.Context, id uint) (*models.CanvasStamp, error) {
	var stamp models.CanvasStamp
	if err := r.db.WithContext(ctx).First(&stamp, id).Error; err != nil {
		return nil, err
	}
	return &stamp, nil
}

func (r *canvasRepository) DeleteStamp(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.CanvasStamp{}, id).Error
}
