package repository

import (
	"context"
	"errors"
	"time"

	"iskrib/internal/models"

	"gorm.io/gorm"
)

// WallItemFilter selects one page of a week's wall.
type WallItemFilter struct {
	WeekID uint
	After  *time.Time
	Types  []string
	Limit  int
}

// WallRepository stores freedom wall weeks and their items.
type WallRepository interface {
	CurrentWeek(ctx context.Context) (*models.FreedomWallWeek, error)
	GetWeek(ctx context.Context, id uint) (*models.FreedomWallWeek, error)
	Rotate(ctx context.Context, now time.Time) (*models.FreedomWallWeek, error)
	CreateItem(ctx context.Context, item *models.FreedomWallItem) error
	UpdateItem(ctx context.Context, item *models.FreedomWallItem) error
	ListItems(ctx context.Context, f WallItemFilter) ([]*models.FreedomWallItem, error)
	GetItem(ctx context.Context, id uint) (*models.FreedomWallItem, error)
	DeleteItem(ctx context.Context, id uint) error
}

type wallRepository struct {
	db *gorm.DB
}

// NewWallRepository creates a new WallRepository
func NewWallRepository(db *gorm.DB) WallRepository {
	return &wallRepository{db: db}
}

// CurrentWeek returns the most recent active week.
func (r *wallRepository) CurrentWeek(ctx context.Context) (*models.FreedomWallWeek, error) {
	var week models.FreedomWallWeek
	err := r.db.WithContext(ctx).
		Where("status = ?", models.WallWeekActive).
		Order("week_start DESC").
		First(&week).Error
	if err != nil {
		return nil, err
	}
	return &week, nil
}

func (r *wallRepository) GetWeek(ctx context.Context, id uint) (*models.FreedomWallWeek, error) {
	var week models.FreedomWallWeek
	if err := r.db.WithContext(ctx).First(&week, id).Error; err != nil {
		return nil, err
	}
	return &week, nil
}

// WeekBounds returns the Monday 00:00 UTC that starts the week containing t
// and the Monday after it.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

// Rotate archives active weeks that have ended and opens the week containing
// now when no active week remains.
func (r *wallRepository) Rotate(ctx context.Context, now time.Time) (*models.FreedomWallWeek, error) {
	var current models.FreedomWallWeek
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FreedomWallWeek{}).
			Where("status = ? AND week_end <= ?", models.WallWeekActive, now.UTC()).
			Update("status", models.WallWeekArchived).Error; err != nil {
			return err
		}

		err := tx.Where("status = ?", models.WallWeekActive).Order("week_start DESC").First(&current).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		start, end := WeekBounds(now)
		current = models.FreedomWallWeek{WeekStart: start, WeekEnd: end, Status: models.WallWeekActive}
		return tx.Create(&current).Error
	})
	if err != nil {
		return nil, err
	}
	return &current, nil
}

func (r *wallRepository) CreateItem(ctx context.Context, item *models.FreedomWallItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("User").First(item, item.ID).Error
}

// UpdateItem saves the payload and stacking order of a live item.
func (r *wallRepository) UpdateItem(ctx context.Context, item *models.FreedomWallItem) error {
	return r.db.WithContext(ctx).
		Model(item).
		Select("payload", "z_index", "updated_at").
		Updates(item).Error
}

// ListItems returns live items in stacking order.
func (r *wallRepository) ListItems(ctx context.Context, f WallItemFilter) ([]*models.FreedomWallItem, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("week_id = ?", f.WeekID)
	if f.After != nil {
		q = q.Where("created_at > ?", *f.After)
	}
	if len(f.Types) > 0 {
		q = q.Where("item_type IN ?", f.Types)
	}

	var items []*models.FreedomWallItem
	err := q.Order("z_index ASC").
		Order("created_at ASC").
		Order("id ASC").
		Limit(f.Limit).
		Find(&items).Error
	return items, err
}

func (r *wallRepository) GetItem(ctx context.Context, id uint) (*models.FreedomWallItem, error) {
	var item models.FreedomWallItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem soft deletes an item.
func (r *wallRepository) DeleteItem(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.FreedomWallItem{}, id).Error
}
