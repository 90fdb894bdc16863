package service

import (
	"context"
	"log/slog"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/pagination"
	"iskrib/internal/repository"
	"iskrib/internal/validation"
)

type WallService struct {
	walls repository.WallRepository
	now   func() time.Time
}

type CreateWallItemInput struct {
	UserID   uint
	WeekID   uint
	ItemType string
	Payload  validation.Payload
	ZIndex   int
}

// UpdateWallItemInput merges Payload into the stored payload. Nil fields are
// left alone.
type UpdateWallItemInput struct {
	UserID  uint
	ItemID  uint
	Payload validation.Payload
	ZIndex  *int
}

type ListWallItemsInput struct {
	WeekID uint
	Limit  int
	After  *time.Time
	Types  string
}

func NewWallService(walls repository.WallRepository) *WallService {
	return &WallService{walls: walls, now: time.Now}
}

// CurrentWeek returns the active week, rotating the wall first so a new week
// opens on Monday without a scheduler.
func (s *WallService) CurrentWeek(ctx context.Context) (*models.FreedomWallWeek, error) {
	week, err := s.walls.Rotate(ctx, s.now())
	if err == nil {
		return week, nil
	}
	slog.WarnContext(ctx, "freedom wall rotation failed", "error", err.Error())
	week, err = s.walls.CurrentWeek(ctx)
	if err != nil {
		return nil, notFoundOr(err, "Freedom wall week", "current", "current wall week")
	}
	return week, nil
}

// activeWeek loads a week that accepts writes right now.
func (s *WallService) activeWeek(ctx context.Context, weekID uint) (*models.FreedomWallWeek, error) {
	week, err := s.walls.GetWeek(ctx, weekID)
	if err != nil {
		return nil, notFoundOr(err, "Freedom wall week", weekID, "get wall week")
	}
	now := s.now().UTC()
	if week.Status != models.WallWeekActive || now.Before(week.WeekStart) || !now.Before(week.WeekEnd) {
		return nil, models.NewValidationError("freedom wall week is not active")
	}
	return week, nil
}

func (s *WallService) ListItems(ctx context.Context, in ListWallItemsInput) (pagination.Page[*models.FreedomWallItem], error) {
	if in.WeekID == 0 {
		return pagination.Page[*models.FreedomWallItem]{}, models.NewValidationError("weekId is required")
	}
	types := validation.WallTypes(in.Types)
	return pagination.Fetch(ctx, pagination.WallRange, in.Limit,
		func(ctx context.Context, limit int) ([]*models.FreedomWallItem, error) {
			return s.walls.ListItems(ctx, repository.WallItemFilter{
				WeekID: in.WeekID,
				After:  in.After,
				Types:  types,
				Limit:  limit,
			})
		}, func(it *models.FreedomWallItem) string { return pagination.FormatTime(it.CreatedAt) })
}

func (s *WallService) CreateItem(ctx context.Context, in CreateWallItemInput) (*models.FreedomWallItem, error) {
	if in.WeekID == 0 {
		return nil, models.NewValidationError("weekId is required")
	}
	kind := normalizeKind(in.ItemType)
	if !validation.IsWallType(kind) {
		return nil, models.NewValidationError("invalid freedom wall item type")
	}
	if _, err := s.activeWeek(ctx, in.WeekID); err != nil {
		return nil, err
	}
	payload, err := validation.WallItem(kind, in.Payload)
	if err != nil {
		return nil, err
	}

	item := &models.FreedomWallItem{
		WeekID:   in.WeekID,
		UserID:   in.UserID,
		ItemType: kind,
		Payload:  models.JSON(payload),
		ZIndex:   validation.ZIndex(in.ZIndex),
	}
	if err := s.walls.CreateItem(ctx, item); err != nil {
		return nil, models.MapStoreError("create wall item", err)
	}
	return item, nil
}

// ownItem loads a live item of the user on an active week.
func (s *WallService) ownItem(ctx context.Context, itemID, userID uint) (*models.FreedomWallItem, error) {
	item, err := s.walls.GetItem(ctx, itemID)
	if err != nil {
		return nil, notFoundOr(err, "Freedom wall item", itemID, "get wall item")
	}
	if item.UserID != userID {
		return nil, models.NewForbiddenError("not allowed to change this freedom wall item")
	}
	if _, err := s.activeWeek(ctx, item.WeekID); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *WallService) UpdateItem(ctx context.Context, in UpdateWallItemInput) (*models.FreedomWallItem, error) {
	if in.Payload == nil && in.ZIndex == nil {
		return nil, models.NewValidationError("payload or zIndex is required")
	}
	item, err := s.ownItem(ctx, in.ItemID, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Payload != nil {
		merged := validation.Payload{}
		if err := item.Payload.Decode(&merged); err != nil {
			return nil, models.NewInternalError(err)
		}
		for k, v := range in.Payload {
			merged[k] = v
		}
		payload, err := validation.WallItem(item.ItemType, merged)
		if err != nil {
			return nil, err
		}
		item.Payload = models.JSON(payload)
	}
	if in.ZIndex != nil {
		item.ZIndex = validation.ZIndex(*in.ZIndex)
	}
	if err := s.walls.UpdateItem(ctx, item); err != nil {
		return nil, models.MapStoreError("update wall item", err)
	}
	return item, nil
}

func (s *WallService) DeleteItem(ctx context.Context, itemID, userID uint) error {
	if _, err := s.ownItem(ctx, itemID, userID); err != nil {
		return err
	}
	if err := s.walls.DeleteItem(ctx, itemID); err != nil {
		return models.MapStoreError("delete wall item", err)
	}
	return nil
}
