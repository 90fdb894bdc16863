package repository

import (
	"context"

	"iskrib/internal/models"
	"iskrib/internal/pagination"

	"gorm.io/gorm"
)

// OpinionRepository reads opinions and their replies.
type OpinionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Opinion, error)
	Create(ctx context.Context, opinion *models.Opinion) error
	ListReplies(ctx context.Context, parentID uint, beforeID *uint, limit int) ([]*models.Opinion, error)
}

type opinionRepository struct {
	db *gorm.DB
}

// NewOpinionRepository creates a new OpinionRepository
func NewOpinionRepository(db *gorm.DB) OpinionRepository {
	return &opinionRepository{db: db}
}

func (r *opinionRepository) GetByID(ctx context.Context, id uint) (*models.Opinion, error) {
	var opinion models.Opinion
	if err := r.db.WithContext(ctx).Preload("User").First(&opinion, id).Error; err != nil {
		return nil, err
	}
	return &opinion, nil
}

func (r *opinionRepository) Create(ctx context.Context, opinion *models.Opinion) error {
	return r.db.WithContext(ctx).Create(opinion).Error
}

// ListReplies pages replies newest first, keyed on id.
func (r *opinionRepository) ListReplies(ctx context.Context, parentID uint, beforeID *uint, limit int) ([]*models.Opinion, error) {
	var replies []*models.Opinion
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("opinions.parent_id = ?", parentID).
		Scopes(pagination.BeforeID("opinions", beforeID, limit)).
		Find(&replies).Error
	return replies, err
}
