package repository

import (
	"context"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/pagination"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListTopLevel(ctx context.Context, postID uint, before *time.Time, limit int) ([]*models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListTopLevel pages the comments of a journal that are not replies.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, before *time.Time, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("comments.post_id = ? AND comments.parent_id IS NULL", postID).
		Scopes(pagination.Before("comments", before, limit)).
		Find(&comments).Error
	return comments, err
}
