package repository

import (
	"context"
	"fmt"
	"time"

	"iskrib/internal/cache"
	"iskrib/internal/models"
	"iskrib/internal/personalize"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository stores like, bookmark and follow edges. It is also the
// lookup behind the personalization overlay.
type InteractionRepository interface {
	MatchingIDs(ctx context.Context, kind personalize.Kind, viewerID uint, ids []uint) ([]uint, error)
	Exists(ctx context.Context, kind personalize.Kind, userID, journalID uint) (bool, error)
	Add(ctx context.Context, kind personalize.Kind, userID, journalID uint) (bool, error)
	Remove(ctx context.Context, kind personalize.Kind, userID, journalID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	Follow(ctx context.Context, followerID, followingID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID uint) (bool, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new InteractionRepository
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func edgeModel(kind personalize.Kind, userID, journalID uint) (any, error) {
	now := time.Now().UTC()
	switch kind {
	case personalize.Like:
		return &models.Like{UserID: userID, JournalID: journalID, CreatedAt: now}, nil
	case personalize.Bookmark:
		return &models.Bookmark{UserID: userID, JournalID: journalID, CreatedAt: now}, nil
	default:
		return nil, fmt.Errorf("unknown interaction kind %q", kind)
	}
}

// MatchingIDs returns the subset of ids the viewer has an edge of kind to, in
// a single query.
func (r *interactionRepository) MatchingIDs(ctx context.Context, kind personalize.Kind, viewerID uint, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	model, err := edgeModel(kind, 0, 0)
	if err != nil {
		return nil, err
	}
	var matched []uint
	err = r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND journal_id IN ?", viewerID, ids).
		Pluck("journal_id", &matched).Error
	return matched, err
}

func (r *interactionRepository) Exists(ctx context.Context, kind personalize.Kind, userID, journalID uint) (bool, error) {
	model, err := edgeModel(kind, 0, 0)
	if err != nil {
		return false, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND journal_id = ?", userID, journalID).
		Count(&count).Error
	return count > 0, err
}

// Add inserts the edge. Racing inserts collapse into one row; the result
// reports whether this call created it.
func (r *interactionRepository) Add(ctx context.Context, kind personalize.Kind, userID, journalID uint) (bool, error) {
	model, err := edgeModel(kind, userID, journalID)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "journal_id"}},
			DoNothing: true,
		}).
		Create(model)
	if res.Error != nil {
		return false, res.Error
	}
	cache.InvalidateJournal(ctx, journalID)
	return res.RowsAffected > 0, nil
}

func (r *interactionRepository) Remove(ctx context.Context, kind personalize.Kind, userID, journalID uint) (bool, error) {
	model, err := edgeModel(kind, 0, 0)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND journal_id = ?", userID, journalID).
		Delete(model)
	if res.Error != nil {
		return false, res.Error
	}
	cache.InvalidateJournal(ctx, journalID)
	return res.RowsAffected > 0, nil
}

func (r *interactionRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *interactionRepository) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	return res.RowsAffected > 0, res.Error
}

func (r *interactionRepository) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}
