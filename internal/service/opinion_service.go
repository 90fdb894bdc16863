package service

import (
	"context"
	"strconv"

	"iskrib/internal/models"
	"iskrib/internal/pagination"
	"iskrib/internal/repository"
	"iskrib/internal/validation"

	"golang.org/x/sync/errgroup"
)

const maxReplyLen = 2000

type OpinionService struct {
	opinions      repository.OpinionRepository
	notifications repository.NotificationRepository
}

type ReplyInput struct {
	UserID   uint
	ParentID uint
	Content  string
}

func NewOpinionService(opinions repository.OpinionRepository, notifications repository.NotificationRepository) *OpinionService {
	return &OpinionService{opinions: opinions, notifications: notifications}
}

// Reply answers an opinion. The parent's author gets a reply notification
// unless they reply to themselves.
func (s *OpinionService) Reply(ctx context.Context, in ReplyInput) (*models.Opinion, error) {
	text, err := validation.Text("reply", in.Content, 1, maxReplyLen)
	if err != nil {
		return nil, err
	}
	parent, err := s.opinions.GetByID(ctx, in.ParentID)
	if err != nil {
		return nil, notFoundOr(err, "Opinion", in.ParentID, "get opinion")
	}

	reply := &models.Opinion{
		UserID:   in.UserID,
		ParentID: &parent.ID,
		Opinion:  text,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.opinions.Create(gctx, reply)
	})
	if parent.UserID != in.UserID {
		g.Go(func() error {
			return s.notifications.CreateOpinion(gctx, &models.OpinionNotification{
				ReceiverID: parent.UserID,
				SenderID:   in.UserID,
				OpinionID:  parent.ID,
				Type:       models.NotificationReply,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, models.MapStoreError("create reply", err)
	}
	return reply, nil
}

// ListReplies pages replies to an opinion, newest first, keyed on id.
func (s *OpinionService) ListReplies(ctx context.Context, parentID uint, limit int, beforeID *uint) (pagination.Page[*models.Opinion], error) {
	if err := pagination.ListRange.Validate(limit); err != nil {
		return pagination.Page[*models.Opinion]{}, err
	}
	if _, err := s.opinions.GetByID(ctx, parentID); err != nil {
		return pagination.Page[*models.Opinion]{}, notFoundOr(err, "Opinion", parentID, "get opinion")
	}
	return pagination.Fetch(ctx, pagination.ListRange, limit,
		func(ctx context.Context, limit int) ([]*models.Opinion, error) {
			return s.opinions.ListReplies(ctx, parentID, beforeID, limit)
		}, func(o *models.Opinion) string { return strconv.FormatUint(uint64(o.ID), 10) })
}
