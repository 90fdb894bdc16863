package service

import (
	"context"

	"iskrib/internal/cache"
	"iskrib/internal/models"
	"iskrib/internal/personalize"
	"iskrib/internal/repository"
	"iskrib/internal/visibility"
)

type InteractionService struct {
	journals      repository.JournalRepository
	interactions  repository.InteractionRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
}

// ToggleResult reports the state of an edge after a toggle.
type ToggleResult struct {
	Active bool   `json:"active"`
	Action string `json:"message"`
}

func NewInteractionService(
	journals repository.JournalRepository,
	interactions repository.InteractionRepository,
	notifications repository.NotificationRepository,
	users repository.UserRepository,
) *InteractionService {
	return &InteractionService{
		journals:      journals,
		interactions:  interactions,
		notifications: notifications,
		users:         users,
	}
}

// visibleJournal loads a journal the user may interact with.
func (s *InteractionService) visibleJournal(ctx context.Context, journalID, userID uint) (*models.Journal, error) {
	journal, err := s.journals.GetByID(ctx, journalID)
	if err != nil {
		return nil, notFoundOr(err, "Journal", journalID, "get journal")
	}
	if err := visibility.Check("Journal", journalID, journal.Privacy, journal.UserID, userID); err != nil {
		return nil, err
	}
	return journal, nil
}

// ToggleLike likes or unlikes a journal. Only the call that actually creates
// or removes the edge writes or removes the like notification; liking your own
// journal notifies nobody.
func (s *InteractionService) ToggleLike(ctx context.Context, userID, journalID uint) (*ToggleResult, error) {
	journal, err := s.visibleJournal(ctx, journalID, userID)
	if err != nil {
		return nil, err
	}
	liked, err := s.interactions.Exists(ctx, personalize.Like, userID, journalID)
	if err != nil {
		return nil, models.MapStoreError("check like", err)
	}
	notify := journal.UserID != userID

	if liked {
		removed, err := s.interactions.Remove(ctx, personalize.Like, userID, journalID)
		if err != nil {
			return nil, models.MapStoreError("remove like", err)
		}
		if removed && notify {
			if err := s.notifications.DeleteLike(ctx, userID, journalID); err != nil {
				return nil, models.MapStoreError("remove like notification", err)
			}
		}
		cache.InvalidateJournal(ctx, journalID)
		return &ToggleResult{Active: false, Action: "unliked"}, nil
	}

	created, err := s.interactions.Add(ctx, personalize.Like, userID, journalID)
	if err != nil {
		return nil, models.MapStoreError("add like", err)
	}
	if created && notify {
		err := s.notifications.Create(ctx, &models.Notification{
			ReceiverID: journal.UserID,
			SenderID:   userID,
			JournalID:  journalID,
			Type:       models.NotificationLike,
		})
		if err != nil {
			return nil, models.MapStoreError("notify like", err)
		}
	}
	cache.InvalidateJournal(ctx, journalID)
	return &ToggleResult{Active: true, Action: "liked"}, nil
}

// ToggleBookmark bookmarks or removes the bookmark of a journal.
func (s *InteractionService) ToggleBookmark(ctx context.Context, userID, journalID uint) (*ToggleResult, error) {
	if _, err := s.visibleJournal(ctx, journalID, userID); err != nil {
		return nil, err
	}
	bookmarked, err := s.interactions.Exists(ctx, personalize.Bookmark, userID, journalID)
	if err != nil {
		return nil, models.MapStoreError("check bookmark", err)
	}
	if bookmarked {
		if _, err := s.interactions.Remove(ctx, personalize.Bookmark, userID, journalID); err != nil {
			return nil, models.MapStoreError("remove bookmark", err)
		}
	} else {
		if _, err := s.interactions.Add(ctx, personalize.Bookmark, userID, journalID); err != nil {
			return nil, models.MapStoreError("add bookmark", err)
		}
	}
	cache.InvalidateJournal(ctx, journalID)

	if bookmarked {
		return &ToggleResult{Active: false, Action: "deleted"}, nil
	}
	return &ToggleResult{Active: true, Action: "success"}, nil
}

// ToggleFollow follows or unfollows another user.
func (s *InteractionService) ToggleFollow(ctx context.Context, followerID, followingID uint) (*ToggleResult, error) {
	if followerID == followingID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, followingID); err != nil {
		return nil, notFoundOr(err, "User", followingID, "get user")
	}
	following, err := s.interactions.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return nil, models.MapStoreError("check follow", err)
	}
	if following {
		if _, err := s.interactions.Unfollow(ctx, followerID, followingID); err != nil {
			return nil, models.MapStoreError("unfollow", err)
		}
		return &ToggleResult{Active: false, Action: "unfollowed"}, nil
	}
	if _, err := s.interactions.Follow(ctx, followerID, followingID); err != nil {
		return nil, models.MapStoreError("follow", err)
	}
	return &ToggleResult{Active: true, Action: "followed"}, nil
}
