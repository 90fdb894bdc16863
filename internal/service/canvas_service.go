package service

import (
	"context"
	"strings"

	"iskrib/internal/models"
	"iskrib/internal/repository"
	"iskrib/internal/validation"
	"iskrib/internal/visibility"
)

type CanvasService struct {
	journals repository.JournalRepository
	canvas   repository.CanvasRepository
}

type AddMarginInput struct {
	UserID    uint
	JournalID uint
	ItemType  string
	Payload   validation.Payload
}

type AddStampInput struct {
	UserID    uint
	JournalID uint
	Stamp     validation.StampInput
}

func NewCanvasService(journals repository.JournalRepository, canvas repository.CanvasRepository) *CanvasService {
	return &CanvasService{journals: journals, canvas: canvas}
}

// canvasJournal loads a canvas journal the viewer can see. Hidden journals
// are not found; text journals carry no annotations.
func (s *CanvasService) canvasJournal(ctx context.Context, journalID, viewerID uint) (*models.Journal, error) {
	journal, err := s.journals.GetByID(ctx, journalID)
	if err != nil {
		return nil, notFoundOr(err, "Journal", journalID, "get journal")
	}
	if err := visibility.Check("Journal", journalID, journal.Privacy, journal.UserID, viewerID); err != nil {
		return nil, err
	}
	if journal.PostType != models.PostTypeCanvas {
		return nil, models.NewValidationError("journal is not a canvas post")
	}
	return journal, nil
}

func (s *CanvasService) ListMargins(ctx context.Context, journalID, viewerID uint) ([]*models.CanvasMarginItem, error) {
	if _, err := s.canvasJournal(ctx, journalID, viewerID); err != nil {
		return nil, err
	}
	items, err := s.canvas.ListMargins(ctx, journalID)
	if err != nil {
		return nil, models.MapStoreError("list margins", err)
	}
	return items, nil
}

func (s *CanvasService) AddMargin(ctx context.Context, in AddMarginInput) (*models.CanvasMarginItem, error) {
	if _, err := s.canvasJournal(ctx, in.JournalID, in.UserID); err != nil {
		return nil, err
	}
	payload, err := validation.MarginItem(in.ItemType, in.Payload)
	if err != nil {
		return nil, err
	}
	item := &models.CanvasMarginItem{
		JournalID: in.JournalID,
		UserID:    in.UserID,
		ItemType:  normalizeKind(in.ItemType),
		Payload:   models.JSON(payload),
	}
	if err := s.canvas.CreateMargin(ctx, item); err != nil {
		return nil, models.MapStoreError("create margin", err)
	}
	return item, nil
}

// DeleteMargin removes a margin item. Its author and the canvas author may
// delete it.
func (s *CanvasService) DeleteMargin(ctx context.Context, id, userID uint) error {
	item, err := s.canvas.GetMargin(ctx, id)
	if err != nil {
		return notFoundOr(err, "Margin item", id, "get margin")
	}
	journal, err := s.canvasJournal(ctx, item.JournalID, userID)
	if err != nil {
		return err
	}
	if item.UserID != userID && journal.UserID != userID {
		return models.NewForbiddenError("not authorized to delete this margin item")
	}
	if err := s.canvas.DeleteMargin(ctx, id); err != nil {
		return models.MapStoreError("delete margin", err)
	}
	return nil
}

func (s *CanvasService) ListStamps(ctx context.Context, journalID, viewerID uint) ([]*models.CanvasStamp, error) {
	if _, err := s.canvasJournal(ctx, journalID, viewerID); err != nil {
		return nil, err
	}
	stamps, err := s.canvas.ListStamps(ctx, journalID)
	if err != nil {
		return nil, models.MapStoreError("list stamps", err)
	}
	return stamps, nil
}

func (s *CanvasService) AddStamp(ctx context.Context, in AddStampInput) (*models.CanvasStamp, error) {
	if _, err := s.canvasJournal(ctx, in.JournalID, in.UserID); err != nil {
		return nil, err
	}
	norm, err := validation.Stamp(in.Stamp)
	if err != nil {
		return nil, err
	}
	stamp := &models.CanvasStamp{
		JournalID: in.JournalID,
		UserID:    in.UserID,
		SnippetID: norm.SnippetID,
		WordKey:   norm.WordKey,
		StampType: norm.StampType,
		X:         norm.X,
		Y:         norm.Y,
	}
	if err := s.canvas.CreateStamp(ctx, stamp); err != nil {
		return nil, models.MapStoreError("create stamp", err)
	}
	return stamp, nil
}

func (s *CanvasService) DeleteStamp(ctx context.Context, id, userID uint) error {
	stamp, err := s.canvas.GetStamp(ctx, id)
	if err != nil {
		return notFoundOr(err, "Stamp", id, "get stamp")
	}
	journal, err := s.canvasJournal(ctx, stamp.JournalID, userID)
	if err != nil {
		return err
	}
	if stamp.UserID != userID && journal.UserID != userID {
		return models.NewForbiddenError("not authorized to delete this stamp")
	}
	if err := s.canvas.DeleteStamp(ctx, id); err != nil {
		return models.MapStoreError("delete stamp", err)
	}
	return nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
