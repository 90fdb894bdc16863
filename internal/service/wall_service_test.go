package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wallNow is a Wednesday; its week runs from 2026-01-05 to 2026-01-12.
var wallNow = time.Date(2026, 1, 7, 15, 0, 0, 0, time.UTC)

func newWallService(e *env, now time.Time) *WallService {
	svc := NewWallService(e.walls)
	svc.now = func() time.Time { return now }
	return svc
}

func TestWallService_CurrentWeekRotates(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	week, err := newWallService(e, wallNow).CurrentWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), week.WeekStart.UTC())
	assert.Equal(t, models.WallWeekActive, week.Status)

	again, err := newWallService(e, wallNow.Add(time.Hour)).CurrentWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, week.ID, again.ID)

	next, err := newWallService(e, wallNow.AddDate(0, 0, 7)).CurrentWeek(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, week.ID, next.ID)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), next.WeekStart.UTC())
}

func TestWallService_Items(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	svc := newWallService(e, wallNow)

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	week, err := svc.CurrentWeek(ctx)
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, CreateWallItemInput{UserID: ana.ID, WeekID: week.ID, ItemType: "graffiti", Payload: validation.Payload{}})
	assertValidationError(t, err)
	_, err = svc.CreateItem(ctx, CreateWallItemInput{UserID: ana.ID, WeekID: week.ID, ItemType: "note", Payload: validation.Payload{"text": " "}})
	assertValidationError(t, err)
	_, err = svc.CreateItem(ctx, CreateWallItemInput{UserID: ana.ID, WeekID: 0, ItemType: "note"})
	assertValidationError(t, err)

	note, err := svc.CreateItem(ctx, CreateWallItemInput{
		UserID:   ana.ID,
		WeekID:   week.ID,
		ItemType: "note",
		Payload:  validation.Payload{"text": "hello wall", "x": 2, "fontFamily": "Comic Sans"},
		ZIndex:   5,
	})
	require.NoError(t, err)
	var stored validation.NotePayload
	require.NoError(t, json.Unmarshal(note.Payload, &stored))
	assert.Equal(t, "hello wall", stored.Text)
	assert.Equal(t, float64(1), stored.X)
	assert.Equal(t, "Arial", stored.FontFamily)

	_, err = svc.CreateItem(ctx, CreateWallItemInput{
		UserID: ben.ID, WeekID: week.ID, ItemType: "stamp", Payload: validation.Payload{"stamp": "star"},
	})
	require.NoError(t, err)

	page, err := svc.ListItems(ctx, ListWallItemsInput{WeekID: week.ID, Limit: 200})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	page, err = svc.ListItems(ctx, ListWallItemsInput{WeekID: week.ID, Limit: 200, Types: "note,unknown"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, note.ID, page.Data[0].ID)
	_, err = svc.ListItems(ctx, ListWallItemsInput{WeekID: week.ID, Limit: 401})
	assertValidationError(t, err)
}

func TestWallService_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	svc := newWallService(e, wallNow)

	ana := e.fx.User("ana")
	ben := e.fx.User("ben")
	week, err := svc.CurrentWeek(ctx)
	require.NoError(t, err)
	note, err := svc.CreateItem(ctx, CreateWallItemInput{
		UserID: ana.ID, WeekID: week.ID, ItemType: "note",
		Payload: validation.Payload{"text": "draft", "fontStyle": "bold"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, UpdateWallItemInput{UserID: ana.ID, ItemID: note.ID})
	assertValidationError(t, err)
	_, err = svc.UpdateItem(ctx, UpdateWallItemInput{UserID: ben.ID, ItemID: note.ID, Payload: validation.Payload{"text": "mine"}})
	assertForbiddenError(t, err)

	z := 500000
	updated, err := svc.UpdateItem(ctx, UpdateWallItemInput{
		UserID: ana.ID, ItemID: note.ID, Payload: validation.Payload{"text": "final"}, ZIndex: &z,
	})
	require.NoError(t, err)
	assert.Equal(t, 100000, updated.ZIndex)
	var stored validation.NotePayload
	require.NoError(t, json.Unmarshal(updated.Payload, &stored))
	assert.Equal(t, "final", stored.Text)
	assert.Equal(t, "bold", stored.FontStyle)

	reloaded, err := e.walls.GetItem(ctx, note.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(updated.Payload), string(reloaded.Payload))

	assertForbiddenError(t, svc.DeleteItem(ctx, note.ID, ben.ID))

	later := newWallService(e, wallNow.AddDate(0, 0, 7))
	assertValidationError(t, later.DeleteItem(ctx, note.ID, ana.ID))
	_, err = later.CreateItem(ctx, CreateWallItemInput{
		UserID: ana.ID, WeekID: week.ID, ItemType: "stamp", Payload: validation.Payload{"stamp": "star"},
	})
	assertValidationError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, note.ID, ana.ID))
	assertNotFoundError(t, svc.DeleteItem(ctx, note.ID, ana.ID))
}
