package service

import (
	"context"
	"testing"

	"iskrib/internal/models"
	"iskrib/internal/personalize"
	"iskrib/internal/repository"
	"iskrib/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// embedFunc adapts a function to embedding.Provider.
type embedFunc func(ctx context.Context, title, body string) ([]float32, error)

func (f embedFunc) Embed(ctx context.Context, title, body string) ([]float32, error) {
	return f(ctx, title, body)
}

// env bundles the repositories of one in-memory database.
type env struct {
	db            *gorm.DB
	fx            *testutil.Fixtures
	journals      repository.JournalRepository
	interactions  repository.InteractionRepository
	notifications repository.NotificationRepository
	comments      repository.CommentRepository
	opinions      repository.OpinionRepository
	canvas        repository.CanvasRepository
	walls         repository.WallRepository
	users         repository.UserRepository
	overlay       *personalize.Overlay
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	interactions := repository.NewInteractionRepository(db)
	return &env{
		db:            db,
		fx:            testutil.NewFixtures(t, db),
		journals:      repository.NewJournalRepository(db),
		interactions:  interactions,
		notifications: repository.NewNotificationRepository(db),
		comments:      repository.NewCommentRepository(db),
		opinions:      repository.NewOpinionRepository(db),
		canvas:        repository.NewCanvasRepository(db),
		walls:         repository.NewWallRepository(db),
		users:         repository.NewUserRepository(db),
		overlay:       personalize.NewOverlay(interactions),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeNotFound)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeForbidden)
}
