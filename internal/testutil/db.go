// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"testing"
	"time"

	"iskrib/internal/database"
	"iskrib/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a migrated in-memory database. A single connection keeps
// every query on the same in-memory schema.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// Clock hands out strictly increasing whole-second UTC timestamps.
type Clock struct {
	now time.Time
}

// NewClock starts at base truncated to the second.
func NewClock(base time.Time) *Clock {
	return &Clock{now: base.UTC().Truncate(time.Second)}
}

// Next advances by one second and returns the new time.
func (c *Clock) Next() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

// Fixtures inserts rows for tests.
type Fixtures struct {
	t     testing.TB
	db    *gorm.DB
	Clock *Clock
}

// NewFixtures returns a fixture helper writing to db.
func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db, Clock: NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}
}

// User creates a user.
func (f *Fixtures) User(name string) *models.User {
	f.t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

// Journal creates a journal with the next clock tick as creation time.
func (f *Fixtures) Journal(author *models.User, privacy models.Visibility, title string) *models.Journal {
	f.t.Helper()
	ts := f.Clock.Next()
	j := &models.Journal{
		UserID:    author.ID,
		Title:     title,
		Content:   `{"root":{"children":[]}}`,
		PostType:  models.PostTypeText,
		Privacy:   privacy,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(f.t, f.db.Create(j).Error)
	return j
}

// CanvasJournal creates a canvas journal.
func (f *Fixtures) CanvasJournal(author *models.User, privacy models.Visibility) *models.Journal {
	f.t.Helper()
	ts := f.Clock.Next()
	j := &models.Journal{
		UserID:    author.ID,
		Title:     "canvas",
		PostType:  models.PostTypeCanvas,
		CanvasDoc: models.JSON(`{"snippets":[{"id":"s1","text":"hello"}]}`),
		Privacy:   privacy,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	require.NoError(f.t, f.db.Create(j).Error)
	return j
}

// Like records a like edge.
func (f *Fixtures) Like(user *models.User, j *models.Journal) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Like{UserID: user.ID, JournalID: j.ID, CreatedAt: f.Clock.Next()}).Error)
}

// Bookmark records a bookmark edge.
func (f *Fixtures) Bookmark(user *models.User, j *models.Journal) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Bookmark{UserID: user.ID, JournalID: j.ID, CreatedAt: f.Clock.Next()}).Error)
}

// Comment adds a top-level comment.
func (f *Fixtures) Comment(user *models.User, j *models.Journal, text string) *models.Comment {
	f.t.Helper()
	c := &models.Comment{PostID: j.ID, UserID: user.ID, Comment: text, CreatedAt: f.Clock.Next()}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

// Opinion creates an opinion, optionally replying to parent.
func (f *Fixtures) Opinion(user *models.User, parent *models.Opinion, text string) *models.Opinion {
	f.t.Helper()
	o := &models.Opinion{UserID: user.ID, Opinion: text, CreatedAt: f.Clock.Next()}
	if parent != nil {
		o.ParentID = &parent.ID
	}
	require.NoError(f.t, f.db.Create(o).Error)
	return o
}
