package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"iskrib/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type feedRow struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	Public    bool
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRows(t *testing.T, n int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&feedRow{}))
	for i := 1; i <= n; i++ {
		require.NoError(t, db.Create(&feedRow{ID: uint(i), CreatedAt: base.Add(time.Duration(i) * time.Minute), Public: true}).Error)
	}
	return db
}

func fetchRows(db *gorm.DB, before *time.Time) Fetcher[feedRow] {
	return func(ctx context.Context, limit int) ([]feedRow, error) {
		var out []feedRow
		err := db.WithContext(ctx).Model(&feedRow{}).Where("public = ?", true).
			Scopes(Before("feed_rows", before, limit)).Find(&out).Error
		return out, err
	}
}

func rowCursor(r feedRow) string { return FormatTime(r.CreatedAt) }

func TestRangeParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 5, false},
		{"1", 1, false},
		{"20", 20, false},
		{"0", 0, true},
		{"21", 0, true},
		{"-3", 0, true},
		{"ten", 0, true},
		{"2.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := FeedRange.Parse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, models.IsCode(err, models.CodeValidation))
				assert.Equal(t, "limit should be an integer between 1 and 20", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMediaRangeCapsAtTen(t *testing.T) {
	assert.NoError(t, MediaRange.Validate(10))
	assert.Error(t, MediaRange.Validate(11))
}

func TestTrim(t *testing.T) {
	id := func(v int) string { return fmt.Sprint(v) }

	page := Trim([]int{5, 4, 3}, 2, id)
	assert.Equal(t, []int{5, 4}, page.Data)
	assert.True(t, page.HasMore)
	assert.Equal(t, "4", page.NextCursor)

	page = Trim([]int{5, 4}, 2, id)
	assert.Equal(t, []int{5, 4}, page.Data)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)

	page = Trim[int](nil, 2, id)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.False(t, page.HasMore)
}

func TestFetchRejectsLimitBeforeIO(t *testing.T) {
	called := false
	fetch := func(context.Context, int) ([]feedRow, error) {
		called = true
		return nil, nil
	}

	_, err := Fetch(context.Background(), FeedRange, 25, fetch, rowCursor)
	require.Error(t, err)
	assert.Equal(t, 400, models.StatusFor(err))
	assert.False(t, called)
}

func TestFetchRequestsPeekAheadRow(t *testing.T) {
	var requested int
	fetch := func(_ context.Context, limit int) ([]feedRow, error) {
		requested = limit
		return nil, nil
	}
	_, err := Fetch(context.Background(), FeedRange, 7, fetch, rowCursor)
	require.NoError(t, err)
	assert.Equal(t, 8, requested)
}

func TestFetchWrapsStoreErrors(t *testing.T) {
	fetch := func(context.Context, int) ([]feedRow, error) {
		return nil, errors.New("connection refused")
	}
	_, err := Fetch(context.Background(), FeedRange, 5, fetch, rowCursor)
	require.Error(t, err)
	assert.Equal(t, 500, models.StatusFor(err))
}

func TestKeysetScenarioAAndB(t *testing.T) {
	db := setupRows(t, 25)
	ctx := context.Background()

	first, err := Fetch(ctx, FeedRange, 10, fetchRows(db, nil), rowCursor)
	require.NoError(t, err)
	require.Len(t, first.Data, 10)
	assert.True(t, first.HasMore)
	assert.EqualValues(t, 25, first.Data[0].ID)
	assert.EqualValues(t, 16, first.Data[9].ID)
	assert.Equal(t, FormatTime(first.Data[9].CreatedAt), first.NextCursor)

	cursor, err := ParseTime(first.NextCursor)
	require.NoError(t, err)
	second, err := Fetch(ctx, FeedRange, 10, fetchRows(db, cursor), rowCursor)
	require.NoError(t, err)
	require.Len(t, second.Data, 10)
	assert.True(t, second.HasMore)
	assert.EqualValues(t, 15, second.Data[0].ID)
	assert.EqualValues(t, 6, second.Data[9].ID)

	cursor, err = ParseTime(second.NextCursor)
	require.NoError(t, err)
	third, err := Fetch(ctx, FeedRange, 10, fetchRows(db, cursor), rowCursor)
	require.NoError(t, err)
	assert.Len(t, third.Data, 5)
	assert.False(t, third.HasMore)
	assert.Empty(t, third.NextCursor)
}

func TestKeysetIsIdempotent(t *testing.T) {
	db := setupRows(t, 12)
	ctx := context.Background()
	cursor := base.Add(9 * time.Minute)

	a, err := Fetch(ctx, FeedRange, 4, fetchRows(db, &cursor), rowCursor)
	require.NoError(t, err)
	b, err := Fetch(ctx, FeedRange, 4, fetchRows(db, &cursor), rowCursor)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKeysetHasMoreMatchesRemainingRows(t *testing.T) {
	db := setupRows(t, 9)
	ctx := context.Background()
	for limit := 1; limit <= 20; limit++ {
		page, err := Fetch(ctx, FeedRange, limit, fetchRows(db, nil), rowCursor)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Data), limit)
		assert.Equal(t, limit < 9, page.HasMore, "limit %d", limit)
	}
}

func TestAfterScopeAscends(t *testing.T) {
	db := setupRows(t, 6)
	after := base.Add(2 * time.Minute)
	var out []feedRow
	require.NoError(t, db.Model(&feedRow{}).Scopes(After("feed_rows", &after, 3)).Find(&out).Error)
	require.Len(t, out, 3)
	assert.EqualValues(t, []uint{3, 4, 5}, []uint{out[0].ID, out[1].ID, out[2].ID})
}

func TestBeforeIDScope(t *testing.T) {
	db := setupRows(t, 6)
	before := uint(4)
	var out []feedRow
	require.NoError(t, db.Model(&feedRow{}).Scopes(BeforeID("feed_rows", &before, 10)).Find(&out).Error)
	require.Len(t, out, 3)
	assert.EqualValues(t, 3, out[0].ID)
}

func TestParseCursors(t *testing.T) {
	got, err := ParseTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseTime("2025-03-01T12:10:00.5+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, "2025-03-01T10:10:00.5Z", FormatTime(*got))

	_, err = ParseTime("yesterday")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	id, err := ParseID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, *id)

	_, err = ParseID("0")
	assert.Error(t, err)
	_, err = ParseID("abc")
	assert.Error(t, err)
}
