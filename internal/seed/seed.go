package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	"iskrib/internal/database"
	"iskrib/internal/mediafeed"
	"iskrib/internal/models"
	"iskrib/internal/repository"
	"iskrib/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumJournals int
	// MediaPerUser uploads that many placeholder images per user when the
	// seeder has an object store.
	MediaPerUser int
	// MaxDays bounds how far back generated timestamps go.
	MaxDays   int
	BatchSize int
	Seed      int64
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	return o
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Journals  int
	Likes     int
	Bookmarks int
	Comments  int
	Follows   int
	Opinions  int
	WallItems int
	Media     int
}

// Seeder populates a database with a connected social graph.
type Seeder struct {
	db      *gorm.DB
	store   storage.ObjectStore
	factory *Factory
	opts    Options
	logger  *slog.Logger
}

// NewSeeder returns a Seeder. store may be nil, which skips media.
func NewSeeder(db *gorm.DB, store storage.ObjectStore, opts Options) *Seeder {
	opts = opts.withDefaults()
	return &Seeder{
		db:      db,
		store:   store,
		factory: NewFactory(db, opts),
		opts:    opts,
		logger:  slog.Default(),
	}
}

// WithLogger replaces the progress logger.
func (s *Seeder) WithLogger(l *slog.Logger) *Seeder {
	s.logger = l
	return s
}

// ClearAll empties every table the service owns. Postgres gets a single
// TRUNCATE that also resets the id sequences.
func (s *Seeder) ClearAll(ctx context.Context) error {
	s.logger.Info("clearing existing data")
	registered := database.PersistentModels()
	tables := make([]string, 0, len(registered))
	for _, m := range registered {
		stmt := &gorm.Statement{DB: s.db}
		if err := stmt.Parse(m); err != nil {
			return fmt.Errorf("resolve table of %T: %w", m, err)
		}
		tables = append(tables, stmt.Schema.Table)
	}

	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", joinQuoted(tables))).Error
	}
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Exec("DELETE FROM " + tables[i]).Error; err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}
	return nil
}

func joinQuoted(tables []string) string {
	var b bytes.Buffer
	for i, t := range tables {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"` + t + `"`)
	}
	return b.String()
}

// Run seeds users, journals, engagement, opinions, the current freedom wall
// week and, with a store, media.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	users, err := s.SeedUsers(s.opts.NumUsers)
	if err != nil {
		return sum, fmt.Errorf("seed users: %w", err)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	journals, err := s.SeedJournals(users, s.opts.NumJournals)
	if err != nil {
		return sum, fmt.Errorf("seed journals: %w", err)
	}
	sum.Journals = len(journals)

	if err := s.SeedEngagement(users, journals, sum); err != nil {
		return sum, fmt.Errorf("seed engagement: %w", err)
	}
	if err := s.SeedOpinions(users, sum); err != nil {
		return sum, fmt.Errorf("seed opinions: %w", err)
	}
	if err := s.SeedWall(ctx, users, sum); err != nil {
		return sum, fmt.Errorf("seed freedom wall: %w", err)
	}
	if s.store != nil && s.opts.MediaPerUser > 0 {
		if err := s.SeedMedia(ctx, users, sum); err != nil {
			return sum, fmt.Errorf("seed media: %w", err)
		}
	}

	s.logger.Info("seeding completed",
		slog.Int("users", sum.Users),
		slog.Int("journals", sum.Journals),
		slog.Int("likes", sum.Likes),
		slog.Int("comments", sum.Comments),
		slog.Int("opinions", sum.Opinions),
		slog.Int("wall_items", sum.WallItems),
		slog.Int("media", sum.Media),
	)
	return sum, nil
}

// SeedUsers creates count users.
func (s *Seeder) SeedUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return users, err
		}
		users = append(users, user)
	}
	s.logger.Info("users created", slog.Int("count", len(users)))
	return users, nil
}

// SeedJournals spreads count journals over users; about one in five is a
// canvas.
func (s *Seeder) SeedJournals(users []*models.User, count int) ([]*models.Journal, error) {
	f := s.factory
	journals := make([]*models.Journal, 0, count)
	for i := 0; i < count; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		postType := models.PostTypeText
		if f.faker.Number(1, 5) == 1 {
			postType = models.PostTypeCanvas
		}
		journals = append(journals, f.BuildJournal(author, postType))
	}
	if err := f.CreateJournalsBatch(journals); err != nil {
		return nil, err
	}
	s.logger.Info("journals created", slog.Int("count", len(journals)))
	return journals, nil
}

// SeedEngagement adds likes, bookmarks and comments on visible journals,
// stamps on canvases, and a follow graph.
func (s *Seeder) SeedEngagement(users []*models.User, journals []*models.Journal, sum *Summary) error {
	f := s.factory
	for _, j := range journals {
		if j.Privacy != models.VisibilityPublic {
			continue
		}
		for _, u := range users {
			switch n := f.faker.Number(1, 100); {
			case n <= 30:
				if err := f.CreateLike(u, j); err != nil {
					return err
				}
				sum.Likes++
			case n <= 40:
				if err := f.CreateBookmark(u, j); err != nil {
					return err
				}
				sum.Bookmarks++
			}
		}
		for c := f.faker.Number(0, 4); c > 0; c-- {
			if _, err := f.CreateComment(users[f.faker.Number(0, len(users)-1)], j); err != nil {
				return err
			}
			sum.Comments++
		}
		if j.PostType == models.PostTypeCanvas {
			if err := f.CreateStamp(users[f.faker.Number(0, len(users)-1)], j); err != nil {
				return err
			}
		}
	}

	for _, follower := range users {
		for _, following := range users {
			if follower.ID == following.ID || f.faker.Number(1, 100) > 25 {
				continue
			}
			if err := f.CreateFollow(follower, following); err != nil {
				return err
			}
			sum.Follows++
		}
	}
	return nil
}

// SeedOpinions creates a few root opinions per user with reply threads.
func (s *Seeder) SeedOpinions(users []*models.User, sum *Summary) error {
	f := s.factory
	for _, u := range users {
		for n := f.faker.Number(0, 2); n > 0; n-- {
			root, err := f.CreateOpinion(u, nil)
			if err != nil {
				return err
			}
			sum.Opinions++
			for r := f.faker.Number(0, 5); r > 0; r-- {
				if _, err := f.CreateOpinion(users[f.faker.Number(0, len(users)-1)], root); err != nil {
					return err
				}
				sum.Opinions++
			}
		}
	}
	return nil
}

// SeedWall opens the current week and fills it with notes and stamps.
func (s *Seeder) SeedWall(ctx context.Context, users []*models.User, sum *Summary) error {
	week, err := repository.NewWallRepository(s.db).Rotate(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, u := range users {
		for n := s.factory.faker.Number(0, 3); n > 0; n-- {
			if _, err := s.factory.CreateWallItem(u, week); err != nil {
				return err
			}
			sum.WallItems++
		}
	}
	return nil
}

// SeedMedia uploads placeholder images named the way uploads are, so they
// show up in each user's media feed.
func (s *Seeder) SeedMedia(ctx context.Context, users []*models.User, sum *Summary) error {
	buckets := mediafeed.DefaultBuckets
	for _, u := range users {
		for i := 0; i < s.opts.MediaPerUser; i++ {
			data, err := placeholderPNG(s.factory.faker.Number(0, 0xffffff))
			if err != nil {
				return err
			}
			at := s.factory.pastTime()
			bucket := buckets[i%len(buckets)]
			name := fmt.Sprintf("%s%d_%s.png", mediafeed.OwnerPrefix(u.ID), at.UnixMilli(), uuid.NewString())
			if _, err := s.store.Put(ctx, bucket, name, "image/png", bytes.NewReader(data)); err != nil {
				return err
			}
			sum.Media++
		}
	}
	return nil
}

// placeholderPNG encodes a small solid image of rgb.
func placeholderPNG(rgb int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	c := color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
