// Package seed provides helpers to create demo data for development
// databases. These helpers are intended for development and testing only.
package seed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"iskrib/internal/models"
	"iskrib/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var stampTypes = []string{"heart", "star", "laugh", "wow", "sad"}

var wallStamps = []string{"star", "heart", "sun", "moon", "flower"}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	opts  Options
	now   time.Time
}

// NewFactory creates a Factory bound to db. The same Options.Seed always
// produces the same content.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{
		db:    db,
		faker: gofakeit.New(opts.Seed),
		opts:  opts.withDefaults(),
		now:   time.Now().UTC(),
	}
}

// pastTime spreads timestamps across the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return f.now.Add(-back).Truncate(time.Second)
}

// editorDoc renders paragraphs, and optionally one image, as an editor
// state document.
func editorDoc(paragraphs []string, imageSrc string) string {
	children := make([]map[string]any, 0, len(paragraphs)+1)
	for _, p := range paragraphs {
		children = append(children, map[string]any{
			"type":     "paragraph",
			"children": []map[string]any{{"type": "text", "text": p}},
		})
	}
	if imageSrc != "" {
		children = append(children, map[string]any{"type": "image", "src": imageSrc, "width": 800, "height": 600})
	}
	raw, _ := json.Marshal(map[string]any{"root": map[string]any{"type": "root", "children": children}})
	return string(raw)
}

func (f *Factory) canvasDoc() models.JSON {
	n := f.faker.Number(1, 4)
	snippets := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		snippets = append(snippets, map[string]any{
			"id":   fmt.Sprintf("s%d", i+1),
			"text": f.faker.Sentence(f.faker.Number(4, 12)),
			"x":    f.faker.Number(0, 900),
			"y":    f.faker.Number(0, 600),
		})
	}
	raw, _ := json.Marshal(map[string]any{"snippets": snippets})
	return models.JSON(raw)
}

// BuildUser constructs a user without saving it.
func (f *Factory) BuildUser() *models.User {
	name := f.faker.Name()
	handle := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + fmt.Sprintf("%d", f.faker.Number(100, 999))
	return &models.User{
		Name:     name,
		Email:    handle + "@example.com",
		ImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", handle),
		Bio:      f.faker.Sentence(10),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify it before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser()
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildJournal constructs a journal of postType for author without saving
// it. Most journals are public.
func (f *Factory) BuildJournal(author *models.User, postType models.PostType, overrides ...func(*models.Journal)) *models.Journal {
	created := f.pastTime()
	journal := &models.Journal{
		UserID:    author.ID,
		Title:     validation.Cut(strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), "."), 180),
		PostType:  postType,
		Privacy:   models.VisibilityPublic,
		Views:     int64(f.faker.Number(0, 500)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	if f.faker.Number(1, 10) <= 2 {
		journal.Privacy = models.VisibilityPrivate
	}

	switch postType {
	case models.PostTypeCanvas:
		journal.CanvasDoc = f.canvasDoc()
	default:
		paragraphs := make([]string, f.faker.Number(1, 5))
		for i := range paragraphs {
			paragraphs[i] = f.faker.Paragraph(1, f.faker.Number(2, 6), 12, " ")
		}
		var image string
		if f.faker.Bool() {
			image = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
		}
		journal.Content = editorDoc(paragraphs, image)
	}

	for _, override := range overrides {
		override(journal)
	}
	return journal
}

// CreateJournalsBatch persists journals in BatchSize chunks.
func (f *Factory) CreateJournalsBatch(journals []*models.Journal) error {
	if len(journals) == 0 {
		return nil
	}
	return f.db.CreateInBatches(journals, f.opts.BatchSize).Error
}

// CreateLike persists a like and, unless the user liked their own journal,
// the author's notification.
func (f *Factory) CreateLike(user *models.User, journal *models.Journal) error {
	at := f.after(journal.CreatedAt)
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Like{UserID: user.ID, JournalID: journal.ID, CreatedAt: at}).Error; err != nil {
			return err
		}
		if user.ID == journal.UserID {
			return nil
		}
		return tx.Create(&models.Notification{
			ReceiverID: journal.UserID,
			SenderID:   user.ID,
			JournalID:  journal.ID,
			Type:       models.NotificationLike,
			Read:       f.faker.Bool(),
			CreatedAt:  at,
		}).Error
	})
}

// CreateBookmark persists a bookmark.
func (f *Factory) CreateBookmark(user *models.User, journal *models.Journal) error {
	return f.db.Create(&models.Bookmark{UserID: user.ID, JournalID: journal.ID, CreatedAt: f.after(journal.CreatedAt)}).Error
}

// CreateComment persists a comment and the author's notification.
func (f *Factory) CreateComment(user *models.User, journal *models.Journal, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    journal.ID,
		UserID:    user.ID,
		Comment:   f.faker.Sentence(f.faker.Number(4, 16)),
		CreatedAt: f.after(journal.CreatedAt),
	}
	for _, override := range overrides {
		override(comment)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if user.ID == journal.UserID {
			return nil
		}
		return tx.Create(&models.Notification{
			ReceiverID: journal.UserID,
			SenderID:   user.ID,
			JournalID:  journal.ID,
			Type:       models.NotificationComment,
			CreatedAt:  comment.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateOpinion persists an opinion. Replies notify the parent's author.
func (f *Factory) CreateOpinion(user *models.User, parent *models.Opinion) (*models.Opinion, error) {
	opinion := &models.Opinion{
		UserID:    user.ID,
		Opinion:   f.faker.Sentence(f.faker.Number(6, 20)),
		CreatedAt: f.pastTime(),
	}
	if parent != nil {
		opinion.ParentID = &parent.ID
		opinion.CreatedAt = f.after(parent.CreatedAt)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(opinion).Error; err != nil {
			return err
		}
		if parent == nil || parent.UserID == user.ID {
			return nil
		}
		return tx.Create(&models.OpinionNotification{
			ReceiverID: parent.UserID,
			SenderID:   user.ID,
			OpinionID:  parent.ID,
			Type:       models.NotificationReply,
			CreatedAt:  opinion.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return opinion, nil
}

// CreateFollow persists a follower -> following edge.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	return f.db.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID, CreatedAt: f.pastTime()}).Error
}

// CreateStamp pins a reaction stamp to the first snippet of a canvas.
func (f *Factory) CreateStamp(user *models.User, journal *models.Journal) error {
	stamp := &models.CanvasStamp{
		JournalID: journal.ID,
		UserID:    user.ID,
		SnippetID: "s1",
		StampType: stampTypes[f.faker.Number(0, len(stampTypes)-1)],
		X:         f.faker.Float64Range(0, 1),
		Y:         f.faker.Float64Range(0, 1),
		CreatedAt: f.after(journal.CreatedAt),
	}
	return f.db.Create(stamp).Error
}

// CreateWallItem adds a sanitized note or stamp to week.
func (f *Factory) CreateWallItem(user *models.User, week *models.FreedomWallWeek) (*models.FreedomWallItem, error) {
	kind := validation.WallNote
	raw := validation.Payload{
		"text":     f.faker.Sentence(f.faker.Number(3, 10)),
		"x":        f.faker.Float64Range(0, 1),
		"y":        f.faker.Float64Range(0, 1),
		"rotation": f.faker.Float64Range(-15, 15),
		"bgColor":  f.faker.HexColor(),
	}
	if f.faker.Bool() {
		kind = validation.WallStamp
		raw = validation.Payload{
			"stamp": wallStamps[f.faker.Number(0, len(wallStamps)-1)],
			"x":     f.faker.Float64Range(0, 1),
			"y":     f.faker.Float64Range(0, 1),
			"scale": f.faker.Float64Range(0.5, 2),
		}
	}
	payload, err := validation.WallItem(kind, raw)
	if err != nil {
		return nil, err
	}

	item := &models.FreedomWallItem{
		WeekID:   week.ID,
		UserID:   user.ID,
		ItemType: kind,
		Payload:  models.JSON(payload),
		ZIndex:   f.faker.Number(0, 1000),
	}
	if err := f.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// after returns a time between t and now.
func (f *Factory) after(t time.Time) time.Time {
	span := f.now.Sub(t)
	if span <= time.Second {
		return f.now
	}
	return t.Add(time.Duration(f.faker.Number(0, int(span/time.Second))) * time.Second).Truncate(time.Second)
}
