package models

import "time"

// Visibility controls who may read a journal.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// PostType distinguishes plain text journals from canvas journals.
type PostType string

const (
	PostTypeText   PostType = "text"
	PostTypeCanvas PostType = "canvas"
)

// Journal is the content item every feed is built from.
type Journal struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"users,omitempty"`
	Title     string     `gorm:"not null" json:"title"`
	Content   string     `gorm:"type:text" json:"content"`
	PostType  PostType   `gorm:"type:varchar(16);not null;default:text" json:"post_type"`
	CanvasDoc JSON       `gorm:"type:text" json:"canvas_doc,omitempty"`
	Privacy   Visibility `gorm:"type:varchar(16);not null;default:public;index" json:"privacy"`
	Views     int64      `gorm:"not null;default:0" json:"views"`
	// Embedding is stored as a JSON array and never serialised to clients.
	Embedding string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Remixes copy the canvas of another journal.
	IsRemix       bool  `gorm:"not null;default:false" json:"is_remix"`
	RemixSourceID *uint `gorm:"index" json:"remix_source_journal_id,omitempty"`

	// Derived counts, computed at query time.
	LikeCount     int64 `gorm:"->" json:"like_count"`
	CommentCount  int64 `gorm:"->" json:"comment_count"`
	BookmarkCount int64 `gorm:"->" json:"bookmark_count"`

	// Per-viewer flags, filled by the personalization overlay.
	HasLiked      bool `gorm:"-" json:"has_liked"`
	HasBookmarked bool `gorm:"-" json:"has_bookmarked"`

	// Feed preview of text journals.
	Preview string `gorm:"-" json:"preview,omitempty"`
	Cover   string `gorm:"-" json:"cover,omitempty"`
}

// Like is a like interaction edge. One per (user, journal).
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_journal" json:"user_id"`
	JournalID uint      `gorm:"not null;uniqueIndex:idx_like_user_journal;index" json:"journal_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is a bookmark interaction edge. One per (user, journal).
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_journal" json:"user_id"`
	JournalID uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_journal;index" json:"journal_id"`
	Journal   *Journal  `gorm:"foreignKey:JournalID" json:"journals,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Comment is a comment on a journal. Top-level comments have no parent.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"users,omitempty"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Opinion is a short standalone post. Replies are opinions with a parent.
type Opinion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"users,omitempty"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Opinion   string    `gorm:"type:text;not null" json:"opinion"`
	CreatedAt time.Time `json:"created_at"`
}

// OverlayID is the id personalization flags are keyed on.
func (j *Journal) OverlayID() uint { return j.ID }

// SetFlag sets the has_<kind> flag.
func (j *Journal) SetFlag(kind string, value bool) {
	switch kind {
	case "like":
		j.HasLiked = value
	case "bookmark":
		j.HasBookmarked = value
	}
}
