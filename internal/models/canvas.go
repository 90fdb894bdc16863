package models

import (
	"time"

	"gorm.io/gorm"
)

// CanvasMarginItem is a doodle or sticky note drawn in the margin of a canvas
// journal. Payload holds the sanitised variant for ItemType.
type CanvasMarginItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JournalID uint      `gorm:"not null;index" json:"journal_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"users,omitempty"`
	ItemType  string    `gorm:"type:varchar(16);not null" json:"item_type"`
	Payload   JSON      `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanvasStamp is a reaction stamp pinned to a snippet of a canvas journal.
type CanvasStamp struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JournalID uint      `gorm:"not null;index" json:"journal_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"users,omitempty"`
	SnippetID string    `gorm:"not null" json:"snippet_id"`
	WordKey   *string   `json:"word_key"`
	StampType string    `gorm:"type:varchar(16);not null" json:"stamp_type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `json:"created_at"`
}

// Freedom wall week statuses.
const (
	WallWeekActive   = "active"
	WallWeekArchived = "archived"
)

// FreedomWallWeek is one weekly shared canvas.
type FreedomWallWeek struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WeekStart time.Time `gorm:"not null;index" json:"week_start"`
	WeekEnd   time.Time `gorm:"not null" json:"week_end"`
	Status    string    `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// FreedomWallItem is a doodle, sticker, stamp or note placed on a week's wall.
type FreedomWallItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	WeekID    uint           `gorm:"not null;index" json:"week_id"`
	UserID    uint           `gorm:"not null" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"users,omitempty"`
	ItemType  string         `gorm:"type:varchar(16);not null" json:"item_type"`
	Payload   JSON           `gorm:"type:text;not null" json:"payload"`
	ZIndex    int            `gorm:"not null;default:0" json:"z_index"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
