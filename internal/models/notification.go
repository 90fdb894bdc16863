package models

import "time"

// Notification types.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationReply   = "reply"
)

// Notification sources, one per table.
const (
	SourceContent = "content"
	SourceOpinion = "opinion"
)

// Notification is produced by likes and comments on a journal.
type Notification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReceiverID uint      `gorm:"not null;index:idx_notification_receiver_created" json:"receiver_id"`
	SenderID   uint      `gorm:"not null" json:"sender_id"`
	Sender     *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	JournalID  uint      `gorm:"not null;index" json:"journal_id"`
	Type       string    `gorm:"type:varchar(16);not null" json:"type"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time `gorm:"index:idx_notification_receiver_created" json:"created_at"`
}

// OpinionNotification is produced by replies to an opinion.
type OpinionNotification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReceiverID uint      `gorm:"not null;index:idx_opinion_notification_receiver_created" json:"receiver_id"`
	SenderID   uint      `gorm:"not null" json:"sender_id"`
	Sender     *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	OpinionID  uint      `gorm:"not null;index" json:"opinion_id"`
	Type       string    `gorm:"type:varchar(16);not null" json:"type"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time `gorm:"index:idx_opinion_notification_receiver_created" json:"created_at"`
}

// TableName keeps the historical table name.
func (OpinionNotification) TableName() string { return "notification_opinions" }
