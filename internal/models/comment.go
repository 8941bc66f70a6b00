package models

import (
	"time"
)

// MaxCommentLength bounds comment content, counted in characters (runes).
const MaxCommentLength = 500

// Comment represents a threaded comment on a post. ParentID links a reply
// to the comment it answers.
type Comment struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID     string    `gorm:"type:uuid;not null;index" json:"post_id"`
	UserID     string    `gorm:"type:uuid;not null" json:"user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ParentID   *string   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	LikesCount int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Post   *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Parent *Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`

	// Author is joined at read time.
	Author *Author `gorm:"-" json:"author,omitempty"`
}

// TableName pins the table name used by the store.
func (Comment) TableName() string { return "comments" }

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}
