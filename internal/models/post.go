// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// PostCategory tags a feed entry.
type PostCategory string

const (
	PostCategoryGeneral     PostCategory = "general"
	PostCategoryWorkout     PostCategory = "workout"
	PostCategoryAchievement PostCategory = "achievement"
)

// Valid reports whether c is one of the known categories.
func (c PostCategory) Valid() bool {
	switch c {
	case PostCategoryGeneral, PostCategoryWorkout, PostCategoryAchievement:
		return true
	}
	return false
}

// Post represents a user-authored feed entry.
type Post struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Content       string       `gorm:"type:text" json:"content"`
	MediaURLs     []string     `gorm:"type:text;serializer:json" json:"media_urls,omitempty"`
	Category      PostCategory `gorm:"size:20;not null;default:general" json:"category"`
	WorkoutID     *string      `gorm:"type:uuid" json:"workout_id,omitempty"`
	AchievementID *string      `gorm:"type:uuid" json:"achievement_id,omitempty"`
	// LikesCount is the cached number of reaction rows on this post.
	LikesCount    int       `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Read-time projections, never stored on the row.
	Author         *Author        `gorm:"-" json:"author,omitempty"`
	UserReaction   *ReactionType  `gorm:"-" json:"user_reaction,omitempty"`
	ReactionCounts ReactionCounts `gorm:"-" json:"reaction_counts"`
}

// TableName pins the table name used by the store.
func (Post) TableName() string { return "posts" }

// IsLiked reports whether the current viewer has any reaction on the post.
func (p *Post) IsLiked() bool {
	return p.UserReaction != nil
}

// Clone returns a deep copy that is safe to hand out of shared state.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	out := *p
	if p.MediaURLs != nil {
		out.MediaURLs = append([]string(nil), p.MediaURLs...)
	}
	if p.Author != nil {
		a := *p.Author
		out.Author = &a
	}
	if p.UserReaction != nil {
		r := *p.UserReaction
		out.UserReaction = &r
	}
	out.ReactionCounts = p.ReactionCounts.Clone()
	return &out
}
