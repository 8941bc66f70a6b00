package models

import (
	"time"
)

// ReactionType is the kind of "like" a user places on a post or comment.
type ReactionType string

const (
	ReactionLike   ReactionType = "like"
	ReactionLove   ReactionType = "love"
	ReactionFire   ReactionType = "fire"
	ReactionStrong ReactionType = "strong"
)

// ReactionTypes lists every reaction type in enumeration order. Display
// tie-breaking depends on this order.
var ReactionTypes = []ReactionType{ReactionLike, ReactionLove, ReactionFire, ReactionStrong}

// Valid reports whether t is one of the known reaction types.
func (t ReactionType) Valid() bool {
	for _, known := range ReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Reaction is a single user's typed reaction on exactly one post or comment.
// At most one row exists per (user, post) and per (user, comment).
type Reaction struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string       `gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post;uniqueIndex:idx_likes_user_comment" json:"user_id"`
	PostID    *string      `gorm:"type:uuid;index;uniqueIndex:idx_likes_user_post" json:"post_id,omitempty"`
	CommentID *string      `gorm:"type:uuid;index;uniqueIndex:idx_likes_user_comment" json:"comment_id,omitempty"`
	Type      ReactionType `gorm:"column:reaction_type;size:20;not null;default:like" json:"reaction_type"`
	CreatedAt time.Time    `json:"created_at"`

	Post    *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the historical table name used by the store.
func (Reaction) TableName() string { return "likes" }

// Validate checks the exactly-one-target rule and the reaction type.
func (r *Reaction) Validate() error {
	hasPost := r.PostID != nil && *r.PostID != ""
	hasComment := r.CommentID != nil && *r.CommentID != ""
	if hasPost == hasComment {
		return NewValidationError("Reaction must target exactly one post or comment")
	}
	if !r.Type.Valid() {
		return NewValidationError("Invalid reaction type")
	}
	return nil
}

// ReactionCounts holds per-type reaction totals for one post.
type ReactionCounts map[ReactionType]int

// Get returns the count for t, treating a nil map as all zeroes.
func (c ReactionCounts) Get(t ReactionType) int {
	if c == nil {
		return 0
	}
	return c[t]
}

// Total sums the counts across all reaction types.
func (c ReactionCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Clone copies the map; a nil receiver yields an empty, non-nil map.
func (c ReactionCounts) Clone() ReactionCounts {
	out := make(ReactionCounts, len(ReactionTypes))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Equal compares two count maps, ignoring zero entries.
func (c ReactionCounts) Equal(other ReactionCounts) bool {
	for _, t := range ReactionTypes {
		if c.Get(t) != other.Get(t) {
			return false
		}
	}
	return true
}
