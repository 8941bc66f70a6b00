package models

import "time"

// Profile is the public user profile row.
type Profile struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	Username    string    `gorm:"size:50;uniqueIndex" json:"username"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName pins the table name used by the store.
func (Profile) TableName() string { return "profiles" }

// Author returns the read-only projection attached to posts and comments.
func (p *Profile) Author() *Author {
	return &Author{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Username:    p.Username,
		AvatarURL:   p.AvatarURL,
	}
}

// Author is a denormalized view of a profile. It is never stored on a post
// or comment row.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
}
