// Package testutil provides shared fixtures for feed tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"fitprove/internal/database"
	"fitprove/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a migrated in-memory database. The pool is pinned to one
// connection so every query sees the same in-memory schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

// CreateProfile inserts a profile with the given username.
func CreateProfile(t *testing.T, db *gorm.DB, username string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: fmt.Sprintf("%s display", username),
		AvatarURL:   fmt.Sprintf("https://cdn.example.com/%s.png", username),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	return p
}

// CreatePost inserts a post authored by userID. Offset shifts created_at so
// callers can control feed order.
func CreatePost(t *testing.T, db *gorm.DB, userID, content string, offset time.Duration) *models.Post {
	t.Helper()
	now := time.Now().UTC().Add(offset)
	p := &models.Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Category:  models.PostCategoryGeneral,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return p
}

// CreateComment inserts a comment, optionally as a reply to parentID.
func CreateComment(t *testing.T, db *gorm.DB, postID, userID, content string, parentID *string, offset time.Duration) *models.Comment {
	t.Helper()
	now := time.Now().UTC().Add(offset)
	c := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	return c
}

// CreateReaction inserts a reaction row on a post.
func CreateReaction(t *testing.T, db *gorm.DB, userID, postID string, rt models.ReactionType) *models.Reaction {
	t.Helper()
	r := &models.Reaction{
		ID:     uuid.NewString(),
		UserID: userID,
		PostID: &postID,
		Type:   rt,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("Failed to create reaction: %v", err)
	}
	return r
}
