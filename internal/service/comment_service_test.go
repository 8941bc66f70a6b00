package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fitprove/internal/gateway"
	"fitprove/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCommentService_CreateComment_Validation(t *testing.T) {
	svc := NewCommentService(noopCommentRepo(), noopPostRepo(), signedIn, nil)

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"too long", strings.Repeat("a", 501)},
		{"too many runes", strings.Repeat("💪", 501)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateComment(context.Background(), CreateCommentInput{PostID: "p1", Content: tt.content})
			assertValidationError(t, err)
		})
	}

	// 500 multi-byte characters are within the bound.
	_, err := svc.CreateComment(context.Background(), CreateCommentInput{PostID: "p1", Content: strings.Repeat("💪", 500)})
	assert.NoError(t, err)
}

func TestCommentService_CreateComment_Success(t *testing.T) {
	comments := noopCommentRepo()
	var created *models.Comment
	comments.createFn = func(_ context.Context, c *models.Comment) error {
		created = c
		return nil
	}
	comments.countByPostFn = func(context.Context, string) (int, error) { return 4, nil }
	posts := noopPostRepo()
	var synced int
	posts.setCommentsCountFn = func(_ context.Context, _ string, n int) error {
		synced = n
		return nil
	}
	svc := NewCommentService(comments, posts, signedIn, nil)

	c, err := svc.CreateComment(context.Background(), CreateCommentInput{PostID: "p1", Content: "  nice lift  "})
	require.NoError(t, err)
	assert.Equal(t, "nice lift", c.Content)
	assert.Equal(t, signedIn.UserID, c.UserID)
	assert.Nil(t, c.ParentID)
	assert.Same(t, created, c)
	assert.Equal(t, 4, synced)
}

func TestCommentService_CreateReply(t *testing.T) {
	comments := noopCommentRepo()
	comments.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
		switch id {
		case "c1":
			return &models.Comment{ID: "c1", PostID: "p1"}, nil
		case "c2":
			return &models.Comment{ID: "c2", PostID: "other"}, nil
		}
		return nil, gateway.ErrNotFound
	}
	svc := NewCommentService(comments, noopPostRepo(), signedIn, nil)
	ctx := context.Background()

	reply, err := svc.CreateComment(ctx, CreateCommentInput{PostID: "p1", Content: "agreed", ParentID: strPtr("c1")})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, "c1", *reply.ParentID)

	_, err = svc.CreateComment(ctx, CreateCommentInput{PostID: "p1", Content: "x", ParentID: strPtr("c2")})
	assertValidationError(t, err)

	_, err = svc.CreateComment(ctx, CreateCommentInput{PostID: "p1", Content: "x", ParentID: strPtr("missing")})
	assertValidationError(t, err)

	top, err := svc.CreateComment(ctx, CreateCommentInput{PostID: "p1", Content: "x", ParentID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, top.ParentID)
}

func TestCommentService_CreateComment_Failures(t *testing.T) {
	_, err := NewCommentService(noopCommentRepo(), noopPostRepo(), anonymous, nil).
		CreateComment(context.Background(), CreateCommentInput{PostID: "p1", Content: "x"})
	assertCode(t, err, models.CodeAuthRequired)

	posts := noopPostRepo()
	posts.getByIDFn = func(context.Context, string) (*models.Post, error) { return nil, gateway.ErrNotFound }
	_, err = NewCommentService(noopCommentRepo(), posts, signedIn, nil).
		CreateComment(context.Background(), CreateCommentInput{PostID: "p1", Content: "x"})
	assertCode(t, err, models.CodeNotFound)

	comments := noopCommentRepo()
	comments.createFn = func(context.Context, *models.Comment) error { return errors.New("insert failed") }
	_, err = NewCommentService(comments, noopPostRepo(), signedIn, nil).
		CreateComment(context.Background(), CreateCommentInput{PostID: "p1", Content: "x"})
	assertCode(t, err, models.CodeCreate)
}

func TestCommentService_LoadThread(t *testing.T) {
	comments := noopCommentRepo()
	comments.listByPostFn = func(context.Context, string) ([]*models.Comment, error) {
		return []*models.Comment{
			{ID: "a", PostID: "p1"},
			{ID: "b", PostID: "p1", ParentID: strPtr("a")},
		}, nil
	}
	svc := NewCommentService(comments, noopPostRepo(), anonymous, nil)

	forest, err := svc.LoadThread(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, 1, forest[0].Replies[0].Depth)

	comments.listByPostFn = func(context.Context, string) ([]*models.Comment, error) { return nil, gateway.ErrTimeout }
	_, err = svc.LoadThread(context.Background(), "p1")
	assertCode(t, err, models.CodeFetch)
}
