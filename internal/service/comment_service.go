package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"fitprove/internal/auth"
	"fitprove/internal/cache"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/observability"
	"fitprove/internal/repository"
	"fitprove/internal/thread"

	"github.com/google/uuid"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	auth        auth.Provider
	cache       *cache.Store
}

type CreateCommentInput struct {
	PostID   string
	Content  string
	ParentID *string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	provider auth.Provider,
	store *cache.Store,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		auth:        provider,
		cache:       store,
	}
}

// ValidateCommentContent trims content and enforces the length bound.
func ValidateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "", models.NewValidationError("Comment too long (max 500 characters)")
	}
	return content, nil
}

// CreateComment adds a comment or reply and refreshes the post's cached
// comments_count.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	span, ctx := observability.StartServiceSpan(ctx, "CommentService", "CreateComment")
	defer span.End()

	content, err := ValidateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		return nil, authError(err)
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, models.NewNotFoundError("post", in.PostID)
		}
		return nil, models.NewCreateError("comment", err)
	}

	var parentID *string
	if in.ParentID != nil && *in.ParentID != "" {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, models.NewValidationError("Parent comment not found")
		}
		if err != nil {
			return nil, models.NewCreateError("comment", err)
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to another post")
		}
		id := parent.ID
		parentID = &id
	}

	comment := &models.Comment{
		ID:       uuid.NewString(),
		PostID:   in.PostID,
		UserID:   user.UserID,
		Content:  content,
		ParentID: parentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		span.SetError(err)
		return nil, models.NewCreateError("comment", err)
	}

	s.syncCount(ctx, in.PostID)
	s.cache.InvalidateFeed(ctx)
	return comment, nil
}

// LoadThread returns the post's comments as a reply forest.
func (s *CommentService) LoadThread(ctx context.Context, postID string) ([]*thread.Node, error) {
	span, ctx := observability.StartServiceSpan(ctx, "CommentService", "LoadThread")
	defer span.End()

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		span.SetError(err)
		return nil, models.NewFetchError("comments", err)
	}
	return thread.Build(comments), nil
}

func (s *CommentService) syncCount(ctx context.Context, postID string) {
	n, err := s.commentRepo.CountByPost(ctx, postID)
	if err == nil {
		err = s.postRepo.SetCommentsCount(ctx, postID, n)
	}
	if err != nil {
		observability.Logger.WarnContext(ctx, "comments_count sync failed",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	}
}
