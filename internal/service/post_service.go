// Package service implements the server-authoritative feed operations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fitprove/internal/auth"
	"fitprove/internal/cache"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/observability"
	"fitprove/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the number of posts in one feed page.
const DefaultPageSize = 20

// MaxPageSize bounds caller-supplied page sizes.
const MaxPageSize = 100

type PostService struct {
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	auth         auth.Provider
	cache        *cache.Store
	pageSize     int
}

type CreatePostInput struct {
	// ID is optional; callers that show a placeholder pass their own.
	ID            string
	Content       string
	MediaURLs     []string
	Category      models.PostCategory
	WorkoutID     *string
	AchievementID *string
}

func NewPostService(
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	provider auth.Provider,
	store *cache.Store,
	pageSize int,
) *PostService {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return &PostService{
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		auth:         provider,
		cache:        store,
		pageSize:     pageSize,
	}
}

// PageSize is the default number of posts LoadPosts returns.
func (s *PostService) PageSize() int { return s.pageSize }

// LoadPosts returns the newest posts with reaction counts and the viewer's
// own reactions attached. limit <= 0 uses the page size.
func (s *PostService) LoadPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "LoadPosts")
	defer span.End()

	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	viewer := auth.Optional(ctx, s.auth)

	load := func(dest *[]*models.Post) error {
		posts, err := s.postRepo.ListRecent(ctx, limit)
		if err != nil {
			return err
		}
		if err := s.overlayReactions(ctx, posts, viewer); err != nil {
			return err
		}
		*dest = posts
		return nil
	}

	var posts []*models.Post
	var err error
	if viewer == nil && limit == s.pageSize {
		err = s.cache.Aside(ctx, cache.FeedPageKey, &posts, cache.FeedPageTTL, func() error {
			return load(&posts)
		})
	} else {
		err = load(&posts)
	}
	if err != nil {
		span.SetError(err)
		return nil, models.NewFetchError("posts", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// overlayReactions attaches per-type counts and the viewer's reaction. The
// two reads run concurrently. likes_count is taken from the recount.
func (s *PostService) overlayReactions(ctx context.Context, posts []*models.Post, viewer *auth.Identity) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var counts map[string]models.ReactionCounts
	var mine map[string]models.ReactionType
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.reactionRepo.CountsByPost(gctx, ids)
		return err
	})
	if viewer != nil {
		g.Go(func() error {
			var err error
			mine, err = s.reactionRepo.ForUser(gctx, viewer.UserID, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range posts {
		c := counts[p.ID].Clone()
		p.ReactionCounts = c
		p.LikesCount = c.Total()
		p.UserReaction = nil
		if t, ok := mine[p.ID]; ok {
			p.UserReaction = &t
		}
	}
	return nil
}

// ValidatePostInput applies the create rules: text or media is required and
// the category must be known. It never touches the store.
func ValidatePostInput(in *CreatePostInput) error {
	in.Content = strings.TrimSpace(in.Content)
	media := in.MediaURLs[:0:0]
	for _, u := range in.MediaURLs {
		if u = strings.TrimSpace(u); u != "" {
			media = append(media, u)
		}
	}
	in.MediaURLs = media

	if in.Content == "" && len(in.MediaURLs) == 0 {
		return models.NewValidationError("Post content is required")
	}
	if in.Category == "" {
		in.Category = models.PostCategoryGeneral
	}
	if !in.Category.Valid() {
		return models.NewValidationError("Invalid post category")
	}
	if in.ID != "" {
		if _, err := uuid.Parse(in.ID); err != nil {
			return models.NewValidationError("Invalid post id")
		}
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer span.End()

	if err := ValidatePostInput(&in); err != nil {
		return nil, err
	}
	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		return nil, authError(err)
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	post, err := s.postRepo.Create(ctx, &models.Post{
		ID:            in.ID,
		UserID:        user.UserID,
		Content:       in.Content,
		MediaURLs:     in.MediaURLs,
		Category:      in.Category,
		WorkoutID:     in.WorkoutID,
		AchievementID: in.AchievementID,
	})
	if err != nil {
		span.SetError(err)
		return nil, models.NewCreateError("post", err)
	}

	post.LikesCount = 0
	post.ReactionCounts = models.ReactionCounts{}
	post.UserReaction = nil
	s.cache.InvalidateFeed(ctx)
	return post, nil
}

// UpdatePost replaces the content of a post owned by the current user.
func (s *PostService) UpdatePost(ctx context.Context, postID, content string) (*models.Post, error) {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "UpdatePost")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Post content is required")
	}
	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		return nil, authError(err)
	}

	post, err := s.postRepo.UpdateContent(ctx, postID, user.UserID, content)
	if err != nil {
		span.SetError(err)
		return nil, ownershipError(err, "post", postID, models.NewUpdateError("post", err))
	}

	if err := s.overlayReactions(ctx, []*models.Post{post}, user); err != nil {
		observability.Logger.WarnContext(ctx, "reaction overlay failed after update",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	}
	s.cache.InvalidateFeed(ctx)
	return post, nil
}

// DeletePost removes a post owned by the current user.
func (s *PostService) DeletePost(ctx context.Context, postID string) error {
	span, ctx := observability.StartServiceSpan(ctx, "PostService", "DeletePost")
	defer span.End()

	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		return authError(err)
	}
	if err := s.postRepo.Delete(ctx, postID, user.UserID); err != nil {
		span.SetError(err)
		return ownershipError(err, "post", postID, models.NewDeleteError("post", err))
	}
	s.cache.InvalidateFeed(ctx)
	return nil
}

func authError(err error) error {
	if errors.Is(err, auth.ErrUnauthenticated) {
		return models.NewAuthRequiredError()
	}
	appErr := models.NewAuthRequiredError()
	appErr.Err = err
	return appErr
}

// ownershipError maps repository misses onto NOT_FOUND and FORBIDDEN and
// everything else onto fallback.
func ownershipError(err error, resource, id string, fallback *models.AppError) error {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, repository.ErrNotOwner):
		return models.NewForbiddenError("You can only modify your own " + resource)
	}
	return fallback
}
