package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fitprove/internal/featureflags"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/observability"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	// Create inserts post and returns the stored row. When the store rejects
	// optional columns the insert is retried with id, user_id and content.
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Post, error)
	UpdateContent(ctx context.Context, id, userID, content string) (*models.Post, error)
	Delete(ctx context.Context, id, userID string) error
	SetLikesCount(ctx context.Context, id string, n int) error
	SetCommentsCount(ctx context.Context, id string, n int) error
}

type postRepository struct {
	gw       gateway.Gateway
	profiles ProfileRepository
	flags    *featureflags.Manager
}

// NewPostRepository creates a new post repository. flags may be nil.
func NewPostRepository(gw gateway.Gateway, profiles ProfileRepository, flags *featureflags.Manager) PostRepository {
	return &postRepository{gw: gw, profiles: profiles, flags: flags}
}

type postRow struct {
	models.Post
	joinedAuthor
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	now := time.Now().UTC()
	full := gateway.Row{
		"id":             post.ID,
		"user_id":        post.UserID,
		"content":        post.Content,
		"category":       string(post.Category),
		"likes_count":    0,
		"comments_count": 0,
		"created_at":     now,
		"updated_at":     now,
	}
	if len(post.MediaURLs) > 0 {
		b, err := json.Marshal(post.MediaURLs)
		if err != nil {
			return nil, fmt.Errorf("encode media urls: %w", err)
		}
		full["media_urls"] = string(b)
	}
	if post.WorkoutID != nil {
		full["workout_id"] = *post.WorkoutID
	}
	if post.AchievementID != nil {
		full["achievement_id"] = *post.AchievementID
	}

	err := r.gw.Insert(ctx, "posts", full)
	if errors.Is(err, gateway.ErrSchemaMismatch) {
		observability.Logger.WarnContext(ctx, "post insert rejected optional columns, retrying with reduced set",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		observability.DegradedWrites.WithLabelValues("posts").Inc()
		err = r.gw.Insert(ctx, "posts", gateway.Row{
			"id":      post.ID,
			"user_id": post.UserID,
			"content": post.Content,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return r.GetByID(ctx, post.ID)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	posts, err := r.selectPosts(ctx, gateway.Query{
		Filters: []gateway.Filter{gateway.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, gateway.ErrNotFound
	}
	return posts[0], nil
}

// ListRecent returns the newest posts first.
func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.selectPosts(ctx, gateway.Query{
		Order: []gateway.Order{{Column: "created_at", Desc: true}},
		Limit: limit,
	})
}

// selectPosts reads posts with authors attached, joining profiles when the
// store supports it and falling back to a batch profile lookup otherwise.
func (r *postRepository) selectPosts(ctx context.Context, q gateway.Query) ([]*models.Post, error) {
	if r.flags.EnabledOr(featureflags.ProfileJoin, "", true) {
		joined := q
		joined.Join = profileJoin()
		var rows []postRow
		err := r.gw.Select(ctx, "posts", joined, &rows)
		if err == nil {
			out := make([]*models.Post, len(rows))
			for i := range rows {
				p := rows[i].Post
				p.Author = rows[i].author()
				out[i] = &p
			}
			return out, nil
		}
		if !errors.Is(err, gateway.ErrSchemaMismatch) {
			return nil, fmt.Errorf("select posts: %w", err)
		}
		observability.Logger.WarnContext(ctx, "profile join unavailable, using batch lookup", slog.String("error", err.Error()))
	}

	var rows []models.Post
	if err := r.gw.Select(ctx, "posts", q, &rows); err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	userIDs := make([]string, 0, len(rows))
	for i := range rows {
		userIDs = append(userIDs, rows[i].UserID)
	}
	authors := lookupAuthors(ctx, r.profiles, userIDs)

	out := make([]*models.Post, len(rows))
	for i := range rows {
		p := rows[i]
		p.Author = authors[p.UserID]
		out[i] = &p
	}
	return out, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id, userID, content string) (*models.Post, error) {
	n, err := r.gw.Update(ctx, "posts",
		gateway.Row{"content": content, "updated_at": time.Now().UTC()},
		gateway.Eq("id", id), gateway.Eq("user_id", userID),
	)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if n == 0 {
		return nil, r.missOrForeign(ctx, id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the post, then clears its reactions and comments for
// stores that do not cascade. Child cleanup failures are logged only.
func (r *postRepository) Delete(ctx context.Context, id, userID string) error {
	n, err := r.gw.Delete(ctx, "posts", gateway.Eq("id", id), gateway.Eq("user_id", userID))
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n == 0 {
		return r.missOrForeign(ctx, id)
	}

	var comments []models.Comment
	if err := r.gw.Select(ctx, "comments", gateway.Query{
		Columns: []string{"id"},
		Filters: []gateway.Filter{gateway.Eq("post_id", id)},
	}, &comments); err != nil {
		r.logCleanup(ctx, id, "comments", err)
	} else if len(comments) > 0 {
		ids := make([]string, len(comments))
		for i := range comments {
			ids[i] = comments[i].ID
		}
		if _, err := r.gw.Delete(ctx, "likes", gateway.In("comment_id", ids)); err != nil {
			r.logCleanup(ctx, id, "comment likes", err)
		}
	}
	if _, err := r.gw.Delete(ctx, "likes", gateway.Eq("post_id", id)); err != nil {
		r.logCleanup(ctx, id, "likes", err)
	}
	if _, err := r.gw.Delete(ctx, "comments", gateway.Eq("post_id", id)); err != nil {
		r.logCleanup(ctx, id, "comments", err)
	}
	return nil
}

func (r *postRepository) SetLikesCount(ctx context.Context, id string, n int) error {
	if _, err := r.gw.Update(ctx, "posts", gateway.Row{"likes_count": n}, gateway.Eq("id", id)); err != nil {
		return fmt.Errorf("update likes_count: %w", err)
	}
	return nil
}

func (r *postRepository) SetCommentsCount(ctx context.Context, id string, n int) error {
	if _, err := r.gw.Update(ctx, "posts", gateway.Row{"comments_count": n}, gateway.Eq("id", id)); err != nil {
		return fmt.Errorf("update comments_count: %w", err)
	}
	return nil
}

// missOrForeign explains a write that matched no rows.
func (r *postRepository) missOrForeign(ctx context.Context, id string) error {
	var rows []models.Post
	if err := r.gw.Select(ctx, "posts", gateway.Query{
		Columns: []string{"id"},
		Filters: []gateway.Filter{gateway.Eq("id", id)},
		Limit:   1,
	}, &rows); err != nil {
		return fmt.Errorf("check post: %w", err)
	}
	if len(rows) == 0 {
		return gateway.ErrNotFound
	}
	return ErrNotOwner
}

func (r *postRepository) logCleanup(ctx context.Context, postID, what string, err error) {
	observability.Logger.WarnContext(ctx, "post child cleanup failed",
		slog.String("post_id", postID),
		slog.String("children", what),
		slog.String("error", err.Error()),
	)
}
