package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fitprove/internal/featureflags"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/observability"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByPost returns every comment on a post, oldest first, authors attached.
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postID string) (int, error)
}

type commentRepository struct {
	gw       gateway.Gateway
	profiles ProfileRepository
	flags    *featureflags.Manager
}

// NewCommentRepository creates a new comment repository. flags may be nil.
func NewCommentRepository(gw gateway.Gateway, profiles ProfileRepository, flags *featureflags.Manager) CommentRepository {
	return &commentRepository{gw: gw, profiles: profiles, flags: flags}
}

type commentRow struct {
	models.Comment
	joinedAuthor
}

func (r *commentRepository) Create(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	row := gateway.Row{
		"id":          c.ID,
		"post_id":     c.PostID,
		"user_id":     c.UserID,
		"content":     c.Content,
		"likes_count": 0,
		"created_at":  c.CreatedAt,
		"updated_at":  c.UpdatedAt,
	}
	if c.ParentID != nil {
		row["parent_id"] = *c.ParentID
	}
	if err := r.gw.Insert(ctx, "comments", row); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var rows []models.Comment
	err := r.gw.Select(ctx, "comments", gateway.Query{
		Filters: []gateway.Filter{gateway.Eq("id", id)},
		Limit:   1,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select comment: %w", err)
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNotFound
	}
	return &rows[0], nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	q := gateway.Query{
		Filters: []gateway.Filter{gateway.Eq("post_id", postID)},
		Order:   []gateway.Order{{Column: "created_at"}},
	}

	if r.flags.EnabledOr(featureflags.ProfileJoin, "", true) {
		joined := q
		joined.Join = profileJoin()
		var rows []commentRow
		err := r.gw.Select(ctx, "comments", joined, &rows)
		if err == nil {
			out := make([]*models.Comment, len(rows))
			for i := range rows {
				c := rows[i].Comment
				c.Author = rows[i].author()
				out[i] = &c
			}
			return out, nil
		}
		if !errors.Is(err, gateway.ErrSchemaMismatch) {
			return nil, fmt.Errorf("select comments: %w", err)
		}
		observability.Logger.WarnContext(ctx, "profile join unavailable for comments, using batch lookup", slog.String("error", err.Error()))
	}

	var rows []models.Comment
	if err := r.gw.Select(ctx, "comments", q, &rows); err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	userIDs := make([]string, 0, len(rows))
	for i := range rows {
		userIDs = append(userIDs, rows[i].UserID)
	}
	authors := lookupAuthors(ctx, r.profiles, userIDs)

	out := make([]*models.Comment, len(rows))
	for i := range rows {
		c := rows[i]
		c.Author = authors[c.UserID]
		out[i] = &c
	}
	return out, nil
}

type countRow struct {
	Total int
}

func (r *commentRepository) CountByPost(ctx context.Context, postID string) (int, error) {
	var rows []countRow
	err := r.gw.Select(ctx, "comments", gateway.Query{
		Columns: []string{"COUNT(*) AS total"},
		Filters: []gateway.Filter{gateway.Eq("post_id", postID)},
	}, &rows)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
