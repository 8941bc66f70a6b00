package repository

import (
	"context"
	"fmt"
	"time"

	"fitprove/internal/gateway"
	"fitprove/internal/models"
)

// ReactionRepository reads and writes rows of the likes table.
type ReactionRepository interface {
	// ForUser returns userID's reaction per post for the given posts.
	ForUser(ctx context.Context, userID string, postIDs []string) (map[string]models.ReactionType, error)
	// CountsByPost returns per-type reaction counts for the given posts.
	CountsByPost(ctx context.Context, postIDs []string) (map[string]models.ReactionCounts, error)
	Insert(ctx context.Context, reaction *models.Reaction) error
	DeleteForUser(ctx context.Context, userID, postID string) (int64, error)
}

type reactionRepository struct {
	gw gateway.Gateway
}

// NewReactionRepository creates a reaction repository.
func NewReactionRepository(gw gateway.Gateway) ReactionRepository {
	return &reactionRepository{gw: gw}
}

func (r *reactionRepository) ForUser(ctx context.Context, userID string, postIDs []string) (map[string]models.ReactionType, error) {
	out := make(map[string]models.ReactionType, len(postIDs))
	if userID == "" || len(postIDs) == 0 {
		return out, nil
	}
	var rows []models.Reaction
	err := r.gw.Select(ctx, "likes", gateway.Query{
		Columns: []string{"post_id", "reaction_type"},
		Filters: []gateway.Filter{
			gateway.Eq("user_id", userID),
			gateway.In("post_id", postIDs),
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select user reactions: %w", err)
	}
	for _, row := range rows {
		if row.PostID == nil {
			continue
		}
		t := row.Type
		if !t.Valid() {
			t = models.ReactionLike
		}
		out[*row.PostID] = t
	}
	return out, nil
}

type reactionCountRow struct {
	PostID       string
	ReactionType string
	Total        int
}

func (r *reactionRepository) CountsByPost(ctx context.Context, postIDs []string) (map[string]models.ReactionCounts, error) {
	out := make(map[string]models.ReactionCounts, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []reactionCountRow
	err := r.gw.Select(ctx, "likes", gateway.Query{
		Columns: []string{"post_id", "reaction_type", "COUNT(*) AS total"},
		Filters: []gateway.Filter{gateway.In("post_id", postIDs)},
		GroupBy: []string{"post_id", "reaction_type"},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	for _, row := range rows {
		counts, ok := out[row.PostID]
		if !ok {
			counts = models.ReactionCounts{}
			out[row.PostID] = counts
		}
		t := models.ReactionType(row.ReactionType)
		if !t.Valid() {
			// Rows written before typed reactions existed count as likes.
			t = models.ReactionLike
		}
		counts[t] += row.Total
	}
	return out, nil
}

func (r *reactionRepository) Insert(ctx context.Context, reaction *models.Reaction) error {
	if err := reaction.Validate(); err != nil {
		return err
	}
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now().UTC()
	}
	row := gateway.Row{
		"id":            reaction.ID,
		"user_id":       reaction.UserID,
		"reaction_type": string(reaction.Type),
		"created_at":    reaction.CreatedAt,
	}
	if reaction.PostID != nil {
		row["post_id"] = *reaction.PostID
	}
	if reaction.CommentID != nil {
		row["comment_id"] = *reaction.CommentID
	}
	if err := r.gw.Insert(ctx, "likes", row); err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (r *reactionRepository) DeleteForUser(ctx context.Context, userID, postID string) (int64, error) {
	n, err := r.gw.Delete(ctx, "likes", gateway.Eq("user_id", userID), gateway.Eq("post_id", postID))
	if err != nil {
		return 0, fmt.Errorf("delete reaction: %w", err)
	}
	return n, nil
}
