package service

import (
	"context"
	"errors"
	"log/slog"

	"fitprove/internal/auth"
	"fitprove/internal/cache"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/observability"
	"fitprove/internal/reaction"
	"fitprove/internal/repository"

	"github.com/google/uuid"
)

type ReactionService struct {
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	auth         auth.Provider
	cache        *cache.Store
}

func NewReactionService(
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	provider auth.Provider,
	store *cache.Store,
) *ReactionService {
	return &ReactionService{
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		auth:         provider,
		cache:        store,
	}
}

// ToggleReaction applies the toggle rules for the current user against the
// store and returns the recounted state. The cached likes_count is rewritten
// from the recount. Errors are only returned when no write was committed.
func (s *ReactionService) ToggleReaction(ctx context.Context, postID string, t models.ReactionType) (reaction.State, error) {
	span, ctx := observability.StartServiceSpan(ctx, "ReactionService", "ToggleReaction")
	defer span.End()

	if !t.Valid() {
		return reaction.State{}, models.NewValidationError("Invalid reaction type")
	}
	user, err := auth.Require(ctx, s.auth)
	if err != nil {
		return reaction.State{}, authError(err)
	}

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return reaction.State{}, models.NewNotFoundError("post", postID)
		}
		return reaction.State{}, models.NewUpdateError("reaction", err)
	}

	current, err := s.reactionRepo.ForUser(ctx, user.UserID, []string{postID})
	if err != nil {
		return reaction.State{}, models.NewUpdateError("reaction", err)
	}
	previous := current[postID]

	// Pre-write counts back the result if the recount after the write fails.
	before, err := s.reactionRepo.CountsByPost(ctx, []string{postID})
	if err != nil {
		return reaction.State{}, models.NewUpdateError("reaction", err)
	}
	prior := reaction.State{Counts: before[postID].Clone()}
	prior.LikesCount = prior.Counts.Total()
	if previous != "" {
		prior.UserReaction = &previous
	}

	plan := reaction.PlanWrite(previous, t)
	if plan.DeleteExisting {
		if _, err := s.reactionRepo.DeleteForUser(ctx, user.UserID, postID); err != nil {
			span.SetError(err)
			return reaction.State{}, models.NewUpdateError("reaction", err)
		}
	}
	if plan.Insert != "" {
		if err := s.insert(ctx, user.UserID, postID, plan.Insert); err != nil {
			span.SetError(err)
			if plan.DeleteExisting {
				s.restore(ctx, user.UserID, postID, previous)
			}
			return reaction.State{}, models.NewUpdateError("reaction", err)
		}
	}

	// The write is committed from here on; nothing below may fail the call.
	s.cache.InvalidateFeed(ctx)

	counts, err := s.reactionRepo.CountsByPost(ctx, []string{postID})
	if err != nil {
		// Without a recount, likes_count is left for the next toggle to sync.
		observability.Logger.WarnContext(ctx, "reaction recount failed, returning predicted state",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return reaction.Toggle(prior, t), nil
	}
	state := reaction.State{Counts: counts[postID].Clone()}
	state.LikesCount = state.Counts.Total()
	if plan.Insert != "" {
		ins := plan.Insert
		state.UserReaction = &ins
	}

	if err := s.postRepo.SetLikesCount(ctx, postID, state.LikesCount); err != nil {
		observability.Logger.WarnContext(ctx, "likes_count sync failed",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	}
	return state, nil
}

func (s *ReactionService) insert(ctx context.Context, userID, postID string, t models.ReactionType) error {
	return s.reactionRepo.Insert(ctx, &models.Reaction{
		ID:     uuid.NewString(),
		UserID: userID,
		PostID: &postID,
		Type:   t,
	})
}

// restore puts back the row removed by a failed switch.
func (s *ReactionService) restore(ctx context.Context, userID, postID string, previous models.ReactionType) {
	if err := s.insert(ctx, userID, postID, previous); err != nil {
		observability.Logger.ErrorContext(ctx, "failed to restore reaction after failed switch",
			slog.String("post_id", postID),
			slog.String("reaction_type", string(previous)),
			slog.String("error", err.Error()),
		)
	}
}
