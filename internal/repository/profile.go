// Package repository provides typed data access over the persistence gateway.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fitprove/internal/cache"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/observability"
)

// ErrNotOwner means the row exists but belongs to another user.
var ErrNotOwner = errors.New("not owner")

// ProfileRepository loads author projections.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Author, error)
}

type profileRepository struct {
	gw    gateway.Gateway
	cache *cache.Store
}

// NewProfileRepository creates a profile repository. store may be nil.
func NewProfileRepository(gw gateway.Gateway, store *cache.Store) ProfileRepository {
	return &profileRepository{gw: gw, cache: store}
}

func (r *profileRepository) Create(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	err := r.gw.Insert(ctx, "profiles", gateway.Row{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"username":     p.Username,
		"avatar_url":   p.AvatarURL,
		"created_at":   p.CreatedAt,
		"updated_at":   p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	r.cache.Invalidate(ctx, cache.ProfileKey(p.ID))
	return nil
}

// GetByIDs returns authors keyed by profile id. Unknown ids are absent from
// the result. Cached projections are served first; misses are loaded in one
// query and written back.
func (r *profileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Author, error) {
	out := make(map[string]*models.Author, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		var author models.Author
		found, err := r.cache.GetJSON(ctx, cache.ProfileKey(id), &author)
		if err != nil {
			observability.Logger.WarnContext(ctx, "profile cache read failed", slog.String("profile_id", id), slog.String("error", err.Error()))
		}
		if found {
			out[id] = &author
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	var rows []models.Profile
	err := r.gw.Select(ctx, "profiles", gateway.Query{
		Columns: []string{"id", "display_name", "username", "avatar_url"},
		Filters: []gateway.Filter{gateway.In("id", missing)},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	for i := range rows {
		author := rows[i].Author()
		out[author.ID] = author
		if err := r.cache.SetJSON(ctx, cache.ProfileKey(author.ID), author, cache.ProfileTTL); err != nil {
			observability.Logger.WarnContext(ctx, "profile cache write failed", slog.String("profile_id", author.ID), slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// authorColumns are joined from profiles for posts and comments.
var authorColumns = []string{"id", "display_name", "username", "avatar_url"}

func profileJoin() *gateway.Join {
	return &gateway.Join{
		Table:         "profiles",
		LocalColumn:   "user_id",
		ForeignColumn: "id",
		Columns:       authorColumns,
		Prefix:        "author_",
	}
}

// joinedAuthor holds the aliased profile columns of a joined select.
type joinedAuthor struct {
	AuthorID          *string
	AuthorDisplayName *string
	AuthorUsername    *string
	AuthorAvatarURL   *string
}

func (j joinedAuthor) author() *models.Author {
	if j.AuthorID == nil || *j.AuthorID == "" {
		return nil
	}
	a := &models.Author{ID: *j.AuthorID}
	if j.AuthorDisplayName != nil {
		a.DisplayName = *j.AuthorDisplayName
	}
	if j.AuthorUsername != nil {
		a.Username = *j.AuthorUsername
	}
	if j.AuthorAvatarURL != nil {
		a.AvatarURL = *j.AuthorAvatarURL
	}
	return a
}

// lookupAuthors is the batch fallback used when the join is unavailable.
// A failed lookup leaves authors empty rather than failing the read.
func lookupAuthors(ctx context.Context, profiles ProfileRepository, userIDs []string) map[string]*models.Author {
	if profiles == nil || len(userIDs) == 0 {
		return nil
	}
	authors, err := profiles.GetByIDs(ctx, userIDs)
	if err != nil {
		observability.Logger.WarnContext(ctx, "author lookup failed", slog.String("error", err.Error()))
		return nil
	}
	return authors
}
