package repository

import (
	"context"
	"testing"
	"time"

	"fitprove/internal/cache"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateListCount(t *testing.T) {
	gw, db := setupTestGateway(t)
	ctx := context.Background()
	erin := testutil.CreateProfile(t, db, "erin")
	post := testutil.CreatePost(t, db, erin.ID, "p", 0)
	repo := NewCommentRepository(gw, NewProfileRepository(gw, nil), nil)

	root := &models.Comment{ID: uuid.NewString(), PostID: post.ID, UserID: erin.ID, Content: "first", CreatedAt: time.Now().UTC().Add(-time.Minute)}
	require.NoError(t, repo.Create(ctx, root))
	reply := &models.Comment{ID: uuid.NewString(), PostID: post.ID, UserID: erin.ID, Content: "reply", ParentID: &root.ID}
	require.NoError(t, repo.Create(ctx, reply))

	got, err := repo.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, root.ID, *got.ParentID)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "reply", list[1].Content)
	require.NotNil(t, list[0].Author)
	assert.Equal(t, "erin", list[0].Author.Username)

	n, err := repo.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountByPost(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProfileRepository_GetByIDsUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client, err := cache.Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	store := cache.NewStore(client)

	inner, db := setupTestGateway(t)
	ctx := context.Background()
	frank := testutil.CreateProfile(t, db, "frank")
	gina := testutil.CreateProfile(t, db, "gina")

	selects := 0
	stub := &gatewayStub{
		next: inner,
		selectFn: func(ctx context.Context, table string, q gateway.Query, dest any) error {
			selects++
			return inner.Select(ctx, table, q, dest)
		},
	}
	repo := NewProfileRepository(stub, store)

	authors, err := repo.GetByIDs(ctx, []string{frank.ID, gina.ID, frank.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, authors, 2)
	assert.Equal(t, "gina", authors[gina.ID].Username)
	assert.Equal(t, 1, selects)
	assert.True(t, mr.Exists(cache.ProfileKey(frank.ID)))

	authors, err = repo.GetByIDs(ctx, []string{frank.ID, gina.ID})
	require.NoError(t, err)
	assert.Len(t, authors, 2)
	assert.Equal(t, 1, selects, "second lookup must be served from cache")

	require.NoError(t, repo.Create(ctx, &models.Profile{ID: uuid.NewString(), Username: "hana", DisplayName: "Hana"}))
}
