package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitprove/internal/auth"
	"fitprove/internal/featureflags"
	"fitprove/internal/gateway"
	"fitprove/internal/models"
	"fitprove/internal/reaction"
	"fitprove/internal/service"
	"fitprove/internal/thread"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewerID = "11111111-1111-1111-1111-111111111111"

type postServiceStub struct {
	loadFn   func(context.Context, int) ([]*models.Post, error)
	createFn func(context.Context, service.CreatePostInput) (*models.Post, error)
	updateFn func(context.Context, string, string) (*models.Post, error)
	deleteFn func(context.Context, string) error
}

func (s *postServiceStub) LoadPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.loadFn(ctx, limit)
}
func (s *postServiceStub) CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	return s.createFn(ctx, in)
}
func (s *postServiceStub) UpdatePost(ctx context.Context, id, content string) (*models.Post, error) {
	return s.updateFn(ctx, id, content)
}
func (s *postServiceStub) DeletePost(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

type reactionServiceStub struct {
	toggleFn func(context.Context, string, models.ReactionType) (reaction.State, error)
}

func (s *reactionServiceStub) ToggleReaction(ctx context.Context, id string, t models.ReactionType) (reaction.State, error) {
	return s.toggleFn(ctx, id, t)
}

type commentServiceStub struct {
	createFn func(context.Context, service.CreateCommentInput) (*models.Comment, error)
	loadFn   func(context.Context, string) ([]*thread.Node, error)
}

func (s *commentServiceStub) CreateComment(ctx context.Context, in service.CreateCommentInput) (*models.Comment, error) {
	return s.createFn(ctx, in)
}
func (s *commentServiceStub) LoadThread(ctx context.Context, id string) ([]*thread.Node, error) {
	return s.loadFn(ctx, id)
}

func seededPosts() []*models.Post {
	love := models.ReactionLove
	return []*models.Post{
		{ID: "p3", Content: "newest", LikesCount: 2, ReactionCounts: models.ReactionCounts{models.ReactionLove: 1, models.ReactionFire: 1}, UserReaction: &love},
		{ID: "p2", Content: "middle", ReactionCounts: models.ReactionCounts{}},
		{ID: "p1", Content: "oldest", ReactionCounts: models.ReactionCounts{}},
	}
}

type stubs struct {
	posts     *postServiceStub
	reactions *reactionServiceStub
	comments  *commentServiceStub
}

func newStubs() *stubs {
	return &stubs{
		posts: &postServiceStub{
			loadFn: func(context.Context, int) ([]*models.Post, error) { return seededPosts(), nil },
			createFn: func(_ context.Context, in service.CreatePostInput) (*models.Post, error) {
				return &models.Post{ID: in.ID, UserID: viewerID, Content: in.Content, Category: in.Category, CreatedAt: time.Now()}, nil
			},
			updateFn: func(_ context.Context, id, content string) (*models.Post, error) {
				return &models.Post{ID: id, Content: content, UpdatedAt: time.Now()}, nil
			},
			deleteFn: func(context.Context, string) error { return nil },
		},
		reactions: &reactionServiceStub{
			toggleFn: func(context.Context, string, models.ReactionType) (reaction.State, error) {
				return reaction.State{}, errors.New("not configured")
			},
		},
		comments: &commentServiceStub{
			createFn: func(_ context.Context, in service.CreateCommentInput) (*models.Comment, error) {
				return &models.Comment{ID: "new", PostID: in.PostID, Content: in.Content, ParentID: in.ParentID}, nil
			},
			loadFn: func(context.Context, string) ([]*thread.Node, error) { return []*thread.Node{}, nil },
		},
	}
}

func (s *stubs) controller(provider auth.Provider, flags *featureflags.Manager) *Controller {
	return NewController(s.posts, s.reactions, s.comments, provider, flags)
}

func loaded(t *testing.T, s *stubs) *Controller {
	t.Helper()
	c := s.controller(auth.StaticProvider{UserID: viewerID}, nil)
	_, err := c.LoadPosts(context.Background())
	require.NoError(t, err)
	return c
}

func ids(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestController_LoadPostsFailureKeepsList(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	s.posts.loadFn = func(context.Context, int) ([]*models.Post, error) {
		return nil, models.NewFetchError("posts", gateway.ErrTimeout)
	}
	_, err := c.LoadPosts(context.Background())
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeFetch))
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(c.Posts()))
}

func TestController_SnapshotsAreCopies(t *testing.T) {
	c := loaded(t, newStubs())

	posts := c.Posts()
	posts[0].Content = "mutated"
	posts[0].ReactionCounts[models.ReactionFire] = 99

	p, ok := c.Post("p3")
	require.True(t, ok)
	assert.Equal(t, "newest", p.Content)
	assert.Equal(t, 1, p.ReactionCounts.Get(models.ReactionFire))
}

func TestController_CreatePostValidation(t *testing.T) {
	s := newStubs()
	called := false
	s.posts.createFn = func(context.Context, service.CreatePostInput) (*models.Post, error) {
		called = true
		return nil, nil
	}
	c := loaded(t, s)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := c.CreatePost(context.Background(), service.CreatePostInput{Content: content})
		assert.True(t, models.HasCode(err, models.CodeValidation))
	}
	assert.False(t, called)
	assert.Len(t, c.Posts(), 3)
}

func TestController_CreatePostRequiresAuth(t *testing.T) {
	s := newStubs()
	c := s.controller(auth.StaticProvider{}, nil)

	_, err := c.CreatePost(context.Background(), service.CreatePostInput{Content: "hi"})
	assert.True(t, models.HasCode(err, models.CodeAuthRequired))
	assert.Empty(t, c.Posts())
}

func TestController_CreatePostShowsPlaceholder(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	release := make(chan struct{})
	started := make(chan string)
	s.posts.createFn = func(_ context.Context, in service.CreatePostInput) (*models.Post, error) {
		started <- in.ID
		<-release
		return &models.Post{ID: in.ID, UserID: viewerID, Content: in.Content, LikesCount: 0}, nil
	}

	done := make(chan *models.Post)
	go func() {
		p, err := c.CreatePost(context.Background(), service.CreatePostInput{Content: "Leg day done 💪"})
		assert.NoError(t, err)
		done <- p
	}()

	id := <-started
	posts := c.Posts()
	require.Len(t, posts, 4)
	assert.Equal(t, id, posts[0].ID)
	assert.Equal(t, "Leg day done 💪", posts[0].Content)
	_, pending, _ := c.Status(id)
	assert.True(t, pending)
	assert.ErrorIs(t, c.BeginEdit(id), ErrBusy)

	close(release)
	created := <-done
	assert.Equal(t, id, created.ID)
	_, pending, _ = c.Status(id)
	assert.False(t, pending)
	assert.Equal(t, []string{id, "p3", "p2", "p1"}, ids(c.Posts()))
}

func TestController_CreatePostRollsBack(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)
	s.posts.createFn = func(context.Context, service.CreatePostInput) (*models.Post, error) {
		return nil, models.NewCreateError("post", errors.New("insert rejected"))
	}

	_, err := c.CreatePost(context.Background(), service.CreatePostInput{Content: "hi"})
	assert.True(t, models.HasCode(err, models.CodeCreate))
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(c.Posts()))
}

func TestController_EditFlowPreservesReactions(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	require.NoError(t, c.BeginEdit("p3"))
	status, _, _ := c.Status("p3")
	assert.Equal(t, Editing, status)

	updated, err := c.UpdatePost(context.Background(), "p3", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	require.NotNil(t, updated.UserReaction)
	assert.Equal(t, models.ReactionLove, *updated.UserReaction)
	assert.Equal(t, 2, updated.LikesCount)
	assert.Equal(t, 1, updated.ReactionCounts.Get(models.ReactionFire))
	assert.True(t, updated.IsLiked())

	status, _, _ = c.Status("p3")
	assert.Equal(t, Viewing, status)
}

func TestController_EditStates(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	require.NoError(t, c.BeginEdit("p2"))
	require.NoError(t, c.CancelEdit("p2"))
	status, _, _ := c.Status("p2")
	assert.Equal(t, Viewing, status)

	_, err := c.UpdatePost(context.Background(), "p2", "   ")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	err = c.BeginEdit("missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, c.BeginEdit("p2"))
	s.posts.updateFn = func(context.Context, string, string) (*models.Post, error) {
		return nil, models.NewUpdateError("post", gateway.ErrTimeout)
	}
	_, err = c.UpdatePost(context.Background(), "p2", "new text")
	assert.True(t, models.HasCode(err, models.CodeUpdate))
	status, _, _ = c.Status("p2")
	assert.Equal(t, Editing, status, "a failed save returns to the editor")
	p, _ := c.Post("p2")
	assert.Equal(t, "middle", p.Content)
}

func TestController_SavingStateDuringUpdate(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	s.posts.updateFn = func(_ context.Context, id, content string) (*models.Post, error) {
		close(inFlight)
		<-release
		return &models.Post{ID: id, Content: content}, nil
	}

	done := make(chan error)
	go func() {
		_, err := c.UpdatePost(context.Background(), "p1", "slow save")
		done <- err
	}()

	<-inFlight
	status, _, _ := c.Status("p1")
	assert.Equal(t, Saving, status)
	assert.ErrorIs(t, c.BeginEdit("p1"), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	status, _, _ = c.Status("p1")
	assert.Equal(t, Viewing, status)
}

func TestController_DeleteIsNotOptimistic(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	s.posts.deleteFn = func(context.Context, string) error {
		close(inFlight)
		<-release
		return nil
	}

	done := make(chan error)
	go func() { done <- c.DeletePost(context.Background(), "p2") }()

	<-inFlight
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(c.Posts()), "post stays visible until confirmed")
	status, _, _ := c.Status("p2")
	assert.Equal(t, PendingDelete, status)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"p3", "p1"}, ids(c.Posts()))
	_, ok := c.Post("p2")
	assert.False(t, ok)
}

func TestController_DeleteFailureKeepsPost(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)
	s.posts.deleteFn = func(context.Context, string) error {
		return models.NewDeleteError("post", errors.New("network down"))
	}

	err := c.DeletePost(context.Background(), "p2")
	assert.True(t, models.HasCode(err, models.CodeDelete))
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(c.Posts()))
	status, _, _ := c.Status("p2")
	assert.Equal(t, Viewing, status)
}

func TestController_ToggleReactionRollsBack(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	s.reactions.toggleFn = func(context.Context, string, models.ReactionType) (reaction.State, error) {
		close(inFlight)
		<-release
		return reaction.State{}, models.NewUpdateError("reaction", gateway.ErrTimeout)
	}

	done := make(chan error)
	go func() {
		_, err := c.ToggleReaction(context.Background(), "p2", models.ReactionFire)
		done <- err
	}()

	<-inFlight
	p, _ := c.Post("p2")
	assert.Equal(t, 1, p.LikesCount, "prediction is visible while the write is in flight")
	assert.Equal(t, 1, p.ReactionCounts.Get(models.ReactionFire))
	status, pending, ok := c.Status("p2")
	require.True(t, ok)
	assert.Equal(t, Viewing, status)
	assert.True(t, pending)

	close(release)
	err := <-done
	assert.True(t, models.HasCode(err, models.CodeUpdate))
	p, _ = c.Post("p2")
	assert.Zero(t, p.LikesCount)
	assert.Zero(t, p.ReactionCounts.Get(models.ReactionFire))
	assert.Nil(t, p.UserReaction)
	_, pending, _ = c.Status("p2")
	assert.False(t, pending)
}

func TestController_ToggleReactionRejectsOverlap(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	s.reactions.toggleFn = func(context.Context, string, models.ReactionType) (reaction.State, error) {
		calls++
		close(inFlight)
		<-release
		return reaction.State{}, models.NewUpdateError("reaction", gateway.ErrTimeout)
	}

	done := make(chan error)
	go func() {
		_, err := c.ToggleReaction(context.Background(), "p2", models.ReactionFire)
		done <- err
	}()
	<-inFlight

	_, err := c.ToggleReaction(context.Background(), "p2", models.ReactionLove)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Press(context.Background(), "p2", 0)
	assert.ErrorIs(t, err, ErrBusy)

	// Reloading the feed keeps the post marked busy.
	_, err = c.LoadPosts(context.Background())
	require.NoError(t, err)
	_, pending, _ := c.Status("p2")
	assert.True(t, pending)

	close(release)
	require.Error(t, <-done)
	assert.Equal(t, 1, calls)

	p, _ := c.Post("p2")
	assert.Nil(t, p.UserReaction, "the failed toggle restores the state before it")
	assert.Zero(t, p.ReactionCounts.Get(models.ReactionLove))
}

func TestController_ToggleReactionRecountFallbackIsAdopted(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	// The service answers with its predicted state when the recount fails.
	s.reactions.toggleFn = func(_ context.Context, _ string, rt models.ReactionType) (reaction.State, error) {
		return reaction.Toggle(reaction.State{Counts: models.ReactionCounts{}}, rt), nil
	}
	state, err := c.ToggleReaction(context.Background(), "p2", models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLike, state.Current())

	p, _ := c.Post("p2")
	require.NotNil(t, p.UserReaction)
	assert.Equal(t, models.ReactionLike, *p.UserReaction)
	assert.Equal(t, 1, p.LikesCount)
}

func TestController_ToggleReactionAdoptsServerTruth(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)
	fire := models.ReactionFire
	s.reactions.toggleFn = func(context.Context, string, models.ReactionType) (reaction.State, error) {
		// Another user reacted meanwhile.
		return reaction.State{
			UserReaction: &fire,
			Counts:       models.ReactionCounts{models.ReactionFire: 1, models.ReactionStrong: 1},
			LikesCount:   2,
		}, nil
	}

	state, err := c.ToggleReaction(context.Background(), "p2", models.ReactionFire)
	require.NoError(t, err)
	assert.Equal(t, 2, state.LikesCount)
	p, _ := c.Post("p2")
	assert.Equal(t, 2, p.LikesCount)
	assert.Equal(t, 1, p.ReactionCounts.Get(models.ReactionStrong))
}

func TestController_ToggleReactionGuards(t *testing.T) {
	s := newStubs()
	c := loaded(t, s)

	_, err := c.ToggleReaction(context.Background(), "p2", "meh")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = c.ToggleReaction(context.Background(), "missing", models.ReactionLike)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	anon := s.controller(auth.StaticProvider{}, nil)
	_, err = anon.ToggleReaction(context.Background(), "p2", models.ReactionLike)
	assert.True(t, models.HasCode(err, models.CodeAuthRequired))
}

func TestController_Press(t *testing.T) {
	s := newStubs()
	var toggled []models.ReactionType
	s.reactions.toggleFn = func(_ context.Context, _ string, rt models.ReactionType) (reaction.State, error) {
		toggled = append(toggled, rt)
		picked := rt
		return reaction.State{UserReaction: &picked, Counts: models.ReactionCounts{rt: 1}, LikesCount: 1}, nil
	}
	c := loaded(t, s)
	ctx := context.Background()

	res, err := c.Press(ctx, "p2", 120*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, reaction.ToggleDefault, res.Action)
	assert.Equal(t, models.ReactionLike, res.State.Current())

	before, _ := c.Post("p1")
	res, err = c.Press(ctx, "p1", reaction.LongPressThreshold)
	require.NoError(t, err)
	assert.Equal(t, reaction.OpenPicker, res.Action)
	assert.Equal(t, models.ReactionTypes, res.Choices)
	after, _ := c.Post("p1")
	assert.Equal(t, before, after, "opening the picker must not change state")
	assert.Equal(t, []models.ReactionType{models.ReactionLike}, toggled)

	noPicker := NewController(s.posts, s.reactions, s.comments, auth.StaticProvider{UserID: viewerID}, featureflags.NewManager("reaction_picker=off"))
	_, err = noPicker.LoadPosts(ctx)
	require.NoError(t, err)
	res, err = noPicker.Press(ctx, "p1", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, reaction.ToggleDefault, res.Action)
}

func commentTree() []*models.Comment {
	base := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	parent := func(id string) *string { return &id }
	return []*models.Comment{
		{ID: "c0", PostID: "p3", CreatedAt: base},
		{ID: "c1", PostID: "p3", ParentID: parent("c0"), CreatedAt: base.Add(time.Minute)},
		{ID: "c2", PostID: "p3", ParentID: parent("c1"), CreatedAt: base.Add(2 * time.Minute)},
		{ID: "c3", PostID: "p3", ParentID: parent("c2"), CreatedAt: base.Add(3 * time.Minute)},
	}
}

func TestController_ExpandCommentsIsLazy(t *testing.T) {
	s := newStubs()
	loads := 0
	s.comments.loadFn = func(context.Context, string) ([]*thread.Node, error) {
		loads++
		return thread.Build(commentTree()), nil
	}
	c := loaded(t, s)
	ctx := context.Background()

	_, isLoaded, _ := c.Comments("p3")
	assert.False(t, isLoaded)

	nodes, err := c.ExpandComments(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, 4, thread.Count(nodes))
	_, err = c.ExpandComments(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	p, _ := c.Post("p3")
	assert.Equal(t, 4, p.CommentsCount)
}

func TestController_ExpandCommentsFailureIsLocal(t *testing.T) {
	s := newStubs()
	s.comments.loadFn = func(_ context.Context, id string) ([]*thread.Node, error) {
		if id == "p3" {
			return nil, models.NewFetchError("comments", gateway.ErrTimeout)
		}
		return []*thread.Node{}, nil
	}
	c := loaded(t, s)
	ctx := context.Background()

	_, err := c.ExpandComments(ctx, "p3")
	assert.True(t, models.HasCode(err, models.CodeFetch))
	_, isLoaded, loadErr := c.Comments("p3")
	assert.False(t, isLoaded)
	assert.Error(t, loadErr)

	_, err = c.ExpandComments(ctx, "p2")
	assert.NoError(t, err)
	assert.Len(t, c.Posts(), 3)
}

func TestController_CreateCommentReloadsThread(t *testing.T) {
	s := newStubs()
	rows := commentTree()[:1]
	s.comments.createFn = func(_ context.Context, in service.CreateCommentInput) (*models.Comment, error) {
		c := &models.Comment{ID: "c-new", PostID: in.PostID, Content: in.Content, ParentID: in.ParentID, CreatedAt: time.Now()}
		rows = append(rows, c)
		return c, nil
	}
	s.comments.loadFn = func(context.Context, string) ([]*thread.Node, error) {
		return thread.Build(rows), nil
	}
	c := loaded(t, s)

	parent := "c0"
	nodes, err := c.CreateComment(context.Background(), "p3", "nice", &parent)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Replies, 1)
	assert.Equal(t, "c-new", nodes[0].Replies[0].Comment.ID)

	p, _ := c.Post("p3")
	assert.Equal(t, 2, p.CommentsCount)
}

func TestController_CreateCommentDepthLimit(t *testing.T) {
	s := newStubs()
	created := 0
	s.comments.createFn = func(context.Context, service.CreateCommentInput) (*models.Comment, error) {
		created++
		return &models.Comment{}, nil
	}
	s.comments.loadFn = func(context.Context, string) ([]*thread.Node, error) {
		return thread.Build(commentTree()), nil
	}
	c := loaded(t, s)
	ctx := context.Background()

	_, err := c.ExpandComments(ctx, "p3")
	require.NoError(t, err)

	deepest := "c3"
	_, err = c.CreateComment(ctx, "p3", "too deep", &deepest)
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Zero(t, created)

	allowed := "c2"
	_, err = c.CreateComment(ctx, "p3", "still fine", &allowed)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	_, err = c.CreateComment(ctx, "p3", "   ", nil)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}
