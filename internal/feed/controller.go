// Package feed holds the client-side feed state: the ordered post list,
// per-post edit and delete status, optimistic reactions and lazily loaded
// comment threads.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fitprove/internal/auth"
	"fitprove/internal/featureflags"
	"fitprove/internal/models"
	"fitprove/internal/observability"
	"fitprove/internal/reaction"
	"fitprove/internal/service"
	"fitprove/internal/thread"

	"github.com/google/uuid"
)

// ErrBusy means the post is in a state that does not allow the operation.
var ErrBusy = errors.New("post has an operation in progress")

type PostService interface {
	LoadPosts(ctx context.Context, limit int) ([]*models.Post, error)
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, postID, content string) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
}

type ReactionService interface {
	ToggleReaction(ctx context.Context, postID string, t models.ReactionType) (reaction.State, error)
}

type CommentService interface {
	CreateComment(ctx context.Context, in service.CreateCommentInput) (*models.Comment, error)
	LoadThread(ctx context.Context, postID string) ([]*thread.Node, error)
}

// Status is the client-visible state of one post.
type Status int

const (
	Viewing Status = iota
	Editing
	Saving
	PendingDelete
)

func (s Status) String() string {
	switch s {
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	case PendingDelete:
		return "pending_delete"
	default:
		return "viewing"
	}
}

// PressResult is the outcome of a press on a post's reaction button.
type PressResult struct {
	Action reaction.PressAction
	// State is set when the press toggled the default reaction.
	State reaction.State
	// Choices lists the picker options when the press opened the picker.
	Choices []models.ReactionType
}

type entry struct {
	post   *models.Post
	status Status
	// pending marks an optimistic placeholder not yet confirmed by the store.
	pending bool
	// toggling is set while a reaction write for the post is in flight.
	toggling bool
}

type commentPanel struct {
	loaded bool
	nodes  []*thread.Node
	err    error
}

// Controller owns the in-memory feed. The mutex is never held across a
// service call. Reaction toggles on one post never overlap; other
// overlapping operations resolve in favor of the last response to arrive.
type Controller struct {
	posts     PostService
	reactions ReactionService
	comments  CommentService
	auth      auth.Provider
	flags     *featureflags.Manager
	logger    *slog.Logger

	mu     sync.Mutex
	order  []string
	byID   map[string]*entry
	panels map[string]*commentPanel
}

// NewController wires a controller. flags may be nil.
func NewController(posts PostService, reactions ReactionService, comments CommentService, provider auth.Provider, flags *featureflags.Manager) *Controller {
	return &Controller{
		posts:     posts,
		reactions: reactions,
		comments:  comments,
		auth:      provider,
		flags:     flags,
		logger:    observability.Logger.With(slog.String("component", "feed")),
		byID:      make(map[string]*entry),
		panels:    make(map[string]*commentPanel),
	}
}

// LoadPosts replaces the list with the newest page. On failure the previous
// list is left untouched. Unconfirmed placeholders stay on top.
func (c *Controller) LoadPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := c.posts.LoadPosts(ctx, 0)
	if err != nil {
		c.logger.WarnContext(ctx, "feed load failed", slog.String("error", err.Error()))
		return nil, asAppError(err, models.NewFetchError("posts", err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order := make([]string, 0, len(posts)+len(c.order))
	byID := make(map[string]*entry, len(posts)+len(c.order))
	for _, id := range c.order {
		if e := c.byID[id]; e.pending {
			order = append(order, id)
			byID[id] = e
		}
	}
	for _, p := range posts {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		e := &entry{post: p.Clone()}
		if prev, ok := c.byID[p.ID]; ok {
			e.status = prev.status
			e.toggling = prev.toggling
		}
		order = append(order, p.ID)
		byID[p.ID] = e
	}
	for id := range c.panels {
		if _, ok := byID[id]; !ok {
			delete(c.panels, id)
		}
	}
	c.order = order
	c.byID = byID
	return c.snapshotLocked(), nil
}

// CreatePost validates, shows a placeholder at the top of the list, and
// swaps it for the stored row. The placeholder is removed on failure.
func (c *Controller) CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	if err := service.ValidatePostInput(&in); err != nil {
		return nil, err
	}
	user, err := auth.Require(ctx, c.auth)
	if err != nil {
		return nil, models.NewAuthRequiredError()
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	placeholder := &models.Post{
		ID:             in.ID,
		UserID:         user.UserID,
		Content:        in.Content,
		MediaURLs:      in.MediaURLs,
		Category:       in.Category,
		WorkoutID:      in.WorkoutID,
		AchievementID:  in.AchievementID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ReactionCounts: models.ReactionCounts{},
	}
	c.mu.Lock()
	if _, exists := c.byID[in.ID]; exists {
		c.mu.Unlock()
		return nil, models.NewValidationError("Post id already in use")
	}
	c.prependLocked(&entry{post: placeholder, pending: true})
	c.mu.Unlock()

	created, err := c.posts.CreatePost(ctx, in)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.removeLocked(in.ID)
		observability.OptimisticRollbacks.WithLabelValues("create").Inc()
		c.logger.WarnContext(ctx, "post create rolled back", slog.String("post_id", in.ID), slog.String("error", err.Error()))
		return nil, asAppError(err, models.NewCreateError("post", err))
	}

	stored := created.Clone()
	if stored.ReactionCounts == nil {
		stored.ReactionCounts = models.ReactionCounts{}
	}
	if e, ok := c.byID[in.ID]; ok {
		e.post = stored
		e.pending = false
	} else {
		c.prependLocked(&entry{post: stored})
	}
	return stored.Clone(), nil
}

// BeginEdit moves a post from Viewing to Editing.
func (c *Controller) BeginEdit(postID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.settledLocked(postID)
	if err != nil {
		return err
	}
	switch e.status {
	case Editing:
		return nil
	case Viewing:
		e.status = Editing
		return nil
	}
	return ErrBusy
}

// CancelEdit leaves the editor without saving.
func (c *Controller) CancelEdit(postID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.settledLocked(postID)
	if err != nil {
		return err
	}
	if e.status == Editing {
		e.status = Viewing
	}
	return nil
}

// UpdatePost saves new content. Content and updated_at come from the
// stored row; the local reaction projection is kept.
func (c *Controller) UpdatePost(ctx context.Context, postID, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Post content is required")
	}

	c.mu.Lock()
	e, err := c.settledLocked(postID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if e.status == PendingDelete {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	prev := e.status
	if prev == Saving {
		prev = Editing
	}
	e.status = Saving
	c.mu.Unlock()

	updated, err := c.posts.UpdatePost(ctx, postID, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.byID[postID]
	if err != nil {
		if ok && current.status == Saving {
			current.status = prev
		}
		c.logger.WarnContext(ctx, "post update failed", slog.String("post_id", postID), slog.String("error", err.Error()))
		return nil, asAppError(err, models.NewUpdateError("post", err))
	}
	if !ok {
		// Deleted while saving.
		return updated.Clone(), nil
	}
	current.post.Content = updated.Content
	current.post.UpdatedAt = updated.UpdatedAt
	if current.status == Saving {
		current.status = Viewing
	}
	return current.post.Clone(), nil
}

// DeletePost removes the post once the store confirms. On failure the post
// stays and returns to Viewing.
func (c *Controller) DeletePost(ctx context.Context, postID string) error {
	c.mu.Lock()
	e, err := c.settledLocked(postID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	e.status = PendingDelete
	c.mu.Unlock()

	err = c.posts.DeletePost(ctx, postID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if current, ok := c.byID[postID]; ok {
			current.status = Viewing
		}
		c.logger.WarnContext(ctx, "post delete failed", slog.String("post_id", postID), slog.String("error", err.Error()))
		return asAppError(err, models.NewDeleteError("post", err))
	}
	c.removeLocked(postID)
	return nil
}

// ToggleReaction applies the predicted toggle at once, then adopts the
// stored state, or restores the snapshot when the write fails. One toggle
// per post runs at a time; a second one gets ErrBusy.
func (c *Controller) ToggleReaction(ctx context.Context, postID string, t models.ReactionType) (reaction.State, error) {
	if !t.Valid() {
		return reaction.State{}, models.NewValidationError("Invalid reaction type")
	}
	if _, err := auth.Require(ctx, c.auth); err != nil {
		return reaction.State{}, models.NewAuthRequiredError()
	}

	c.mu.Lock()
	e, err := c.settledLocked(postID)
	if err == nil && e.toggling {
		err = ErrBusy
	}
	if err != nil {
		c.mu.Unlock()
		return reaction.State{}, err
	}
	snapshot := reaction.FromPost(e.post)
	predicted := reaction.Toggle(snapshot, t)
	predicted.ApplyTo(e.post)
	e.toggling = true
	c.mu.Unlock()

	server, err := c.reactions.ToggleReaction(ctx, postID, t)

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.byID[postID]
	if ok {
		current.toggling = false
	}
	if err != nil {
		if ok {
			snapshot.ApplyTo(current.post)
		}
		observability.OptimisticRollbacks.WithLabelValues("reaction").Inc()
		c.logger.WarnContext(ctx, "reaction rolled back",
			slog.String("post_id", postID),
			slog.String("reaction_type", string(t)),
			slog.String("error", err.Error()),
		)
		return snapshot, asAppError(err, models.NewUpdateError("reaction", err))
	}
	if !server.Equal(predicted) {
		observability.ReconciledReactions.Inc()
		c.logger.InfoContext(ctx, "reaction reconciled with stored state",
			slog.String("post_id", postID),
			slog.Int("predicted_likes", predicted.LikesCount),
			slog.Int("stored_likes", server.LikesCount),
		)
	}
	if ok {
		server.ApplyTo(current.post)
	}
	return server, nil
}

// Press resolves a press on the reaction button. A long press opens the
// picker without changing state unless the picker is switched off.
func (c *Controller) Press(ctx context.Context, postID string, held time.Duration) (PressResult, error) {
	action := reaction.ResolvePress(held)
	if action == reaction.OpenPicker {
		var userID string
		if id := auth.Optional(ctx, c.auth); id != nil {
			userID = id.UserID
		}
		if c.flags.EnabledOr(featureflags.ReactionPicker, userID, true) {
			c.mu.Lock()
			_, err := c.settledLocked(postID)
			c.mu.Unlock()
			if err != nil {
				return PressResult{}, err
			}
			return PressResult{
				Action:  reaction.OpenPicker,
				Choices: append([]models.ReactionType(nil), models.ReactionTypes...),
			}, nil
		}
	}

	state, err := c.ToggleReaction(ctx, postID, reaction.DefaultType)
	if err != nil {
		return PressResult{}, err
	}
	return PressResult{Action: reaction.ToggleDefault, State: state}, nil
}

// ExpandComments loads a post's thread the first time it is opened. Later
// calls serve the loaded thread. Failures are recorded on the panel and
// never affect the rest of the feed.
func (c *Controller) ExpandComments(ctx context.Context, postID string) ([]*thread.Node, error) {
	c.mu.Lock()
	if _, err := c.settledLocked(postID); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if p, ok := c.panels[postID]; ok && p.loaded {
		nodes := thread.Clone(p.nodes)
		c.mu.Unlock()
		return nodes, nil
	}
	c.mu.Unlock()

	return c.reloadComments(ctx, postID)
}

// CreateComment posts a comment or reply, then reloads the whole thread.
func (c *Controller) CreateComment(ctx context.Context, postID, content string, parentID *string) ([]*thread.Node, error) {
	if _, err := service.ValidateCommentContent(content); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, err := c.settledLocked(postID); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if parentID != nil && *parentID != "" {
		if p, ok := c.panels[postID]; ok && p.loaded {
			if node := thread.Find(p.nodes, *parentID); node != nil && !node.CanReply {
				c.mu.Unlock()
				return nil, models.NewValidationError("Maximum reply depth reached")
			}
		}
	}
	c.mu.Unlock()

	if _, err := c.comments.CreateComment(ctx, service.CreateCommentInput{
		PostID:   postID,
		Content:  content,
		ParentID: parentID,
	}); err != nil {
		c.logger.WarnContext(ctx, "comment create failed", slog.String("post_id", postID), slog.String("error", err.Error()))
		return nil, asAppError(err, models.NewCreateError("comment", err))
	}
	return c.reloadComments(ctx, postID)
}

func (c *Controller) reloadComments(ctx context.Context, postID string) ([]*thread.Node, error) {
	nodes, err := c.comments.LoadThread(ctx, postID)

	c.mu.Lock()
	defer c.mu.Unlock()
	panel, ok := c.panels[postID]
	if !ok {
		panel = &commentPanel{}
	}
	if err != nil {
		panel.err = err
		panel.loaded = false
		if _, live := c.byID[postID]; live {
			c.panels[postID] = panel
		}
		c.logger.WarnContext(ctx, "comment load failed", slog.String("post_id", postID), slog.String("error", err.Error()))
		return nil, asAppError(err, models.NewFetchError("comments", err))
	}

	panel.loaded = true
	panel.err = nil
	panel.nodes = nodes
	if e, live := c.byID[postID]; live {
		c.panels[postID] = panel
		e.post.CommentsCount = thread.Count(nodes)
	}
	return thread.Clone(nodes), nil
}

// Posts returns a copy of the list, newest first.
func (c *Controller) Posts() []*models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Post returns a copy of one post.
func (c *Controller) Post(postID string) (*models.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[postID]
	if !ok {
		return nil, false
	}
	return e.post.Clone(), true
}

// Status reports a post's state. pending is true for an unconfirmed
// placeholder and while a reaction toggle is in flight.
func (c *Controller) Status(postID string) (status Status, pending bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[postID]
	if !ok {
		return Viewing, false, false
	}
	return e.status, e.pending || e.toggling, true
}

// Comments returns the loaded thread of a post, if any, and the last load
// error.
func (c *Controller) Comments(postID string) ([]*thread.Node, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.panels[postID]
	if !ok {
		return nil, false, nil
	}
	return thread.Clone(p.nodes), p.loaded, p.err
}

// settledLocked returns a confirmed post or an error. Callers hold c.mu.
func (c *Controller) settledLocked(postID string) (*entry, error) {
	e, ok := c.byID[postID]
	if !ok {
		return nil, models.NewNotFoundError("post", postID)
	}
	if e.pending {
		return nil, ErrBusy
	}
	return e, nil
}

func (c *Controller) prependLocked(e *entry) {
	c.order = append([]string{e.post.ID}, c.order...)
	c.byID[e.post.ID] = e
}

func (c *Controller) removeLocked(postID string) {
	if _, ok := c.byID[postID]; !ok {
		return
	}
	delete(c.byID, postID)
	delete(c.panels, postID)
	for i, id := range c.order {
		if id == postID {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Controller) snapshotLocked() []*models.Post {
	out := make([]*models.Post, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].post.Clone())
	}
	return out
}

// asAppError passes AppErrors through and wraps anything else.
func asAppError(err error, fallback *models.AppError) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fallback
}
