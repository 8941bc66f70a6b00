package service

import (
	"context"
	"errors"
	"testing"

	"fitprove/internal/auth"
	"fitprove/internal/gateway"
	"fitprove/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn           func(context.Context, *models.Post) (*models.Post, error)
	getByIDFn          func(context.Context, string) (*models.Post, error)
	listRecentFn       func(context.Context, int) ([]*models.Post, error)
	updateContentFn    func(context.Context, string, string, string) (*models.Post, error)
	deleteFn           func(context.Context, string, string) error
	setLikesCountFn    func(context.Context, string, int) error
	setCommentsCountFn func(context.Context, string, int) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.listRecentFn(ctx, limit)
}
func (s *postRepoStub) UpdateContent(ctx context.Context, id, userID, content string) (*models.Post, error) {
	return s.updateContentFn(ctx, id, userID, content)
}
func (s *postRepoStub) Delete(ctx context.Context, id, userID string) error {
	return s.deleteFn(ctx, id, userID)
}
func (s *postRepoStub) SetLikesCount(ctx context.Context, id string, n int) error {
	return s.setLikesCountFn(ctx, id, n)
}
func (s *postRepoStub) SetCommentsCount(ctx context.Context, id string, n int) error {
	return s.setCommentsCountFn(ctx, id, n)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) (*models.Post, error) {
			out := *p
			return &out, nil
		},
		getByIDFn:    func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listRecentFn: func(_ context.Context, _ int) ([]*models.Post, error) { return nil, nil },
		updateContentFn: func(_ context.Context, id, userID, content string) (*models.Post, error) {
			return &models.Post{ID: id, UserID: userID, Content: content}, nil
		},
		deleteFn:           func(_ context.Context, _, _ string) error { return nil },
		setLikesCountFn:    func(_ context.Context, _ string, _ int) error { return nil },
		setCommentsCountFn: func(_ context.Context, _ string, _ int) error { return nil },
	}
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	forUserFn       func(context.Context, string, []string) (map[string]models.ReactionType, error)
	countsByPostFn  func(context.Context, []string) (map[string]models.ReactionCounts, error)
	insertFn        func(context.Context, *models.Reaction) error
	deleteForUserFn func(context.Context, string, string) (int64, error)
}

func (s *reactionRepoStub) ForUser(ctx context.Context, userID string, postIDs []string) (map[string]models.ReactionType, error) {
	return s.forUserFn(ctx, userID, postIDs)
}
func (s *reactionRepoStub) CountsByPost(ctx context.Context, postIDs []string) (map[string]models.ReactionCounts, error) {
	return s.countsByPostFn(ctx, postIDs)
}
func (s *reactionRepoStub) Insert(ctx context.Context, r *models.Reaction) error {
	return s.insertFn(ctx, r)
}
func (s *reactionRepoStub) DeleteForUser(ctx context.Context, userID, postID string) (int64, error) {
	return s.deleteForUserFn(ctx, userID, postID)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		forUserFn: func(_ context.Context, _ string, _ []string) (map[string]models.ReactionType, error) {
			return map[string]models.ReactionType{}, nil
		},
		countsByPostFn: func(_ context.Context, _ []string) (map[string]models.ReactionCounts, error) {
			return map[string]models.ReactionCounts{}, nil
		},
		insertFn:        func(_ context.Context, _ *models.Reaction) error { return nil },
		deleteForUserFn: func(_ context.Context, _, _ string) (int64, error) { return 1, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getByIDFn     func(context.Context, string) (*models.Comment, error)
	listByPostFn  func(context.Context, string) ([]*models.Comment, error)
	countByPostFn func(context.Context, string) (int, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) CountByPost(ctx context.Context, postID string) (int, error) {
	return s.countByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:      func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:     func(_ context.Context, _ string) (*models.Comment, error) { return nil, gateway.ErrNotFound },
		listByPostFn:  func(_ context.Context, _ string) ([]*models.Comment, error) { return nil, nil },
		countByPostFn: func(_ context.Context, _ string) (int, error) { return 0, nil },
	}
}

var signedIn = auth.StaticProvider{UserID: "11111111-1111-1111-1111-111111111111"}

var anonymous = auth.StaticProvider{}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
