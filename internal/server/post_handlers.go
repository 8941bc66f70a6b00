package server

import (
	"fitprove/internal/models"
	"fitprove/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	ID            string   `json:"id" validate:"omitempty,uuid"`
	Content       string   `json:"content" validate:"max=5000"`
	MediaURLs     []string `json:"media_urls" validate:"max=10,dive,url"`
	Category      string   `json:"category" validate:"omitempty,oneof=general workout achievement"`
	WorkoutID     *string  `json:"workout_id" validate:"omitempty,uuid"`
	AchievementID *string  `json:"achievement_id" validate:"omitempty,uuid"`
}

type updatePostRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		limit = 0
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}

	posts, err := s.postService.LoadPosts(c.UserContext(), limit)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := s.bind(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		ID:            req.ID,
		Content:       req.Content,
		MediaURLs:     req.MediaURLs,
		Category:      models.PostCategory(req.Category),
		WorkoutID:     req.WorkoutID,
		AchievementID: req.AchievementID,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := s.bind(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), postID, req.Content)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), postID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
