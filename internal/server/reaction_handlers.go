package server

import (
	"fitprove/internal/models"

	"github.com/gofiber/fiber/v2"
)

type toggleReactionRequest struct {
	Type string `json:"type" validate:"required,oneof=like love fire strong"`
}

// ToggleReaction handles POST /api/posts/:id/reactions and answers with the
// recounted reaction state.
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	postID, err := parseUUIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req toggleReactionRequest
	if err := s.bind(c, &req); err != nil {
		return nil
	}

	state, err := s.reactionService.ToggleReaction(c.UserContext(), postID, models.ReactionType(req.Type))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(state)
}
