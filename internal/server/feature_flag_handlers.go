package server

import (
	"fitprove/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and their state for the
// current viewer.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	var userID string
	if id, ok := auth.FromContext(c.UserContext()); ok {
		userID = id.UserID
	}
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
