package middleware

import (
	"fitprove/internal/auth"
	"fitprove/internal/models"
	"fitprove/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// OptionalAuth attaches the bearer token's user when one is present. A
// missing header leaves the request anonymous; a bad token is rejected.
func OptionalAuth(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		id, err := v.ParseHeader(header)
		if err != nil {
			observability.Logger.DebugContext(c.UserContext(), "rejected bearer token")
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthRequiredError())
		}
		attach(c, id)
		return c.Next()
	}
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := auth.FromContext(c.UserContext()); ok {
			return c.Next()
		}
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
		}
		id, err := v.ParseHeader(header)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
		}
		attach(c, id)
		return c.Next()
	}
}

func attach(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(LocalUserID, id.UserID)
	ctx := auth.WithUser(c.UserContext(), id)
	ctx = observability.WithUserID(ctx, id.UserID)
	c.SetUserContext(ctx)
}
