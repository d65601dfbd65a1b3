package handler

import (
	"fmt"

	"portfoliotracker/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const userKey = "user"

type AuthHandler struct {
	v auth.Verifier
	p ProfileStore
}

func NewAuthHandler(v auth.Verifier, p ProfileStore) *AuthHandler {
	return &AuthHandler{
		v: v,
		p: p,
	}
}

func (h *AuthHandler) InitRoute(app *fiber.App) {
	app.Get("/api/profile", h.AuthMiddleware, h.Profile)
}

// AuthMiddleware resolves the bearer token to the caller and stores the claims for the handlers behind it.
func (h *AuthHandler) AuthMiddleware(c *fiber.Ctx) error {

	token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	claims, err := h.v.Verify(c.UserContext(), token)
	if err != nil {
		log.Info().Err(err).Str("endpoint", c.Path()).Msg("Token rejected")
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	c.Locals(userKey, claims)
	return c.Next()
}

// Profile makes sure the caller has a profile row and returns it.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {

	claims := caller(c)
	p, err := h.p.UpsertProfile(claims.Subject, claims.Email)
	if err != nil {
		return fmt.Errorf("UpsertProfile failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(p)
}

func caller(c *fiber.Ctx) auth.Claims {
	claims, _ := c.Locals(userKey).(auth.Claims)
	return claims
}

func userID(c *fiber.Ctx) string {
	return caller(c).Subject
}
