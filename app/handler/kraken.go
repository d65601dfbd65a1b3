package handler

import (
	"errors"
	"fmt"
	"strings"

	tracker "portfoliotracker"
	"portfoliotracker/internal/db"
	"portfoliotracker/scrape"

	"github.com/gofiber/fiber/v2"
)

type KrakenHandler struct {
	p     PortfolioBuilder
	v     CredentialValidator
	k     KeyManager
	guard fiber.Handler
}

func NewKrakenHandler(p PortfolioBuilder, v CredentialValidator, k KeyManager, guard fiber.Handler) *KrakenHandler {
	return &KrakenHandler{
		p:     p,
		v:     v,
		k:     k,
		guard: guard,
	}
}

func (h *KrakenHandler) InitRoute(app *fiber.App) {
	router := app.Group("/api/kraken")

	router.Get("/portfolio", h.guard, h.Portfolio)
	router.Post("/validate", h.Validate)
	router.Get("/keys", h.guard, h.KeyStatus)
	router.Put("/keys", h.guard, h.SaveKeys)
	router.Delete("/keys", h.guard, h.DeleteKeys)
}

func (h *KrakenHandler) Portfolio(c *fiber.Ctx) error {

	view, err := h.p.Portfolio(c.UserContext(), userID(c), c.Query("portfolioId"))
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).JSON(view)
	case errors.Is(err, tracker.ErrExchangeAuth):
		return fiber.NewError(fiber.StatusUnauthorized, strings.TrimPrefix(err.Error(), tracker.ErrExchangeAuth.Error()+". "))
	case errors.Is(err, tracker.ErrNoData):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case db.IsNotFound(err):
		return fiber.NewError(fiber.StatusNotFound, "Portfolio not found")
	}
	return fmt.Errorf("Portfolio failed. %w", err)
}

// Validate answers 200 with isValid false when the exchange rejects the pair.
func (h *KrakenHandler) Validate(c *fiber.Ctx) error {

	var param CredentialParam
	if err := c.BodyParser(&param); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.v.Validate(c.UserContext(), param.APIKey, param.APISecret)
	if errors.Is(err, tracker.ErrMissingKeys) {
		return fiber.NewError(fiber.StatusBadRequest, "API key and secret are required")
	}
	if err != nil {
		return fmt.Errorf("Validate failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *KrakenHandler) KeyStatus(c *fiber.Ctx) error {

	status, err := h.k.APIKeyStatus(userID(c))
	if err != nil {
		return fmt.Errorf("APIKeyStatus failed. %w", err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *KrakenHandler) SaveKeys(c *fiber.Ctx) error {

	var param CredentialParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	err := h.k.SaveAPIKeys(userID(c), param.APIKey, param.APISecret)
	switch {
	case errors.Is(err, tracker.ErrMissingKeys):
		return fiber.NewError(fiber.StatusBadRequest, "API key and secret are required")
	case errors.Is(err, scrape.ErrInvalidSecret):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid API secret. Please check your API secret is correct.")
	case err != nil:
		return fmt.Errorf("SaveAPIKeys failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(successResponse{Success: true})
}

func (h *KrakenHandler) DeleteKeys(c *fiber.Ctx) error {

	if err := h.k.DeleteAPIKeys(userID(c)); err != nil {
		return fmt.Errorf("DeleteAPIKeys failed. %w", err)
	}
	return c.Status(fiber.StatusOK).JSON(successResponse{Success: true})
}
