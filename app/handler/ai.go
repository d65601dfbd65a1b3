package handler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"portfoliotracker/internal/ai"
	m "portfoliotracker/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const (
	minQueryLength = 10

	unparseableMessage = "Unable to generate investment recommendations at this time. Please try again with a different query or check back later."
	unparseableDetails = "AI service temporarily unavailable"
)

type AIHandler struct {
	s     Screener
	r     Reviewer
	rs    ReviewStore
	guard fiber.Handler
}

func NewAIHandler(s Screener, r Reviewer, rs ReviewStore, guard fiber.Handler) *AIHandler {
	return &AIHandler{
		s:     s,
		r:     r,
		rs:    rs,
		guard: guard,
	}
}

func (h *AIHandler) InitRoute(app *fiber.App) {

	app.Post("/api/ai-screener", h.Screen)
	app.Post("/api/ai-investor-stocks", h.InvestorStocks)
	app.Post("/api/portfolio-review", h.guard, h.Review)
	app.Get("/api/portfolio-reviews", h.guard, h.Reviews)
}

func (h *AIHandler) Screen(c *fiber.Ctx) error {

	var param ScreenerParam
	if err := c.BodyParser(&param); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	param.UserQuery = strings.TrimSpace(param.UserQuery)
	if err := validCheck(&param); err != nil {
		return err
	}
	if len(param.UserQuery) < minQueryLength {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a more detailed investment criteria (at least 10 characters)")
	}

	report, err := h.s.Screen(c.UserContext(), ai.ScreenRequest{
		PortfolioType:       param.PortfolioType,
		UserQuery:           param.UserQuery,
		TimeHorizon:         param.TimeHorizon,
		SectorPreferences:   param.SectorPreferences,
		InvestingPhilosophy: param.InvestingPhilosophy,
	})
	if err != nil {
		return aiError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

func (h *AIHandler) InvestorStocks(c *fiber.Ctx) error {

	var param InvestorParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	picks, err := h.r.InvestorPicks(c.UserContext(), ai.InvestorRequest{
		Investor:        param.Investor,
		InvestmentStyle: param.InvestmentStyle,
	})
	if err != nil {
		return aiError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(picks)
}

// Review generates a review of the posted portfolio view and keeps it in the caller's history.
func (h *AIHandler) Review(c *fiber.Ctx) error {

	var param ReviewParam
	if err := c.BodyParser(&param); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if p := bytes.TrimSpace(param.Portfolio); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return fiber.NewError(fiber.StatusBadRequest, "Missing portfolio")
	}

	res, err := h.r.Review(c.UserContext(), param.Portfolio)
	if err != nil {
		return aiError(c, err)
	}

	err = h.rs.SaveReview(&m.PortfolioReview{
		UserID: userID(c),
		Data:   datatypes.JSON(res.Data),
	})
	if err != nil {
		log.Error().Err(err).Str("user", userID(c)).Msg("Review not persisted")
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *AIHandler) Reviews(c *fiber.Ctx) error {

	rows, err := h.rs.RetrieveReviews(userID(c))
	if err != nil {
		return fmt.Errorf("RetrieveReviews failed. %w", err)
	}
	if rows == nil {
		rows = []m.PortfolioReview{}
	}

	return c.Status(fiber.StatusOK).JSON(rows)
}

// aiError maps completer and parser failures onto the statuses clients act on.
func aiError(c *fiber.Ctx, err error) error {

	log.Error().Err(err).Str("endpoint", c.Path()).Msg("AI request failed")

	switch {
	case errors.Is(err, ai.ErrUnparseable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{
			Error:   unparseableMessage,
			Details: unparseableDetails,
		})
	case errors.Is(err, ai.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, "OpenAI API quota exceeded or rate limited. Please try again later.")
	case errors.Is(err, ai.ErrInvalidKey):
		return fiber.NewError(fiber.StatusInternalServerError, "Invalid OpenAI API key. Please check your configuration.")
	case errors.Is(err, ai.ErrNotConfigured):
		return fiber.NewError(fiber.StatusInternalServerError, "AI service is not configured. Please set an OpenAI or Gemini API key.")
	case errors.Is(err, ai.ErrBadPortfolio):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid portfolio payload")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Failed to communicate with AI service. Please try again.")
}
