package handler

import (
	"bytes"
	"fmt"

	"portfoliotracker/internal/db"
	m "portfoliotracker/internal/model"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type AnalysisHandler struct {
	s     AnalysisStore
	guard fiber.Handler
}

func NewAnalysisHandler(s AnalysisStore, guard fiber.Handler) *AnalysisHandler {
	return &AnalysisHandler{
		s:     s,
		guard: guard,
	}
}

func (h *AnalysisHandler) InitRoute(app *fiber.App) {

	router := app.Group("/api/analysis", h.guard)

	router.Get("/", h.Analyses)
	router.Post("/", h.SaveAnalysis)
	router.Delete("/", h.DeleteAnalysis)
}

func (h *AnalysisHandler) Analyses(c *fiber.Ctx) error {

	rows, err := h.s.RetrieveAnalyses(userID(c))
	if err != nil {
		return fmt.Errorf("RetrieveAnalyses failed. %w", err)
	}
	if rows == nil {
		rows = []m.SavedAnalysis{}
	}

	return c.Status(fiber.StatusOK).JSON(rows)
}

func (h *AnalysisHandler) SaveAnalysis(c *fiber.Ctx) error {

	var param AnalysisParam
	if err := parseBody(c, &param); err != nil {
		return err
	}
	if p := bytes.TrimSpace(param.Payload); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required field: payload")
	}

	row := m.SavedAnalysis{
		UserID:  userID(c),
		Symbol:  normalizeSymbol(param.Symbol),
		Name:    param.Name,
		Payload: datatypes.JSON(param.Payload),
	}
	if err := h.s.SaveAnalysis(&row); err != nil {
		return fmt.Errorf("SaveAnalysis failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(row)
}

func (h *AnalysisHandler) DeleteAnalysis(c *fiber.Ctx) error {

	id := c.Query("id")
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing id")
	}

	err := h.s.DeleteAnalysis(userID(c), id)
	if db.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Analysis not found")
	}
	if err != nil {
		return fmt.Errorf("DeleteAnalysis failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(okResponse{Ok: true})
}
