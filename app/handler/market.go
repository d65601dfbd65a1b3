package handler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tracker "portfoliotracker"
	m "portfoliotracker/internal/model"
	"portfoliotracker/scrape"

	"github.com/gofiber/fiber/v2"
)

type MarketHandler struct {
	p PriceFetcher
}

func NewMarketHandler(p PriceFetcher) *MarketHandler {
	return &MarketHandler{
		p: p,
	}
}

func (h *MarketHandler) InitRoute(app *fiber.App) {

	app.Post("/api/fetch-prices", h.FetchPrices)
	app.Get("/api/price/historical", h.PriceHistory)
	app.Post("/api/portfolio/historical", h.PortfolioHistory)
}

func (h *MarketHandler) FetchPrices(c *fiber.Ctx) error {

	var param FetchPricesParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	prices := h.p.FetchPrices(c.UserContext(), param.Symbols)
	if prices == nil {
		prices = map[string]m.Quote{}
	}

	return c.Status(fiber.StatusOK).JSON(pricesResponse{Prices: prices})
}

func (h *MarketHandler) PriceHistory(c *fiber.Ctx) error {

	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required field: symbol")
	}

	chart, err := h.p.PriceHistory(c.UserContext(), symbol, c.Query("assetType"))
	if errors.Is(err, scrape.ErrNoChartData) {
		return fiber.NewError(fiber.StatusNotFound, "No data")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch historical data")
	}

	return c.Status(fiber.StatusOK).JSON(chart)
}

func (h *MarketHandler) PortfolioHistory(c *fiber.Ctx) error {

	var param PortfolioHistoryParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	start, err := parseDate(param.StartDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "startDate must be a date (YYYY-MM-DD)")
	}

	points, err := h.p.PortfolioHistory(c.UserContext(), param.Assets, start)
	switch {
	case errors.Is(err, tracker.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return fmt.Errorf("PortfolioHistory failed. %w", err)
	}
	if points == nil {
		points = []tracker.HistoryPoint{}
	}

	return c.Status(fiber.StatusOK).JSON(historyResponse{Data: points})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
