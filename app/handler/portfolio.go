package handler

import (
	"fmt"
	"strings"

	"portfoliotracker/internal/db"
	m "portfoliotracker/internal/model"

	"github.com/gofiber/fiber/v2"
)

type PortfolioHandler struct {
	r     PortfolioRetriever
	w     PortfolioWriter
	guard fiber.Handler
}

func NewPortfolioHandler(r PortfolioRetriever, w PortfolioWriter, guard fiber.Handler) *PortfolioHandler {
	return &PortfolioHandler{
		r:     r,
		w:     w,
		guard: guard,
	}
}

func (h *PortfolioHandler) InitRoute(app *fiber.App) {

	router := app.Group("/api/portfolios", h.guard)

	router.Get("/", h.Portfolios)
	router.Post("/", h.AddPortfolio)
	router.Put("/:id", h.UpdatePortfolio)
	router.Delete("/:id", h.DeletePortfolio)

	router.Get("/:id/assets", h.Assets)
	router.Post("/:id/assets", h.AddAsset)
	router.Delete("/:id/assets/:assetId", h.DeleteAsset)
}

func (h *PortfolioHandler) Portfolios(c *fiber.Ctx) error {

	portfolios, err := h.r.RetrievePortfolios(userID(c))
	if err != nil {
		return fmt.Errorf("RetrievePortfolios failed. %w", err)
	}
	if portfolios == nil {
		portfolios = []m.Portfolio{}
	}

	return c.Status(fiber.StatusOK).JSON(portfoliosResponse{Portfolios: portfolios})
}

func (h *PortfolioHandler) AddPortfolio(c *fiber.Ctx) error {

	var param AddPortfolioParam
	if err := c.BodyParser(&param); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	param.Name = strings.TrimSpace(param.Name)
	if err := validCheck(&param); err != nil {
		return err
	}

	uid := userID(c)
	exists, err := h.r.ExistsPortfolioName(uid, param.Name)
	if err != nil {
		return fmt.Errorf("ExistsPortfolioName failed. %w", err)
	}
	if exists {
		return fiber.NewError(fiber.StatusBadRequest, "Portfolio name already exists")
	}

	p := m.Portfolio{
		UserID:      uid,
		Name:        param.Name,
		Description: param.Description,
	}
	if err := h.w.SavePortfolio(&p); err != nil {
		return fmt.Errorf("SavePortfolio failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(portfolioResponse{Portfolio: &p})
}

func (h *PortfolioHandler) UpdatePortfolio(c *fiber.Ctx) error {

	var param UpdatePortfolioParam
	if err := c.BodyParser(&param); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if param.Name != nil {
		name := strings.TrimSpace(*param.Name)
		param.Name = &name
	}
	if err := validCheck(&param); err != nil {
		return err
	}

	uid, id := userID(c), c.Params("id")
	if param.Name != nil {
		cur, err := h.r.RetrievePortfolio(uid, id)
		if db.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Portfolio not found")
		}
		if err != nil {
			return fmt.Errorf("RetrievePortfolio failed. %w", err)
		}
		if cur.Name != *param.Name {
			exists, err := h.r.ExistsPortfolioName(uid, *param.Name)
			if err != nil {
				return fmt.Errorf("ExistsPortfolioName failed. %w", err)
			}
			if exists {
				return fiber.NewError(fiber.StatusBadRequest, "Portfolio name already exists")
			}
		}
	}

	p, err := h.w.UpdatePortfolio(uid, id, param.Name, param.Description, param.IsDefault)
	if db.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Portfolio not found")
	}
	if err != nil {
		return fmt.Errorf("UpdatePortfolio failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(portfolioResponse{Portfolio: p})
}

func (h *PortfolioHandler) DeletePortfolio(c *fiber.Ctx) error {

	p, err := h.owned(c)
	if err != nil {
		return err
	}
	if p.IsDefault {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot delete default portfolio")
	}

	if err := h.w.DeletePortfolio(p.UserID, p.ID); err != nil {
		return fmt.Errorf("DeletePortfolio failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(successResponse{Success: true})
}

func (h *PortfolioHandler) Assets(c *fiber.Ctx) error {

	p, err := h.owned(c)
	if err != nil {
		return err
	}

	assets, err := h.r.RetrievePortfolioAssets(p.ID)
	if err != nil {
		return fmt.Errorf("RetrievePortfolioAssets failed. %w", err)
	}
	if assets == nil {
		assets = []m.PortfolioAsset{}
	}

	return c.Status(fiber.StatusOK).JSON(portfolioAssetsResponse{Assets: assets})
}

func (h *PortfolioHandler) AddAsset(c *fiber.Ctx) error {

	p, err := h.owned(c)
	if err != nil {
		return err
	}

	var param PortfolioAssetParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	asset := m.PortfolioAsset{
		PortfolioID: p.ID,
		Symbol:      normalizeSymbol(param.Symbol),
		Name:        strings.TrimSpace(param.Name),
		AssetType:   param.AssetType,
		Quantity:    *param.Quantity,
		CostBasis:   *param.CostBasis,
		Notes:       param.Notes,
	}
	if err := h.w.SavePortfolioAsset(&asset); err != nil {
		return fmt.Errorf("SavePortfolioAsset failed. %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(portfolioAssetResponse{Asset: &asset})
}

func (h *PortfolioHandler) DeleteAsset(c *fiber.Ctx) error {

	p, err := h.owned(c)
	if err != nil {
		return err
	}

	err = h.w.DeletePortfolioAsset(p.ID, c.Params("assetId"))
	if db.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Asset not found")
	}
	if err != nil {
		return fmt.Errorf("DeletePortfolioAsset failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(successResponse{Success: true})
}

// owned loads the :id portfolio only when it belongs to the caller.
func (h *PortfolioHandler) owned(c *fiber.Ctx) (*m.Portfolio, error) {

	p, err := h.r.RetrievePortfolio(userID(c), c.Params("id"))
	if db.IsNotFound(err) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Portfolio not found")
	}
	if err != nil {
		return nil, fmt.Errorf("RetrievePortfolio failed. %w", err)
	}
	return p, nil
}
