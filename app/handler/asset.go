package handler

import (
	"fmt"
	"strings"

	"portfoliotracker/internal/db"
	m "portfoliotracker/internal/model"

	"github.com/gofiber/fiber/v2"
)

type AssetHandler struct {
	a     ManualAssetStore
	cb    CostBasisStore
	guard fiber.Handler
}

func NewAssetHandler(a ManualAssetStore, cb CostBasisStore, guard fiber.Handler) *AssetHandler {
	return &AssetHandler{
		a:     a,
		cb:    cb,
		guard: guard,
	}
}

func (h *AssetHandler) InitRoute(app *fiber.App) {

	router := app.Group("/api/manual-assets", h.guard)

	router.Get("/", h.ManualAssets)
	router.Post("/", h.AddManualAsset)
	router.Put("/:id", h.UpdateManualAsset)
	router.Delete("/:id", h.DeleteManualAsset)

	cost := app.Group("/api/cost-basis", h.guard)

	cost.Get("/", h.CostBases)
	cost.Put("/", h.UpsertCostBasis)
}

func (h *AssetHandler) ManualAssets(c *fiber.Ctx) error {

	assets, err := h.a.RetrieveManualAssets(userID(c))
	if err != nil {
		return fmt.Errorf("RetrieveManualAssets failed. %w", err)
	}
	if assets == nil {
		assets = []m.ManualAsset{}
	}

	return c.Status(fiber.StatusOK).JSON(assets)
}

func (h *AssetHandler) AddManualAsset(c *fiber.Ctx) error {

	var param ManualAssetParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	asset := param.toManualAsset(userID(c))
	if err := h.a.SaveManualAsset(&asset); err != nil {
		return fmt.Errorf("SaveManualAsset failed. %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(asset)
}

func (h *AssetHandler) UpdateManualAsset(c *fiber.Ctx) error {

	var param ManualAssetParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	asset := param.toManualAsset(userID(c))
	asset.ID = c.Params("id")

	err := h.a.UpdateManualAsset(&asset)
	if db.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Asset not found")
	}
	if err != nil {
		return fmt.Errorf("UpdateManualAsset failed. %w", err)
	}

	updated, err := h.a.RetrieveManualAsset(asset.UserID, asset.ID)
	if err != nil {
		return fmt.Errorf("RetrieveManualAsset failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *AssetHandler) DeleteManualAsset(c *fiber.Ctx) error {

	err := h.a.DeleteManualAsset(userID(c), c.Params("id"))
	if db.IsNotFound(err) {
		return fiber.NewError(fiber.StatusNotFound, "Asset not found")
	}
	if err != nil {
		return fmt.Errorf("DeleteManualAsset failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(successResponse{Success: true})
}

func (h *AssetHandler) CostBases(c *fiber.Ctx) error {

	rows, err := h.cb.RetrieveCostBases(userID(c))
	if err != nil {
		return fmt.Errorf("RetrieveCostBases failed. %w", err)
	}
	if rows == nil {
		rows = []m.AssetCostBasis{}
	}

	return c.Status(fiber.StatusOK).JSON(rows)
}

func (h *AssetHandler) UpsertCostBasis(c *fiber.Ctx) error {

	var param CostBasisParam
	if err := parseBody(c, &param); err != nil {
		return err
	}

	row := m.AssetCostBasis{
		UserID:    userID(c),
		Symbol:    normalizeSymbol(param.Symbol),
		AssetType: param.AssetType,
		CostBasis: *param.CostBasis,
		Notes:     param.Notes,
	}
	if err := h.cb.UpsertCostBasis(&row); err != nil {
		return fmt.Errorf("UpsertCostBasis failed. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(row)
}

func (p ManualAssetParam) toManualAsset(userID string) m.ManualAsset {
	return m.ManualAsset{
		UserID:    userID,
		Symbol:    normalizeSymbol(p.Symbol),
		Name:      strings.TrimSpace(p.Name),
		AssetType: p.AssetType,
		Quantity:  *p.Quantity,
		CostBasis: *p.CostBasis,
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
