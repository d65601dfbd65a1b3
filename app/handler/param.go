package handler

import (
	"encoding/json"

	tracker "portfoliotracker"
	m "portfoliotracker/internal/model"
)

/***************************************************************** request ****************************************************************/

type CredentialParam struct {
	APIKey    string `json:"apiKey" validate:"required"`
	APISecret string `json:"apiSecret" validate:"required"`
}

type ManualAssetParam struct {
	Symbol    string   `json:"symbol" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	AssetType string   `json:"asset_type" validate:"required,asset_type"`
	Quantity  *float64 `json:"quantity" validate:"required,gt=0"`
	CostBasis *float64 `json:"cost_basis" validate:"required,gte=0"`
}

type CostBasisParam struct {
	Symbol    string   `json:"symbol" validate:"required"`
	AssetType string   `json:"asset_type" validate:"required,asset_type"`
	CostBasis *float64 `json:"cost_basis" validate:"required,gte=0"`
	Notes     *string  `json:"notes"`
}

type AddPortfolioParam struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

type UpdatePortfolioParam struct {
	Name        *string `json:"name" validate:"omitnil,min=1"`
	Description *string `json:"description"`
	IsDefault   *bool   `json:"is_default"`
}

type PortfolioAssetParam struct {
	ManualAssetParam
	Notes *string `json:"notes"`
}

type AnalysisParam struct {
	Symbol  string          `json:"symbol" validate:"required"`
	Name    string          `json:"name" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

type ScreenerParam struct {
	UserQuery           string   `json:"userQuery" validate:"required"`
	PortfolioType       string   `json:"portfolioType" validate:"required,portfolio_type"`
	TimeHorizon         string   `json:"timeHorizon"`
	SectorPreferences   []string `json:"sectorPreferences"`
	InvestingPhilosophy string   `json:"investingPhilosophy"`
}

type InvestorParam struct {
	Investor        string `json:"investor" validate:"required"`
	InvestmentStyle string `json:"investmentStyle" validate:"required"`
}

type ReviewParam struct {
	Portfolio json.RawMessage `json:"portfolio"`
}

type FetchPricesParam struct {
	Symbols []m.PriceRequest `json:"symbols" validate:"required,dive"`
}

type PortfolioHistoryParam struct {
	Assets    []tracker.HistoryAsset `json:"assets" validate:"required,dive"`
	StartDate string                 `json:"startDate" validate:"required"`
}

/***************************************************************** resoponse ****************************************************************/

type portfoliosResponse struct {
	Portfolios []m.Portfolio `json:"portfolios"`
}

type portfolioResponse struct {
	Portfolio *m.Portfolio `json:"portfolio"`
}

type portfolioAssetsResponse struct {
	Assets []m.PortfolioAsset `json:"assets"`
}

type portfolioAssetResponse struct {
	Asset *m.PortfolioAsset `json:"asset"`
}

type pricesResponse struct {
	Prices map[string]m.Quote `json:"prices"`
}

type historyResponse struct {
	Data []tracker.HistoryPoint `json:"data"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
