package model

import "time"

// Quote is a resolved current/previous price pair for one symbol.
type Quote struct {
	Symbol        string  `json:"symbol,omitempty"`
	Price         float64 `json:"currentPrice"`
	PreviousClose float64 `json:"previousClose"`
	Source        string  `json:"-"`
}

// PriceRequest asks for a quote of one holding.
type PriceRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	AssetType string `json:"assetType" validate:"required,asset_type"`
}

type AssetValuation struct {
	Symbol                  string  `json:"symbol"`
	Name                    string  `json:"name"`
	AssetType               string  `json:"asset_type,omitempty"`
	Balance                 float64 `json:"balance"`
	CurrentPrice            float64 `json:"currentPrice"`
	CostBasis               float64 `json:"costBasis"`
	Value                   float64 `json:"value"`
	DailyPnL                float64 `json:"dailyPnL"`
	DailyPnLPercentage      float64 `json:"dailyPnLPercentage"`
	UnrealizedPnL           float64 `json:"unrealizedPnL"`
	UnrealizedPnLPercentage float64 `json:"unrealizedPnLPercentage"`
	Source                  Source  `json:"source"`
	ManualID                string  `json:"manualId,omitempty"`
	Note                    string  `json:"note,omitempty"`
}

type PortfolioView struct {
	Assets                       []AssetValuation `json:"assets"`
	TotalValue                   float64          `json:"totalValue"`
	TotalDailyPnL                float64          `json:"totalDailyPnL"`
	TotalDailyPnLPercentage      float64          `json:"totalDailyPnLPercentage"`
	TotalCostBasis               float64          `json:"totalCostBasis"`
	TotalUnrealizedPnL           float64          `json:"totalUnrealizedPnL"`
	TotalUnrealizedPnLPercentage float64          `json:"totalUnrealizedPnLPercentage"`
	LastUpdated                  time.Time        `json:"lastUpdated"`
	ExchangeError                string           `json:"exchangeError,omitempty"`
}
