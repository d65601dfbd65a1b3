package handler

import (
	"context"
	"encoding/json"
	"time"

	tracker "portfoliotracker"
	"portfoliotracker/internal/ai"
	m "portfoliotracker/internal/model"
	"portfoliotracker/scrape"
)

type PortfolioBuilder interface {
	Portfolio(ctx context.Context, userID, portfolioID string) (*m.PortfolioView, error)
}

type CredentialValidator interface {
	Validate(ctx context.Context, apiKey, apiSecret string) (tracker.Validation, error)
}

type KeyManager interface {
	APIKeyStatus(userID string) (tracker.KeyStatus, error)
	SaveAPIKeys(userID, apiKey, apiSecret string) error
	DeleteAPIKeys(userID string) error
}

type ManualAssetStore interface {
	RetrieveManualAssets(userID string) ([]m.ManualAsset, error)
	RetrieveManualAsset(userID, id string) (*m.ManualAsset, error)
	SaveManualAsset(asset *m.ManualAsset) error
	UpdateManualAsset(asset *m.ManualAsset) error
	DeleteManualAsset(userID, id string) error
}

type CostBasisStore interface {
	RetrieveCostBases(userID string) ([]m.AssetCostBasis, error)
	UpsertCostBasis(row *m.AssetCostBasis) error
}

type PortfolioRetriever interface {
	RetrievePortfolios(userID string) ([]m.Portfolio, error)
	RetrievePortfolio(userID, id string) (*m.Portfolio, error)
	ExistsPortfolioName(userID, name string) (bool, error)
	RetrievePortfolioAssets(portfolioID string) ([]m.PortfolioAsset, error)
}

type PortfolioWriter interface {
	SavePortfolio(p *m.Portfolio) error
	UpdatePortfolio(userID, id string, name *string, description *string, isDefault *bool) (*m.Portfolio, error)
	DeletePortfolio(userID, id string) error
	SavePortfolioAsset(asset *m.PortfolioAsset) error
	DeletePortfolioAsset(portfolioID, id string) error
}

type AnalysisStore interface {
	RetrieveAnalyses(userID string) ([]m.SavedAnalysis, error)
	SaveAnalysis(row *m.SavedAnalysis) error
	DeleteAnalysis(userID, id string) error
}

type ReviewStore interface {
	SaveReview(row *m.PortfolioReview) error
	RetrieveReviews(userID string) ([]m.PortfolioReview, error)
}

type ProfileStore interface {
	UpsertProfile(id, email string) (*m.Profile, error)
}

type Screener interface {
	Screen(ctx context.Context, req ai.ScreenRequest) (*ai.Report, error)
}

type Reviewer interface {
	Review(ctx context.Context, portfolio json.RawMessage) (*ai.ReviewResult, error)
	InvestorPicks(ctx context.Context, req ai.InvestorRequest) (json.RawMessage, error)
}

type PriceFetcher interface {
	FetchPrices(ctx context.Context, reqs []m.PriceRequest) map[string]m.Quote
	PriceHistory(ctx context.Context, symbol, assetType string) (*scrape.Chart, error)
	PortfolioHistory(ctx context.Context, assets []tracker.HistoryAsset, start time.Time) ([]tracker.HistoryPoint, error)
}
