package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tracker "portfoliotracker"
	"portfoliotracker/internal/ai"
	"portfoliotracker/internal/auth"
	m "portfoliotracker/internal/model"
	"portfoliotracker/scrape"

	"github.com/google/uuid"
	"github.com/kr/pretty"
	"gorm.io/gorm"
)

/***************************** Auth ***********************************/

type VerifierMock struct {
	tokens map[string]auth.Claims
}

func (mock VerifierMock) Verify(ctx context.Context, token string) (auth.Claims, error) {
	claims, ok := mock.tokens[token]
	if !ok {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

/***************************** Kraken ***********************************/

type TrackerMock struct {
	view       *m.PortfolioView
	validation tracker.Validation
	status     tracker.KeyStatus
	saved      map[string]string
	err        error
}

func (mock *TrackerMock) Portfolio(ctx context.Context, userID, portfolioID string) (*m.PortfolioView, error) {
	fmt.Println("Portfolio Called")

	if mock.err != nil {
		return nil, mock.err
	}
	return mock.view, nil
}

func (mock *TrackerMock) Validate(ctx context.Context, apiKey, apiSecret string) (tracker.Validation, error) {
	if apiKey == "" || apiSecret == "" {
		return tracker.Validation{}, tracker.ErrMissingKeys
	}
	if mock.err != nil {
		return tracker.Validation{}, mock.err
	}
	return mock.validation, nil
}

func (mock *TrackerMock) APIKeyStatus(userID string) (tracker.KeyStatus, error) {
	if mock.err != nil {
		return tracker.KeyStatus{}, mock.err
	}
	return mock.status, nil
}

func (mock *TrackerMock) SaveAPIKeys(userID, apiKey, apiSecret string) error {
	if mock.err != nil {
		return mock.err
	}
	if mock.saved == nil {
		mock.saved = map[string]string{}
	}
	mock.saved[userID] = apiKey
	return nil
}

func (mock *TrackerMock) DeleteAPIKeys(userID string) error {
	if mock.err != nil {
		return mock.err
	}
	delete(mock.saved, userID)
	return nil
}

/***************************** Store ***********************************/

// StoreMock keeps rows in memory and enforces the same ownership rules as the database queries.
type StoreMock struct {
	manual     []m.ManualAsset
	costBases  []m.AssetCostBasis
	portfolios []m.Portfolio
	pAssets    []m.PortfolioAsset
	analyses   []m.SavedAnalysis
	reviews    []m.PortfolioReview
	err        error
}

func (mock *StoreMock) RetrieveManualAssets(userID string) ([]m.ManualAsset, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	var rtn []m.ManualAsset
	for _, a := range mock.manual {
		if a.UserID == userID {
			rtn = append(rtn, a)
		}
	}
	return rtn, nil
}

func (mock *StoreMock) RetrieveManualAsset(userID, id string) (*m.ManualAsset, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	for _, a := range mock.manual {
		if a.UserID == userID && a.ID == id {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (mock *StoreMock) SaveManualAsset(asset *m.ManualAsset) error {
	if mock.err != nil {
		return mock.err
	}
	asset.ID = uuid.NewString()
	mock.manual = append(mock.manual, *asset)
	return nil
}

func (mock *StoreMock) UpdateManualAsset(asset *m.ManualAsset) error {
	if mock.err != nil {
		return mock.err
	}
	for i, a := range mock.manual {
		if a.UserID == asset.UserID && a.ID == asset.ID {
			mock.manual[i] = *asset
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (mock *StoreMock) DeleteManualAsset(userID, id string) error {
	if mock.err != nil {
		return mock.err
	}
	for i, a := range mock.manual {
		if a.UserID == userID && a.ID == id {
			mock.manual = append(mock.manual[:i], mock.manual[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (mock *StoreMock) RetrieveCostBases(userID string) ([]m.AssetCostBasis, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	var rtn []m.AssetCostBasis
	for _, r := range mock.costBases {
		if r.UserID == userID {
			rtn = append(rtn, r)
		}
	}
	return rtn, nil
}

func (mock *StoreMock) UpsertCostBasis(row *m.AssetCostBasis) error {
	if mock.err != nil {
		return mock.err
	}
	for i, r := range mock.costBases {
		if r.UserID == row.UserID && r.Key() == row.Key() {
			mock.costBases[i].CostBasis = row.CostBasis
			mock.costBases[i].Notes = row.Notes
			*row = mock.costBases[i]
			return nil
		}
	}
	row.ID = uuid.NewString()
	mock.costBases = append(mock.costBases, *row)
	return nil
}

func (mock *StoreMock) RetrievePortfolios(userID string) ([]m.Portfolio, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	var rtn []m.Portfolio
	for _, p := range mock.portfolios {
		if p.UserID == userID {
			rtn = append(rtn, p)
		}
	}
	return rtn, nil
}

func (mock *StoreMock) RetrievePortfolio(userID, id string) (*m.Portfolio, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	for _, p := range mock.portfolios {
		if p.UserID == userID && p.ID == id {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (mock *StoreMock) ExistsPortfolioName(userID, name string) (bool, error) {
	if mock.err != nil {
		return false, mock.err
	}
	for _, p := range mock.portfolios {
		if p.UserID == userID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (mock *StoreMock) RetrievePortfolioAssets(portfolioID string) ([]m.PortfolioAsset, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	var rtn []m.PortfolioAsset
	for _, a := range mock.pAssets {
		if a.PortfolioID == portfolioID {
			rtn = append(rtn, a)
		}
	}
	return rtn, nil
}

func (mock *StoreMock) SavePortfolio(p *m.Portfolio) error {
	if mock.err != nil {
		return mock.err
	}
	p.ID = uuid.NewString()
	mock.portfolios = append(mock.portfolios, *p)
	return nil
}

func (mock *StoreMock) UpdatePortfolio(userID, id string, name *string, description *string, isDefault *bool) (*m.Portfolio, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	idx := -1
	for i, p := range mock.portfolios {
		if p.UserID == userID && p.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return nil, gorm.ErrRecordNotFound
	}

	p := &mock.portfolios[idx]
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = description
	}
	if isDefault != nil {
		if *isDefault {
			for i := range mock.portfolios {
				if mock.portfolios[i].UserID == userID {
					mock.portfolios[i].IsDefault = false
				}
			}
		}
		p.IsDefault = *isDefault
	}
	rtn := *p
	return &rtn, nil
}

func (mock *StoreMock) DeletePortfolio(userID, id string) error {
	if mock.err != nil {
		return mock.err
	}
	for i, p := range mock.portfolios {
		if p.UserID == userID && p.ID == id {
			mock.portfolios = append(mock.portfolios[:i], mock.portfolios[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (mock *StoreMock) SavePortfolioAsset(asset *m.PortfolioAsset) error {
	if mock.err != nil {
		return mock.err
	}
	asset.ID = uuid.NewString()
	mock.pAssets = append(mock.pAssets, *asset)
	return nil
}

func (mock *StoreMock) DeletePortfolioAsset(portfolioID, id string) error {
	if mock.err != nil {
		return mock.err
	}
	for i, a := range mock.pAssets {
		if a.PortfolioID == portfolioID && a.ID == id {
			mock.pAssets = append(mock.pAssets[:i], mock.pAssets[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (mock *StoreMock) RetrieveAnalyses(userID string) ([]m.SavedAnalysis, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	var rtn []m.SavedAnalysis
	for _, a := range mock.analyses {
		if a.UserID == userID {
			rtn = append(rtn, a)
		}
	}
	return rtn, nil
}

func (mock *StoreMock) SaveAnalysis(row *m.SavedAnalysis) error {
	if mock.err != nil {
		return mock.err
	}
	row.ID = uuid.NewString()
	mock.analyses = append(mock.analyses, *row)
	return nil
}

func (mock *StoreMock) DeleteAnalysis(userID, id string) error {
	if mock.err != nil {
		return mock.err
	}
	for i, a := range mock.analyses {
		if a.UserID == userID && a.ID == id {
			mock.analyses = append(mock.analyses[:i], mock.analyses[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (mock *StoreMock) SaveReview(row *m.PortfolioReview) error {
	if mock.err != nil {
		return mock.err
	}
	row.ID = uuid.NewString()
	mock.reviews = append(mock.reviews, *row)
	return nil
}

func (mock *StoreMock) RetrieveReviews(userID string) ([]m.PortfolioReview, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	var rtn []m.PortfolioReview
	for _, r := range mock.reviews {
		if r.UserID == userID {
			rtn = append(rtn, r)
		}
	}
	return rtn, nil
}

func (mock *StoreMock) UpsertProfile(id, email string) (*m.Profile, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	return &m.Profile{ID: id, Email: email}, nil
}

func (mock *StoreMock) prettyPrint() {
	fmt.Printf("%# v\n", pretty.Formatter(mock))
}

/***************************** AI ***********************************/

type ScreenerMock struct {
	report *ai.Report
	last   ai.ScreenRequest
	err    error
}

func (mock *ScreenerMock) Screen(ctx context.Context, req ai.ScreenRequest) (*ai.Report, error) {
	mock.last = req
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.report, nil
}

type ReviewerMock struct {
	picks json.RawMessage
	err   error
}

func (mock ReviewerMock) Review(ctx context.Context, portfolio json.RawMessage) (*ai.ReviewResult, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	return &ai.ReviewResult{
		ID:   "review_test",
		Data: json.RawMessage(`{"summary":"balanced"}`),
	}, nil
}

func (mock ReviewerMock) InvestorPicks(ctx context.Context, req ai.InvestorRequest) (json.RawMessage, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.picks, nil
}

/***************************** Market ***********************************/

type PriceFetcherMock struct {
	prices map[string]m.Quote
	chart  *scrape.Chart
	points []tracker.HistoryPoint
	start  time.Time
	err    error
}

func (mock *PriceFetcherMock) FetchPrices(ctx context.Context, reqs []m.PriceRequest) map[string]m.Quote {
	rtn := map[string]m.Quote{}
	for _, r := range reqs {
		if q, ok := mock.prices[r.Symbol]; ok {
			rtn[r.Symbol] = q
		}
	}
	return rtn
}

func (mock *PriceFetcherMock) PriceHistory(ctx context.Context, symbol, assetType string) (*scrape.Chart, error) {
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.chart, nil
}

func (mock *PriceFetcherMock) PortfolioHistory(ctx context.Context, assets []tracker.HistoryAsset, start time.Time) ([]tracker.HistoryPoint, error) {
	mock.start = start
	if mock.err != nil {
		return nil, mock.err
	}
	return mock.points, nil
}
