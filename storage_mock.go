package tracker

import (
	m "portfoliotracker/internal/model"

	"gorm.io/gorm"
)

type StorageMock struct {
	key        *m.APIKey
	manual     []m.ManualAsset
	costBases  []m.AssetCostBasis
	portfolios []m.Portfolio
	pAssets    map[string][]m.PortfolioAsset
	saved      *m.APIKey
	err        error
}

func (s StorageMock) RetrieveAPIKey(userID string) (*m.APIKey, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.key == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.key, nil
}

func (s StorageMock) SaveAPIKey(userID, apiKey, cipherSecret string) error {
	if s.err != nil {
		return s.err
	}
	if s.saved != nil {
		*s.saved = m.APIKey{UserID: userID, KrakenAPIKey: apiKey, KrakenAPISecret: cipherSecret}
	}
	return nil
}

func (s StorageMock) DeleteAPIKey(userID string) error {
	return s.err
}

func (s StorageMock) RetrieveManualAssets(userID string) ([]m.ManualAsset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.manual, nil
}

func (s StorageMock) RetrieveCostBases(userID string) ([]m.AssetCostBasis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.costBases, nil
}

func (s StorageMock) RetrievePortfolio(userID, id string) (*m.Portfolio, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.portfolios {
		if p.ID == id && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s StorageMock) RetrievePortfolioAssets(portfolioID string) ([]m.PortfolioAsset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pAssets[portfolioID], nil
}
