package tracker

import (
	"context"

	m "portfoliotracker/internal/model"
	"portfoliotracker/scrape"
)

type Storage interface {
	RetrieveAPIKey(userID string) (*m.APIKey, error)
	SaveAPIKey(userID, apiKey, cipherSecret string) error
	DeleteAPIKey(userID string) error

	RetrieveManualAssets(userID string) ([]m.ManualAsset, error)
	RetrieveCostBases(userID string) ([]m.AssetCostBasis, error)

	RetrievePortfolio(userID, id string) (*m.Portfolio, error)
	RetrievePortfolioAssets(portfolioID string) ([]m.PortfolioAsset, error)
}

type exchange interface {
	Balance(ctx context.Context, apiKey, apiSecret string) (map[string]string, error)
	CryptoTickers(ctx context.Context) (map[string]m.Quote, error)
	PairPrice(ctx context.Context, pair string) (float64, error)
}

type market interface {
	EquityQuotes(ctx context.Context, symbols []string) map[string]m.Quote
	Quotes(ctx context.Context, reqs []m.PriceRequest) map[string]m.Quote
	History(ctx context.Context, symbol, rng string) (*scrape.Chart, error)
}

// Pricer is everything the tracker needs from upstream market data.
type Pricer interface {
	exchange
	market
}

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(cryptoText string) (string, error)
}
