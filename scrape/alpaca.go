package scrape

import (
	"context"
	"fmt"

	m "portfoliotracker/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type alpacaCrypto struct {
	client *marketdata.Client
}

func newAlpacaCrypto(opts marketdata.ClientOpts) *alpacaCrypto {
	return &alpacaCrypto{client: marketdata.NewClient(opts)}
}

// LatestCrypto returns the close of the latest minute bar. No previous close is known.
func (a *alpacaCrypto) LatestCrypto(ctx context.Context, symbol string) (m.Quote, error) {

	bar, err := a.client.GetLatestCryptoBar(symbol+"/USD", marketdata.GetLatestCryptoBarRequest{})
	if err != nil {
		return m.Quote{}, err
	}
	if bar == nil {
		return m.Quote{}, fmt.Errorf("no alpaca bar for %s", symbol)
	}

	return m.Quote{Symbol: symbol, Price: bar.Close, Source: "alpaca"}, nil
}
