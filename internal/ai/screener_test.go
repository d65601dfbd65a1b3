package ai

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"portfoliotracker/scrape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completerMock struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []Prompt
}

func (c *completerMock) Name() string {
	return "mock"
}

func (c *completerMock) Complete(ctx context.Context, p Prompt) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, p)
	return c.text, c.err
}

type marketMock struct {
	charts    map[string]*scrape.Chart
	headlines map[string][]scrape.Headline
}

func (m marketMock) History(ctx context.Context, symbol, rng string) (*scrape.Chart, error) {
	c, ok := m.charts[symbol]
	if !ok {
		return nil, errors.New("no data found")
	}
	return c, nil
}

func (m marketMock) Headlines(ctx context.Context, symbol string, n int) ([]scrape.Headline, error) {
	return m.headlines[symbol], nil
}

const screenerReply = "```json\n" + `{
  "recommendations": [
    {
      "ticker": "aapl",
      "name": "Apple",
      "description": "Devices and services",
      "keyStrengths": ["Services margin"],
      "keyRisks": "China exposure",
      "technicalAnalysis": ["Trend: uptrend"],
      "finance": {"price": "100", "market_cap": 3000000000000},
      "priceForecast": {"projectedPrice": 200, "confidence": 80},
      "analystRatings": {"buy": 20, "hold": 5, "sell": 1, "average_target": 210}
    },
    {
      "ticker": "NVDA",
      "name": "NVIDIA",
      "finance": {"price": 100},
      "priceForecast": {"projectedPrice": 90, "confidence": 70},
      "recentNews": [{"title": "Chip demand", "date": "2025-01-15", "summary": "Up", "impact": "positive"}]
    },
    {
      "ticker": "MSFT",
      "name": "Microsoft",
      "finance": {"price": 400},
      "priceForecast": {"projectedPrice": 440}
    },
    {
      "ticker": "BTC",
      "name": "Bitcoin",
      "finance": {"price": 60000},
      "priceForecast": {"projectedPrice": 66000, "confidence": 60}
    }
  ],
  "summary": "Quality compounders"
}` + "\n```"

func TestScreen(t *testing.T) {

	market := marketMock{
		charts: map[string]*scrape.Chart{
			"AAPL":    {Price: 250, Closes: rising(250, 1)},
			"NVDA":    {Price: 120, Closes: rising(10, 100)},
			"BTC-USD": {Price: 50000, Closes: rising(20, 49000)},
		},
		headlines: map[string][]scrape.Headline{
			"AAPL": {{Title: "Apple event", Summary: "New phones", PublishedAt: "2025-01-10"}},
			"MSFT": {{Title: "Azure growth"}},
		},
	}
	completer := &completerMock{text: screenerReply}
	s := NewScreener(completer, market, func(sym string) bool { return sym == "BTC" })

	report, err := s.Screen(context.Background(), ScreenRequest{
		PortfolioType:     "both",
		UserQuery:         "profitable large caps with moats",
		TimeHorizon:       "long_term",
		SectorPreferences: []string{"Technology"},
	})
	require.NoError(t, err)

	require.Len(t, completer.prompts, 1)
	assert.True(t, completer.prompts[0].JSON)
	assert.Contains(t, completer.prompts[0].User, "long-term (3+ years)")
	assert.Contains(t, completer.prompts[0].User, "Focus on sectors: Technology.")

	assert.Equal(t, "Quality compounders", report.Summary)
	assert.Equal(t, defaultDisclaimer, report.Disclaimer)
	assert.Equal(t, "mock", report.Provider)
	assert.Contains(t, report.RequestID, "req_")

	// NVDA forecast is negative and is dropped
	require.Len(t, report.Assets, 3)
	aapl, msft, btc := report.Assets[0], report.Assets[1], report.Assets[2]

	t.Run("forecast capped and rebased on the chart price", func(t *testing.T) {
		assert.Equal(t, "AAPL", aapl.Symbol)
		assert.Equal(t, "stock", aapl.AssetType)
		assert.Equal(t, 250.0, aapl.CurrentPrice)
		assert.InDelta(t, 325.0, aapl.PriceForecast.ProjectedPrice, 1e-9)
		assert.Equal(t, 65.0, aapl.PriceForecast.Confidence)
		assert.Equal(t, []string{"China exposure"}, aapl.KeyRisks)
		assert.Equal(t, &Ratings{Buy: 20, Hold: 5, Sell: 1, Total: 26, AverageTarget: 210}, aapl.AnalystRatings)
		require.Len(t, aapl.TechnicalAnalysis, 4)
		assert.Equal(t, "RSI (14)", aapl.TechnicalAnalysis[0].Indicator)
	})

	t.Run("missing chart keeps the model's numbers", func(t *testing.T) {
		assert.Equal(t, 400.0, msft.CurrentPrice)
		assert.Equal(t, 440.0, msft.PriceForecast.ProjectedPrice)
		assert.Equal(t, 70.0, msft.PriceForecast.Confidence)
	})

	t.Run("crypto uses the usd chart", func(t *testing.T) {
		assert.Equal(t, "crypto", btc.AssetType)
		assert.Equal(t, 50000.0, btc.CurrentPrice)
		assert.InDelta(t, 55000.0, btc.PriceForecast.ProjectedPrice, 1e-6)
		assert.Equal(t, 60.0, btc.PriceForecast.Confidence)
		assert.Empty(t, btc.TechnicalAnalysis)
	})

	t.Run("empty news is backfilled", func(t *testing.T) {
		require.Len(t, aapl.RecentNews, 1)
		assert.Equal(t, "Apple event", aapl.RecentNews[0].Title)
		assert.Equal(t, "Yahoo Finance", aapl.RecentNews[0].Source)
		assert.Equal(t, "Azure growth", msft.RecentNews[0].Title)
		assert.Empty(t, btc.RecentNews)
	})
}

func TestScreenLegacyFormat(t *testing.T) {

	completer := &completerMock{text: `Sure! {"assets":[{"symbol":"ko","currentPrice":60,"recommendation":"buy","recentNews":[{"title":"Dividend","impact":"positive"}]}],"marketConditions":{"overall":"bearish","risks":"rates"}}`}
	report, err := NewScreener(completer, nil, nil).Screen(context.Background(), ScreenRequest{PortfolioType: "stocks", UserQuery: "dividend payers"})
	require.NoError(t, err)

	require.Len(t, report.Assets, 1)
	a := report.Assets[0]
	assert.Equal(t, "KO", a.Symbol)
	assert.Equal(t, "buy", a.Recommendation)
	assert.Equal(t, 50.0, a.Confidence)
	assert.Equal(t, 60.0, a.PriceForecast.ProjectedPrice)
	assert.Equal(t, "positive", a.RecentNews[0].Sentiment)
	assert.Equal(t, MarketConditions{Overall: "bearish", KeyTrends: []string{}, Risks: []string{"rates"}}, report.MarketConditions)
}

func TestScreenFailures(t *testing.T) {

	t.Run("unparseable", func(t *testing.T) {
		s := NewScreener(&completerMock{text: "I am unable to provide advice."}, nil, nil)
		_, err := s.Screen(context.Background(), ScreenRequest{PortfolioType: "crypto", UserQuery: "layer one chains"})
		assert.ErrorIs(t, err, ErrUnparseable)
	})

	t.Run("provider error passes through", func(t *testing.T) {
		s := NewScreener(&completerMock{err: ErrRateLimited}, nil, nil)
		_, err := s.Screen(context.Background(), ScreenRequest{PortfolioType: "crypto", UserQuery: "layer one chains"})
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("no assets is still a report", func(t *testing.T) {
		s := NewScreener(&completerMock{text: `{"summary":"nothing fits"}`}, nil, nil)
		report, err := s.Screen(context.Background(), ScreenRequest{PortfolioType: "stocks", UserQuery: "impossible criteria"})
		require.NoError(t, err)
		assert.NotNil(t, report.Assets)
		assert.Empty(t, report.Assets)

		b, err := json.Marshal(report)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"assets":[]`)
	})
}
