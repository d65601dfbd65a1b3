package ai

import (
	"context"
	"encoding/json"
	"testing"

	m "portfoliotracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reviewPortfolio = `{
  "totalValue": 1000,
  "assets": [
    {"symbol": "BTC", "name": "Bitcoin", "asset_type": "crypto", "balance": 0.01, "currentPrice": 50000, "value": 500},
    {"symbol": "AAPL.EQ", "name": "Apple", "asset_type": "equity", "balance": 1, "currentPrice": 250, "value": 250},
    {"symbol": "GOLD", "name": "Gold bar", "asset_type": "manual", "balance": 1, "currentPrice": 250, "value": 250}
  ]
}`

func TestComputeAllocation(t *testing.T) {

	var p ReviewPortfolio
	require.NoError(t, json.Unmarshal([]byte(reviewPortfolio), &p))

	assert.Equal(t, Allocation{Crypto: 50, Equity: 25, Manual: 25, Total: 1000}, ComputeAllocation(p))
	assert.Equal(t, Allocation{}, ComputeAllocation(ReviewPortfolio{Assets: []m.AssetValuation{{AssetType: "crypto", Value: 5}}}))
}

func TestReview(t *testing.T) {

	t.Run("json answer", func(t *testing.T) {
		completer := &completerMock{text: "```json\n{\"title\":\"AI Portfolio Review\",\"riskMeter\":{\"level\":\"HIGH\"}}\n```"}
		res, err := NewReviewer(completer).Review(context.Background(), json.RawMessage(reviewPortfolio))
		require.NoError(t, err)

		assert.Contains(t, res.ID, "review_")
		assert.JSONEq(t, `{"title":"AI Portfolio Review","riskMeter":{"level":"HIGH"}}`, string(res.Data))
		assert.Equal(t, 50.0, res.DebugAllocation.Crypto)

		user := completer.prompts[0].User
		assert.Contains(t, user, "Total value: $1,000.00")
		assert.Contains(t, user, "- BTC (Bitcoin, crypto): 0.01 units at $50,000.00 = $500.00")
		assert.Contains(t, user, `"symbol": "GOLD"`)
	})

	t.Run("free text becomes the summary", func(t *testing.T) {
		res, err := NewReviewer(&completerMock{text: "Looks balanced."}).Review(context.Background(), json.RawMessage(reviewPortfolio))
		require.NoError(t, err)
		assert.JSONEq(t, `{"summary":"Looks balanced."}`, string(res.Data))
	})

	t.Run("bad portfolio", func(t *testing.T) {
		_, err := NewReviewer(&completerMock{}).Review(context.Background(), json.RawMessage(`[1,2]`))
		assert.Error(t, err)
	})
}

func TestInvestorPicks(t *testing.T) {

	completer := &completerMock{text: `{"investor":"Warren Buffett","investmentStyle":"value","recommendations":[{"ticker":"KO"}]}`}
	b, err := NewReviewer(completer).InvestorPicks(context.Background(), InvestorRequest{Investor: "Warren Buffett", InvestmentStyle: "value"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"ticker":"KO"`)

	p := completer.prompts[0]
	assert.Equal(t, 0.5, p.Temperature)
	assert.Contains(t, p.System, "As Warren Buffett, recommend 10 stocks")
	assert.Contains(t, p.System, `"investmentStyle": "value"`)

	_, err = NewReviewer(&completerMock{text: "no"}).InvestorPicks(context.Background(), InvestorRequest{Investor: "x", InvestmentStyle: "y"})
	assert.ErrorIs(t, err, ErrUnparseable)
}
