package handler

import (
	"testing"

	m "portfoliotracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioHandler(t *testing.T) {

	app, ms := newTestApp(t)
	ms.store.portfolios = []m.Portfolio{
		{ID: "p-default", UserID: "alice", Name: "Main", IsDefault: true},
	}

	var created portfolioResponse

	t.Run("create", func(t *testing.T) {
		code := sendRequest(t, app, "POST", "/api/portfolios", aliceToken, AddPortfolioParam{Name: "  Retirement  "}, &created)
		assert.Equal(t, 200, code)
		require.NotNil(t, created.Portfolio)
		assert.Equal(t, "Retirement", created.Portfolio.Name)
		assert.False(t, created.Portfolio.IsDefault)
	})

	t.Run("duplicate name", func(t *testing.T) {
		var resp errorResponse
		code := sendRequest(t, app, "POST", "/api/portfolios", aliceToken, AddPortfolioParam{Name: "Retirement"}, &resp)
		assert.Equal(t, 400, code)
		assert.Equal(t, "Portfolio name already exists", resp.Error)
	})

	t.Run("blank name", func(t *testing.T) {
		code := sendRequest(t, app, "POST", "/api/portfolios", aliceToken, AddPortfolioParam{Name: "   "}, nil)
		assert.Equal(t, 400, code)
	})

	t.Run("same name for another user", func(t *testing.T) {
		code := sendRequest(t, app, "POST", "/api/portfolios", bobToken, AddPortfolioParam{Name: "Retirement"}, nil)
		assert.Equal(t, 200, code)
	})

	t.Run("list", func(t *testing.T) {
		var resp portfoliosResponse
		code := sendRequest(t, app, "GET", "/api/portfolios", aliceToken, nil, &resp)
		assert.Equal(t, 200, code)
		assert.Len(t, resp.Portfolios, 2)
	})

	t.Run("update makes it the default", func(t *testing.T) {
		var resp portfolioResponse
		param := UpdatePortfolioParam{IsDefault: ptr(true), Description: ptr("long term")}
		code := sendRequest(t, app, "PUT", "/api/portfolios/"+created.Portfolio.ID, aliceToken, param, &resp)
		assert.Equal(t, 200, code)
		assert.True(t, resp.Portfolio.IsDefault)
		assert.Equal(t, "long term", *resp.Portfolio.Description)

		main, err := ms.store.RetrievePortfolio("alice", "p-default")
		require.NoError(t, err)
		assert.False(t, main.IsDefault)
	})

	t.Run("rename onto an existing name", func(t *testing.T) {
		var resp errorResponse
		code := sendRequest(t, app, "PUT", "/api/portfolios/"+created.Portfolio.ID, aliceToken, UpdatePortfolioParam{Name: ptr("Main")}, &resp)
		assert.Equal(t, 400, code)
		assert.Equal(t, "Portfolio name already exists", resp.Error)
	})

	t.Run("update of another user's portfolio", func(t *testing.T) {
		code := sendRequest(t, app, "PUT", "/api/portfolios/"+created.Portfolio.ID, bobToken, UpdatePortfolioParam{Name: ptr("Mine")}, nil)
		assert.Equal(t, 404, code)
	})

	t.Run("assets", func(t *testing.T) {
		url := "/api/portfolios/" + created.Portfolio.ID + "/assets"
		param := PortfolioAssetParam{
			ManualAssetParam: ManualAssetParam{
				Symbol:    "eth",
				Name:      "Ethereum",
				AssetType: m.Crypto.String(),
				Quantity:  ptr(2.0),
				CostBasis: ptr(4000.0),
			},
			Notes: ptr("cold wallet"),
		}

		var added portfolioAssetResponse
		code := sendRequest(t, app, "POST", url, aliceToken, param, &added)
		assert.Equal(t, 201, code)
		require.NotNil(t, added.Asset)
		assert.Equal(t, "ETH", added.Asset.Symbol)
		assert.Equal(t, created.Portfolio.ID, added.Asset.PortfolioID)

		param.Quantity = ptr(0.0)
		code = sendRequest(t, app, "POST", url, aliceToken, param, nil)
		assert.Equal(t, 400, code)

		code = sendRequest(t, app, "POST", url, bobToken, param, nil)
		assert.Equal(t, 404, code)

		var list portfolioAssetsResponse
		code = sendRequest(t, app, "GET", url, aliceToken, nil, &list)
		assert.Equal(t, 200, code)
		assert.Len(t, list.Assets, 1)

		code = sendRequest(t, app, "GET", url, bobToken, nil, nil)
		assert.Equal(t, 404, code)

		var del successResponse
		code = sendRequest(t, app, "DELETE", url+"/"+added.Asset.ID, aliceToken, nil, &del)
		assert.Equal(t, 200, code)
		assert.True(t, del.Success)
		assert.Empty(t, ms.store.pAssets)
	})

	t.Run("default portfolio cannot be deleted", func(t *testing.T) {
		var resp errorResponse
		code := sendRequest(t, app, "DELETE", "/api/portfolios/"+created.Portfolio.ID, aliceToken, nil, &resp)
		assert.Equal(t, 400, code)
		assert.Equal(t, "Cannot delete default portfolio", resp.Error)
	})

	t.Run("delete", func(t *testing.T) {
		var resp successResponse
		code := sendRequest(t, app, "DELETE", "/api/portfolios/p-default", aliceToken, nil, &resp)
		assert.Equal(t, 200, code)
		assert.True(t, resp.Success)

		code = sendRequest(t, app, "DELETE", "/api/portfolios/p-default", aliceToken, nil, nil)
		assert.Equal(t, 404, code)
		ms.store.prettyPrint()
	})
}
