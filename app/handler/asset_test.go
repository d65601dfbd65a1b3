package handler

import (
	"testing"

	m "portfoliotracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestAssetHandler(t *testing.T) {

	app, ms := newTestApp(t)

	t.Run("ManualAssets", func(t *testing.T) {
		t.Run("create", func(t *testing.T) {
			param := ManualAssetParam{
				Symbol:    " gld ",
				Name:      "Gold ETF",
				AssetType: m.Equity.String(),
				Quantity:  ptr(10.0),
				CostBasis: ptr(1800.0),
			}

			var resp m.ManualAsset
			code := sendRequest(t, app, "POST", "/api/manual-assets", aliceToken, param, &resp)
			assert.Equal(t, 201, code)
			assert.NotEmpty(t, resp.ID)
			assert.Equal(t, "GLD", resp.Symbol)
			assert.Equal(t, "alice", resp.UserID)
			require.Len(t, ms.store.manual, 1)
		})

		t.Run("rejects non-positive quantity", func(t *testing.T) {
			param := ManualAssetParam{
				Symbol:    "BTC",
				Name:      "Bitcoin",
				AssetType: m.Crypto.String(),
				Quantity:  ptr(-1.0),
				CostBasis: ptr(100.0),
			}

			var resp errorResponse
			code := sendRequest(t, app, "POST", "/api/manual-assets", aliceToken, param, &resp)
			assert.Equal(t, 400, code)
			assert.Equal(t, "quantity must be greater than 0", resp.Error)
			assert.Len(t, ms.store.manual, 1)
		})

		t.Run("rejects negative cost basis", func(t *testing.T) {
			param := ManualAssetParam{
				Symbol:    "BTC",
				Name:      "Bitcoin",
				AssetType: m.Crypto.String(),
				Quantity:  ptr(1.0),
				CostBasis: ptr(-5.0),
			}

			code := sendRequest(t, app, "POST", "/api/manual-assets", aliceToken, param, nil)
			assert.Equal(t, 400, code)
			assert.Len(t, ms.store.manual, 1)
		})

		t.Run("rejects unknown asset type", func(t *testing.T) {
			param := ManualAssetParam{
				Symbol:    "BTC",
				Name:      "Bitcoin",
				AssetType: "bond",
				Quantity:  ptr(1.0),
				CostBasis: ptr(0.0),
			}

			var resp errorResponse
			code := sendRequest(t, app, "POST", "/api/manual-assets", aliceToken, param, &resp)
			assert.Equal(t, 400, code)
			assert.Contains(t, resp.Error, "asset_type")
		})

		t.Run("zero cost basis is allowed", func(t *testing.T) {
			param := ManualAssetParam{
				Symbol:    "ART",
				Name:      "Painting",
				AssetType: m.Manual.String(),
				Quantity:  ptr(1.0),
				CostBasis: ptr(0.0),
			}

			code := sendRequest(t, app, "POST", "/api/manual-assets", aliceToken, param, nil)
			assert.Equal(t, 201, code)
			assert.Len(t, ms.store.manual, 2)
		})

		t.Run("list is scoped to the caller", func(t *testing.T) {
			var alice, bob []m.ManualAsset
			assert.Equal(t, 200, sendRequest(t, app, "GET", "/api/manual-assets", aliceToken, nil, &alice))
			assert.Equal(t, 200, sendRequest(t, app, "GET", "/api/manual-assets", bobToken, nil, &bob))
			assert.Len(t, alice, 2)
			assert.Empty(t, bob)
		})

		t.Run("update", func(t *testing.T) {
			id := ms.store.manual[0].ID
			param := ManualAssetParam{
				Symbol:    "GLD",
				Name:      "Gold ETF",
				AssetType: m.Equity.String(),
				Quantity:  ptr(12.0),
				CostBasis: ptr(2100.0),
			}

			var resp m.ManualAsset
			code := sendRequest(t, app, "PUT", "/api/manual-assets/"+id, aliceToken, param, &resp)
			assert.Equal(t, 200, code)
			assert.Equal(t, 12.0, resp.Quantity)
			assert.Equal(t, 2100.0, resp.CostBasis)
		})

		t.Run("update of another user's asset", func(t *testing.T) {
			id := ms.store.manual[0].ID
			param := ManualAssetParam{
				Symbol:    "GLD",
				Name:      "Gold ETF",
				AssetType: m.Equity.String(),
				Quantity:  ptr(1.0),
				CostBasis: ptr(1.0),
			}

			code := sendRequest(t, app, "PUT", "/api/manual-assets/"+id, bobToken, param, nil)
			assert.Equal(t, 404, code)
			assert.Equal(t, 12.0, ms.store.manual[0].Quantity)
		})

		t.Run("delete", func(t *testing.T) {
			id := ms.store.manual[0].ID

			assert.Equal(t, 404, sendRequest(t, app, "DELETE", "/api/manual-assets/"+id, bobToken, nil, nil))

			var resp successResponse
			assert.Equal(t, 200, sendRequest(t, app, "DELETE", "/api/manual-assets/"+id, aliceToken, nil, &resp))
			assert.True(t, resp.Success)
			assert.Len(t, ms.store.manual, 1)
		})
	})

	t.Run("CostBasis", func(t *testing.T) {
		t.Run("upsert keeps one row per symbol and type", func(t *testing.T) {
			var ids []string
			for _, v := range []float64{5000, 5500} {
				param := CostBasisParam{Symbol: "btc", AssetType: m.Crypto.String(), CostBasis: ptr(v)}
				var resp m.AssetCostBasis
				code := sendRequest(t, app, "PUT", "/api/cost-basis", aliceToken, param, &resp)
				assert.Equal(t, 200, code)
				assert.Equal(t, v, resp.CostBasis)
				ids = append(ids, resp.ID)
			}
			require.Len(t, ids, 2)
			assert.NotEmpty(t, ids[0])
			assert.Equal(t, ids[0], ids[1])

			var rows []m.AssetCostBasis
			code := sendRequest(t, app, "GET", "/api/cost-basis", aliceToken, nil, &rows)
			assert.Equal(t, 200, code)
			require.Len(t, rows, 1)
			assert.Equal(t, "BTC", rows[0].Symbol)
			assert.Equal(t, 5500.0, rows[0].CostBasis)
			assert.Equal(t, ids[0], rows[0].ID)
		})

		t.Run("missing cost basis", func(t *testing.T) {
			var resp errorResponse
			code := sendRequest(t, app, "PUT", "/api/cost-basis", aliceToken, CostBasisParam{Symbol: "BTC", AssetType: m.Crypto.String()}, &resp)
			assert.Equal(t, 400, code)
			assert.Equal(t, "Missing required field: cost_basis", resp.Error)
		})
	})
}
