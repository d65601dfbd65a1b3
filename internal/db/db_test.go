package db

import (
	"os"
	"testing"

	m "portfoliotracker/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
export DB_TEST_DSN_HOST=127.0.0.1
the tests below need a reachable postgres with a "portfolio_test" database
*/

func testStorage(t *testing.T) *Storage {
	host := os.Getenv("DB_TEST_DSN_HOST")
	if host == "" {
		t.Skip("DB_TEST_DSN_HOST not set")
	}
	stg, err := NewStorage(NewDbConfig("postgres", "postgres", os.Getenv("DB_TEST_PASSWORD"), host, "5432", "portfolio_test", "disable"), nil)
	require.NoError(t, err)
	require.NoError(t, stg.Migrate())
	return stg
}

func TestDsn(t *testing.T) {
	pg := NewDbConfig("postgres", "u", "p", "h", "5432", "d", "")
	assert.Equal(t, "host=h user=u password=p dbname=d port=5432 sslmode=require TimeZone=UTC", pg.Dsn())

	my := NewDbConfig("mysql", "u", "p", "h", "3306", "d", "")
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", my.Dsn())

	_, err := NewDbConfig("sqlite", "", "", "", "", "", "").dialector()
	assert.Error(t, err)
}

func TestCostBasisUpsert(t *testing.T) {
	stg := testStorage(t)
	user := uuid.NewString()

	first := &m.AssetCostBasis{UserID: user, Symbol: "XBT", AssetType: "crypto", CostBasis: 100}
	second := &m.AssetCostBasis{UserID: user, Symbol: "XBT", AssetType: "crypto", CostBasis: 250}
	require.NoError(t, stg.UpsertCostBasis(first))
	require.NoError(t, stg.UpsertCostBasis(second))

	rows, err := stg.RetrieveCostBases(user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 250.0, rows[0].CostBasis)
	assert.Equal(t, rows[0].ID, first.ID)
	assert.Equal(t, rows[0].ID, second.ID)
	assert.Equal(t, 250.0, second.CostBasis)
}

func TestPortfolioDefault(t *testing.T) {
	stg := testStorage(t)
	user := uuid.NewString()

	a := &m.Portfolio{UserID: user, Name: "a", IsDefault: true}
	b := &m.Portfolio{UserID: user, Name: "b"}
	require.NoError(t, stg.SavePortfolio(a))
	require.NoError(t, stg.SavePortfolio(b))

	yes := true
	_, err := stg.UpdatePortfolio(user, b.ID, nil, nil, &yes)
	require.NoError(t, err)

	list, err := stg.RetrievePortfolios(user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.False(t, list[1].IsDefault)

	assert.True(t, IsNotFound(stg.DeleteManualAsset(user, uuid.NewString())))
}
