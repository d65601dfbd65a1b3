package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	conf, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", conf.Db.Driver)
	assert.True(t, conf.Pricing.FlatCloseCheck)
	assert.Equal(t, 15*time.Minute, conf.HistoryCacheTTL())
	t.Logf("%+v", conf)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PRICING_FLAT_CLOSE_CHECK", "false")
	t.Setenv("ALPACA_API_KEY", "pk-test")

	conf, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "mysql", conf.Db.Driver)
	assert.Equal(t, "sk-test", conf.AIConfig().OpenAIKey)
	assert.False(t, conf.YahooConfig().FlatCloseCheck)
	assert.Equal(t, "pk-test", conf.AlpacaOpts().APIKey)
}

func TestAssetTable(t *testing.T) {
	conf, err := NewConfig()
	require.NoError(t, err)

	tb, err := conf.AssetTable()
	require.NoError(t, err)

	btc := tb.Classify("XBT")
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.Equal(t, "XXBTZUSD", btc.Pair)

	assert.Equal(t, "US Dollar", tb.Classify("ZUSD").Name)
	assert.Equal(t, 0.0067, tb.Classify("ZJPY").USDRate)
	assert.Equal(t, "XBTUSD", tb.ValidatePair("BTC"))
	assert.Equal(t, "SOLUSD", tb.ValidatePair("SOL"))
	assert.True(t, tb.IsCryptoSymbol("sol"))
}
