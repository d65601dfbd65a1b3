package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	m "portfoliotracker/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartJSON(price float64, closes ...float64) string {
	ts := make([]string, len(closes))
	cs := make([]string, len(closes))
	for i, c := range closes {
		ts[i] = fmt.Sprint(1700000000 + i*86400)
		cs[i] = fmt.Sprint(c)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"regularMarketPrice":%v},"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		price, strings.Join(ts, ","), strings.Join(cs, ","))
}

// upstream serves both the exchange ticker and the chart endpoint.
func upstream(t *testing.T, charts map[string]string, calls *sync.Map) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Store(r.URL.Path+"?"+r.URL.Query().Get("pair"), true)
		}
		switch {
		case r.URL.Path == tickerPath:
			if r.URL.Query().Get("pair") == "BTCUSD" {
				fmt.Fprint(w, `{"error":[],"result":{"XXBTZUSD":{"c":["50000","1"],"o":"49000"}}}`)
				return
			}
			fmt.Fprint(w, `{"error":["EQuery:Unknown asset pair"]}`)
		case strings.HasSuffix(r.URL.Path, "/latest/bars"):
			fmt.Fprint(w, `{"bars":{}}`)
		case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/"):
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			sym := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
			body, ok := charts[sym]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
				return
			}
			fmt.Fprint(w, body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestEquityQuote(t *testing.T) {

	charts := map[string]string{
		"AAPL":  chartJSON(200, 190, 195, 198, 199, 200),
		"FLAT":  chartJSON(100, 100, 100, 100.005, 100, 100),
		"BRK-B": chartJSON(400, 390, 400),
		"DOWN":  chartJSON(90, 100, 95),
	}
	srv := upstream(t, charts, nil)
	defer srv.Close()

	y := NewYahoo(&YahooConfig{BaseURL: srv.URL, FlatCloseCheck: true})

	t.Run("previous close is second to last", func(t *testing.T) {
		q, err := y.EquityQuote(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, 200.0, q.Price)
		assert.Equal(t, 199.0, q.PreviousClose)
	})

	t.Run("flat market reports no move", func(t *testing.T) {
		q, err := y.EquityQuote(context.Background(), "FLAT")
		require.NoError(t, err)
		assert.Equal(t, q.Price, q.PreviousClose)
	})

	t.Run("flat check switched off", func(t *testing.T) {
		off := NewYahoo(&YahooConfig{BaseURL: srv.URL})
		q, err := off.EquityQuote(context.Background(), "FLAT")
		require.NoError(t, err)
		assert.Equal(t, 100.0, q.PreviousClose)
	})

	t.Run("dots become hyphens", func(t *testing.T) {
		q, err := y.EquityQuote(context.Background(), "BRK.B")
		require.NoError(t, err)
		assert.Equal(t, "BRK.B", q.Symbol)
		assert.Equal(t, 390.0, q.PreviousClose)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := y.EquityQuote(context.Background(), "NOPE")
		assert.Error(t, err)
	})
}

func TestIsFlat(t *testing.T) {
	assert.True(t, isFlat([]float64{10, 10, 10.01}))
	assert.False(t, isFlat([]float64{10, 10.02}))
	assert.True(t, isFlat([]float64{1, 5, 10, 10, 10, 10, 10}))
}

type alpacaMock struct {
	q   m.Quote
	err error
}

func (a alpacaMock) LatestCrypto(ctx context.Context, symbol string) (m.Quote, error) {
	return a.q, a.err
}

func TestQuotes(t *testing.T) {

	charts := map[string]string{
		"AAPL":     chartJSON(200, 190, 195),
		"DOGE-USD": chartJSON(0.1, 0.09, 0.1),
	}
	var calls sync.Map
	srv := upstream(t, charts, &calls)
	defer srv.Close()

	s, err := NewScraper(
		WithKraken(&KrakenConfig{BaseURL: srv.URL}, nil),
		WithYahoo(&YahooConfig{BaseURL: srv.URL}),
	)
	require.NoError(t, err)
	s.alpaca = alpacaMock{err: errors.New("no data")}

	quotes := s.Quotes(context.Background(), []m.PriceRequest{
		{Symbol: "BTC", AssetType: "crypto"},
		{Symbol: "DOGE", AssetType: "crypto"},
		{Symbol: "AAPL.EQ", AssetType: "equity"},
		{Symbol: "MISSING", AssetType: "manual"},
	})

	assert.Len(t, quotes, 3)
	assert.Equal(t, 50000.0, quotes["BTC"].Price)
	assert.Equal(t, 0.1, quotes["DOGE"].Price)
	assert.Equal(t, 200.0, quotes["AAPL.EQ"].Price)
	_, ok := quotes["MISSING"]
	assert.False(t, ok)

	_, askedExchange := calls.Load(tickerPath + "?DOGEUSD")
	assert.True(t, askedExchange)

	t.Run("alpaca before the chart", func(t *testing.T) {
		s.alpaca = alpacaMock{q: m.Quote{Price: 0.12}}
		quotes := s.Quotes(context.Background(), []m.PriceRequest{{Symbol: "DOGE", AssetType: "crypto"}})
		assert.Equal(t, 0.12, quotes["DOGE"].Price)
	})
}

func TestAlpacaMissingBar(t *testing.T) {

	srv := upstream(t, nil, nil)
	defer srv.Close()

	opts := marketdata.ClientOpts{BaseURL: srv.URL}

	_, err := newAlpacaCrypto(opts).LatestCrypto(context.Background(), "NOSUCHCOIN")
	assert.Error(t, err)

	s, err := NewScraper(
		WithKraken(&KrakenConfig{BaseURL: srv.URL}, nil),
		WithYahoo(&YahooConfig{BaseURL: srv.URL}),
		WithAlpaca(opts),
	)
	require.NoError(t, err)

	quotes := s.Quotes(context.Background(), []m.PriceRequest{{Symbol: "NOSUCHCOIN", AssetType: "crypto"}})
	assert.Empty(t, quotes)
}

type cacheMock struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *cacheMock) SetCache(ctx context.Context, key string, value []byte, exp time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *cacheMock) GetCache(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func TestHistoryCache(t *testing.T) {

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, chartJSON(10, 8, 9, 10))
	}))
	defer srv.Close()

	cache := &cacheMock{data: map[string][]byte{}}
	s, err := NewScraper(WithYahoo(&YahooConfig{BaseURL: srv.URL}), WithCache(cache, time.Minute))
	require.NoError(t, err)

	c1, err := s.History(context.Background(), "SPY", "6mo")
	require.NoError(t, err)
	c2, err := s.History(context.Background(), "SPY", "6mo")
	require.NoError(t, err)

	assert.Equal(t, 1, hits)
	assert.Equal(t, c1.Closes, c2.Closes)
	assert.Len(t, c2.Timestamps, 3)

	_, err = NewScraper(WithCache(cache, 0))
	assert.Error(t, err)
}

func TestChartSkipsNullCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":5},"timestamp":[1,2,3],"indicators":{"quote":[{"close":[4,null,5]}]}}]}}`)
	}))
	defer srv.Close()

	c, err := NewYahoo(&YahooConfig{BaseURL: srv.URL}).Chart(context.Background(), "X", "5d", "1d")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, c.Timestamps)
	assert.Equal(t, []float64{4, 5}, c.Closes)
}

func TestHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("s"))
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>feed</title>
<item><title>Apple beats estimates</title><description>Revenue up.</description><pubDate>Tue, 10 Sep 2024 14:00:00 +0000</pubDate></item>
<item><title>Second</title><description>More.</description></item>
<item><title>Third</title></item>
</channel></rss>`)
	}))
	defer srv.Close()

	s, err := NewScraper(WithNews(srv.URL))
	require.NoError(t, err)

	hs, err := s.Headlines(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "Apple beats estimates", hs[0].Title)
	assert.Equal(t, "Revenue up.", hs[0].Summary)
	assert.Equal(t, "2024-09-10", hs[0].PublishedAt)
}
