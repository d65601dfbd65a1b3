package scrape

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	m "portfoliotracker/internal/model"

	"github.com/rs/zerolog"
)

const (
	chartTimeout = 10 * time.Second
	quoteTimeout = 5 * time.Second

	quoteRange = "5d"
	flatWindow = 5
	flatStep   = 0.01
)

var ErrNoChartData = errors.New("no chart data")

type YahooConfig struct {
	BaseURL        string
	UserAgent      string
	FlatCloseCheck bool
}

type Yahoo struct {
	baseURL   string
	userAgent string
	flatCheck bool
	lg        zerolog.Logger
}

func NewYahoo(conf *YahooConfig) *Yahoo {
	y := &Yahoo{
		baseURL:   strings.TrimRight(conf.BaseURL, "/"),
		userAgent: conf.UserAgent,
		flatCheck: conf.FlatCloseCheck,
		lg:        zerolog.New(os.Stdout).With().Str("Module", "Yahoo").Timestamp().Logger(),
	}
	if y.baseURL == "" {
		y.baseURL = "https://query1.finance.yahoo.com"
	}
	if y.userAgent == "" {
		y.userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	return y
}

// Chart is a daily close series. Timestamps and Closes are aligned and skip null closes.
type Chart struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Timestamps []int64   `json:"timestamps"`
	Closes     []float64 `json:"closes"`
}

type chartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) Chart(ctx context.Context, symbol, rng, interval string) (*Chart, error) {

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), url.Values{"range": {rng}, "interval": {interval}}.Encode())

	var rtn chartResp
	err := sendRequest(ctx, &y.lg, chartTimeout, u, http.MethodGet, map[string]string{"User-Agent": y.userAgent}, nil, &rtn)
	if err != nil {
		return nil, fmt.Errorf("Chart %s failed. %w", symbol, err)
	}
	if rtn.Chart.Error != nil {
		return nil, fmt.Errorf("Chart %s failed. %s", symbol, rtn.Chart.Error.Description)
	}
	if len(rtn.Chart.Result) == 0 {
		return nil, ErrNoChartData
	}

	res := rtn.Chart.Result[0]
	c := &Chart{Symbol: symbol, Price: res.Meta.RegularMarketPrice}

	var closes []*float64
	if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		c.Timestamps = append(c.Timestamps, ts)
		c.Closes = append(c.Closes, *closes[i])
	}

	y.lg.Debug().Msgf("Retrieved %d closes for %s", len(c.Closes), symbol)
	return c, nil
}

// EquitySymbol maps an exchange ticker onto the chart symbol (BRK.B -> BRK-B).
func EquitySymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}

// EquityQuote returns the market price and previous close. When the recent closes are flat
// (market closed) the previous close is the price itself, so no daily move is reported.
func (y *Yahoo) EquityQuote(ctx context.Context, symbol string) (m.Quote, error) {

	ctx, cancel := context.WithTimeout(ctx, quoteTimeout)
	defer cancel()

	c, err := y.Chart(ctx, EquitySymbol(symbol), quoteRange, "1d")
	if err != nil {
		return m.Quote{}, err
	}
	if c.Price <= 0 || len(c.Closes) < 2 {
		return m.Quote{}, fmt.Errorf("insufficient data for %s", symbol)
	}

	q := m.Quote{
		Symbol:        symbol,
		Price:         c.Price,
		PreviousClose: c.Closes[len(c.Closes)-2],
		Source:        "yahoo",
	}

	if y.flatCheck && isFlat(c.Closes) {
		y.lg.Info().Msgf("%s: no recent price movement, market may be closed", symbol)
		q.PreviousClose = q.Price
	}
	if q.PreviousClose <= 0 {
		q.PreviousClose = q.Price
	}
	return q, nil
}

func isFlat(closes []float64) bool {
	if len(closes) > flatWindow {
		closes = closes[len(closes)-flatWindow:]
	}
	for i := 1; i < len(closes); i++ {
		if math.Abs(closes[i]-closes[i-1]) > flatStep {
			return false
		}
	}
	return true
}
