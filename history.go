package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	m "portfoliotracker/internal/model"
	"portfoliotracker/scrape"

	"golang.org/x/sync/errgroup"
)

const (
	benchmarkSymbol = "^GSPC"
	priceHistoryRng = "6mo"
	maxHistoryDays  = 365

	dateKey   = "2006-01-02"
	dateLabel = "Jan 2, 2006"
)

var ErrInvalidRange = errors.New("date range must be between 1 and 365 days")

// chartSymbol maps a holding onto its chart symbol: crypto trades against USD, equities lose the exchange suffix.
func (t *Tracker) chartSymbol(symbol, assetType string) string {

	table := t.calc.Table()
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	if assetType == m.Crypto.String() || table.IsCryptoSymbol(sym) {
		return sym + "-USD"
	}
	return scrape.EquitySymbol(table.StripEquity(sym))
}

// PriceHistory returns six months of daily closes for one symbol.
func (t *Tracker) PriceHistory(ctx context.Context, symbol, assetType string) (*scrape.Chart, error) {

	sym := t.chartSymbol(symbol, strings.ToLower(assetType))

	c, err := t.pricer.History(ctx, sym, priceHistoryRng)
	if err != nil {
		return nil, fmt.Errorf("History failed. %w", err)
	}
	if len(c.Timestamps) == 0 || len(c.Closes) == 0 {
		return nil, fmt.Errorf("History failed. %w", scrape.ErrNoChartData)
	}

	c.Symbol = sym
	return c, nil
}

type HistoryAsset struct {
	Symbol    string  `json:"symbol" validate:"required"`
	AssetType string  `json:"assetType"`
	Balance   float64 `json:"balance"`
}

type HistoryPoint struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolioValue"`
	SpyPrice       float64 `json:"spyPrice"`
}

/*
PortfolioHistory values today's holdings at each day's close since start and pairs it with the S&P 500 level.
Days where either side has no close are skipped. A symbol whose history cannot be fetched contributes nothing.
*/
func (t *Tracker) PortfolioHistory(ctx context.Context, assets []HistoryAsset, start time.Time) ([]HistoryPoint, error) {

	start = start.UTC()
	days := int(math.Ceil(t.now().Sub(start).Hours() / 24))
	if days < 1 || days > maxHistoryDays {
		return nil, ErrInvalidRange
	}
	rng := historyRange(days)

	benchmark := map[string]float64{}
	prices := make([]map[string]float64, len(assets))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(validateFanOut)

	g.Go(func() error {
		closes := t.closesByDate(ctx, benchmarkSymbol, rng)
		mu.Lock()
		benchmark = closes
		mu.Unlock()
		return nil
	})

	for i, a := range assets {
		g.Go(func() error {
			closes := t.closesByDate(ctx, t.chartSymbol(a.Symbol, a.AssetType), rng)
			mu.Lock()
			prices[i] = closes
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	rtn := make([]HistoryPoint, 0, days+1)
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(dateKey)

		var value float64
		for j, a := range assets {
			if p := prices[j][key]; p > 0 {
				value += a.Balance * p
			}
		}

		spy := benchmark[key]
		if value > 0 && spy > 0 {
			rtn = append(rtn, HistoryPoint{
				Date:           day.Format(dateLabel),
				PortfolioValue: value,
				SpyPrice:       spy,
			})
		}
	}

	t.lg.Info().Msgf("Built %d history points over %d days for %d assets", len(rtn), days, len(assets))
	return rtn, nil
}

func (t *Tracker) closesByDate(ctx context.Context, symbol, rng string) map[string]float64 {

	rtn := map[string]float64{}

	c, err := t.pricer.History(ctx, symbol, rng)
	if err != nil {
		t.lg.Warn().Err(err).Msgf("Failed to fetch historical data for %s", symbol)
		return rtn
	}

	for i, ts := range c.Timestamps {
		if i >= len(c.Closes) {
			break
		}
		if c.Closes[i] > 0 && !math.IsNaN(c.Closes[i]) {
			rtn[time.Unix(ts, 0).UTC().Format(dateKey)] = c.Closes[i]
		}
	}
	return rtn
}

func historyRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	}
	return "1y"
}
