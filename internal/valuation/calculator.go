package valuation

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"portfoliotracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const noPriceNote = "Price data unavailable - asset may not be tradeable on Kraken"

type Calculator struct {
	table *Table
	lg    zerolog.Logger
}

func NewCalculator(t *Table) *Calculator {
	return &Calculator{
		table: t,
		lg:    zerolog.New(os.Stdout).With().Str("Module", "Valuation").Timestamp().Logger(),
	}
}

func (c *Calculator) Table() *Table {
	return c.table
}

// Exchange values exchange balances. crypto is keyed by ticker pair, equity by the suffix-free ticker,
// costBasis by model.CostBasisKey.
func (c *Calculator) Exchange(balances map[string]string, crypto, equity map[string]model.Quote, costBasis map[string]float64) ([]model.AssetValuation, error) {

	codes := make([]string, 0, len(balances))
	for code := range balances {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]model.AssetValuation, 0, len(codes))
	for _, code := range codes {
		amount, err := decimal.NewFromString(strings.TrimSpace(balances[code]))
		if err != nil {
			return nil, fmt.Errorf("balance of %s is not a number. %w", code, err)
		}
		if c.table.IsDust(amount) {
			continue
		}

		asset := c.table.Classify(code)
		row := c.exchangeRow(asset, amount.InexactFloat64(), crypto, equity)

		row.CostBasis = costBasis[model.CostBasisKey(code, asset.CostBasisType())]
		if row.CostBasis > 0 && row.Value > 0 {
			row.UnrealizedPnL = row.Value - row.CostBasis
			row.UnrealizedPnLPercentage = row.UnrealizedPnL / row.CostBasis * 100
		}

		if row.CurrentPrice == 0 && asset.Class != ClassStablecoin {
			row.Note = noPriceNote
		}
		rows = append(rows, row)
	}

	c.lg.Debug().Msgf("Valued %d of %d exchange balances", len(rows), len(balances))
	return rows, nil
}

func (c *Calculator) exchangeRow(asset Asset, balance float64, crypto, equity map[string]model.Quote) model.AssetValuation {

	row := model.AssetValuation{
		Symbol:    asset.Code,
		Name:      asset.Name,
		AssetType: asset.CostBasisType(),
		Balance:   balance,
		Source:    model.SourceKraken,
	}

	switch asset.Class {
	case ClassStablecoin:
		row.CurrentPrice = 1
		row.Value = balance

	case ClassFiat:
		row.CurrentPrice = asset.USDRate
		row.Value = balance * asset.USDRate

	case ClassEquity:
		q, ok := equity[c.table.StripEquity(asset.Code)]
		if !ok || q.Price <= 0 {
			c.lg.Warn().Msgf("No equity price for %s", asset.Code)
			return row
		}
		row.CurrentPrice = q.Price
		row.Value = balance * q.Price
		if q.PreviousClose > 0 && q.PreviousClose != q.Price {
			prev := balance * q.PreviousClose
			row.DailyPnL = row.Value - prev
			row.DailyPnLPercentage = row.DailyPnL / prev * 100
		}

	default:
		var q model.Quote
		found := false
		for _, pair := range c.table.CryptoCandidates(asset.Code, asset.Pair) {
			if q, found = crypto[pair]; found && q.Price > 0 {
				break
			}
			found = false
		}
		if !found {
			c.lg.Warn().Msgf("No crypto price for %s", asset.Code)
			return row
		}
		row.CurrentPrice = q.Price
		row.Value = balance * q.Price
		open := balance * q.PreviousClose
		row.DailyPnL = row.Value - open
		if open > 0 {
			row.DailyPnLPercentage = row.DailyPnL / open * 100
		}
	}

	return row
}

// Manual values manually tracked holdings. quotes is keyed by the holding's symbol; a holding
// without a quote is valued at its own cost basis and flagged with a note.
func (c *Calculator) Manual(assets []model.ManualAsset, quotes map[string]model.Quote) []model.AssetValuation {

	rows := make([]model.AssetValuation, 0, len(assets))
	for _, a := range assets {
		row := model.AssetValuation{
			Symbol:    a.Symbol,
			Name:      c.table.StripEquity(a.Name),
			AssetType: a.AssetType,
			Balance:   a.Quantity,
			CostBasis: a.CostBasis,
			Source:    model.SourceManual,
			ManualID:  a.ID,
		}

		q, ok := quotes[a.Symbol]
		if ok && q.Price > 0 {
			row.CurrentPrice = q.Price
		} else {
			if a.Quantity > 0 {
				row.CurrentPrice = a.CostBasis / a.Quantity
			}
			row.Note = fmt.Sprintf("No real-time price data available for %s. Using cost basis. Check that the ticker symbol is correct.", a.Symbol)
		}
		row.Value = a.Quantity * row.CurrentPrice

		prevPrice := row.CurrentPrice
		if ok && q.PreviousClose > 0 {
			prevPrice = q.PreviousClose
		}
		if prev := a.Quantity * prevPrice; prev > 0 {
			row.DailyPnL = row.Value - prev
			row.DailyPnLPercentage = row.DailyPnL / prev * 100
		}

		if a.CostBasis > 0 {
			row.UnrealizedPnL = row.Value - a.CostBasis
			row.UnrealizedPnLPercentage = row.UnrealizedPnL / a.CostBasis * 100
		}
		rows = append(rows, row)
	}
	return rows
}

// Summarize totals the rows. Only rows with a positive value contribute value and daily P&L.
func Summarize(rows []model.AssetValuation) model.PortfolioView {

	var value, daily, cost, unrealized decimal.Decimal
	for _, r := range rows {
		if r.Value > 0 {
			value = value.Add(decimal.NewFromFloat(r.Value))
			daily = daily.Add(decimal.NewFromFloat(r.DailyPnL))
		}
		cost = cost.Add(decimal.NewFromFloat(r.CostBasis))
		unrealized = unrealized.Add(decimal.NewFromFloat(r.UnrealizedPnL))
	}

	view := model.PortfolioView{
		Assets:             rows,
		TotalValue:         value.InexactFloat64(),
		TotalDailyPnL:      daily.InexactFloat64(),
		TotalCostBasis:     cost.InexactFloat64(),
		TotalUnrealizedPnL: unrealized.InexactFloat64(),
	}
	if view.Assets == nil {
		view.Assets = []model.AssetValuation{}
	}

	if open := value.Sub(daily); value.IsPositive() && open.IsPositive() {
		view.TotalDailyPnLPercentage = daily.Div(open).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	if cost.IsPositive() {
		view.TotalUnrealizedPnLPercentage = unrealized.Div(cost).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return view
}
