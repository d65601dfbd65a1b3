package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	m "portfoliotracker/internal/model"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReviewPortfolio is the part of a portfolio view the review reads for itself. The rest is passed through to the model.
type ReviewPortfolio struct {
	TotalValue float64            `json:"totalValue"`
	Assets     []m.AssetValuation `json:"assets"`
}

// Allocation is the share of total value per asset type, in percent.
type Allocation struct {
	Crypto float64 `json:"crypto"`
	Equity float64 `json:"equity"`
	Manual float64 `json:"manual"`
	Total  float64 `json:"total"`
}

type ReviewResult struct {
	ID              string          `json:"id"`
	Data            json.RawMessage `json:"data"`
	DebugAllocation Allocation      `json:"debugAllocation"`
}

type Reviewer struct {
	completer Completer
	lg        zerolog.Logger
}

func NewReviewer(completer Completer) *Reviewer {
	return &Reviewer{
		completer: completer,
		lg:        zerolog.New(os.Stdout).With().Str("Module", "Reviewer").Timestamp().Logger(),
	}
}

func ComputeAllocation(p ReviewPortfolio) Allocation {

	var crypto, equity, manual float64
	for _, a := range p.Assets {
		switch a.AssetType {
		case m.Crypto.String():
			crypto += a.Value
		case m.Equity.String():
			equity += a.Value
		case m.Manual.String():
			manual += a.Value
		}
	}

	alloc := Allocation{Total: p.TotalValue}
	if p.TotalValue > 0 {
		alloc.Crypto = crypto / p.TotalValue * 100
		alloc.Equity = equity / p.TotalValue * 100
		alloc.Manual = manual / p.TotalValue * 100
	}
	return alloc
}

// Review asks the model for a structured review of the portfolio. Output that is not JSON comes back as a summary.
func (r *Reviewer) Review(ctx context.Context, raw json.RawMessage) (*ReviewResult, error) {

	var p ReviewPortfolio
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w. %s", ErrBadPortfolio, err)
	}
	alloc := ComputeAllocation(p)
	r.lg.Info().Int("assets", len(p.Assets)).Msgf("Allocation crypto %.1f%% equity %.1f%% manual %.1f%% of %s",
		alloc.Crypto, alloc.Equity, alloc.Manual, usd(p.TotalValue))

	text, err := r.completer.Complete(ctx, Prompt{
		System: reviewSystem,
		User:   reviewPrompt(p, alloc, raw),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	data, err := ExtractObject(text)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"summary": text})
	}

	return &ReviewResult{
		ID:              "review_" + uuid.NewString(),
		Data:            data,
		DebugAllocation: alloc,
	}, nil
}

func reviewPrompt(p ReviewPortfolio, alloc Allocation, raw json.RawMessage) string {

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total value: %s\n", usd(p.TotalValue))
	fmt.Fprintf(&sb, "Allocation by value: crypto %.1f%%, equity %.1f%%, manual %.1f%%\n", alloc.Crypto, alloc.Equity, alloc.Manual)
	sb.WriteString("Holdings:\n")
	for _, a := range p.Assets {
		fmt.Fprintf(&sb, "- %s (%s, %s): %g units at %s = %s\n",
			a.Symbol, a.Name, a.AssetType, a.Balance, usd(a.CurrentPrice), usd(a.Value))
	}
	sb.WriteString("\nFull portfolio JSON:\n")
	sb.Write(raw)
	return sb.String()
}

func usd(v float64) string {
	return money.New(int64(math.Round(v*100)), money.USD).Display()
}

const reviewSystem = `You are a portfolio strategist writing an AI Portfolio Review.
Return one JSON object with these keys:
{
  "title": "AI Portfolio Review",
  "riskMeter": {"level": "LOW|MEDIUM|HIGH", "score": 0, "description": "..."},
  "portfolioForecast": {"currentValue": 0, "sixMonthForecast": 0, "confidence": 0,
    "forecastData": [{"month": "Current", "value": 0}, {"month": "Month 1", "value": 0}]},
  "allocationChart": {"type": "donut", "data": [{"name": "...", "value": 0, "percentage": 0, "color": "#RRGGBB"}]},
  "performanceChart": {"bestPerformers": [{"symbol": "...", "name": "...", "performance": 0, "value": 0}],
    "worstPerformers": [{"symbol": "...", "name": "...", "performance": 0, "value": 0}]},
  "assetAnalysis": [{"symbol": "...", "name": "...", "currentPrice": 0, "allocation": 0, "analysis": "...",
    "outlook": {"shortTerm": "...", "longTerm": "..."}}],
  "mustSell": {"hasRecommendations": false, "recommendations": []}
}
Allocation percentages are by value, never by number of holdings. Use the figures supplied.
Only put an asset in mustSell when it faces imminent bankruptcy, delisting, a ban, fraud or seizure.
Volatility, overvaluation, earnings misses and competition are not reasons to sell.
Without such a threat, mustSell.hasRecommendations is false.`

type InvestorRequest struct {
	Investor        string
	InvestmentStyle string
}

// InvestorPicks asks the model for ten five-year picks in the voice of a well-known investor.
func (r *Reviewer) InvestorPicks(ctx context.Context, req InvestorRequest) (json.RawMessage, error) {

	start := time.Now()
	text, err := r.completer.Complete(ctx, Prompt{
		System:      investorPrompt(req),
		User:        fmt.Sprintf("Recommend stocks as %s.", req.Investor),
		Temperature: 0.5,
		MaxTokens:   16000,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	b, err := ExtractObject(text)
	if err != nil {
		r.lg.Error().Err(err).Str("head", head(text, 200)).Msg("Investor picks rejected")
		return nil, err
	}

	r.lg.Info().Str("investor", req.Investor).Dur("elapsed", time.Since(start)).Msg("Investor picks generated")
	return b, nil
}

func investorPrompt(req InvestorRequest) string {
	return fmt.Sprintf(`As %[1]s, recommend 10 stocks for the next 5 years using %[2]s principles.
Be concise. Return only JSON in this shape:
{
  "investor": %[1]q,
  "investmentStyle": %[2]q,
  "recommendations": [
    {
      "ticker": "AAPL",
      "name": "Apple Inc.",
      "description": "Analysis from %[1]s's perspective",
      "investmentPhilosophy": "How this fits %[2]s",
      "keyStrengths": ["...", "...", "..."],
      "keyRisks": ["...", "...", "..."],
      "finance": {"price": 0, "market_cap": 0, "pe_ratio": 0, "dividend_yield": 0},
      "priceForecast": {"projectedPrice": 0, "confidence": 0, "reasoning": "..."},
      "analystRatings": {"buy": 0, "hold": 0, "sell": 0, "average_target": 0}
    }
  ]
}`, req.Investor, req.InvestmentStyle)
}
