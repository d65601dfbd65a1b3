package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"portfoliotracker/scrape"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	maxForecastMove    = 30.0
	cappedConfidence   = 65.0
	backfillHeadlines  = 3
	enrichConcurrency  = 8
	technicalRange     = "1y"
	defaultSummary     = "Investment recommendations generated based on current market analysis."
	defaultMethodology = "Analysis based on current market data and financial indicators."
	defaultDisclaimer  = "This is not financial advice. Past performance does not guarantee future results. Always do your own research."
)

// MarketData is the slice of the price service the screener needs.
type MarketData interface {
	History(ctx context.Context, symbol, rng string) (*scrape.Chart, error)
	Headlines(ctx context.Context, symbol string, n int) ([]scrape.Headline, error)
}

type Screener struct {
	completer Completer
	market    MarketData
	isCrypto  func(string) bool
	now       func() time.Time
	lg        zerolog.Logger
}

func NewScreener(completer Completer, market MarketData, isCrypto func(string) bool) *Screener {

	if isCrypto == nil {
		isCrypto = func(string) bool { return false }
	}

	return &Screener{
		completer: completer,
		market:    market,
		isCrypto:  isCrypto,
		now:       time.Now,
		lg:        zerolog.New(os.Stdout).With().Str("Module", "Screener").Timestamp().Logger(),
	}
}

// Screen asks the model for recommendations and grounds them in live chart data.
func (s *Screener) Screen(ctx context.Context, req ScreenRequest) (*Report, error) {

	text, err := s.completer.Complete(ctx, Prompt{
		System:      screenerSystem,
		User:        screenerPrompt(req),
		Temperature: 0.7,
		MaxTokens:   4000,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var doc rawScreen
	if err := ParseObject(text, &doc); err != nil {
		s.lg.Error().Err(err).Str("head", head(text, 500)).Msg("Screener response rejected")
		return nil, err
	}

	var assets []AssetAnalysis
	switch {
	case len(doc.Recommendations) > 0:
		var recs []rawRecommendation
		if err := json.Unmarshal(doc.Recommendations, &recs); err != nil {
			return nil, fmt.Errorf("%w. %s", ErrUnparseable, err)
		}
		for _, r := range recs {
			assets = append(assets, s.fromRecommendation(r))
		}
		assets = s.enrich(ctx, assets)
	case len(doc.Assets) > 0:
		var legacy []rawLegacyAsset
		if err := json.Unmarshal(doc.Assets, &legacy); err != nil {
			return nil, fmt.Errorf("%w. %s", ErrUnparseable, err)
		}
		for _, a := range legacy {
			assets = append(assets, a.analysis())
		}
	}
	if assets == nil {
		assets = []AssetAnalysis{}
	}
	s.backfillNews(ctx, assets)

	report := &Report{
		RequestID:     "req_" + uuid.NewString(),
		Timestamp:     s.now().UTC(),
		PortfolioType: req.PortfolioType,
		UserQuery:     req.UserQuery,
		Assets:        assets,
		Summary:       orString(doc.Summary, defaultSummary),
		Methodology:   orString(doc.Methodology, defaultMethodology),
		Disclaimer:    orString(doc.Disclaimer, defaultDisclaimer),
		MarketConditions: MarketConditions{
			Overall:   "neutral",
			KeyTrends: []string{},
			Risks:     []string{},
		},
		Provider: s.completer.Name(),
	}
	if mc := doc.MarketConditions; mc != nil {
		report.MarketConditions = MarketConditions{
			Overall:   orString(mc.Overall, "neutral"),
			KeyTrends: mc.KeyTrends.list(),
			Risks:     mc.Risks.list(),
		}
	}

	s.lg.Info().Msgf("Screened %d assets for %s", len(assets), req.PortfolioType)
	return report, nil
}

func (s *Screener) fromRecommendation(r rawRecommendation) AssetAnalysis {

	symbol := strings.ToUpper(strings.TrimSpace(string(r.Ticker)))
	assetType := "stock"
	if s.isCrypto(symbol) {
		assetType = "crypto"
	}

	a := AssetAnalysis{
		Symbol:            symbol,
		Name:              string(r.Name),
		AssetType:         assetType,
		Industry:          string(r.Industry),
		CurrentPrice:      float64(r.Finance.Price),
		MarketCap:         float64(r.Finance.MarketCap),
		Volume:            float64(r.Finance.Volume),
		PERatio:           float64(r.Finance.PERatio),
		DividendYield:     float64(r.Finance.DividendYield),
		Beta:              float64(r.Finance.Beta),
		Recommendation:    "buy",
		Confidence:        75,
		Reasoning:         string(r.Description),
		KeyStrengths:      r.KeyStrengths.list(),
		KeyRisks:          r.KeyRisks.list(),
		TechnicalAnalysis: NormalizeTechnicalAnalysis(r.TechnicalAnalysis),
		PriceForecast: Forecast{
			Timeframe:      "6months",
			ProjectedPrice: float64(r.Finance.Price),
			Confidence:     70,
			Reasoning:      "Based on current market conditions",
			RiskFactors:    []string{},
		},
		MarketSentiment: Sentiment{
			Overall:    "bullish",
			Score:      75,
			KeyFactors: []string{},
		},
		RecentNews: r.news("AI Analysis"),
	}

	if f := r.PriceForecast; f != nil {
		a.PriceForecast = Forecast{
			Timeframe:      orString(f.Timeframe, "6months"),
			ProjectedPrice: orFloat(f.ProjectedPrice, float64(r.Finance.Price)),
			Confidence:     orFloat(f.Confidence, 70),
			Reasoning:      orString(f.Reasoning, "Based on current market conditions"),
			RiskFactors:    f.RiskFactors.list(),
		}
	}
	if m := r.MarketSentiment; m != nil {
		a.MarketSentiment = Sentiment{
			Overall:     orString(m.Overall, "bullish"),
			Score:       orFloat(m.Score, 75),
			KeyFactors:  m.KeyFactors.list(),
			NewsSummary: string(m.NewsSummary),
		}
	}
	if ar := r.AnalystRatings; ar != nil {
		buy, hold, sell := int(ar.Buy), int(ar.Hold), int(ar.Sell)
		a.AnalystRatings = &Ratings{
			Buy:           buy,
			Hold:          hold,
			Sell:          sell,
			Total:         buy + hold + sell,
			AverageTarget: orFloat(ar.AverageTarget, float64(ar.AverageTargetCamel)),
		}
	}
	return a
}

// enrich replaces model-quoted prices with chart data and reins in the forecasts.
// Assets whose capped forecast is negative are dropped. Order is preserved.
func (s *Screener) enrich(ctx context.Context, assets []AssetAnalysis) []AssetAnalysis {

	if s.market == nil {
		return assets
	}

	out := make([]*AssetAnalysis, len(assets))
	var g errgroup.Group
	g.SetLimit(enrichConcurrency)

	for i := range assets {
		a := assets[i]
		g.Go(func() error {
			out[i] = s.enrichOne(ctx, a)
			return nil
		})
	}
	g.Wait()

	rtn := make([]AssetAnalysis, 0, len(assets))
	for _, a := range out {
		if a != nil {
			rtn = append(rtn, *a)
		}
	}
	return rtn
}

func (s *Screener) enrichOne(ctx context.Context, a AssetAnalysis) *AssetAnalysis {

	chart, err := s.market.History(ctx, s.chartSymbol(a), technicalRange)
	if err != nil || chart.Price <= 0 {
		if err != nil {
			s.lg.Warn().Err(err).Str("symbol", a.Symbol).Msg("No technical data")
		}
		return &a
	}
	tech := ComputeTechnicals(chart.Price, chart.Closes)

	move := 0.0
	if a.CurrentPrice > 0 {
		move = (a.PriceForecast.ProjectedPrice - a.CurrentPrice) / a.CurrentPrice * 100
	}
	capped := math.Abs(move) > maxForecastMove
	adjusted := move
	if capped {
		adjusted = math.Copysign(maxForecastMove, move)
		s.lg.Warn().Str("symbol", a.Symbol).Msgf("Forecast move %.1f%% capped to %.0f%%", move, adjusted)
	}
	if adjusted < 0 {
		s.lg.Info().Str("symbol", a.Symbol).Msgf("Dropped for negative forecast %.1f%%", adjusted)
		return nil
	}

	a.CurrentPrice = tech.Price
	a.PriceForecast.ProjectedPrice = tech.Price * (1 + adjusted/100)
	if capped {
		a.PriceForecast.Confidence = math.Min(a.PriceForecast.Confidence, cappedConfidence)
	}
	if signals := tech.Signals(); len(signals) > 0 {
		a.TechnicalAnalysis = signals
	}
	return &a
}

func (s *Screener) chartSymbol(a AssetAnalysis) string {
	if a.AssetType == "crypto" {
		return a.Symbol + "-USD"
	}
	return scrape.EquitySymbol(a.Symbol)
}

func (s *Screener) backfillNews(ctx context.Context, assets []AssetAnalysis) {

	if s.market == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(enrichConcurrency)
	for i := range assets {
		if len(assets[i].RecentNews) > 0 {
			continue
		}
		g.Go(func() error {
			hs, err := s.market.Headlines(ctx, s.chartSymbol(assets[i]), backfillHeadlines)
			if err != nil {
				s.lg.Warn().Err(err).Str("symbol", assets[i].Symbol).Msg("Headline backfill failed")
				return nil
			}
			news := make([]News, 0, len(hs))
			for _, h := range hs {
				news = append(news, News{
					Title:       h.Title,
					Summary:     h.Summary,
					PublishedAt: h.PublishedAt,
					Source:      "Yahoo Finance",
					Sentiment:   "neutral",
				})
			}
			assets[i].RecentNews = news
			return nil
		})
	}
	g.Wait()
}

func screenerPrompt(req ScreenRequest) string {

	universe := "both traditional stocks/ETFs and cryptocurrencies"
	switch req.PortfolioType {
	case "stocks":
		universe = "stocks, ETFs, and equity investments"
	case "crypto":
		universe = "cryptocurrencies and digital assets"
	}

	horizon := "appropriate time horizon"
	switch req.TimeHorizon {
	case "short_term":
		horizon = "short-term (0-12 months) focus"
	case "medium_term":
		horizon = "medium-term (1-3 years) focus"
	case "long_term":
		horizon = "long-term (3+ years) focus"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recommend 5 high-quality %s matching these criteria: %q.\n\n", universe, req.UserQuery)
	fmt.Fprintf(&sb, "Context: %s.", horizon)
	if len(req.SectorPreferences) > 0 {
		fmt.Fprintf(&sb, " Focus on sectors: %s.", strings.Join(req.SectorPreferences, ", "))
	}
	if req.PortfolioType == "stocks" && req.InvestingPhilosophy != "" {
		fmt.Fprintf(&sb, " Investor philosophy preference: %s.", req.InvestingPhilosophy)
	}
	sb.WriteString("\n\n")
	sb.WriteString(screenerSchema)
	return sb.String()
}

const screenerSystem = `You are a financial analyst who researches individual companies and digital assets.
Every recommendation must be specific to that asset: name its products, market position, competitors and numbers.
Never repeat the same strength, risk or catalyst across assets.
Forecasts are six months out and should stay within 30% of the current price unless an extraordinary catalyst exists.
Reply with a single JSON object and nothing else.`

const screenerSchema = `Return this JSON shape:
{
  "recommendations": [
    {
      "ticker": "TICKER",
      "name": "Company or asset name",
      "industry": "Industry",
      "description": "What the business does and why it stands out",
      "keyStrengths": ["specific strength", "specific strength", "specific strength"],
      "keyRisks": ["specific risk", "specific risk", "specific risk"],
      "technicalAnalysis": ["Trend: ...", "Momentum: ...", "Chart pattern: ..."],
      "finance": {"price": 0, "market_cap": 0, "volume": 0, "pe_ratio": 0, "dividend_yield": 0, "beta": 0},
      "priceForecast": {"timeframe": "6months", "projectedPrice": 0, "confidence": 0, "reasoning": "...", "riskFactors": ["..."]},
      "marketSentiment": {"overall": "bullish|bearish|neutral", "score": 0, "keyFactors": ["..."], "newsSummary": "..."},
      "recentNews": [{"title": "...", "date": "YYYY-MM-DD", "summary": "...", "impact": "positive|negative|neutral"}],
      "analystRatings": {"buy": 0, "hold": 0, "sell": 0, "average_target": 0}
    }
  ],
  "summary": "...",
  "methodology": "...",
  "marketConditions": {"overall": "...", "keyTrends": ["..."], "risks": ["..."]}
}`

type rawScreen struct {
	Recommendations  json.RawMessage `json:"recommendations"`
	Assets           json.RawMessage `json:"assets"`
	Summary          flexString      `json:"summary"`
	Methodology      flexString      `json:"methodology"`
	Disclaimer       flexString      `json:"disclaimer"`
	MarketConditions *struct {
		Overall   flexString  `json:"overall"`
		KeyTrends flexStrings `json:"keyTrends"`
		Risks     flexStrings `json:"risks"`
	} `json:"marketConditions"`
}

type rawNews struct {
	Title   flexString `json:"title"`
	Date    flexString `json:"date"`
	Summary flexString `json:"summary"`
	Impact  flexString `json:"impact"`
}

type rawRatings struct {
	Buy                flexFloat `json:"buy"`
	Hold               flexFloat `json:"hold"`
	Sell               flexFloat `json:"sell"`
	AverageTarget      flexFloat `json:"average_target"`
	AverageTargetCamel flexFloat `json:"averageTarget"`
}

type rawRecommendation struct {
	Ticker            flexString      `json:"ticker"`
	Name              flexString      `json:"name"`
	Industry          flexString      `json:"industry"`
	Description       flexString      `json:"description"`
	KeyStrengths      flexStrings     `json:"keyStrengths"`
	KeyRisks          flexStrings     `json:"keyRisks"`
	TechnicalAnalysis json.RawMessage `json:"technicalAnalysis"`
	Finance           struct {
		Price         flexFloat `json:"price"`
		MarketCap     flexFloat `json:"market_cap"`
		Volume        flexFloat `json:"volume"`
		PERatio       flexFloat `json:"pe_ratio"`
		DividendYield flexFloat `json:"dividend_yield"`
		Beta          flexFloat `json:"beta"`
	} `json:"finance"`
	PriceForecast *struct {
		Timeframe      flexString  `json:"timeframe"`
		ProjectedPrice flexFloat   `json:"projectedPrice"`
		Confidence     flexFloat   `json:"confidence"`
		Reasoning      flexString  `json:"reasoning"`
		RiskFactors    flexStrings `json:"riskFactors"`
	} `json:"priceForecast"`
	MarketSentiment *struct {
		Overall     flexString  `json:"overall"`
		Score       flexFloat   `json:"score"`
		KeyFactors  flexStrings `json:"keyFactors"`
		NewsSummary flexString  `json:"newsSummary"`
	} `json:"marketSentiment"`
	RecentNews     []rawNews   `json:"recentNews"`
	AnalystRatings *rawRatings `json:"analystRatings"`
}

func (r rawRecommendation) news(source string) []News {

	rtn := make([]News, 0, len(r.RecentNews))
	for _, n := range r.RecentNews {
		rtn = append(rtn, News{
			Title:       string(n.Title),
			Summary:     string(n.Summary),
			PublishedAt: string(n.Date),
			Source:      source,
			Sentiment:   orString(n.Impact, "neutral"),
		})
	}
	return rtn
}

// rawLegacyAsset is the older flat "assets" layout some prompts still produce.
type rawLegacyAsset struct {
	Symbol            flexString      `json:"symbol"`
	Name              flexString      `json:"name"`
	AssetType         flexString      `json:"assetType"`
	Industry          flexString      `json:"industry"`
	CurrentPrice      flexFloat       `json:"currentPrice"`
	MarketCap         flexFloat       `json:"marketCap"`
	Volume            flexFloat       `json:"volume"`
	PERatio           flexFloat       `json:"peRatio"`
	DividendYield     flexFloat       `json:"dividendYield"`
	Beta              flexFloat       `json:"beta"`
	Recommendation    flexString      `json:"recommendation"`
	Confidence        flexFloat       `json:"confidence"`
	Reasoning         flexString      `json:"reasoning"`
	KeyStrengths      flexStrings     `json:"keyStrengths"`
	KeyRisks          flexStrings     `json:"keyRisks"`
	TechnicalAnalysis json.RawMessage `json:"technicalAnalysis"`
	PriceForecast     *struct {
		Timeframe      flexString  `json:"timeframe"`
		ProjectedPrice flexFloat   `json:"projectedPrice"`
		Confidence     flexFloat   `json:"confidence"`
		Reasoning      flexString  `json:"reasoning"`
		RiskFactors    flexStrings `json:"riskFactors"`
	} `json:"priceForecast"`
	MarketSentiment *struct {
		Overall     flexString  `json:"overall"`
		Score       flexFloat   `json:"score"`
		KeyFactors  flexStrings `json:"keyFactors"`
		NewsSummary flexString  `json:"newsSummary"`
	} `json:"marketSentiment"`
	RecentNews     []rawNews   `json:"recentNews"`
	AnalystRatings *rawRatings `json:"analystRatings"`
}

func (l rawLegacyAsset) analysis() AssetAnalysis {

	price := float64(l.CurrentPrice)
	a := AssetAnalysis{
		Symbol:            strings.ToUpper(string(l.Symbol)),
		Name:              string(l.Name),
		AssetType:         orString(l.AssetType, "stock"),
		Industry:          string(l.Industry),
		CurrentPrice:      price,
		MarketCap:         float64(l.MarketCap),
		Volume:            float64(l.Volume),
		PERatio:           float64(l.PERatio),
		DividendYield:     float64(l.DividendYield),
		Beta:              float64(l.Beta),
		Recommendation:    orString(l.Recommendation, "hold"),
		Confidence:        orFloat(l.Confidence, 50),
		Reasoning:         string(l.Reasoning),
		KeyStrengths:      l.KeyStrengths.list(),
		KeyRisks:          l.KeyRisks.list(),
		TechnicalAnalysis: NormalizeTechnicalAnalysis(l.TechnicalAnalysis),
		PriceForecast: Forecast{
			Timeframe:      "6months",
			ProjectedPrice: price,
			Confidence:     50,
			Reasoning:      "Based on market analysis",
			RiskFactors:    []string{},
		},
		MarketSentiment: Sentiment{Overall: "neutral", KeyFactors: []string{}},
		RecentNews:      rawRecommendation{RecentNews: l.RecentNews}.news("AI Analysis"),
	}

	if f := l.PriceForecast; f != nil {
		a.PriceForecast = Forecast{
			Timeframe:      orString(f.Timeframe, "6months"),
			ProjectedPrice: orFloat(f.ProjectedPrice, price),
			Confidence:     orFloat(f.Confidence, 50),
			Reasoning:      orString(f.Reasoning, "Based on market analysis"),
			RiskFactors:    f.RiskFactors.list(),
		}
	}
	if m := l.MarketSentiment; m != nil {
		a.MarketSentiment = Sentiment{
			Overall:     orString(m.Overall, "neutral"),
			Score:       float64(m.Score),
			KeyFactors:  m.KeyFactors.list(),
			NewsSummary: string(m.NewsSummary),
		}
	}
	if ar := l.AnalystRatings; ar != nil {
		buy, hold, sell := int(ar.Buy), int(ar.Hold), int(ar.Sell)
		a.AnalystRatings = &Ratings{
			Buy:           buy,
			Hold:          hold,
			Sell:          sell,
			Total:         buy + hold + sell,
			AverageTarget: orFloat(ar.AverageTargetCamel, float64(ar.AverageTarget)),
		}
	}
	return a
}

func orString(s flexString, def string) string {
	if strings.TrimSpace(string(s)) == "" {
		return def
	}
	return string(s)
}

func orFloat(f flexFloat, def float64) float64 {
	if f == 0 || math.IsNaN(float64(f)) {
		return def
	}
	return float64(f)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
