package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type ScreenRequest struct {
	PortfolioType       string
	UserQuery           string
	TimeHorizon         string
	SectorPreferences   []string
	InvestingPhilosophy string
}

type Report struct {
	RequestID        string           `json:"requestId"`
	Timestamp        time.Time        `json:"timestamp"`
	PortfolioType    string           `json:"portfolioType"`
	UserQuery        string           `json:"userQuery"`
	Assets           []AssetAnalysis  `json:"assets"`
	Summary          string           `json:"summary"`
	Methodology      string           `json:"methodology"`
	Disclaimer       string           `json:"disclaimer"`
	MarketConditions MarketConditions `json:"marketConditions"`
	Provider         string           `json:"provider,omitempty"`
}

type MarketConditions struct {
	Overall   string   `json:"overall"`
	KeyTrends []string `json:"keyTrends"`
	Risks     []string `json:"risks"`
}

type AssetAnalysis struct {
	Symbol            string            `json:"symbol"`
	Name              string            `json:"name"`
	AssetType         string            `json:"assetType"`
	Industry          string            `json:"industry"`
	CurrentPrice      float64           `json:"currentPrice"`
	MarketCap         float64           `json:"marketCap"`
	Volume            float64           `json:"volume"`
	PERatio           float64           `json:"peRatio"`
	DividendYield     float64           `json:"dividendYield"`
	Beta              float64           `json:"beta"`
	Recommendation    string            `json:"recommendation"`
	Confidence        float64           `json:"confidence"`
	Reasoning         string            `json:"reasoning"`
	KeyStrengths      []string          `json:"keyStrengths"`
	KeyRisks          []string          `json:"keyRisks"`
	TechnicalAnalysis []TechnicalSignal `json:"technicalAnalysis"`
	PriceForecast     Forecast          `json:"priceForecast"`
	MarketSentiment   Sentiment         `json:"marketSentiment"`
	RecentNews        []News            `json:"recentNews"`
	AnalystRatings    *Ratings          `json:"analystRatings,omitempty"`
}

type TechnicalSignal struct {
	Indicator   string  `json:"indicator"`
	Value       float64 `json:"value"`
	Signal      string  `json:"signal"`
	Description string  `json:"description"`
}

type Forecast struct {
	Timeframe      string   `json:"timeframe"`
	ProjectedPrice float64  `json:"projectedPrice"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	RiskFactors    []string `json:"riskFactors"`
}

type Sentiment struct {
	Overall     string   `json:"overall"`
	Score       float64  `json:"score"`
	KeyFactors  []string `json:"keyFactors"`
	NewsSummary string   `json:"newsSummary"`
}

type News struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"publishedAt"`
	Source      string `json:"source"`
	Sentiment   string `json:"sentiment"`
}

type Ratings struct {
	Buy           int     `json:"buy"`
	Hold          int     `json:"hold"`
	Sell          int     `json:"sell"`
	Total         int     `json:"total"`
	AverageTarget float64 `json:"averageTarget,omitempty"`
}

/*
memo. model output is loosely typed: numbers arrive as strings, lists arrive as a single string.
The flex types below absorb that so one odd field does not fail the whole document.
*/

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {

	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = 0
		return nil
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		n = ExtractNumber(s)
	}
	*f = flexFloat(n)
	return nil
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}

type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {

	var list []flexString
	if err := json.Unmarshal(b, &list); err == nil {
		rtn := make([]string, 0, len(list))
		for _, s := range list {
			rtn = append(rtn, string(s))
		}
		*f = rtn
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil && s != "" {
		*f = []string{s}
		return nil
	}
	*f = []string{}
	return nil
}

func (f flexStrings) list() []string {
	if f == nil {
		return []string{}
	}
	return f
}
