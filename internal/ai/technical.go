package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	rsiPeriod   = 14
	rangeWindow = 60
	minCloses   = 50
)

type Trend string

const (
	Uptrend   Trend = "uptrend"
	Downtrend Trend = "downtrend"
	Sideways  Trend = "sideways"
)

// Technicals holds indicators computed from a daily close series. Nil means not enough history.
type Technicals struct {
	Price      float64
	RSI        *float64
	MA50       *float64
	MA200      *float64
	Support    *float64
	Resistance *float64
	Trend      Trend
}

// ComputeTechnicals derives indicators from oldest-first closes. Under 50 closes only the price is kept.
func ComputeTechnicals(price float64, closes []float64) Technicals {

	t := Technicals{Price: price}
	if len(closes) < minCloses {
		return t
	}

	t.RSI = RSI(closes, rsiPeriod)
	t.MA50 = MovingAverage(closes, 50)
	t.MA200 = MovingAverage(closes, 200)

	recent := closes[max(0, len(closes)-rangeWindow):]
	lo, hi := slices.Min(recent), slices.Max(recent)
	t.Support, t.Resistance = &lo, &hi

	t.Trend = Sideways
	if t.MA50 != nil && t.MA200 != nil {
		switch {
		case *t.MA50 > *t.MA200 && price > *t.MA50:
			t.Trend = Uptrend
		case *t.MA50 < *t.MA200 && price < *t.MA50:
			t.Trend = Downtrend
		}
	}
	return t
}

// RSI is Wilder's relative strength index over the whole series.
func RSI(closes []float64, period int) *float64 {

	if len(closes) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		if d := closes[i] - closes[i-1]; d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*float64(period-1) + up) / float64(period)
		loss = (loss*float64(period-1) + down) / float64(period)
	}

	rsi := 100.0
	if loss != 0 {
		rsi = 100 - 100/(1+gain/loss)
	}
	return &rsi
}

func MovingAverage(closes []float64, period int) *float64 {

	if len(closes) < period {
		return nil
	}

	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	avg := sum / float64(period)
	return &avg
}

// Signals renders the computed indicators the same way the model is asked to describe them.
func (t Technicals) Signals() []TechnicalSignal {

	var rtn []TechnicalSignal

	if t.RSI != nil {
		rsi := *t.RSI
		signal, desc := "neutral", "neutral range"
		switch {
		case rsi > 70:
			signal, desc = "sell", "overbought territory"
		case rsi < 30:
			signal, desc = "buy", "oversold territory"
		}
		rtn = append(rtn, TechnicalSignal{
			Indicator:   "RSI (14)",
			Value:       rsi,
			Signal:      signal,
			Description: fmt.Sprintf("RSI: %.1f - %s", rsi, desc),
		})
	}

	if t.MA50 != nil && t.MA200 != nil {
		signal, cross := "sell", "Death Cross (bearish)"
		if *t.MA50 > *t.MA200 {
			signal, cross = "buy", "Golden Cross (bullish)"
		}
		rtn = append(rtn, TechnicalSignal{
			Indicator:   "50/200 MA",
			Value:       *t.MA50,
			Signal:      signal,
			Description: fmt.Sprintf("50-day MA: $%.2f, 200-day MA: $%.2f - %s", *t.MA50, *t.MA200, cross),
		})
	}

	if t.Support != nil && t.Resistance != nil {
		rtn = append(rtn, TechnicalSignal{
			Indicator:   "Support/Resistance",
			Value:       *t.Support,
			Signal:      "neutral",
			Description: fmt.Sprintf("Support: $%.2f, Resistance: $%.2f (60-day range)", *t.Support, *t.Resistance),
		})
	}

	if t.Trend != "" {
		signal := "hold"
		switch t.Trend {
		case Uptrend:
			signal = "buy"
		case Downtrend:
			signal = "sell"
		}
		rtn = append(rtn, TechnicalSignal{
			Indicator:   "Trend",
			Signal:      signal,
			Description: fmt.Sprintf("Chart shows %s based on moving average positioning", t.Trend),
		})
	}

	return rtn
}

var numberPattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// NormalizeTechnicalAnalysis accepts the model's technicalAnalysis in either free-text or object form.
func NormalizeTechnicalAnalysis(raw json.RawMessage) []TechnicalSignal {

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []TechnicalSignal{}
	}

	rtn := make([]TechnicalSignal, 0, len(items))
	for _, item := range items {

		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			rtn = append(rtn, signalFromText(text))
			continue
		}

		var obj struct {
			Indicator   string    `json:"indicator"`
			Value       flexFloat `json:"value"`
			Signal      string    `json:"signal"`
			Description string    `json:"description"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			if obj.Signal == "" {
				obj.Signal = "neutral"
			}
			rtn = append(rtn, TechnicalSignal{
				Indicator:   obj.Indicator,
				Value:       float64(obj.Value),
				Signal:      obj.Signal,
				Description: obj.Description,
			})
			continue
		}

		rtn = append(rtn, TechnicalSignal{Indicator: "Technical", Signal: "neutral", Description: string(item)})
	}
	return rtn
}

func signalFromText(text string) TechnicalSignal {

	lower := strings.ToLower(text)
	s := TechnicalSignal{
		Indicator:   "Technical",
		Value:       ExtractNumber(text),
		Signal:      InferSignal(text),
		Description: text,
	}

	switch {
	case strings.Contains(lower, "rsi"):
		s.Indicator = "RSI"
	case strings.Contains(lower, "moving average"):
		s.Indicator = "Moving Averages"
	case strings.Contains(lower, "support"), strings.Contains(lower, "resistance"):
		s.Indicator = "Support/Resistance"
		s.Signal = "neutral"
	}
	return s
}

// ExtractNumber returns the first number in text, or 0.
func ExtractNumber(text string) float64 {

	m := numberPattern.FindString(text)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

func InferSignal(text string) string {

	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "bullish"), strings.Contains(t, "upward"), strings.Contains(t, "buy"):
		return "buy"
	case strings.Contains(t, "bearish"), strings.Contains(t, "downward"), strings.Contains(t, "sell"):
		return "sell"
	case strings.Contains(t, "hold"):
		return "hold"
	}
	return "neutral"
}
