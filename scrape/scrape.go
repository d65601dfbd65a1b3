package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	m "portfoliotracker/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	equitySuffix = ".EQ"
	fanOut       = 8
)

type cryptoQuoter interface {
	LatestCrypto(ctx context.Context, symbol string) (m.Quote, error)
}

// Cache stores serialized upstream responses for a fixed time.
type Cache interface {
	SetCache(ctx context.Context, key string, value []byte, exp time.Duration) error
	GetCache(ctx context.Context, key string) ([]byte, error)
}

// Scraper is the one place prices are resolved. Every upstream is optional.
type Scraper struct {
	kraken    *Kraken
	yahoo     *Yahoo
	alpaca    cryptoQuoter
	cache     Cache
	cacheTTL  time.Duration
	newsURL   string
	userAgent string
	lg        zerolog.Logger
}

type Option func(*Scraper) error

// Functional Option Pattern
func NewScraper(options ...Option) (*Scraper, error) {
	s := &Scraper{
		lg: zerolog.New(os.Stdout).With().Str("Module", "Scraper").Timestamp().Logger(),
	}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to create Scraper %w", err)
		}
	}
	return s, nil
}

func WithKraken(conf *KrakenConfig, noncer *Noncer) Option {
	return func(s *Scraper) error {
		if conf == nil {
			return errors.New("kraken config missing")
		}
		s.kraken = NewKraken(conf, noncer)
		return nil
	}
}

func WithYahoo(conf *YahooConfig) Option {
	return func(s *Scraper) error {
		if conf == nil {
			return errors.New("yahoo config missing")
		}
		s.yahoo = NewYahoo(conf)
		s.userAgent = s.yahoo.userAgent
		return nil
	}
}

func WithAlpaca(opts marketdata.ClientOpts) Option {
	return func(s *Scraper) error {
		s.alpaca = newAlpacaCrypto(opts)
		return nil
	}
}

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Scraper) error {
		if ttl <= 0 {
			return errors.New("cache ttl must be positive")
		}
		s.cache = c
		s.cacheTTL = ttl
		return nil
	}
}

func WithNews(feedURL string) Option {
	return func(s *Scraper) error {
		s.newsURL = feedURL
		return nil
	}
}

func (s *Scraper) Balance(ctx context.Context, apiKey, apiSecret string) (map[string]string, error) {
	if s.kraken == nil {
		return nil, errors.New("kraken is not configured")
	}
	return s.kraken.Balance(ctx, apiKey, apiSecret)
}

// CryptoTickers returns every USD-quoted pair in one call.
func (s *Scraper) CryptoTickers(ctx context.Context) (map[string]m.Quote, error) {
	if s.kraken == nil {
		return nil, errors.New("kraken is not configured")
	}
	return s.kraken.Tickers(ctx)
}

func (s *Scraper) PairPrice(ctx context.Context, pair string) (float64, error) {
	if s.kraken == nil {
		return 0, errors.New("kraken is not configured")
	}
	q, err := s.kraken.Ticker(ctx, pair)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// EquityQuotes looks symbols up concurrently. Symbols that fail are left out of the result.
func (s *Scraper) EquityQuotes(ctx context.Context, symbols []string) map[string]m.Quote {

	reqs := make([]m.PriceRequest, 0, len(symbols))
	for _, sym := range symbols {
		reqs = append(reqs, m.PriceRequest{Symbol: sym, AssetType: "equity"})
	}
	return s.Quotes(ctx, reqs)
}

// Quotes resolves each request independently and keys the result by the requested symbol.
// crypto: exchange pair, then alpaca, then the <SYM>-USD chart. equity and manual: the chart.
func (s *Scraper) Quotes(ctx context.Context, reqs []m.PriceRequest) map[string]m.Quote {

	var mu sync.Mutex
	rtn := make(map[string]m.Quote, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(fanOut)

	for _, r := range reqs {
		r := r
		g.Go(func() error {
			q, err := s.quote(ctx, r)
			if err != nil {
				s.lg.Warn().Err(err).Msgf("No price for %s (%s)", r.Symbol, r.AssetType)
				return nil
			}
			mu.Lock()
			rtn[r.Symbol] = q
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	s.lg.Info().Msgf("Resolved %d of %d prices", len(rtn), len(reqs))
	return rtn
}

func (s *Scraper) quote(ctx context.Context, r m.PriceRequest) (m.Quote, error) {

	sym := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(r.Symbol)), equitySuffix)

	if r.AssetType == m.Crypto.String() {
		if s.kraken != nil {
			if q, err := s.kraken.Ticker(ctx, sym+"USD"); err == nil {
				return q, nil
			}
		}
		if s.alpaca != nil {
			if q, err := s.alpaca.LatestCrypto(ctx, sym); err == nil && q.Price > 0 {
				return q, nil
			}
		}
		sym += "-USD"
	}

	if s.yahoo == nil {
		return m.Quote{}, errors.New("yahoo is not configured")
	}
	return s.yahoo.EquityQuote(ctx, sym)
}

// History returns the daily close series, served from the cache while it is fresh.
func (s *Scraper) History(ctx context.Context, symbol, rng string) (*Chart, error) {

	if s.yahoo == nil {
		return nil, errors.New("yahoo is not configured")
	}

	key := "history:" + symbol + ":" + rng
	if s.cache != nil {
		if b, err := s.cache.GetCache(ctx, key); err == nil {
			var c Chart
			if json.Unmarshal(b, &c) == nil {
				return &c, nil
			}
		}
	}

	c, err := s.yahoo.Chart(ctx, symbol, rng, "1d")
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(c); err == nil {
			if err := s.cache.SetCache(ctx, key, b, s.cacheTTL); err != nil {
				s.lg.Warn().Err(err).Msg("History cache write failed")
			}
		}
	}
	return c, nil
}
