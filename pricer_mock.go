package tracker

import (
	"context"
	"errors"
	"sync"

	m "portfoliotracker/internal/model"
	"portfoliotracker/scrape"
)

type PricerMock struct {
	balances  map[string]string
	balErr    error
	tickers   map[string]m.Quote
	tickerErr error
	pairs     map[string]float64
	equity    map[string]m.Quote
	quotes    map[string]m.Quote
	charts    map[string]*scrape.Chart

	mu        *sync.Mutex
	requested *[]m.PriceRequest
}

func (p PricerMock) Balance(ctx context.Context, apiKey, apiSecret string) (map[string]string, error) {
	if p.balErr != nil {
		return nil, p.balErr
	}
	return p.balances, nil
}

func (p PricerMock) CryptoTickers(ctx context.Context) (map[string]m.Quote, error) {
	if p.tickerErr != nil {
		return nil, p.tickerErr
	}
	return p.tickers, nil
}

func (p PricerMock) PairPrice(ctx context.Context, pair string) (float64, error) {
	price, ok := p.pairs[pair]
	if !ok {
		return 0, errors.New("unknown pair " + pair)
	}
	return price, nil
}

func (p PricerMock) EquityQuotes(ctx context.Context, symbols []string) map[string]m.Quote {
	rtn := map[string]m.Quote{}
	for _, s := range symbols {
		if q, ok := p.equity[s]; ok {
			rtn[s] = q
		}
	}
	return rtn
}

func (p PricerMock) Quotes(ctx context.Context, reqs []m.PriceRequest) map[string]m.Quote {
	if p.requested != nil {
		p.mu.Lock()
		*p.requested = append(*p.requested, reqs...)
		p.mu.Unlock()
	}
	rtn := map[string]m.Quote{}
	for _, r := range reqs {
		if q, ok := p.quotes[r.Symbol]; ok {
			rtn[r.Symbol] = q
		}
	}
	return rtn
}

func (p PricerMock) History(ctx context.Context, symbol, rng string) (*scrape.Chart, error) {
	c, ok := p.charts[symbol]
	if !ok {
		return nil, scrape.ErrNoChartData
	}
	cp := *c
	return &cp, nil
}

type CipherMock struct {
	err error
}

func (c CipherMock) Encrypt(plaintext string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "sealed:" + plaintext, nil
}

func (c CipherMock) Decrypt(cryptoText string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if len(cryptoText) < 7 || cryptoText[:7] != "sealed:" {
		return "", errors.New("message authentication failed")
	}
	return cryptoText[7:], nil
}
