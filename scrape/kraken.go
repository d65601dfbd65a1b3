package scrape

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	m "portfoliotracker/internal/model"

	"github.com/rs/zerolog"
)

const (
	balancePath = "/0/private/Balance"
	tickerPath  = "/0/public/Ticker"

	balanceTimeout = 15 * time.Second
	tickerTimeout  = 10 * time.Second
	pairTimeout    = 5 * time.Second

	balanceAttempts = 3
	balanceBackoff  = 300 * time.Millisecond

	CodeInvalidNonce     = "EAPI:Invalid nonce"
	CodeInvalidKey       = "EAPI:Invalid key"
	CodeInvalidSignature = "EAPI:Invalid signature"
	CodeBadRequest       = "EAPI:Bad request"
)

// ErrInvalidSecret means the stored secret is not valid base64 and no request was made.
var ErrInvalidSecret = errors.New("api secret is not valid base64")

// APIError carries the error list of an exchange response.
type APIError struct {
	Errors []string
}

func (e *APIError) Error() string {
	return strings.Join(e.Errors, ", ")
}

func (e *APIError) Has(code string) bool {
	for _, s := range e.Errors {
		if strings.Contains(s, code) {
			return true
		}
	}
	return false
}

// IsAuthError reports whether the exchange rejected the credentials themselves.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrInvalidSecret) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Has(CodeInvalidKey) || apiErr.Has(CodeInvalidSignature))
}

// FriendlyError turns an exchange error into a message for the account owner.
func FriendlyError(err error) string {

	if errors.Is(err, ErrInvalidSecret) {
		return "Invalid API secret. Please check your API secret is correct."
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch {
	case apiErr.Has(CodeBadRequest):
		return "Invalid API credentials or missing permissions. Please check:\n" +
			"• API key and secret are correct\n" +
			"• API key has \"Query Funds\" permission enabled\n" +
			"• API key is active (not disabled)\n" +
			"• No extra spaces or characters in credentials"
	case apiErr.Has(CodeInvalidKey):
		return "Invalid API key format. Please check your API key is correct."
	case apiErr.Has(CodeInvalidSignature):
		return "Invalid API secret. Please check your API secret is correct."
	case apiErr.Has(CodeInvalidNonce):
		return "Invalid nonce. This usually indicates a time synchronization issue."
	}
	return apiErr.Error()
}

type KrakenConfig struct {
	BaseURL   string
	UserAgent string
}

type Kraken struct {
	baseURL   string
	userAgent string
	noncer    *Noncer
	after     func(time.Duration) <-chan time.Time
	lg        zerolog.Logger
}

func NewKraken(conf *KrakenConfig, noncer *Noncer) *Kraken {
	k := &Kraken{
		baseURL:   strings.TrimRight(conf.BaseURL, "/"),
		userAgent: conf.UserAgent,
		noncer:    noncer,
		after:     time.After,
		lg:        zerolog.New(os.Stdout).With().Str("Module", "Kraken").Timestamp().Logger(),
	}
	if k.baseURL == "" {
		k.baseURL = "https://api.kraken.com"
	}
	if k.userAgent == "" {
		k.userAgent = "KrakenPortfolioTracker/1.0"
	}
	if k.noncer == nil {
		k.noncer = NewNoncer(nil)
	}
	return k
}

// Sign computes API-Sign: base64(HMAC-SHA512(base64decode(secret), path + SHA256(nonce + postData))).
func Sign(path, nonce, postData, secret string) (string, error) {

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", ErrInvalidSecret
	}

	sha := sha256.Sum256([]byte(nonce + postData))

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(sha[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

type balanceResp struct {
	Error  []string          `json:"error"`
	Result map[string]string `json:"result"`
}

// Balance fetches the account balances, retrying only when the exchange rejects the nonce.
func (k *Kraken) Balance(ctx context.Context, apiKey, apiSecret string) (map[string]string, error) {

	var err error
	for attempt := 1; attempt <= balanceAttempts; attempt++ {

		var bal map[string]string
		bal, err = k.balance(ctx, apiKey, apiSecret)
		if err == nil {
			k.lg.Info().Msgf("Retrieved %d balances", len(bal))
			return bal, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Has(CodeInvalidNonce) || attempt == balanceAttempts {
			break
		}

		k.lg.Warn().Int("attempt", attempt).Msg("Nonce rejected, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-k.after(balanceBackoff * time.Duration(attempt)):
		}
	}

	return nil, err
}

func (k *Kraken) balance(ctx context.Context, apiKey, apiSecret string) (map[string]string, error) {

	nonce := k.noncer.Next(ctx, apiKey)
	postData := url.Values{"nonce": {nonce}}.Encode()

	sign, err := Sign(balancePath, nonce, postData, apiSecret)
	if err != nil {
		return nil, err
	}

	header := map[string]string{
		"API-Key":      apiKey,
		"API-Sign":     sign,
		"Content-Type": "application/x-www-form-urlencoded",
		"User-Agent":   k.userAgent,
	}

	var rtn balanceResp
	err = sendRequest(ctx, &k.lg, balanceTimeout, k.baseURL+balancePath, http.MethodPost, header, strings.NewReader(postData), &rtn)
	if len(rtn.Error) > 0 {
		return nil, &APIError{Errors: rtn.Error}
	}
	if err != nil {
		return nil, fmt.Errorf("Balance failed. %w", err)
	}

	if rtn.Result == nil {
		rtn.Result = map[string]string{}
	}
	return rtn.Result, nil
}

type tickerInfo struct {
	C []string        `json:"c"`
	O json.RawMessage `json:"o"`
}

type tickerResp struct {
	Error  []string              `json:"error"`
	Result map[string]tickerInfo `json:"result"`
}

// Tickers fetches every pair and keeps the USD-quoted ones, keyed by pair name.
func (k *Kraken) Tickers(ctx context.Context) (map[string]m.Quote, error) {

	var rtn tickerResp
	err := sendRequest(ctx, &k.lg, tickerTimeout, k.baseURL+tickerPath, http.MethodGet, nil, nil, &rtn)
	if len(rtn.Error) > 0 {
		return nil, &APIError{Errors: rtn.Error}
	}
	if err != nil {
		return nil, fmt.Errorf("Tickers failed. %w", err)
	}

	quotes := make(map[string]m.Quote)
	for pair, t := range rtn.Result {
		if !strings.HasSuffix(pair, "USD") && !strings.HasSuffix(pair, "ZUSD") {
			continue
		}
		if q, ok := t.quote(pair); ok {
			quotes[pair] = q
		}
	}

	k.lg.Info().Msgf("Retrieved %d USD tickers", len(quotes))
	return quotes, nil
}

// Ticker looks up one pair. The exchange may answer under its own canonical pair name.
func (k *Kraken) Ticker(ctx context.Context, pair string) (m.Quote, error) {

	var rtn tickerResp
	u := k.baseURL + tickerPath + "?" + url.Values{"pair": {pair}}.Encode()
	err := sendRequest(ctx, &k.lg, pairTimeout, u, http.MethodGet, nil, nil, &rtn)
	if len(rtn.Error) > 0 {
		return m.Quote{}, &APIError{Errors: rtn.Error}
	}
	if err != nil {
		return m.Quote{}, fmt.Errorf("Ticker failed. %w", err)
	}

	for name, t := range rtn.Result {
		if q, ok := t.quote(name); ok {
			return q, nil
		}
	}
	return m.Quote{}, fmt.Errorf("no ticker data for %s", pair)
}

func (t tickerInfo) quote(pair string) (m.Quote, bool) {

	if len(t.C) == 0 {
		return m.Quote{}, false
	}
	price, err := strconv.ParseFloat(t.C[0], 64)
	if err != nil || price <= 0 {
		return m.Quote{}, false
	}

	open := parseOpen(t.O)
	if open <= 0 {
		open = price
	}

	return m.Quote{Symbol: pair, Price: price, PreviousClose: open, Source: "kraken"}, true
}

// "o" is a string on the ticker endpoint but has been seen as an array.
func parseOpen(raw json.RawMessage) float64 {

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		v, _ := strconv.ParseFloat(arr[0], 64)
		return v
	}
	return 0
}
