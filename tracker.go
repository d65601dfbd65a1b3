package tracker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"portfoliotracker/internal/db"
	m "portfoliotracker/internal/model"
	"portfoliotracker/internal/valuation"
	"portfoliotracker/scrape"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoData       = errors.New("no portfolio data found. Configure your Kraken API keys in settings or add manual assets")
	ErrExchangeAuth = errors.New("exchange rejected the stored credentials")
	ErrMissingKeys  = errors.New("api key and secret are required")

	errNoKeys           = errors.New("no api keys stored")
	errUnreadableSecret = errors.New("stored api secret could not be decrypted")
)

const validateFanOut = 8

type Tracker struct {
	stg    Storage
	pricer Pricer
	cipher Cipher
	calc   *valuation.Calculator
	now    func() time.Time
	lg     zerolog.Logger
}

type TrackerConfig struct {
	Storage Storage
	Pricer  Pricer
	Cipher  Cipher
	Table   *valuation.Table
}

func NewTracker(conf TrackerConfig) *Tracker {
	return &Tracker{
		stg:    conf.Storage,
		pricer: conf.Pricer,
		cipher: conf.Cipher,
		calc:   valuation.NewCalculator(conf.Table),
		now:    time.Now,
		lg:     zerolog.New(os.Stdout).With().Str("Module", "Tracker").Timestamp().Logger(),
	}
}

/*
Portfolio merges exchange balances and manual holdings into one view.
Manual holdings come from the given portfolio, or from the user's manual assets when portfolioID is empty.
The exchange side is best effort: when it fails and manual holdings exist, the view is built from them alone
and ExchangeError tells why.
*/
func (t *Tracker) Portfolio(ctx context.Context, userID, portfolioID string) (*m.PortfolioView, error) {

	holdings, err := t.holdings(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	rows, exErr := t.exchangeRows(ctx, userID)
	noKeys := errors.Is(exErr, errNoKeys)

	if exErr != nil && !noKeys {
		t.lg.Warn().Err(exErr).Str("user", userID).Msg("Exchange side of the portfolio failed")
	}

	if len(holdings) == 0 && exErr != nil {
		switch {
		case noKeys:
			return nil, ErrNoData
		case isCredentialError(exErr):
			return nil, fmt.Errorf("%w. %s", ErrExchangeAuth, friendlyError(exErr))
		default:
			return nil, fmt.Errorf("%w. %s", ErrNoData, friendlyError(exErr))
		}
	}

	rows = append(rows, t.calc.Manual(holdings, t.manualQuotes(ctx, holdings))...)

	view := valuation.Summarize(rows)
	view.LastUpdated = t.now()
	if exErr != nil && !noKeys {
		view.ExchangeError = friendlyError(exErr)
	}

	t.lg.Info().Msgf("Built portfolio of %d assets for user %s", len(view.Assets), userID)
	return &view, nil
}

func (t *Tracker) holdings(userID, portfolioID string) ([]m.ManualAsset, error) {

	if portfolioID == "" {
		assets, err := t.stg.RetrieveManualAssets(userID)
		if err != nil {
			t.lg.Error().Err(err).Msg("RetrieveManualAssets failed. continuing without manual assets")
			return nil, nil
		}
		return assets, nil
	}

	p, err := t.stg.RetrievePortfolio(userID, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("RetrievePortfolio failed. %w", err)
	}

	assets, err := t.stg.RetrievePortfolioAssets(p.ID)
	if err != nil {
		t.lg.Error().Err(err).Msg("RetrievePortfolioAssets failed. continuing without portfolio assets")
		return nil, nil
	}

	rtn := make([]m.ManualAsset, 0, len(assets))
	for _, a := range assets {
		rtn = append(rtn, a.Holding(userID))
	}
	return rtn, nil
}

func (t *Tracker) exchangeRows(ctx context.Context, userID string) ([]m.AssetValuation, error) {

	key, err := t.stg.RetrieveAPIKey(userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errNoKeys
		}
		return nil, fmt.Errorf("RetrieveAPIKey failed. %w", err)
	}
	if key.KrakenAPIKey == "" || key.KrakenAPISecret == "" {
		return nil, errNoKeys
	}

	secret, err := t.cipher.Decrypt(key.KrakenAPISecret)
	if err != nil {
		return nil, fmt.Errorf("%w. %w", errUnreadableSecret, err)
	}

	balances, err := t.pricer.Balance(ctx, key.KrakenAPIKey, secret)
	if err != nil {
		return nil, err
	}

	crypto, err := t.pricer.CryptoTickers(ctx)
	if err != nil {
		t.lg.Warn().Err(err).Msg("CryptoTickers failed. crypto balances are left unpriced")
		crypto = map[string]m.Quote{}
	}

	table := t.calc.Table()
	var equities []string
	for code := range balances {
		if table.IsEquity(code) {
			equities = append(equities, table.StripEquity(code))
		}
	}
	equity := map[string]m.Quote{}
	if len(equities) > 0 {
		equity = t.pricer.EquityQuotes(ctx, equities)
	}

	return t.calc.Exchange(balances, crypto, equity, t.costBases(userID))
}

func (t *Tracker) costBases(userID string) map[string]float64 {

	rows, err := t.stg.RetrieveCostBases(userID)
	if err != nil {
		t.lg.Warn().Err(err).Msg("RetrieveCostBases failed. unrealized P&L is skipped")
		return map[string]float64{}
	}

	rtn := make(map[string]float64, len(rows))
	for _, r := range rows {
		rtn[r.Key()] = r.CostBasis
	}
	return rtn
}

func (t *Tracker) manualQuotes(ctx context.Context, holdings []m.ManualAsset) map[string]m.Quote {

	table := t.calc.Table()
	seen := make(map[string]bool, len(holdings))
	reqs := make([]m.PriceRequest, 0, len(holdings))

	for _, h := range holdings {
		if seen[h.Symbol] || !table.ManualAllowed(h.Symbol) {
			continue
		}
		seen[h.Symbol] = true

		assetType := h.AssetType
		if assetType == "" {
			assetType = m.Manual.String()
		}
		reqs = append(reqs, m.PriceRequest{Symbol: h.Symbol, AssetType: assetType})
	}

	if len(reqs) == 0 {
		return map[string]m.Quote{}
	}
	return t.pricer.Quotes(ctx, reqs)
}

func isCredentialError(err error) bool {
	return errors.Is(err, errUnreadableSecret) || scrape.IsAuthError(err)
}

func friendlyError(err error) string {
	if errors.Is(err, errUnreadableSecret) {
		return "Stored API secret could not be read. Please save your Kraken API keys again."
	}
	return scrape.FriendlyError(err)
}

type Validation struct {
	IsValid bool     `json:"isValid"`
	Balance *float64 `json:"balance,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Validate checks a credential pair against the exchange and reports the account's USD value.
// Exchange rejections are reported in the result, not as an error.
func (t *Tracker) Validate(ctx context.Context, apiKey, apiSecret string) (Validation, error) {

	apiKey, apiSecret = strings.TrimSpace(apiKey), strings.TrimSpace(apiSecret)
	if apiKey == "" || apiSecret == "" {
		return Validation{}, ErrMissingKeys
	}

	balances, err := t.pricer.Balance(ctx, apiKey, apiSecret)
	if err != nil {
		t.lg.Info().Err(err).Msg("Credential validation rejected")
		return Validation{IsValid: false, Error: scrape.FriendlyError(err)}, nil
	}

	total := t.balanceUSD(ctx, balances).InexactFloat64()
	return Validation{IsValid: true, Balance: &total}, nil
}

func (t *Tracker) balanceUSD(ctx context.Context, balances map[string]string) decimal.Decimal {

	table := t.calc.Table()

	var mu sync.Mutex
	total := decimal.Zero

	g := new(errgroup.Group)
	g.SetLimit(validateFanOut)

	for code, raw := range balances {
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !amount.IsPositive() {
			continue
		}

		if table.Classify(code).Class == valuation.ClassStablecoin {
			mu.Lock()
			total = total.Add(amount)
			mu.Unlock()
			continue
		}

		code := code
		g.Go(func() error {
			price, err := t.pricer.PairPrice(ctx, table.ValidatePair(code))
			if err != nil {
				t.lg.Warn().Err(err).Msgf("Could not get price for %s", code)
				return nil
			}
			mu.Lock()
			total = total.Add(amount.Mul(decimal.NewFromFloat(price)))
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return total
}

type KeyStatus struct {
	Configured bool       `json:"configured"`
	APIKeyHint string     `json:"apiKeyHint,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

func (t *Tracker) APIKeyStatus(userID string) (KeyStatus, error) {

	key, err := t.stg.RetrieveAPIKey(userID)
	if err != nil {
		if db.IsNotFound(err) {
			return KeyStatus{}, nil
		}
		return KeyStatus{}, fmt.Errorf("RetrieveAPIKey failed. %w", err)
	}

	hint := key.KrakenAPIKey
	if len(hint) > 4 {
		hint = "****" + hint[len(hint)-4:]
	}
	return KeyStatus{Configured: true, APIKeyHint: hint, UpdatedAt: &key.UpdatedAt}, nil
}

// SaveAPIKeys stores the pair with the secret sealed by the cipher.
func (t *Tracker) SaveAPIKeys(userID, apiKey, apiSecret string) error {

	apiKey, apiSecret = strings.TrimSpace(apiKey), strings.TrimSpace(apiSecret)
	if apiKey == "" || apiSecret == "" {
		return ErrMissingKeys
	}
	if _, err := base64.StdEncoding.DecodeString(apiSecret); err != nil {
		return scrape.ErrInvalidSecret
	}

	sealed, err := t.cipher.Encrypt(apiSecret)
	if err != nil {
		return fmt.Errorf("Encrypt failed. %w", err)
	}

	if err := t.stg.SaveAPIKey(userID, apiKey, sealed); err != nil {
		return fmt.Errorf("SaveAPIKey failed. %w", err)
	}

	t.lg.Info().Msgf("Saved api keys for user %s", userID)
	return nil
}

func (t *Tracker) DeleteAPIKeys(userID string) error {
	if err := t.stg.DeleteAPIKey(userID); err != nil {
		return fmt.Errorf("DeleteAPIKey failed. %w", err)
	}
	return nil
}

// FetchPrices resolves current prices. Symbols that cannot be priced are absent from the result.
func (t *Tracker) FetchPrices(ctx context.Context, reqs []m.PriceRequest) map[string]m.Quote {
	if len(reqs) == 0 {
		return map[string]m.Quote{}
	}
	return t.pricer.Quotes(ctx, reqs)
}
