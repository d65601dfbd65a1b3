package valuation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Class string

const (
	ClassCrypto     Class = "crypto"
	ClassStablecoin Class = "stablecoin"
	ClassFiat       Class = "fiat"
	ClassEquity     Class = "equity"
)

// Entry is one row of the asset table. Several exchange codes may share an entry (XBT, BTC).
type Entry struct {
	Codes   []string `yaml:"codes"`
	Name    string   `yaml:"name"`
	Class   Class    `yaml:"class"`
	Pair    string   `yaml:"pair"`
	USDRate float64  `yaml:"usd-rate"`
}

type Table struct {
	Entries         []Entry           `yaml:"assets"`
	EquitySuffix    string            `yaml:"equity-suffix"`
	Dust            float64           `yaml:"dust"`
	CryptoFallbacks []string          `yaml:"crypto-fallbacks"`
	SpecialPairs    map[string]string `yaml:"special-pairs"`
	ValidatePairs   map[string]string `yaml:"validate-pairs"`
	ManualAllowlist []string          `yaml:"manual-allowlist"`
	CryptoSymbols   []string          `yaml:"crypto-symbols"`

	index map[string]int
	dust  decimal.Decimal
}

func ParseTable(b []byte) (*Table, error) {

	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("ParseTable failed. %w", err)
	}

	t.index = make(map[string]int)
	for i, e := range t.Entries {
		switch e.Class {
		case ClassCrypto, ClassStablecoin, ClassFiat:
		default:
			return nil, fmt.Errorf("asset %s has unknown class %q", e.Name, e.Class)
		}
		if e.Class == ClassFiat && e.USDRate <= 0 {
			return nil, fmt.Errorf("fiat %s needs a positive usd-rate", e.Name)
		}
		for _, c := range e.Codes {
			if _, ok := t.index[c]; ok {
				return nil, fmt.Errorf("asset code %s listed twice", c)
			}
			t.index[c] = i
		}
	}

	if t.EquitySuffix == "" {
		t.EquitySuffix = ".EQ"
	}
	t.dust = decimal.NewFromFloat(t.Dust)

	return &t, nil
}

func (t *Table) lookup(code string) (Entry, bool) {
	i, ok := t.index[code]
	if !ok {
		return Entry{}, false
	}
	return t.Entries[i], true
}

// IsEquity reports whether an exchange code carries the equity suffix.
func (t *Table) IsEquity(code string) bool {
	return strings.HasSuffix(code, t.EquitySuffix)
}

func (t *Table) StripEquity(code string) string {
	return strings.TrimSuffix(code, t.EquitySuffix)
}

// IsDust reports whether a balance is at or below the dust threshold.
func (t *Table) IsDust(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(t.dust)
}

// ManualAllowed reports whether a manual holding may be priced. An empty allowlist allows everything.
func (t *Table) ManualAllowed(symbol string) bool {
	if len(t.ManualAllowlist) == 0 {
		return true
	}
	return slices.Contains(t.ManualAllowlist, strings.ToUpper(t.StripEquity(symbol)))
}

func (t *Table) IsCryptoSymbol(symbol string) bool {
	return slices.Contains(t.CryptoSymbols, strings.ToUpper(symbol))
}

// ValidatePair is the ticker pair used to value a balance while checking credentials.
func (t *Table) ValidatePair(code string) string {
	if p, ok := t.ValidatePairs[code]; ok {
		return p
	}
	return code + "USD"
}
