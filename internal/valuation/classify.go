package valuation

import (
	"fmt"
	"slices"
)

// Asset is the classification of one exchange balance code.
type Asset struct {
	Code    string
	Name    string
	Class   Class
	Pair    string
	USDRate float64
}

// Classify resolves an exchange code: exact table entry first, then the equity suffix,
// then an unknown crypto named after its code.
func (t *Table) Classify(code string) Asset {

	if e, ok := t.lookup(code); ok {
		return Asset{
			Code:    code,
			Name:    e.Name,
			Class:   e.Class,
			Pair:    e.Pair,
			USDRate: e.USDRate,
		}
	}

	if t.IsEquity(code) {
		return Asset{Code: code, Name: code, Class: ClassEquity}
	}

	return Asset{Code: code, Name: code, Class: ClassCrypto}
}

// CostBasisType is the asset_type a classified balance is stored under in the cost-basis table.
func (a Asset) CostBasisType() string {
	if a.Class == ClassEquity {
		return "equity"
	}
	return "crypto"
}

// CryptoCandidates lists the ticker pairs tried for a crypto code, in order, without duplicates.
func (t *Table) CryptoCandidates(code, mappedPair string) []string {

	var out []string
	add := func(p string) {
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}

	add(mappedPair)
	for _, f := range t.CryptoFallbacks {
		add(fmt.Sprintf(f, code))
	}
	add(t.SpecialPairs[code])

	return out
}
