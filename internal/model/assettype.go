package model

import (
	"errors"
	"slices"
)

type AssetType uint

const (
	Crypto AssetType = iota + 1
	Equity
	Manual
)

var assetTypeList = []string{"crypto", "equity", "manual"}

func (a AssetType) String() string {
	if a == 0 || int(a) > len(assetTypeList) {
		return ""
	}
	return assetTypeList[a-1]
}

func ToAssetType(s string) (AssetType, error) {

	for i, a := range assetTypeList {
		if s == a {
			return AssetType(i + 1), nil
		}
	}
	return 0, errors.New("unknown asset type: " + s)
}

func IsValidAssetType(s string) bool {
	return slices.Contains(assetTypeList, s)
}

func AssetTypeList() []string {
	return assetTypeList
}

// Source tells where a valuation row came from.
type Source string

const (
	SourceKraken Source = "kraken"
	SourceManual Source = "manual"
)
