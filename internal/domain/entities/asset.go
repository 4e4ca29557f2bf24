package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetType is the closed set of assets a wallet can hold.
type AssetType string

const (
	AssetSOL  AssetType = "SOL"
	AssetUSDC AssetType = "USDC"
)

// SupportedAssets lists every asset in display order.
var SupportedAssets = []AssetType{AssetSOL, AssetUSDC}

// ErrUnknownAsset is returned by ParseAssetType for anything outside SupportedAssets.
var ErrUnknownAsset = errors.New("unknown asset type")

// ParseAssetType parses a case-insensitive asset symbol.
func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(strings.ToUpper(strings.TrimSpace(s))) {
	case AssetSOL:
		return AssetSOL, nil
	case AssetUSDC:
		return AssetUSDC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAsset, s)
}

// Valid reports whether a is one of the supported assets.
func (a AssetType) Valid() bool {
	return a == AssetSOL || a == AssetUSDC
}

// Decimals is the on-chain precision: lamports for SOL, mint decimals for USDC.
func (a AssetType) Decimals() int32 {
	switch a {
	case AssetSOL:
		return 9
	case AssetUSDC:
		return 6
	}
	return 0
}

// Native reports whether the asset is the chain's native coin (no token program involved).
func (a AssetType) Native() bool {
	return a == AssetSOL
}

// FitsPrecision reports whether amount can be expressed in base units without rounding.
func (a AssetType) FitsPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(a.Decimals()))
}

// ToBaseUnits converts a decimal amount into integer base units (lamports, token units).
func (a AssetType) ToBaseUnits(amount decimal.Decimal) (uint64, error) {
	if !a.FitsPrecision(amount) {
		return 0, fmt.Errorf("amount %s exceeds %s precision of %d decimals", amount, a, a.Decimals())
	}
	units := amount.Shift(a.Decimals())
	if units.IsNegative() || !units.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s out of range for %s", amount, a)
	}
	return units.BigInt().Uint64(), nil
}

// FromBaseUnits converts integer base units back into a decimal amount.
func (a AssetType) FromBaseUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -a.Decimals())
}

// UnmarshalJSON rejects unknown asset symbols at decode time.
func (a *AssetType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAssetType(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
