package models

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var ErrMalformedAmount = errors.New("malformed amount")

// ParseAmount reads a base-10 count of atomic units.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, ErrMalformedAmount
	}
	return v, nil
}

// DisplayAmount scales atomic units down by 10^decimals for human-facing output.
func DisplayAmount(v *uint256.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals))
}

// AtomicUnits scales a whole-token count up by 10^decimals.
// The second return value is true on overflow.
func AtomicUnits(whole uint64, decimals uint8) (*uint256.Int, bool) {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	units := new(big.Int).Mul(new(big.Int).SetUint64(whole), scale)
	return uint256.FromBig(units)
}

// zeroIfNil keeps lookups of absent keys from leaking nil amounts.
func zeroIfNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
