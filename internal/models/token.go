package models

import (
	"github.com/holiman/uint256"
)

const (
	DefaultTokenName     = "MBRSOnly"
	DefaultTokenSymbol   = "ONLY"
	DefaultTokenDecimals = 18
	// DefaultWholeSupply is expressed in whole tokens; scale by DefaultTokenDecimals.
	DefaultWholeSupply = 1_000_000_000

	// MaxDecimals keeps 10^decimals representable in 256 bits.
	MaxDecimals = 77
)

// Token is the immutable description of the ledger's asset.
type Token struct {
	Name        string       `json:"name" yaml:"name"`
	Symbol      string       `json:"symbol" yaml:"symbol"`
	Decimals    uint8        `json:"decimals" yaml:"decimals"`
	TotalSupply *uint256.Int `json:"total_supply" yaml:"-"`
}

// Equal compares metadata and supply.
func (t Token) Equal(o Token) bool {
	return t.Name == o.Name &&
		t.Symbol == o.Symbol &&
		t.Decimals == o.Decimals &&
		zeroIfNil(t.TotalSupply).Eq(zeroIfNil(o.TotalSupply))
}

// Genesis is the one-time issuance: the whole supply credited to Holder.
type Genesis struct {
	Token  Token
	Holder Address
}

// DefaultGenesis returns the reference token issued to holder.
func DefaultGenesis(holder Address) Genesis {
	supply, _ := AtomicUnits(DefaultWholeSupply, DefaultTokenDecimals)
	return Genesis{
		Token: Token{
			Name:        DefaultTokenName,
			Symbol:      DefaultTokenSymbol,
			Decimals:    DefaultTokenDecimals,
			TotalSupply: supply,
		},
		Holder: holder,
	}
}
