package models

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Address
		err  bool
	}{
		{"empty is null", "", NullAddress, false},
		{"zero is null", "0", NullAddress, false},
		{"0x0 is null", "0x0", NullAddress, false},
		{"full null", string(NullAddress), NullAddress, false},
		{"lower-cased", "0x00000000000000000000000000000000000000AB", "0x00000000000000000000000000000000000000ab", false},
		{"missing prefix", "00000000000000000000000000000000000000ab", "0x00000000000000000000000000000000000000ab", false},
		{"too short", "0xabc", "", true},
		{"not hex", "0x00000000000000000000000000000000000000zz", "", true},
		{"human name", "alice", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAddress(tc.in)
			if tc.err {
				assert.ErrorIs(t, err, ErrMalformedAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, Address("").IsNull())
	assert.True(t, NullAddress.IsNull())
	assert.False(t, Address("0x00000000000000000000000000000000000000ab").IsNull())
	assert.Equal(t, string(NullAddress), Address("").String())
}

func TestDefaultGenesisSupply(t *testing.T) {
	g := DefaultGenesis("0x00000000000000000000000000000000000000ab")
	assert.Equal(t, "1000000000000000000000000000", g.Token.TotalSupply.Dec())
	assert.Equal(t, "1000000000", DisplayAmount(g.Token.TotalSupply, g.Token.Decimals).String())
}

func TestAmountHelpers(t *testing.T) {
	v, err := ParseAmount("3333")
	require.NoError(t, err)
	assert.Equal(t, uint64(3333), v.Uint64())

	_, err = ParseAmount("12abc")
	assert.ErrorIs(t, err, ErrMalformedAmount)

	assert.Equal(t, "0.000000000000003333", DisplayAmount(v, 18).String())
	assert.True(t, DisplayAmount(nil, 18).IsZero())

	_, overflow := AtomicUnits(1, MaxDecimals)
	assert.False(t, overflow)
	_, overflow = AtomicUnits(1_000, MaxDecimals)
	assert.True(t, overflow)
}

func TestTokenEqual(t *testing.T) {
	a := Token{Name: "A", Symbol: "A", Decimals: 18, TotalSupply: uint256.NewInt(5)}
	b := a
	b.TotalSupply = uint256.NewInt(5)
	assert.True(t, a.Equal(b))

	b.TotalSupply = uint256.NewInt(6)
	assert.False(t, a.Equal(b))

	var nilSupply Token
	assert.True(t, nilSupply.Equal(Token{TotalSupply: new(uint256.Int)}))
}
