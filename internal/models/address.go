package models

import (
	"encoding/hex"
	"errors"
	"strings"
)

// NullAddress is the distinguished identity that can never hold a balance,
// receive a transfer, or be approved as a spender.
const NullAddress Address = "0x0000000000000000000000000000000000000000"

const addressHexLen = 40

var ErrMalformedAddress = errors.New("malformed address")

// Address identifies a token holder or spender. The ledger treats it as an
// opaque comparable value; only ParseAddress imposes a textual format.
type Address string

// IsNull reports whether a is the null identity. The empty address counts as null.
func (a Address) IsNull() bool {
	return a == "" || a == NullAddress
}

func (a Address) String() string {
	if a == "" {
		return string(NullAddress)
	}
	return string(a)
}

// ParseAddress normalizes external input into an Address: "", "0" and "0x0"
// map to NullAddress, anything else must be 0x followed by 40 hex digits.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "0", "0x0":
		return NullAddress, nil
	}

	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != addressHexLen {
		return "", ErrMalformedAddress
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", ErrMalformedAddress
	}
	return Address("0x" + raw), nil
}
