package models

import (
	"github.com/holiman/uint256"
)

// AllowanceKey addresses one (owner, spender) allowance slot.
type AllowanceKey struct {
	Owner   Address
	Spender Address
}

// StateChange is the full write-set of one ledger operation. Values are
// absolute, not deltas; a store must apply the whole change or none of it.
type StateChange struct {
	Token      *Token // set only by genesis
	Balances   map[Address]*uint256.Int
	Allowances map[AllowanceKey]*uint256.Int
	Entries    []LedgerEntry
}

func NewStateChange() *StateChange {
	return &StateChange{
		Balances:   make(map[Address]*uint256.Int),
		Allowances: make(map[AllowanceKey]*uint256.Int),
	}
}

// SetBalance records the new absolute balance of addr. v is copied.
func (c *StateChange) SetBalance(addr Address, v *uint256.Int) {
	c.Balances[addr] = new(uint256.Int).Set(v)
}

// SetAllowance records the new absolute allowance. A zero value removes it.
func (c *StateChange) SetAllowance(owner, spender Address, v *uint256.Int) {
	c.Allowances[AllowanceKey{Owner: owner, Spender: spender}] = new(uint256.Int).Set(v)
}

func (c *StateChange) AddEntries(entries ...LedgerEntry) {
	c.Entries = append(c.Entries, entries...)
}
