package models

import (
	"time"

	"github.com/holiman/uint256"
)

// EntryDirection tells whether an entry takes value out of (debit) or into
// (credit) an account.
type EntryDirection string

const (
	Debit  EntryDirection = "debit"
	Credit EntryDirection = "credit"
)

// LedgerEntry represents one side of a balance movement for an account
type LedgerEntry struct {
	ID         string         `json:"id"`          // transfer ID + "-debit" / "-credit"
	TransferID string         `json:"transfer_id"` // shared by both sides
	AccountID  Address        `json:"account_id"`
	Direction  EntryDirection `json:"direction"`
	Amount     *uint256.Int   `json:"amount"` // atomic units, always non-negative
	CreatedAt  time.Time      `json:"created_at"`
}

// EntryPair builds the debit and credit records for a single movement.
func EntryPair(transferID string, from, to Address, amount *uint256.Int, at time.Time) (LedgerEntry, LedgerEntry) {
	debit := LedgerEntry{
		ID:         transferID + "-debit",
		TransferID: transferID,
		AccountID:  from,
		Direction:  Debit,
		Amount:     new(uint256.Int).Set(amount),
		CreatedAt:  at,
	}
	credit := LedgerEntry{
		ID:         transferID + "-credit",
		TransferID: transferID,
		AccountID:  to,
		Direction:  Credit,
		Amount:     new(uint256.Int).Set(amount),
		CreatedAt:  at,
	}
	return debit, credit
}
