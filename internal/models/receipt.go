package models

import (
	"time"

	"github.com/holiman/uint256"
)

type OperationKind string

const (
	OpGenesis          OperationKind = "genesis"
	OpTransfer         OperationKind = "transfer"
	OpTransferFrom     OperationKind = "transfer_from"
	OpApprove          OperationKind = "approve"
	OpIncreaseApproval OperationKind = "increase_approval"
	OpDecreaseApproval OperationKind = "decrease_approval"
)

// Receipt describes a successfully applied mutation.
//
// For transfers From/To/Amount are set and Spender is the delegate (if any).
// For approvals From is the owner, Spender the spender and Allowance the
// resulting value.
type Receipt struct {
	ID        string        `json:"id"`
	Kind      OperationKind `json:"kind"`
	Caller    Address       `json:"caller"`
	From      Address       `json:"from"`
	To        Address       `json:"to,omitempty"`
	Spender   Address       `json:"spender,omitempty"`
	Amount    *uint256.Int  `json:"amount,omitempty"`
	Allowance *uint256.Int  `json:"allowance,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
