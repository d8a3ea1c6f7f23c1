package events

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// Transfer is emitted after a successful transfer or delegated transfer.
type Transfer struct {
	EventID    string         `json:"event_id"`
	TransferID string         `json:"transfer_id"`
	From       models.Address `json:"from"`
	To         models.Address `json:"to"`
	Amount     string         `json:"amount"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Approval is emitted after approve, increaseApproval or decreaseApproval.
type Approval struct {
	EventID      string         `json:"event_id"`
	Owner        models.Address `json:"owner"`
	Spender      models.Address `json:"spender"`
	NewAllowance string         `json:"new_allowance"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// NewTransfer renders amount in atomic units as a decimal string, so
// consumers need no 256-bit integer support.
func NewTransfer(eventID, transferID string, from, to models.Address, amount *uint256.Int, at time.Time) Transfer {
	return Transfer{
		EventID:    eventID,
		TransferID: transferID,
		From:       from,
		To:         to,
		Amount:     amount.Dec(),
		OccurredAt: at,
	}
}

// NewApproval carries the allowance after the change, not the delta.
func NewApproval(eventID string, owner, spender models.Address, allowance *uint256.Int, at time.Time) Approval {
	return Approval{
		EventID:      eventID,
		Owner:        owner,
		Spender:      spender,
		NewAllowance: allowance.Dec(),
		OccurredAt:   at,
	}
}

// PartitionKey keeps all events touching one holder in order on a partition.
func (t Transfer) PartitionKey() string { return string(t.From) }

// PartitionKey orders approvals per owner.
func (a Approval) PartitionKey() string { return string(a.Owner) }
