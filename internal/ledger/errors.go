package ledger

import (
	"errors"

	"github.com/sheikh-saqib/token-ledger/internal/monitoring"
)

var (
	ErrInvalidRecipient      = errors.New("invalid recipient: null address")
	ErrInvalidSender         = errors.New("invalid sender: null address")
	ErrInvalidSpender        = errors.New("invalid spender: null address")
	ErrInvalidOwner          = errors.New("invalid owner: null address")
	ErrInvalidHolder         = errors.New("invalid holder: null address")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")

	// ErrGenesisMismatch means the store was initialized with a different token.
	ErrGenesisMismatch = errors.New("stored token does not match genesis")
	// ErrInvariantViolated is never a user error; it means the ledger is broken.
	ErrInvariantViolated = errors.New("ledger invariant violated")
)

// rejectReason labels a rejection for the rejected-operations counter.
func rejectReason(err error) monitoring.RejectedReason {
	switch {
	case errors.Is(err, ErrInvalidRecipient):
		return monitoring.RejectInvalidRecipient
	case errors.Is(err, ErrInvalidSender):
		return monitoring.RejectInvalidSender
	case errors.Is(err, ErrInvalidSpender):
		return monitoring.RejectInvalidSpender
	case errors.Is(err, ErrInvalidOwner):
		return monitoring.RejectInvalidOwner
	case errors.Is(err, ErrInsufficientBalance):
		return monitoring.RejectInsufficientBalance
	case errors.Is(err, ErrInsufficientAllowance):
		return monitoring.RejectInsufficientAllowance
	case errors.Is(err, ErrArithmeticOverflow):
		return monitoring.RejectArithmeticOverflow
	default:
		return monitoring.RejectStoreFailure
	}
}
