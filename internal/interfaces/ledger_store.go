package interfaces

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// ErrTokenNotFound is returned by LoadToken before genesis has been written.
var ErrTokenNotFound = errors.New("token not initialized")

// LedgerStore holds balances, allowances and entry history. Reads of absent
// keys return zero. Apply must be all-or-nothing.
type LedgerStore interface {
	LoadToken(ctx context.Context) (models.Token, error)
	GetBalance(ctx context.Context, addr models.Address) (*uint256.Int, error)
	GetAllowance(ctx context.Context, owner, spender models.Address) (*uint256.Int, error)
	Apply(ctx context.Context, change *models.StateChange) error

	// Balances returns every non-zero balance; used for audits.
	Balances(ctx context.Context) (map[models.Address]*uint256.Int, error)
	GetEntriesByAccount(ctx context.Context, accountID models.Address) ([]models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
}
