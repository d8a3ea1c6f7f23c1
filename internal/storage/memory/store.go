package memory

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Zero balances and allowances are deleted rather than stored.
type MemoryLedgerStore struct {
	mu         sync.RWMutex
	token      *models.Token
	balances   map[models.Address]*uint256.Int
	allowances map[models.AllowanceKey]*uint256.Int
	entries    []models.LedgerEntry
}

// NewMemoryLedgerStore returns an empty store; LoadToken fails with
// ErrTokenNotFound until genesis is applied.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		balances:   make(map[models.Address]*uint256.Int),
		allowances: make(map[models.AllowanceKey]*uint256.Int),
		entries:    make([]models.LedgerEntry, 0),
	}
}

// LoadToken returns the token written by genesis.
func (m *MemoryLedgerStore) LoadToken(ctx context.Context) (models.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return models.Token{}, interfaces.ErrTokenNotFound
	}
	t := *m.token
	t.TotalSupply = new(uint256.Int).Set(m.token.TotalSupply)
	return t, nil
}

// GetBalance returns a copy, zero for unknown addresses.
func (m *MemoryLedgerStore) GetBalance(ctx context.Context, addr models.Address) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyOrZero(m.balances[addr]), nil
}

func (m *MemoryLedgerStore) GetAllowance(ctx context.Context, owner, spender models.Address) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyOrZero(m.allowances[models.AllowanceKey{Owner: owner, Spender: spender}]), nil
}

// Apply writes the whole change under one lock; it cannot fail halfway.
func (m *MemoryLedgerStore) Apply(ctx context.Context, change *models.StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if change.Token != nil {
		t := *change.Token
		t.TotalSupply = copyOrZero(change.Token.TotalSupply)
		m.token = &t
	}
	for addr, v := range change.Balances {
		if v == nil || v.IsZero() {
			delete(m.balances, addr)
			continue
		}
		m.balances[addr] = new(uint256.Int).Set(v)
	}
	for key, v := range change.Allowances {
		if v == nil || v.IsZero() {
			delete(m.allowances, key)
			continue
		}
		m.allowances[key] = new(uint256.Int).Set(v)
	}
	m.entries = append(m.entries, change.Entries...)
	return nil
}

// Balances returns every non-zero balance.
func (m *MemoryLedgerStore) Balances(ctx context.Context) (map[models.Address]*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[models.Address]*uint256.Int, len(m.balances))
	for addr, v := range m.balances {
		out[addr] = new(uint256.Int).Set(v)
	}
	return out, nil
}

// GetLedgerEntries returns a copy of all ledger entries stored in memory.
func (m *MemoryLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

// GetEntriesByAccount returns the entries of one account in insertion order.
func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountID models.Address) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

func copyOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
