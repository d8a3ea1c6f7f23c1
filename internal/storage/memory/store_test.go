package memory

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice models.Address = "0x00000000000000000000000000000000000000a1"
	bob   models.Address = "0x00000000000000000000000000000000000000b0"
)

func seed(t *testing.T, s *MemoryLedgerStore) models.Token {
	t.Helper()
	token := models.Token{Name: "Test", Symbol: "TST", Decimals: 0, TotalSupply: uint256.NewInt(100)}

	change := models.NewStateChange()
	change.Token = &token
	change.SetBalance(alice, uint256.NewInt(100))
	change.SetAllowance(alice, bob, uint256.NewInt(7))
	debit, credit := models.EntryPair("t1", models.NullAddress, alice, uint256.NewInt(100), time.Now())
	change.AddEntries(debit, credit)
	require.NoError(t, s.Apply(context.Background(), change))
	return token
}

func TestLoadTokenBeforeGenesis(t *testing.T) {
	s := NewMemoryLedgerStore()
	_, err := s.LoadToken(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTokenNotFound)
}

func TestApplyAndRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLedgerStore()
	token := seed(t, s)

	loaded, err := s.LoadToken(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Equal(token))

	bal, err := s.GetBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bal.Uint64())

	allowed, err := s.GetAllowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), allowed.Uint64())

	missing, err := s.GetBalance(ctx, bob)
	require.NoError(t, err)
	assert.True(t, missing.IsZero())
}

func TestZeroValuesAreDropped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLedgerStore()
	seed(t, s)

	change := models.NewStateChange()
	change.SetBalance(alice, uint256.NewInt(0))
	change.SetBalance(bob, uint256.NewInt(100))
	change.SetAllowance(alice, bob, uint256.NewInt(0))
	require.NoError(t, s.Apply(ctx, change))

	balances, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Len(t, balances, 1)
	assert.Equal(t, uint64(100), balances[bob].Uint64())

	allowed, err := s.GetAllowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, allowed.IsZero())
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLedgerStore()
	seed(t, s)

	bal, err := s.GetBalance(ctx, alice)
	require.NoError(t, err)
	bal.SetUint64(1)

	again, err := s.GetBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), again.Uint64())
}

func TestEntriesByAccount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLedgerStore()
	seed(t, s)

	all, err := s.GetLedgerEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.Credit, mine[0].Direction)
	assert.Equal(t, "t1-credit", mine[0].ID)
}

func TestApplyHonorsCancelledContext(t *testing.T) {
	s := NewMemoryLedgerStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	change := models.NewStateChange()
	change.SetBalance(alice, uint256.NewInt(5))
	assert.ErrorIs(t, s.Apply(ctx, change), context.Canceled)

	bal, err := s.GetBalance(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}
