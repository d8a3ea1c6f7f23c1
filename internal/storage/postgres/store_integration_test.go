package postgres

import (
	"context"
	"os"
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

func openTestStore(t *testing.T) *PostgresLedgerStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.db.ExecContext(ctx, `TRUNCATE token, balances, allowances, ledger_entries`)
	require.NoError(t, err)
	return store
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.LoadToken(ctx)
	require.ErrorIs(t, err, interfaces.ErrTokenNotFound)

	genesis := models.DefaultGenesis(alice)
	change := models.NewStateChange()
	change.Token = &genesis.Token
	change.SetBalance(alice, genesis.Token.TotalSupply)
	change.SetAllowance(alice, bob, uint256.NewInt(9999))
	debit, credit := models.EntryPair("g1", models.NullAddress, alice, genesis.Token.TotalSupply, time.Now().UTC())
	change.AddEntries(debit, credit)
	require.NoError(t, store.Apply(ctx, change))

	token, err := store.LoadToken(ctx)
	require.NoError(t, err)
	assert.True(t, token.Equal(genesis.Token))

	bal, err := store.GetBalance(ctx, alice)
	require.NoError(t, err)
	assert.True(t, bal.Eq(genesis.Token.TotalSupply))

	allowed, err := store.GetAllowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(9999), allowed.Uint64())

	entries, err := store.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.Credit, entries[0].Direction)
}

func TestPostgresSecondGenesisConflicts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	genesis := models.DefaultGenesis(alice)
	first := models.NewStateChange()
	first.Token = &genesis.Token
	first.SetBalance(alice, genesis.Token.TotalSupply)
	require.NoError(t, store.Apply(ctx, first))

	second := models.NewStateChange()
	second.Token = &genesis.Token
	second.SetBalance(bob, genesis.Token.TotalSupply)
	assert.ErrorIs(t, store.Apply(ctx, second), ErrGenesisConflict)

	// the failed transaction must not have credited bob
	bal, err := store.GetBalance(ctx, bob)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}
