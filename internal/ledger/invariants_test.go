package ledger

import (
	"context"
	"errors"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every Apply after genesis.
type failingStore struct {
	*memory.MemoryLedgerStore
	fail bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Apply(ctx context.Context, change *models.StateChange) error {
	if s.fail {
		return errDiskFull
	}
	return s.MemoryLedgerStore.Apply(ctx, change)
}

// leakyStore credits one extra unit on every balance write, breaking conservation.
type leakyStore struct {
	*memory.MemoryLedgerStore
}

func (s *leakyStore) Apply(ctx context.Context, change *models.StateChange) error {
	if change.Token == nil {
		for addr, v := range change.Balances {
			change.Balances[addr] = new(uint256.Int).AddUint64(v, 1)
		}
	}
	return s.MemoryLedgerStore.Apply(ctx, change)
}

type snapshot struct {
	balances   map[models.Address]string
	allowances map[models.AllowanceKey]string
}

func takeSnapshot(t *testing.T, l *Ledger, addrs []models.Address) snapshot {
	t.Helper()
	s := snapshot{
		balances:   make(map[models.Address]string),
		allowances: make(map[models.AllowanceKey]string),
	}
	for _, owner := range addrs {
		s.balances[owner] = balanceOf(t, l, owner).Dec()
		for _, sp := range addrs {
			s.allowances[models.AllowanceKey{Owner: owner, Spender: sp}] = allowanceOf(t, l, owner, sp).Dec()
		}
	}
	return s
}

func TestStoreFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryLedgerStore: memory.NewMemoryLedgerStore()}
	l, err := NewLedger(ctx, store, nil, models.DefaultGenesis(holder))
	require.NoError(t, err)
	_, err = l.Approve(ctx, holder, spender, u(10))
	require.NoError(t, err)

	addrs := []models.Address{holder, alice, spender}
	before := takeSnapshot(t, l, addrs)
	store.fail = true

	_, err = l.Transfer(ctx, holder, alice, u(1))
	assert.ErrorIs(t, err, errDiskFull)
	_, err = l.TransferFrom(ctx, spender, holder, alice, u(1))
	assert.ErrorIs(t, err, errDiskFull)
	_, err = l.Approve(ctx, holder, alice, u(1))
	assert.ErrorIs(t, err, errDiskFull)

	assert.Equal(t, before, takeSnapshot(t, l, addrs))
}

func TestStrictAuditPanicsOnBrokenConservation(t *testing.T) {
	ctx := context.Background()
	store := &leakyStore{MemoryLedgerStore: memory.NewMemoryLedgerStore()}
	l, err := NewLedger(ctx, store, nil, models.DefaultGenesis(holder), WithStrictAudit(true))
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = l.Transfer(ctx, holder, alice, u(1))
	})
}

func TestAuditReportsViolation(t *testing.T) {
	ctx := context.Background()
	store := &leakyStore{MemoryLedgerStore: memory.NewMemoryLedgerStore()}
	l, err := NewLedger(ctx, store, nil, models.DefaultGenesis(holder))
	require.NoError(t, err)

	_, err = l.Audit(ctx)
	require.NoError(t, err)

	_, err = l.Transfer(ctx, holder, alice, u(1))
	require.NoError(t, err)
	_, err = l.Audit(ctx)
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

type fuzzOp struct {
	Kind    uint8
	Caller  uint8
	From    uint8
	To      uint8
	Amount  uint16
	NullDst bool
	NullSrc uint8
}

// TestRandomOperationSequences drives random mutations and checks after each
// one that supply is conserved, failures change nothing, and successful
// delegated transfers consume exactly their amount of allowance.
func TestRandomOperationSequences(t *testing.T) {
	ctx := context.Background()
	addrs := []models.Address{holder, alice, bob, spender, other}

	genesis := models.DefaultGenesis(holder)
	genesis.Token.TotalSupply = u(50_000)
	l, err := NewLedger(ctx, memory.NewMemoryLedgerStore(), nil, genesis)
	require.NoError(t, err)

	f := fuzz.NewWithSeed(20261019).NilChance(0)
	pick := func(i uint8) models.Address { return addrs[int(i)%len(addrs)] }

	for i := 0; i < 2000; i++ {
		var op fuzzOp
		f.Fuzz(&op)

		caller, from, to := pick(op.Caller), pick(op.From), pick(op.To)
		if op.NullDst && op.Kind%5 < 2 {
			to = models.NullAddress
		}
		nullSrc := op.NullSrc%8 == 0
		if nullSrc {
			if op.Kind%5 == 1 {
				from = models.NullAddress
			} else {
				caller = models.NullAddress
			}
		}
		amount := u(uint64(op.Amount))
		before := takeSnapshot(t, l, addrs)

		var opErr error
		switch op.Kind % 5 {
		case 0:
			_, opErr = l.Transfer(ctx, caller, to, amount)
		case 1:
			_, opErr = l.TransferFrom(ctx, caller, from, to, amount)
			if opErr == nil {
				prev, _ := uint256.FromDecimal(before.allowances[models.AllowanceKey{Owner: from, Spender: caller}])
				want := new(uint256.Int).Sub(prev, amount)
				assert.True(t, allowanceOf(t, l, from, caller).Eq(want), "allowance not consumed exactly at op %d", i)
			}
		case 2:
			_, opErr = l.Approve(ctx, caller, to, amount)
			if opErr == nil {
				assert.True(t, allowanceOf(t, l, caller, to).Eq(amount))
			}
		case 3:
			_, opErr = l.IncreaseApproval(ctx, caller, to, amount)
		case 4:
			_, opErr = l.DecreaseApproval(ctx, caller, to, amount)
		}

		if nullSrc {
			assert.Error(t, opErr, "null address acted at op %d", i)
			for _, a := range addrs {
				assert.True(t, allowanceOf(t, l, models.NullAddress, a).IsZero(), "null owner allowance at op %d", i)
			}
		}
		if opErr != nil {
			assert.Equal(t, before, takeSnapshot(t, l, addrs), "failed op %d mutated state", i)
		}
		_, err := l.Audit(ctx)
		require.NoError(t, err, "op %d", i)
	}
}
