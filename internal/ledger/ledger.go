package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/logx"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/models/events"
	"github.com/sheikh-saqib/token-ledger/internal/monitoring"
)

const (
	DefaultTransferTopic = "token_transfer"
	DefaultApprovalTopic = "token_approval"
)

// Ledger owns the balance and allowance state of a single fixed-supply token.
// Every mutation runs under one exclusive lock covering both maps, so the
// precondition checks and the write always see the same snapshot.
type Ledger struct {
	mu        sync.RWMutex
	store     interfaces.LedgerStore    // balances, allowances and entry history
	publisher interfaces.EventPublisher // optional, notifications only
	token     models.Token

	transferTopic string
	approvalTopic string
	strict        bool
	now           func() time.Time
}

// Option customizes a Ledger at construction.
type Option func(*Ledger)

// WithTopics overrides the topics transfer and approval events are published on.
func WithTopics(transfer, approval string) Option {
	return func(l *Ledger) {
		l.transferTopic = transfer
		l.approvalTopic = approval
	}
}

// WithStrictAudit makes the ledger re-check conservation after every
// mutation and panic if it does not hold.
func WithStrictAudit(strict bool) Option {
	return func(l *Ledger) { l.strict = strict }
}

// WithClock replaces time.Now for receipt and entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger opens the token held by store, issuing genesis first if the store
// is empty. The supply is minted exactly once per store: reopening a store
// with a different genesis fails with ErrGenesisMismatch.
func NewLedger(ctx context.Context, store interfaces.LedgerStore, publisher interfaces.EventPublisher, genesis models.Genesis, opts ...Option) (*Ledger, error) {
	if genesis.Holder.IsNull() {
		return nil, ErrInvalidHolder
	}

	l := &Ledger{
		store:         store,
		publisher:     publisher,
		transferTopic: DefaultTransferTopic,
		approvalTopic: DefaultApprovalTopic,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	token := genesis.Token
	// own the supply; the caller may reuse its genesis value
	token.TotalSupply = new(uint256.Int).Set(amountOrZero(token.TotalSupply))

	existing, err := store.LoadToken(ctx)
	switch {
	case err == nil:
		if !existing.Equal(token) {
			return nil, fmt.Errorf("%w: have %s/%s supply %s", ErrGenesisMismatch, existing.Name, existing.Symbol, existing.TotalSupply.Dec())
		}
		l.token = existing
		logx.Info("LEDGER", fmt.Sprintf("Resumed token %s (%s), supply %s", existing.Name, existing.Symbol, existing.TotalSupply.Dec()))
		return l, nil
	case errors.Is(err, interfaces.ErrTokenNotFound):
	default:
		return nil, fmt.Errorf("could not load token: %w", err)
	}

	now := l.now()
	receipt := &models.Receipt{
		ID:        uuid.NewString(),
		Kind:      models.OpGenesis,
		Caller:    genesis.Holder,
		From:      models.NullAddress,
		To:        genesis.Holder,
		Amount:    new(uint256.Int).Set(token.TotalSupply),
		CreatedAt: now,
	}

	change := models.NewStateChange()
	change.Token = &token
	change.SetBalance(genesis.Holder, token.TotalSupply)
	debit, credit := models.EntryPair(receipt.ID, models.NullAddress, genesis.Holder, token.TotalSupply, now)
	change.AddEntries(debit, credit)

	if err := store.Apply(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to write genesis: %w", err)
	}
	l.token = token
	logx.Info("LEDGER", fmt.Sprintf("Minted %s %s to %s", token.TotalSupply.Dec(), token.Symbol, genesis.Holder))

	l.publishTransfer(ctx, receipt)
	return l, nil
}

// Token returns a copy of the token metadata and supply.
func (l *Ledger) Token() models.Token {
	t := l.token
	t.TotalSupply = new(uint256.Int).Set(l.token.TotalSupply)
	return t
}

// Name, Symbol and Decimals are descriptive only; no check depends on them.
func (l *Ledger) Name() string    { return l.token.Name }
func (l *Ledger) Symbol() string  { return l.token.Symbol }
func (l *Ledger) Decimals() uint8 { return l.token.Decimals }

// TotalSupply never changes after genesis.
func (l *Ledger) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(l.token.TotalSupply)
}

// BalanceOf returns zero for addresses that were never credited.
func (l *Ledger) BalanceOf(ctx context.Context, addr models.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance(ctx, addr)
}

// Allowance returns zero when owner never approved spender.
func (l *Ledger) Allowance(ctx context.Context, owner, spender models.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowance(ctx, owner, spender)
}

// Entries returns the double-entry history, optionally limited to one account.
func (l *Ledger) Entries(ctx context.Context, account models.Address) ([]models.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if account == "" {
		return l.store.GetLedgerEntries(ctx)
	}
	return l.store.GetEntriesByAccount(ctx, account)
}

// Transfer moves amount from caller to to. The transfer event is published
// after the ledger lock is released.
func (l *Ledger) Transfer(ctx context.Context, caller, to models.Address, amount *uint256.Int) (*models.Receipt, error) {
	receipt, err := l.locked(func() (*models.Receipt, error) {
		amount := amountOrZero(amount)
		if to.IsNull() {
			return nil, l.reject(models.OpTransfer, ErrInvalidRecipient)
		}
		// the null address never sends, not even a zero amount
		if caller.IsNull() {
			return nil, l.reject(models.OpTransfer, ErrInvalidSender)
		}

		receipt := l.newReceipt(models.OpTransfer, caller)
		receipt.From = caller
		receipt.To = to
		receipt.Amount = new(uint256.Int).Set(amount)

		change := models.NewStateChange()
		if err := l.stageMove(ctx, change, receipt); err != nil {
			return nil, l.reject(models.OpTransfer, err)
		}
		if err := l.commit(ctx, models.OpTransfer, change); err != nil {
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return nil, err
	}

	l.publishTransfer(ctx, receipt)
	return receipt, nil
}

// TransferFrom moves amount from from to to on behalf of caller, consuming
// caller's allowance. Checks run in order: recipient, null source or
// spender, balance, allowance.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to models.Address, amount *uint256.Int) (*models.Receipt, error) {
	receipt, err := l.locked(func() (*models.Receipt, error) {
		amount := amountOrZero(amount)
		if to.IsNull() {
			return nil, l.reject(models.OpTransferFrom, ErrInvalidRecipient)
		}
		if from.IsNull() {
			return nil, l.reject(models.OpTransferFrom, ErrInvalidSender)
		}
		if caller.IsNull() {
			return nil, l.reject(models.OpTransferFrom, ErrInvalidSpender)
		}

		receipt := l.newReceipt(models.OpTransferFrom, caller)
		receipt.From = from
		receipt.To = to
		receipt.Spender = caller
		receipt.Amount = new(uint256.Int).Set(amount)

		change := models.NewStateChange()
		if err := l.stageMove(ctx, change, receipt); err != nil {
			return nil, l.reject(models.OpTransferFrom, err)
		}

		allowed, err := l.allowance(ctx, from, caller)
		if err != nil {
			return nil, l.reject(models.OpTransferFrom, err)
		}
		remaining, underflow := new(uint256.Int).SubOverflow(allowed, amount)
		if underflow {
			return nil, l.reject(models.OpTransferFrom, fmt.Errorf("%w: %s allowed, %s requested", ErrInsufficientAllowance, allowed.Dec(), amount.Dec()))
		}
		change.SetAllowance(from, caller, remaining)
		receipt.Allowance = remaining

		if err := l.commit(ctx, models.OpTransferFrom, change); err != nil {
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return nil, err
	}

	l.publishTransfer(ctx, receipt)
	return receipt, nil
}

// locked runs a mutation under the exclusive ledger lock.
func (l *Ledger) locked(mutate func() (*models.Receipt, error)) (*models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return mutate()
}

// stageMove checks the source balance and writes the resulting balances and
// entries into change. A self-transfer leaves balances untouched.
func (l *Ledger) stageMove(ctx context.Context, change *models.StateChange, receipt *models.Receipt) error {
	from, to, amount := receipt.From, receipt.To, receipt.Amount

	fromBal, err := l.balance(ctx, from)
	if err != nil {
		return err
	}
	newFrom, underflow := new(uint256.Int).SubOverflow(fromBal, amount)
	if underflow {
		return fmt.Errorf("%w: %s holds %s, %s requested", ErrInsufficientBalance, from, fromBal.Dec(), amount.Dec())
	}

	if from != to && !amount.IsZero() {
		toBal, err := l.balance(ctx, to)
		if err != nil {
			return err
		}
		newTo, overflow := new(uint256.Int).AddOverflow(toBal, amount)
		if overflow {
			return ErrArithmeticOverflow
		}
		change.SetBalance(from, newFrom)
		change.SetBalance(to, newTo)
	}

	debit, credit := models.EntryPair(receipt.ID, from, to, amount, receipt.CreatedAt)
	change.AddEntries(debit, credit)
	return nil
}

func (l *Ledger) commit(ctx context.Context, op models.OperationKind, change *models.StateChange) error {
	if err := l.store.Apply(ctx, change); err != nil {
		return l.reject(op, fmt.Errorf("failed to apply %s: %w", op, err))
	}
	monitoring.RecordApplied(string(op))

	if l.strict {
		if _, err := l.audit(ctx); err != nil {
			logx.Error("LEDGER", fmt.Sprintf("Audit after %s failed: %v", op, err))
			panic(err)
		}
	}
	return nil
}

func (l *Ledger) reject(op models.OperationKind, err error) error {
	reason := rejectReason(err)
	monitoring.RecordRejected(string(op), reason)
	if reason == monitoring.RejectStoreFailure {
		logx.Error("LEDGER", fmt.Sprintf("%s failed: %v", op, err))
	} else {
		logx.Debug("LEDGER", fmt.Sprintf("%s rejected: %v", op, err))
	}
	return err
}

func (l *Ledger) newReceipt(kind models.OperationKind, caller models.Address) *models.Receipt {
	return &models.Receipt{
		ID:        uuid.NewString(),
		Kind:      kind,
		Caller:    caller,
		CreatedAt: l.now(),
	}
}

func (l *Ledger) balance(ctx context.Context, addr models.Address) (*uint256.Int, error) {
	v, err := l.store.GetBalance(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("could not read balance of %s: %w", addr, err)
	}
	return amountOrZero(v), nil
}

func (l *Ledger) allowance(ctx context.Context, owner, spender models.Address) (*uint256.Int, error) {
	v, err := l.store.GetAllowance(ctx, owner, spender)
	if err != nil {
		return nil, fmt.Errorf("could not read allowance %s/%s: %w", owner, spender, err)
	}
	return amountOrZero(v), nil
}

func (l *Ledger) publishTransfer(ctx context.Context, r *models.Receipt) {
	if l.publisher == nil {
		return
	}
	ev := events.NewTransfer(uuid.NewString(), r.ID, r.From, r.To, r.Amount, r.CreatedAt)
	l.publish(ctx, l.transferTopic, ev)
}

func (l *Ledger) publishApproval(ctx context.Context, r *models.Receipt) {
	if l.publisher == nil {
		return
	}
	ev := events.NewApproval(uuid.NewString(), r.From, r.Spender, r.Allowance, r.CreatedAt)
	l.publish(ctx, l.approvalTopic, ev)
}

// publish runs outside the ledger lock. The state is already committed, so
// the request being cancelled must not drop the event.
func (l *Ledger) publish(ctx context.Context, topic string, ev any) {
	if err := l.publisher.Publish(context.WithoutCancel(ctx), topic, ev); err != nil {
		monitoring.RecordPublishFailure()
		logx.Warn("LEDGER", fmt.Sprintf("Could not publish event on %s: %v", topic, err))
	}
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
