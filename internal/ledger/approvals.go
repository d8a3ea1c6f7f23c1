package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// Approve sets the allowance of spender over caller's balance to amount,
// replacing any previous value.
//
// Overwriting is racy against a pending TransferFrom by the same spender: the
// spender may use the old allowance and then the new one. IncreaseApproval
// and DecreaseApproval adjust relative to the current value instead.
func (l *Ledger) Approve(ctx context.Context, caller, spender models.Address, amount *uint256.Int) (*models.Receipt, error) {
	return l.approval(ctx, models.OpApprove, caller, spender, func(*uint256.Int) (*uint256.Int, error) {
		return amountOrZero(amount), nil
	})
}

// IncreaseApproval adds delta to the allowance. Exceeding 2^256-1 fails
// with ErrArithmeticOverflow and leaves the allowance unchanged.
func (l *Ledger) IncreaseApproval(ctx context.Context, caller, spender models.Address, delta *uint256.Int) (*models.Receipt, error) {
	delta = amountOrZero(delta)
	return l.approval(ctx, models.OpIncreaseApproval, caller, spender, func(current *uint256.Int) (*uint256.Int, error) {
		next, overflow := new(uint256.Int).AddOverflow(current, delta)
		if overflow {
			return nil, fmt.Errorf("%w: allowance %s + %s", ErrArithmeticOverflow, current.Dec(), delta.Dec())
		}
		return next, nil
	})
}

// DecreaseApproval subtracts delta from the allowance, clamping at zero.
func (l *Ledger) DecreaseApproval(ctx context.Context, caller, spender models.Address, delta *uint256.Int) (*models.Receipt, error) {
	delta = amountOrZero(delta)
	return l.approval(ctx, models.OpDecreaseApproval, caller, spender, func(current *uint256.Int) (*uint256.Int, error) {
		next, underflow := new(uint256.Int).SubOverflow(current, delta)
		if underflow {
			next.Clear()
		}
		return next, nil
	})
}

// approval validates owner and spender, derives the new allowance from the
// current one and commits it. The approval event goes out after unlock.
func (l *Ledger) approval(ctx context.Context, op models.OperationKind, owner, spender models.Address, next func(current *uint256.Int) (*uint256.Int, error)) (*models.Receipt, error) {
	receipt, err := l.locked(func() (*models.Receipt, error) {
		if owner.IsNull() {
			return nil, l.reject(op, ErrInvalidOwner)
		}
		if spender.IsNull() {
			return nil, l.reject(op, ErrInvalidSpender)
		}

		current, err := l.allowance(ctx, owner, spender)
		if err != nil {
			return nil, l.reject(op, err)
		}
		value, err := next(current)
		if err != nil {
			return nil, l.reject(op, err)
		}

		receipt := l.newReceipt(op, owner)
		receipt.From = owner
		receipt.Spender = spender
		receipt.Allowance = new(uint256.Int).Set(value)

		change := models.NewStateChange()
		change.SetAllowance(owner, spender, value)
		if err := l.commit(ctx, op, change); err != nil {
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return nil, err
	}

	l.publishApproval(ctx, receipt)
	return receipt, nil
}
