package ledger

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/token-ledger/internal/monitoring"
)

type AuditReport struct {
	Holders     int          `json:"holders"`
	Sum         *uint256.Int `json:"sum"`
	TotalSupply *uint256.Int `json:"total_supply"`
}

// Audit checks that balances sum to the total supply and that the null
// address holds nothing. A failure is a bug in the ledger or its store.
func (l *Ledger) Audit(ctx context.Context) (*AuditReport, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.audit(ctx)
}

func (l *Ledger) audit(ctx context.Context) (*AuditReport, error) {
	balances, err := l.store.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list balances: %w", err)
	}

	report := &AuditReport{
		Sum:         new(uint256.Int),
		TotalSupply: new(uint256.Int).Set(l.token.TotalSupply),
	}
	for addr, bal := range balances {
		if bal == nil || bal.IsZero() {
			continue
		}
		if addr.IsNull() {
			return report, fmt.Errorf("%w: null address holds %s", ErrInvariantViolated, bal.Dec())
		}
		if _, overflow := report.Sum.AddOverflow(report.Sum, bal); overflow {
			return report, fmt.Errorf("%w: balance sum overflows", ErrInvariantViolated)
		}
		report.Holders++
	}

	if !report.Sum.Eq(report.TotalSupply) {
		return report, fmt.Errorf("%w: balances sum to %s, supply is %s", ErrInvariantViolated, report.Sum.Dec(), report.TotalSupply.Dec())
	}
	monitoring.SetHolders(report.Holders)
	return report, nil
}
