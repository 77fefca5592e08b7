package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/port"
)

// balanceLedger applies and reverses signed amounts on account balances.
// Callers guarantee each row is applied once and reversed once.
type balanceLedger struct {
	tx port.LedgerTx
}

// apply adds amount to the account balance. A nil account is a no-op.
func (b balanceLedger) apply(ctx context.Context, accountID *int64, amount decimal.Decimal) error {
	if accountID == nil || amount.IsZero() {
		return nil
	}
	return b.tx.AdjustAccountBalance(ctx, *accountID, amount)
}

// reverse subtracts amount from the account balance. A nil account is a no-op.
func (b balanceLedger) reverse(ctx context.Context, accountID *int64, amount decimal.Decimal) error {
	return b.apply(ctx, accountID, amount.Neg())
}

// reconcile moves the balance effect of a row from its stored state old
// to its edited state updated. A row counts only while AppliedToBalance
// holds, so status transitions into or out of cancelled reverse or apply
// the amount even when account and amount are unchanged.
func (b balanceLedger) reconcile(ctx context.Context, old, updated *domain.Transaction) error {
	oldApplied := old.AppliedToBalance()
	newApplied := updated.AppliedToBalance()

	if oldApplied && newApplied && sameAccount(old.AccountID, updated.AccountID) && old.Amount.Equal(updated.Amount) {
		return nil
	}
	if oldApplied {
		if err := b.reverse(ctx, old.AccountID, old.Amount); err != nil {
			return err
		}
	}
	if newApplied {
		if err := b.apply(ctx, updated.AccountID, updated.Amount); err != nil {
			return err
		}
	}
	return nil
}

func sameAccount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
