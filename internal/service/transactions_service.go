package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/calendar"
	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/port"
)

// GetTransaction returns a transaction prepared for the edit form.
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*domain.TransactionDetail, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction.id", id))

	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, s.fail(span, "get_transaction", err)
	}

	detail := &domain.TransactionDetail{Transaction: *t, SignedAmount: t.Amount}
	detail.Amount = t.Amount.Abs()
	return detail, nil
}

// EditTransaction replaces every editable field of transaction id and
// reconciles the balance against the row as currently stored.
func (s *LedgerService) EditTransaction(ctx context.Context, id int64, upd *domain.TransactionUpdate) (*domain.ActionResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.EditTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction.id", id))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("edit_transaction", time.Since(start)) }()

	if err := validateUpdate(upd); err != nil {
		return nil, s.fail(span, "edit_transaction", err)
	}

	err := s.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		var account *domain.Account
		if upd.AccountID != nil {
			account, err = tx.GetAccount(ctx, *upd.AccountID)
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				return &domain.ErrReference{Resource: "account", ID: *upd.AccountID}
			}
			if err != nil {
				return err
			}
		}
		if err := checkReferences(ctx, tx, upd.CategoryID, upd.PayeeID, upd.PaymentMethodID); err != nil {
			return err
		}

		updated := applyUpdate(old, upd, account)
		if err := tx.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		return balanceLedger{tx: tx}.reconcile(ctx, old, updated)
	})
	if err != nil {
		return nil, s.fail(span, "edit_transaction", err)
	}

	s.invalidateReference()
	s.logger.Info("transaction edited", zap.Int64("transaction_id", id))
	return &domain.ActionResult{Success: true, Message: "Transação atualizada com sucesso!", ID: id}, nil
}

func validateUpdate(upd *domain.TransactionUpdate) error {
	if upd == nil {
		return &domain.ErrValidation{Field: "request", Message: "requisição vazia"}
	}
	if !upd.Amount.Round(2).IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "Por favor, informe um valor válido."}
	}
	if upd.Date.IsZero() {
		return &domain.ErrValidation{Field: "date", Message: "Por favor, informe uma data."}
	}
	if !upd.Kind.Valid() {
		return &domain.ErrValidation{Field: "kind", Message: "Por favor, selecione o tipo da transação (receita ou despesa)."}
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return &domain.ErrValidation{Field: "status", Message: "status inválido"}
	}
	return nil
}

// applyUpdate returns old with the update applied. The due date is only
// recomputed when the date or the account changes, so rows written before
// due dates existed keep their stored value otherwise.
func applyUpdate(old *domain.Transaction, upd *domain.TransactionUpdate, account *domain.Account) *domain.Transaction {
	updated := *old
	updated.Date = upd.Date
	updated.Amount = upd.Kind.Signed(upd.Amount.Round(2))
	updated.Kind = upd.Kind
	updated.Description = strings.TrimSpace(upd.Description)
	updated.AccountID = upd.AccountID
	updated.CategoryID = upd.CategoryID
	updated.PayeeID = upd.PayeeID
	updated.PaymentMethodID = upd.PaymentMethodID
	if upd.Status != "" {
		updated.Status = upd.Status
	}

	if !old.Date.Equal(upd.Date) || !sameAccount(old.AccountID, upd.AccountID) {
		updated.DueDate = calendar.DueDateFor(account, upd.Date)
	}
	return &updated
}

// DeleteTransaction removes transaction id, reversing its balance effect.
// Deleting a series anchor removes the series descriptor; deleting the last
// installment of a plan removes the plan header. Sibling rows are kept.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (*domain.ActionResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction.id", id))

	err := s.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		if old.AppliedToBalance() {
			if err := (balanceLedger{tx: tx}).reverse(ctx, old.AccountID, old.Amount); err != nil {
				return err
			}
		}
		if _, err := tx.DeleteRecurrenceByTransaction(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		if old.InstallmentPlanID != nil {
			if _, err := tx.DeleteInstallmentPlanIfEmpty(ctx, *old.InstallmentPlanID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "delete_transaction", err)
	}

	s.invalidateReference()
	s.logger.Info("transaction deleted", zap.Int64("transaction_id", id))
	return &domain.ActionResult{Success: true, Message: "Transação excluída com sucesso!", ID: id}, nil
}
