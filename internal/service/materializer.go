package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/calendar"
	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/port"
)

// SubmitTransaction turns one submitted request into a plain row, an
// installment series or a recurrence series, all inside one unit of work.
func (s *LedgerService) SubmitTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.SubmissionResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SubmitTransaction")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("submit_transaction", time.Since(start)) }()

	n, err := classify(req)
	if err != nil {
		return nil, s.fail(span, "submit_transaction", err)
	}
	branch := n.plan.branch()
	span.SetAttributes(attribute.String("ledger.branch", branch))

	result := &domain.SubmissionResult{SubmissionID: s.newSubmissionID()}

	err = s.store.WithinTx(ctx, func(tx port.LedgerTx) error {
		m := &materializer{tx: tx, ledger: balanceLedger{tx: tx}, req: n}
		result.TransactionIDs = nil
		result.InstallmentPlanID = nil
		result.RecurrenceID = nil

		if err := m.resolve(ctx); err != nil {
			return err
		}

		switch p := n.plan.(type) {
		case installmentPlan:
			return m.installments(ctx, p, result)
		case recurrencePlan:
			return m.recurrence(ctx, p, result)
		default:
			return m.plain(ctx, result)
		}
	})
	if err != nil {
		s.logger.Warn("transaction submission failed",
			zap.String("submission_id", result.SubmissionID),
			zap.String("branch", branch),
			zap.Error(err),
		)
		return nil, s.fail(span, "submit_transaction", err)
	}

	result.Success = true
	result.Message = confirmation(n.plan)

	s.metrics.AddTransactionsCreated(branch, len(result.TransactionIDs))
	if n.AccountID != nil {
		s.invalidateReference()
	}

	s.logger.Info("transaction submitted",
		zap.String("submission_id", result.SubmissionID),
		zap.String("branch", branch),
		zap.Int("rows", len(result.TransactionIDs)),
	)
	span.SetAttributes(attribute.Int("ledger.rows", len(result.TransactionIDs)))
	return result, nil
}

// materializer writes the rows of one submission.
type materializer struct {
	tx      port.LedgerTx
	ledger  balanceLedger
	req     *normalizedRequest
	account *domain.Account
}

// resolve loads the owning account and checks every foreign key.
func (m *materializer) resolve(ctx context.Context) error {
	if id := m.req.AccountID; id != nil {
		acc, err := m.tx.GetAccount(ctx, *id)
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return &domain.ErrReference{Resource: "account", ID: *id}
		}
		if err != nil {
			return err
		}
		m.account = acc
	}

	if err := checkReferences(ctx, m.tx, m.req.CategoryID, m.req.PayeeID, m.req.PaymentMethodID); err != nil {
		return err
	}

	if _, ok := m.req.plan.(installmentPlan); ok && !m.account.IsCreditCard() {
		return &domain.ErrValidation{Field: "installments", Message: "parcelamento disponível apenas para cartão de crédito"}
	}
	return nil
}

// checkReferences verifies the optional category, payee and payment method.
func checkReferences(ctx context.Context, tx port.LedgerTx, categoryID, payeeID, methodID *int64) error {
	refs := []struct {
		resource string
		id       *int64
	}{
		{"category", categoryID},
		{"payee", payeeID},
		{"payment_method", methodID},
	}
	for _, r := range refs {
		if r.id == nil {
			continue
		}
		ok, err := tx.ReferenceExists(ctx, r.resource, *r.id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ErrReference{Resource: r.resource, ID: *r.id}
		}
	}
	return nil
}

// row builds a transaction for date, carrying the request's references.
// The due date is resolved from the account's billing terms.
func (m *materializer) row(date domain.Date, description string) *domain.Transaction {
	return &domain.Transaction{
		Date:            date,
		DueDate:         calendar.DueDateFor(m.account, date),
		Amount:          m.req.signed,
		Kind:            m.req.Kind,
		Description:     description,
		AccountID:       m.req.AccountID,
		CategoryID:      m.req.CategoryID,
		PayeeID:         m.req.PayeeID,
		PaymentMethodID: m.req.PaymentMethodID,
		Status:          domain.StatusPending,
	}
}

// insertApplied inserts t and applies it to the account balance.
func (m *materializer) insertApplied(ctx context.Context, t *domain.Transaction) (int64, error) {
	id, err := m.tx.InsertTransaction(ctx, t)
	if err != nil {
		return 0, err
	}
	if t.AppliedToBalance() {
		if err := m.ledger.apply(ctx, t.AccountID, t.Amount); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (m *materializer) plain(ctx context.Context, result *domain.SubmissionResult) error {
	id, err := m.insertApplied(ctx, m.row(m.req.Date, m.req.description))
	if err != nil {
		return err
	}
	result.TransactionIDs = append(result.TransactionIDs, id)
	return nil
}

// installments writes the plan header and one child per month. Each
// child's due date is resolved from its own date. Children stay out of the
// balance until paid.
func (m *materializer) installments(ctx context.Context, p installmentPlan, result *domain.SubmissionResult) error {
	shares := splitInstallments(m.req.magnitude, p.count)

	plan := &domain.InstallmentPlan{
		Description:      m.req.description,
		TotalAmount:      m.req.magnitude,
		InstallmentCount: p.count,
		PurchaseDate:     m.req.Date,
		DueDate:          calendar.DueDateFor(m.account, m.req.Date),
		AccountID:        m.req.AccountID,
		CategoryID:       m.req.CategoryID,
		PayeeID:          m.req.PayeeID,
		PaymentMethodID:  m.req.PaymentMethodID,
	}
	planID, err := m.tx.InsertInstallmentPlan(ctx, plan)
	if err != nil {
		return err
	}
	result.InstallmentPlanID = &planID

	for i := 0; i < p.count; i++ {
		t := m.row(calendar.AddMonths(m.req.Date, i), seriesDescription(m.req.description, i+1, p.count))
		t.Amount = m.req.Kind.Signed(shares[i])
		t.InstallmentPlanID = &planID

		id, err := m.insertApplied(ctx, t)
		if err != nil {
			return err
		}
		result.TransactionIDs = append(result.TransactionIDs, id)
	}
	return nil
}

// recurrence writes the anchor, the series descriptor and the remaining
// occurrences. Every occurrence, anchor included, posts to the balance.
func (m *materializer) recurrence(ctx context.Context, p recurrencePlan, result *domain.SubmissionResult) error {
	start := m.req.Date

	anchorID, err := m.insertApplied(ctx, m.row(start, m.req.description))
	if err != nil {
		return err
	}
	result.TransactionIDs = append(result.TransactionIDs, anchorID)

	rec := &domain.Recurrence{
		TransactionID:   anchorID,
		Frequency:       p.frequency,
		StartDate:       start,
		EndDate:         calendar.Advance(start, p.frequency, p.occurrences-1),
		NextExecution:   calendar.Advance(start, p.frequency, 1),
		OccurrenceCount: p.occurrences,
		UseFixedAmount:  true,
	}
	recID, err := m.tx.InsertRecurrence(ctx, rec)
	if err != nil {
		return err
	}
	result.RecurrenceID = &recID

	for i := 1; i < p.occurrences; i++ {
		t := m.row(calendar.Advance(start, p.frequency, i), seriesDescription(m.req.description, i+1, p.occurrences))
		id, err := m.insertApplied(ctx, t)
		if err != nil {
			return err
		}
		result.TransactionIDs = append(result.TransactionIDs, id)
	}
	return nil
}
