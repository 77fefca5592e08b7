package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/port"
)

const transactionColumns = `id, date, due_date, amount, kind, description, account_id,
	category_id, payee_id, payment_method_id, status, installment_plan_id`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t                                        domain.Transaction
		due                                      domain.Date
		kind, status                             string
		description                              sql.NullString
		accountID, categoryID, payeeID, methodID sql.NullInt64
		planID                                   sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Date, &due, &t.Amount, &kind, &description, &accountID,
		&categoryID, &payeeID, &methodID, &status, &planID); err != nil {
		return nil, err
	}
	t.DueDate = ptrDate(due)
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	t.Description = description.String
	t.AccountID = ptrInt64(accountID)
	t.CategoryID = ptrInt64(categoryID)
	t.PayeeID = ptrInt64(payeeID)
	t.PaymentMethodID = ptrInt64(methodID)
	t.InstallmentPlanID = ptrInt64(planID)
	return &t, nil
}

func getTransaction(ctx context.Context, q queryable, id int64) (*domain.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, translate("get transaction", err)
	}
	return t, nil
}

// GetTransaction returns one transaction or *domain.ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetTransaction")
	defer span.End()
	return getTransaction(ctx, s.db, id)
}

// GetRecurrenceByTransaction returns the series anchored at transactionID,
// or *domain.ErrNotFound when the transaction is not an anchor.
func (s *Store) GetRecurrenceByTransaction(ctx context.Context, transactionID int64) (*domain.Recurrence, error) {
	var (
		r         domain.Recurrence
		freq      string
		end, next domain.Date
		count     sql.NullInt64
		fixed     sql.NullBool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, transaction_id, frequency, start_date, end_date, next_execution, occurrence_count, use_fixed_amount
		 FROM recurrences WHERE transaction_id = ?`, transactionID,
	).Scan(&r.ID, &r.TransactionID, &freq, &r.StartDate, &end, &next, &count, &fixed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "recurrence", ID: strconv.FormatInt(transactionID, 10)}
	}
	if err != nil {
		return nil, translate("get recurrence", err)
	}
	r.Frequency = domain.Frequency(freq)
	r.EndDate = end
	r.NextExecution = next
	r.OccurrenceCount = int(count.Int64)
	r.UseFixedAmount = !fixed.Valid || fixed.Bool
	return &r, nil
}

// GetInstallmentPlan returns a plan header or *domain.ErrNotFound.
func (s *Store) GetInstallmentPlan(ctx context.Context, id int64) (*domain.InstallmentPlan, error) {
	var (
		p                                        domain.InstallmentPlan
		description                              sql.NullString
		due                                      domain.Date
		accountID, categoryID, payeeID, methodID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description, total_amount, installment_count, purchase_date, due_date,
		        account_id, category_id, payee_id, payment_method_id
		 FROM installment_plans WHERE id = ?`, id,
	).Scan(&p.ID, &description, &p.TotalAmount, &p.InstallmentCount, &p.PurchaseDate, &due,
		&accountID, &categoryID, &payeeID, &methodID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "installment plan", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, translate("get installment plan", err)
	}
	p.Description = description.String
	p.DueDate = ptrDate(due)
	p.AccountID = ptrInt64(accountID)
	p.CategoryID = ptrInt64(categoryID)
	p.PayeeID = ptrInt64(payeeID)
	p.PaymentMethodID = ptrInt64(methodID)
	return &p, nil
}

// ============================================================
// Unit of work
// ============================================================

// ledgerTx implements port.LedgerTx on an open *sql.Tx.
type ledgerTx struct {
	q queryable
}

var _ port.LedgerTx = (*ledgerTx)(nil)

func (t *ledgerTx) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return getAccount(ctx, t.q, id)
}

func (t *ledgerTx) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return getTransaction(ctx, t.q, id)
}

func (t *ledgerTx) ReferenceExists(ctx context.Context, resource string, id int64) (bool, error) {
	table, ok := referenceTables[resource]
	if !ok {
		return false, &domain.ErrValidation{Field: "resource", Message: "unknown reference " + resource}
	}
	var one int
	err := t.q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate("check "+resource, err)
	}
	return true, nil
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, tr *domain.Transaction) (int64, error) {
	status := tr.Status
	if status == "" {
		status = domain.StatusPending
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO transactions (date, due_date, amount, kind, description, account_id,
		 category_id, payee_id, payment_method_id, status, installment_plan_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.Date.String(), nullDate(tr.DueDate), tr.Amount.String(), string(tr.Kind), tr.Description,
		nullInt64(tr.AccountID), nullInt64(tr.CategoryID), nullInt64(tr.PayeeID),
		nullInt64(tr.PaymentMethodID), string(status), nullInt64(tr.InstallmentPlanID),
	)
	if err != nil {
		return 0, translate("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, translate("insert transaction", err)
	}
	tr.ID = id
	tr.Status = status
	return id, nil
}

func (t *ledgerTx) UpdateTransaction(ctx context.Context, tr *domain.Transaction) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE transactions SET date = ?, due_date = ?, amount = ?, kind = ?, description = ?,
		 account_id = ?, category_id = ?, payee_id = ?, payment_method_id = ?, status = ?
		 WHERE id = ?`,
		tr.Date.String(), nullDate(tr.DueDate), tr.Amount.String(), string(tr.Kind), tr.Description,
		nullInt64(tr.AccountID), nullInt64(tr.CategoryID), nullInt64(tr.PayeeID),
		nullInt64(tr.PaymentMethodID), string(tr.Status), tr.ID,
	)
	if err != nil {
		return translate("update transaction", err)
	}
	return requireAffected(res, "transaction", tr.ID)
}

func (t *ledgerTx) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return translate("delete transaction", err)
	}
	return requireAffected(res, "transaction", id)
}

func (t *ledgerTx) InsertInstallmentPlan(ctx context.Context, p *domain.InstallmentPlan) (int64, error) {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO installment_plans (description, total_amount, installment_count, purchase_date,
		 due_date, account_id, category_id, payee_id, payment_method_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Description, p.TotalAmount.String(), p.InstallmentCount, p.PurchaseDate.String(),
		nullDate(p.DueDate), nullInt64(p.AccountID), nullInt64(p.CategoryID),
		nullInt64(p.PayeeID), nullInt64(p.PaymentMethodID),
	)
	if err != nil {
		return 0, translate("insert installment plan", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, translate("insert installment plan", err)
	}
	p.ID = id
	return id, nil
}

func (t *ledgerTx) DeleteInstallmentPlanIfEmpty(ctx context.Context, planID int64) (bool, error) {
	res, err := t.q.ExecContext(ctx,
		`DELETE FROM installment_plans WHERE id = ?
		 AND NOT EXISTS (SELECT 1 FROM transactions WHERE installment_plan_id = ?)`, planID, planID)
	if err != nil {
		return false, translate("delete installment plan", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, translate("delete installment plan", err)
	}
	return n > 0, nil
}

func (t *ledgerTx) InsertRecurrence(ctx context.Context, r *domain.Recurrence) (int64, error) {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO recurrences (transaction_id, frequency, start_date, end_date, next_execution,
		 occurrence_count, use_fixed_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.TransactionID, string(r.Frequency), r.StartDate.String(), r.EndDate.String(),
		nullDate(&r.NextExecution), r.OccurrenceCount, r.UseFixedAmount,
	)
	if err != nil {
		return 0, translate("insert recurrence", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, translate("insert recurrence", err)
	}
	r.ID = id
	return id, nil
}

func (t *ledgerTx) DeleteRecurrenceByTransaction(ctx context.Context, transactionID int64) (int64, error) {
	res, err := t.q.ExecContext(ctx, `DELETE FROM recurrences WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return 0, translate("delete recurrence", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate("delete recurrence", err)
	}
	return n, nil
}

// AdjustAccountBalance reads the balance, adds delta in decimal and writes
// it back rounded to cents, so REAL storage never accumulates float drift.
func (t *ledgerTx) AdjustAccountBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	var balance decimal.Decimal
	err := t.q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ErrReference{Resource: "account", ID: accountID}
	}
	if err != nil {
		return translate("read balance", err)
	}

	updated := balance.Add(delta).Round(2)
	if _, err := t.q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, updated.String(), accountID); err != nil {
		return translate("update balance", err)
	}
	return nil
}

func requireAffected(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate("rows affected", err)
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}
