package sqlite

import (
	"context"
	"strings"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// effectiveDateClause restricts rows to [start, end) on their effective
// date: the due date for credit card rows that have one, the event date
// for everything else. It takes the bounds twice.
const effectiveDateClause = `(
	(a.kind = 'credit_card' AND t.due_date IS NOT NULL AND t.due_date >= ? AND t.due_date < ?)
	OR ((a.kind IS NULL OR a.kind <> 'credit_card' OR t.due_date IS NULL) AND t.date >= ? AND t.date < ?)
)`

const queryBase = `SELECT t.id, t.date, t.due_date, t.amount, t.kind, t.description, t.account_id,
		t.category_id, t.payee_id, t.payment_method_id, t.status, t.installment_plan_id,
		COALESCE(a.name, ''), COALESCE(a.kind, ''), COALESCE(c.name, ''),
		COALESCE(p.name, ''), COALESCE(pm.name, ''), COALESCE(r.frequency, '')
	FROM transactions t
	LEFT JOIN accounts a ON a.id = t.account_id
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN payees p ON p.id = t.payee_id
	LEFT JOIN payment_methods pm ON pm.id = t.payment_method_id
	LEFT JOIN recurrences r ON r.transaction_id = t.id`

// buildQuery renders the filter into SQL and its arguments.
func buildQuery(f *domain.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if start, end, ok := f.Bounds(); ok {
		where = append(where, effectiveDateClause)
		args = append(args, start.String(), end.String(), start.String(), end.String())
	}
	if f.AccountID != nil {
		where = append(where, "t.account_id = ?")
		args = append(args, *f.AccountID)
	}
	if f.CategoryID != nil {
		where = append(where, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Kind != "" && f.Kind != domain.FilterAll {
		where = append(where, "t.kind = ?")
		args = append(args, f.Kind)
	}
	if f.Status != "" && f.Status != domain.FilterAll {
		where = append(where, "t.status = ?")
		args = append(args, f.Status)
	}

	var sb strings.Builder
	sb.WriteString(queryBase)
	if len(where) > 0 {
		sb.WriteString("\n\tWHERE ")
		sb.WriteString(strings.Join(where, "\n\tAND "))
	}
	sb.WriteString("\n\tORDER BY t.date DESC, t.id DESC")
	return sb.String(), args
}

// QueryTransactions returns the rows matching f joined with their
// reference names, newest event date first.
func (s *Store) QueryTransactions(ctx context.Context, f *domain.TransactionFilter) ([]domain.TransactionRow, error) {
	ctx, span := tracer.Start(ctx, "SQLite.QueryTransactions")
	defer span.End()

	query, args := buildQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("query transactions", err)
	}
	defer rows.Close()

	out := []domain.TransactionRow{}
	for rows.Next() {
		var (
			row         domain.TransactionRow
			accountKind string
		)
		t, err := scanTransaction(&joinedScanner{rows: rows, extra: []any{
			&row.AccountName, &accountKind, &row.CategoryName,
			&row.PayeeName, &row.PaymentMethodName, &row.RecurrenceFrequency,
		}})
		if err != nil {
			return nil, translate("scan transaction", err)
		}
		row.Transaction = *t
		row.AccountKind = domain.AccountKind(accountKind)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("query transactions", err)
	}
	return out, nil
}

// joinedScanner appends the joined columns to the destinations that
// scanTransaction passes, so the transaction columns are scanned in one
// place.
type joinedScanner struct {
	rows  rowScanner
	extra []any
}

func (j *joinedScanner) Scan(dest ...any) error {
	return j.rows.Scan(append(dest, j.extra...)...)
}
