package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// QueryTransactions lists the transactions matching f and aggregates
// income, expense and balance over exactly that result set.
func (s *LedgerService) QueryTransactions(ctx context.Context, f *domain.TransactionFilter) (*domain.QueryResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.QueryTransactions")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("query_transactions", time.Since(start)) }()

	if f == nil {
		f = &domain.TransactionFilter{Period: domain.PeriodAll}
	}
	if err := f.Validate(); err != nil {
		return nil, s.fail(span, "query_transactions", err)
	}
	span.SetAttributes(
		attribute.String("filter.period", string(f.Period)),
		attribute.Int("filter.year", f.Year),
		attribute.Int("filter.month", f.Month),
	)

	rows, err := s.store.QueryTransactions(ctx, f)
	if err != nil {
		return nil, s.fail(span, "query_transactions", err)
	}

	result := &domain.QueryResult{
		Success:      true,
		Transactions: make([]domain.TransactionView, 0, len(rows)),
	}
	result.TotalIncome, result.TotalExpense = totals(rows)
	result.Balance = result.TotalIncome.Sub(result.TotalExpense)

	for i := range rows {
		result.Transactions = append(result.Transactions, toView(&rows[i]))
	}
	span.SetAttributes(attribute.Int("result.count", len(rows)))
	return result, nil
}

// totals sums income amounts and absolute expense amounts.
func totals(rows []domain.TransactionRow) (income, expense decimal.Decimal) {
	for _, r := range rows {
		switch r.Kind {
		case domain.KindIncome:
			income = income.Add(r.Amount)
		case domain.KindExpense:
			expense = expense.Add(r.Amount.Abs())
		}
	}
	return income, expense
}

func toView(r *domain.TransactionRow) domain.TransactionView {
	return domain.TransactionView{
		ID:                  r.ID,
		Date:                r.EffectiveDate(),
		OriginalDate:        r.Date,
		DueDate:             r.DueDate,
		Amount:              r.Amount.Abs(),
		SignedAmount:        r.Amount,
		Kind:                r.Kind,
		Description:         r.Description,
		Status:              r.Status,
		AccountID:           r.AccountID,
		AccountName:         r.AccountName,
		AccountKind:         r.AccountKind,
		CategoryID:          r.CategoryID,
		CategoryName:        r.CategoryName,
		PayeeID:             r.PayeeID,
		PayeeName:           r.PayeeName,
		PaymentMethodID:     r.PaymentMethodID,
		PaymentMethodName:   r.PaymentMethodName,
		Installment:         r.InstallmentPlanID != nil,
		RecurrenceFrequency: r.RecurrenceFrequency,
	}
}

// ============================================================
// Card invoices
// ============================================================

// ListInvoices projects a credit card's transactions due in year onto
// monthly invoices keyed by due date month. Cancelled rows are ignored.
// An invoice is paid once every row on it is paid.
func (s *LedgerService) ListInvoices(ctx context.Context, accountID int64, year int) ([]domain.Invoice, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListInvoices")
	defer span.End()
	span.SetAttributes(attribute.Int64("account.id", accountID), attribute.Int("year", year))

	if year < 1 {
		return nil, s.fail(span, "list_invoices", &domain.ErrValidation{Field: "year", Message: "ano inválido"})
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, s.fail(span, "list_invoices", err)
	}
	if !account.IsCreditCard() {
		return nil, s.fail(span, "list_invoices", &domain.ErrValidation{
			Field:   "account_id",
			Message: "faturas existem apenas para cartão de crédito",
		})
	}

	rows, err := s.store.QueryTransactions(ctx, &domain.TransactionFilter{
		Period:    domain.PeriodYear,
		Year:      year,
		AccountID: &accountID,
	})
	if err != nil {
		return nil, s.fail(span, "list_invoices", err)
	}

	return groupInvoices(accountID, rows), nil
}

func groupInvoices(accountID int64, rows []domain.TransactionRow) []domain.Invoice {
	byMonth := map[string]*domain.Invoice{}
	allPaid := map[string]bool{}

	for _, r := range rows {
		if r.Status == domain.StatusCancelled || r.DueDate == nil {
			continue
		}
		t := r.DueDate.Time()
		key := strconv.Itoa(t.Year()) + "-" + twoDigits(int(t.Month()))

		inv, ok := byMonth[key]
		if !ok {
			inv = &domain.Invoice{AccountID: accountID, ReferenceMonth: key, DueDate: *r.DueDate}
			byMonth[key] = inv
			allPaid[key] = true
		}
		// expenses are negative, the invoice total is what is owed
		inv.Total = inv.Total.Sub(r.Amount)
		inv.TransactionCount++
		if inv.DueDate.Before(*r.DueDate) {
			inv.DueDate = *r.DueDate
		}
		if r.Status != domain.StatusPaid {
			allPaid[key] = false
		}
	}

	invoices := make([]domain.Invoice, 0, len(byMonth))
	for key, inv := range byMonth {
		inv.Status = "open"
		if allPaid[key] {
			inv.Status = "paid"
		}
		invoices = append(invoices, *inv)
	}
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].ReferenceMonth < invoices[j].ReferenceMonth
	})
	return invoices
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
