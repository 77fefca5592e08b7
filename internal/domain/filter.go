package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transaction query
// ============================================================

// Period selects the date window of a query.
type Period string

const (
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// FilterAll is the wildcard value for Kind and Status filters.
const FilterAll = "all"

// TransactionFilter narrows the transaction listing.
type TransactionFilter struct {
	Period     Period `json:"period"`
	Month      int    `json:"month,omitempty"`
	Year       int    `json:"year,omitempty"`
	AccountID  *int64 `json:"account_id,omitempty"`
	CategoryID *int64 `json:"category_id,omitempty"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
}

// Validate checks enumerations and month/year ranges.
func (f *TransactionFilter) Validate() error {
	switch f.Period {
	case "", PeriodAll, PeriodMonth, PeriodYear:
	default:
		return &ErrValidation{Field: "period", Message: fmt.Sprintf("período inválido '%s'", f.Period)}
	}
	if f.Period == PeriodMonth && f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		return &ErrValidation{Field: "month", Message: "deve estar entre 1 e 12"}
	}
	if f.Year < 0 {
		return &ErrValidation{Field: "year", Message: "ano inválido"}
	}
	if f.Kind != "" && f.Kind != FilterAll && !TransactionKind(f.Kind).Valid() {
		return &ErrValidation{Field: "kind", Message: fmt.Sprintf("tipo inválido '%s'", f.Kind)}
	}
	if f.Status != "" && f.Status != FilterAll && !TransactionStatus(f.Status).Valid() {
		return &ErrValidation{Field: "status", Message: fmt.Sprintf("status inválido '%s'", f.Status)}
	}
	return nil
}

// Bounds returns the half-open [start, end) window of the period. ok is
// false when no date restriction applies (period all, or month/year
// missing).
func (f *TransactionFilter) Bounds() (start, end Date, ok bool) {
	switch f.Period {
	case PeriodMonth:
		if f.Month == 0 || f.Year == 0 {
			return Date{}, Date{}, false
		}
		s := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		return NewDate(s), NewDate(s.AddDate(0, 1, 0)), true
	case PeriodYear:
		if f.Year == 0 {
			return Date{}, Date{}, false
		}
		s := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return NewDate(s), NewDate(s.AddDate(1, 0, 0)), true
	}
	return Date{}, Date{}, false
}

// TransactionRow is a transaction joined with its reference names.
// Missing reference rows leave the names empty.
type TransactionRow struct {
	Transaction
	AccountName         string      `json:"account_name"`
	AccountKind         AccountKind `json:"account_kind"`
	CategoryName        string      `json:"category_name"`
	PayeeName           string      `json:"payee_name"`
	PaymentMethodName   string      `json:"payment_method_name"`
	RecurrenceFrequency string      `json:"recurrence_frequency,omitempty"`
}

// EffectiveDate is the due date for credit card rows that have one and the
// event date otherwise.
func (r *TransactionRow) EffectiveDate() Date {
	if r.AccountKind == AccountCreditCard && r.DueDate != nil && !r.DueDate.IsZero() {
		return *r.DueDate
	}
	return r.Date
}

// TransactionView is a row shaped for display.
type TransactionView struct {
	ID                  int64             `json:"id"`
	Date                Date              `json:"date"`
	OriginalDate        Date              `json:"original_date"`
	DueDate             *Date             `json:"due_date,omitempty"`
	Amount              decimal.Decimal   `json:"amount"`
	SignedAmount        decimal.Decimal   `json:"signed_amount"`
	AmountDisplay       string            `json:"amount_display,omitempty"`
	Kind                TransactionKind   `json:"kind"`
	Description         string            `json:"description"`
	Status              TransactionStatus `json:"status"`
	AccountID           *int64            `json:"account_id,omitempty"`
	AccountName         string            `json:"account_name"`
	AccountKind         AccountKind       `json:"account_kind,omitempty"`
	CategoryID          *int64            `json:"category_id,omitempty"`
	CategoryName        string            `json:"category_name"`
	PayeeID             *int64            `json:"payee_id,omitempty"`
	PayeeName           string            `json:"payee_name"`
	PaymentMethodID     *int64            `json:"payment_method_id,omitempty"`
	PaymentMethodName   string            `json:"payment_method_name"`
	Installment         bool              `json:"installment"`
	RecurrenceFrequency string            `json:"recurrence_frequency,omitempty"`
}

// QueryResult is the filtered listing plus its period aggregates.
type QueryResult struct {
	Success      bool              `json:"success"`
	Transactions []TransactionView `json:"transactions"`
	TotalIncome  decimal.Decimal   `json:"total_income"`
	TotalExpense decimal.Decimal   `json:"total_expense"`
	Balance      decimal.Decimal   `json:"balance"`
}

// ============================================================
// Card invoices
// ============================================================

// Invoice is the monthly projection of a credit card's transactions,
// grouped by due date month.
type Invoice struct {
	AccountID        int64           `json:"account_id"`
	ReferenceMonth   string          `json:"reference_month"` // "2024-04"
	DueDate          Date            `json:"due_date"`
	Total            decimal.Decimal `json:"total"`
	TransactionCount int             `json:"transaction_count"`
	Status           string          `json:"status"` // open, paid
}
