package domain

import (
	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// TransactionKind is income or expense.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Signed returns magnitude with the sign required by the kind:
// negative for expenses, positive for income.
func (k TransactionKind) Signed(magnitude decimal.Decimal) decimal.Decimal {
	abs := magnitude.Abs()
	if k == KindExpense {
		return abs.Neg()
	}
	return abs
}

// TransactionStatus tracks settlement of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusPaid      TransactionStatus = "paid"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Transaction is one persisted ledger row.
type Transaction struct {
	ID                int64             `json:"id"`
	Date              Date              `json:"date"`
	DueDate           *Date             `json:"due_date,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Kind              TransactionKind   `json:"kind"`
	Description       string            `json:"description"`
	AccountID         *int64            `json:"account_id,omitempty"`
	CategoryID        *int64            `json:"category_id,omitempty"`
	PayeeID           *int64            `json:"payee_id,omitempty"`
	PaymentMethodID   *int64            `json:"payment_method_id,omitempty"`
	Status            TransactionStatus `json:"status"`
	InstallmentPlanID *int64            `json:"installment_plan_id,omitempty"`
}

// AppliedToBalance reports whether the row's amount is currently reflected
// in its account balance. Cancelled rows never are. Installment rows are
// billed to a future invoice and only count once paid.
func (t *Transaction) AppliedToBalance() bool {
	if t.Status == StatusCancelled {
		return false
	}
	if t.InstallmentPlanID != nil {
		return t.Status == StatusPaid
	}
	return true
}

// InstallmentPlan is the header of a credit card purchase split in N parts.
type InstallmentPlan struct {
	ID               int64           `json:"id"`
	Description      string          `json:"description"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count"`
	PurchaseDate     Date            `json:"purchase_date"`
	DueDate          *Date           `json:"due_date,omitempty"`
	AccountID        *int64          `json:"account_id,omitempty"`
	CategoryID       *int64          `json:"category_id,omitempty"`
	PayeeID          *int64          `json:"payee_id,omitempty"`
	PaymentMethodID  *int64          `json:"payment_method_id,omitempty"`
}

// Frequency of a recurrence series.
type Frequency string

const (
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyYearly     Frequency = "yearly"
)

// Normalize maps unknown frequencies to monthly.
func (f Frequency) Normalize() Frequency {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencySemiannual, FrequencyYearly:
		return f
	}
	return FrequencyMonthly
}

// Recurrence describes a whole recurring series. TransactionID points at
// the first generated transaction (the anchor).
type Recurrence struct {
	ID              int64     `json:"id"`
	TransactionID   int64     `json:"transaction_id"`
	Frequency       Frequency `json:"frequency"`
	StartDate       Date      `json:"start_date"`
	EndDate         Date      `json:"end_date"`
	NextExecution   Date      `json:"next_execution"`
	OccurrenceCount int       `json:"occurrence_count"`
	UseFixedAmount  bool      `json:"use_fixed_amount"`
}

// ============================================================
// Submission
// ============================================================

// InstallmentChoice asks for a purchase to be split in Count parts.
type InstallmentChoice struct {
	Count int `json:"count"`
}

// RecurrenceChoice asks for Occurrences copies spaced by Frequency.
type RecurrenceChoice struct {
	Frequency   Frequency `json:"frequency"`
	Occurrences int       `json:"occurrences"`
}

// TransactionRequest is what the transaction form submits. Amount is the
// positive magnitude; the sign is derived from Kind.
type TransactionRequest struct {
	Amount          decimal.Decimal    `json:"amount"`
	Date            Date               `json:"date"`
	Description     string             `json:"description"`
	AccountID       *int64             `json:"account_id,omitempty"`
	CategoryID      *int64             `json:"category_id,omitempty"`
	PayeeID         *int64             `json:"payee_id,omitempty"`
	PaymentMethodID *int64             `json:"payment_method_id,omitempty"`
	Kind            TransactionKind    `json:"kind"`
	Installments    *InstallmentChoice `json:"installments,omitempty"`
	Recurrence      *RecurrenceChoice  `json:"recurrence,omitempty"`
}

// SubmissionResult is returned after a successful submission.
type SubmissionResult struct {
	Success           bool    `json:"success"`
	Message           string  `json:"message"`
	SubmissionID      string  `json:"submission_id"`
	TransactionIDs    []int64 `json:"transaction_ids"`
	InstallmentPlanID *int64  `json:"installment_plan_id,omitempty"`
	RecurrenceID      *int64  `json:"recurrence_id,omitempty"`
}

// TransactionUpdate replaces every editable field of a transaction.
type TransactionUpdate struct {
	Amount          decimal.Decimal   `json:"amount"`
	Date            Date              `json:"date"`
	Description     string            `json:"description"`
	AccountID       *int64            `json:"account_id,omitempty"`
	CategoryID      *int64            `json:"category_id,omitempty"`
	PayeeID         *int64            `json:"payee_id,omitempty"`
	PaymentMethodID *int64            `json:"payment_method_id,omitempty"`
	Kind            TransactionKind   `json:"kind"`
	Status          TransactionStatus `json:"status"`
}

// TransactionDetail is a single transaction prepared for the edit form:
// Amount is the magnitude, SignedAmount the stored value.
type TransactionDetail struct {
	Transaction
	SignedAmount decimal.Decimal `json:"signed_amount"`
}

// ActionResult is returned by edit and delete.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
}
