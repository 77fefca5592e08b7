package domain

import "github.com/shopspring/decimal"

// ============================================================
// Accounts
// ============================================================

// AccountKind classifies an account.
type AccountKind string

const (
	AccountChecking   AccountKind = "checking"
	AccountSavings    AccountKind = "savings"
	AccountWallet     AccountKind = "wallet"
	AccountCreditCard AccountKind = "credit_card"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountChecking, AccountSavings, AccountWallet, AccountCreditCard:
		return true
	}
	return false
}

// Account is a checking/savings account, a wallet or a credit card.
// ClosingDay, DueDay and CreditLimit are only set for credit cards.
type Account struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Kind        AccountKind      `json:"kind"`
	Balance     decimal.Decimal  `json:"balance"`
	ClosingDay  *int             `json:"closing_day,omitempty"`
	DueDay      *int             `json:"due_day,omitempty"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
}

// IsCreditCard reports whether the account is a credit card.
func (a *Account) IsCreditCard() bool {
	return a != nil && a.Kind == AccountCreditCard
}

// BillingTerms returns the statement closing day and the due day. ok is
// false unless the account is a credit card with both days configured.
func (a *Account) BillingTerms() (closingDay, dueDay int, ok bool) {
	if !a.IsCreditCard() || a.ClosingDay == nil || a.DueDay == nil {
		return 0, 0, false
	}
	if *a.ClosingDay == 0 || *a.DueDay == 0 {
		return 0, 0, false
	}
	return *a.ClosingDay, *a.DueDay, true
}

// NewAccount is the payload used to register an account.
type NewAccount struct {
	Name           string           `json:"name"`
	Kind           AccountKind      `json:"kind"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	ClosingDay     *int             `json:"closing_day,omitempty"`
	DueDay         *int             `json:"due_day,omitempty"`
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
}

// Validate enforces that closing/due days are present iff the account is a
// credit card.
func (n *NewAccount) Validate() error {
	if n.Name == "" {
		return &ErrValidation{Field: "name", Message: "O nome da conta não pode ser vazio."}
	}
	if !n.Kind.Valid() {
		return &ErrValidation{Field: "kind", Message: "tipo de conta inválido"}
	}
	if n.Kind != AccountCreditCard {
		if n.ClosingDay != nil || n.DueDay != nil || n.CreditLimit != nil {
			return &ErrValidation{Field: "kind", Message: "fechamento, vencimento e limite são exclusivos de cartão de crédito"}
		}
		return nil
	}
	if n.ClosingDay == nil || n.DueDay == nil {
		return &ErrValidation{Field: "closing_day", Message: "O cartão de crédito precisa ter dia de fechamento e vencimento."}
	}
	if *n.ClosingDay < 1 || *n.ClosingDay > 31 {
		return &ErrValidation{Field: "closing_day", Message: "deve estar entre 1 e 31"}
	}
	if *n.DueDay < 1 || *n.DueDay > 31 {
		return &ErrValidation{Field: "due_day", Message: "deve estar entre 1 e 31"}
	}
	return nil
}
