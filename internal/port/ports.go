// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Purge()
}

// ReferenceStore reads the lookup lists owned by the registration screens.
// The Create methods exist for seeding and tests; uniqueness violations
// come back as *domain.ErrConflict.
type ReferenceStore interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListPayees(ctx context.Context) ([]domain.Payee, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)

	CreateAccount(ctx context.Context, req *domain.NewAccount) (*domain.Account, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	CreatePayee(ctx context.Context, name string) (*domain.Payee, error)
	CreatePaymentMethod(ctx context.Context, name string) (*domain.PaymentMethod, error)
}

// TransactionReader reads transactions outside a unit of work.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	GetRecurrenceByTransaction(ctx context.Context, transactionID int64) (*domain.Recurrence, error)
	GetInstallmentPlan(ctx context.Context, id int64) (*domain.InstallmentPlan, error)
	QueryTransactions(ctx context.Context, filter *domain.TransactionFilter) ([]domain.TransactionRow, error)
}

// LedgerStore is the full persistence port used by the ledger service.
type LedgerStore interface {
	ReferenceStore
	TransactionReader

	// WithinTx runs fn inside a single database transaction. fn's error
	// rolls everything back; nil commits.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	Ping(ctx context.Context) error
}

// LedgerTx is the set of writes available inside a unit of work.
type LedgerTx interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)

	// ReferenceExists checks a category, payee or payment method id.
	// resource is one of "category", "payee", "payment_method".
	ReferenceExists(ctx context.Context, resource string, id int64) (bool, error)

	InsertTransaction(ctx context.Context, t *domain.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error

	InsertInstallmentPlan(ctx context.Context, p *domain.InstallmentPlan) (int64, error)
	// DeleteInstallmentPlanIfEmpty removes the plan header once no
	// transaction references it. Reports whether a row was deleted.
	DeleteInstallmentPlanIfEmpty(ctx context.Context, planID int64) (bool, error)

	InsertRecurrence(ctx context.Context, r *domain.Recurrence) (int64, error)
	DeleteRecurrenceByTransaction(ctx context.Context, transactionID int64) (int64, error)

	// AdjustAccountBalance adds delta to the account's balance.
	AdjustAccountBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
}
