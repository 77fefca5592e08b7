package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// ============================================================
// Accounts
// ============================================================

const accountColumns = `id, name, kind, balance, closing_day, due_day, credit_limit`

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a           domain.Account
		kind        string
		closingDay  sql.NullInt64
		dueDay      sql.NullInt64
		creditLimit decimal.NullDecimal
	)
	if err := row.Scan(&a.ID, &a.Name, &kind, &a.Balance, &closingDay, &dueDay, &creditLimit); err != nil {
		return nil, err
	}
	a.Kind = domain.AccountKind(kind)
	a.ClosingDay = ptrInt(closingDay)
	a.DueDay = ptrInt(dueDay)
	if creditLimit.Valid {
		a.CreditLimit = &creditLimit.Decimal
	}
	return &a, nil
}

func listAccounts(ctx context.Context, q queryable) ([]domain.Account, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, translate("list accounts", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, translate("scan account", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list accounts", err)
	}
	return accounts, nil
}

func getAccount(ctx context.Context, q queryable, id int64) (*domain.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "account", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, translate("get account", err)
	}
	return a, nil
}

// ListAccounts returns every account ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListAccounts")
	defer span.End()
	return listAccounts(ctx, s.db)
}

// GetAccount returns one account or *domain.ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetAccount")
	defer span.End()
	return getAccount(ctx, s.db, id)
}

// CreateAccount registers an account with its initial balance.
func (s *Store) CreateAccount(ctx context.Context, req *domain.NewAccount) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateAccount")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var limit any
	if req.CreditLimit != nil {
		limit = req.CreditLimit.String()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (name, kind, balance, closing_day, due_day, credit_limit) VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(req.Name), string(req.Kind), req.InitialBalance.Round(2).String(),
		nullInt(req.ClosingDay), nullInt(req.DueDay), limit,
	)
	if err != nil {
		return nil, translate("create account", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, translate("create account", err)
	}
	return getAccount(ctx, s.db, id)
}

// ============================================================
// Categories, payees, payment methods
// ============================================================

// referenceTables maps the resource names used by the service onto tables.
var referenceTables = map[string]string{
	"category":       "categories",
	"payee":          "payees",
	"payment_method": "payment_methods",
}

type namedRow struct {
	ID   int64
	Name string
}

func listNamed(ctx context.Context, q queryable, table string) ([]namedRow, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, table))
	if err != nil {
		return nil, translate("list "+table, err)
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		var r namedRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, translate("scan "+table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list "+table, err)
	}
	return out, nil
}

func (s *Store) createNamed(ctx context.Context, table, name string) (int64, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", &domain.ErrValidation{Field: "name", Message: "O nome não pode ser vazio."}
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name) VALUES (?)`, table), name)
	if err != nil {
		return 0, "", translate("create "+table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", translate("create "+table, err)
	}
	return id, name, nil
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := listNamed(ctx, s.db, "categories")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Category{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// ListPayees returns every payee ordered by name.
func (s *Store) ListPayees(ctx context.Context) ([]domain.Payee, error) {
	rows, err := listNamed(ctx, s.db, "payees")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payee, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Payee{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// ListPaymentMethods returns every payment method ordered by name.
func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := listNamed(ctx, s.db, "payment_methods")
	if err != nil {
		return nil, err
	}
	out := make([]domain.PaymentMethod, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PaymentMethod{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	id, n, err := s.createNamed(ctx, "categories", name)
	if err != nil {
		return nil, err
	}
	return &domain.Category{ID: id, Name: n}, nil
}

func (s *Store) CreatePayee(ctx context.Context, name string) (*domain.Payee, error) {
	id, n, err := s.createNamed(ctx, "payees", name)
	if err != nil {
		return nil, err
	}
	return &domain.Payee{ID: id, Name: n}, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, name string) (*domain.PaymentMethod, error) {
	id, n, err := s.createNamed(ctx, "payment_methods", name)
	if err != nil {
		return nil, err
	}
	return &domain.PaymentMethod{ID: id, Name: n}, nil
}
