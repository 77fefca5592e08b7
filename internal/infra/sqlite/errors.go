package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// translate maps driver errors onto the domain error taxonomy. Unique
// violations become *domain.ErrConflict, foreign key violations
// *domain.ErrReference, anything else *domain.ErrStorage.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &domain.ErrConflict{Message: uniqueMessage(se.Error())}
		case sqlite3.ErrConstraintForeignKey:
			// the driver does not name the offending column
			return &domain.ErrReference{}
		}
	}
	return &domain.ErrStorage{Op: op, Err: err}
}

// uniqueMessage builds the user-facing message for a UNIQUE violation.
// The driver reports "UNIQUE constraint failed: <table>.<column>".
func uniqueMessage(msg string) string {
	table := ""
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		target := msg[i+2:]
		if j := strings.Index(target, "."); j > 0 {
			table = target[:j]
		}
	}
	switch table {
	case "accounts":
		return "Já existe uma conta com esse nome."
	case "categories":
		return "Já existe uma categoria com esse nome."
	case "payees":
		return "Já existe um responsável com esse nome."
	case "payment_methods":
		return "Já existe uma forma de pagamento com esse nome."
	}
	return "Registro duplicado."
}

// isRetryable reports whether SQLite asked us to try again later.
func isRetryable(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	var st *domain.ErrStorage
	if errors.As(err, &st) {
		return isRetryable(st.Err)
	}
	return false
}

// isDomainError reports errors caused by the request rather than by the
// database. They do not count against the circuit breaker.
func isDomainError(err error) bool {
	var (
		v  *domain.ErrValidation
		nf *domain.ErrNotFound
		rf *domain.ErrReference
		cf *domain.ErrConflict
	)
	switch {
	case errors.As(err, &v), errors.As(err, &nf), errors.As(err, &rf), errors.As(err, &cf):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullDate(d *domain.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func ptrDate(d domain.Date) *domain.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}
