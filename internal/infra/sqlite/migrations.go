package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// ExpectedSchemaVersion is the latest schema version the application
// expects. Failing to reach it is fatal.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// Migrations are additive: columns are only ever added, never dropped or
// retyped, so databases created by older builds keep their data.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					kind TEXT NOT NULL,
					balance REAL NOT NULL DEFAULT 0,
					closing_day INTEGER,
					due_day INTEGER,
					credit_limit REAL
				)`,
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS payees (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS payment_methods (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS installment_plans (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					description TEXT,
					total_amount REAL NOT NULL,
					installment_count INTEGER NOT NULL,
					purchase_date TEXT NOT NULL,
					due_date TEXT,
					account_id INTEGER REFERENCES accounts(id),
					category_id INTEGER REFERENCES categories(id),
					payee_id INTEGER REFERENCES payees(id),
					payment_method_id INTEGER REFERENCES payment_methods(id)
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					date TEXT NOT NULL,
					amount REAL NOT NULL,
					kind TEXT NOT NULL,
					account_id INTEGER REFERENCES accounts(id),
					installment_plan_id INTEGER REFERENCES installment_plans(id),
					category_id INTEGER REFERENCES categories(id),
					payee_id INTEGER REFERENCES payees(id),
					payment_method_id INTEGER REFERENCES payment_methods(id),
					description TEXT,
					status TEXT NOT NULL DEFAULT 'pending'
				)`,
				`CREATE TABLE IF NOT EXISTS recurrences (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id INTEGER NOT NULL REFERENCES transactions(id),
					frequency TEXT NOT NULL,
					start_date TEXT NOT NULL,
					end_date TEXT,
					next_execution TEXT,
					use_fixed_amount BOOLEAN DEFAULT 1
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add due_date to transactions",
		Up: func(tx *sql.Tx) error {
			return addColumnIfMissing(tx, "transactions", "due_date", "TEXT")
		},
	},
	{
		Version:     3,
		Description: "Add occurrence_count to recurrences",
		Up: func(tx *sql.Tx) error {
			return addColumnIfMissing(tx, "recurrences", "occurrence_count", "INTEGER")
		},
	},
	{
		Version:     4,
		Description: "Index transaction lookups",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_due_date ON transactions(due_date)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_plan ON transactions(installment_plan_id)`,
				`CREATE INDEX IF NOT EXISTS idx_recurrences_transaction ON recurrences(transaction_id)`,
			)
		},
	},
}

// Migrate applies every migration above the database's user_version.
func (s *Store) Migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// PRAGMA does not accept bound parameters
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		s.logger.Info("applied migration",
			zap.Int("version", migration.Version),
			zap.String("description", migration.Description),
		)
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}
	return nil
}

// SchemaVersion returns the database's current user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// addColumnIfMissing adds column to table unless a previous deployment
// already added it by hand.
func addColumnIfMissing(tx *sql.Tx, table, column, decl string) error {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("failed to scan %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	_, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}
