// Package sqlite is the SQLite adapter for the ledger ports. Every write
// goes through WithinTx, which runs inside one database transaction behind
// a bulkhead, a retry loop for busy/locked errors, and a circuit breaker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/finance-ledger-go/internal/port"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var tracer = otel.Tracer("sqlite")

// Options configures Open.
type Options struct {
	Path        string
	BusyTimeout time.Duration
	Resilience  resilience.Config
	Logger      *zap.Logger
}

// Store implements port.LedgerStore on a SQLite database file.
type Store struct {
	db       *sql.DB
	path     string
	cb       *gobreaker.CircuitBreaker
	cfg      resilience.Config
	bulkhead *resilience.Bulkhead
	logger   *zap.Logger
}

var _ port.LedgerStore = (*Store)(nil)

// Open opens (creating if needed) the database at opts.Path and applies
// pending migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=1",
		opts.Path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; one connection keeps WAL readers and the
	// writer from fighting over locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cfg := opts.Resilience
	cfg.Retryable = isRetryable

	s := &Store{
		db:       db,
		path:     opts.Path,
		cb:       resilience.NewCircuitBreaker("sqlite", isDomainError),
		cfg:      cfg,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		logger:   opts.Logger,
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &domain.ErrStorage{Op: "ping", Err: err}
	}
	return nil
}

// WithinTx runs fn in a single transaction. The whole attempt, fn
// included, is retried when SQLite reports busy or locked.
func (s *Store) WithinTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	ctx, span := tracer.Start(ctx, "SQLite.WithinTx")
	defer span.End()

	err := s.bulkhead.Do(ctx, func() error {
		_, cbErr := s.cb.Execute(func() (interface{}, error) {
			return nil, resilience.RetryWithBackoff(ctx, s.cfg, func() error {
				return s.runTx(ctx, fn)
			})
		})
		return cbErr
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("sqlite: circuit breaker rejected write", zap.Error(err))
		return &domain.ErrCircuitOpen{Service: "sqlite"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("sqlite: write deadline exceeded", zap.Error(err))
		return &domain.ErrTimeout{Operation: "sqlite transaction"}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin", err)
	}

	if err := fn(&ledgerTx{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("sqlite: rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return translate("commit", err)
	}
	return nil
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
