// Package service provides the business logic layer (use cases).
// LedgerService materializes submitted transactions into rows, keeps
// account balances consistent across create, edit and delete, and answers
// period queries with their aggregates.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/infra/observability"
	"github.com/boddenberg/finance-ledger-go/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService orchestrates every ledger operation over a LedgerStore.
type LedgerService struct {
	store   port.LedgerStore
	cache   port.Cache[any]
	metrics *observability.Metrics
	logger  *zap.Logger

	newSubmissionID func() string
}

// NewLedgerService creates the ledger service with its dependencies.
func NewLedgerService(store port.LedgerStore, cache port.Cache[any], metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:           store,
		cache:           cache,
		metrics:         metrics,
		logger:          logger,
		newSubmissionID: uuid.NewString,
	}
}

// Ping reports whether the store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// fail records err on the span and, for storage failures, in metrics.
func (s *LedgerService) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var st *domain.ErrStorage
	if errors.As(err, &st) {
		s.metrics.IncrStorageError(op)
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	}
	return err
}

// invalidateReference drops cached reference lists after a balance write.
func (s *LedgerService) invalidateReference() {
	if s.cache != nil {
		s.cache.Purge()
	}
}
