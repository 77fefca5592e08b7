package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// Cache keys for the reference lists. They double as metric labels.
const (
	cacheAccounts       = "accounts"
	cacheCategories     = "categories"
	cachePayees         = "payees"
	cachePaymentMethods = "payment_methods"
)

// cachedList serves key from the cache, loading and storing it on a miss.
func cachedList[T any](ctx context.Context, s *LedgerService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if list, ok := cached.([]T); ok {
				s.metrics.IncrCacheHit(key)
				return list, nil
			}
		}
	}
	s.metrics.IncrCacheMiss(key)

	list, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	if s.cache != nil {
		s.cache.Set(key, list)
	}
	return list, nil
}

func (s *LedgerService) dropCached(key string) {
	if s.cache != nil {
		s.cache.Delete(key)
	}
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccounts")
	defer span.End()

	list, err := cachedList(ctx, s, cacheAccounts, s.store.ListAccounts)
	if err != nil {
		return nil, s.fail(span, "list_accounts", err)
	}
	return list, nil
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCategories")
	defer span.End()

	list, err := cachedList(ctx, s, cacheCategories, s.store.ListCategories)
	if err != nil {
		return nil, s.fail(span, "list_categories", err)
	}
	return list, nil
}

func (s *LedgerService) ListPayees(ctx context.Context) ([]domain.Payee, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListPayees")
	defer span.End()

	list, err := cachedList(ctx, s, cachePayees, s.store.ListPayees)
	if err != nil {
		return nil, s.fail(span, "list_payees", err)
	}
	return list, nil
}

func (s *LedgerService) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListPaymentMethods")
	defer span.End()

	list, err := cachedList(ctx, s, cachePaymentMethods, s.store.ListPaymentMethods)
	if err != nil {
		return nil, s.fail(span, "list_payment_methods", err)
	}
	return list, nil
}

// GetReferenceData loads the four lookup lists concurrently.
func (s *LedgerService) GetReferenceData(ctx context.Context) (*domain.ReferenceData, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetReferenceData")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("reference_data", time.Since(start)) }()

	var data domain.ReferenceData
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.ListAccounts(gCtx)
		data.Accounts = list
		return err
	})
	g.Go(func() error {
		list, err := s.ListCategories(gCtx)
		data.Categories = list
		return err
	})
	g.Go(func() error {
		list, err := s.ListPayees(gCtx)
		data.Payees = list
		return err
	})
	g.Go(func() error {
		list, err := s.ListPaymentMethods(gCtx)
		data.PaymentMethods = list
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load reference data", zap.Error(err))
		return nil, s.fail(span, "reference_data", err)
	}
	return &data, nil
}

// ============================================================
// Registration (seeding)
// ============================================================

func (s *LedgerService) CreateAccount(ctx context.Context, req *domain.NewAccount) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateAccount")
	defer span.End()

	if req == nil {
		return nil, s.fail(span, "create_account", &domain.ErrValidation{Field: "request", Message: "requisição vazia"})
	}
	if err := req.Validate(); err != nil {
		return nil, s.fail(span, "create_account", err)
	}
	acc, err := s.store.CreateAccount(ctx, req)
	if err != nil {
		return nil, s.fail(span, "create_account", err)
	}
	s.dropCached(cacheAccounts)
	return acc, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCategory")
	defer span.End()

	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return nil, s.fail(span, "create_category", err)
	}
	s.dropCached(cacheCategories)
	return c, nil
}

func (s *LedgerService) CreatePayee(ctx context.Context, name string) (*domain.Payee, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreatePayee")
	defer span.End()

	p, err := s.store.CreatePayee(ctx, name)
	if err != nil {
		return nil, s.fail(span, "create_payee", err)
	}
	s.dropCached(cachePayees)
	return p, nil
}

func (s *LedgerService) CreatePaymentMethod(ctx context.Context, name string) (*domain.PaymentMethod, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreatePaymentMethod")
	defer span.End()

	m, err := s.store.CreatePaymentMethod(ctx, name)
	if err != nil {
		return nil, s.fail(span, "create_payment_method", err)
	}
	s.dropCached(cachePaymentMethods)
	return m, nil
}
