package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/infra/observability"
	"github.com/boddenberg/finance-ledger-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// svc may be nil, in which case only the operational endpoints answer.
func NewRouter(svc *service.LedgerService, metrics *observability.Metrics, money MoneyFormat, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))
		r.Get("/calendar/due-date", dueDateHandler())

		if svc == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "ledger service unavailable")
			}))
			return
		}

		// =============================================
		// Cadastros
		// =============================================
		r.Get("/reference", referenceDataHandler(svc, logger))
		r.Get("/accounts", listAccountsHandler(svc, logger))
		r.Post("/accounts", createAccountHandler(svc, logger))
		r.Get("/accounts/{accountId}/invoices", listInvoicesHandler(svc, logger))
		r.Get("/categories", listCategoriesHandler(svc, logger))
		r.Post("/categories", createNamedHandler(svc.CreateCategory, "categories", logger))
		r.Get("/payees", listPayeesHandler(svc, logger))
		r.Post("/payees", createNamedHandler(svc.CreatePayee, "payees", logger))
		r.Get("/payment-methods", listPaymentMethodsHandler(svc, logger))
		r.Post("/payment-methods", createNamedHandler(svc.CreatePaymentMethod, "payment-methods", logger))

		// =============================================
		// Transações
		// =============================================
		r.Post("/transactions", submitTransactionHandler(svc, logger))
		r.Get("/transactions", queryTransactionsHandler(svc, money, logger))
		r.Get("/transactions/{transactionId}", getTransactionHandler(svc, logger))
		r.Put("/transactions/{transactionId}", editTransactionHandler(svc, logger))
		r.Delete("/transactions/{transactionId}", deleteTransactionHandler(svc, logger))
	})

	return r
}
