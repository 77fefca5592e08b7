package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/service"
)

// ============================================================
// Cadastros
// ============================================================

func referenceDataHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reference")
		defer span.End()

		data, err := svc.GetReferenceData(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// listHandler serves one reference list under key.
func listHandler[T any](name, key string, list func(context.Context) ([]T, error), logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/"+name)
		defer span.End()

		items, err := list(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, key: items})
	}
}

func listAccountsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return listHandler("accounts", "accounts", svc.ListAccounts, logger)
}

func listCategoriesHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return listHandler("categories", "categories", svc.ListCategories, logger)
}

func listPayeesHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return listHandler("payees", "payees", svc.ListPayees, logger)
}

func listPaymentMethodsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return listHandler("payment-methods", "payment_methods", svc.ListPaymentMethods, logger)
}

func createAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts")
		defer span.End()

		var req domain.NewAccount
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		acc, err := svc.CreateAccount(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, acc)
	}
}

type namedRequest struct {
	Name string `json:"name"`
}

// createNamedHandler registers a {id, name} reference row via create.
func createNamedHandler[T any](create func(context.Context, string) (*T, error), name string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/"+name)
		defer span.End()

		var req namedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := create(ctx, req.Name)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}
