package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/service"
)

// ============================================================
// Transações
// ============================================================

func submitTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.TransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.SubmitTransaction(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("transactions.created", len(result.TransactionIDs)))
		writeJSON(w, http.StatusCreated, result)
	}
}

func queryTransactionsHandler(svc *service.LedgerService, money MoneyFormat, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		f, err := parseFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.QueryTransactions(ctx, f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		for i := range result.Transactions {
			v := &result.Transactions[i]
			v.AmountDisplay = FormatMoney(v.Amount, money)
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// parseFilter reads the listing filter from the query string. Period
// defaults to all.
func parseFilter(r *http.Request) (*domain.TransactionFilter, error) {
	q := r.URL.Query()
	f := &domain.TransactionFilter{
		Period: domain.Period(q.Get("period")),
		Kind:   q.Get("kind"),
		Status: q.Get("status"),
	}
	if f.Period == "" {
		f.Period = domain.PeriodAll
	}

	var err error
	if f.Month, err = queryInt(r, "month"); err != nil {
		return nil, err
	}
	if f.Year, err = queryInt(r, "year"); err != nil {
		return nil, err
	}
	if f.AccountID, err = queryID(r, "account_id"); err != nil {
		return nil, err
	}
	if f.CategoryID, err = queryID(r, "category_id"); err != nil {
		return nil, err
	}
	return f, nil
}

func getTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{transactionId}")
		defer span.End()

		id, err := pathID(r, "transactionId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		detail, err := svc.GetTransaction(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "transaction": detail})
	}
}

func editTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{transactionId}")
		defer span.End()

		id, err := pathID(r, "transactionId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var upd domain.TransactionUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.EditTransaction(ctx, id, &upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func deleteTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionId}")
		defer span.End()

		id, err := pathID(r, "transactionId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.DeleteTransaction(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
