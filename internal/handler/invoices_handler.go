package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/calendar"
	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/service"
)

// ============================================================
// Cartão de Crédito
// ============================================================

func listInvoicesHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/invoices")
		defer span.End()

		accountID, err := pathID(r, "accountId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		year, err := queryInt(r, "year")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if year == 0 {
			year = time.Now().Year()
		}

		invoices, err := svc.ListInvoices(ctx, accountID, year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoices": invoices})
	}
}

type dueDateResponse struct {
	Success      bool        `json:"success"`
	PurchaseDate domain.Date `json:"purchase_date"`
	DueDate      domain.Date `json:"due_date"`
}

// dueDateHandler exposes the card due date calculation on its own.
func dueDateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		purchase, err := domain.ParseDate(q.Get("purchase_date"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "data de compra inválida", Field: "purchase_date"})
			return
		}
		closing, err := strconv.Atoi(q.Get("closing_day"))
		if err != nil || closing < 1 || closing > 31 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "deve estar entre 1 e 31", Field: "closing_day"})
			return
		}
		due, err := strconv.Atoi(q.Get("due_day"))
		if err != nil || due < 1 || due > 31 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "deve estar entre 1 e 31", Field: "due_day"})
			return
		}

		writeJSON(w, http.StatusOK, dueDateResponse{
			Success:      true,
			PurchaseDate: purchase,
			DueDate:      calendar.DueDate(purchase, closing, due),
		})
	}
}
