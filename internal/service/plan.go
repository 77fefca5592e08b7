package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/infra/observability"
)

// Upper bounds on fan-out per submission.
const (
	MaxInstallments = 72
	MaxOccurrences  = 520
)

// submissionPlan is the classified shape of a request: exactly one of
// plainPlan, installmentPlan or recurrencePlan.
type submissionPlan interface {
	branch() string
}

type plainPlan struct{}

type installmentPlan struct {
	count int
}

type recurrencePlan struct {
	frequency   domain.Frequency
	occurrences int
}

func (plainPlan) branch() string       { return observability.BranchPlain }
func (installmentPlan) branch() string { return observability.BranchInstallment }
func (recurrencePlan) branch() string  { return observability.BranchRecurrence }

// normalizedRequest is a validated request with the signed amount derived.
type normalizedRequest struct {
	*domain.TransactionRequest
	magnitude   decimal.Decimal
	signed      decimal.Decimal
	description string
	plan        submissionPlan
}

// classify validates req and decides its branch. It never touches storage;
// rules that depend on the account (installments need a credit card) are
// checked once the account is loaded.
func classify(req *domain.TransactionRequest) (*normalizedRequest, error) {
	if req == nil {
		return nil, &domain.ErrValidation{Field: "request", Message: "requisição vazia"}
	}
	magnitude := req.Amount.Round(2)
	if !magnitude.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "Por favor, informe um valor válido."}
	}
	if req.Date.IsZero() {
		return nil, &domain.ErrValidation{Field: "date", Message: "Por favor, informe uma data."}
	}
	if !req.Kind.Valid() {
		return nil, &domain.ErrValidation{Field: "kind", Message: "Por favor, selecione o tipo da transação (receita ou despesa)."}
	}

	n := &normalizedRequest{
		TransactionRequest: req,
		magnitude:          magnitude,
		signed:             req.Kind.Signed(magnitude),
		description:        strings.TrimSpace(req.Description),
		plan:               plainPlan{},
	}

	if req.Installments != nil && req.Recurrence != nil {
		return nil, &domain.ErrValidation{Field: "installments", Message: "parcelamento e recorrência não podem ser combinados"}
	}

	if inst := req.Installments; inst != nil {
		switch {
		case inst.Count < 1:
			return nil, &domain.ErrValidation{Field: "installments", Message: "o número de parcelas deve ser pelo menos 1"}
		case inst.Count > MaxInstallments:
			return nil, &domain.ErrValidation{Field: "installments", Message: fmt.Sprintf("no máximo %d parcelas", MaxInstallments)}
		case inst.Count >= 2:
			n.plan = installmentPlan{count: inst.Count}
		}
	}

	if rec := req.Recurrence; rec != nil {
		switch {
		case rec.Occurrences < 1:
			return nil, &domain.ErrValidation{Field: "recurrence", Message: "o número de ocorrências deve ser pelo menos 1"}
		case rec.Occurrences > MaxOccurrences:
			return nil, &domain.ErrValidation{Field: "recurrence", Message: fmt.Sprintf("no máximo %d ocorrências", MaxOccurrences)}
		}
		n.plan = recurrencePlan{frequency: rec.Frequency.Normalize(), occurrences: rec.Occurrences}
	}

	return n, nil
}

// splitInstallments divides total into count shares truncated to cents.
// The remainder cents go to the first share so the shares add up to total.
func splitInstallments(total decimal.Decimal, count int) []decimal.Decimal {
	n := decimal.NewFromInt(int64(count))
	share := total.Div(n).Truncate(2)
	remainder := total.Sub(share.Mul(n))

	shares := make([]decimal.Decimal, count)
	for i := range shares {
		shares[i] = share
	}
	shares[0] = shares[0].Add(remainder)
	return shares
}

// seriesDescription appends the "(i/n)" position marker.
func seriesDescription(description string, i, n int) string {
	return fmt.Sprintf("%s (%d/%d)", description, i, n)
}

var frequencyLabels = map[domain.Frequency][2]string{
	domain.FrequencyWeekly:     {"semanal", "semanas"},
	domain.FrequencyMonthly:    {"mensal", "meses"},
	domain.FrequencyQuarterly:  {"trimestral", "trimestres"},
	domain.FrequencySemiannual: {"semestral", "semestres"},
	domain.FrequencyYearly:     {"anual", "anos"},
}

// confirmation builds the user-facing success message for plan.
func confirmation(plan submissionPlan) string {
	msg := "Transação cadastrada com sucesso!"
	switch p := plan.(type) {
	case installmentPlan:
		msg += fmt.Sprintf(" Parcelamento em %dx criado.", p.count)
	case recurrencePlan:
		l := frequencyLabels[p.frequency]
		msg += fmt.Sprintf(" Criadas %d transações com recorrência %s por %d %s.", p.occurrences, l[0], p.occurrences, l[1])
	}
	return msg
}
