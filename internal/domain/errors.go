package domain

import "fmt"

// Error types for consistent error handling across the ledger.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("Registro não encontrado (%s %s).", resourceLabel(e.Resource), e.ID)
}

// ErrValidation indicates a validation error (bad input). No storage access
// is attempted once one is raised.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrReference indicates a foreign key target (account, category...) does
// not exist. The write is aborted. ID is 0 when the driver could not say
// which row was missing.
type ErrReference struct {
	Resource string
	ID       int64
}

func (e *ErrReference) Error() string {
	if e.ID == 0 {
		return "Referência inválida: registro relacionado não existe."
	}
	return fmt.Sprintf("Referência inválida (%s %d).", resourceLabel(e.Resource), e.ID)
}

var resourceLabels = map[string]string{
	"account":          "conta",
	"category":         "categoria",
	"payee":            "responsável",
	"payment_method":   "forma de pagamento",
	"transaction":      "transação",
	"recurrence":       "recorrência",
	"installment plan": "parcelamento",
}

func resourceLabel(resource string) string {
	if l, ok := resourceLabels[resource]; ok {
		return l
	}
	return resource
}

// ErrConflict indicates a resource already exists (e.g. duplicate name).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrStorage wraps a database failure. The unit of work has been rolled back.
type ErrStorage struct {
	Op  string
	Err error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Op, e.Err)
}

func (e *ErrStorage) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline. Nothing was
// written.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("Tempo esgotado: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
