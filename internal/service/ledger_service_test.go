package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/infra/cache"
	"github.com/boddenberg/finance-ledger-go/internal/infra/observability"
	"github.com/boddenberg/finance-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/finance-ledger-go/internal/infra/sqlite"
)

type fixture struct {
	svc     *LedgerService
	store   *sqlite.Store
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Options{
		Path:       filepath.Join(t.TempDir(), "ledger.db"),
		Resilience: resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 1},
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := cache.New[any](time.Minute)
	t.Cleanup(c.Close)

	m := observability.NewMetrics()
	svc := NewLedgerService(store, c, m, zap.NewNop())
	svc.newSubmissionID = func() string { return "sub-test" }
	return &fixture{svc: svc, store: store, metrics: m}
}

func intPtr(v int) *int { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) domain.Date { return domain.MustParseDate(s) }

func (f *fixture) card(t *testing.T, closing, due int) *domain.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(context.Background(), &domain.NewAccount{
		Name: "Cartão", Kind: domain.AccountCreditCard,
		ClosingDay: intPtr(closing), DueDay: intPtr(due),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) checking(t *testing.T, name, balance string) *domain.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(context.Background(), &domain.NewAccount{
		Name: name, Kind: domain.AccountChecking, InitialBalance: dec(balance),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) submit(t *testing.T, req *domain.TransactionRequest) *domain.SubmissionResult {
	t.Helper()
	res, err := f.svc.SubmitTransaction(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Success)
	return res
}

// ============================================================
// Submission
// ============================================================

func TestSubmit_PlainExpense(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("150.25"), Date: date("2024-03-10"), Description: " Mercado ",
		AccountID: &acc.ID, Kind: domain.KindExpense,
	})

	assert.Equal(t, "Transação cadastrada com sucesso!", res.Message)
	assert.Equal(t, "sub-test", res.SubmissionID)
	require.Len(t, res.TransactionIDs, 1)
	assert.Nil(t, res.InstallmentPlanID)
	assert.Nil(t, res.RecurrenceID)

	tr, err := f.store.GetTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Mercado", tr.Description)
	assert.True(t, tr.Amount.Equal(dec("-150.25")))
	assert.Equal(t, domain.StatusPending, tr.Status)
	assert.Nil(t, tr.DueDate, "checking accounts have no due date")

	assert.True(t, f.balance(t, acc.ID).Equal(dec("849.75")))
}

func TestSubmit_PlainCardPurchaseGetsDueDate(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("40"), Date: date("2024-03-05"), Description: "Farmácia",
		AccountID: &card.ID, Kind: domain.KindExpense,
	})

	tr, err := f.store.GetTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	require.NotNil(t, tr.DueDate)
	assert.Equal(t, "2024-03-20", tr.DueDate.String())
	assert.True(t, f.balance(t, card.ID).Equal(dec("-40")))
}

func TestSubmit_WithoutAccountTouchesNoBalance(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "10")

	f.submit(t, &domain.TransactionRequest{
		Amount: dec("5"), Date: date("2024-03-10"), Kind: domain.KindIncome,
	})
	assert.True(t, f.balance(t, acc.ID).Equal(dec("10")))
}

func TestSubmit_InstallmentsOnCard(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("300"), Date: date("2024-03-15"), Description: "TV",
		AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 3},
	})

	assert.Equal(t, "Transação cadastrada com sucesso! Parcelamento em 3x criado.", res.Message)
	require.Len(t, res.TransactionIDs, 3)
	require.NotNil(t, res.InstallmentPlanID)

	plan, err := f.store.GetInstallmentPlan(context.Background(), *res.InstallmentPlanID)
	require.NoError(t, err)
	assert.True(t, plan.TotalAmount.Equal(dec("300")))
	assert.Equal(t, 3, plan.InstallmentCount)
	require.NotNil(t, plan.DueDate)
	assert.Equal(t, "2024-04-22", plan.DueDate.String())

	wantDates := []string{"2024-03-15", "2024-04-15", "2024-05-15"}
	wantDue := []string{"2024-04-22", "2024-05-20", "2024-06-20"}
	for i, id := range res.TransactionIDs {
		tr, err := f.store.GetTransaction(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, wantDates[i], tr.Date.String())
		require.NotNil(t, tr.DueDate)
		assert.Equal(t, wantDue[i], tr.DueDate.String())
		assert.True(t, tr.Amount.Equal(dec("-100")))
		assert.Equal(t, *res.InstallmentPlanID, *tr.InstallmentPlanID)
		assert.Equal(t, domain.StatusPending, tr.Status)
	}

	first, err := f.store.GetTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "TV (1/3)", first.Description)

	assert.True(t, f.balance(t, card.ID).IsZero(), "pending installments stay off the balance")
}

func TestSubmit_InstallmentRemainderGoesToFirst(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-15"), Description: "Curso",
		AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 3},
	})

	want := []string{"-33.34", "-33.33", "-33.33"}
	sum := decimal.Zero
	for i, id := range res.TransactionIDs {
		tr, err := f.store.GetTransaction(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, tr.Amount.Equal(dec(want[i])), "installment %d: %s", i+1, tr.Amount)
		sum = sum.Add(tr.Amount)
	}
	assert.True(t, sum.Equal(dec("-100")))
}

func TestSubmit_SingleInstallmentIsPlain(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "100")

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("10"), Date: date("2024-03-15"), Description: "Lanche",
		AccountID: &acc.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 1},
	})

	assert.Len(t, res.TransactionIDs, 1)
	assert.Nil(t, res.InstallmentPlanID)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("90")))
}

func TestSubmit_MonthlyRecurrence(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-01-31"), Description: "Aluguel",
		AccountID: &acc.ID, Kind: domain.KindExpense,
		Recurrence: &domain.RecurrenceChoice{Frequency: domain.FrequencyMonthly, Occurrences: 3},
	})

	assert.Equal(t, "Transação cadastrada com sucesso! Criadas 3 transações com recorrência mensal por 3 meses.", res.Message)
	require.Len(t, res.TransactionIDs, 3)
	require.NotNil(t, res.RecurrenceID)

	rec, err := f.store.GetRecurrenceByTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, *res.RecurrenceID, rec.ID)
	assert.Equal(t, domain.FrequencyMonthly, rec.Frequency)
	assert.Equal(t, "2024-01-31", rec.StartDate.String())
	assert.Equal(t, "2024-03-31", rec.EndDate.String())
	assert.Equal(t, "2024-02-29", rec.NextExecution.String())
	assert.Equal(t, 3, rec.OccurrenceCount)
	assert.True(t, rec.UseFixedAmount)

	wantDates := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	wantDesc := []string{"Aluguel", "Aluguel (2/3)", "Aluguel (3/3)"}
	for i, id := range res.TransactionIDs {
		tr, err := f.store.GetTransaction(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, wantDates[i], tr.Date.String())
		assert.Equal(t, wantDesc[i], tr.Description)
	}

	assert.True(t, f.balance(t, acc.ID).Equal(dec("700")))
}

func TestSubmit_MonthlyRecurrenceOnCard(t *testing.T) {
	f := newFixture(t)
	acc := f.card(t, 10, 20)

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-15"), Description: "Streaming",
		AccountID: &acc.ID, Kind: domain.KindExpense,
		Recurrence: &domain.RecurrenceChoice{Frequency: domain.FrequencyMonthly, Occurrences: 3},
	})
	require.Len(t, res.TransactionIDs, 3)

	// 2024-04-20 is a Saturday
	wantDates := []string{"2024-03-15", "2024-04-15", "2024-05-15"}
	wantDue := []string{"2024-04-22", "2024-05-20", "2024-06-20"}
	for i, id := range res.TransactionIDs {
		tr, err := f.store.GetTransaction(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, wantDates[i], tr.Date.String())
		require.NotNil(t, tr.DueDate)
		assert.Equal(t, wantDue[i], tr.DueDate.String())
		assert.Equal(t, acc.ID, *tr.AccountID)
	}

	assert.True(t, f.balance(t, acc.ID).Equal(dec("-300")))
}

func TestSubmit_UnknownFrequencyFallsBackToMonthly(t *testing.T) {
	f := newFixture(t)

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("10"), Date: date("2024-01-10"), Description: "Assinatura", Kind: domain.KindExpense,
		Recurrence: &domain.RecurrenceChoice{Frequency: "daily", Occurrences: 2},
	})

	rec, err := f.store.GetRecurrenceByTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyMonthly, rec.Frequency)
	assert.Equal(t, "2024-02-10", rec.EndDate.String())
}

func TestSubmit_ValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "100")

	cases := map[string]*domain.TransactionRequest{
		"zero amount":  {Amount: dec("0"), Date: date("2024-01-01"), Kind: domain.KindExpense, AccountID: &acc.ID},
		"missing date": {Amount: dec("1"), Kind: domain.KindExpense, AccountID: &acc.ID},
		"bad kind":     {Amount: dec("1"), Date: date("2024-01-01"), Kind: "transfer", AccountID: &acc.ID},
		"both branches": {
			Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindExpense, AccountID: &acc.ID,
			Installments: &domain.InstallmentChoice{Count: 2},
			Recurrence:   &domain.RecurrenceChoice{Frequency: domain.FrequencyMonthly, Occurrences: 2},
		},
		"too many installments": {
			Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindExpense, AccountID: &acc.ID,
			Installments: &domain.InstallmentChoice{Count: MaxInstallments + 1},
		},
		"zero occurrences": {
			Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindExpense, AccountID: &acc.ID,
			Recurrence: &domain.RecurrenceChoice{Frequency: domain.FrequencyMonthly},
		},
		"installments on checking": {
			Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindExpense, AccountID: &acc.ID,
			Installments: &domain.InstallmentChoice{Count: 2},
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.SubmitTransaction(context.Background(), req)
			var ve *domain.ErrValidation
			require.ErrorAs(t, err, &ve)
		})
	}

	res, err := f.svc.QueryTransactions(context.Background(), &domain.TransactionFilter{Period: domain.PeriodAll})
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("100")))
}

func TestSubmit_UnknownReferences(t *testing.T) {
	f := newFixture(t)
	missing := int64(999)

	_, err := f.svc.SubmitTransaction(context.Background(), &domain.TransactionRequest{
		Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindExpense, AccountID: &missing,
	})
	var re *domain.ErrReference
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "account", re.Resource)

	_, err = f.svc.SubmitTransaction(context.Background(), &domain.TransactionRequest{
		Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindExpense, PayeeID: &missing,
	})
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "payee", re.Resource)
}

func TestSubmit_RollsBackSeriesOnFailure(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "100")
	missing := int64(42)

	_, err := f.svc.SubmitTransaction(context.Background(), &domain.TransactionRequest{
		Amount: dec("10"), Date: date("2024-01-01"), Kind: domain.KindExpense,
		AccountID: &acc.ID, CategoryID: &missing,
		Recurrence: &domain.RecurrenceChoice{Frequency: domain.FrequencyWeekly, Occurrences: 4},
	})
	require.Error(t, err)

	res, err := f.svc.QueryTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("100")))
}

func TestSubmit_CountsCreatedRows(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)

	f.submit(t, &domain.TransactionRequest{
		Amount: dec("90"), Date: date("2024-03-15"), Description: "Fone",
		AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 3},
	})

	snap := f.metrics.GetLedgerSnapshot()
	assert.Equal(t, int64(3), snap.TransactionsCreated[observability.BranchInstallment])
}

// ============================================================
// Edit and delete
// ============================================================

func TestEdit_AmountChangeMovesBalanceByDifference(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-10"), Description: "Luz",
		AccountID: &acc.ID, Kind: domain.KindExpense,
	})
	id := res.TransactionIDs[0]

	out, err := f.svc.EditTransaction(context.Background(), id, &domain.TransactionUpdate{
		Amount: dec("250"), Date: date("2024-03-10"), Description: "Luz",
		AccountID: &acc.ID, Kind: domain.KindExpense,
	})
	require.NoError(t, err)
	assert.Equal(t, "Transação atualizada com sucesso!", out.Message)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("750")))
}

func TestEdit_MoveToAnotherAccount(t *testing.T) {
	f := newFixture(t)
	a := f.checking(t, "A", "1000")
	b := f.checking(t, "B", "500")
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &a.ID, Kind: domain.KindExpense,
	})

	_, err := f.svc.EditTransaction(context.Background(), res.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &b.ID, Kind: domain.KindIncome,
	})
	require.NoError(t, err)

	assert.True(t, f.balance(t, a.ID).Equal(dec("1000")))
	assert.True(t, f.balance(t, b.ID).Equal(dec("600")))
}

func TestEdit_CancelAndRestore(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &acc.ID, Kind: domain.KindExpense,
	})
	id := res.TransactionIDs[0]
	upd := &domain.TransactionUpdate{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &acc.ID, Kind: domain.KindExpense,
		Status: domain.StatusCancelled,
	}

	_, err := f.svc.EditTransaction(context.Background(), id, upd)
	require.NoError(t, err)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("1000")))

	upd.Status = domain.StatusPaid
	_, err = f.svc.EditTransaction(context.Background(), id, upd)
	require.NoError(t, err)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("900")))

	// empty status keeps the stored one
	upd.Status = ""
	_, err = f.svc.EditTransaction(context.Background(), id, upd)
	require.NoError(t, err)
	tr, err := f.svc.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, tr.Status)
	assert.True(t, tr.Amount.Equal(dec("100")))
	assert.True(t, tr.SignedAmount.Equal(dec("-100")))
}

func TestEdit_PayingAnInstallmentAppliesIt(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("300"), Date: date("2024-03-15"), Description: "TV",
		AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 3},
	})

	_, err := f.svc.EditTransaction(context.Background(), res.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("100"), Date: date("2024-03-15"), Description: "TV (1/3)",
		AccountID: &card.ID, Kind: domain.KindExpense, Status: domain.StatusPaid,
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t, card.ID).Equal(dec("-100")))

	tr, err := f.store.GetTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	require.NotNil(t, tr.InstallmentPlanID)
	assert.Equal(t, "2024-04-22", tr.DueDate.String())
}

func TestEdit_DateChangeRecomputesDueDate(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("40"), Date: date("2024-03-05"), AccountID: &card.ID, Kind: domain.KindExpense,
	})

	_, err := f.svc.EditTransaction(context.Background(), res.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("40"), Date: date("2024-04-15"), AccountID: &card.ID, Kind: domain.KindExpense,
	})
	require.NoError(t, err)

	tr, err := f.store.GetTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", tr.DueDate.String())
}

func TestEdit_Errors(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "0")

	_, err := f.svc.EditTransaction(context.Background(), 404, &domain.TransactionUpdate{
		Amount: dec("1"), Date: date("2024-01-01"), Kind: domain.KindIncome,
	})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("1"), Date: date("2024-01-01"), AccountID: &acc.ID, Kind: domain.KindIncome,
	})
	missing := int64(77)
	_, err = f.svc.EditTransaction(context.Background(), res.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("1"), Date: date("2024-01-01"), AccountID: &missing, Kind: domain.KindIncome,
	})
	var re *domain.ErrReference
	require.ErrorAs(t, err, &re)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("1")))

	_, err = f.svc.EditTransaction(context.Background(), res.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("-1"), Date: date("2024-01-01"), Kind: domain.KindIncome,
	})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
}

func TestDelete_ReversesBalance(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &acc.ID, Kind: domain.KindExpense,
	})

	out, err := f.svc.DeleteTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Transação excluída com sucesso!", out.Message)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("1000")))

	_, err = f.svc.DeleteTransaction(context.Background(), res.TransactionIDs[0])
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestDelete_CancelledRowLeavesBalance(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &acc.ID, Kind: domain.KindExpense,
	})
	_, err := f.svc.EditTransaction(context.Background(), res.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("100"), Date: date("2024-03-10"), AccountID: &acc.ID, Kind: domain.KindExpense,
		Status: domain.StatusCancelled,
	})
	require.NoError(t, err)

	_, err = f.svc.DeleteTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	assert.True(t, f.balance(t, acc.ID).Equal(dec("1000")))
}

func TestDelete_AnchorDropsRecurrenceKeepsSiblings(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "1000")
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("100"), Date: date("2024-01-10"), Description: "Academia",
		AccountID: &acc.ID, Kind: domain.KindExpense,
		Recurrence: &domain.RecurrenceChoice{Frequency: domain.FrequencyMonthly, Occurrences: 3},
	})
	anchor := res.TransactionIDs[0]

	_, err := f.svc.DeleteTransaction(context.Background(), anchor)
	require.NoError(t, err)

	_, err = f.store.GetRecurrenceByTransaction(context.Background(), anchor)
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	for _, id := range res.TransactionIDs[1:] {
		_, err := f.store.GetTransaction(context.Background(), id)
		require.NoError(t, err)
	}
	assert.True(t, f.balance(t, acc.ID).Equal(dec("800")))
}

func TestDelete_LastInstallmentDropsPlan(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)
	res := f.submit(t, &domain.TransactionRequest{
		Amount: dec("200"), Date: date("2024-03-15"), AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 2},
	})
	planID := *res.InstallmentPlanID

	_, err := f.svc.DeleteTransaction(context.Background(), res.TransactionIDs[0])
	require.NoError(t, err)
	_, err = f.store.GetInstallmentPlan(context.Background(), planID)
	require.NoError(t, err, "plan survives while installments remain")

	_, err = f.svc.DeleteTransaction(context.Background(), res.TransactionIDs[1])
	require.NoError(t, err)
	_, err = f.store.GetInstallmentPlan(context.Background(), planID)
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	assert.True(t, f.balance(t, card.ID).IsZero())
}

// ============================================================
// Queries
// ============================================================

func TestQuery_CardRowsFollowDueDate(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)
	acc := f.checking(t, "Conta", "0")

	f.submit(t, &domain.TransactionRequest{
		Amount: dec("50"), Date: date("2024-01-30"), Description: "Jantar",
		AccountID: &card.ID, Kind: domain.KindExpense,
	})
	f.submit(t, &domain.TransactionRequest{
		Amount: dec("1000"), Date: date("2024-02-05"), Description: "Salário",
		AccountID: &acc.ID, Kind: domain.KindIncome,
	})
	f.submit(t, &domain.TransactionRequest{
		Amount: dec("30"), Date: date("2024-01-30"), Description: "Padaria",
		AccountID: &acc.ID, Kind: domain.KindExpense,
	})

	feb, err := f.svc.QueryTransactions(context.Background(), &domain.TransactionFilter{
		Period: domain.PeriodMonth, Month: 2, Year: 2024,
	})
	require.NoError(t, err)
	require.Len(t, feb.Transactions, 2)
	assert.True(t, feb.TotalIncome.Equal(dec("1000")))
	assert.True(t, feb.TotalExpense.Equal(dec("50")))
	assert.True(t, feb.Balance.Equal(dec("950")))

	var card0 *domain.TransactionView
	for i := range feb.Transactions {
		if feb.Transactions[i].Description == "Jantar" {
			card0 = &feb.Transactions[i]
		}
	}
	require.NotNil(t, card0)
	assert.Equal(t, "2024-02-20", card0.Date.String())
	assert.Equal(t, "2024-01-30", card0.OriginalDate.String())
	assert.True(t, card0.Amount.Equal(dec("50")))
	assert.True(t, card0.SignedAmount.Equal(dec("-50")))
	assert.Equal(t, "Cartão", card0.AccountName)

	jan, err := f.svc.QueryTransactions(context.Background(), &domain.TransactionFilter{
		Period: domain.PeriodMonth, Month: 1, Year: 2024,
	})
	require.NoError(t, err)
	require.Len(t, jan.Transactions, 1)
	assert.Equal(t, "Padaria", jan.Transactions[0].Description)
	assert.True(t, jan.Balance.Equal(dec("-30")))
}

func TestQuery_KindFilterAndInstallmentFlag(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)

	f.submit(t, &domain.TransactionRequest{
		Amount: dec("300"), Date: date("2024-03-15"), Description: "TV",
		AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 3},
	})
	f.submit(t, &domain.TransactionRequest{
		Amount: dec("20"), Date: date("2024-03-15"), Description: "Estorno",
		AccountID: &card.ID, Kind: domain.KindIncome,
	})

	res, err := f.svc.QueryTransactions(context.Background(), &domain.TransactionFilter{
		Period: domain.PeriodYear, Year: 2024, Kind: string(domain.KindExpense),
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	for _, v := range res.Transactions {
		assert.True(t, v.Installment)
	}
	assert.True(t, res.TotalIncome.IsZero())
	assert.True(t, res.TotalExpense.Equal(dec("300")))
}

func TestQuery_InvalidFilter(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.QueryTransactions(context.Background(), &domain.TransactionFilter{
		Period: domain.PeriodMonth, Month: 13, Year: 2024,
	})
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
}

func TestListInvoices(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10, 20)

	f.submit(t, &domain.TransactionRequest{
		Amount: dec("300"), Date: date("2024-03-15"), Description: "TV",
		AccountID: &card.ID, Kind: domain.KindExpense,
		Installments: &domain.InstallmentChoice{Count: 3},
	})
	plain := f.submit(t, &domain.TransactionRequest{
		Amount: dec("40"), Date: date("2024-03-05"), Description: "Farmácia",
		AccountID: &card.ID, Kind: domain.KindExpense,
	})
	_, err := f.svc.EditTransaction(context.Background(), plain.TransactionIDs[0], &domain.TransactionUpdate{
		Amount: dec("40"), Date: date("2024-03-05"), Description: "Farmácia",
		AccountID: &card.ID, Kind: domain.KindExpense, Status: domain.StatusPaid,
	})
	require.NoError(t, err)

	invoices, err := f.svc.ListInvoices(context.Background(), card.ID, 2024)
	require.NoError(t, err)
	require.Len(t, invoices, 4)

	assert.Equal(t, "2024-03", invoices[0].ReferenceMonth)
	assert.Equal(t, "2024-03-20", invoices[0].DueDate.String())
	assert.True(t, invoices[0].Total.Equal(dec("40")))
	assert.Equal(t, "paid", invoices[0].Status)

	assert.Equal(t, "2024-04", invoices[1].ReferenceMonth)
	assert.Equal(t, "2024-04-22", invoices[1].DueDate.String())
	assert.True(t, invoices[1].Total.Equal(dec("100")))
	assert.Equal(t, 1, invoices[1].TransactionCount)
	assert.Equal(t, "open", invoices[1].Status)

	assert.Equal(t, "2024-06", invoices[3].ReferenceMonth)
}

func TestListInvoices_RequiresCard(t *testing.T) {
	f := newFixture(t)
	acc := f.checking(t, "Conta", "0")

	_, err := f.svc.ListInvoices(context.Background(), acc.ID, 2024)
	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)

	_, err = f.svc.ListInvoices(context.Background(), 999, 2024)
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

// ============================================================
// Reference data
// ============================================================

func TestReferenceData_CachedUntilWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCategory(ctx, "Moradia")
	require.NoError(t, err)
	acc := f.checking(t, "Conta", "100")

	data, err := f.svc.GetReferenceData(ctx)
	require.NoError(t, err)
	assert.Len(t, data.Categories, 1)
	assert.Len(t, data.Accounts, 1)
	assert.NotNil(t, data.Payees)
	assert.Empty(t, data.PaymentMethods)

	_, err = f.svc.GetReferenceData(ctx)
	require.NoError(t, err)
	snap := f.metrics.GetLedgerSnapshot()
	assert.InDelta(t, 0.5, snap.CacheHitRate, 0.001)

	// a balance write invalidates the cached account list
	f.submit(t, &domain.TransactionRequest{
		Amount: dec("10"), Date: date("2024-01-01"), AccountID: &acc.ID, Kind: domain.KindIncome,
	})
	accounts, err := f.svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].Balance.Equal(dec("110")))

	_, err = f.svc.CreateCategory(ctx, "Lazer")
	require.NoError(t, err)
	cats, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestReferenceData_DuplicateNameConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePayee(context.Background(), "Ana")
	require.NoError(t, err)

	_, err = f.svc.CreatePayee(context.Background(), "Ana")
	var ce *domain.ErrConflict
	require.True(t, errors.As(err, &ce))
}
