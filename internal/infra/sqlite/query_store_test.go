package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

func TestBuildQuery(t *testing.T) {
	acc := int64(3)
	q, args := buildQuery(&domain.TransactionFilter{
		Period: domain.PeriodMonth, Month: 2, Year: 2024,
		AccountID: &acc, Kind: "expense", Status: domain.FilterAll,
	})

	assert.Contains(t, q, "t.due_date >= ? AND t.due_date < ?")
	assert.Contains(t, q, "t.account_id = ?")
	assert.Contains(t, q, "t.kind = ?")
	assert.NotContains(t, q, "t.status = ?")
	assert.True(t, strings.HasSuffix(q, "ORDER BY t.date DESC, t.id DESC"))
	assert.Equal(t, []any{"2024-02-01", "2024-03-01", "2024-02-01", "2024-03-01", int64(3), "expense"}, args)

	q, args = buildQuery(&domain.TransactionFilter{Period: domain.PeriodAll})
	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)
}

func TestQueryTransactions_EffectiveDate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	card := createCard(t, s, "Cartão", 25, 5)
	checking := createChecking(t, s, "Corrente", "0")
	due := domain.MustParseDate("2024-02-05")

	cardTx := insertTx(t, s, &domain.Transaction{
		Date: domain.MustParseDate("2024-01-30"), DueDate: &due,
		Amount: decimal.NewFromInt(-80), Kind: domain.KindExpense,
		Description: "Farmácia", AccountID: &card.ID,
	})
	checkingTx := insertTx(t, s, &domain.Transaction{
		Date: domain.MustParseDate("2024-01-30"), Amount: decimal.NewFromInt(2000),
		Kind: domain.KindIncome, Description: "Salário", AccountID: &checking.ID,
	})
	// card row without a due date falls back to its event date
	insertTx(t, s, &domain.Transaction{
		Date: domain.MustParseDate("2024-01-12"), Amount: decimal.NewFromInt(-10),
		Kind: domain.KindExpense, Description: "Sem vencimento", AccountID: &card.ID,
	})

	jan, err := s.QueryTransactions(ctx, &domain.TransactionFilter{Period: domain.PeriodMonth, Month: 1, Year: 2024})
	require.NoError(t, err)
	require.Len(t, jan, 2)
	assert.Equal(t, checkingTx, jan[0].ID)
	assert.Equal(t, "Sem vencimento", jan[1].Description)

	feb, err := s.QueryTransactions(ctx, &domain.TransactionFilter{Period: domain.PeriodMonth, Month: 2, Year: 2024})
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, cardTx, feb[0].ID)
	assert.Equal(t, "Cartão", feb[0].AccountName)
	assert.Equal(t, domain.AccountCreditCard, feb[0].AccountKind)
	assert.Equal(t, "2024-02-05", feb[0].EffectiveDate().String())

	year, err := s.QueryTransactions(ctx, &domain.TransactionFilter{Period: domain.PeriodYear, Year: 2024, Kind: "income"})
	require.NoError(t, err)
	require.Len(t, year, 1)
	assert.Equal(t, "Salário", year[0].Description)
}

func TestQueryTransactions_MissingReferencesYieldEmptyNames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	insertTx(t, s, &domain.Transaction{
		Date: domain.MustParseDate("2024-05-01"), Amount: decimal.NewFromInt(-5),
		Kind: domain.KindExpense, Description: "Avulso", Status: domain.StatusPaid,
	})

	rows, err := s.QueryTransactions(ctx, &domain.TransactionFilter{Period: domain.PeriodMonth, Month: 5, Year: 2024, Status: "paid"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].AccountName)
	assert.Empty(t, rows[0].CategoryName)
	assert.Empty(t, rows[0].PayeeName)
	assert.Empty(t, rows[0].PaymentMethodName)
	assert.Equal(t, "2024-05-01", rows[0].EffectiveDate().String())

	rows, err = s.QueryTransactions(ctx, &domain.TransactionFilter{Period: domain.PeriodAll, Status: "pending"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryTransactions_CategoryFilterAndRecurrenceName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	cat, err := s.CreateCategory(ctx, "Moradia")
	require.NoError(t, err)

	id := insertTx(t, s, &domain.Transaction{
		Date: domain.MustParseDate("2024-06-05"), Amount: decimal.NewFromInt(-1500),
		Kind: domain.KindExpense, Description: "Aluguel (1/3)", CategoryID: &cat.ID,
	})
	insertTx(t, s, &domain.Transaction{
		Date: domain.MustParseDate("2024-06-06"), Amount: decimal.NewFromInt(-20),
		Kind: domain.KindExpense, Description: "Outro",
	})
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recurrences (transaction_id, frequency, start_date, end_date, next_execution, occurrence_count)
		 VALUES (?, 'monthly', '2024-06-05', '2024-08-05', '2024-07-05', 3)`, id)
	require.NoError(t, err)

	rows, err := s.QueryTransactions(ctx, &domain.TransactionFilter{Period: domain.PeriodAll, CategoryID: &cat.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Moradia", rows[0].CategoryName)
	assert.Equal(t, "monthly", rows[0].RecurrenceFrequency)
}
