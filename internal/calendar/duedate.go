package calendar

import (
	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// DueDate computes the invoice due date a card purchase belongs to.
//
// A purchase made after the closing day falls on next month's statement.
// When the due day is numerically before the closing day the invoice is
// payable in the month after the closing month: the due day is first
// clamped in the closing month and that date is then moved one month on.
// The result is rolled forward to the next business day.
func DueDate(purchase domain.Date, closingDay, dueDay int) domain.Date {
	t := purchase.Time()
	year, month := t.Year(), t.Month()
	if t.Day() > closingDay {
		month++
	}

	closing := DateWithDay(year, month, closingDay)
	ct := closing.Time()
	due := DateWithDay(ct.Year(), ct.Month(), dueDay)
	if dueDay < closingDay {
		due = AddMonths(due, 1)
	}

	return NextBusinessDay(due)
}

// DueDateFor returns the due date for a purchase on account, or nil when
// the account is not a credit card with configured billing terms.
func DueDateFor(account *domain.Account, purchase domain.Date) *domain.Date {
	closing, due, ok := account.BillingTerms()
	if !ok {
		return nil
	}
	d := DueDate(purchase, closing, due)
	return &d
}
