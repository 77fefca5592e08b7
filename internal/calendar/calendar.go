// Package calendar resolves business days and credit card billing dates.
// Every function is pure: dates go in, dates come out.
package calendar

import (
	"time"

	"github.com/boddenberg/finance-ledger-go/internal/domain"
)

// maxBusinessDaySearch bounds the forward scan in NextBusinessDay. The
// longest run of non-business days the holiday table can produce is 4.
const maxBusinessDaySearch = 14

type monthDay struct {
	month time.Month
	day   int
}

// Fixed national holidays. Moving holidays (Carnaval, Easter, Corpus
// Christi) are not observed.
var holidays = map[monthDay]string{
	{time.January, 1}:   "Confraternização Universal",
	{time.April, 21}:    "Tiradentes",
	{time.May, 1}:       "Dia do Trabalho",
	{time.September, 7}: "Independência",
	{time.October, 12}:  "Nossa Senhora Aparecida",
	{time.November, 2}:  "Finados",
	{time.November, 15}: "Proclamação da República",
	{time.December, 25}: "Natal",
}

// IsHoliday reports whether d falls on one of the fixed national holidays.
func IsHoliday(d domain.Date) bool {
	t := d.Time()
	_, ok := holidays[monthDay{t.Month(), t.Day()}]
	return ok
}

// HolidayName returns the holiday name for d, or "" if d is not a holiday.
func HolidayName(d domain.Date) string {
	t := d.Time()
	return holidays[monthDay{t.Month(), t.Day()}]
}

// IsBusinessDay is false on weekends and fixed holidays.
func IsBusinessDay(d domain.Date) bool {
	switch d.Time().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !IsHoliday(d)
}

// NextBusinessDay returns d itself when it is a business day, otherwise the
// first business day after it. If none is found within the search bound,
// d is returned unchanged.
func NextBusinessDay(d domain.Date) domain.Date {
	cur := d
	for i := 0; i <= maxBusinessDaySearch; i++ {
		if IsBusinessDay(cur) {
			return cur
		}
		cur = AddDays(cur, 1)
	}
	return d
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateWithDay builds year-month-day, clamping day to the month's last day.
// Month overflow is normalized (month 13 is January of the next year).
func DateWithDay(year int, month time.Month, day int) domain.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := DaysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return domain.NewDate(time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC))
}

// AddDays shifts d by n days.
func AddDays(d domain.Date, n int) domain.Date {
	return domain.NewDate(d.Time().AddDate(0, 0, n))
}

// AddMonths shifts d by n calendar months, keeping the day of month where
// valid and clamping it otherwise (Jan 31 + 1 month = Feb 29 in 2024).
func AddMonths(d domain.Date, n int) domain.Date {
	t := d.Time()
	return DateWithDay(t.Year(), t.Month()+time.Month(n), t.Day())
}

// AddYears shifts d by n years with the same clamping as AddMonths.
func AddYears(d domain.Date, n int) domain.Date {
	return AddMonths(d, 12*n)
}

// Advance returns the date of occurrence i of a series starting at start.
// Unknown frequencies behave as monthly.
func Advance(start domain.Date, freq domain.Frequency, i int) domain.Date {
	switch freq.Normalize() {
	case domain.FrequencyWeekly:
		return AddDays(start, 7*i)
	case domain.FrequencyQuarterly:
		return AddMonths(start, 3*i)
	case domain.FrequencySemiannual:
		return AddMonths(start, 6*i)
	case domain.FrequencyYearly:
		return AddYears(start, i)
	default:
		return AddMonths(start, i)
	}
}
