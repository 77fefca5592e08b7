package handler

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormat selects how amounts are rendered for display.
type MoneyFormat struct {
	Locale   string // BCP 47, e.g. "pt-BR"
	Currency string // ISO 4217, e.g. "BRL"
}

// FormatMoney renders amount with the locale's grouping and decimal
// separators and the currency symbol, e.g. "R$ 1.234,50". Unknown locales
// or currency codes fall back to pt-BR and BRL.
func FormatMoney(amount decimal.Decimal, f MoneyFormat) string {
	tag, err := language.Parse(f.Locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	unit, err := currency.ParseISO(f.Currency)
	if err != nil {
		unit = currency.BRL
	}

	p := message.NewPrinter(tag)
	symbol := p.Sprint(currency.Symbol(unit))
	digits := p.Sprint(number.Decimal(amount.Abs().Round(2).InexactFloat64(), number.Scale(2)))

	if amount.IsNegative() {
		return "-" + symbol + " " + digits
	}
	return symbol + " " + digits
}
