// README: Common money value object used across modules.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ID is an opaque entity identifier (uuid text in storage).
type ID string

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, cur string) Money {
	return Money{Amount: amount, Currency: cur}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Format renders the amount for display in the given locale, rounded to two places.
// Unknown currency codes fall back to "<amount> <code>".
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	rounded, _ := m.Amount.Round(2).Float64()
	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		return p.Sprintf("%.2f %s", rounded, m.Currency)
	}
	return p.Sprint(currency.Symbol(unit.Amount(rounded)))
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
