// Package money computes invoice totals from line items.
//
// Amounts are shopspring decimals accumulated at full precision. Rounding to
// two places happens once, on the subtotal and the tax, and the total is the
// sum of those rounded parts so that total == subtotal + tax holds exactly.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	Scale           int32 = 2
	DefaultCurrency       = "USD"
)

var hundred = decimal.NewFromInt(100)

// LineItem is the arithmetic view of an invoice row.
type LineItem struct {
	Quantity   decimal.Decimal
	Rate       decimal.Decimal
	TaxPercent decimal.Decimal
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute sums the line items. Negative values are not rejected; they flow
// through the arithmetic unchanged.
func Compute(items []LineItem) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range items {
		row := item.Quantity.Mul(item.Rate)
		subtotal = subtotal.Add(row)
		tax = tax.Add(row.Mul(item.TaxPercent).Div(hundred))
	}

	subtotal = subtotal.Round(Scale)
	tax = tax.Round(Scale)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// RowTotal is the display total of one row including its tax.
func RowTotal(item LineItem) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(item.TaxPercent.Div(hundred))
	return item.Quantity.Mul(item.Rate).Mul(factor).Round(Scale)
}

// NormalizeCurrency returns the upper-cased ISO 4217 code, or DefaultCurrency
// when code is empty or unknown.
func NormalizeCurrency(code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return DefaultCurrency
	}
	return unit.String()
}

// Format renders amount as "USD 1,500.00".
func Format(amount decimal.Decimal, code string) string {
	return NormalizeCurrency(code) + " " + FormatAmount(amount)
}

// FormatAmount renders amount with two decimals and thousand separators.
func FormatAmount(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixed(Scale)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.Grow(len(fixed) + len(intPart)/3 + 1)
	b.WriteString(sign)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
