package types

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatMoney renders an amount for display with two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

// Percent returns a/b*100 and false when b is zero, so callers skip the
// computation instead of substituting a sentinel.
func Percent(a, b decimal.Decimal) (decimal.Decimal, bool) {
	if b.IsZero() {
		return decimal.Zero, false
	}
	return a.Div(b).Mul(hundred), true
}

// MonthIndex returns a month bucket that is unique across years.
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthStart returns midnight on the first day of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
