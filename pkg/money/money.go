package money

import "github.com/shopspring/decimal"

// FormatCents renders an integer cent amount as a dollar string, e.g.
// 2000 -> "$20.00". User-visible messages (minimum-order failures, payment
// instructions) go through here so rounding is consistent.
func FormatCents(cents int64) string {
	return "$" + decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
