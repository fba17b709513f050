package money

import "github.com/shopspring/decimal"

// CurrencyScale is the minor-unit precision used across totals (2 decimals).
const CurrencyScale = 2

// Round applies round-half-up semantics at currency precision.
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(CurrencyScale)
}

// Line multiplies a unit price by a quantity and rounds to currency precision.
func Line(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}

// ApplyPercentOff reduces a price by the given percentage, keeping full precision.
// Rounding happens at the line level, not per unit.
func ApplyPercentOff(price decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(percent.Div(decimal.NewFromInt(100)))
	return price.Mul(factor)
}

// Sum adds the provided amounts; the result carries currency precision as long
// as every input does.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(value decimal.Decimal) bool {
	return value.GreaterThan(decimal.Zero)
}
