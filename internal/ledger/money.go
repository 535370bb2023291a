package ledger

import "github.com/shopspring/decimal"

// Currency amounts are stored with two decimal places.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Money parses a fixed-point amount such as "30000" or "1250.50".
func Money(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(d), nil
}

// MustMoney is Money for constants and tests.
func MustMoney(s string) decimal.Decimal {
	return Round(decimal.RequireFromString(s))
}

// Round rounds an amount to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// Percent returns pct percent of amount at currency precision.
func Percent(amount decimal.Decimal, pct int64) decimal.Decimal {
	return Round(amount.Mul(decimal.NewFromInt(pct)).Div(hundred))
}

// Split divides total into a first share of pct percent and the remainder.
// The two parts always sum to total exactly.
func Split(total decimal.Decimal, pct int64) (first, rest decimal.Decimal) {
	first = Percent(total, pct)
	return first, total.Sub(first)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
