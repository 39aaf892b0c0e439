// Package summary turns exact balances into what callers see: amounts
// rounded to currency precision and identities resolved to labels.
package summary

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places in every reported amount.
const Places = 2

// Round converts an exact value to a decimal with Places digits.
// There is exactly one rounding step, half away from zero, applied to the
// exact quotient.
func Round(r *big.Rat) decimal.Decimal {
	num := decimal.NewFromBigInt(r.Num(), 0)
	den := decimal.NewFromBigInt(r.Denom(), 0)
	return num.DivRound(den, Places)
}
