package domain

import "github.com/shopspring/decimal"

// UnitsPerCoin is the fixed-point scale of the chain: 1 coin = 1e8 minor units.
const UnitsPerCoin = 100_000_000

// Amount is a signed quantity of minor units (10^-8 coin).
// All reconciliation arithmetic happens in minor units; decimal conversion is
// reserved for display and fingerprint rounding.
type Amount int64

// Coins converts the amount to whole-coin decimal representation.
func (a Amount) Coins() decimal.Decimal {
	return decimal.New(int64(a), -8)
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// String renders the amount in coins with full 8-digit precision.
func (a Amount) String() string {
	return a.Coins().StringFixed(8)
}

// AmountFromCoins converts a whole-coin decimal into minor units, truncating
// anything below 10^-8.
func AmountFromCoins(d decimal.Decimal) Amount {
	return Amount(d.Shift(8).IntPart())
}
