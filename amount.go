package guardianvault

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amounts are carried internally as uint64 base units with 8 decimal
// places. All counter mutations go through the checked helpers below;
// silent wraparound on a financial counter is never acceptable.

const amountPrecision = 8

func checkedAdd(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, ErrOverflow
	}

	return a + b, nil
}

// ParseAmount converts a decimal string from the wire into base units.
// Amounts are truncated to 8 places; zero or negative values are rejected.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}

	if !d.IsPositive() {
		return 0, ErrZeroAmount
	}

	return toBaseUnits(d)
}

// ParseLimit is ParseAmount for limit fields, where zero is a valid value
// (a zero per-tx limit shuts the agent path off entirely).
func ParseLimit(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}

	if d.IsNegative() {
		return 0, ErrZeroAmount
	}

	return toBaseUnits(d)
}

func toBaseUnits(d decimal.Decimal) (uint64, error) {
	u := d.Truncate(amountPrecision).Shift(amountPrecision).BigInt()
	if !u.IsUint64() {
		return 0, ErrOverflow
	}

	return u.Uint64(), nil
}

// FormatAmount renders base units as a decimal string for the wire.
func FormatAmount(u uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), -amountPrecision).String()
}
