package utils

import (
	"fmt"

	"btclotto/domain/entities"

	"github.com/shopspring/decimal"
)

// DefaultUnitDecimals is the number of decimal places between a whole token and its smallest unit
const DefaultUnitDecimals int32 = 8

// FormatAmount renders a smallest-unit amount as a decimal token string, e.g. 150000000 -> "1.5"
func FormatAmount(amount uint64, decimals int32) string {
	return decimal.NewFromUint64(amount).Shift(-decimals).String()
}

// ParseAmount converts a decimal token string into smallest units.
// Fractions finer than one unit are rejected.
func ParseAmount(text string, decimals int32) (uint64, error) {
	value, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", text, err)
	}

	units := value.Shift(decimals)
	if !units.IsInteger() || units.IsNegative() || units.GreaterThan(decimal.NewFromUint64(entities.MaxAmount)) {
		return 0, fmt.Errorf("invalid amount %q: %w", text, entities.ErrInvalidAmount)
	}
	return units.BigInt().Uint64(), nil
}
