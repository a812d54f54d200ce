package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DropsPerNative is the smallest-unit scale of the native asset. Native
// amounts cross the ledger boundary in drops; everything internal stays in
// human-readable decimal units.
const DropsPerNative = 1_000_000

var dropsScale = decimal.NewFromInt(DropsPerNative)

// maxAmount bounds accepted request amounts, mirroring the input validation
// applied before any venue query.
var maxAmount = decimal.NewFromInt(1_000_000_000)

// ParseAmount parses a positive decimal amount string and rejects values
// outside the accepted range.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("amount must be positive, got %s", s)
	}
	if d.GreaterThan(maxAmount) {
		return decimal.Decimal{}, fmt.Errorf("amount %s out of range", s)
	}
	return d, nil
}

// ToDrops converts a human-readable native amount into a floored
// smallest-unit string.
func ToDrops(amount decimal.Decimal) string {
	return amount.Mul(dropsScale).Floor().String()
}

// FromDrops converts a smallest-unit native amount back into human-readable
// units.
func FromDrops(drops decimal.Decimal) decimal.Decimal {
	return drops.Div(dropsScale)
}
