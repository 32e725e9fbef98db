// Package money provides exact fixed-point arithmetic for 2-decimal currency
// amounts. Every place the system sums, divides, or compares money goes
// through this package so that no float noise can leak into settlements.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// Parse converts a decimal string (e.g. "26.67") into an amount,
// rejecting values that are not positive or carry more than 2 decimals.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := Validate(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Validate checks that an amount is positive with at most 2 fractional digits.
func Validate(d decimal.Decimal) error {
	if d.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("amount must be greater than zero, got %s", d)
	}
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("amount must have at most 2 decimal places, got %s", d)
	}
	return nil
}

// SplitEven divides amount into n shares that sum exactly to amount.
// Each share is truncated to 2 decimals and the leftover cents are handed
// out one-by-one to the first shares, so 80.00 / 3 -> 26.67, 26.67, 26.66.
func SplitEven(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	base := amount.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = base
	}
	distributeRemainder(amount, shares)
	return shares
}

// SplitWeighted divides amount proportionally to the given positive weights,
// with the same truncate-then-distribute policy as SplitEven. The returned
// shares sum exactly to amount.
func SplitWeighted(amount decimal.Decimal, weights []int64) []decimal.Decimal {
	if len(weights) == 0 {
		return nil
	}
	var total int64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil
	}
	totalDec := decimal.NewFromInt(total)
	shares := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		shares[i] = amount.Mul(decimal.NewFromInt(w)).Div(totalDec).Truncate(2)
	}
	distributeRemainder(amount, shares)
	return shares
}

// distributeRemainder adds the difference between amount and the current
// share total to the leading shares, one cent at a time. Truncation
// guarantees the difference is a non-negative whole number of cents smaller
// than len(shares).
func distributeRemainder(amount decimal.Decimal, shares []decimal.Decimal) {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	cents := amount.Sub(sum).Mul(hundred).IntPart()
	for i := int64(0); i < cents; i++ {
		idx := int(i) % len(shares)
		shares[idx] = shares[idx].Add(cent)
	}
}

// Sum adds a list of amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
