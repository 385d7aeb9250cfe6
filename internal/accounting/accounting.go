// Package accounting holds the checked arithmetic used for ticket costs,
// pot totals and the platform fee split. Every helper fails on overflow
// instead of wrapping, so callers can abort an operation before any state
// changes.
package accounting

import (
	"errors"
	"math"
	"math/bits"
)

// ErrOverflow is returned when a cost, pot or fee computation would exceed
// the 64-bit (or 32-bit counter) range.
var ErrOverflow = errors.New("arithmetic overflow")

// BpsDenominator is the number of basis points in 100%.
const BpsDenominator = 10000

// Mul64 returns a*b or ErrOverflow.
func Mul64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// Add64 returns a+b or ErrOverflow.
func Add64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Add32 returns a+b for ticket counters, or ErrOverflow.
func Add32(a, b uint32) (uint32, error) {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return 0, ErrOverflow
	}
	return uint32(sum), nil
}

// SplitFee divides a gross amount into (fee, net) at the given basis-point
// rate. fee = floor(gross * feeBps / 10000), net = gross - fee, so
// fee+net == gross always; division truncates after the full-precision
// multiply, so no remainder is lost.
func SplitFee(gross, feeBps uint64) (fee, net uint64, err error) {
	if feeBps > BpsDenominator {
		return 0, 0, ErrOverflow
	}
	hi, lo := bits.Mul64(gross, feeBps)
	fee, _ = bits.Div64(hi, lo, BpsDenominator)
	return fee, gross - fee, nil
}
