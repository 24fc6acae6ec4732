/*

This file contains the shared fixed-point helpers used by the treasury
waterfall, the insurance buffer and the reward scheduler.

Rounding policy: every division here floors. Remainders are the caller's
problem to carry explicitly; nothing in this package may silently round up,
because the protocol must never credit more value than was reported.

*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// FractionDenominatorPPM is the precision denominator for all protocol
// fractions: parts per million.
const FractionDenominatorPPM = 1_000_000

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil          = errors.New("amount is nil")
	ErrAmountNegative     = errors.New("amount is negative")
	ErrInvalidFraction    = errors.New("fraction is outside [0, 1000000] PPM")
	ErrInvalidPrecision   = errors.New("precision is invalid")
	ErrNonPositiveDivisor = errors.New("divisor is not positive")
)

// ApplyFractionPPM returns floor(amount * ppm / 1e6).
func ApplyFractionPPM(amount sdkmath.Int, ppm int64) (sdkmath.Int, error) {
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if ppm < 0 || ppm > FractionDenominatorPPM {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d", ErrInvalidFraction, ppm)
	}
	return amount.MulRaw(ppm).QuoRaw(FractionDenominatorPPM), nil
}

// MulDivFloor returns floor(amount * numerator / denominator).
func MulDivFloor(amount, numerator, denominator sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || numerator.IsNil() || denominator.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() || numerator.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if !denominator.IsPositive() {
		return sdkmath.ZeroInt(), ErrNonPositiveDivisor
	}
	return amount.Mul(numerator).Quo(denominator), nil
}

// Rescale converts an amount between two token decimal precisions.
// Scaling up is exact; scaling down floors.
func Rescale(amount sdkmath.Int, fromDecimals, toDecimals int) (sdkmath.Int, error) {
	if fromDecimals < 0 || fromDecimals > 18 || toDecimals < 0 || toDecimals > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: from=%d to=%d (must be between 0 and 18)", ErrInvalidPrecision, fromDecimals, toDecimals)
	}
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	switch {
	case toDecimals > fromDecimals:
		return amount.Mul(pow10(toDecimals - fromDecimals)), nil
	case toDecimals < fromDecimals:
		return amount.Quo(pow10(fromDecimals - toDecimals)), nil
	default:
		return amount, nil
	}
}

func pow10(n int) sdkmath.Int {
	result := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := 0; i < n; i++ {
		result = result.Mul(ten)
	}
	return result
}
