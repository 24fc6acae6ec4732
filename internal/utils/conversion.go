/*

This file contains display conversions between on-ledger integer amounts and
float64 values for the web API. Floats are presentation only: no routing or
accounting math may pass through them.

*/

package utils

import (
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// AmountToFloat64 converts an integer amount with the given decimal precision
// into a float64 for display.
func AmountToFloat64(amount sdkmath.Int, decimals int) (float64, error) {
	if decimals < 0 || decimals > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	dec := sdkmath.LegacyNewDecFromInt(amount)
	result := dec.Quo(sdkmath.LegacyNewDecFromInt(pow10(decimals)))

	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("amount conversion failed: %w", err)
	}
	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("amount conversion produced non-finite value: %f", resultFloat)
	}
	return resultFloat, nil
}
