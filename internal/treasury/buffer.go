/*

This file contains the insurance buffer: a deposit-token balance that absorbs
losses before they reach stakers.

The buffer accrues only from profits and only while below its target, which
is a governance-set fraction of the deposit-token supply. A slash debits the
buffer before anything else in the loss waterfall and never underflows.

*/

package treasury

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/usxprotocol/treasury/internal/utils"
)

// bufferTarget is floor(depositTotalSupply * targetFraction). Callers must
// hold the mutex.
func (t *Treasury) bufferTarget() (sdkmath.Int, error) {
	target, err := utils.ApplyFractionPPM(t.deposit.TotalSupply(), t.params.BufferTargetPPM)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("buffer target: %w", err)
	}
	return target, nil
}

// topUpBuffer diverts the renewal fraction of a profit into the buffer while
// the buffer sits below target, and returns the accrued amount. Above target
// nothing accrues. Only the profit path calls this.
func (t *Treasury) topUpBuffer(profit sdkmath.Int) (sdkmath.Int, error) {
	target, err := t.bufferTarget()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if t.deposit.BalanceOf(t.accounts.Buffer).GTE(target) {
		return sdkmath.ZeroInt(), nil
	}

	accrued, err := utils.ApplyFractionPPM(profit, t.params.BufferRenewalPPM)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("buffer accrual: %w", err)
	}
	if accrued.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if err := t.deposit.Mint(t.accounts.Buffer, accrued); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("buffer mint failed: %w", err)
	}
	return accrued, nil
}

// slashBuffer burns up to the buffer balance against a loss and returns the
// amount slashed and the loss left over.
func (t *Treasury) slashBuffer(loss sdkmath.Int) (slashed, remaining sdkmath.Int, err error) {
	balance := t.deposit.BalanceOf(t.accounts.Buffer)
	slashed = loss
	if slashed.GT(balance) {
		slashed = balance
	}
	if slashed.IsPositive() {
		if err := t.deposit.Burn(t.accounts.Buffer, slashed); err != nil {
			return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("buffer slash failed: %w", err)
		}
	}
	return slashed, loss.Sub(slashed), nil
}
