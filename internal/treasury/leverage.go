/*

This file contains the leverage allocator: capital movement between the
treasury reserve and the external yield manager, gated by a maximum-leverage
policy.

Net deposits are the invariant quantity: reserve held plus capital allocated
out. An allocate/deallocate pair moves money without creating any, so net
deposits are unchanged by either. The leverage cap is a gate, never a clamp:
an allocation that would breach it is rejected outright.

Both directions require an exact acknowledgement from the manager before any
ledger movement, so a refused or short acknowledgement leaves no trace.

*/

package treasury

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/utils"
)

// netDeposits is reserve held by the treasury plus capital allocated to the
// manager, in reserve units. Callers must hold the mutex.
func (t *Treasury) netDeposits() sdkmath.Int {
	return t.reserve.BalanceOf(t.accounts.Reserve).Add(t.allocated)
}

// checkMaxLeverage rejects a proposed allocation delta that would push
// allocated capital past the leverage cap. Callers must hold the mutex.
func (t *Treasury) checkMaxLeverage(delta sdkmath.Int) error {
	limit, err := utils.ApplyFractionPPM(t.netDeposits(), t.params.MaxLeveragePPM)
	if err != nil {
		return fmt.Errorf("leverage cap: %w", err)
	}
	proposed := t.allocated.Add(delta)
	if proposed.GT(limit) {
		return fmt.Errorf("%w: proposed %s, cap %s", ErrLeverageExceeded, proposed, limit)
	}
	return nil
}

// Allocate moves reserve capital to the external manager. The manager must
// acknowledge the exact amount before the ledger moves.
func (t *Treasury) Allocate(ctx context.Context, caller string, amount sdkmath.Int) error {
	if err := t.gate.RequireRole(caller, auth.RoleGovernance); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}
	held := t.reserve.BalanceOf(t.accounts.Reserve)
	if amount.GT(held) {
		return fmt.Errorf("%w: requested %s, held %s", ErrInsufficientReserve, amount, held)
	}
	if err := t.checkMaxLeverage(amount); err != nil {
		return err
	}

	if err := t.manager.NotifyDeposit(ctx, amount); err != nil {
		return fmt.Errorf("manager rejected allocation: %w", err)
	}

	// Preconditions above guarantee this transfer cannot fail; a failure here
	// means the ledgers diverged from the manager and must surface loudly.
	if err := t.reserve.Transfer(t.accounts.Reserve, t.accounts.Manager, amount); err != nil {
		return fmt.Errorf("allocation transfer failed after manager ack: %w", err)
	}
	t.allocated = t.allocated.Add(amount)

	t.log.Info().
		Str("amount", amount.String()).
		Str("allocated", t.allocated.String()).
		Msg("Capital allocated to manager")
	return nil
}

// Deallocate pulls capital back from the external manager. A short return is
// a hard failure: nothing moves unless the manager returns the exact amount.
func (t *Treasury) Deallocate(ctx context.Context, caller string, amount sdkmath.Int) error {
	if err := t.gate.RequireRole(caller, auth.RoleGovernance); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroAmount
	}
	if amount.GT(t.allocated) {
		return fmt.Errorf("%w: requested %s, allocated %s", ErrExceedsAllocation, amount, t.allocated)
	}

	returned, err := t.manager.NotifyWithdraw(ctx, amount)
	if err != nil {
		return fmt.Errorf("manager rejected deallocation: %w", err)
	}
	if !returned.Equal(amount) {
		return fmt.Errorf("%w: requested %s, returned %s", ErrAckMismatch, amount, returned)
	}

	if err := t.reserve.Transfer(t.accounts.Manager, t.accounts.Reserve, amount); err != nil {
		return fmt.Errorf("deallocation transfer failed after manager ack: %w", err)
	}
	t.allocated = t.allocated.Sub(amount)

	t.log.Info().
		Str("amount", amount.String()).
		Str("allocated", t.allocated.String()).
		Msg("Capital returned from manager")
	return nil
}
