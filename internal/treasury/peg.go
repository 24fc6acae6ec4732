/*

This file contains the peg controller.

The peg is the reserve-asset value backing one unit of the deposit token. It
is always derived from aggregate backing, never set directly: recompute takes
net deposits (rescaled to deposit-token precision) over the deposit-token
supply, truncating. A loss the waterfall could not absorb pushes it below
1.0; during recovery it is recomputed opportunistically and capped at 1.0.

*/

package treasury

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/types"
	"github.com/usxprotocol/treasury/internal/utils"
)

// recomputePeg derives the peg from current backing. With no supply there is
// nothing to back and the peg reads exactly 1.0. Callers must hold the mutex.
func (t *Treasury) recomputePeg(capAtPar bool) error {
	supply := t.deposit.TotalSupply()
	if !supply.IsPositive() {
		t.peg = sdkmath.LegacyOneDec()
		return nil
	}

	backing, err := utils.Rescale(t.netDeposits(), ReserveDecimals, DepositDecimals)
	if err != nil {
		return fmt.Errorf("peg backing: %w", err)
	}

	ratio := sdkmath.LegacyNewDecFromInt(backing).QuoInt(supply)
	if capAtPar && ratio.GT(sdkmath.LegacyOneDec()) {
		ratio = sdkmath.LegacyOneDec()
	}
	t.peg = ratio
	return nil
}

// Unfreeze clears the frozen state. It is the one governance action in the
// freeze lifecycle; the peg is recomputed first so a treasury whose backing
// has not recovered shows its true ratio after the thaw.
func (t *Treasury) Unfreeze(caller string) error {
	if err := t.gate.RequireRole(caller, auth.RoleGovernance); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != types.StatusFrozen {
		return ErrNotFrozen
	}
	if err := t.recomputePeg(true); err != nil {
		return err
	}

	t.status = types.StatusNormal
	t.vault.Unfreeze()
	t.log.Warn().
		Str("caller", caller).
		Str("peg", t.peg.String()).
		Msg("Treasury unfrozen by governance")
	return nil
}
