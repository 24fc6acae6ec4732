/*

This file contains the profit/loss engine: the state machine driven by the
external allocator's balance reports.

One report updates allocated capital and routes the delta through the
waterfall. Profit splits into insurance accrual, protocol fee and staker
share; the split is exhaustive, so floor-rounding dust from the first two
cuts lands with the stakers and the protocol never credits more than the
reported profit. Loss drains the insurance buffer, then burns vault-held
deposit tokens, and whatever survives both breaks the peg and freezes the
protocol.

The whole report is all-or-nothing: ledger mutations are unwound in reverse
if a later routing step fails, and engine state (allocated, status, peg,
epoch) commits only after every fallible step has succeeded.

*/

package treasury

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/types"
	"github.com/usxprotocol/treasury/internal/utils"
)

// Report ingests the manager's current total balance (reserve units),
// routes the delta against the last known balance and advances the epoch.
// Reporting an unchanged balance is a caller error: a stalled manager must
// not be masked by no-op events.
func (t *Treasury) Report(caller string, newBalance sdkmath.Int) (types.ReportOutcome, error) {
	if err := t.gate.RequireRole(caller, auth.RoleReporter); err != nil {
		return types.ReportOutcome{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == types.StatusFrozen {
		return types.ReportOutcome{}, ErrFrozen
	}
	if newBalance.IsNil() {
		return types.ReportOutcome{}, fmt.Errorf("%w: balance is nil", ErrZeroAmount)
	}
	if newBalance.IsNegative() {
		return types.ReportOutcome{}, fmt.Errorf("%w: balance %s", ErrZeroAmount, newBalance)
	}
	if newBalance.Equal(t.allocated) {
		return types.ReportOutcome{}, fmt.Errorf("%w: %s", ErrUnchangedReport, newBalance)
	}

	previousBalance := t.allocated
	pegBefore := t.peg.String()

	var (
		outcome types.ReportOutcome
		err     error
	)
	if newBalance.GT(previousBalance) {
		outcome, err = t.routeProfit(previousBalance, newBalance)
	} else {
		outcome, err = t.routeLoss(previousBalance, newBalance)
	}
	if err != nil {
		return types.ReportOutcome{}, err
	}

	outcome.PegBefore = pegBefore
	outcome.PegAfter = t.peg.String()
	outcome.Status = t.status
	outcome.Epoch = t.epoch
	outcome.PreviousBalance = previousBalance.String()
	outcome.NewBalance = newBalance.String()
	return outcome, nil
}

// routeProfit runs the profit branch. Callers must hold the mutex.
func (t *Treasury) routeProfit(previousBalance, newBalance sdkmath.Int) (types.ReportOutcome, error) {
	grossReserve := newBalance.Sub(previousBalance)
	grossProfit, err := utils.Rescale(grossReserve, ReserveDecimals, DepositDecimals)
	if err != nil {
		return types.ReportOutcome{}, fmt.Errorf("profit rescale: %w", err)
	}

	// The reserve-ledger mirror must stay equal to allocated capital, or a
	// later Deallocate fails after the manager has already returned the funds.
	if err := t.reserve.Mint(t.accounts.Manager, grossReserve); err != nil {
		return types.ReportOutcome{}, fmt.Errorf("manager mirror mint failed: %w", err)
	}
	unwindMirror := func() {
		if undoErr := t.reserve.Burn(t.accounts.Manager, grossReserve); undoErr != nil {
			t.log.Error().Err(undoErr).Msg("Failed to unwind manager mirror mint")
		}
	}

	accrued, err := t.topUpBuffer(grossProfit)
	if err != nil {
		unwindMirror()
		return types.ReportOutcome{}, err
	}
	unwindBuffer := func() {
		if accrued.IsPositive() {
			if undoErr := t.deposit.Burn(t.accounts.Buffer, accrued); undoErr != nil {
				t.log.Error().Err(undoErr).Msg("Failed to unwind buffer accrual")
			}
		}
	}

	fee, err := utils.ApplyFractionPPM(grossProfit, t.params.FeePPM)
	if err != nil {
		unwindBuffer()
		unwindMirror()
		return types.ReportOutcome{}, fmt.Errorf("fee computation: %w", err)
	}
	if fee.IsPositive() {
		if err := t.deposit.Mint(t.accounts.FeeSink, fee); err != nil {
			unwindBuffer()
			unwindMirror()
			return types.ReportOutcome{}, fmt.Errorf("fee mint failed: %w", err)
		}
	}

	stakerShare := grossProfit.Sub(accrued).Sub(fee)
	if err := t.vault.NotifyReward(stakerShare); err != nil {
		if fee.IsPositive() {
			if undoErr := t.deposit.Burn(t.accounts.FeeSink, fee); undoErr != nil {
				t.log.Error().Err(undoErr).Msg("Failed to unwind fee mint")
			}
		}
		unwindBuffer()
		unwindMirror()
		return types.ReportOutcome{}, fmt.Errorf("staker share routing failed: %w", err)
	}

	// Commit. Nothing below can fail.
	t.allocated = newBalance
	recovering := t.status == types.StatusLossAbsorbing
	t.status = types.StatusNormal
	if recovering {
		// Opportunistic peg repair, capped at par.
		if err := t.recomputePeg(true); err != nil {
			t.log.Error().Err(err).Msg("Peg recompute failed during recovery")
		}
	}
	t.epoch++

	t.log.Info().
		Str("gross_profit", grossProfit.String()).
		Str("insurance_accrual", accrued.String()).
		Str("protocol_fee", fee.String()).
		Str("staker_share", stakerShare.String()).
		Uint64("epoch", t.epoch).
		Msg("Profit report routed")

	return types.ReportOutcome{
		Path: types.ReportPathProfit,
		Routing: types.RoutingBreakdown{
			GrossProfit:      grossProfit.String(),
			InsuranceAccrual: accrued.String(),
			ProtocolFee:      fee.String(),
			StakerShare:      stakerShare.String(),
			GrossLoss:        "0",
			BufferSlashed:    "0",
			VaultBurned:      "0",
			Unabsorbed:       "0",
		},
	}, nil
}

// routeLoss runs the loss branch. Callers must hold the mutex.
func (t *Treasury) routeLoss(previousBalance, newBalance sdkmath.Int) (types.ReportOutcome, error) {
	grossReserve := previousBalance.Sub(newBalance)
	grossLoss, err := utils.Rescale(grossReserve, ReserveDecimals, DepositDecimals)
	if err != nil {
		return types.ReportOutcome{}, fmt.Errorf("loss rescale: %w", err)
	}

	// Shrink the reserve-ledger mirror with the loss; it always holds the full
	// previous balance, so this burn fails only if the ledgers diverged.
	if err := t.reserve.Burn(t.accounts.Manager, grossReserve); err != nil {
		return types.ReportOutcome{}, fmt.Errorf("manager mirror burn failed: %w", err)
	}
	unwindMirror := func() {
		if undoErr := t.reserve.Mint(t.accounts.Manager, grossReserve); undoErr != nil {
			t.log.Error().Err(undoErr).Msg("Failed to unwind manager mirror burn")
		}
	}

	slashed, afterBuffer, err := t.slashBuffer(grossLoss)
	if err != nil {
		unwindMirror()
		return types.ReportOutcome{}, err
	}

	burned := sdkmath.ZeroInt()
	unabsorbed := sdkmath.ZeroInt()
	if afterBuffer.IsPositive() {
		unabsorbed, err = t.vault.AbsorbLoss(afterBuffer)
		if err != nil {
			if slashed.IsPositive() {
				if undoErr := t.deposit.Mint(t.accounts.Buffer, slashed); undoErr != nil {
					t.log.Error().Err(undoErr).Msg("Failed to unwind buffer slash")
				}
			}
			unwindMirror()
			return types.ReportOutcome{}, fmt.Errorf("vault loss routing failed: %w", err)
		}
		burned = afterBuffer.Sub(unabsorbed)
	}

	// Commit. Nothing below can fail except the peg recompute, whose inputs
	// were validated when the balances entered the system.
	t.allocated = newBalance
	if afterBuffer.IsPositive() {
		t.status = types.StatusLossAbsorbing
	}
	if unabsorbed.IsPositive() {
		if err := t.recomputePeg(false); err != nil {
			t.log.Error().Err(err).Msg("Peg recompute failed on unabsorbed loss")
		}
		t.status = types.StatusFrozen
		t.vault.Freeze()
	}
	t.epoch++

	t.log.Warn().
		Str("gross_loss", grossLoss.String()).
		Str("buffer_slashed", slashed.String()).
		Str("vault_burned", burned.String()).
		Str("unabsorbed", unabsorbed.String()).
		Str("status", string(t.status)).
		Uint64("epoch", t.epoch).
		Msg("Loss report routed")

	return types.ReportOutcome{
		Path: types.ReportPathLoss,
		Routing: types.RoutingBreakdown{
			GrossProfit:      "0",
			InsuranceAccrual: "0",
			ProtocolFee:      "0",
			StakerShare:      "0",
			GrossLoss:        grossLoss.String(),
			BufferSlashed:    slashed.String(),
			VaultBurned:      burned.String(),
			Unabsorbed:       unabsorbed.String(),
		},
	}, nil
}
