/*

This file contains the withdrawal queue: two-step redemption of the deposit
token with a maturity delay and a claim fee.

A request escrows the full amount immediately and is recorded forever as an
audit trail; only the claimed flag and its timestamp mutate, exactly once.
Claims are all-or-nothing and gated twice: the request must be older than the
maturity period AND at least one epoch boundary must have passed since it was
made, so rewards accrued after a redemption request are never retroactively
granted to the redeemer.

*/

package treasury

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/usxprotocol/treasury/internal/types"
	"github.com/usxprotocol/treasury/internal/utils"
)

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// RequestWithdrawal escrows the requester's deposit tokens and records the
// request. The returned id is monotonically increasing and never reused.
func (t *Treasury) RequestWithdrawal(requester string, amount sdkmath.Int) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == types.StatusFrozen {
		return 0, ErrFrozen
	}
	if requester == "" {
		return 0, fmt.Errorf("%w: requester is empty", ErrInvalidConfig)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return 0, ErrZeroAmount
	}

	if err := t.deposit.Transfer(requester, t.accounts.Escrow, amount); err != nil {
		return 0, fmt.Errorf("withdrawal escrow failed: %w", err)
	}

	id := t.nextWithdrawalID
	t.nextWithdrawalID++
	t.withdrawals[id] = &types.WithdrawalRequest{
		ID:          id,
		Requester:   requester,
		Amount:      amount,
		RequestTime: t.clk.Now(),
		Epoch:       t.epoch,
		Fee:         sdkmath.ZeroInt(),
	}
	t.withdrawalOrder = append(t.withdrawalOrder, id)

	t.log.Info().
		Uint64("id", id).
		Str("requester", requester).
		Str("amount", amount.String()).
		Uint64("epoch", t.epoch).
		Msg("Withdrawal requested")
	return id, nil
}

// ClaimWithdrawal pays out a matured request, net of the claim fee, and marks
// it claimed. A second claim on the same id fails and moves nothing.
func (t *Treasury) ClaimWithdrawal(requester string, id uint64) (sdkmath.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == types.StatusFrozen {
		return sdkmath.ZeroInt(), ErrFrozen
	}
	req, ok := t.withdrawals[id]
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: id %d", ErrUnknownRequest, id)
	}
	if req.Requester != requester {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: id %d", ErrNotRequester, id)
	}
	if req.Claimed {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: id %d", ErrAlreadyClaimed, id)
	}

	now := t.clk.Now()
	matures := req.RequestTime.Add(secondsToDuration(t.params.MaturityPeriodSeconds))
	if now.Before(matures) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: id %d matures at %s", ErrNotMatured, id, matures.UTC().Format("2006-01-02 15:04:05"))
	}
	if t.epoch <= req.Epoch {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: id %d requested in epoch %d", ErrEpochNotAdvanced, id, req.Epoch)
	}

	fee, err := utils.ApplyFractionPPM(req.Amount, t.params.WithdrawFeePPM)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("withdrawal fee: %w", err)
	}
	payout := req.Amount.Sub(fee)

	if fee.IsPositive() {
		if err := t.deposit.Transfer(t.accounts.Escrow, t.accounts.FeeSink, fee); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("withdrawal fee transfer failed: %w", err)
		}
	}
	if err := t.deposit.Transfer(t.accounts.Escrow, requester, payout); err != nil {
		if fee.IsPositive() {
			if undoErr := t.deposit.Transfer(t.accounts.FeeSink, t.accounts.Escrow, fee); undoErr != nil {
				t.log.Error().Err(undoErr).Msg("Failed to unwind withdrawal fee")
			}
		}
		return sdkmath.ZeroInt(), fmt.Errorf("withdrawal payout failed: %w", err)
	}

	req.Claimed = true
	req.ClaimedAt = &now
	req.Fee = fee

	t.log.Info().
		Uint64("id", id).
		Str("payout", payout.String()).
		Str("fee", fee.String()).
		Msg("Withdrawal claimed")
	return payout, nil
}

// Withdrawals returns the full audit trail in request order.
func (t *Treasury) Withdrawals() []types.WithdrawalRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.WithdrawalRequest, 0, len(t.withdrawalOrder))
	for _, id := range t.withdrawalOrder {
		out = append(out, *t.withdrawals[id])
	}
	return out
}

// WithdrawalByID returns a single request.
func (t *Treasury) WithdrawalByID(id uint64) (types.WithdrawalRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.withdrawals[id]
	if !ok {
		return types.WithdrawalRequest{}, fmt.Errorf("%w: id %d", ErrUnknownRequest, id)
	}
	return *req, nil
}
