/*

This file contains the read-only views. Each takes the aggregate mutex so
callers always see a consistent snapshot; none of them mutate anything.

*/

package treasury

import (
	sdkmath "cosmossdk.io/math"

	"github.com/usxprotocol/treasury/internal/types"
)

// Status reports the profit/loss engine state.
func (t *Treasury) Status() types.TreasuryStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Epoch reports the number of accepted reports so far.
func (t *Treasury) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Peg reports the canonical peg ratio.
func (t *Treasury) Peg() sdkmath.LegacyDec {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peg
}

// NetDeposits reports reserve held plus allocated capital, in reserve units.
func (t *Treasury) NetDeposits() sdkmath.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.netDeposits()
}

// AllocatedToManager reports the capital held by the external manager.
func (t *Treasury) AllocatedToManager() sdkmath.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocated
}

// BufferBalance reports the insurance buffer balance in deposit-token units.
func (t *Treasury) BufferBalance() sdkmath.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deposit.BalanceOf(t.accounts.Buffer)
}

// BufferTarget reports the current buffer target.
func (t *Treasury) BufferTarget() (sdkmath.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bufferTarget()
}

// PendingRewards reports the vested/unvested split of the staker stream.
func (t *Treasury) PendingRewards() (distributed, undistributed sdkmath.Int) {
	return t.vault.PendingRewards()
}

// Summary is the operator dashboard view of the whole aggregate.
type Summary struct {
	Status             types.TreasuryStatus `json:"status"`
	Epoch              uint64               `json:"epoch"`
	Peg                string               `json:"peg"`
	NetDeposits        string               `json:"net_deposits"`
	ReserveHeld        string               `json:"reserve_held"`
	AllocatedToManager string               `json:"allocated_to_manager"`
	BufferBalance      string               `json:"buffer_balance"`
	BufferTarget       string               `json:"buffer_target"`
	DepositSupply      string               `json:"deposit_supply"`
	RewardsDistributed string               `json:"rewards_distributed"`
	RewardsPending     string               `json:"rewards_pending"`
	WithdrawalsOpen    int                  `json:"withdrawals_open"`
}

// Summarize assembles the dashboard view in one consistent snapshot.
func (t *Treasury) Summarize() (Summary, error) {
	// Vault lock is acquired before the treasury lock is held, keeping the
	// treasury-then-vault lock order free of cycles.
	distributed, undistributed := t.vault.PendingRewards()

	t.mu.Lock()
	defer t.mu.Unlock()

	target, err := t.bufferTarget()
	if err != nil {
		return Summary{}, err
	}

	open := 0
	for _, id := range t.withdrawalOrder {
		if !t.withdrawals[id].Claimed {
			open++
		}
	}

	return Summary{
		Status:             t.status,
		Epoch:              t.epoch,
		Peg:                t.peg.String(),
		NetDeposits:        t.netDeposits().String(),
		ReserveHeld:        t.reserve.BalanceOf(t.accounts.Reserve).String(),
		AllocatedToManager: t.allocated.String(),
		BufferBalance:      t.deposit.BalanceOf(t.accounts.Buffer).String(),
		BufferTarget:       target.String(),
		DepositSupply:      t.deposit.TotalSupply().String(),
		RewardsDistributed: distributed.String(),
		RewardsPending:     undistributed.String(),
		WithdrawalsOpen:    open,
	}, nil
}
