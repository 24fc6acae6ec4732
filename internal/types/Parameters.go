/*

This file contains the governance-tunable protocol parameters and their bounds.

All fractions are expressed in parts-per-million (PPM) so that routing math is
pure integer arithmetic with explicit floor rounding. A fraction of 1_000_000
PPM is 100%.

*/

package types

// TreasuryStatus is the profit/loss engine state.
type TreasuryStatus string

const (
	StatusNormal        TreasuryStatus = "NORMAL"
	StatusLossAbsorbing TreasuryStatus = "LOSS_ABSORBING"
	StatusFrozen        TreasuryStatus = "FROZEN"
)

// ProtocolParameters holds all tunable fractions and periods used by the
// treasury waterfall, the insurance buffer, the leverage gate, the reward
// scheduler and the withdrawal queue. Different versions of these parameters
// can exist; the active set is selected by governance.
type ProtocolParameters struct {
	// --- Profit routing ---
	FeePPM           int64 `json:"fee_ppm"`            // Protocol fee taken from gross profit before the staker share.
	BufferTargetPPM  int64 `json:"buffer_target_ppm"`  // Insurance buffer target as a fraction of deposit-token total supply.
	BufferRenewalPPM int64 `json:"buffer_renewal_ppm"` // Fraction of gross profit diverted to the buffer while below target.

	// --- Capital allocation ---
	MaxLeveragePPM int64 `json:"max_leverage_ppm"` // Cap on externally-allocated capital as a fraction of net deposits.

	// --- Withdrawals ---
	WithdrawFeePPM        int64 `json:"withdraw_fee_ppm"`        // Fee taken from a withdrawal claim, paid to the fee sink.
	MaturityPeriodSeconds int64 `json:"maturity_period_seconds"` // Minimum age of a withdrawal request before it can be claimed.

	// --- Reward streaming ---
	EpochLengthSeconds int64 `json:"epoch_length_seconds"` // Window over which a batch of rewards is linearized into a per-second rate.
}

// ParameterBounds holds the governance-policy upper limits enforced by the
// parameter setters. These are configuration, not constants: operators load
// them alongside the parameters themselves.
type ParameterBounds struct {
	MaxFeePPM           int64 `json:"max_fee_ppm"`
	MaxBufferTargetPPM  int64 `json:"max_buffer_target_ppm"`
	MaxBufferRenewalPPM int64 `json:"max_buffer_renewal_ppm"`
	MaxLeverageCapPPM   int64 `json:"max_leverage_cap_ppm"`
	MaxWithdrawFeePPM   int64 `json:"max_withdraw_fee_ppm"`
}
