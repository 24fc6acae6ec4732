/*

This file contains the default protocol parameters for the treasury.

These parameters are designed for a production deployment holding real user
deposits. Each value balances staker yield against the protocol's ability to
absorb manager losses without breaking the peg.

*/

package config

import (
	"github.com/usxprotocol/treasury/internal/types"
)

// DefaultProtocolParameters provides a baseline parameter set for the
// treasury waterfall. These values are used if no active parameters are found
// in the database during initialization.
var DefaultProtocolParameters = types.ProtocolParameters{
	// --- Profit routing ---
	FeePPM: 100_000, // 10% protocol fee on gross profit.
	// Rationale: high enough to fund operations, low enough that stakers keep
	// the large majority of yield. The fee is taken before the staker share,
	// so it is visible in every report breakdown.

	BufferTargetPPM: 50_000, // Buffer target: 5% of deposit-token supply.
	// Rationale: a 5% buffer absorbs the drawdowns observed from conservative
	// yield strategies without holding back so much profit that staking
	// yield becomes uncompetitive.

	BufferRenewalPPM: 250_000, // 25% of profit diverted while below target.
	// Rationale: aggressive enough to refill the buffer within a few profit
	// cycles after a slash, while still streaming most profit to stakers
	// during recovery.

	// --- Capital allocation ---
	MaxLeveragePPM: 500_000, // At most 50% of net deposits with the manager.
	// Rationale: caps counterparty exposure so that even a total manager
	// loss leaves half the reserve intact. The gate rejects rather than
	// clamps, so operators see every attempted breach.

	// --- Withdrawals ---
	WithdrawFeePPM: 10_000, // 1% withdrawal claim fee.
	// Rationale: discourages using the withdrawal queue as a free short-term
	// parking exit while remaining small against typical yield.

	MaturityPeriodSeconds: 7 * 24 * 60 * 60, // 7-day maturity delay.
	// Rationale: long enough for governance to deallocate capital from the
	// manager in an orderly way before large redemptions settle.

	// --- Reward streaming ---
	EpochLengthSeconds: 30 * 24 * 60 * 60, // 30-day streaming window.
	// Rationale: smooths lumpy manager profits into a stable share-price
	// drift; a shorter window would make the sUSX price saw-tooth around
	// report days.
}

// DefaultParameterBounds are the governance policy limits enforced by every
// parameter setter. Operators load these alongside the parameters; the
// treasury never hardcodes them.
var DefaultParameterBounds = types.ParameterBounds{
	MaxFeePPM:           200_000,   // 20%
	MaxBufferTargetPPM:  100_000,   // 10%
	MaxBufferRenewalPPM: 500_000,   // 50%
	MaxLeverageCapPPM:   1_000_000, // 100%
	MaxWithdrawFeePPM:   50_000,    // 5%
}
