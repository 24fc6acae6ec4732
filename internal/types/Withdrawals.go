/*

This file contains the withdrawal queue record type.

Requests are append-only: once created they are never removed, only their
claimed flag is set (exactly once). The queue is the audit trail.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// WithdrawalRequest records one redemption request against the deposit token.
type WithdrawalRequest struct {
	ID          uint64      `json:"id"`
	Requester   string      `json:"requester"`
	Amount      sdkmath.Int `json:"amount"`
	RequestTime time.Time   `json:"request_time"`
	Epoch       uint64      `json:"epoch"` // Treasury epoch at request time; a claim requires a later epoch.
	Claimed     bool        `json:"claimed"`
	ClaimedAt   *time.Time  `json:"claimed_at,omitempty"`
	Fee         sdkmath.Int `json:"fee"` // Populated on claim.
}
