/*

This file contains the epoch-based linear reward scheduler.

A batch of rewards absorbed at time T is linearized into a per-second rate
over a fixed-length window. Floor division of the batch by the window length
leaves a remainder; that remainder is carried in the queued balance and folded
into the next batch, so rounding error is explicitly tracked and never lost.
The same algorithm runs twice in the system: once inside the treasury for the
staker stream, and once inside the staking vault for its share price.

*/

package rewards

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrNegativeAmount = errors.New("reward amount is negative")
	ErrNilAmount      = errors.New("reward amount is nil")
	ErrInvalidPeriod  = errors.New("streaming period must be positive")
	ErrTimeReversed   = errors.New("absorb time precedes last update")
)

// Schedule is the streaming-rate state. All times are unix seconds from the
// caller's clock; the schedule itself never reads a clock.
//
// Invariant: rate*(windowEnd-lastUpdate) + queued equals the total amount not
// yet reflected in the distributed total at the moment of the last mutation.
type Schedule struct {
	Queued     sdkmath.Int `json:"queued"`      // Deferred rewards plus carried rounding remainder.
	Rate       sdkmath.Int `json:"rate"`        // Amount distributed per second over the current window.
	LastUpdate int64       `json:"last_update"` // Start of the current window.
	WindowEnd  int64       `json:"window_end"`  // End of the current window.
}

// NewSchedule returns a zero schedule: nothing queued, nothing streaming.
func NewSchedule() Schedule {
	return Schedule{
		Queued: sdkmath.ZeroInt(),
		Rate:   sdkmath.ZeroInt(),
	}
}

// Absorb folds a new reward batch into the schedule and restarts the window.
//
// With no stake in the consuming vault the whole batch (plus anything already
// queued) is deferred: it would otherwise stream to nobody. This branch must
// not fail beyond input validation. With stake present, the unrealized tail
// of the current window is folded back into the batch and a fresh window of
// length period starts at now.
func (s *Schedule) Absorb(amount sdkmath.Int, period int64, now int64, hasStake bool) error {
	if amount.IsNil() {
		return ErrNilAmount
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if period <= 0 {
		return ErrInvalidPeriod
	}
	if now < s.LastUpdate {
		return ErrTimeReversed
	}

	carry := amount.Add(s.Queued)

	if !hasStake {
		s.Queued = carry
		s.Rate = sdkmath.ZeroInt()
		s.LastUpdate = now
		s.WindowEnd = now + period
		return nil
	}

	if now < s.WindowEnd {
		// The previous window is still running: its unvested tail rejoins
		// the batch so total backing never decreases.
		carry = carry.Add(s.Rate.MulRaw(s.WindowEnd - now))
	}

	s.Rate = carry.QuoRaw(period)
	s.Queued = carry.Sub(s.Rate.MulRaw(period))
	s.LastUpdate = now
	s.WindowEnd = now + period
	return nil
}

// Pending reports the split of the current window at query time: distributed
// is the amount already vested (it feeds the consumer's total-assets view),
// undistributed is the unvested tail plus the queued balance (excluded from
// share price so depositors cannot front-run unvested rewards).
func (s Schedule) Pending(now int64) (distributed, undistributed sdkmath.Int) {
	var elapsed, tail int64
	if now > s.WindowEnd {
		elapsed = s.WindowEnd - s.LastUpdate
	} else {
		elapsed = now - s.LastUpdate
		tail = s.WindowEnd - now
	}
	if elapsed < 0 {
		elapsed = 0
	}

	distributed = s.Rate.MulRaw(elapsed)
	undistributed = s.Rate.MulRaw(tail).Add(s.Queued)
	return distributed, undistributed
}
