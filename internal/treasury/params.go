/*

This file contains the governance parameter setters.

Every fraction is bounds-checked against the governance policy limits loaded
at startup; the bounds are configuration, not constants baked in here. A
setter that fails leaves the active parameter set untouched.

*/

package treasury

import (
	"fmt"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/types"
)

func validateParameters(p types.ProtocolParameters, b types.ParameterBounds) error {
	checks := []struct {
		name  string
		value int64
		max   int64
	}{
		{"fee", p.FeePPM, b.MaxFeePPM},
		{"buffer target", p.BufferTargetPPM, b.MaxBufferTargetPPM},
		{"buffer renewal", p.BufferRenewalPPM, b.MaxBufferRenewalPPM},
		{"max leverage", p.MaxLeveragePPM, b.MaxLeverageCapPPM},
		{"withdraw fee", p.WithdrawFeePPM, b.MaxWithdrawFeePPM},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return fmt.Errorf("%w: %s %d PPM (max %d)", ErrFractionOutOfBounds, c.name, c.value, c.max)
		}
	}
	if p.MaturityPeriodSeconds <= 0 {
		return fmt.Errorf("%w: maturity period %d", ErrInvalidPeriod, p.MaturityPeriodSeconds)
	}
	if p.EpochLengthSeconds <= 0 {
		return fmt.Errorf("%w: epoch length %d", ErrInvalidPeriod, p.EpochLengthSeconds)
	}
	return nil
}

// setFraction is the shared setter body: authorize, bounds-check, assign.
func (t *Treasury) setFraction(caller, name string, ppm, max int64, assign func(int64)) error {
	if err := t.gate.RequireRole(caller, auth.RoleGovernance); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if ppm < 0 || ppm > max {
		return fmt.Errorf("%w: %s %d PPM (max %d)", ErrFractionOutOfBounds, name, ppm, max)
	}
	assign(ppm)

	t.log.Info().
		Str("caller", caller).
		Str("parameter", name).
		Int64("ppm", ppm).
		Msg("Protocol parameter updated")
	return nil
}

// SetFeeFraction updates the protocol fee taken from gross profit.
func (t *Treasury) SetFeeFraction(caller string, ppm int64) error {
	return t.setFraction(caller, "fee", ppm, t.bounds.MaxFeePPM, func(v int64) {
		t.params.FeePPM = v
	})
}

// SetBufferTargetFraction updates the insurance buffer target.
func (t *Treasury) SetBufferTargetFraction(caller string, ppm int64) error {
	return t.setFraction(caller, "buffer target", ppm, t.bounds.MaxBufferTargetPPM, func(v int64) {
		t.params.BufferTargetPPM = v
	})
}

// SetBufferRenewalFraction updates the profit share diverted to the buffer.
func (t *Treasury) SetBufferRenewalFraction(caller string, ppm int64) error {
	return t.setFraction(caller, "buffer renewal", ppm, t.bounds.MaxBufferRenewalPPM, func(v int64) {
		t.params.BufferRenewalPPM = v
	})
}

// SetMaxLeverageFraction updates the allocation cap.
func (t *Treasury) SetMaxLeverageFraction(caller string, ppm int64) error {
	return t.setFraction(caller, "max leverage", ppm, t.bounds.MaxLeverageCapPPM, func(v int64) {
		t.params.MaxLeveragePPM = v
	})
}

// SetWithdrawFeeFraction updates the withdrawal claim fee.
func (t *Treasury) SetWithdrawFeeFraction(caller string, ppm int64) error {
	return t.setFraction(caller, "withdraw fee", ppm, t.bounds.MaxWithdrawFeePPM, func(v int64) {
		t.params.WithdrawFeePPM = v
	})
}

// SetMaturityPeriod updates the withdrawal maturity delay.
func (t *Treasury) SetMaturityPeriod(caller string, seconds int64) error {
	if err := t.gate.RequireRole(caller, auth.RoleGovernance); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if seconds <= 0 {
		return fmt.Errorf("%w: maturity period %d", ErrInvalidPeriod, seconds)
	}
	t.params.MaturityPeriodSeconds = seconds
	t.log.Info().Str("caller", caller).Int64("seconds", seconds).Msg("Maturity period updated")
	return nil
}

// Params returns a copy of the active parameter set.
func (t *Treasury) Params() types.ProtocolParameters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params
}

// Bounds returns the governance policy limits.
func (t *Treasury) Bounds() types.ParameterBounds {
	return t.bounds
}
