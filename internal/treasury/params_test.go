package treasury

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usxprotocol/treasury/internal/auth"
)

func TestSettersEnforceBounds(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.treasury.SetFeeFraction(governor, 150_000))
	assert.Equal(t, int64(150_000), f.treasury.Params().FeePPM)

	// One past the governance limit is rejected and the active value stays.
	err := f.treasury.SetFeeFraction(governor, testBounds().MaxFeePPM+1)
	assert.ErrorIs(t, err, ErrFractionOutOfBounds)
	assert.Equal(t, int64(150_000), f.treasury.Params().FeePPM)

	assert.ErrorIs(t, f.treasury.SetBufferTargetFraction(governor, 100_001), ErrFractionOutOfBounds)
	assert.ErrorIs(t, f.treasury.SetBufferRenewalFraction(governor, 500_001), ErrFractionOutOfBounds)
	assert.ErrorIs(t, f.treasury.SetMaxLeverageFraction(governor, 1_000_001), ErrFractionOutOfBounds)
	assert.ErrorIs(t, f.treasury.SetWithdrawFeeFraction(governor, 50_001), ErrFractionOutOfBounds)
	assert.ErrorIs(t, f.treasury.SetFeeFraction(governor, -1), ErrFractionOutOfBounds)
	assert.ErrorIs(t, f.treasury.SetMaturityPeriod(governor, 0), ErrInvalidPeriod)
}

func TestSettersRequireGovernance(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.treasury.SetFeeFraction(reporter, 1), auth.ErrUnauthorized)
	assert.ErrorIs(t, f.treasury.SetMaxLeverageFraction("nobody", 1), auth.ErrUnauthorized)
	assert.ErrorIs(t, f.treasury.SetMaturityPeriod(reporter, 10), auth.ErrUnauthorized)
}

func TestZeroFractionsAreLegal(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.treasury.SetFeeFraction(governor, 0))
	require.NoError(t, f.treasury.SetWithdrawFeeFraction(governor, 0))
	require.NoError(t, f.treasury.SetBufferRenewalFraction(governor, 0))
	assert.Equal(t, int64(0), f.treasury.Params().FeePPM)
}

func TestConstructionRejectsOutOfBoundsParams(t *testing.T) {
	params := testParams()
	params.FeePPM = testBounds().MaxFeePPM + 1
	err := validateParameters(params, testBounds())
	assert.ErrorIs(t, err, ErrFractionOutOfBounds)

	params = testParams()
	params.EpochLengthSeconds = 0
	assert.ErrorIs(t, validateParameters(params, testBounds()), ErrInvalidPeriod)
}
