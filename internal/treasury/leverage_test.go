package treasury

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usxprotocol/treasury/internal/auth"
)

func TestAllocatePreservesNetDeposits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(1_000)))
	ctx := context.Background()

	before := f.treasury.NetDeposits()
	require.NoError(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(400)))

	// Money moved, not created.
	assert.Equal(t, before, f.treasury.NetDeposits())
	assert.Equal(t, sdkmath.NewInt(400), f.treasury.AllocatedToManager())
	assert.Equal(t, sdkmath.NewInt(600), f.reserve.BalanceOf("treasury_reserve"))
	assert.Equal(t, sdkmath.NewInt(400), f.reserve.BalanceOf("external_manager"))

	require.NoError(t, f.treasury.Deallocate(ctx, governor, sdkmath.NewInt(400)))
	assert.Equal(t, before, f.treasury.NetDeposits())
	assert.True(t, f.treasury.AllocatedToManager().IsZero())
}

func TestDeallocateRepatriatesReportedProfit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(1_000)))
	ctx := context.Background()

	require.NoError(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(100)))

	// The manager earns yield; the next report routes it and must grow the
	// reserve-ledger mirror in step with the allocation.
	f.manager.balance = sdkmath.NewInt(150)
	_, err := f.treasury.Report(reporter, sdkmath.NewInt(150))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(150), f.treasury.AllocatedToManager())
	assert.Equal(t, sdkmath.NewInt(150), f.reserve.BalanceOf("external_manager"))

	// The full allocation, profit included, comes home in one call.
	require.NoError(t, f.treasury.Deallocate(ctx, governor, sdkmath.NewInt(150)))
	assert.True(t, f.treasury.AllocatedToManager().IsZero())
	assert.Equal(t, sdkmath.NewInt(1_050), f.reserve.BalanceOf("treasury_reserve"))
	assert.True(t, f.reserve.BalanceOf("external_manager").IsZero())
}

func TestLossReportShrinksManagerMirror(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(1_000)))
	ctx := context.Background()

	require.NoError(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(500)))
	require.NoError(t, f.deposit.Mint("insurance_buffer", usx(300)))

	f.manager.balance = sdkmath.NewInt(300)
	_, err := f.treasury.Report(reporter, sdkmath.NewInt(300))
	require.NoError(t, err)

	// No phantom reserve units stranded at the mirror account.
	assert.Equal(t, sdkmath.NewInt(300), f.reserve.BalanceOf("external_manager"))

	require.NoError(t, f.treasury.Deallocate(ctx, governor, sdkmath.NewInt(300)))
	assert.True(t, f.treasury.AllocatedToManager().IsZero())
	assert.True(t, f.reserve.BalanceOf("external_manager").IsZero())
}

func TestLeverageGateRejectsWithoutClamping(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(1_000)))
	ctx := context.Background()

	// Cap is 50% of net deposits = 500.
	require.NoError(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(400)))

	err := f.treasury.Allocate(ctx, governor, sdkmath.NewInt(200))
	assert.ErrorIs(t, err, ErrLeverageExceeded)
	assert.Equal(t, sdkmath.NewInt(400), f.treasury.AllocatedToManager())

	// Exactly at the cap passes.
	require.NoError(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(100)))
	assert.Equal(t, sdkmath.NewInt(500), f.treasury.AllocatedToManager())
}

func TestShortReturnAbortsDeallocation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(1_000)))
	ctx := context.Background()
	require.NoError(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(400)))

	f.manager.shortBy = sdkmath.NewInt(1)
	err := f.treasury.Deallocate(ctx, governor, sdkmath.NewInt(400))
	assert.ErrorIs(t, err, ErrAckMismatch)

	// Nothing moved on the reserve ledger, allocation untouched.
	assert.Equal(t, sdkmath.NewInt(400), f.treasury.AllocatedToManager())
	assert.Equal(t, sdkmath.NewInt(600), f.reserve.BalanceOf("treasury_reserve"))
	assert.Equal(t, sdkmath.NewInt(400), f.reserve.BalanceOf("external_manager"))
}

func TestRefusedDepositAbortsAllocation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(1_000)))
	ctx := context.Background()

	f.manager.depositErr = errors.New("manager offline")
	err := f.treasury.Allocate(ctx, governor, sdkmath.NewInt(100))
	assert.Error(t, err)
	assert.True(t, f.treasury.AllocatedToManager().IsZero())
	assert.Equal(t, sdkmath.NewInt(1_000), f.reserve.BalanceOf("treasury_reserve"))
}

func TestAllocationValidation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.Mint("treasury_reserve", sdkmath.NewInt(100)))
	ctx := context.Background()

	assert.ErrorIs(t, f.treasury.Allocate(ctx, "nobody", sdkmath.NewInt(10)), auth.ErrUnauthorized)
	assert.ErrorIs(t, f.treasury.Allocate(ctx, governor, sdkmath.ZeroInt()), ErrZeroAmount)
	assert.ErrorIs(t, f.treasury.Allocate(ctx, governor, sdkmath.NewInt(200)), ErrInsufficientReserve)
	assert.ErrorIs(t, f.treasury.Deallocate(ctx, governor, sdkmath.NewInt(10)), ErrExceedsAllocation)
}
