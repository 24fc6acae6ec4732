package vault

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usxprotocol/treasury/internal/ledger"
)

// manualClock lets tests move time explicitly.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time        { return c.now }
func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestVault(t *testing.T, period int64) (*StakingVault, ledger.Ledger, *manualClock) {
	t.Helper()
	usx := ledger.NewInMemoryLedger("usx")
	susx := ledger.NewInMemoryLedger("susx")
	clk := &manualClock{now: time.Unix(1_700_000_000, 0)}
	v, err := NewStakingVault(Config{
		Assets:              usx,
		Shares:              susx,
		Account:             "vault",
		StreamPeriodSeconds: period,
		Clock:               clk,
	})
	require.NoError(t, err)
	return v, usx, clk
}

func TestFirstDepositMintsOneToOne(t *testing.T) {
	v, usx, _ := newTestVault(t, 100)
	require.NoError(t, usx.Mint("alice", sdkmath.NewInt(1_000)))

	shares, err := v.Deposit("alice", sdkmath.NewInt(1_000))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), shares)
	assert.Equal(t, sdkmath.NewInt(1_000), v.TotalShares())
	assert.Equal(t, sdkmath.NewInt(1_000), v.TotalAssets())
}

func TestRewardVestingRaisesSharePrice(t *testing.T) {
	v, usx, clk := newTestVault(t, 100)
	require.NoError(t, usx.Mint("alice", sdkmath.NewInt(1_000)))
	_, err := v.Deposit("alice", sdkmath.NewInt(1_000))
	require.NoError(t, err)

	// 500 over 100s streams at 5 per second.
	require.NoError(t, v.NotifyReward(sdkmath.NewInt(500)))

	// Nothing has vested yet; share price is unchanged.
	assert.Equal(t, sdkmath.NewInt(1_000), v.TotalAssets())

	clk.advance(50 * time.Second)
	assert.Equal(t, sdkmath.NewInt(1_250), v.TotalAssets())

	// Redeeming half the shares pays half the vested assets.
	payout, err := v.Redeem("alice", sdkmath.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(625), payout)

	clk.advance(50 * time.Second)
	// Window spent: the remaining 250 of the batch has vested too.
	assert.Equal(t, sdkmath.NewInt(875), v.TotalAssets())
}

func TestUnvestedRewardsExcludedFromDepositPricing(t *testing.T) {
	v, usx, _ := newTestVault(t, 100)
	require.NoError(t, usx.Mint("alice", sdkmath.NewInt(1_000)))
	require.NoError(t, usx.Mint("bob", sdkmath.NewInt(1_000)))
	_, err := v.Deposit("alice", sdkmath.NewInt(1_000))
	require.NoError(t, err)

	require.NoError(t, v.NotifyReward(sdkmath.NewInt(500)))

	// Bob deposits immediately after the batch lands. None of it has vested,
	// so he pays the pre-reward share price and cannot capture the batch.
	shares, err := v.Deposit("bob", sdkmath.NewInt(1_000))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), shares)
}

func TestRewardWithoutStakeIsDeferred(t *testing.T) {
	v, usx, _ := newTestVault(t, 100)

	require.NoError(t, v.NotifyReward(sdkmath.NewInt(777)))

	distributed, undistributed := v.PendingRewards()
	assert.True(t, distributed.IsZero())
	assert.Equal(t, sdkmath.NewInt(777), undistributed)
	assert.True(t, v.TotalAssets().IsZero())

	// The deferred batch starts streaming once stake arrives and the next
	// batch is absorbed.
	require.NoError(t, usx.Mint("alice", sdkmath.NewInt(100)))
	_, err := v.Deposit("alice", sdkmath.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, v.NotifyReward(sdkmath.NewInt(23)))

	_, undistributed = v.PendingRewards()
	assert.Equal(t, sdkmath.NewInt(800), undistributed)
}

func TestAbsorbLossBurnsUpToBalance(t *testing.T) {
	v, usx, _ := newTestVault(t, 100)
	require.NoError(t, usx.Mint("alice", sdkmath.NewInt(300)))
	_, err := v.Deposit("alice", sdkmath.NewInt(300))
	require.NoError(t, err)

	remaining, err := v.AbsorbLoss(sdkmath.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(200), remaining)
	assert.True(t, usx.BalanceOf("vault").IsZero())

	// A loss the vault fully covers leaves nothing unabsorbed.
	require.NoError(t, usx.Mint("vault", sdkmath.NewInt(50)))
	remaining, err = v.AbsorbLoss(sdkmath.NewInt(20))
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())
	assert.Equal(t, sdkmath.NewInt(30), usx.BalanceOf("vault"))
}

func TestFrozenVaultRejectsFlows(t *testing.T) {
	v, usx, _ := newTestVault(t, 100)
	require.NoError(t, usx.Mint("alice", sdkmath.NewInt(100)))
	_, err := v.Deposit("alice", sdkmath.NewInt(50))
	require.NoError(t, err)

	v.Freeze()
	assert.True(t, v.Frozen())

	_, err = v.Deposit("alice", sdkmath.NewInt(10))
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = v.Redeem("alice", sdkmath.NewInt(10))
	assert.ErrorIs(t, err, ErrFrozen)

	v.Unfreeze()
	_, err = v.Deposit("alice", sdkmath.NewInt(10))
	assert.NoError(t, err)
}

func TestDepositValidation(t *testing.T) {
	v, _, _ := newTestVault(t, 100)

	_, err := v.Deposit("alice", sdkmath.ZeroInt())
	assert.ErrorIs(t, err, ErrZeroAmount)
	_, err = v.Deposit("alice", sdkmath.NewInt(-5))
	assert.ErrorIs(t, err, ErrZeroAmount)

	// No balance minted for alice: the transfer must fail and mint nothing.
	_, err = v.Deposit("alice", sdkmath.NewInt(10))
	assert.Error(t, err)
	assert.True(t, v.TotalShares().IsZero())
}
