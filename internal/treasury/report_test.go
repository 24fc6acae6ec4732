package treasury

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/types"
)

func TestProfitReportSplitsAndConserves(t *testing.T) {
	f := newFixture(t)
	// Supply on the books so the buffer target is positive and accrual runs.
	require.NoError(t, f.deposit.Mint("alice", usx(10_000)))

	outcome, err := f.treasury.Report(reporter, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	assert.Equal(t, types.ReportPathProfit, outcome.Path)
	assert.Equal(t, usx(1_000).String(), outcome.Routing.GrossProfit)
	assert.Equal(t, usx(250).String(), outcome.Routing.InsuranceAccrual) // 25% renewal
	assert.Equal(t, usx(100).String(), outcome.Routing.ProtocolFee)      // 10% fee
	assert.Equal(t, usx(650).String(), outcome.Routing.StakerShare)      // remainder

	// The minted pieces land where the breakdown says and sum to the profit.
	assert.Equal(t, usx(250), f.deposit.BalanceOf("insurance_buffer"))
	assert.Equal(t, usx(100), f.deposit.BalanceOf("fee_sink"))
	assert.Equal(t, usx(650), f.deposit.BalanceOf("vault"))
	assert.Equal(t, usx(11_000), f.deposit.TotalSupply())

	assert.Equal(t, types.StatusNormal, f.treasury.Status())
	assert.Equal(t, uint64(1), f.treasury.Epoch())
	assert.Equal(t, sdkmath.NewInt(1_000), f.treasury.AllocatedToManager())
}

func TestProfitSkipsBufferAtTarget(t *testing.T) {
	f := newFixture(t)
	// Buffer already holds far more than 5% of supply.
	require.NoError(t, f.deposit.Mint("insurance_buffer", usx(10_000)))

	outcome, err := f.treasury.Report(reporter, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	assert.Equal(t, "0", outcome.Routing.InsuranceAccrual)
	assert.Equal(t, usx(100).String(), outcome.Routing.ProtocolFee)
	assert.Equal(t, usx(900).String(), outcome.Routing.StakerShare)
	assert.Equal(t, usx(10_000), f.deposit.BalanceOf("insurance_buffer"))
}

func TestLossDrainsBufferThenVault(t *testing.T) {
	f := newFixture(t)
	f.seedAllocation(t, 500)
	require.NoError(t, f.deposit.Mint("insurance_buffer", usx(300)))
	require.NoError(t, f.deposit.Mint("vault", usx(250)))

	outcome, err := f.treasury.Report(reporter, sdkmath.ZeroInt())
	require.NoError(t, err)

	assert.Equal(t, types.ReportPathLoss, outcome.Path)
	assert.Equal(t, usx(500).String(), outcome.Routing.GrossLoss)
	assert.Equal(t, usx(300).String(), outcome.Routing.BufferSlashed)
	assert.Equal(t, usx(200).String(), outcome.Routing.VaultBurned)
	assert.Equal(t, "0", outcome.Routing.Unabsorbed)

	assert.True(t, f.deposit.BalanceOf("insurance_buffer").IsZero())
	assert.Equal(t, usx(50), f.deposit.BalanceOf("vault"))
	// The reserve-ledger mirror shrank with the loss, staying equal to the
	// (now zero) allocation.
	assert.True(t, f.reserve.BalanceOf("external_manager").IsZero())
	assert.Equal(t, types.StatusLossAbsorbing, f.treasury.Status())
	assert.Equal(t, uint64(1), f.treasury.Epoch())
	// Buffer plus vault covered everything: peg untouched, nothing frozen.
	assert.Equal(t, sdkmath.LegacyOneDec(), f.treasury.Peg())
	assert.False(t, f.vault.Frozen())
}

func TestBufferAloneAbsorbsSmallLoss(t *testing.T) {
	f := newFixture(t)
	f.seedAllocation(t, 500)
	require.NoError(t, f.deposit.Mint("insurance_buffer", usx(300)))

	outcome, err := f.treasury.Report(reporter, sdkmath.NewInt(400))
	require.NoError(t, err)

	assert.Equal(t, usx(100).String(), outcome.Routing.BufferSlashed)
	assert.Equal(t, "0", outcome.Routing.VaultBurned)
	assert.Equal(t, usx(200), f.deposit.BalanceOf("insurance_buffer"))
	// The buffer covered the loss in full; the engine never leaves Normal.
	assert.Equal(t, types.StatusNormal, f.treasury.Status())
}

func TestUnabsorbedLossBreaksPegAndFreezes(t *testing.T) {
	f := newFixture(t)
	f.seedAllocation(t, 500)
	require.NoError(t, f.deposit.Mint("alice", usx(1_000)))
	require.NoError(t, f.deposit.Mint("insurance_buffer", usx(300)))
	require.NoError(t, f.deposit.Mint("vault", usx(150)))

	outcome, err := f.treasury.Report(reporter, sdkmath.ZeroInt())
	require.NoError(t, err)

	assert.Equal(t, usx(300).String(), outcome.Routing.BufferSlashed)
	assert.Equal(t, usx(150).String(), outcome.Routing.VaultBurned)
	assert.Equal(t, usx(50).String(), outcome.Routing.Unabsorbed)
	assert.Equal(t, types.StatusFrozen, f.treasury.Status())
	assert.True(t, f.vault.Frozen())
	assert.True(t, f.treasury.Peg().LT(sdkmath.LegacyOneDec()))

	// Frozen is sticky: reports and deposit-token flows keep failing.
	_, err = f.treasury.Report(reporter, sdkmath.NewInt(500))
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = f.treasury.RequestWithdrawal("alice", usx(10))
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestProfitRecoversFromLossAbsorbing(t *testing.T) {
	f := newFixture(t)
	f.seedAllocation(t, 500)
	require.NoError(t, f.deposit.Mint("vault", usx(300)))

	_, err := f.treasury.Report(reporter, sdkmath.NewInt(300))
	require.NoError(t, err)
	require.Equal(t, types.StatusLossAbsorbing, f.treasury.Status())

	_, err = f.treasury.Report(reporter, sdkmath.NewInt(350))
	require.NoError(t, err)
	assert.Equal(t, types.StatusNormal, f.treasury.Status())
	assert.Equal(t, uint64(2), f.treasury.Epoch())
	// Recovery recomputes the peg but never lets it rise above par.
	assert.True(t, f.treasury.Peg().LTE(sdkmath.LegacyOneDec()))
}

func TestUnchangedReportRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.treasury.Report(reporter, sdkmath.ZeroInt())
	assert.ErrorIs(t, err, ErrUnchangedReport)
	assert.Equal(t, uint64(0), f.treasury.Epoch())

	f.treasury.allocated = sdkmath.NewInt(750)
	_, err = f.treasury.Report(reporter, sdkmath.NewInt(750))
	assert.ErrorIs(t, err, ErrUnchangedReport)
}

func TestReportValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.treasury.Report(reporter, sdkmath.NewInt(-1))
	assert.ErrorIs(t, err, ErrZeroAmount)
	_, err = f.treasury.Report(reporter, sdkmath.Int{})
	assert.ErrorIs(t, err, ErrZeroAmount)
	_, err = f.treasury.Report("nobody", sdkmath.NewInt(100))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestUnfreezeIsGovernanceOnly(t *testing.T) {
	f := newFixture(t)
	f.seedAllocation(t, 500)
	require.NoError(t, f.deposit.Mint("alice", usx(400)))

	_, err := f.treasury.Report(reporter, sdkmath.ZeroInt())
	require.NoError(t, err)
	require.Equal(t, types.StatusFrozen, f.treasury.Status())

	assert.ErrorIs(t, f.treasury.Unfreeze(reporter), auth.ErrUnauthorized)
	require.NoError(t, f.treasury.Unfreeze(governor))
	assert.Equal(t, types.StatusNormal, f.treasury.Status())
	assert.False(t, f.vault.Frozen())

	assert.ErrorIs(t, f.treasury.Unfreeze(governor), ErrNotFrozen)
}
