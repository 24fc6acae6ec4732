package treasury

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/ledger"
	"github.com/usxprotocol/treasury/internal/types"
	"github.com/usxprotocol/treasury/internal/vault"
)

const (
	governor = "gov"
	reporter = "rep"
)

// usx scales a whole number of reserve units into deposit-token units, the
// same 6-to-18 decimal rescale the waterfall performs.
func usx(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(sdkmath.NewInt(1_000_000_000_000))
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeManager is an in-process yield manager that always acknowledges, with
// knobs to refuse deposits or return short on withdrawals.
type fakeManager struct {
	balance    sdkmath.Int
	depositErr error
	shortBy    sdkmath.Int
}

func newFakeManager() *fakeManager {
	return &fakeManager{balance: sdkmath.ZeroInt(), shortBy: sdkmath.ZeroInt()}
}

func (m *fakeManager) Balance(context.Context) (sdkmath.Int, error) {
	return m.balance, nil
}

func (m *fakeManager) NotifyDeposit(_ context.Context, amount sdkmath.Int) error {
	if m.depositErr != nil {
		return m.depositErr
	}
	m.balance = m.balance.Add(amount)
	return nil
}

func (m *fakeManager) NotifyWithdraw(_ context.Context, amount sdkmath.Int) (sdkmath.Int, error) {
	returned := amount.Sub(m.shortBy)
	m.balance = m.balance.Sub(returned)
	return returned, nil
}

type fixture struct {
	treasury *Treasury
	vault    *vault.StakingVault
	reserve  ledger.Ledger
	deposit  ledger.Ledger
	manager  *fakeManager
	clock    *manualClock
}

func testParams() types.ProtocolParameters {
	return types.ProtocolParameters{
		FeePPM:                100_000, // 10%
		BufferTargetPPM:       50_000,  // 5% of deposit supply
		BufferRenewalPPM:      250_000, // 25% of profit while below target
		MaxLeveragePPM:        500_000, // 50% of net deposits
		WithdrawFeePPM:        10_000,  // 1%
		MaturityPeriodSeconds: 86_400,
		EpochLengthSeconds:    2_592_000,
	}
}

func testBounds() types.ParameterBounds {
	return types.ParameterBounds{
		MaxFeePPM:           200_000,
		MaxBufferTargetPPM:  100_000,
		MaxBufferRenewalPPM: 500_000,
		MaxLeverageCapPPM:   1_000_000,
		MaxWithdrawFeePPM:   50_000,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reserve := ledger.NewInMemoryLedger("usdc")
	deposit := ledger.NewInMemoryLedger("usx")
	shares := ledger.NewInMemoryLedger("susx")
	clk := &manualClock{now: time.Unix(1_700_000_000, 0)}

	sv, err := vault.NewStakingVault(vault.Config{
		Assets:              deposit,
		Shares:              shares,
		Account:             "vault",
		StreamPeriodSeconds: testParams().EpochLengthSeconds,
		Clock:               clk,
	})
	require.NoError(t, err)

	gate := auth.NewStaticGate()
	gate.Grant(governor, auth.RoleGovernance)
	gate.Grant(reporter, auth.RoleReporter)

	mgr := newFakeManager()
	tr, err := New(Config{
		Reserve: reserve,
		Deposit: deposit,
		Vault:   sv,
		Manager: mgr,
		Gate:    gate,
		Clock:   clk,
		Accounts: Accounts{
			Reserve: "treasury_reserve",
			Manager: "external_manager",
			Buffer:  "insurance_buffer",
			FeeSink: "fee_sink",
			Escrow:  "withdrawal_escrow",
		},
		Params: testParams(),
		Bounds: testBounds(),
	})
	require.NoError(t, err)

	return &fixture{
		treasury: tr,
		vault:    sv,
		reserve:  reserve,
		deposit:  deposit,
		manager:  mgr,
		clock:    clk,
	}
}

// seedAllocation puts capital with the manager the way a completed Allocate
// leaves the books: allocated, its reserve-ledger mirror and the manager's
// own balance all in step.
func (f *fixture) seedAllocation(t *testing.T, amount int64) {
	t.Helper()
	require.NoError(t, f.reserve.Mint("external_manager", sdkmath.NewInt(amount)))
	f.treasury.allocated = sdkmath.NewInt(amount)
	f.manager.balance = sdkmath.NewInt(amount)
}
