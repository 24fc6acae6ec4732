package engine

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/ledger"
	"github.com/usxprotocol/treasury/internal/treasury"
	"github.com/usxprotocol/treasury/internal/types"
	"github.com/usxprotocol/treasury/internal/vault"
)

type stubManager struct {
	balance sdkmath.Int
	err     error
	calls   int
}

func (m *stubManager) Balance(ctx context.Context) (sdkmath.Int, error) {
	m.calls++
	if m.err != nil {
		return sdkmath.ZeroInt(), m.err
	}
	return m.balance, nil
}

func (m *stubManager) NotifyDeposit(ctx context.Context, amount sdkmath.Int) error {
	return nil
}

func (m *stubManager) NotifyWithdraw(ctx context.Context, amount sdkmath.Int) (sdkmath.Int, error) {
	return amount, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestEngine(t *testing.T, mgr *stubManager) (*Engine, *treasury.Treasury) {
	t.Helper()

	reserve := ledger.NewInMemoryLedger("usdc")
	deposit := ledger.NewInMemoryLedger("usx")
	shares := ledger.NewInMemoryLedger("susx")

	gate := auth.NewStaticGate()
	gate.Grant("report_engine", auth.RoleReporter)

	clk := fixedClock{now: time.Unix(1_700_000_000, 0)}

	sv, err := vault.NewStakingVault(vault.Config{
		Assets:              deposit,
		Shares:              shares,
		Account:             "staking_vault",
		StreamPeriodSeconds: 3600,
		Clock:               clk,
	})
	require.NoError(t, err)

	tr, err := treasury.New(treasury.Config{
		Reserve: reserve,
		Deposit: deposit,
		Vault:   sv,
		Manager: mgr,
		Gate:    gate,
		Clock:   clk,
		Accounts: treasury.Accounts{
			Reserve: "treasury_reserve",
			Manager: "external_manager",
			Buffer:  "insurance_buffer",
			FeeSink: "fee_sink",
			Escrow:  "withdrawal_escrow",
		},
		Params: types.ProtocolParameters{
			FeePPM:                100_000,
			BufferTargetPPM:       50_000,
			BufferRenewalPPM:      250_000,
			MaxLeveragePPM:        500_000,
			WithdrawFeePPM:        10_000,
			MaturityPeriodSeconds: 86_400,
			EpochLengthSeconds:    3600,
		},
		Bounds: types.ParameterBounds{
			MaxFeePPM:           200_000,
			MaxBufferTargetPPM:  100_000,
			MaxBufferRenewalPPM: 500_000,
			MaxLeverageCapPPM:   1_000_000,
			MaxWithdrawFeePPM:   50_000,
		},
	})
	require.NoError(t, err)

	eng, err := NewEngine(Config{
		Manager:       mgr,
		Treasury:      tr,
		ReporterID:    "report_engine",
		ConfigName:    DEFAULT_PARAMS_CONFIG_NAME,
		ConfigVersion: DEFAULT_PARAMS_CONFIG_VERSION,
	})
	require.NoError(t, err)
	return eng, tr
}

func TestRunCycleRoutesBalanceDelta(t *testing.T) {
	mgr := &stubManager{balance: sdkmath.NewInt(1_000)}
	eng, tr := newTestEngine(t, mgr)

	eng.RunCycle(context.Background())

	assert.Equal(t, uint64(1), tr.Epoch())
	assert.Equal(t, sdkmath.NewInt(1_000), tr.AllocatedToManager())
	assert.Equal(t, types.StatusNormal, tr.Status())
}

func TestRunCycleWithholdsUnchangedBalance(t *testing.T) {
	mgr := &stubManager{balance: sdkmath.NewInt(1_000)}
	eng, tr := newTestEngine(t, mgr)

	eng.RunCycle(context.Background())
	require.Equal(t, uint64(1), tr.Epoch())

	// Same balance again: no report, no epoch advance.
	eng.RunCycle(context.Background())
	assert.Equal(t, uint64(1), tr.Epoch())

	// A changed balance resumes reporting.
	mgr.balance = sdkmath.NewInt(1_200)
	eng.RunCycle(context.Background())
	assert.Equal(t, uint64(2), tr.Epoch())
	assert.Equal(t, sdkmath.NewInt(1_200), tr.AllocatedToManager())
}

func TestRunCycleAbortsOnManagerFailure(t *testing.T) {
	mgr := &stubManager{balance: sdkmath.NewInt(1_000), err: context.DeadlineExceeded}
	eng, tr := newTestEngine(t, mgr)

	eng.RunCycle(context.Background())

	assert.Equal(t, uint64(0), tr.Epoch())
	assert.True(t, tr.AllocatedToManager().IsZero())
	assert.Equal(t, 1, mgr.calls)
}

func TestNewEngineValidation(t *testing.T) {
	mgr := &stubManager{balance: sdkmath.ZeroInt()}
	_, tr := newTestEngine(t, mgr)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"nil manager", Config{Treasury: tr, ReporterID: "r", ConfigName: "c", ConfigVersion: 1}},
		{"nil treasury", Config{Manager: mgr, ReporterID: "r", ConfigName: "c", ConfigVersion: 1}},
		{"empty reporter", Config{Manager: mgr, Treasury: tr, ConfigName: "c", ConfigVersion: 1}},
		{"empty config name", Config{Manager: mgr, Treasury: tr, ReporterID: "r", ConfigVersion: 1}},
		{"zero version", Config{Manager: mgr, Treasury: tr, ReporterID: "r", ConfigName: "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.cfg)
			assert.Error(t, err)
		})
	}
}
