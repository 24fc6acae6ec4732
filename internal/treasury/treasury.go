/*

This file contains the Treasury aggregate root.

The treasury owns the insurance buffer, the leverage allocator, the peg state,
the withdrawal queue and the profit/loss engine. The staking vault is a
collaborator: profits stream into it, unabsorbed losses burn from it, and a
peg-breaking loss freezes it together with the treasury.

Units: the reserve asset carries 6 decimals and the deposit token (USX)
carries 18. Manager balances and treasury reserve holdings are reserve units;
everything routed through the waterfall is rescaled to USX units first, which
is exact because scaling up multiplies by a power of ten.

Every mutating entry point serializes on one mutex and is all-or-nothing.
Views take the same lock so they observe a consistent snapshot.

*/

package treasury

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/clock"
	"github.com/usxprotocol/treasury/internal/ledger"
	"github.com/usxprotocol/treasury/internal/logger"
	"github.com/usxprotocol/treasury/internal/manager"
	"github.com/usxprotocol/treasury/internal/types"
	"github.com/usxprotocol/treasury/internal/vault"
)

const (
	// ReserveDecimals is the decimal precision of the reserve asset.
	ReserveDecimals = 6
	// DepositDecimals is the decimal precision of the deposit token.
	DepositDecimals = 18
)

// Accounts names the ledger accounts the treasury operates.
type Accounts struct {
	// Reserve holds the treasury's un-allocated reserve asset.
	Reserve string
	// Manager mirrors the capital held by the external yield manager. Reports
	// grow and shrink it alongside the allocation, so the mirror always equals
	// allocated and the reserve ledger accounts for every unit.
	Manager string
	// Buffer holds the insurance buffer, in deposit-token units.
	Buffer string
	// FeeSink receives protocol fees and withdrawal fees.
	FeeSink string
	// Escrow holds deposit tokens locked behind pending withdrawal requests.
	Escrow string
}

func (a Accounts) validate() error {
	named := map[string]string{
		"reserve":  a.Reserve,
		"manager":  a.Manager,
		"buffer":   a.Buffer,
		"fee sink": a.FeeSink,
		"escrow":   a.Escrow,
	}
	seen := make(map[string]string, len(named))
	for name, account := range named {
		if account == "" {
			return fmt.Errorf("%w: %s account is empty", ErrInvalidConfig, name)
		}
		if other, dup := seen[account]; dup {
			return fmt.Errorf("%w: %s and %s accounts collide on %q", ErrInvalidConfig, other, name, account)
		}
		seen[account] = name
	}
	return nil
}

// Config carries every collaborator and the initial governance parameters.
type Config struct {
	Reserve  ledger.Ledger
	Deposit  ledger.Ledger
	Vault    *vault.StakingVault
	Manager  manager.YieldManager
	Gate     auth.Gate
	Clock    clock.Clock
	Accounts Accounts
	Params   types.ProtocolParameters
	Bounds   types.ParameterBounds
}

func (c Config) validate() error {
	if c.Reserve == nil {
		return fmt.Errorf("%w: reserve ledger is nil", ErrInvalidConfig)
	}
	if c.Deposit == nil {
		return fmt.Errorf("%w: deposit ledger is nil", ErrInvalidConfig)
	}
	if c.Vault == nil {
		return fmt.Errorf("%w: staking vault is nil", ErrInvalidConfig)
	}
	if c.Manager == nil {
		return fmt.Errorf("%w: yield manager is nil", ErrInvalidConfig)
	}
	if c.Gate == nil {
		return fmt.Errorf("%w: access gate is nil", ErrInvalidConfig)
	}
	if c.Clock == nil {
		return fmt.Errorf("%w: clock is nil", ErrInvalidConfig)
	}
	if err := c.Accounts.validate(); err != nil {
		return err
	}
	if err := validateParameters(c.Params, c.Bounds); err != nil {
		return err
	}
	return nil
}

// Treasury is the aggregate root. Zero value is not usable; construct with
// New.
type Treasury struct {
	mu sync.Mutex

	reserve  ledger.Ledger
	deposit  ledger.Ledger
	vault    *vault.StakingVault
	manager  manager.YieldManager
	gate     auth.Gate
	clk      clock.Clock
	accounts Accounts

	params types.ProtocolParameters
	bounds types.ParameterBounds

	status    types.TreasuryStatus
	epoch     uint64
	allocated sdkmath.Int
	peg       sdkmath.LegacyDec

	nextWithdrawalID uint64
	withdrawals      map[uint64]*types.WithdrawalRequest
	withdrawalOrder  []uint64

	log zerolog.Logger
}

// New constructs a treasury in the Normal state with nothing allocated and
// the peg at exactly 1.0.
func New(cfg Config) (*Treasury, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Treasury{
		reserve:          cfg.Reserve,
		deposit:          cfg.Deposit,
		vault:            cfg.Vault,
		manager:          cfg.Manager,
		gate:             cfg.Gate,
		clk:              cfg.Clock,
		accounts:         cfg.Accounts,
		params:           cfg.Params,
		bounds:           cfg.Bounds,
		status:           types.StatusNormal,
		allocated:        sdkmath.ZeroInt(),
		peg:              sdkmath.LegacyOneDec(),
		nextWithdrawalID: 1,
		withdrawals:      make(map[uint64]*types.WithdrawalRequest),
		log:              logger.GetForComponent("treasury"),
	}, nil
}
