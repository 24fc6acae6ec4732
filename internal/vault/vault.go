/*

This file contains the staking vault: a share-based wrapper over the deposit
token that streams protocol profits to holders over time.

Stakers deposit USX and receive sUSX shares at the current share price. The
share price is TotalAssets/TotalShares, where TotalAssets is the vault's USX
balance minus the unvested portion of the reward stream. Excluding unvested
rewards means a depositor cannot buy in just before a reward batch vests and
capture value that belongs to earlier stakers.

Rewards arrive as discrete batches and vest linearly through the same
scheduler the treasury uses for its staker stream. Losses routed here burn
vault-held USX directly, which lowers the share price for all holders at once.

*/

package vault

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/usxprotocol/treasury/internal/clock"
	"github.com/usxprotocol/treasury/internal/ledger"
	"github.com/usxprotocol/treasury/internal/logger"
	"github.com/usxprotocol/treasury/internal/rewards"
	"github.com/usxprotocol/treasury/internal/utils"
)

var (
	ErrFrozen          = errors.New("vault is frozen")
	ErrZeroAmount      = errors.New("amount must be positive")
	ErrZeroShares      = errors.New("redemption yields zero assets")
	ErrInvalidConfig   = errors.New("vault configuration is invalid")
	ErrNoShareIssuance = errors.New("deposit yields zero shares")
)

// Config carries the collaborators a staking vault needs. All fields are
// required.
type Config struct {
	// Assets is the deposit-token ledger (USX).
	Assets ledger.Ledger
	// Shares is the staking-share ledger (sUSX). The vault is its sole minter.
	Shares ledger.Ledger
	// Account is the vault's own asset account; deposits and rewards land here.
	Account string
	// StreamPeriodSeconds is the vesting window for each absorbed reward batch.
	StreamPeriodSeconds int64
	Clock               clock.Clock
}

func (c Config) validate() error {
	if c.Assets == nil {
		return fmt.Errorf("%w: asset ledger is nil", ErrInvalidConfig)
	}
	if c.Shares == nil {
		return fmt.Errorf("%w: share ledger is nil", ErrInvalidConfig)
	}
	if c.Account == "" {
		return fmt.Errorf("%w: vault account is empty", ErrInvalidConfig)
	}
	if c.StreamPeriodSeconds <= 0 {
		return fmt.Errorf("%w: stream period must be positive", ErrInvalidConfig)
	}
	if c.Clock == nil {
		return fmt.Errorf("%w: clock is nil", ErrInvalidConfig)
	}
	return nil
}

// StakingVault is the sUSX aggregate. All mutating entry points serialize on
// the internal mutex; reads take the same lock so they observe a consistent
// snapshot of schedule plus ledgers.
type StakingVault struct {
	mu sync.Mutex

	assets   ledger.Ledger
	shares   ledger.Ledger
	account  string
	period   int64
	clk      clock.Clock
	schedule rewards.Schedule
	frozen   bool

	log zerolog.Logger
}

// NewStakingVault constructs a vault with an empty reward schedule.
func NewStakingVault(cfg Config) (*StakingVault, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &StakingVault{
		assets:   cfg.Assets,
		shares:   cfg.Shares,
		account:  cfg.Account,
		period:   cfg.StreamPeriodSeconds,
		clk:      cfg.Clock,
		schedule: rewards.NewSchedule(),
		log:      logger.GetForComponent("staking_vault"),
	}, nil
}

// totalAssets is the share-price numerator: vault-held USX minus the
// unvested tail of the reward stream. Callers must hold the mutex.
func (v *StakingVault) totalAssets(now int64) sdkmath.Int {
	_, undistributed := v.schedule.Pending(now)
	assets := v.assets.BalanceOf(v.account).Sub(undistributed)
	if assets.IsNegative() {
		// A loss burn can eat into the unvested tail; the floor for share
		// pricing is zero, not a negative backing.
		return sdkmath.ZeroInt()
	}
	return assets
}

// TotalAssets reports the assets currently backing shares.
func (v *StakingVault) TotalAssets() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalAssets(v.clk.Now().Unix())
}

// TotalShares reports the sUSX supply.
func (v *StakingVault) TotalShares() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shares.TotalSupply()
}

// Deposit moves USX from the staker into the vault and mints shares at the
// current share price. The first deposit mints shares one to one.
func (v *StakingVault) Deposit(staker string, amount sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.frozen {
		return sdkmath.ZeroInt(), ErrFrozen
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), ErrZeroAmount
	}

	now := v.clk.Now().Unix()
	supply := v.shares.TotalSupply()

	minted := amount
	if supply.IsPositive() {
		assets := v.totalAssets(now)
		if !assets.IsPositive() {
			// Shares exist but back nothing; pricing a deposit is impossible.
			return sdkmath.ZeroInt(), fmt.Errorf("%w: shares outstanding with zero backing", ErrNoShareIssuance)
		}
		var err error
		minted, err = utils.MulDivFloor(amount, supply, assets)
		if err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("share pricing: %w", err)
		}
	}
	if minted.IsZero() {
		return sdkmath.ZeroInt(), ErrNoShareIssuance
	}

	if err := v.assets.Transfer(staker, v.account, amount); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("deposit transfer failed: %w", err)
	}
	if err := v.shares.Mint(staker, minted); err != nil {
		// Undo the asset move so a share-mint failure leaves no trace.
		if undoErr := v.assets.Transfer(v.account, staker, amount); undoErr != nil {
			v.log.Error().Err(undoErr).Msg("Failed to unwind deposit transfer")
		}
		return sdkmath.ZeroInt(), fmt.Errorf("share mint failed: %w", err)
	}

	v.log.Info().
		Str("staker", staker).
		Str("amount", amount.String()).
		Str("shares", minted.String()).
		Msg("Deposit accepted")
	return minted, nil
}

// Redeem burns the staker's shares and pays out USX at the current share
// price, rounding the payout down.
func (v *StakingVault) Redeem(staker string, shareAmount sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.frozen {
		return sdkmath.ZeroInt(), ErrFrozen
	}
	if shareAmount.IsNil() || !shareAmount.IsPositive() {
		return sdkmath.ZeroInt(), ErrZeroAmount
	}

	now := v.clk.Now().Unix()
	supply := v.shares.TotalSupply()
	if !supply.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: no shares outstanding", ledger.ErrInsufficientBalance)
	}

	payout, err := utils.MulDivFloor(shareAmount, v.totalAssets(now), supply)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("redemption pricing: %w", err)
	}
	if payout.IsZero() {
		return sdkmath.ZeroInt(), ErrZeroShares
	}

	if err := v.shares.Burn(staker, shareAmount); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("share burn failed: %w", err)
	}
	if err := v.assets.Transfer(v.account, staker, payout); err != nil {
		if undoErr := v.shares.Mint(staker, shareAmount); undoErr != nil {
			v.log.Error().Err(undoErr).Msg("Failed to unwind share burn")
		}
		return sdkmath.ZeroInt(), fmt.Errorf("redemption payout failed: %w", err)
	}

	v.log.Info().
		Str("staker", staker).
		Str("shares", shareAmount.String()).
		Str("payout", payout.String()).
		Msg("Redemption paid")
	return payout, nil
}

// NotifyReward mints a profit batch into the vault and folds it into the
// reward stream. With no stake outstanding the batch is deferred in full.
func (v *StakingVault) NotifyReward(amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.IsNil() || amount.IsNegative() {
		return ErrZeroAmount
	}
	if amount.IsZero() {
		return nil
	}

	now := v.clk.Now().Unix()
	hasStake := v.shares.TotalSupply().IsPositive()

	if err := v.assets.Mint(v.account, amount); err != nil {
		return fmt.Errorf("reward mint failed: %w", err)
	}
	if err := v.schedule.Absorb(amount, v.period, now, hasStake); err != nil {
		if undoErr := v.assets.Burn(v.account, amount); undoErr != nil {
			v.log.Error().Err(undoErr).Msg("Failed to unwind reward mint")
		}
		return fmt.Errorf("reward absorb failed: %w", err)
	}

	v.log.Info().
		Str("amount", amount.String()).
		Bool("has_stake", hasStake).
		Msg("Reward batch absorbed")
	return nil
}

// AbsorbLoss burns vault-held USX to cover a loss and returns the portion it
// could not cover. The burn is capped at the vault's balance so the call
// never fails on an oversized loss.
func (v *StakingVault) AbsorbLoss(amount sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrZeroAmount
	}
	if amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	held := v.assets.BalanceOf(v.account)
	burn := amount
	if burn.GT(held) {
		burn = held
	}
	if burn.IsPositive() {
		if err := v.assets.Burn(v.account, burn); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("loss burn failed: %w", err)
		}
	}
	remaining := amount.Sub(burn)

	v.log.Warn().
		Str("loss", amount.String()).
		Str("burned", burn.String()).
		Str("unabsorbed", remaining.String()).
		Msg("Loss routed through staking vault")
	return remaining, nil
}

// PendingRewards reports the vested/unvested split of the reward stream.
func (v *StakingVault) PendingRewards() (distributed, undistributed sdkmath.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.schedule.Pending(v.clk.Now().Unix())
}

// Freeze halts deposits and redemptions.
func (v *StakingVault) Freeze() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.frozen {
		v.frozen = true
		v.log.Warn().Msg("Vault frozen")
	}
}

// Unfreeze resumes deposits and redemptions.
func (v *StakingVault) Unfreeze() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frozen {
		v.frozen = false
		v.log.Info().Msg("Vault unfrozen")
	}
}

// Frozen reports whether deposits and redemptions are halted.
func (v *StakingVault) Frozen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frozen
}
