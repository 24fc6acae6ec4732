package manager

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
)

var ErrInvalidResponse = errors.New("invalid manager response")

// YieldManager is the external allocator collaborator: the strategy that
// holds capital allocated by the treasury and reports its managed balance.
// All calls are synchronous request/acknowledge operations with no retries;
// a failure aborts the triggering treasury operation.
type YieldManager interface {
	// Balance reports the current total managed-asset balance (reserve units).
	Balance(ctx context.Context) (sdkmath.Int, error)

	// NotifyDeposit announces a capital transfer into the manager. The
	// manager must acknowledge the exact amount or the allocation aborts.
	NotifyDeposit(ctx context.Context, amount sdkmath.Int) error

	// NotifyWithdraw requests capital back and returns the amount actually
	// returned. Callers must treat a short return as a hard failure.
	NotifyWithdraw(ctx context.Context, amount sdkmath.Int) (sdkmath.Int, error)
}
