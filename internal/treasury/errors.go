package treasury

import "errors"

// Error definitions for zero-tolerance error handling. Every mutating entry
// point is all-or-nothing: any of these aborts the call with no partial state
// retained.
var (
	// Configuration errors.
	ErrInvalidConfig       = errors.New("treasury configuration is invalid")
	ErrFractionOutOfBounds = errors.New("fraction is outside governance bounds")
	ErrInvalidPeriod       = errors.New("period must be positive")

	// State errors.
	ErrFrozen           = errors.New("treasury is frozen")
	ErrNotFrozen        = errors.New("treasury is not frozen")
	ErrUnchangedReport  = errors.New("reported balance is unchanged")
	ErrZeroAmount       = errors.New("amount must be positive")
	ErrUnknownRequest   = errors.New("withdrawal request does not exist")
	ErrAlreadyClaimed   = errors.New("withdrawal request already claimed")
	ErrNotMatured       = errors.New("withdrawal request has not matured")
	ErrEpochNotAdvanced = errors.New("no epoch boundary has passed since the request")
	ErrNotRequester     = errors.New("caller is not the requester")

	// Allocation errors.
	ErrLeverageExceeded    = errors.New("allocation would exceed the leverage cap")
	ErrInsufficientReserve = errors.New("treasury reserve holdings are insufficient")
	ErrExceedsAllocation   = errors.New("amount exceeds allocated capital")
	ErrAckMismatch         = errors.New("manager acknowledgement does not match request")
)
