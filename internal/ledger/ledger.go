package ledger

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrEmptyAccount        = errors.New("account cannot be empty")
	ErrAmountNil           = errors.New("amount is nil")
	ErrAmountNegative      = errors.New("amount is negative")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger is the fungible-token collaborator: mint/burn/transfer/balance
// bookkeeping for one denomination. Implementations must fail loudly and
// never partially apply a single operation.
type Ledger interface {
	// Mint credits newly created units to an account.
	Mint(to string, amount sdkmath.Int) error

	// Burn destroys units held by an account.
	Burn(from string, amount sdkmath.Int) error

	// Transfer moves units between accounts.
	Transfer(from, to string, amount sdkmath.Int) error

	// BalanceOf returns the balance of an account (zero if unknown).
	BalanceOf(account string) sdkmath.Int

	// TotalSupply returns the total minted-minus-burned supply.
	TotalSupply() sdkmath.Int
}
