package walletd

import "errors"

// Lifecycle precondition failures. Engine-reported failures travel as
// walletif.ErrorCode instead.
var (
	ErrWalletNotOpen      = errors.New("no wallet is open")
	ErrWalletAlreadyOpen  = errors.New("a wallet is already open")
	ErrNotLegacyWallet    = errors.New("wallet file is not a legacy key file")
	ErrCoordinatorStopped = errors.New("coordinator is stopped")
)
