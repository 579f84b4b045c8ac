package trading

import "errors"

// Sentinel errors for the execution engine. Callers classify with errors.Is;
// business-rule failures are never retried automatically.
var (
	// ErrValidation covers bad caller input: non-positive quantity, missing
	// limit price, unknown instrument or signal.
	ErrValidation = errors.New("validation failed")

	// ErrCapExceeded rejects a limit buy whose notional exceeds the active
	// configuration's per-instrument buy cap.
	ErrCapExceeded = errors.New("limit order exceeds per-instrument buy cap")

	// ErrInsufficientHoldings rejects a sell larger than the current ledger
	// position.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrNegativeHoldings is the ledger's defensive re-check: a sell fill
	// that would drive a holding below zero indicates an upstream
	// consistency bug and must never be applied.
	ErrNegativeHoldings = errors.New("fill would drive holdings negative")

	// ErrOrderNotFound means a fill notification referenced an unknown
	// broker order reference.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidFill covers non-positive fill quantity/price and fills that
	// would overfill the order (duplicate or replayed notifications).
	ErrInvalidFill = errors.New("invalid fill")

	ErrPriceUnavailable     = errors.New("current price unavailable")
	ErrNoAffordableQuantity = errors.New("no affordable quantity at current price")
	ErrNoHoldingsToSell     = errors.New("no holdings to sell")

	ErrNoActiveConfiguration = errors.New("no active trading configuration")
	ErrMissingCredentials    = errors.New("live mode requires credentials")

	ErrGatewayUnavailable = errors.New("broker gateway unavailable")
	ErrGatewayTimeout     = errors.New("broker gateway timeout")
)
