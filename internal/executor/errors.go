package executor

import "errors"

// Execution errors. Each aborts the current trade only; none are retried
// internally except through the caller's retry policy.
var (
	// ErrNoMarketData means curve state could not be read for the mint.
	ErrNoMarketData = errors.New("no market data for mint")

	// ErrCurveComplete means the curve graduated and no longer trades here.
	ErrCurveComplete = errors.New("bonding curve complete")

	// ErrNothingToSell means the holder balance is zero or unavailable.
	ErrNothingToSell = errors.New("nothing to sell")

	// ErrTransactionFailed means the transaction landed with an on-chain
	// error. Terminal; resubmitting the same transaction cannot succeed.
	ErrTransactionFailed = errors.New("transaction failed on-chain")

	// ErrConfirmationUnknown means confirmation polls were exhausted with
	// no definitive outcome. Funds may have moved; callers must not treat
	// this as either success or clean failure.
	ErrConfirmationUnknown = errors.New("transaction outcome unknown")
)
