package executor

import (
	"context"
	"time"

	"github.com/fpolica91/Solana-Bots/internal/observability"
)

// Outcome is the three-valued result of confirmation polling. Unknown is
// distinct from Rejected: after Unknown the funds may or may not have moved.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeConfirmed
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Default confirmation parameters.
const (
	DefaultConfirmRetries  = 7
	DefaultConfirmInterval = 2 * time.Second
)

// Confirm polls the ledger for a transaction's outcome up to maxRetries
// times, sleeping interval between polls.
//
// A transaction that landed without error confirms. One that landed with an
// error is rejected immediately: an on-chain error is terminal, not
// transient. No record yet, or a transient poll failure, retries. Exhausted
// retries yield Unknown.
func (e *Executor) Confirm(ctx context.Context, signature string) (Outcome, error) {
	for attempt := 1; ; attempt++ {
		observability.RecordConfirmationPoll()

		tx, err := e.rpc.GetTransaction(ctx, signature)
		switch {
		case err != nil:
			e.log.WithField("sig", signature).WithError(err).Debug("outcome poll failed")
		case tx == nil:
			// Not landed yet.
		case tx.Failed():
			return OutcomeRejected, nil
		default:
			return OutcomeConfirmed, nil
		}

		if attempt >= e.confirmRetries {
			observability.RecordConfirmationUnknown()
			return OutcomeUnknown, nil
		}

		select {
		case <-ctx.Done():
			return OutcomeUnknown, ctx.Err()
		case <-time.After(e.confirmInterval):
		}
	}
}
