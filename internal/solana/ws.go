package solana

import "context"

// WSClient is the feed-side collaborator: a logs subscription over the
// Solana websocket RPC.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter. The
	// returned channel stays open across reconnects and closes only when
	// the client shuts down.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the connection and all subscription channels.
	Close() error
}

// LogsFilter selects which transaction logs to receive.
type LogsFilter struct {
	// Mentions filters logs mentioning this address (one per subscription;
	// most providers reject multi-address mentions filters).
	Mentions []string

	// Commitment level for notifications; defaults to "confirmed".
	Commitment string
}

// LogNotification is one logsSubscribe message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{} // non-nil when the observed transaction failed
}
