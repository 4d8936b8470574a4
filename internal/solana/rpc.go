package solana

import "context"

// RPCClient is the ledger-side collaborator: account reads, balance reads,
// blockhash fetch, transaction submission and outcome lookup.
type RPCClient interface {
	// GetAccountInfo retrieves raw account data by pubkey.
	// Returns nil when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountBalance returns the raw token balance of a token
	// account. A missing account yields (0, nil).
	GetTokenAccountBalance(ctx context.Context, account string) (uint64, error)

	// GetLatestBlockhash returns the most recent blockhash usable as a
	// transaction recency reference.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SendTransaction submits a signed, base64-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetTransaction retrieves a processed transaction by signature.
	// Returns nil when the ledger has no record of it yet.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// AccountInfo is raw Solana account state.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded account data
	Executable bool
}

// Transaction is a ledger-confirmed transaction outcome.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64
	Meta      *TransactionMeta
}

// TransactionMeta carries the nullable on-chain error.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// Failed reports whether the transaction landed with an on-chain error.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}
