// Package stub provides in-memory test doubles for the ledger and wallet
// collaborators.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// RPCClient implements solana.RPCClient backed by maps. All mutators are
// safe for concurrent use with the interface methods.
type RPCClient struct {
	mu sync.Mutex

	Accounts      map[string]*solana.AccountInfo
	TokenBalances map[string]uint64
	Transactions  map[string]*solana.Transaction
	Blockhash     string

	// TxPollsBefore delays GetTransaction visibility: the first N polls for
	// a signature return "not found" even when the transaction is present.
	TxPollsBefore map[string]int
	pollCounts    map[string]int

	// Errors force the next call of a method to fail.
	Errs map[string]error
}

// NewRPCClient creates an empty stub ledger.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenBalances: make(map[string]uint64),
		Transactions:  make(map[string]*solana.Transaction),
		Blockhash:     "EETubP5AKHgjPAhzPAFcb8BAY1hMH639CWCFTqi3hq1k",
		TxPollsBefore: make(map[string]int),
		pollCounts:    make(map[string]int),
		Errs:          make(map[string]error),
	}
}

func (c *RPCClient) takeErr(method string) error {
	if err, ok := c.Errs[method]; ok {
		delete(c.Errs, method)
		return err
	}
	return nil
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr("GetAccountInfo"); err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetTokenAccountBalance returns the stored balance, zero when absent.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr("GetTokenAccountBalance"); err != nil {
		return 0, err
	}
	return c.TokenBalances[account], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr("GetLatestBlockhash"); err != nil {
		return "", err
	}
	return c.Blockhash, nil
}

// SendTransaction accepts any payload and fabricates a signature.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr("SendTransaction"); err != nil {
		return "", err
	}
	return fmt.Sprintf("stubsig%d", len(c.Transactions)+1), nil
}

// GetTransaction returns the stored outcome, honoring TxPollsBefore delays.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeErr("GetTransaction"); err != nil {
		return nil, err
	}

	c.pollCounts[signature]++
	if c.pollCounts[signature] <= c.TxPollsBefore[signature] {
		return nil, nil
	}
	return c.Transactions[signature], nil
}

// PollCount reports how many times a signature was polled.
func (c *RPCClient) PollCount(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCounts[signature]
}

// SetAccount stores account data under a pubkey.
func (c *RPCClient) SetAccount(pubkey string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = &solana.AccountInfo{Lamports: 1, Data: data}
}

// SetTokenBalance stores a token balance under an account.
func (c *RPCClient) SetTokenBalance(account string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenBalances[account] = amount
}

// SetTransaction stores a transaction outcome for a signature.
func (c *RPCClient) SetTransaction(signature string, onchainErr interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[signature] = &solana.Transaction{
		Slot:      100,
		Signature: signature,
		Meta:      &solana.TransactionMeta{Err: onchainErr},
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)
