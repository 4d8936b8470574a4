package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// Wallet implements solana.Wallet without signing anything. Each SignAndSend
// records the instruction list and returns a deterministic signature.
type Wallet struct {
	mu sync.Mutex

	Key  solana.Pubkey
	Sent [][]solana.Instruction

	// Err forces the next SignAndSend to fail.
	Err error
}

// NewWallet creates a stub wallet with a fixed pubkey.
func NewWallet() *Wallet {
	return &Wallet{
		Key: solana.MustPubkey("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"),
	}
}

// Pubkey returns the stub key.
func (w *Wallet) Pubkey() solana.Pubkey {
	return w.Key
}

// SignAndSend records the instructions and returns "walletsig<N>".
func (w *Wallet) SignAndSend(_ context.Context, instructions []solana.Instruction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		err := w.Err
		w.Err = nil
		return "", err
	}
	w.Sent = append(w.Sent, instructions)
	return fmt.Sprintf("walletsig%d", len(w.Sent)), nil
}

// SentCount returns how many transactions were submitted.
func (w *Wallet) SentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Sent)
}

// LastSent returns the most recent instruction list, or nil.
func (w *Wallet) LastSent() []solana.Instruction {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.Sent) == 0 {
		return nil
	}
	return w.Sent[len(w.Sent)-1]
}

var _ solana.Wallet = (*Wallet)(nil)
