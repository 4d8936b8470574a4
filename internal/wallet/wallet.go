// Package wallet provides a local ed25519 signer over the legacy transaction
// wire format.
package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// Options configures a LocalWallet.
type Options struct {
	RPC solana.RPCClient

	// SecretKey is the base58-encoded 64-byte ed25519 keypair.
	SecretKey string

	// PriorityFeeMicroLamports, when positive, prepends a compute-budget
	// priority fee to every transaction.
	PriorityFeeMicroLamports uint64

	// ComputeUnitLimit, when positive, caps compute units per transaction.
	ComputeUnitLimit uint32

	Logger *logrus.Logger
}

// LocalWallet holds key material in process, assembles transactions against
// a fresh blockhash, signs them and submits through the RPC client.
type LocalWallet struct {
	rpc    solana.RPCClient
	key    ed25519.PrivateKey
	pubkey solana.Pubkey

	priorityFee  uint64
	computeLimit uint32

	log *logrus.Logger
}

// New creates a LocalWallet from a base58-encoded 64-byte keypair.
func New(opts Options) (*LocalWallet, error) {
	if opts.RPC == nil {
		return nil, fmt.Errorf("wallet: rpc client is required")
	}

	raw, err := base58.Decode(opts.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: secret key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	key := ed25519.PrivateKey(raw)
	pubkey, err := solana.PubkeyFromBytes(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("wallet: derive pubkey: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &LocalWallet{
		rpc:          opts.RPC,
		key:          key,
		pubkey:       pubkey,
		priorityFee:  opts.PriorityFeeMicroLamports,
		computeLimit: opts.ComputeUnitLimit,
		log:          opts.Logger,
	}, nil
}

// Compile-time interface check.
var _ solana.Wallet = (*LocalWallet)(nil)

// Pubkey returns the wallet's public key.
func (w *LocalWallet) Pubkey() solana.Pubkey {
	return w.pubkey
}

// SignAndSend builds, signs and submits a transaction carrying the
// instructions in order. Compute-budget instructions are prepended when
// configured.
func (w *LocalWallet) SignAndSend(ctx context.Context, instructions []solana.Instruction) (string, error) {
	blockhash, err := w.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}

	all := make([]solana.Instruction, 0, len(instructions)+2)
	if w.computeLimit > 0 {
		all = append(all, solana.SetComputeUnitLimit(w.computeLimit))
	}
	if w.priorityFee > 0 {
		all = append(all, solana.SetComputeUnitPrice(w.priorityFee))
	}
	all = append(all, instructions...)

	msg, err := solana.CompileMessage(w.pubkey, all, blockhash)
	if err != nil {
		return "", fmt.Errorf("compile message: %w", err)
	}
	if msg.NumRequiredSignatures() != 1 {
		return "", fmt.Errorf("expected 1 required signature, got %d", msg.NumRequiredSignatures())
	}

	serialized := msg.Serialize()
	signature := ed25519.Sign(w.key, serialized)

	tx, err := solana.SerializeTransaction([][]byte{signature}, serialized)
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := w.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(tx))
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	w.log.WithField("sig", sig).Debug("transaction sent")
	return sig, nil
}
