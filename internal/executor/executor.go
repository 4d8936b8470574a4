// Package executor turns trade intents into signed, submitted, and confirmed
// pump.fun swap transactions.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fpolica91/Solana-Bots/internal/curve"
	"github.com/fpolica91/Solana-Bots/internal/observability"
	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// Options configures an Executor.
type Options struct {
	RPC    solana.RPCClient
	Wallet solana.Wallet
	Reader *curve.Reader

	// SlippagePct widens the acceptable price on both sides of a swap.
	SlippagePct float64

	// ConfirmRetries and ConfirmInterval bound the post-submit outcome
	// polling loop.
	ConfirmRetries  int
	ConfirmInterval time.Duration

	Logger *logrus.Logger
}

// Executor builds, signs, submits and confirms swaps against the bonding
// curve.
type Executor struct {
	rpc    solana.RPCClient
	wallet solana.Wallet
	reader *curve.Reader

	slippagePct     float64
	confirmRetries  int
	confirmInterval time.Duration

	log *logrus.Logger
}

// New creates an Executor. RPC, Wallet and Reader are required.
func New(opts Options) (*Executor, error) {
	if opts.RPC == nil {
		return nil, errors.New("executor: rpc client is required")
	}
	if opts.Wallet == nil {
		return nil, errors.New("executor: wallet is required")
	}
	if opts.Reader == nil {
		return nil, errors.New("executor: curve reader is required")
	}
	if opts.ConfirmRetries <= 0 {
		opts.ConfirmRetries = DefaultConfirmRetries
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = DefaultConfirmInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Executor{
		rpc:             opts.RPC,
		wallet:          opts.Wallet,
		reader:          opts.Reader,
		slippagePct:     opts.SlippagePct,
		confirmRetries:  opts.ConfirmRetries,
		confirmInterval: opts.ConfirmInterval,
		log:             opts.Logger,
	}, nil
}

// BuyResult describes a confirmed buy.
type BuyResult struct {
	Signature string

	// TokensBought is the expected fill in raw token units, computed from
	// the curve snapshot the buy was priced against.
	TokensBought uint64

	// Price is the entry spot price in SOL per token.
	Price float64
}

// SellResult describes a confirmed sell.
type SellResult struct {
	Signature string

	// TokensSold is the raw token amount submitted for sale.
	TokensSold uint64

	// Price is the exit spot price in SOL per token.
	Price float64

	// MinSolOutput is the slippage-adjusted floor in lamports the swap was
	// submitted with.
	MinSolOutput uint64
}

// Buy spends spendLamports against the mint's bonding curve. The token
// amount is quoted from a fresh curve snapshot and the cost ceiling is
// widened by the configured slippage. A missing associated token account is
// created in the same transaction.
func (e *Executor) Buy(ctx context.Context, mint string, spendLamports uint64) (*BuyResult, error) {
	snap, err := e.snapshot(ctx, mint)
	if err != nil {
		observability.RecordBuy("error")
		return nil, err
	}

	price, ok := snap.Price()
	if !ok {
		observability.RecordBuy("error")
		return nil, fmt.Errorf("%w: empty reserves for %s", ErrNoMarketData, mint)
	}

	tokensOut := curve.TokensForSol(spendLamports, snap.VirtualSolReserves, snap.VirtualTokenReserves)
	if tokensOut <= 0 {
		observability.RecordBuy("error")
		return nil, fmt.Errorf("%w: zero quote for %s", ErrNoMarketData, mint)
	}
	tokenAmount := uint64(tokensOut)
	maxSolCost := uint64(float64(spendLamports) * (1 + e.slippagePct/100))

	acc, err := e.swapAccounts(snap)
	if err != nil {
		observability.RecordBuy("error")
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2)
	exists, err := e.ataExists(ctx, acc.userATA)
	if err != nil {
		observability.RecordBuy("error")
		return nil, fmt.Errorf("check token account: %w", err)
	}
	if !exists {
		instructions = append(instructions, createATAInstruction(acc.user, acc.userATA, acc.user, acc.mint))
	}
	instructions = append(instructions, buyInstruction(acc, tokenAmount, maxSolCost))

	sig, err := e.submit(ctx, mint, "buy", instructions)
	if err != nil {
		observability.RecordBuy(resultLabel(err))
		return nil, err
	}

	observability.RecordBuy("confirmed")
	e.log.WithFields(logrus.Fields{
		"mint":   mint,
		"sig":    sig,
		"tokens": tokenAmount,
		"price":  price,
	}).Info("buy confirmed")

	return &BuyResult{Signature: sig, TokensBought: tokenAmount, Price: price}, nil
}

// Sell disposes of fractionPct of the wallet's holding in the mint. A full
// sell also closes the token account to reclaim its rent. Returns
// ErrNothingToSell when the holding is empty.
func (e *Executor) Sell(ctx context.Context, mint string, fractionPct float64) (*SellResult, error) {
	snap, err := e.snapshot(ctx, mint)
	if err != nil {
		observability.RecordSell("error")
		return nil, err
	}

	acc, err := e.swapAccounts(snap)
	if err != nil {
		observability.RecordSell("error")
		return nil, err
	}

	balance, err := e.rpc.GetTokenAccountBalance(ctx, acc.userATA.String())
	if err != nil {
		observability.RecordSell("error")
		return nil, fmt.Errorf("read token balance: %w", err)
	}
	if balance == 0 {
		observability.RecordSell("empty")
		return nil, ErrNothingToSell
	}

	tokenAmount := balance
	if fractionPct < 100 {
		tokenAmount = uint64(float64(balance) * fractionPct / 100)
	}
	if tokenAmount == 0 {
		observability.RecordSell("empty")
		return nil, ErrNothingToSell
	}

	price, _ := snap.Price()
	expectedSol := curve.SolForTokens(tokenAmount, snap.VirtualSolReserves, snap.VirtualTokenReserves)
	minSolOutput := uint64(expectedSol * (1 - e.slippagePct/100))

	instructions := []solana.Instruction{sellInstruction(acc, tokenAmount, minSolOutput)}
	if fractionPct >= 100 {
		instructions = append(instructions, closeAccountInstruction(acc.userATA, acc.user))
	}

	sig, err := e.submit(ctx, mint, "sell", instructions)
	if err != nil {
		observability.RecordSell(resultLabel(err))
		return nil, err
	}

	observability.RecordSell("confirmed")
	e.log.WithFields(logrus.Fields{
		"mint":   mint,
		"sig":    sig,
		"tokens": tokenAmount,
		"price":  price,
	}).Info("sell confirmed")

	return &SellResult{Signature: sig, TokensSold: tokenAmount, Price: price, MinSolOutput: minSolOutput}, nil
}

// snapshot reads fresh curve state and rejects untradeable mints.
func (e *Executor) snapshot(ctx context.Context, mint string) (*curve.Snapshot, error) {
	snap, err := e.reader.Snapshot(ctx, mint)
	if err != nil {
		if errors.Is(err, curve.ErrAccountUnavailable) {
			return nil, fmt.Errorf("%w: %s", ErrNoMarketData, mint)
		}
		return nil, err
	}
	if snap.Complete {
		return nil, fmt.Errorf("%w: %s", ErrCurveComplete, mint)
	}
	return snap, nil
}

func (e *Executor) swapAccounts(snap *curve.Snapshot) (swapAccounts, error) {
	mintKey, err := solana.ParsePubkey(snap.Mint)
	if err != nil {
		return swapAccounts{}, fmt.Errorf("parse mint: %w", err)
	}
	user := e.wallet.Pubkey()
	userATA, err := solana.AssociatedTokenAddress(user, mintKey)
	if err != nil {
		return swapAccounts{}, fmt.Errorf("derive token account: %w", err)
	}
	return swapAccounts{
		mint:            mintKey,
		bondingCurve:    solana.MustPubkey(snap.BondingCurve),
		associatedCurve: solana.MustPubkey(snap.AssociatedBondingCurve),
		userATA:         userATA,
		user:            user,
	}, nil
}

func (e *Executor) ataExists(ctx context.Context, ata solana.Pubkey) (bool, error) {
	info, err := e.rpc.GetAccountInfo(ctx, ata.String())
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// submit signs and sends the instructions, then drives the confirmation
// loop to a terminal answer for this attempt.
func (e *Executor) submit(ctx context.Context, mint, side string, instructions []solana.Instruction) (string, error) {
	sig, err := e.wallet.SignAndSend(ctx, instructions)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", side, err)
	}

	e.log.WithFields(logrus.Fields{"mint": mint, "sig": sig, "side": side}).Debug("transaction submitted")

	outcome, err := e.Confirm(ctx, sig)
	if err != nil {
		return sig, fmt.Errorf("confirm %s %s: %w", side, sig, err)
	}
	switch outcome {
	case OutcomeConfirmed:
		return sig, nil
	case OutcomeRejected:
		return sig, fmt.Errorf("%s %s: %w", side, sig, ErrTransactionFailed)
	default:
		return sig, fmt.Errorf("%s %s: %w", side, sig, ErrConfirmationUnknown)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrTransactionFailed):
		return "rejected"
	case errors.Is(err, ErrConfirmationUnknown):
		return "unknown"
	default:
		return "error"
	}
}
