package curve

import (
	"context"
	"fmt"

	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// Reader fetches and decodes bonding-curve state from the ledger.
type Reader struct {
	rpc solana.RPCClient
}

// NewReader creates a state reader over the given ledger client.
func NewReader(rpc solana.RPCClient) *Reader {
	return &Reader{rpc: rpc}
}

// Snapshot reads the curve account for a mint and decodes it. Returns
// ErrAccountUnavailable when the mint has no curve account on this venue.
func (r *Reader) Snapshot(ctx context.Context, mint string) (*Snapshot, error) {
	bondingCurve, associatedCurve, err := DeriveCurveAccounts(mint)
	if err != nil {
		return nil, err
	}

	info, err := r.rpc.GetAccountInfo(ctx, bondingCurve.String())
	if err != nil {
		return nil, fmt.Errorf("fetch curve account: %w", err)
	}
	if info == nil || len(info.Data) == 0 {
		return nil, ErrAccountUnavailable
	}

	snap, err := DecodeState(info.Data)
	if err != nil {
		return nil, err
	}

	snap.Mint = mint
	snap.BondingCurve = bondingCurve.String()
	snap.AssociatedBondingCurve = associatedCurve.String()
	return snap, nil
}

// Price reads a fresh snapshot and returns the spot price in SOL per token.
// ok is false when the reserve denominator is zero.
func (r *Reader) Price(ctx context.Context, mint string) (price float64, ok bool, err error) {
	snap, err := r.Snapshot(ctx, mint)
	if err != nil {
		return 0, false, err
	}
	price, ok = snap.Price()
	return price, ok, nil
}
