package curve

import (
	"context"
	"errors"
	"testing"

	"github.com/fpolica91/Solana-Bots/internal/solana/stub"
)

const testMint = "So11111111111111111111111111111111111111112"

func TestReader_Snapshot(t *testing.T) {
	rpc := stub.NewRPCClient()
	bondingCurve, _, err := DeriveCurveAccounts(testMint)
	if err != nil {
		t.Fatalf("derive accounts: %v", err)
	}
	rpc.SetAccount(bondingCurve.String(), curveAccountBytes(1_073_000_000_000_000, 30_000_000_000, 0, 0, 0, false))

	reader := NewReader(rpc)
	snap, err := reader.Snapshot(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.Mint != testMint {
		t.Errorf("Mint = %s", snap.Mint)
	}
	if snap.BondingCurve != bondingCurve.String() {
		t.Errorf("BondingCurve = %s, want %s", snap.BondingCurve, bondingCurve.String())
	}
	if snap.VirtualSolReserves != 30_000_000_000 {
		t.Errorf("VirtualSolReserves = %d", snap.VirtualSolReserves)
	}
}

func TestReader_SnapshotMissingAccount(t *testing.T) {
	reader := NewReader(stub.NewRPCClient())

	_, err := reader.Snapshot(context.Background(), testMint)
	if !errors.Is(err, ErrAccountUnavailable) {
		t.Errorf("error = %v, want ErrAccountUnavailable", err)
	}
}

func TestReader_Price(t *testing.T) {
	rpc := stub.NewRPCClient()
	bondingCurve, _, _ := DeriveCurveAccounts(testMint)
	rpc.SetAccount(bondingCurve.String(), curveAccountBytes(1_073_000_000_000_000, 30_000_000_000, 0, 0, 0, false))

	reader := NewReader(rpc)
	price, ok, err := reader.Price(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if !ok || price <= 0 {
		t.Errorf("Price = (%v, %v), want positive", price, ok)
	}
}
