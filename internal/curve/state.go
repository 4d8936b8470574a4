package curve

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// PumpFunProgram is the pump.fun bonding-curve program.
const PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// Fixed pump.fun accounts referenced by every swap instruction.
const (
	GlobalAccount  = "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	FeeRecipient   = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	EventAuthority = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxHp9vN"
)

// bondingCurveSeed is the PDA seed prefix for curve accounts.
var bondingCurveSeed = []byte("bonding-curve")

// Errors returned by state reads.
var (
	// ErrAccountUnavailable means the curve account does not exist or holds
	// no data, e.g. the mint never had a curve on this venue.
	ErrAccountUnavailable = errors.New("curve account unavailable")

	// ErrMalformedAccount means the account data does not match the curve
	// layout.
	ErrMalformedAccount = errors.New("malformed curve account")
)

// Curve account layout: 8 bytes discriminator, five little-endian u64
// fields, one bool byte.
const (
	curveHeaderLen = 8
	curveDataLen   = curveHeaderLen + 5*8 + 1
)

// Snapshot is a decoded point-in-time view of one bonding curve. It is built
// from a fresh account read each time pricing is needed and never cached;
// reserves move every slot.
type Snapshot struct {
	Mint                   string
	BondingCurve           string
	AssociatedBondingCurve string

	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64

	// Complete is set once the curve graduated to another venue and no
	// longer accepts trades here.
	Complete bool
}

// Price returns the snapshot's spot price in SOL per token.
func (s *Snapshot) Price() (float64, bool) {
	return Price(s.VirtualSolReserves, s.VirtualTokenReserves)
}

// DeriveCurveAccounts derives the bonding-curve PDA and its associated token
// account for a mint.
func DeriveCurveAccounts(mint string) (bondingCurve, associatedCurve solana.Pubkey, err error) {
	mintKey, err := solana.ParsePubkey(mint)
	if err != nil {
		return bondingCurve, associatedCurve, fmt.Errorf("parse mint: %w", err)
	}

	program := solana.MustPubkey(PumpFunProgram)
	bondingCurve, _, err = solana.FindProgramAddress(
		[][]byte{bondingCurveSeed, mintKey[:]},
		program,
	)
	if err != nil {
		return bondingCurve, associatedCurve, fmt.Errorf("derive bonding curve: %w", err)
	}

	associatedCurve, err = solana.AssociatedTokenAddress(bondingCurve, mintKey)
	if err != nil {
		return bondingCurve, associatedCurve, fmt.Errorf("derive associated curve account: %w", err)
	}

	return bondingCurve, associatedCurve, nil
}

// DecodeState decodes the raw curve account bytes into reserve fields.
// Fails closed on short buffers.
func DecodeState(data []byte) (*Snapshot, error) {
	if len(data) < curveDataLen {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedAccount, len(data), curveDataLen)
	}

	offset := curveHeaderLen
	readU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[offset:])
		offset += 8
		return v
	}

	s := &Snapshot{}
	s.VirtualTokenReserves = readU64()
	s.VirtualSolReserves = readU64()
	s.RealTokenReserves = readU64()
	s.RealSolReserves = readU64()
	s.TokenTotalSupply = readU64()
	s.Complete = data[offset] != 0

	return s, nil
}
