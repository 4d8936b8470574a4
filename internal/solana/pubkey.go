package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgram          = "11111111111111111111111111111111"
	TokenProgram           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	RentSysvar             = "SysvarRent111111111111111111111111111111111"
	ComputeBudgetProgram   = "ComputeBudget111111111111111111111111111111"
)

// Pubkey is a 32-byte ed25519 public key or program-derived address.
type Pubkey [32]byte

// ParsePubkey decodes a base58-encoded public key.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != 32 {
		return pk, fmt.Errorf("pubkey %q: expected 32 bytes, got %d", s, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey parses a base58 pubkey and panics on failure.
// Reserved for package-level constants of well-known addresses.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromBytes builds a Pubkey from a raw 32-byte slice.
func PubkeyFromBytes(raw []byte) (Pubkey, error) {
	var pk Pubkey
	if len(raw) != 32 {
		return pk, fmt.Errorf("pubkey: expected 32 bytes, got %d", len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether the key is all zeroes.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// FindProgramAddress derives a program address from seeds, walking the bump
// seed down from 255 until the resulting point falls off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, byte, error) {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID[:]...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			var pk Pubkey
			copy(pk[:], hash[:])
			return pk, bump, nil
		}
	}
	return Pubkey{}, 0, fmt.Errorf("no viable bump seed for program %s", programID)
}

// AssociatedTokenAddress derives the associated token account for an owner
// and mint under the associated-token program.
func AssociatedTokenAddress(owner, mint Pubkey) (Pubkey, error) {
	tokenProgram := MustPubkey(TokenProgram)
	ataProgram := MustPubkey(AssociatedTokenProgram)
	pk, _, err := FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		ataProgram,
	)
	return pk, err
}

// isOnCurve reports whether the bytes decode to a valid ed25519 curve point.
// A PDA must be off the curve so no private key can ever exist for it.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
