package executor

import (
	"encoding/binary"

	"github.com/fpolica91/Solana-Bots/internal/curve"
	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// Anchor instruction discriminators for the pump.fun program.
const (
	buyDiscriminator  uint64 = 16927863322537952870
	sellDiscriminator uint64 = 12502976635542562355
)

// tokenCloseAccountIndex is the SPL token program's CloseAccount instruction.
const tokenCloseAccountIndex = 9

// swapAccounts bundles the per-trade addresses every swap references.
type swapAccounts struct {
	mint            solana.Pubkey
	bondingCurve    solana.Pubkey
	associatedCurve solana.Pubkey
	userATA         solana.Pubkey
	user            solana.Pubkey
}

// swapData packs a discriminator and two u64 arguments little-endian.
func swapData(discriminator, amount, limit uint64) []byte {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint64(data[0:], discriminator)
	binary.LittleEndian.PutUint64(data[8:], amount)
	binary.LittleEndian.PutUint64(data[16:], limit)
	return data
}

// buyInstruction builds the venue's buy: tokenAmount tokens for at most
// maxSolCost lamports.
func buyInstruction(acc swapAccounts, tokenAmount, maxSolCost uint64) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.MustPubkey(curve.PumpFunProgram),
		Accounts: []solana.AccountMeta{
			{Pubkey: solana.MustPubkey(curve.GlobalAccount)},
			{Pubkey: solana.MustPubkey(curve.FeeRecipient), IsWritable: true},
			{Pubkey: acc.mint},
			{Pubkey: acc.bondingCurve, IsWritable: true},
			{Pubkey: acc.associatedCurve, IsWritable: true},
			{Pubkey: acc.userATA, IsWritable: true},
			{Pubkey: acc.user, IsSigner: true, IsWritable: true},
			{Pubkey: solana.MustPubkey(solana.SystemProgram)},
			{Pubkey: solana.MustPubkey(solana.TokenProgram)},
			{Pubkey: solana.MustPubkey(solana.RentSysvar)},
			{Pubkey: solana.MustPubkey(curve.EventAuthority)},
			{Pubkey: solana.MustPubkey(curve.PumpFunProgram)},
		},
		Data: swapData(buyDiscriminator, tokenAmount, maxSolCost),
	}
}

// sellInstruction builds the venue's sell: tokenAmount tokens for at least
// minSolOutput lamports.
func sellInstruction(acc swapAccounts, tokenAmount, minSolOutput uint64) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.MustPubkey(curve.PumpFunProgram),
		Accounts: []solana.AccountMeta{
			{Pubkey: solana.MustPubkey(curve.GlobalAccount)},
			{Pubkey: solana.MustPubkey(curve.FeeRecipient), IsWritable: true},
			{Pubkey: acc.mint},
			{Pubkey: acc.bondingCurve, IsWritable: true},
			{Pubkey: acc.associatedCurve, IsWritable: true},
			{Pubkey: acc.userATA, IsWritable: true},
			{Pubkey: acc.user, IsSigner: true, IsWritable: true},
			{Pubkey: solana.MustPubkey(solana.SystemProgram)},
			{Pubkey: solana.MustPubkey(solana.AssociatedTokenProgram)},
			{Pubkey: solana.MustPubkey(solana.TokenProgram)},
			{Pubkey: solana.MustPubkey(curve.EventAuthority)},
			{Pubkey: solana.MustPubkey(curve.PumpFunProgram)},
		},
		Data: swapData(sellDiscriminator, tokenAmount, minSolOutput),
	}
}

// createATAInstruction builds an idempotent associated-token-account create.
func createATAInstruction(payer, ata, owner, mint solana.Pubkey) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.MustPubkey(solana.AssociatedTokenProgram),
		Accounts: []solana.AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: ata, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: solana.MustPubkey(solana.SystemProgram)},
			{Pubkey: solana.MustPubkey(solana.TokenProgram)},
		},
		Data: []byte{1}, // CreateIdempotent
	}
}

// closeAccountInstruction builds a token CloseAccount reclaiming rent to the
// owner. Only valid on an empty account.
func closeAccountInstruction(account, owner solana.Pubkey) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.MustPubkey(solana.TokenProgram),
		Accounts: []solana.AccountMeta{
			{Pubkey: account, IsWritable: true},
			{Pubkey: owner, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: []byte{tokenCloseAccountIndex},
	}
}
