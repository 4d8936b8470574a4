package solana

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta is one entry of an instruction's ordered account list.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Wallet is the signing collaborator. It owns key material, assembles a
// transaction from instructions against a fresh blockhash, signs it and
// submits it, returning the transaction signature.
type Wallet interface {
	// Pubkey returns the wallet's public key.
	Pubkey() Pubkey

	// SignAndSend builds, signs and submits a transaction carrying the
	// instructions in order.
	SignAndSend(ctx context.Context, instructions []Instruction) (string, error)
}

// Compute-budget instruction discriminants.
const (
	computeBudgetSetUnitLimit = 2
	computeBudgetSetUnitPrice = 3
)

// SetComputeUnitLimit builds a compute-budget instruction capping compute units.
func SetComputeUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{
		ProgramID: MustPubkey(ComputeBudgetProgram),
		Data:      data,
	}
}

// SetComputeUnitPrice builds a compute-budget instruction setting the
// priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{
		ProgramID: MustPubkey(ComputeBudgetProgram),
		Data:      data,
	}
}

// Message is a compiled legacy transaction message: the deduplicated account
// table plus instructions referencing it by index.
type Message struct {
	numRequiredSignatures uint8
	numReadonlySigned     uint8
	numReadonlyUnsigned   uint8
	accountKeys           []Pubkey
	recentBlockhash       [32]byte
	instructions          []compiledInstruction
}

type compiledInstruction struct {
	programIDIndex uint8
	accountIndexes []uint8
	data           []byte
}

// CompileMessage builds a legacy message with the fee payer first, then
// writable signers, readonly signers, writable non-signers and readonly
// non-signers, matching the runtime's required ordering.
func CompileMessage(feePayer Pubkey, instructions []Instruction, recentBlockhash string) (*Message, error) {
	blockhashRaw, err := base58.Decode(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhashRaw) != 32 {
		return nil, fmt.Errorf("blockhash: expected 32 bytes, got %d", len(blockhashRaw))
	}

	type accountFlags struct {
		signer   bool
		writable bool
	}
	flags := map[Pubkey]*accountFlags{
		feePayer: {signer: true, writable: true},
	}
	order := []Pubkey{feePayer}

	upsert := func(pk Pubkey, signer, writable bool) {
		f, ok := flags[pk]
		if !ok {
			f = &accountFlags{}
			flags[pk] = f
			order = append(order, pk)
		}
		f.signer = f.signer || signer
		f.writable = f.writable || writable
	}

	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			upsert(acc.Pubkey, acc.IsSigner, acc.IsWritable)
		}
		upsert(ix.ProgramID, false, false)
	}

	var writableSigners, readonlySigners, writableOthers, readonlyOthers []Pubkey
	for _, pk := range order {
		f := flags[pk]
		switch {
		case f.signer && f.writable:
			writableSigners = append(writableSigners, pk)
		case f.signer:
			readonlySigners = append(readonlySigners, pk)
		case f.writable:
			writableOthers = append(writableOthers, pk)
		default:
			readonlyOthers = append(readonlyOthers, pk)
		}
	}

	keys := make([]Pubkey, 0, len(order))
	keys = append(keys, writableSigners...)
	keys = append(keys, readonlySigners...)
	keys = append(keys, writableOthers...)
	keys = append(keys, readonlyOthers...)

	index := make(map[Pubkey]uint8, len(keys))
	if len(keys) > 255 {
		return nil, fmt.Errorf("too many accounts: %d", len(keys))
	}
	for i, pk := range keys {
		index[pk] = uint8(i)
	}

	msg := &Message{
		numRequiredSignatures: uint8(len(writableSigners) + len(readonlySigners)),
		numReadonlySigned:     uint8(len(readonlySigners)),
		numReadonlyUnsigned:   uint8(len(readonlyOthers)),
		accountKeys:           keys,
	}
	copy(msg.recentBlockhash[:], blockhashRaw)

	for _, ix := range instructions {
		compiled := compiledInstruction{
			programIDIndex: index[ix.ProgramID],
			data:           ix.Data,
		}
		for _, acc := range ix.Accounts {
			compiled.accountIndexes = append(compiled.accountIndexes, index[acc.Pubkey])
		}
		msg.instructions = append(msg.instructions, compiled)
	}

	return msg, nil
}

// NumRequiredSignatures returns how many signatures the message requires.
func (m *Message) NumRequiredSignatures() int {
	return int(m.numRequiredSignatures)
}

// Serialize encodes the message in the legacy wire format. These are the
// bytes a signer signs.
func (m *Message) Serialize() []byte {
	out := make([]byte, 0, 256)
	out = append(out, m.numRequiredSignatures, m.numReadonlySigned, m.numReadonlyUnsigned)

	out = appendShortvecLen(out, len(m.accountKeys))
	for _, pk := range m.accountKeys {
		out = append(out, pk[:]...)
	}

	out = append(out, m.recentBlockhash[:]...)

	out = appendShortvecLen(out, len(m.instructions))
	for _, ix := range m.instructions {
		out = append(out, ix.programIDIndex)
		out = appendShortvecLen(out, len(ix.accountIndexes))
		out = append(out, ix.accountIndexes...)
		out = appendShortvecLen(out, len(ix.data))
		out = append(out, ix.data...)
	}

	return out
}

// SerializeTransaction prepends signatures to a serialized message, producing
// a complete wire transaction.
func SerializeTransaction(signatures [][]byte, message []byte) ([]byte, error) {
	out := make([]byte, 0, len(message)+len(signatures)*64+4)
	out = appendShortvecLen(out, len(signatures))
	for _, sig := range signatures {
		if len(sig) != 64 {
			return nil, fmt.Errorf("signature: expected 64 bytes, got %d", len(sig))
		}
		out = append(out, sig...)
	}
	return append(out, message...), nil
}

// appendShortvecLen appends a compact-u16 length prefix.
func appendShortvecLen(out []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
