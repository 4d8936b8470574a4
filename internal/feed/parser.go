// Package feed consumes the Solana log subscription and turns raw log
// notifications into new-token events.
package feed

import (
	"encoding/base64"
	"strings"

	"github.com/mr-tron/base58"
)

// Log line markers for token creation.
const (
	programDataPrefix = "Program data: "
	initMintMarker    = "InitializeMint2"
	metadataMarker    = "Create Metadata Accounts v3"
	createMarker      = "Instruction: Create"
)

// mintMarker filters mints belonging to this venue; pump.fun vanity-grinds
// mint addresses to end in "pump".
const mintMarker = "pump"

// minPayloadLen is the minimum decoded event payload carrying the trailing
// mint/curve/creator key triple.
const minPayloadLen = 180

// TokenEvent identifies a newly created token and its actors.
type TokenEvent struct {
	Mint         string
	BondingCurve string
	Creator      string
}

// Classifier decides whether a transaction's logs represent a new tradable
// token. Two predicate variants exist in the wild: the lenient one accepts
// any mint-init or metadata marker, the strict one additionally requires a
// Create instruction in the same transaction.
type Classifier struct {
	Strict bool
}

// IsNewTokenEvent reports whether the log lines describe a token creation.
func (c Classifier) IsNewTokenEvent(logs []string) bool {
	hasInit := false
	hasCreate := false
	for _, line := range logs {
		if strings.Contains(line, initMintMarker) || strings.Contains(line, metadataMarker) {
			hasInit = true
		}
		if strings.Contains(line, createMarker) {
			hasCreate = true
		}
		if hasInit && (!c.Strict || hasCreate) {
			return true
		}
	}
	return false
}

// ExtractIdentifiers parses a "Program data:" log line into a TokenEvent.
// The decoded payload ends with three 32-byte keys: mint, bonding curve,
// creator. Events whose mint does not carry the venue marker belong to other
// programs sharing the log channel and are dropped.
func ExtractIdentifiers(line string) (TokenEvent, bool) {
	if !strings.Contains(line, programDataPrefix) {
		return TokenEvent{}, false
	}

	encoded := strings.Replace(line, programDataPrefix, "", 1)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return TokenEvent{}, false
	}

	n := len(decoded)
	if n < minPayloadLen {
		return TokenEvent{}, false
	}

	mint := base58.Encode(decoded[n-96 : n-64])
	bondingCurve := base58.Encode(decoded[n-64 : n-32])
	creator := base58.Encode(decoded[n-32 : n])

	if !strings.Contains(strings.ToLower(mint), mintMarker) {
		return TokenEvent{}, false
	}

	return TokenEvent{
		Mint:         mint,
		BondingCurve: bondingCurve,
		Creator:      creator,
	}, true
}
