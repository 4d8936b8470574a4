// Package curve models the pump.fun bonding curve: constant-product pricing
// over virtual reserves and decoding of on-chain curve accounts.
package curve

// Reserve scaling factors. Token amounts carry 6 decimals, SOL amounts are
// lamports with 9 decimals.
const (
	TokenDecimalsFactor = 1e6
	LamportsPerSOL      = 1e9
)

// TokensForSol returns the token amount received for spending solIn lamports
// against the given virtual reserves, using the constant-product invariant.
// Returns 0 when a reserve is empty.
func TokensForSol(solIn, solReserves, tokenReserves uint64) float64 {
	newSolReserves := solReserves + solIn
	if newSolReserves == 0 {
		return 0
	}
	newTokenReserves := float64(solReserves) * float64(tokenReserves) / float64(newSolReserves)
	return float64(tokenReserves) - newTokenReserves
}

// SolForTokens returns the lamports received for selling tokensIn tokens
// against the given virtual reserves. Returns 0 when a reserve is empty.
func SolForTokens(tokensIn, solReserves, tokenReserves uint64) float64 {
	newTokenReserves := tokenReserves + tokensIn
	if newTokenReserves == 0 {
		return 0
	}
	newSolReserves := float64(solReserves) * float64(tokenReserves) / float64(newTokenReserves)
	return float64(solReserves) - newSolReserves
}

// Price returns the spot price in SOL per token derived from the virtual
// reserves. ok is false when the token reserve is zero.
func Price(solReserves, tokenReserves uint64) (float64, bool) {
	if tokenReserves == 0 {
		return 0, false
	}
	sol := float64(solReserves) / LamportsPerSOL
	tokens := float64(tokenReserves) / TokenDecimalsFactor
	return sol / tokens, true
}
