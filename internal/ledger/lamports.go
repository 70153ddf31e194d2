package ledger

import (
	"fmt"
	"math"
)

// LamportsPerSol is the number of smallest units in one SOL.
const LamportsPerSol = 1_000_000_000

// MaxLamports caps amounts at the native supply ceiling. Anything above it is
// a corrupted or hostile input, not a real bounty.
const MaxLamports = int64(600_000_000) * LamportsPerSol

// LamportsToSol converts an integer lamport amount to SOL for display only.
// All internal arithmetic stays in lamports.
func LamportsToSol(lamports int64) float64 {
	return float64(lamports) / LamportsPerSol
}

// SolToLamports converts a SOL amount to lamports, rounding to the nearest
// whole lamport. Values that cannot be represented exactly as an int64
// lamport count are rejected rather than silently truncated.
func SolToLamports(sol float64) (int64, error) {
	if math.IsNaN(sol) || math.IsInf(sol, 0) || sol < 0 {
		return 0, fmt.Errorf("invalid sol amount %v", sol)
	}

	v := math.Round(sol * LamportsPerSol)
	if v > float64(MaxLamports) {
		return 0, fmt.Errorf("sol amount %v exceeds native supply cap", sol)
	}

	return int64(v), nil
}

// FormatLamports renders a lamport amount as a SOL string with four decimals,
// matching what the marketplace UI shows.
func FormatLamports(lamports int64) string {
	return fmt.Sprintf("%.4f", LamportsToSol(lamports))
}
