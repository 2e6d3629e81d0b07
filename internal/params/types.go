package params

import "math/big"

// Element is the pointer-method capability set the engine requires of a
// prime-field element. The per-curve fp/fr element types of gnark-crypto
// satisfy it.
type Element[E any] interface {
	*E
	Add(*E, *E) *E
	Mul(*E, *E) *E
	Square(*E) *E
	Double(*E) *E
	SetZero() *E
	SetUint64(uint64) *E
	SetBigInt(*big.Int) *E
	BigInt(*big.Int) *big.Int
	Equal(*E) bool
	String() string
}

// Schedule selects the permutation round schedule a parameter set feeds.
// The two schedules consume different linear-layer constants and are never
// interchangeable for a given constant table.
type Schedule uint8

const (
	// SchedulePoseidon is the classic schedule: a dense MDS multiply after
	// every round.
	SchedulePoseidon Schedule = iota
	// SchedulePoseidon2 is the two-matrix schedule: a cheap external mix in
	// full rounds and a broadcast-sum-plus-diagonal internal mix in partial
	// rounds.
	SchedulePoseidon2
)

func (s Schedule) String() string {
	switch s {
	case SchedulePoseidon:
		return "poseidon"
	case SchedulePoseidon2:
		return "poseidon2"
	default:
		return "unknown"
	}
}

// Parameters bundles all constants needed by one permutation instance.
// A value is immutable after Derive and may be shared by reference across
// any number of hasher instances.
type Parameters[E any, PE Element[E]] struct {
	Schedule Schedule

	Width    int // Rate + Capacity
	Rate     int
	Capacity int

	FullRounds    int // even, split half before / half after the partial rounds
	PartialRounds int
	D             int // S-box exponent, one of 3, 5, 7

	// Modulus of the field E is defined over.
	Modulus *big.Int

	// RoundConstants holds one row of Width constants per round, flattened
	// row-major: row r occupies [r*Width, (r+1)*Width).
	RoundConstants []E

	// MDS is the dense Width x Width mixing matrix, row-major.
	// Populated only for SchedulePoseidon.
	MDS []E

	// Mu is the diagonal of the internal matrix J + Diag(mu).
	// Populated only for SchedulePoseidon2.
	Mu []E
}
