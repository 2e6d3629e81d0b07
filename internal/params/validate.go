package params

import (
	"fmt"
	"math/big"
)

// coprimeToOrder reports whether gcd(d, p-1) = 1, the condition for x^d to be
// a bijection of the multiplicative group. Degree 3 fails it on every
// supported base field, degree 7 on BLS12-377.
func coprimeToOrder(d int, modulus *big.Int) bool {
	order := new(big.Int).Sub(modulus, big.NewInt(1))
	return new(big.Int).GCD(nil, nil, big.NewInt(int64(d)), order).Cmp(big.NewInt(1)) == 0
}

// poseidon2Widths lists the state widths the two-matrix external mixing layer
// supports: the small closed-form circulants, the 4x4 combination, and its
// block-wise extensions.
var poseidon2Widths = map[int]bool{2: true, 3: true, 4: true, 8: true, 12: true, 16: true, 20: true, 24: true}

// Validate checks shape and sizes of the parameter set. Violations are
// contract errors: a set produced by Derive always passes.
func Validate[E any, PE Element[E]](p *Parameters[E, PE]) error {
	if p == nil {
		return fmt.Errorf("multiposeidon: nil parameters")
	}
	if p.Modulus == nil || p.Modulus.BitLen() < 2 {
		return fmt.Errorf("multiposeidon: missing field modulus")
	}
	if p.Rate < 1 || p.Capacity < 1 {
		return fmt.Errorf("multiposeidon: rate and capacity must be at least 1, got rate=%d capacity=%d", p.Rate, p.Capacity)
	}
	if p.Width != p.Rate+p.Capacity {
		return fmt.Errorf("multiposeidon: width %d does not equal rate+capacity %d", p.Width, p.Rate+p.Capacity)
	}
	if p.FullRounds <= 0 || p.FullRounds%2 != 0 {
		return fmt.Errorf("multiposeidon: full rounds must be positive and even, got %d", p.FullRounds)
	}
	if p.PartialRounds < 0 {
		return fmt.Errorf("multiposeidon: negative partial rounds %d", p.PartialRounds)
	}
	if p.D != 3 && p.D != 5 && p.D != 7 {
		return fmt.Errorf("multiposeidon: unsupported s-box degree %d", p.D)
	}
	if !coprimeToOrder(p.D, p.Modulus) {
		return fmt.Errorf("multiposeidon: s-box degree %d shares a factor with p-1, x^%d is not a bijection over this field", p.D, p.D)
	}
	if want := (p.FullRounds + p.PartialRounds) * p.Width; len(p.RoundConstants) != want {
		return fmt.Errorf("multiposeidon: round constant length mismatch (have %d, want %d)", len(p.RoundConstants), want)
	}
	switch p.Schedule {
	case SchedulePoseidon:
		if len(p.MDS) != p.Width*p.Width {
			return fmt.Errorf("multiposeidon: mds length mismatch (have %d, want %d)", len(p.MDS), p.Width*p.Width)
		}
		if p.Mu != nil {
			return fmt.Errorf("multiposeidon: classic schedule must not carry an internal diagonal")
		}
	case SchedulePoseidon2:
		if !poseidon2Widths[p.Width] {
			return fmt.Errorf("multiposeidon: unsupported width %d for the two-matrix schedule", p.Width)
		}
		if len(p.Mu) != p.Width {
			return fmt.Errorf("multiposeidon: internal diagonal length mismatch (have %d, want %d)", len(p.Mu), p.Width)
		}
		if p.MDS != nil {
			return fmt.Errorf("multiposeidon: two-matrix schedule must not carry a dense mds")
		}
	default:
		return fmt.Errorf("multiposeidon: unknown schedule %d", p.Schedule)
	}
	return nil
}
