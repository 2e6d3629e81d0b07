package params

import (
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// sampler draws canonical field residues from a SHAKE128 stream seeded with a
// parameter-set label. Rejection sampling keeps the draw uniform; the stream
// position after a rejected candidate is part of the deterministic contract.
type sampler struct {
	xof     sha3.ShakeHash
	modulus *big.Int
	byteLen int
	topMask byte
}

func newSampler(seed string, modulus *big.Int) *sampler {
	xof := sha3.NewShake128()
	xof.Write([]byte(seed))
	bits := modulus.BitLen()
	byteLen := (bits + 7) / 8
	return &sampler{
		xof:     xof,
		modulus: modulus,
		byteLen: byteLen,
		topMask: byte(0xFF >> (byteLen*8 - bits)),
	}
}

func (s *sampler) next() *big.Int {
	buf := make([]byte, s.byteLen)
	for {
		if _, err := io.ReadFull(s.xof, buf); err != nil {
			panic(fmt.Sprintf("multiposeidon: shake read failed: %v", err))
		}
		buf[0] &= s.topMask
		v := new(big.Int).SetBytes(buf)
		if v.Cmp(s.modulus) < 0 {
			return v
		}
	}
}

func (s *sampler) nextNonZero() *big.Int {
	for {
		if v := s.next(); v.Sign() != 0 {
			return v
		}
	}
}

// Derive deterministically builds a parameter set for the given field modulus,
// schedule, width and round counts. Same inputs always yield the same
// constants. Capacity is fixed at one lane; the remaining width is rate.
func Derive[E any, PE Element[E]](modulus *big.Int, schedule Schedule, width, fullRounds, partialRounds, d int) (*Parameters[E, PE], error) {
	if modulus == nil || modulus.BitLen() < 9 {
		return nil, fmt.Errorf("multiposeidon: field modulus too small for byte packing")
	}
	if fullRounds <= 0 || fullRounds%2 != 0 {
		return nil, fmt.Errorf("multiposeidon: full rounds must be positive and even, got %d", fullRounds)
	}
	if partialRounds < 0 {
		return nil, fmt.Errorf("multiposeidon: negative partial rounds %d", partialRounds)
	}
	if d != 3 && d != 5 && d != 7 {
		return nil, fmt.Errorf("multiposeidon: unsupported s-box degree %d", d)
	}
	if !coprimeToOrder(d, modulus) {
		return nil, fmt.Errorf("multiposeidon: s-box degree %d shares a factor with p-1, x^%d is not a bijection over this field", d, d)
	}
	switch schedule {
	case SchedulePoseidon:
		if width < 2 {
			return nil, fmt.Errorf("multiposeidon: width %d too small", width)
		}
	case SchedulePoseidon2:
		if !poseidon2Widths[width] {
			return nil, fmt.Errorf("multiposeidon: unsupported width %d for the two-matrix schedule", width)
		}
	default:
		return nil, fmt.Errorf("multiposeidon: unknown schedule %d", schedule)
	}

	seed := fmt.Sprintf("multiposeidon/v1/%s/bits=%d/t=%d/rf=%d/rp=%d/d=%d",
		schedule, modulus.BitLen(), width, fullRounds, partialRounds, d)
	s := newSampler(seed, modulus)

	p := &Parameters[E, PE]{
		Schedule:      schedule,
		Width:         width,
		Rate:          width - 1,
		Capacity:      1,
		FullRounds:    fullRounds,
		PartialRounds: partialRounds,
		D:             d,
		Modulus:       new(big.Int).Set(modulus),
	}

	rc := make([]E, (fullRounds+partialRounds)*width)
	for i := range rc {
		PE(&rc[i]).SetBigInt(s.next())
	}
	p.RoundConstants = rc

	switch schedule {
	case SchedulePoseidon:
		p.MDS = toElements[E, PE](deriveMDS(s, width))
	case SchedulePoseidon2:
		p.Mu = toElements[E, PE](deriveMu(s, width))
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func toElements[E any, PE Element[E]](vs []*big.Int) []E {
	out := make([]E, len(vs))
	for i, v := range vs {
		PE(&out[i]).SetBigInt(v)
	}
	return out
}

// deriveMDS builds a Cauchy matrix mds[i][j] = 1/(x_i + y_j), which is MDS
// over a prime field whenever the x_i are pairwise distinct, the y_j are
// pairwise distinct, and no x_i + y_j vanishes. Degenerate draws restart with
// the next candidates from the stream.
func deriveMDS(s *sampler, width int) []*big.Int {
	for {
		xs := sampleDistinct(s, width)
		ys := sampleDistinct(s, width)
		flat := make([]*big.Int, 0, width*width)
		ok := true
		for i := 0; i < width && ok; i++ {
			for j := 0; j < width; j++ {
				sum := new(big.Int).Add(xs[i], ys[j])
				sum.Mod(sum, s.modulus)
				if sum.Sign() == 0 {
					ok = false
					break
				}
				flat = append(flat, sum.ModInverse(sum, s.modulus))
			}
		}
		if ok {
			return flat
		}
	}
}

func sampleDistinct(s *sampler, n int) []*big.Int {
	out := make([]*big.Int, 0, n)
	for len(out) < n {
		v := s.next()
		if !containsBig(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// deriveMu draws the diagonal of the internal matrix J + Diag(mu) and retries
// until the candidate passes every soundness check: entries non-zero and
// pairwise distinct, the matrix invertible, and the small-width closed-form
// non-degeneracy conditions.
func deriveMu(s *sampler, width int) []*big.Int {
	for {
		mu := make([]*big.Int, width)
		for i := range mu {
			mu[i] = s.nextNonZero()
		}
		if hasDuplicates(mu) {
			continue
		}
		if !invertibleSumDiag(mu, s.modulus) {
			continue
		}
		if !smallWidthNonDegenerate(mu, s.modulus) {
			continue
		}
		return mu
	}
}

func containsBig(vs []*big.Int, v *big.Int) bool {
	for _, x := range vs {
		if x.Cmp(v) == 0 {
			return true
		}
	}
	return false
}

func hasDuplicates(vs []*big.Int) bool {
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			if vs[i].Cmp(vs[j]) == 0 {
				return true
			}
		}
	}
	return false
}

// invertibleSumDiag checks det(J + Diag(mu)) != 0 via the matrix determinant
// lemma: det = (prod mu_i) * (1 + sum mu_i^-1).
func invertibleSumDiag(mu []*big.Int, modulus *big.Int) bool {
	prod := big.NewInt(1)
	sumInv := new(big.Int)
	for _, m := range mu {
		inv := new(big.Int).ModInverse(m, modulus)
		if inv == nil {
			return false
		}
		prod.Mul(prod, m).Mod(prod, modulus)
		sumInv.Add(sumInv, inv).Mod(sumInv, modulus)
	}
	det := new(big.Int).Add(sumInv, big.NewInt(1))
	det.Mul(det, prod).Mod(det, modulus)
	return det.Sign() != 0
}

// smallWidthNonDegenerate applies the extra concrete conditions the internal
// matrix needs for widths 2 and 3: no pairwise product equals one, and for
// width 3 additionally mu0*mu1*mu2 - mu0 - mu1 - mu2 + 2 != 0.
func smallWidthNonDegenerate(mu []*big.Int, modulus *big.Int) bool {
	one := big.NewInt(1)
	mulMod := func(a, b *big.Int) *big.Int {
		return new(big.Int).Mod(new(big.Int).Mul(a, b), modulus)
	}
	switch len(mu) {
	case 2:
		return mulMod(mu[0], mu[1]).Cmp(one) != 0
	case 3:
		if mulMod(mu[0], mu[1]).Cmp(one) == 0 ||
			mulMod(mu[0], mu[2]).Cmp(one) == 0 ||
			mulMod(mu[1], mu[2]).Cmp(one) == 0 {
			return false
		}
		v := mulMod(mulMod(mu[0], mu[1]), mu[2])
		v.Sub(v, mu[0]).Sub(v, mu[1]).Sub(v, mu[2]).Add(v, big.NewInt(2))
		v.Mod(v, modulus)
		return v.Sign() != 0
	default:
		return true
	}
}
