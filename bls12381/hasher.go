// Package bls12381 binds the multiposeidon engine to the BLS12-381 curve:
// digests are elements of the BLS12-381 base field, and Update accepts the
// curve's base-field and scalar-field elements, affine G1 points, and Go
// primitives.
package bls12381

import (
	"sync"

	curve "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/vocdoni/multiposeidon"
	"github.com/vocdoni/multiposeidon/internal/params"
)

const (
	fullRounds    = 8
	partialRounds = 56
	sboxDegree    = 5
)

// Variant selects among the derived parameter sets for this curve.
type Variant uint8

const (
	// VariantT3 is the default sponge geometry: width 3, rate 2.
	VariantT3 Variant = iota
	// VariantT4 is the width-4 geometry used by Compress3.
	VariantT4
)

var (
	paramsT3 = sync.OnceValue(func() *params.Parameters[fp.Element, *fp.Element] {
		return mustDerive(params.SchedulePoseidon2, 3)
	})
	paramsT4 = sync.OnceValue(func() *params.Parameters[fp.Element, *fp.Element] {
		return mustDerive(params.SchedulePoseidon2, 4)
	})
	paramsClassicT3 = sync.OnceValue(func() *params.Parameters[fp.Element, *fp.Element] {
		return mustDerive(params.SchedulePoseidon, 3)
	})
	compressPerm = sync.OnceValue(func() *multiposeidon.Permutation[fp.Element, *fp.Element] {
		perm, err := multiposeidon.NewPermutation(paramsT4())
		if err != nil {
			panic(err)
		}
		return perm
	})
)

func mustDerive(schedule params.Schedule, width int) *params.Parameters[fp.Element, *fp.Element] {
	p, err := params.Derive[fp.Element](fp.Modulus(), schedule, width, fullRounds, partialRounds, sboxDegree)
	if err != nil {
		panic(err)
	}
	return p
}

// Hasher is a stateful absorb/finalize hasher over the BLS12-381 base field.
// Instances are not safe for concurrent use; give each goroutine its own.
type Hasher struct {
	inner *multiposeidon.Engine[fp.Element, *fp.Element]
}

// New builds a hasher with the default packing configuration.
func New() *Hasher {
	return NewWithConfig(multiposeidon.PackingConfig{})
}

// NewWithConfig builds a hasher with a custom packing configuration.
func NewWithConfig(config multiposeidon.PackingConfig) *Hasher {
	return newHasher(paramsT3(), config)
}

// NewWithDomain builds a hasher and installs a domain context up front.
func NewWithDomain(domain []byte) *Hasher {
	h := New()
	h.AbsorbDomain(domain)
	return h
}

// NewWithConfigAndDomain combines NewWithConfig and NewWithDomain.
func NewWithConfigAndDomain(config multiposeidon.PackingConfig, domain []byte) *Hasher {
	h := NewWithConfig(config)
	h.AbsorbDomain(domain)
	return h
}

// NewVariant builds a hasher over the selected sponge geometry.
func NewVariant(v Variant) *Hasher {
	switch v {
	case VariantT3:
		return newHasher(paramsT3(), multiposeidon.PackingConfig{})
	case VariantT4:
		return newHasher(paramsT4(), multiposeidon.PackingConfig{})
	default:
		panic("bls12381: unknown variant")
	}
}

// NewClassic builds a hasher over the classic dense-MDS schedule. Its
// digests are unrelated to the default two-matrix hasher's.
func NewClassic() *Hasher {
	return newHasher(paramsClassicT3(), multiposeidon.PackingConfig{})
}

func newHasher(p *params.Parameters[fp.Element, *fp.Element], config multiposeidon.PackingConfig) *Hasher {
	eng, err := multiposeidon.NewEngine(p, config, fr.Modulus())
	if err != nil {
		// parameter sets are derived in-package and always valid
		panic(err)
	}
	return &Hasher{inner: eng}
}

// Update absorbs one input, dispatching on its kind: fp.Element (base
// field), fr.Element (scalar field, converted), G1Affine (affine
// coordinates, with the point at infinity kept in its own class), or a Go
// primitive (bool, sized integers, int, uint, string, []byte). Values and
// pointers of the curve types are both accepted. Unsupported types panic.
func (h *Hasher) Update(v any) {
	switch x := v.(type) {
	case fp.Element:
		h.inner.UpdateBase(x)
	case *fp.Element:
		h.inner.UpdateBase(*x)
	case fr.Element:
		h.inner.UpdateScalarLE(scalarLE(&x))
	case *fr.Element:
		h.inner.UpdateScalarLE(scalarLE(x))
	case curve.G1Affine:
		h.updatePoint(&x)
	case *curve.G1Affine:
		h.updatePoint(x)
	default:
		h.inner.UpdatePrimitive(v)
	}
}

func (h *Hasher) updatePoint(p *curve.G1Affine) {
	if p.IsInfinity() {
		h.inner.UpdateInfinity()
		return
	}
	h.inner.UpdatePoint(p.X, p.Y)
}

// AbsorbDomain installs a one-shot domain context affecting the next full
// block of absorbed elements.
func (h *Hasher) AbsorbDomain(ctx []byte) { h.inner.AbsorbDomain(ctx) }

// Digest returns the running hash over everything absorbed so far without
// disturbing the hasher state.
func (h *Hasher) Digest() fp.Element { return h.inner.Digest() }

// Finalize returns the hash and wipes the hasher's absorbed material; the
// hasher is unusable until Reset.
func (h *Hasher) Finalize() fp.Element { return h.inner.Finalize() }

// Reset restores the hasher to its construction-time state.
func (h *Hasher) Reset() { h.inner.Reset() }

// ElementCount reports the number of field elements absorbed so far.
func (h *Hasher) ElementCount() int { return h.inner.ElementCount() }

// Compress3 folds three base-field elements into one with a single width-4
// permutation call.
func Compress3(a, b, c fp.Element) fp.Element {
	return compressPerm().Compress3(a, b, c)
}

// scalarLE returns the canonical little-endian bytes of a scalar.
func scalarLE(s *fr.Element) []byte {
	be := s.Marshal()
	for i, j := 0, len(be)-1; i < j; i, j = i+1, j-1 {
		be[i], be[j] = be[j], be[i]
	}
	return be
}
