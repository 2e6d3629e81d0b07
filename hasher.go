package multiposeidon

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/multiposeidon/internal/params"
)

// Engine is the generic multi-field hasher: one duplex sponge, an immutable
// base snapshot for cheap resets, a packing buffer for primitives, and the
// domain separation bookkeeping. Per-curve packages wrap one Engine each and
// forward calls; an Engine must not be shared between goroutines.
type Engine[E any, PE Element[E]] struct {
	perm   *Permutation[E, PE]
	sponge *duplexSponge[E, PE]
	base   *duplexSponge[E, PE]
	ds     *domainSeparator[E, PE]
	buf    *packingBuffer[E, PE]

	scalarSupported bool
	count           int
}

// NewEngine builds an engine over the given parameter set. scalarModulus is
// the order of the curve's scalar field; if its bit width exceeds the base
// field's, the curve combination is categorically unsupported and NewEngine
// panics rather than ever truncating scalar data. A nil scalarModulus
// disables the scalar input path.
func NewEngine[E any, PE Element[E]](p *params.Parameters[E, PE], config PackingConfig, scalarModulus *big.Int) (*Engine[E, PE], error) {
	perm, err := NewPermutation(p)
	if err != nil {
		return nil, err
	}
	scalarSupported := false
	if scalarModulus != nil {
		if scalarModulus.BitLen() > p.Modulus.BitLen() {
			panic(fmt.Sprintf("multiposeidon: scalar field (%d bits) wider than base field (%d bits); conversion would truncate",
				scalarModulus.BitLen(), p.Modulus.BitLen()))
		}
		scalarSupported = true
	}
	sponge := newDuplexSponge(perm)
	return &Engine[E, PE]{
		perm:            perm,
		sponge:          sponge,
		base:            sponge.clone(),
		ds:              newDomainSeparator[E, PE](p.Rate, p.Modulus),
		buf:             newPackingBuffer[E, PE](config, p.Modulus.BitLen()),
		scalarSupported: scalarSupported,
	}, nil
}

func (e *Engine[E, PE]) absorbClass(class inputClass, elements []E) {
	if len(elements) == 0 {
		return
	}
	tweaked := e.ds.transform(class, elements)
	e.sponge.absorb(tweaked)
	e.count += len(elements)
	for i := range tweaked {
		PE(&tweaked[i]).SetZero()
	}
}

// UpdateBase absorbs one base-field element unchanged.
func (e *Engine[E, PE]) UpdateBase(v E) {
	e.absorbClass(classBaseField, []E{v})
}

// UpdateScalarLE absorbs a scalar-field element given as its little-endian
// canonical bytes, reinterpreted modulo the base-field order. Panics if the
// engine was built without a supported scalar field.
func (e *Engine[E, PE]) UpdateScalarLE(le []byte) {
	if !e.scalarSupported {
		panic("multiposeidon: scalar-field inputs are not supported by this engine")
	}
	e.absorbClass(classScalarField, []E{fromLEBytesModOrder[E, PE](le)})
}

// UpdatePoint absorbs the affine coordinates of a finite curve point.
func (e *Engine[E, PE]) UpdatePoint(x, y E) {
	e.absorbClass(classPointFinite, []E{x, y})
}

// UpdateInfinity absorbs the point at infinity as a single zero element in
// its own class, so it can never collide with two zero base-field elements.
func (e *Engine[E, PE]) UpdateInfinity() {
	var zero E
	e.absorbClass(classPointInfinity, []E{zero})
}

// UpdatePrimitive serializes one machine value into the packing buffer and
// immediately routes any completed chunks into the sponge.
func (e *Engine[E, PE]) UpdatePrimitive(v any) {
	e.buf.pushPrimitive(v)
	e.absorbClass(classPrimitive, e.buf.extractFieldElements())
}

// AbsorbDomain installs a one-shot context separator derived from ctx. It
// affects exactly one full block of subsequently absorbed elements, starting
// at the next lane-0 boundary, and commutes with prior absorption history.
func (e *Engine[E, PE]) AbsorbDomain(ctx []byte) {
	e.ds.installDomain(ctx)
}

// Digest returns the hash over everything absorbed so far without disturbing
// the hasher: sponge, buffer and domain bookkeeping are deep-copied, the
// buffered remainder is flushed through the copies, and one element is
// squeezed from the sponge copy. Further updates keep accumulating.
func (e *Engine[E, PE]) Digest() E {
	sponge := e.sponge.clone()
	ds := e.ds.clone()
	buf := e.buf.clone()
	if remainder := buf.flushRemaining(); len(remainder) > 0 {
		sponge.absorb(ds.transform(classPrimitive, remainder))
	}
	var out [1]E
	sponge.squeeze(out[:])
	buf.wipe()
	sponge.wipe()
	return out[0]
}

// Finalize flushes the real buffer, squeezes one element, and wipes the
// sponge and buffer. The result equals Digest called at the same point. The
// hasher holds no absorbed material afterwards and is unusable until Reset.
func (e *Engine[E, PE]) Finalize() E {
	e.absorbClass(classPrimitive, e.buf.flushRemaining())
	var out [1]E
	e.sponge.squeeze(out[:])
	e.buf.wipe()
	e.sponge.wipe()
	return out[0]
}

// Reset restores the sponge to its construction-time snapshot and clears the
// buffer, lane cursor, pending tweak and element counter. Parameters are
// untouched. Absorbed material is zeroed before being released.
func (e *Engine[E, PE]) Reset() {
	e.sponge.wipe()
	e.sponge = e.base.clone()
	e.buf.wipe()
	e.ds.reset()
	e.count = 0
}

// ElementCount reports the number of field elements absorbed so far.
func (e *Engine[E, PE]) ElementCount() int { return e.count }
