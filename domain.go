package multiposeidon

import (
	"fmt"
	"math/big"
)

// inputClass is the semantic category of an absorbed element. Every element
// is shifted by a class- and lane-specific constant before it reaches the
// sponge, so two field-identical values from different classes diverge.
type inputClass uint8

const (
	classBaseField inputClass = iota
	classScalarField
	classPointFinite
	classPointInfinity
	classPrimitive
	numClasses
)

// Wire-stable tag bytes naming each class in derivation labels.
var classTags = [numClasses]byte{0x01, 0x02, 0x03, 0x04, 0x21}

// domainTweak is a one-shot context separator layered on top of the
// per-class constants. It affects exactly one full block of lanes, starting
// at the next lane-0 boundary when alignToBlockStart is set.
type domainTweak[E any] struct {
	vector            []E // length rate
	remaining         int
	alignToBlockStart bool
}

// domainSeparator tracks the lane cursor and pending tweak, and owns the
// per-class lane constants. The cursor advances by one per absorbed element
// and is independent of the sponge's own block alignment.
type domainSeparator[E any, PE Element[E]] struct {
	rate           int
	modulus        *big.Int
	classConstants [numClasses][]E
	cursor         int
	pending        *domainTweak[E]
}

func newDomainSeparator[E any, PE Element[E]](rate int, modulus *big.Int) *domainSeparator[E, PE] {
	ds := &domainSeparator[E, PE]{rate: rate, modulus: modulus}
	for c := inputClass(0); c < numClasses; c++ {
		vec := make([]E, rate)
		for k := range vec {
			label := fmt.Sprintf("multiposeidon/class/0x%02x|%d", classTags[c], k)
			vec[k] = hashToField[E, PE](label, nil, modulus)
		}
		ds.classConstants[c] = vec
	}
	return ds
}

// installDomain derives a fresh length-rate vector from the context bytes and
// installs it as the pending tweak, replacing any previous one. The tweak is
// consumed lane by lane over the next full block.
func (ds *domainSeparator[E, PE]) installDomain(ctx []byte) {
	vec := make([]E, ds.rate)
	for k := range vec {
		vec[k] = hashToField[E, PE](fmt.Sprintf("multiposeidon/domain|%d|", k), ctx, ds.modulus)
	}
	ds.pending = &domainTweak[E]{
		vector:            vec,
		remaining:         ds.rate,
		alignToBlockStart: true,
	}
}

// transform shifts each element by its class constant and, where due, the
// pending domain tweak, advancing the cursor. The inputs are not modified;
// the returned slice is freshly allocated.
func (ds *domainSeparator[E, PE]) transform(class inputClass, elements []E) []E {
	constants := ds.classConstants[class]
	out := make([]E, len(elements))
	for i := range elements {
		lane := ds.cursor
		var v E
		PE(&v).Add(&elements[i], &constants[lane])
		if p := ds.pending; p != nil {
			applyNow := true
			if p.alignToBlockStart {
				applyNow = lane == 0
			}
			if applyNow && p.remaining > 0 {
				PE(&v).Add(&v, &p.vector[lane])
				p.remaining--
				p.alignToBlockStart = false
				if p.remaining == 0 {
					ds.pending = nil
				}
			}
		}
		out[i] = v
		ds.cursor = (ds.cursor + 1) % ds.rate
	}
	return out
}

// clone supports the non-mutating digest preview: cursor and pending tweak
// are deep-copied, the immutable class constants are shared.
func (ds *domainSeparator[E, PE]) clone() *domainSeparator[E, PE] {
	cp := *ds
	if ds.pending != nil {
		vec := make([]E, len(ds.pending.vector))
		copy(vec, ds.pending.vector)
		cp.pending = &domainTweak[E]{
			vector:            vec,
			remaining:         ds.pending.remaining,
			alignToBlockStart: ds.pending.alignToBlockStart,
		}
	}
	return &cp
}

func (ds *domainSeparator[E, PE]) reset() {
	ds.cursor = 0
	ds.pending = nil
}
