// Package multiposeidon implements a multi-input Poseidon hasher over the
// base field of an elliptic curve: a hand-built permutation (classic and
// two-matrix schedules), a duplex sponge, a per-class domain separation layer,
// and a byte-packing buffer for machine primitives. Per-curve bindings live in
// the bn254, bls12377 and bls12381 subpackages.
package multiposeidon

import (
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/vocdoni/multiposeidon/internal/params"
)

// Element is the capability set a field element type must provide.
// gnark-crypto's per-curve fp/fr element types satisfy it.
type Element[E any] = params.Element[E]

// fromLEBytesModOrder reinterprets little-endian bytes as a field element,
// reducing modulo the field order.
func fromLEBytesModOrder[E any, PE Element[E]](data []byte) E {
	reversed := make([]byte, len(data))
	for i := range data {
		reversed[len(data)-1-i] = data[i]
	}
	bi := new(big.Int).SetBytes(reversed)
	var out E
	PE(&out).SetBigInt(bi)
	return out
}

// hashToField deterministically maps a label plus optional payload into the
// field: SHAKE128 output, oversampled well past the modulus size, reduced mod
// order. Used for domain and class lane constants, never on secret data.
func hashToField[E any, PE Element[E]](label string, data []byte, modulus *big.Int) E {
	xof := sha3.NewShake128()
	xof.Write([]byte(label))
	xof.Write(data)
	buf := make([]byte, (modulus.BitLen()+7)/8+16)
	xof.Read(buf)
	bi := new(big.Int).SetBytes(buf)
	bi.Mod(bi, modulus)
	var out E
	PE(&out).SetBigInt(bi)
	return out
}
