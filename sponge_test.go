package multiposeidon

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/stretchr/testify/require"

	"github.com/vocdoni/multiposeidon/internal/params"
)

func newTestSponge(t *testing.T, width int) *duplexSponge[fp.Element, *fp.Element] {
	t.Helper()
	p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, width, 8, 56, 5)
	require.NoError(t, err)
	perm, err := NewPermutation(p)
	require.NoError(t, err)
	return newDuplexSponge(perm)
}

func spongeInputs(n int) []fp.Element {
	out := make([]fp.Element, n)
	for i := range out {
		out[i].SetUint64(uint64(100 + i))
	}
	return out
}

func TestSpongeBatchEqualsElementwise(t *testing.T) {
	inputs := spongeInputs(5)

	batch := newTestSponge(t, 3)
	batch.absorb(inputs)

	single := newTestSponge(t, 3)
	for i := range inputs {
		single.absorb(inputs[i : i+1])
	}

	a := make([]fp.Element, 3)
	b := make([]fp.Element, 3)
	batch.squeeze(a)
	single.squeeze(b)
	for i := range a {
		require.True(t, a[i].Equal(&b[i]), "lane %d", i)
	}
}

func TestSpongeSqueezeContinuity(t *testing.T) {
	inputs := spongeInputs(4)

	whole := newTestSponge(t, 3)
	whole.absorb(inputs)
	all := make([]fp.Element, 4)
	whole.squeeze(all)

	split := newTestSponge(t, 3)
	split.absorb(inputs)
	for i := 0; i < 4; i++ {
		var one [1]fp.Element
		split.squeeze(one[:])
		require.True(t, all[i].Equal(&one[0]), "output %d", i)
	}
}

func TestSpongeCloneIndependent(t *testing.T) {
	s := newTestSponge(t, 3)
	s.absorb(spongeInputs(2))

	cp := s.clone()
	s.absorb(spongeInputs(1))

	// the clone squeezes the prefix-only digest
	fresh := newTestSponge(t, 3)
	fresh.absorb(spongeInputs(2))

	var a, b [1]fp.Element
	cp.squeeze(a[:])
	fresh.squeeze(b[:])
	require.True(t, a[0].Equal(&b[0]))
}

func TestSpongeDuplexInterleave(t *testing.T) {
	run := func() fp.Element {
		s := newTestSponge(t, 3)
		s.absorb(spongeInputs(1))
		var mid [1]fp.Element
		s.squeeze(mid[:])
		s.absorb(spongeInputs(2))
		var out [1]fp.Element
		s.squeeze(out[:])
		return out[0]
	}

	first := run()
	second := run()
	require.True(t, first.Equal(&second))

	// interleaving a squeeze changes the transcript
	plain := newTestSponge(t, 3)
	plain.absorb(spongeInputs(1))
	plain.absorb(spongeInputs(2))
	var out [1]fp.Element
	plain.squeeze(out[:])
	require.False(t, first.Equal(&out[0]))
}

func TestSpongeWipe(t *testing.T) {
	s := newTestSponge(t, 3)
	s.absorb(spongeInputs(3))
	s.wipe()

	var zero fp.Element
	for i := range s.state {
		require.True(t, s.state[i].Equal(&zero), "lane %d not wiped", i)
	}
	require.Zero(t, s.idx)
	require.False(t, s.squeezing)

	// a wiped sponge behaves like a fresh one
	fresh := newTestSponge(t, 3)
	var a, b [1]fp.Element
	s.squeeze(a[:])
	fresh.squeeze(b[:])
	require.True(t, a[0].Equal(&b[0]))
}
