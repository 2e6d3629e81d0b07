package multiposeidon_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/stretchr/testify/require"

	"github.com/vocdoni/multiposeidon"
	"github.com/vocdoni/multiposeidon/internal/params"
)

// The reference model below recomputes both round schedules over big.Int,
// writing every linear layer as a plain matrix multiply instead of the
// add/double chains the production code uses. Agreement between the two pins
// the permutation without hand-maintained vectors.

func refAdd(mod, a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Add(a, b), mod)
}

func refMul(mod, a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(a, b), mod)
}

func refSbox(mod *big.Int, x *big.Int, d int) *big.Int {
	return new(big.Int).Exp(x, big.NewInt(int64(d)), mod)
}

func refMatMul(mod *big.Int, m [][]int64, state []*big.Int) []*big.Int {
	out := make([]*big.Int, len(state))
	for i := range m {
		acc := new(big.Int)
		for j := range m[i] {
			acc.Add(acc, new(big.Int).Mul(big.NewInt(m[i][j]), state[j]))
		}
		out[i] = acc.Mod(acc, mod)
	}
	return out
}

var refM4 = [][]int64{
	{5, 7, 1, 3},
	{4, 6, 1, 1},
	{1, 3, 5, 7},
	{1, 1, 4, 6},
}

func refExternal(mod *big.Int, state []*big.Int) []*big.Int {
	switch t := len(state); t {
	case 2:
		return refMatMul(mod, [][]int64{{2, 1}, {1, 2}}, state)
	case 3:
		return refMatMul(mod, [][]int64{{2, 1, 1}, {1, 2, 1}, {1, 1, 2}}, state)
	case 4:
		return refMatMul(mod, refM4, state)
	default:
		blocked := make([]*big.Int, t)
		for s := 0; s < t; s += 4 {
			copy(blocked[s:s+4], refMatMul(mod, refM4, state[s:s+4]))
		}
		out := make([]*big.Int, t)
		for i := range out {
			acc := new(big.Int).Set(blocked[i])
			for j := 0; j < t/4; j++ {
				acc.Add(acc, blocked[4*j+i%4])
			}
			out[i] = acc.Mod(acc, mod)
		}
		return out
	}
}

func refInternal(mod *big.Int, state, mu []*big.Int) []*big.Int {
	switch len(state) {
	case 2:
		return refMatMul(mod, [][]int64{{2, 1}, {1, 3}}, state)
	case 3:
		return refMatMul(mod, [][]int64{{2, 1, 1}, {1, 2, 1}, {1, 1, 3}}, state)
	default:
		sum := new(big.Int)
		for _, x := range state {
			sum.Add(sum, x)
		}
		sum.Mod(sum, mod)
		out := make([]*big.Int, len(state))
		for i := range state {
			out[i] = refAdd(mod, sum, refMul(mod, mu[i], state[i]))
		}
		return out
	}
}

func constantsToBig(es []fp.Element) []*big.Int {
	out := make([]*big.Int, len(es))
	for i := range es {
		out[i] = es[i].BigInt(new(big.Int))
	}
	return out
}

func refPermuteTwoMatrix(p *params.Parameters[fp.Element, *fp.Element], state []*big.Int) []*big.Int {
	mod := p.Modulus
	t := p.Width
	rc := constantsToBig(p.RoundConstants)
	mu := constantsToBig(p.Mu)
	half := p.FullRounds / 2
	round := 0

	state = refExternal(mod, state)
	for r := 0; r < half; r++ {
		for i := 0; i < t; i++ {
			state[i] = refSbox(mod, refAdd(mod, state[i], rc[round*t+i]), p.D)
		}
		state = refExternal(mod, state)
		round++
	}
	for r := 0; r < p.PartialRounds; r++ {
		state[0] = refSbox(mod, refAdd(mod, state[0], rc[round*t]), p.D)
		state = refInternal(mod, state, mu)
		round++
	}
	for r := 0; r < half; r++ {
		for i := 0; i < t; i++ {
			state[i] = refSbox(mod, refAdd(mod, state[i], rc[round*t+i]), p.D)
		}
		state = refExternal(mod, state)
		round++
	}
	return state
}

func refPermuteClassic(p *params.Parameters[fp.Element, *fp.Element], state []*big.Int) []*big.Int {
	mod := p.Modulus
	t := p.Width
	rc := constantsToBig(p.RoundConstants)
	mds := constantsToBig(p.MDS)
	half := p.FullRounds / 2

	mix := func(state []*big.Int) []*big.Int {
		out := make([]*big.Int, t)
		for i := 0; i < t; i++ {
			acc := new(big.Int)
			for j := 0; j < t; j++ {
				acc.Add(acc, new(big.Int).Mul(mds[i*t+j], state[j]))
			}
			out[i] = acc.Mod(acc, mod)
		}
		return out
	}

	round := 0
	for r := 0; r < half; r++ {
		for i := 0; i < t; i++ {
			state[i] = refSbox(mod, refAdd(mod, state[i], rc[round*t+i]), p.D)
		}
		state = mix(state)
		round++
	}
	for r := 0; r < p.PartialRounds; r++ {
		for i := 0; i < t; i++ {
			state[i] = refAdd(mod, state[i], rc[round*t+i])
		}
		state[0] = refSbox(mod, state[0], p.D)
		state = mix(state)
		round++
	}
	for r := 0; r < half; r++ {
		for i := 0; i < t; i++ {
			state[i] = refSbox(mod, refAdd(mod, state[i], rc[round*t+i]), p.D)
		}
		state = mix(state)
		round++
	}
	return state
}

func testState(width int) ([]fp.Element, []*big.Int) {
	es := make([]fp.Element, width)
	bs := make([]*big.Int, width)
	for i := range es {
		es[i].SetUint64(uint64(i))
		bs[i] = big.NewInt(int64(i))
	}
	return es, bs
}

func requireStatesEqual(t *testing.T, want []*big.Int, got []fp.Element) {
	t.Helper()
	for i := range got {
		require.Zero(t, want[i].Cmp(got[i].BigInt(new(big.Int))), "lane %d", i)
	}
}

func TestTwoMatrixMatchesReference(t *testing.T) {
	for _, width := range []int{2, 3, 4, 8} {
		p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, width, 8, 56, 5)
		require.NoError(t, err)
		perm, err := multiposeidon.NewPermutation(p)
		require.NoError(t, err)

		state, ref := testState(width)
		perm.Permute(state)
		requireStatesEqual(t, refPermuteTwoMatrix(p, ref), state)
	}
}

func TestClassicMatchesReference(t *testing.T) {
	// gcd(d, p-1) = 1 over bn254 fp only for 5 and 7
	for _, d := range []int{5, 7} {
		p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon, 3, 8, 56, d)
		require.NoError(t, err)
		perm, err := multiposeidon.NewPermutation(p)
		require.NoError(t, err)

		state, ref := testState(3)
		perm.Permute(state)
		requireStatesEqual(t, refPermuteClassic(p, ref), state)
	}
}

func TestTwoMatrixSboxDegreeSeven(t *testing.T) {
	p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, 3, 8, 56, 7)
	require.NoError(t, err)
	perm, err := multiposeidon.NewPermutation(p)
	require.NoError(t, err)

	state, ref := testState(3)
	perm.Permute(state)
	requireStatesEqual(t, refPermuteTwoMatrix(p, ref), state)
}

// TestDefaultSetKnownAnswer pins the bn254 width-3 default parameter set to a
// fixed output vector, so a change anywhere in the derivation or the round
// function cannot slip past the self-referential reference model above.
func TestDefaultSetKnownAnswer(t *testing.T) {
	p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, 3, 8, 56, 5)
	require.NoError(t, err)
	perm, err := multiposeidon.NewPermutation(p)
	require.NoError(t, err)

	state, _ := testState(3)
	perm.Permute(state)

	want := []string{
		"10723199199259619021328617774380320390997319662157007589611196268401956818365",
		"2017196484986256783370452807213459736757080764160197343016090947713623829326",
		"21079178927629842477688001095945625448457115239445801252596404797302160891283",
	}
	for i, w := range want {
		expected, ok := new(big.Int).SetString(w, 10)
		require.True(t, ok)
		require.Zero(t, expected.Cmp(state[i].BigInt(new(big.Int))), "lane %d", i)
	}
}

func TestCompress3MatchesPermutation(t *testing.T) {
	p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, 4, 8, 56, 5)
	require.NoError(t, err)
	perm, err := multiposeidon.NewPermutation(p)
	require.NoError(t, err)

	var a, b, c fp.Element
	a.SetUint64(11)
	b.SetUint64(22)
	c.SetUint64(33)

	manual := make([]fp.Element, 4)
	manual[0], manual[1], manual[2] = a, b, c
	perm.Permute(manual)

	out := perm.Compress3(a, b, c)
	require.True(t, out.Equal(&manual[0]))
}

func TestCompress3RequiresWidthFour(t *testing.T) {
	p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, 3, 8, 56, 5)
	require.NoError(t, err)
	perm, err := multiposeidon.NewPermutation(p)
	require.NoError(t, err)

	var a fp.Element
	require.Panics(t, func() { perm.Compress3(a, a, a) })
}

func TestPermutePanicsOnWrongWidth(t *testing.T) {
	p, err := params.Derive[fp.Element](fp.Modulus(), params.SchedulePoseidon2, 3, 8, 56, 5)
	require.NoError(t, err)
	perm, err := multiposeidon.NewPermutation(p)
	require.NoError(t, err)

	require.Panics(t, func() { perm.Permute(make([]fp.Element, 2)) })
}
