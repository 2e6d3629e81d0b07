package multiposeidon

import (
	"fmt"

	"github.com/vocdoni/multiposeidon/internal/params"
)

// Permutation applies one fixed-round Poseidon permutation to a width-t state.
// The round schedule (classic dense-MDS or two-matrix) is selected by the
// parameter set; both expose the same contract. Every code path executes a
// data-independent sequence of field operations.
type Permutation[E any, PE Element[E]] struct {
	p *params.Parameters[E, PE]
}

// NewPermutation validates the parameter set and wraps it.
func NewPermutation[E any, PE Element[E]](p *params.Parameters[E, PE]) (*Permutation[E, PE], error) {
	if err := params.Validate(p); err != nil {
		return nil, err
	}
	return &Permutation[E, PE]{p: p}, nil
}

// Width returns the state width t = rate + capacity.
func (pm *Permutation[E, PE]) Width() int { return pm.p.Width }

// Rate returns the number of lanes exposed to absorb/squeeze.
func (pm *Permutation[E, PE]) Rate() int { return pm.p.Rate }

// Permute mutates the state in place.
func (pm *Permutation[E, PE]) Permute(state []E) {
	if len(state) != pm.p.Width {
		panic(fmt.Sprintf("multiposeidon: state length %d does not match width %d", len(state), pm.p.Width))
	}
	switch pm.p.Schedule {
	case params.SchedulePoseidon:
		pm.permuteClassic(state)
	case params.SchedulePoseidon2:
		pm.permuteTwoMatrix(state)
	default:
		panic("multiposeidon: unknown schedule")
	}
}

// Compress3 folds three elements into one with a single permutation call:
// the state is loaded as [a, b, c, 0] (capacity lane last, zero) and lane 0 of
// the permuted state is returned. No sponge bookkeeping is involved.
func (pm *Permutation[E, PE]) Compress3(a, b, c E) E {
	if pm.p.Width != 4 || pm.p.Capacity != 1 {
		panic("multiposeidon: Compress3 requires t=4, capacity=1 parameters")
	}
	state := make([]E, 4)
	state[0], state[1], state[2] = a, b, c
	pm.Permute(state)
	return state[0]
}

// Two-matrix round structure:
// 1) external mix before any rounds
// 2) rf/2 full rounds: +constants (all lanes), S-box (all), external mix
// 3) rp partial rounds: +constant (lane 0), S-box (lane 0), internal mix
// 4) rf/2 full rounds as in 2)
func (pm *Permutation[E, PE]) permuteTwoMatrix(state []E) {
	t := pm.p.Width
	half := pm.p.FullRounds / 2
	round := 0

	matmulExternal[E, PE](state)

	for r := 0; r < half; r++ {
		pm.addRoundRow(state, round)
		pm.sboxFull(state)
		matmulExternal[E, PE](state)
		round++
	}

	for r := 0; r < pm.p.PartialRounds; r++ {
		PE(&state[0]).Add(&state[0], &pm.p.RoundConstants[round*t])
		pm.sboxLane(&state[0])
		matmulInternal[E, PE](state, pm.p.Mu)
		round++
	}

	for r := 0; r < half; r++ {
		pm.addRoundRow(state, round)
		pm.sboxFull(state)
		matmulExternal[E, PE](state)
		round++
	}
}

// Classic round structure: every round adds its full constant row and ends in
// a dense MDS multiply; partial rounds restrict the S-box to lane 0.
func (pm *Permutation[E, PE]) permuteClassic(state []E) {
	half := pm.p.FullRounds / 2
	round := 0

	for r := 0; r < half; r++ {
		pm.addRoundRow(state, round)
		pm.sboxFull(state)
		pm.mixDense(state)
		round++
	}
	for r := 0; r < pm.p.PartialRounds; r++ {
		pm.addRoundRow(state, round)
		pm.sboxLane(&state[0])
		pm.mixDense(state)
		round++
	}
	for r := 0; r < half; r++ {
		pm.addRoundRow(state, round)
		pm.sboxFull(state)
		pm.mixDense(state)
		round++
	}
}

func (pm *Permutation[E, PE]) addRoundRow(state []E, round int) {
	offset := round * pm.p.Width
	for i := range state {
		PE(&state[i]).Add(&state[i], &pm.p.RoundConstants[offset+i])
	}
}

func (pm *Permutation[E, PE]) sboxFull(state []E) {
	for i := range state {
		pm.sboxLane(&state[i])
	}
}

// sboxLane raises one lane to the configured degree with an explicit
// square/multiply chain so the operation count never depends on the value.
func (pm *Permutation[E, PE]) sboxLane(x *E) {
	var x2 E
	PE(&x2).Square(x)
	switch pm.p.D {
	case 3:
		PE(x).Mul(&x2, x)
	case 5:
		var x4 E
		PE(&x4).Square(&x2)
		PE(x).Mul(&x4, x)
	case 7:
		var x4, x6 E
		PE(&x4).Square(&x2)
		PE(&x6).Mul(&x4, &x2)
		PE(x).Mul(&x6, x)
	default:
		panic(fmt.Sprintf("multiposeidon: unsupported s-box degree %d", pm.p.D))
	}
}

// mixDense multiplies the state by the dense MDS matrix (classic schedule).
func (pm *Permutation[E, PE]) mixDense(state []E) {
	t := pm.p.Width
	newState := make([]E, t)
	for i := 0; i < t; i++ {
		var sum E
		rowOffset := i * t
		for j := 0; j < t; j++ {
			var prod E
			PE(&prod).Mul(&pm.p.MDS[rowOffset+j], &state[j])
			PE(&sum).Add(&sum, &prod)
		}
		newState[i] = sum
	}
	copy(state, newState)
}

// matmulExternal applies the cheap external mixing layer. Widths 2 and 3 use
// the closed-form circulants circ(2,1) and circ(2,1,1); width 4 uses the fixed
// 4x4 combination; larger multiples of 4 apply the 4x4 combination block-wise
// and then add lane-wise sums across blocks.
func matmulExternal[E any, PE Element[E]](state []E) {
	switch t := len(state); t {
	case 2:
		var sum E
		PE(&sum).Add(&state[0], &state[1])
		PE(&state[0]).Add(&state[0], &sum)
		PE(&state[1]).Add(&state[1], &sum)
	case 3:
		var sum E
		PE(&sum).Add(&state[0], &state[1])
		PE(&sum).Add(&sum, &state[2])
		for i := range state {
			PE(&state[i]).Add(&state[i], &sum)
		}
	case 4:
		matmulM4[E, PE](state)
	case 8, 12, 16, 20, 24:
		matmulM4[E, PE](state)
		var stored [4]E
		t4 := t / 4
		for l := 0; l < 4; l++ {
			stored[l] = state[l]
			for j := 1; j < t4; j++ {
				PE(&stored[l]).Add(&stored[l], &state[4*j+l])
			}
		}
		for i := range state {
			PE(&state[i]).Add(&state[i], &stored[i%4])
		}
	default:
		panic(fmt.Sprintf("multiposeidon: unsupported width %d for external mix", t))
	}
}

// matmulM4 computes y = M4 * x per 4-lane block with the add/double schedule,
// where M4 = [[5,7,1,3], [4,6,1,1], [1,3,5,7], [1,1,4,6]].
func matmulM4[E any, PE Element[E]](state []E) {
	for s := 0; s < len(state); s += 4 {
		var t0, t1, t2, t3, t4, t5, t6, t7 E
		PE(&t0).Add(&state[s], &state[s+1])
		PE(&t1).Add(&state[s+2], &state[s+3])
		PE(&t2).Double(&state[s+1])
		PE(&t2).Add(&t2, &t1)
		PE(&t3).Double(&state[s+3])
		PE(&t3).Add(&t3, &t0)
		PE(&t4).Double(&t1)
		PE(&t4).Double(&t4)
		PE(&t4).Add(&t4, &t3)
		PE(&t5).Double(&t0)
		PE(&t5).Double(&t5)
		PE(&t5).Add(&t5, &t2)
		PE(&t6).Add(&t3, &t5)
		PE(&t7).Add(&t2, &t4)
		state[s] = t6
		state[s+1] = t5
		state[s+2] = t7
		state[s+3] = t4
	}
}

// matmulInternal applies the internal mixing layer of the two-matrix schedule.
// Widths 2 and 3 use fixed matrices ([[2,1],[1,3]] and [[2,1,1],[1,2,1],
// [1,1,3]]); larger widths compute y_i = sum(x) + mu_i * x_i.
func matmulInternal[E any, PE Element[E]](state []E, mu []E) {
	switch t := len(state); t {
	case 2:
		var sum E
		PE(&sum).Add(&state[0], &state[1])
		PE(&state[0]).Add(&state[0], &sum)
		PE(&state[1]).Double(&state[1])
		PE(&state[1]).Add(&state[1], &sum)
	case 3:
		var sum E
		PE(&sum).Add(&state[0], &state[1])
		PE(&sum).Add(&sum, &state[2])
		PE(&state[0]).Add(&state[0], &sum)
		PE(&state[1]).Add(&state[1], &sum)
		PE(&state[2]).Double(&state[2])
		PE(&state[2]).Add(&state[2], &sum)
	default:
		sum := state[0]
		for j := 1; j < t; j++ {
			PE(&sum).Add(&sum, &state[j])
		}
		for i := range state {
			PE(&state[i]).Mul(&state[i], &mu[i])
			PE(&state[i]).Add(&state[i], &sum)
		}
	}
}
