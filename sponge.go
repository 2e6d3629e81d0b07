package multiposeidon

// duplexSponge owns a width-t state vector and an absorbing/squeezing mode.
// Capacity lanes occupy state[:capacity] and are only ever touched by the
// permutation; absorb and squeeze address state[capacity+idx].
type duplexSponge[E any, PE Element[E]] struct {
	perm      *Permutation[E, PE]
	state     []E
	idx       int // next free lane (absorbing) or next ready lane (squeezing), in [0, rate]
	squeezing bool
}

func newDuplexSponge[E any, PE Element[E]](perm *Permutation[E, PE]) *duplexSponge[E, PE] {
	return &duplexSponge[E, PE]{
		perm:  perm,
		state: make([]E, perm.Width()),
	}
}

// absorb adds the elements into successive rate lanes, permuting at every
// block boundary. A sponge in squeezing mode restarts absorption at lane 0
// without an extra permutation.
func (s *duplexSponge[E, PE]) absorb(elements []E) {
	if len(elements) == 0 {
		return
	}
	rate := s.perm.Rate()
	capacity := s.perm.Width() - rate

	idx := s.idx
	if s.squeezing {
		s.squeezing = false
		idx = 0
	} else if idx == rate {
		s.perm.Permute(s.state)
		idx = 0
	}

	remaining := elements
	for {
		if idx+len(remaining) <= rate {
			for i := range remaining {
				PE(&s.state[capacity+idx+i]).Add(&s.state[capacity+idx+i], &remaining[i])
			}
			s.idx = idx + len(remaining)
			return
		}
		n := rate - idx
		for i := 0; i < n; i++ {
			PE(&s.state[capacity+idx+i]).Add(&s.state[capacity+idx+i], &remaining[i])
		}
		s.perm.Permute(s.state)
		remaining = remaining[n:]
		idx = 0
	}
}

// squeeze fills out with successive rate lanes, permuting between blocks.
// A sponge in absorbing mode permutes once first, finalizing any partial
// block.
func (s *duplexSponge[E, PE]) squeeze(out []E) {
	if len(out) == 0 {
		return
	}
	rate := s.perm.Rate()
	capacity := s.perm.Width() - rate

	idx := s.idx
	if !s.squeezing {
		s.perm.Permute(s.state)
		s.squeezing = true
		idx = 0
	} else if idx == rate {
		s.perm.Permute(s.state)
		idx = 0
	}

	remaining := out
	for {
		if idx+len(remaining) <= rate {
			copy(remaining, s.state[capacity+idx:capacity+idx+len(remaining)])
			s.idx = idx + len(remaining)
			return
		}
		n := rate - idx
		copy(remaining[:n], s.state[capacity+idx:capacity+rate])
		remaining = remaining[n:]
		s.perm.Permute(s.state)
		idx = 0
	}
}

// clone deep-copies the state vector; the permutation (immutable) is shared.
func (s *duplexSponge[E, PE]) clone() *duplexSponge[E, PE] {
	state := make([]E, len(s.state))
	copy(state, s.state)
	return &duplexSponge[E, PE]{
		perm:      s.perm,
		state:     state,
		idx:       s.idx,
		squeezing: s.squeezing,
	}
}

// wipe overwrites every lane with zero.
func (s *duplexSponge[E, PE]) wipe() {
	for i := range s.state {
		PE(&s.state[i]).SetZero()
	}
	s.idx = 0
	s.squeezing = false
}
