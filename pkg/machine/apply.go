package machine

// Apply executes one instruction on one register state and returns the
// result. The instruction must have passed Catalog.Validate for l.
func Apply(l Layout, ins Instruction, s State) State {
	dst, src := ins.Dst, ins.Src
	switch ins.Op {
	case OpCmp:
		s[l.FlagLT()] = boolByte(s[dst] < s[src])
		s[l.FlagGT()] = boolByte(s[dst] > s[src])
	case OpMov, OpMovd, OpMovdqa:
		s[dst] = s[src]
	case OpCmovG:
		if s[l.FlagGT()] == 1 {
			s[dst] = s[src]
		}
	case OpCmovL:
		if s[l.FlagLT()] == 1 {
			s[dst] = s[src]
		}
	case OpMin:
		if s[src] < s[dst] {
			s[dst] = s[src]
		}
	case OpMax:
		if s[src] > s[dst] {
			s[dst] = s[src]
		}
	}
	return s
}

// Inverse returns every state p with Apply(l, ins, p) == s. An empty result
// means no predecessor exists. Overwritten slots are enumerated over the
// full value range 0..N; overwritten flags over {0,1}.
func Inverse(l Layout, ins Instruction, s State) []State {
	dst, src := int(ins.Dst), int(ins.Src)
	switch ins.Op {
	case OpCmp:
		lt, gt := s[l.FlagLT()], s[l.FlagGT()]
		if lt != boolByte(s[dst] < s[src]) || gt != boolByte(s[dst] > s[src]) {
			return nil
		}
		out := make([]State, 0, 4)
		for _, f := range [4][2]uint8{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
			p := s
			p[l.FlagLT()], p[l.FlagGT()] = f[0], f[1]
			out = append(out, p)
		}
		return out

	case OpMov, OpMovd, OpMovdqa:
		return inverseMove(l, dst, src, s)

	case OpCmovG:
		if s[l.FlagGT()] == 0 {
			return []State{s}
		}
		return inverseMove(l, dst, src, s)

	case OpCmovL:
		if s[l.FlagLT()] == 0 {
			return []State{s}
		}
		return inverseMove(l, dst, src, s)

	case OpMin:
		if dst == src {
			return []State{s}
		}
		b := s[src]
		switch {
		case s[dst] > b:
			return nil
		case s[dst] < b:
			return []State{s}
		}
		return overwrite(s, dst, b, uint8(l.Values))

	case OpMax:
		if dst == src {
			return []State{s}
		}
		b := s[src]
		switch {
		case s[dst] < b:
			return nil
		case s[dst] > b:
			return []State{s}
		}
		return overwrite(s, dst, 0, b)
	}
	return nil
}

// inverseMove undoes dst = src: the destination may have held anything.
func inverseMove(l Layout, dst, src int, s State) []State {
	if dst == src {
		return []State{s}
	}
	if s[dst] != s[src] {
		return nil
	}
	return overwrite(s, dst, 0, uint8(l.Values))
}

// overwrite returns copies of s with slot set to each value in [lo, hi].
func overwrite(s State, slot int, lo, hi uint8) []State {
	out := make([]State, 0, int(hi-lo)+1)
	for v := int(lo); v <= int(hi); v++ {
		p := s
		p[slot] = uint8(v)
		out = append(out, p)
	}
	return out
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
