package machine

import "fmt"

// Catalog is the ordered list of instructions the search may emit.
type Catalog []Instruction

// CatalogOptions tunes catalog construction.
type CatalogOptions struct {
	// IncludeSelfMoves adds moves whose source equals the destination.
	// They are no-ops and only enlarge the branching factor.
	IncludeSelfMoves bool

	// Vector adds the vector-lane instructions when the layout has lanes.
	Vector bool
}

// DefaultCatalog returns the core catalog plus the vector instructions when
// the layout has lanes.
func DefaultCatalog(l Layout) Catalog {
	return NewCatalog(l, CatalogOptions{Vector: l.Vector})
}

// NewCatalog enumerates instructions for the layout.
//
// Core: MOV, CMOVG, CMOVL for every ordered register pair, then CMP for
// every register pair i<j. Vector: MIN, MAX, MOVDQA for every ordered lane
// pair, then MOVD register<-lane and lane<-register.
func NewCatalog(l Layout, opts CatalogOptions) Catalog {
	r := l.Registers()
	var c Catalog
	for _, op := range []Opcode{OpMov, OpCmovG, OpCmovL} {
		for dst := 0; dst < r; dst++ {
			for src := 0; src < r; src++ {
				if dst == src && !opts.IncludeSelfMoves {
					continue
				}
				c = append(c, Instruction{Op: op, Dst: uint8(dst), Src: uint8(src)})
			}
		}
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			c = append(c, Instruction{Op: OpCmp, Dst: uint8(i), Src: uint8(j)})
		}
	}

	if !opts.Vector || !l.Vector {
		return c
	}

	off, lanes := l.LaneOffset(), l.Lanes()
	for _, op := range []Opcode{OpMin, OpMax, OpMovdqa} {
		for dst := off; dst < off+lanes; dst++ {
			for src := off; src < off+lanes; src++ {
				if dst != src {
					c = append(c, Instruction{Op: op, Dst: uint8(dst), Src: uint8(src)})
				}
			}
		}
	}
	for reg := 0; reg < r; reg++ {
		for lane := off; lane < off+lanes; lane++ {
			c = append(c, Instruction{Op: OpMovd, Dst: uint8(reg), Src: uint8(lane)})
		}
	}
	for lane := off; lane < off+lanes; lane++ {
		for reg := 0; reg < r; reg++ {
			c = append(c, Instruction{Op: OpMovd, Dst: uint8(lane), Src: uint8(reg)})
		}
	}
	return c
}

// Validate checks every instruction's operands against the layout. It runs
// once at setup so Apply never needs to check indices.
func (c Catalog) Validate(l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if len(c) == 0 {
		return ErrEmptyCatalog
	}
	for idx, ins := range c {
		if err := ins.validate(l); err != nil {
			return fmt.Errorf("catalog entry %d (%s): %w", idx, ins, err)
		}
	}
	return nil
}

func (i Instruction) validate(l Layout) error {
	dst, src := int(i.Dst), int(i.Src)
	if i.Op.IsVector() && !l.Vector {
		return fmt.Errorf("%w: %s needs a layout with vector lanes", ErrInvalidInstruction, i.Op)
	}
	switch i.Op {
	case OpCmp, OpMov, OpCmovG, OpCmovL:
		if !l.IsRegister(dst) || !l.IsRegister(src) {
			return fmt.Errorf("%w: %s needs register operands in [1, %d]", ErrInvalidInstruction, i.Op, l.Registers())
		}
	case OpMin, OpMax, OpMovdqa:
		if !l.IsLane(dst) || !l.IsLane(src) {
			return fmt.Errorf("%w: %s needs lane operands", ErrInvalidInstruction, i.Op)
		}
	case OpMovd:
		regToLane := l.IsLane(dst) && l.IsRegister(src)
		laneToReg := l.IsRegister(dst) && l.IsLane(src)
		if !regToLane && !laneToReg {
			return fmt.Errorf("%w: MOVD moves between a register and a lane", ErrInvalidInstruction)
		}
	default:
		return fmt.Errorf("%w: unknown opcode %d", ErrInvalidInstruction, uint8(i.Op))
	}
	return nil
}
