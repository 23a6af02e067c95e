package machine

import (
	"fmt"
	"strconv"
	"strings"
)

// Instruction is one (opcode, destination, source) triple. Dst and Src are
// slot indices into a State.
type Instruction struct {
	Op  Opcode `json:"op"`
	Dst uint8  `json:"dst"`
	Src uint8  `json:"src"`
}

// String renders the instruction 1-indexed, e.g. "CMOVG 1 4".
func (i Instruction) String() string {
	return fmt.Sprintf("%s %d %d", i.Op, int(i.Dst)+1, int(i.Src)+1)
}

// ParseInstruction parses the String form back into an Instruction.
func ParseInstruction(s string) (Instruction, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 3 {
		return Instruction{}, fmt.Errorf("%w: expected \"OP dst src\", got %q", ErrInvalidInstruction, s)
	}
	op, err := ParseOpcode(fields[0])
	if err != nil {
		return Instruction{}, err
	}
	dst, err := parseSlot(fields[1])
	if err != nil {
		return Instruction{}, err
	}
	src, err := parseSlot(fields[2])
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Dst: dst, Src: src}, nil
}

func parseSlot(s string) (uint8, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxWidth {
		return 0, fmt.Errorf("%w: bad slot %q", ErrInvalidInstruction, s)
	}
	return uint8(n - 1), nil
}

// General register names in allocation order.
var registerNames = []string{
	"eax", "ecx", "edx", "r8d", "r9d", "r10d", "r11d", "esi", "edi", "ebx",
	"r12d", "r13d", "r14d", "r15d", "ebp",
}

// SlotName returns the assembly name of a register or lane slot.
func (l Layout) SlotName(slot int) string {
	switch {
	case l.IsRegister(slot) && slot < len(registerNames):
		return registerNames[slot]
	case l.IsLane(slot):
		return fmt.Sprintf("xmm%d", slot-l.LaneOffset())
	case slot == l.FlagLT():
		return "lt"
	case slot == l.FlagGT():
		return "gt"
	}
	return fmt.Sprintf("s%d", slot)
}

// Asm renders the instruction as x86 assembly with the source operand first.
func (i Instruction) Asm(l Layout) string {
	mnemonic := i.Op.String()
	if i.Op.Valid() {
		mnemonic = asmMnemonics[i.Op]
	}
	return fmt.Sprintf("%s %s, %s", mnemonic, l.SlotName(int(i.Src)), l.SlotName(int(i.Dst)))
}
