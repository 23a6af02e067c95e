// Package machine defines the tiny compare/move register machine that sorting
// programs are synthesized for.
//
// A register state is a fixed-width byte tuple. The first R = N+S slots are
// general registers, followed by two comparison flags (less-than and
// greater-than) written only by CMP. Layouts with vector lanes append R more
// slots that are reachable only through the vector opcodes.
//
// Register values are sorted-rank labels: 0 means unknown or overwritten and
// 1..N name the rank of an original input value.
package machine

import (
	"fmt"
	"strings"
)

// Opcode identifies the operation performed by an instruction.
type Opcode uint8

// Core opcodes operate on general registers and the flags.
const (
	OpCmp   Opcode = 0 // set both flags from reg[dst] ? reg[src]
	OpMov   Opcode = 1 // reg[dst] = reg[src]
	OpCmovG Opcode = 2 // if GT: reg[dst] = reg[src]
	OpCmovL Opcode = 3 // if LT: reg[dst] = reg[src]
)

// Vector opcodes operate on lanes or move between registers and lanes.
const (
	OpMin    Opcode = 4 // lane[dst] = min(lane[dst], lane[src])
	OpMax    Opcode = 5 // lane[dst] = max(lane[dst], lane[src])
	OpMovd   Opcode = 6 // register <-> lane copy
	OpMovdqa Opcode = 7 // lane[dst] = lane[src]
)

// numOpcodes bounds the valid opcode range.
const numOpcodes = 8

var opcodeNames = [numOpcodes]string{
	OpCmp:    "CMP",
	OpMov:    "MOV",
	OpCmovG:  "CMOVG",
	OpCmovL:  "CMOVL",
	OpMin:    "MIN",
	OpMax:    "MAX",
	OpMovd:   "MOVD",
	OpMovdqa: "MOVDQA",
}

// asmMnemonics are the x86 mnemonics used when rendering assembly.
var asmMnemonics = [numOpcodes]string{
	OpCmp:    "cmp",
	OpMov:    "mov",
	OpCmovG:  "cmovg",
	OpCmovL:  "cmovl",
	OpMin:    "pminud",
	OpMax:    "pmaxud",
	OpMovd:   "movd",
	OpMovdqa: "movdqa",
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeNames[op]
	}
	return fmt.Sprintf("OP(%d)", uint8(op))
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

// IsVector reports whether op belongs to the vector extension.
func (op Opcode) IsVector() bool {
	return op >= OpMin && op < numOpcodes
}

// ParseOpcode resolves a mnemonic such as "CMOVG" (case-insensitive).
func ParseOpcode(name string) (Opcode, error) {
	for i, n := range opcodeNames {
		if strings.EqualFold(n, name) {
			return Opcode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown opcode %q", ErrInvalidInstruction, name)
}
