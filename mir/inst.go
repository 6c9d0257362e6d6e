package mir

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/mewmew/dit/bin"
)

// Flag is a set of instruction flags.
type Flag uint8

// Instruction flags.
const (
	// FrameSetup marks instructions constructing the stack frame.
	FrameSetup Flag = 1 << iota
	// FrameDestroy marks instructions tearing down the stack frame.
	FrameDestroy
)

// String returns the string representation of the instruction flags.
func (flags Flag) String() string {
	buf := &bytes.Buffer{}
	if flags&FrameSetup != 0 {
		buf.WriteString("frame-setup")
	}
	if flags&FrameDestroy != 0 {
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString("frame-destroy")
	}
	return buf.String()
}

// DebugLoc is the source location associated with an instruction.
type DebugLoc struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// IsZero reports whether loc is the unknown location.
func (loc DebugLoc) IsZero() bool {
	return loc == DebugLoc{}
}

// String returns the string representation of the debug location.
func (loc DebugLoc) String() string {
	if loc.IsZero() {
		return "<unknown>"
	}
	s := loc.File + ":" + strconv.Itoa(loc.Line)
	if loc.Col != 0 {
		s += ":" + strconv.Itoa(loc.Col)
	}
	return s
}

// Operand is an instruction operand; targets define concrete operand types.
type Operand interface {
	fmt.Stringer
}

// Imm is an immediate operand.
type Imm int64

// String returns the string representation of the immediate.
func (imm Imm) String() string {
	return "#" + strconv.FormatInt(int64(imm), 10)
}

// Inst is a machine instruction.
type Inst struct {
	// Opcode mnemonic.
	Op string
	// Operands.
	Args []Operand
	// Instruction flags.
	Flags Flag
	// Debug location.
	Loc DebugLoc
	// Address of instruction; zero for synthesized instructions.
	Addr bin.Addr
	// Encoding of instruction, if decoded from machine code.
	Enc []byte
}

// NewInst returns a new instruction with the given opcode and operands.
func NewInst(op string, args ...Operand) *Inst {
	return &Inst{
		Op:   op,
		Args: args,
	}
}

// Flag reports whether all the given flags are set on inst.
func (inst *Inst) Flag(flags Flag) bool {
	return inst.Flags&flags == flags
}

// SetFlag sets the given flags on inst.
func (inst *Inst) SetFlag(flags Flag) {
	inst.Flags |= flags
}

// ClearFlag clears the given flags on inst.
func (inst *Inst) ClearFlag(flags Flag) {
	inst.Flags &^= flags
}

// String returns the string representation of the instruction.
func (inst *Inst) String() string {
	buf := &bytes.Buffer{}
	if inst.Flags != 0 {
		fmt.Fprintf(buf, "%v ", inst.Flags)
	}
	buf.WriteString(inst.Op)
	for i, arg := range inst.Args {
		if i == 0 {
			buf.WriteString(" ")
		} else {
			buf.WriteString(", ")
		}
		buf.WriteString(arg.String())
	}
	if !inst.Loc.IsZero() {
		fmt.Fprintf(buf, " ; %v", inst.Loc)
	}
	return buf.String()
}
