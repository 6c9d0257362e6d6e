// Package aarch64 describes the AArch64 target: its register file, the
// system registers and barriers used to control data independent timing (DIT),
// and the binary encoding of those primitives.
package aarch64

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Opcodes of the DIT primitives.
const (
	// MRS reads a system register into a general purpose register.
	MRS = "MRS"
	// MSR writes a system register or PSTATE field from a register or an
	// immediate.
	MSR = "MSR"
	// DSB is the data synchronization barrier.
	DSB = "DSB"
	// ISB is the instruction synchronization barrier.
	ISB = "ISB"
)

// Reg is a 64-bit general purpose register operand.
type Reg uint8

// General purpose registers.
const (
	X0 Reg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	SP
	XZR
)

// Register aliases.
const (
	// FP is the frame pointer.
	FP = X29
	// LR is the link register.
	LR = X30
)

// String returns the string representation of the register.
func (reg Reg) String() string {
	switch {
	case reg <= X30:
		return "X" + strconv.Itoa(int(reg))
	case reg == SP:
		return "SP"
	case reg == XZR:
		return "XZR"
	}
	return "Reg(" + strconv.Itoa(int(reg)) + ")"
}

// num returns the 5-bit register number of reg.
func (reg Reg) num() uint32 {
	if reg == XZR {
		return 31
	}
	return uint32(reg)
}

// ParseReg returns the register with the given name (case insensitive). The
// aliases FP and LR are accepted.
func ParseReg(s string) (Reg, error) {
	name := strings.ToUpper(s)
	switch name {
	case "SP":
		return SP, nil
	case "XZR":
		return XZR, nil
	case "FP":
		return FP, nil
	case "LR":
		return LR, nil
	}
	if strings.HasPrefix(name, "X") {
		n, err := strconv.Atoi(name[len("X"):])
		if err == nil && n >= 0 && n <= 30 {
			return Reg(n), nil
		}
	}
	return 0, errors.Errorf("invalid AArch64 register %q", s)
}

// SysReg is a system register operand, identified by its encoding fields.
type SysReg struct {
	// Register name; empty for generic system registers.
	Name string
	// Encoding fields.
	Op0, Op1, CRn, CRm, Op2 uint8
}

// DIT is the Data Independent Timing system register (S3_3_C4_C2_5).
var DIT = SysReg{Name: "DIT", Op0: 3, Op1: 3, CRn: 4, CRm: 2, Op2: 5}

// String returns the string representation of the system register.
func (sr SysReg) String() string {
	if sr.Name != "" {
		return sr.Name
	}
	return "S" + strconv.Itoa(int(sr.Op0)) + "_" + strconv.Itoa(int(sr.Op1)) +
		"_C" + strconv.Itoa(int(sr.CRn)) + "_C" + strconv.Itoa(int(sr.CRm)) +
		"_" + strconv.Itoa(int(sr.Op2))
}

// valid reports whether sr is encodable by MRS and MSR (register); op0 is 2
// or 3, and the remaining fields fit their bit widths.
func (sr SysReg) valid() bool {
	return (sr.Op0 == 2 || sr.Op0 == 3) && sr.Op1 <= 7 && sr.CRn <= 15 && sr.CRm <= 15 && sr.Op2 <= 7
}

// bits returns the o0:op1:CRn:CRm:op2 field of MRS and MSR (register), placed
// at bit 5 of the instruction word.
func (sr SysReg) bits() uint32 {
	return uint32(sr.Op0-2)<<19 | uint32(sr.Op1)<<16 | uint32(sr.CRn)<<12 | uint32(sr.CRm)<<8 | uint32(sr.Op2)<<5
}

// PState is a PSTATE field operand of MSR (immediate).
type PState struct {
	// Field name.
	Name string
	// Encoding fields.
	Op1, Op2 uint8
}

// PStateDIT is the DIT bit of PSTATE.
var PStateDIT = PState{Name: "DIT", Op1: 3, Op2: 2}

// String returns the string representation of the PSTATE field.
func (pf PState) String() string {
	return pf.Name
}

// Barrier is the option operand of DSB and ISB.
type Barrier uint8

// SY is the full system barrier option.
const SY Barrier = 0xF

// String returns the string representation of the barrier option.
func (opt Barrier) String() string {
	if opt == SY {
		return "SY"
	}
	return "#" + strconv.Itoa(int(opt))
}
