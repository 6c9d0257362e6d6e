package aarch64

import (
	"strings"
	"unicode"

	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// DefaultScratch is the register holding the saved DIT state between the
// enable and disable sequences unless configured otherwise.
const DefaultScratch = X14

// Scratch is a register reserved for holding the saved DIT state. The zero
// value is not a valid reservation; use ReserveScratch.
type Scratch struct {
	reg   Reg
	valid bool
}

// ReserveScratch reserves reg as scratch register. The stack pointer, the zero
// register, the frame pointer, the link register and the platform register
// X18 cannot be reserved.
func ReserveScratch(reg Reg) (Scratch, error) {
	switch reg {
	case SP, XZR, FP, LR, X18:
		return Scratch{}, errors.Errorf("register %v cannot be reserved as scratch register", reg)
	}
	if reg > XZR {
		return Scratch{}, errors.Errorf("invalid register %v", reg)
	}
	return Scratch{reg: reg, valid: true}, nil
}

// Reg returns the reserved register.
func (s Scratch) Reg() Reg {
	return s.reg
}

// Valid reports whether s was obtained through ReserveScratch.
func (s Scratch) Valid() bool {
	return s.valid
}

// Target is the target description of one invocation of a machine function
// transformation.
type Target struct {
	// Scratch register holding the saved DIT state.
	Scratch Scratch
	// Barrier option of the synchronization barriers.
	Barrier Barrier
}

// NewTarget returns a new target description using the given scratch
// register and full system barriers.
func NewTarget(scratch Scratch) *Target {
	return &Target{
		Scratch: scratch,
		Barrier: SY,
	}
}

// ### [ Primitives ] ##########################################################

// BuildMRS builds `MRS dst, sr` using b.
func BuildMRS(b *mir.Builder, dst Reg, sr SysReg) *mir.Inst {
	return b.Build(MRS, dst, sr)
}

// BuildMSRImm builds `MSR pf, #imm` using b.
func BuildMSRImm(b *mir.Builder, pf PState, imm int64) *mir.Inst {
	return b.Build(MSR, pf, mir.Imm(imm))
}

// BuildMSR builds `MSR sr, src` using b.
func BuildMSR(b *mir.Builder, sr SysReg, src Reg) *mir.Inst {
	return b.Build(MSR, sr, src)
}

// BuildDSB builds `DSB opt` using b.
func BuildDSB(b *mir.Builder, opt Barrier) *mir.Inst {
	return b.Build(DSB, opt)
}

// BuildISB builds `ISB opt` using b.
func BuildISB(b *mir.Builder, opt Barrier) *mir.Inst {
	return b.Build(ISB, opt)
}

// ### [ Helper functions ] ####################################################

// Mentions reports whether any operand of inst refers to reg, either through
// its 64-bit or 32-bit view. Operands of foreign operand types (e.g. those of
// a disassembler) are matched by register name.
func Mentions(inst *mir.Inst, reg Reg) bool {
	if reg > X30 {
		return false
	}
	x := strings.ToUpper(reg.String())
	w := "W" + x[len("X"):]
	for _, arg := range inst.Args {
		if r, ok := arg.(Reg); ok {
			if r == reg {
				return true
			}
			continue
		}
		fields := strings.FieldsFunc(strings.ToUpper(arg.String()), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		for _, field := range fields {
			if field == x || field == w {
				return true
			}
		}
	}
	return false
}
