package aarch64

import (
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// Encode returns the instruction word of the given DIT primitive. Only the
// MRS, MSR, DSB and ISB forms built by this package are supported.
func Encode(inst *mir.Inst) (uint32, error) {
	switch inst.Op {
	case MRS:
		if len(inst.Args) != 2 {
			break
		}
		rt, ok1 := inst.Args[0].(Reg)
		sr, ok2 := inst.Args[1].(SysReg)
		if !ok1 || !ok2 || rt == SP || !sr.valid() {
			break
		}
		return 0xD5300000 | sr.bits() | rt.num(), nil
	case MSR:
		if len(inst.Args) != 2 {
			break
		}
		switch dst := inst.Args[0].(type) {
		case SysReg:
			rt, ok := inst.Args[1].(Reg)
			if !ok || rt == SP || !dst.valid() {
				break
			}
			return 0xD5100000 | dst.bits() | rt.num(), nil
		case PState:
			imm, ok := inst.Args[1].(mir.Imm)
			if !ok || imm < 0 || imm > 0xF {
				break
			}
			return 0xD500401F | uint32(dst.Op1)<<16 | uint32(imm)<<8 | uint32(dst.Op2)<<5, nil
		}
	case DSB, ISB:
		if len(inst.Args) != 1 {
			break
		}
		opt, ok := inst.Args[0].(Barrier)
		if !ok || opt > 0xF {
			break
		}
		base := uint32(0xD503309F)
		if inst.Op == ISB {
			base = 0xD50330DF
		}
		return base | uint32(opt)<<8, nil
	}
	return 0, errors.Errorf("unable to encode instruction %q; unsupported instruction form", inst)
}
