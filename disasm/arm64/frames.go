package arm64

import (
	"strconv"
	"strings"

	"github.com/mewmew/dit/bin"
	"github.com/mewmew/dit/mir"
	"golang.org/x/arch/arm64/arm64asm"
)

var (
	// spReg is the stack pointer.
	spReg = arm64asm.RegSP(arm64asm.SP)
	// fpReg is the frame pointer.
	fpReg = arm64asm.RegSP(arm64asm.X29)
)

// markFramesFromOracle flags the instructions of f located at the given
// sorted frame-setup and frame-destroy addresses.
func markFramesFromOracle(f *mir.Func, setup, destroy bin.Addrs) {
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			if setup.Contains(inst.Addr) {
				inst.SetFlag(mir.FrameSetup)
			}
			if destroy.Contains(inst.Addr) {
				inst.SetFlag(mir.FrameDestroy)
			}
		}
	}
}

// markFrames flags the prologue and epilogue instructions of f.
//
// The prologue is the leading run of frame construction instructions of the
// entry basic block, and each epilogue is the run of frame teardown
// instructions immediately preceding a return or a tail call of a basic
// block. Pointer authentication and branch target identification hints are
// part of these runs.
func markFrames(f *mir.Func) {
	if len(f.Blocks) == 0 {
		return
	}
	for _, inst := range f.Blocks[0].Insts {
		if !isPrologue(inst) && !isPrologueHint(inst) {
			break
		}
		inst.SetFlag(mir.FrameSetup)
	}
	addrs := make(map[bin.Addr]bool)
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			addrs[inst.Addr] = true
		}
	}
	for _, block := range f.Blocks {
		n := len(block.Insts)
		if n == 0 {
			continue
		}
		if last := block.Insts[n-1]; !isReturn(last) && !isTailCall(last, addrs) {
			continue
		}
		for i := n - 2; i >= 0; i-- {
			inst := block.Insts[i]
			if !isEpilogue(inst) && !isEpilogueHint(inst) {
				break
			}
			inst.SetFlag(mir.FrameDestroy)
		}
	}
}

// isReturn reports whether the given instruction returns from the function.
func isReturn(inst *mir.Inst) bool {
	switch inst.Op {
	case arm64asm.RET.String(), "RETAA", "RETAB":
		return true
	}
	return false
}

// isTailCall reports whether the given instruction is an unconditional direct
// branch to an address outside of the function, whose instruction addresses
// are given by addrs.
func isTailCall(inst *mir.Inst, addrs map[bin.Addr]bool) bool {
	if inst.Op != arm64asm.B.String() || len(inst.Args) != 1 {
		return false
	}
	rel, ok := inst.Args[0].(arm64asm.PCRel)
	if !ok {
		return false
	}
	target := bin.Addr(int64(inst.Addr) + int64(rel))
	return !addrs[target]
}

// isPrologueHint reports whether the given instruction signs the return
// address or is a branch target landing pad.
//
//	paciasp, pacibsp, paciaz, pacibz, bti
func isPrologueHint(inst *mir.Inst) bool {
	switch inst.Op {
	case "PACIASP", "PACIBSP", "PACIAZ", "PACIBZ", "BTI":
		return true
	}
	switch hint, ok := hintNum(inst); {
	case !ok:
		return false
	case hint >= 24 && hint <= 27:
		return true
	case hint == 32 || hint == 34 || hint == 36 || hint == 38:
		return true
	}
	return false
}

// isEpilogueHint reports whether the given instruction authenticates the
// return address.
//
//	autiasp, autibsp, autiaz, autibz
func isEpilogueHint(inst *mir.Inst) bool {
	switch inst.Op {
	case "AUTIASP", "AUTIBSP", "AUTIAZ", "AUTIBZ":
		return true
	}
	hint, ok := hintNum(inst)
	return ok && hint >= 28 && hint <= 31
}

// isPrologue reports whether the given instruction constructs a stack frame.
//
//	stp x29, x30, [sp, #-N]!
//	stp x19, x20, [sp, #N]
//	str x30, [sp, #-N]!
//	sub sp, sp, #N
//	mov x29, sp
//	add x29, sp, #N
func isPrologue(inst *mir.Inst) bool {
	switch inst.Op {
	case arm64asm.STP.String():
		mem, ok := memArg(inst, 2)
		return ok && mem.Base == spReg && (mem.Mode == arm64asm.AddrPreIndex || mem.Mode == arm64asm.AddrOffset)
	case arm64asm.STR.String():
		mem, ok := memArg(inst, 1)
		return ok && mem.Base == spReg && mem.Mode == arm64asm.AddrPreIndex
	case arm64asm.SUB.String():
		return isRegSP(inst, 0, spReg) && isRegSP(inst, 1, spReg)
	case arm64asm.MOV.String(), arm64asm.ADD.String():
		return isRegSP(inst, 0, fpReg) && isRegSP(inst, 1, spReg)
	}
	return false
}

// isEpilogue reports whether the given instruction tears down a stack frame.
//
//	ldp x29, x30, [sp], #N
//	ldp x19, x20, [sp, #N]
//	ldr x30, [sp], #N
//	add sp, sp, #N
//	mov sp, x29
func isEpilogue(inst *mir.Inst) bool {
	switch inst.Op {
	case arm64asm.LDP.String():
		mem, ok := memArg(inst, 2)
		return ok && mem.Base == spReg && (mem.Mode == arm64asm.AddrPostIndex || mem.Mode == arm64asm.AddrOffset)
	case arm64asm.LDR.String():
		mem, ok := memArg(inst, 1)
		return ok && mem.Base == spReg && mem.Mode == arm64asm.AddrPostIndex
	case arm64asm.ADD.String():
		return isRegSP(inst, 0, spReg) && isRegSP(inst, 1, spReg)
	case arm64asm.MOV.String():
		return isRegSP(inst, 0, spReg) && isRegSP(inst, 1, fpReg)
	}
	return false
}

// ### [ Helper functions ] ####################################################

// hintNum returns the immediate of a generic HINT instruction.
func hintNum(inst *mir.Inst) (uint64, bool) {
	if inst.Op != arm64asm.HINT.String() || len(inst.Args) != 1 {
		return 0, false
	}
	x, err := strconv.ParseUint(strings.TrimPrefix(inst.Args[0].String(), "#"), 0, 8)
	if err != nil {
		return 0, false
	}
	return x, true
}

// memArg returns the i-th operand of inst as immediate offset memory operand.
func memArg(inst *mir.Inst, i int) (arm64asm.MemImmediate, bool) {
	if i >= len(inst.Args) {
		return arm64asm.MemImmediate{}, false
	}
	mem, ok := inst.Args[i].(arm64asm.MemImmediate)
	return mem, ok
}

// isRegSP reports whether the i-th operand of inst is the given register.
func isRegSP(inst *mir.Inst, i int, reg arm64asm.RegSP) bool {
	if i >= len(inst.Args) {
		return false
	}
	r, ok := inst.Args[i].(arm64asm.RegSP)
	return ok && r == reg
}
