// Package arm64 implements a disassembler for the AArch64 architecture, which
// lifts machine code to machine functions.
//
// Function and basic block boundaries, frame markers and debug locations are
// provided by oracles; frame markers are otherwise recognized from common
// prologue and epilogue patterns.
package arm64

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/dit/bin"
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
	"golang.org/x/arch/arm64/arm64asm"
)

var (
	// dbg is a logger which logs debug messages with "arm64:" prefix to
	// standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("arm64:")+" ", 0)
)

// SetOutput sets the output destination of debug messages.
func SetOutput(w io.Writer) {
	dbg.SetOutput(w)
}

// Instruction length in bytes.
const instLen = 4

// Frames records the addresses of frame-setup and frame-destroy instructions.
type Frames struct {
	// Addresses of frame-setup instructions.
	Setup bin.Addrs `json:"setup"`
	// Addresses of frame-destroy instructions.
	Destroy bin.Addrs `json:"destroy"`
}

// Decoder lifts AArch64 machine code to machine functions.
type Decoder struct {
	// Function entry addresses; if empty, the code is a single function.
	FuncAddrs bin.Addrs
	// Basic block entry addresses; if empty, basic blocks are split at
	// terminators and direct branch targets.
	BlockAddrs bin.Addrs
	// Frame markers; if nil, frame markers are recognized from prologues and
	// epilogues.
	Frames *Frames
	// Maps from instruction address to debug location.
	Lines map[bin.Addr]mir.DebugLoc
	// Maps from function address to function name.
	Names map[bin.Addr]string
}

// Decode decodes the AArch64 machine code located at start into machine
// functions.
func (d *Decoder) Decode(start bin.Addr, code []byte) ([]*mir.Func, error) {
	dbg.Printf("decode(start = %v, len = %d)", start, len(code))
	end := start + bin.Addr(len(code)&^(instLen-1))
	funcAddrs := append(bin.Addrs(nil), d.FuncAddrs...)
	if len(funcAddrs) == 0 {
		funcAddrs = bin.Addrs{start}
	}
	sort.Sort(funcAddrs)
	blockAddrs := append(bin.Addrs(nil), d.BlockAddrs...)
	if len(blockAddrs) == 0 {
		var err error
		blockAddrs, err = findLeaders(start, end, code, funcAddrs)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	sort.Sort(blockAddrs)
	blocks, err := d.decodeBlocks(start, end, code, blockAddrs)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	funcs, err := d.decodeFuncs(funcAddrs, blocks)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if d.Frames != nil {
		setup := append(bin.Addrs(nil), d.Frames.Setup...)
		sort.Sort(setup)
		destroy := append(bin.Addrs(nil), d.Frames.Destroy...)
		sort.Sort(destroy)
		for _, f := range funcs {
			markFramesFromOracle(f, setup, destroy)
		}
	} else {
		for _, f := range funcs {
			markFrames(f)
		}
	}
	return funcs, nil
}

// decodeFuncs groups the given basic blocks into functions based on the
// function entry addresses.
func (d *Decoder) decodeFuncs(funcAddrs bin.Addrs, blocks []*mir.Block) ([]*mir.Func, error) {
	j := 0
	var funcs []*mir.Func
	for i, funcAddr := range funcAddrs {
		end := bin.Addr(math.MaxUint64)
		if i+1 < len(funcAddrs) {
			end = funcAddrs[i+1]
		}
		name, ok := d.Names[funcAddr]
		if !ok {
			name = fmt.Sprintf("func_%016X", uint64(funcAddr))
		}
		f := mir.NewFunc(name, funcAddr)
		for _, block := range blocks[j:] {
			blockAddr := block.Insts[0].Addr
			if blockAddr >= end {
				break
			}
			if blockAddr < funcAddr {
				return nil, errors.Errorf("unable to locate function containing basic block; expected address >= %v, got %v", funcAddr, blockAddr)
			}
			block.Parent = f
			f.Blocks = append(f.Blocks, block)
			j++
		}
		if len(f.Blocks) == 0 || f.Blocks[0].Insts[0].Addr != funcAddr {
			return nil, errors.Errorf("unable to locate entry basic block of function %q at %v", name, funcAddr)
		}
		funcs = append(funcs, f)
	}
	return funcs, nil
}

// decodeBlocks decodes the basic blocks at the given addresses.
func (d *Decoder) decodeBlocks(start, end bin.Addr, code []byte, blockAddrs bin.Addrs) ([]*mir.Block, error) {
	var blocks []*mir.Block
	for j, blockAddr := range blockAddrs {
		if blockAddr < start || blockAddr >= end {
			return nil, errors.Errorf("basic block address %v outside of code [%v, %v)", blockAddr, start, end)
		}
		block := &mir.Block{
			Name: fmt.Sprintf("block_%016X", uint64(blockAddr)),
		}
		for instAddr := blockAddr; instAddr < end; instAddr += instLen {
			src := code[instAddr-start:]
			a, err := decode(instAddr, src)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			block.Insts = append(block.Insts, d.newInst(instAddr, a, src))
			next := instAddr + instLen
			if isTerm(a.Op) || (j+1 < len(blockAddrs) && next >= blockAddrs[j+1]) {
				break
			}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// newInst returns the machine instruction of the given decoded AArch64
// instruction, annotated with its address, encoding and debug location.
func (d *Decoder) newInst(instAddr bin.Addr, a arm64asm.Inst, src []byte) *mir.Inst {
	inst := mir.NewInst(a.Op.String())
	for _, arg := range a.Args {
		if arg == nil {
			break
		}
		inst.Args = append(inst.Args, arg)
	}
	inst.Addr = instAddr
	inst.Enc = append([]byte(nil), src[:instLen]...)
	inst.Loc = d.Lines[instAddr]
	return inst
}

// findLeaders returns the basic block entry addresses of the given code; the
// function entries, the addresses following terminators and the targets of
// direct branches.
func findLeaders(start, end bin.Addr, code []byte, funcAddrs bin.Addrs) (bin.Addrs, error) {
	leaders := make(map[bin.Addr]bool)
	for _, funcAddr := range funcAddrs {
		leaders[funcAddr] = true
	}
	for instAddr := start; instAddr < end; instAddr += instLen {
		a, err := decode(instAddr, code[instAddr-start:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !isTerm(a.Op) {
			continue
		}
		if next := instAddr + instLen; next < end {
			leaders[next] = true
		}
		for _, arg := range a.Args {
			if rel, ok := arg.(arm64asm.PCRel); ok {
				target := bin.Addr(int64(instAddr) + int64(rel))
				if target >= start && target < end {
					leaders[target] = true
				}
			}
		}
	}
	var addrs bin.Addrs
	for addr := range leaders {
		addrs = append(addrs, addr)
	}
	sort.Sort(addrs)
	return addrs, nil
}

// ### [ Helper functions ] ####################################################

// decode decodes the leading bytes in src as a single AArch64 instruction.
func decode(instAddr bin.Addr, src []byte) (arm64asm.Inst, error) {
	if len(src) < instLen {
		return arm64asm.Inst{}, errors.Errorf("unable to parse instruction at address %v; truncated instruction", instAddr)
	}
	a, err := arm64asm.Decode(src[:instLen])
	if err != nil {
		dbg.Print(hex.Dump(src[:instLen]))
		return arm64asm.Inst{}, errors.Errorf("unable to parse instruction at address %v; %v", instAddr, err)
	}
	return a, nil
}

// isTerm reports whether the given opcode is a terminator opcode.
func isTerm(op arm64asm.Op) bool {
	switch op {
	// Unconditional and conditional branches.
	case arm64asm.B, arm64asm.BR:
		return true
	// Compare and test branches.
	case arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		return true
	// Return terminators.
	case arm64asm.RET:
		return true
	}
	switch op.String() {
	case "RETAA", "RETAB":
		return true
	}
	return false
}
