package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kr/pretty"
	"github.com/mewmew/dit/arch/aarch64"
	"github.com/mewmew/dit/dit"
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// transform marks the given functions as security-sensitive if their name is
// in protected, enables data independent timing for each security-sensitive
// function, and returns the number of rewritten functions.
func transform(t *aarch64.Target, funcs []*mir.Func, protected map[string]bool) (int, error) {
	n := 0
	for _, f := range funcs {
		if protected[f.Name] {
			f.SetAttr(mir.AttrDITProtected)
		}
		changed, err := dit.Run(t, f)
		if err != nil {
			return n, errors.WithStack(err)
		}
		if changed {
			dbg.Printf("%s: %d instructions after rewrite", f.Name, f.NInsts())
			n++
		}
	}
	return n, nil
}

// writeListing writes the assembly listing of the given functions to w. Each
// line holds the address (blank for inserted instructions), the instruction
// word and the assembly of an instruction.
func writeListing(w io.Writer, funcs []*mir.Func) error {
	for i, f := range funcs {
		if i != 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return errors.WithStack(err)
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n", f.Name); err != nil {
			return errors.WithStack(err)
		}
		for _, block := range f.Blocks {
			if _, err := fmt.Fprintf(w, "%s:\n", block.Name); err != nil {
				return errors.WithStack(err)
			}
			for _, inst := range block.Insts {
				word, err := encode(inst)
				if err != nil {
					return errors.WithStack(err)
				}
				addr := fmt.Sprintf("%18s", "")
				if inst.Addr != 0 || len(inst.Enc) > 0 {
					addr = inst.Addr.String()
				}
				if _, err := fmt.Fprintf(w, "\t%s  %08x  %v\n", addr, word, inst); err != nil {
					return errors.WithStack(err)
				}
			}
		}
	}
	return nil
}

// encode returns the instruction word of inst; decoded instructions keep
// their original encoding.
func encode(inst *mir.Inst) (uint32, error) {
	if len(inst.Enc) == 4 {
		return binary.LittleEndian.Uint32(inst.Enc), nil
	}
	return aarch64.Encode(inst)
}

// dumpFuncs pretty-prints the given functions to the debug logger.
func dumpFuncs(funcs []*mir.Func) {
	for _, f := range funcs {
		dbg.Printf("=== [ %s ] ===", f.Name)
		for _, block := range f.Blocks {
			dbg.Printf("%s:\n%# v", block.Name, pretty.Formatter(block.Insts))
		}
	}
}
