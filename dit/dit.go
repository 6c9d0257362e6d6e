package dit

import (
	"io"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/dit/arch/aarch64"
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

var (
	// dbg is a logger which logs debug messages with "dit:" prefix to standard
	// error.
	dbg = log.New(os.Stderr, term.MagentaBold("dit:")+" ", 0)
	// warn is a logger which logs warning messages with "warning:" prefix to
	// standard error.
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// SetOutput sets the output destination of debug messages.
func SetOutput(w io.Writer) {
	dbg.SetOutput(w)
}

// Gate reports whether f is subject to the transformation.
func Gate(f *mir.Func) bool {
	return f.Protected()
}

// Run enables data independent timing for the given function if it is marked
// dit-protected, and reports whether f was changed. Functions without the
// attribute are left untouched.
//
// The boundary points of every basic block are located before f is modified,
// so a function rejected by Classify is returned unchanged.
func Run(t *aarch64.Target, f *mir.Func) (bool, error) {
	if !Gate(f) {
		return false, nil
	}
	if t == nil || !t.Scratch.Valid() {
		return false, errors.Errorf("unable to process function %q; missing scratch register reservation", f.Name)
	}
	dbg.Printf("=== [ %s ] ===", f.Name)
	plan := make([][]Point, len(f.Blocks))
	for i, block := range f.Blocks {
		points, err := Classify(block, block.IsEntry())
		if err != nil {
			return false, errors.Wrapf(err, "unable to process function %q", f.Name)
		}
		plan[i] = points
	}
	checkScratch(t, f)
	changed := false
	for i, block := range f.Blocks {
		for _, p := range plan[i] {
			dbg.Printf("%s: %v", block.Name, p)
			if _, err := Insert(t, block, p); err != nil {
				return changed, errors.WithStack(err)
			}
			changed = true
		}
	}
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			dbg.Println(inst)
		}
	}
	return changed, nil
}

// checkScratch warns about instructions of f referring to the scratch
// register, as they may clobber the saved DIT state.
func checkScratch(t *aarch64.Target, f *mir.Func) {
	reg := t.Scratch.Reg()
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			if aarch64.Mentions(inst, reg) {
				warn.Printf("instruction %q of function %q refers to scratch register %v; saved DIT state may be clobbered", inst, f.Name, reg)
			}
		}
	}
}
