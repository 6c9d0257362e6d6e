package dit

import (
	"github.com/mewmew/dit/arch/aarch64"
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// Insert inserts the sequence of the given boundary point into block.
func Insert(t *aarch64.Target, block *mir.Block, p Point) ([]*mir.Inst, error) {
	switch p.Kind {
	case SetPoint:
		return InsertEnable(t, block, p.Anchor)
	case UnsetPoint:
		return InsertDisable(t, block, p.Anchor)
	}
	return nil, errors.Errorf("invalid boundary point kind %v", p.Kind)
}

// InsertEnable inserts the DIT enable sequence before the anchor instruction
// of block, and returns the inserted instructions.
//
//	MRS  <scratch>, DIT
//	MSR  DIT, #1
//	DSB  SY
//	ISB  SY
//
// The current DIT state is saved in the scratch register, to be restored by
// the disable sequence.
func InsertEnable(t *aarch64.Target, block *mir.Block, anchor *mir.Inst) ([]*mir.Inst, error) {
	b, err := mir.NewBuilder(block, anchor)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	save := aarch64.BuildMRS(b, t.Scratch.Reg(), aarch64.DIT)
	set := aarch64.BuildMSRImm(b, aarch64.PStateDIT, 1)
	dsb := aarch64.BuildDSB(b, t.Barrier)
	isb := aarch64.BuildISB(b, t.Barrier)
	return []*mir.Inst{save, set, dsb, isb}, nil
}

// InsertDisable inserts the DIT disable sequence before the anchor
// instruction of block, and returns the inserted instructions.
//
//	MSR  DIT, <scratch>
//
// The DIT state saved by the most recent enable sequence is restored. No
// barrier follows the restore.
func InsertDisable(t *aarch64.Target, block *mir.Block, anchor *mir.Inst) ([]*mir.Inst, error) {
	b, err := mir.NewBuilder(block, anchor)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	restore := aarch64.BuildMSR(b, aarch64.DIT, t.Scratch.Reg())
	return []*mir.Inst{restore}, nil
}
