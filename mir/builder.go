package mir

import "github.com/pkg/errors"

// Builder creates instructions immediately ahead of an anchor instruction. The
// instructions of a builder are inserted in build order, and each carries the
// debug location of the anchor.
type Builder struct {
	// Basic block being extended.
	block *Block
	// Instruction before which new instructions are inserted.
	anchor *Inst
	// Current index of anchor in block.
	pos int
}

// NewBuilder returns a builder which inserts instructions before the given
// anchor instruction of block.
func NewBuilder(block *Block, anchor *Inst) (*Builder, error) {
	pos := block.Index(anchor)
	if pos == -1 {
		return nil, errors.Errorf("unable to locate anchor instruction %q in basic block %q", anchor, block.Name)
	}
	return &Builder{
		block:  block,
		anchor: anchor,
		pos:    pos,
	}, nil
}

// Build creates a new instruction with the given opcode and operands and
// inserts it before the anchor.
func (b *Builder) Build(op string, args ...Operand) *Inst {
	inst := NewInst(op, args...)
	inst.Loc = b.anchor.Loc
	insts := b.block.Insts
	insts = append(insts, nil)
	copy(insts[b.pos+1:], insts[b.pos:])
	insts[b.pos] = inst
	b.block.Insts = insts
	b.pos++
	return inst
}
