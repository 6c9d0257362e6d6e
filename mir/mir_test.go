package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reg string

func (r reg) String() string { return string(r) }

func TestBuilderInsertsBeforeAnchor(t *testing.T) {
	f := NewFunc("f", 0)
	block := f.NewBlock("entry")
	a := NewInst("a")
	b := NewInst("b")
	b.Loc = DebugLoc{File: "f.c", Line: 12, Col: 3}
	c := NewInst("c")
	block.Append(a, b, c)

	builder, err := NewBuilder(block, b)
	require.NoError(t, err)
	x := builder.Build("x", reg("x1"))
	y := builder.Build("y", Imm(1))

	assert.Equal(t, []*Inst{a, x, y, b, c}, block.Insts)
	assert.Equal(t, b.Loc, x.Loc)
	assert.Equal(t, b.Loc, y.Loc)
	assert.True(t, a.Loc.IsZero())
}

func TestBuilderAtFirstInst(t *testing.T) {
	f := NewFunc("f", 0)
	block := f.NewBlock("entry")
	a := NewInst("a")
	block.Append(a)
	builder, err := NewBuilder(block, a)
	require.NoError(t, err)
	x := builder.Build("x")
	assert.Equal(t, []*Inst{x, a}, block.Insts)
}

func TestBuilderForeignAnchor(t *testing.T) {
	f := NewFunc("f", 0)
	block := f.NewBlock("entry")
	block.Append(NewInst("a"))
	_, err := NewBuilder(block, NewInst("a"))
	assert.Error(t, err)
}

func TestIsEntry(t *testing.T) {
	f := NewFunc("f", 0)
	entry := f.NewBlock("entry")
	exit := f.NewBlock("exit")
	assert.True(t, entry.IsEntry())
	assert.False(t, exit.IsEntry())
	assert.False(t, (&Block{}).IsEntry())
}

func TestFlags(t *testing.T) {
	inst := NewInst("stp")
	assert.False(t, inst.Flag(FrameSetup))
	inst.SetFlag(FrameSetup)
	assert.True(t, inst.Flag(FrameSetup))
	assert.False(t, inst.Flag(FrameDestroy))
	assert.False(t, inst.Flag(FrameSetup|FrameDestroy))
	inst.SetFlag(FrameDestroy)
	assert.Equal(t, "frame-setup frame-destroy", inst.Flags.String())
	inst.ClearFlag(FrameSetup)
	assert.Equal(t, FrameDestroy, inst.Flags)
}

func TestString(t *testing.T) {
	f := NewFunc("encrypt", 0)
	f.SetAttr(AttrDITProtected)
	block := f.NewBlock("entry")
	stp := NewInst("stp", reg("x29"), reg("x30"), reg("[sp, #-16]!"))
	stp.SetFlag(FrameSetup)
	stp.Loc = DebugLoc{File: "aes.c", Line: 7}
	block.Append(stp, NewInst("ret"))
	want := "func encrypt() \"dit-protected\" {\n" +
		"entry:\n" +
		"\tframe-setup stp x29, x30, [sp, #-16]! ; aes.c:7\n" +
		"\tret\n" +
		"}"
	assert.Equal(t, want, f.String())
	assert.Equal(t, 2, f.NInsts())
	assert.True(t, f.Protected())
}
