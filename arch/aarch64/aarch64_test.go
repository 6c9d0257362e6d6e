package aarch64

import (
	"encoding/binary"
	"testing"

	"github.com/mewmew/dit/mir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm64/arm64asm"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		inst *mir.Inst
		want uint32
	}{
		{name: "mrs x14, dit", inst: mir.NewInst(MRS, X14, DIT), want: 0xD53B42AE},
		{name: "msr dit, x14", inst: mir.NewInst(MSR, DIT, X14), want: 0xD51B42AE},
		{name: "msr dit, #1", inst: mir.NewInst(MSR, PStateDIT, mir.Imm(1)), want: 0xD503415F},
		{name: "msr dit, #0", inst: mir.NewInst(MSR, PStateDIT, mir.Imm(0)), want: 0xD503405F},
		{name: "dsb sy", inst: mir.NewInst(DSB, SY), want: 0xD5033F9F},
		{name: "isb sy", inst: mir.NewInst(ISB, SY), want: 0xD5033FDF},
		{name: "mrs x0, dit", inst: mir.NewInst(MRS, X0, DIT), want: 0xD53B42A0},
		{name: "mrs x1, s2_0_c0_c0_0", inst: mir.NewInst(MRS, X1, SysReg{Op0: 2}), want: 0xD5300001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.inst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got 0x%08X", got)
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	insts := []*mir.Inst{
		mir.NewInst("NOP"),
		mir.NewInst(MRS, X14),
		mir.NewInst(MRS, SP, DIT),
		mir.NewInst(MSR, DIT, mir.Imm(1)),
		mir.NewInst(MSR, PStateDIT, mir.Imm(16)),
		mir.NewInst(DSB, mir.Imm(15)),
		mir.NewInst(MRS, X0, SysReg{Op0: 1, Op1: 3, CRn: 4, CRm: 2, Op2: 5}),
		mir.NewInst(MSR, SysReg{Op0: 0, Op1: 3, CRn: 4, CRm: 2, Op2: 5}, X0),
		mir.NewInst(MRS, X0, SysReg{Op0: 3, Op1: 8, CRn: 4, CRm: 2, Op2: 5}),
	}
	for _, inst := range insts {
		_, err := Encode(inst)
		assert.Error(t, err, "instruction %q", inst)
	}
}

// The encodings must be recognized by an independent disassembler.
func TestEncodeDecodes(t *testing.T) {
	tests := []struct {
		inst *mir.Inst
		want arm64asm.Op
	}{
		{inst: mir.NewInst(MRS, X14, DIT), want: arm64asm.MRS},
		{inst: mir.NewInst(MSR, DIT, X14), want: arm64asm.MSR},
		{inst: mir.NewInst(DSB, SY), want: arm64asm.DSB},
		{inst: mir.NewInst(ISB, SY), want: arm64asm.ISB},
	}
	for _, tt := range tests {
		word, err := Encode(tt.inst)
		require.NoError(t, err)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, word)
		got, err := arm64asm.Decode(buf)
		require.NoError(t, err, "instruction %q", tt.inst)
		assert.Equal(t, tt.want, got.Op, "instruction %q", tt.inst)
	}
}

func TestReserveScratch(t *testing.T) {
	s, err := ReserveScratch(X14)
	require.NoError(t, err)
	assert.True(t, s.Valid())
	assert.Equal(t, X14, s.Reg())

	for _, reg := range []Reg{SP, XZR, FP, LR, X18, Reg(40)} {
		_, err := ReserveScratch(reg)
		assert.Error(t, err, "register %v", reg)
	}
	assert.False(t, Scratch{}.Valid())
}

func TestParseReg(t *testing.T) {
	golden := []struct {
		in   string
		want Reg
	}{
		{in: "x0", want: X0},
		{in: "X14", want: X14},
		{in: "x30", want: X30},
		{in: "lr", want: LR},
		{in: "FP", want: X29},
		{in: "sp", want: SP},
		{in: "xzr", want: XZR},
	}
	for _, g := range golden {
		got, err := ParseReg(g.in)
		require.NoError(t, err, "input %q", g.in)
		assert.Equal(t, g.want, got)
	}
	for _, in := range []string{"", "x31", "w1", "x-1", "r0"} {
		_, err := ParseReg(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestMentions(t *testing.T) {
	assert.True(t, Mentions(mir.NewInst(MSR, DIT, X14), X14))
	assert.False(t, Mentions(mir.NewInst(MSR, DIT, X13), X14))
	assert.True(t, Mentions(mir.NewInst("LDR", stringer("W14"), stringer("[SP,#8]")), X14))
	assert.True(t, Mentions(mir.NewInst("STR", stringer("X0"), stringer("[X14,#8]")), X14))
	assert.False(t, Mentions(mir.NewInst("STR", stringer("X0"), stringer("[X1,#14]")), X14))
	assert.False(t, Mentions(mir.NewInst(MRS, X0, DIT), SP))
}

type stringer string

func (s stringer) String() string { return string(s) }
