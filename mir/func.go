package mir

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/mewmew/dit/bin"
)

// AttrDITProtected is the function attribute marking security-sensitive
// functions, which must execute with data independent timing.
const AttrDITProtected = "dit-protected"

// Func is a machine function consisting of zero or more basic blocks.
type Func struct {
	// Function name.
	Name string
	// Address of entry basic block; zero if not lifted from machine code.
	Entry bin.Addr
	// Function attributes.
	Attrs map[string]bool
	// Basic blocks in layout order; the first is the entry block.
	Blocks []*Block
}

// NewFunc returns a new function with the given name and entry address.
func NewFunc(name string, entry bin.Addr) *Func {
	return &Func{
		Name:  name,
		Entry: entry,
		Attrs: make(map[string]bool),
	}
}

// NewBlock appends a new basic block with the given name to f.
func (f *Func) NewBlock(name string) *Block {
	block := &Block{
		Name:   name,
		Parent: f,
	}
	f.Blocks = append(f.Blocks, block)
	return block
}

// SetAttr adds the given attribute to f.
func (f *Func) SetAttr(attr string) {
	if f.Attrs == nil {
		f.Attrs = make(map[string]bool)
	}
	f.Attrs[attr] = true
}

// HasAttr reports whether f carries the given attribute.
func (f *Func) HasAttr(attr string) bool {
	return f.Attrs[attr]
}

// Protected reports whether f is marked security-sensitive.
func (f *Func) Protected() bool {
	return f.HasAttr(AttrDITProtected)
}

// NInsts returns the total number of instructions of f.
func (f *Func) NInsts() int {
	n := 0
	for _, block := range f.Blocks {
		n += len(block.Insts)
	}
	return n
}

// String returns the string representation of the function.
func (f *Func) String() string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "func %s()", f.Name)
	if len(f.Attrs) > 0 {
		var attrs []string
		for attr := range f.Attrs {
			attrs = append(attrs, fmt.Sprintf("%q", attr))
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			fmt.Fprintf(buf, " %s", attr)
		}
	}
	buf.WriteString(" {\n")
	for i, block := range f.Blocks {
		if i != 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(buf, "%v\n", block)
	}
	buf.WriteString("}")
	return buf.String()
}

// Block is a basic block; a sequence of non-branching instructions terminated
// by an explicit or implicit (fall-through) control flow instruction.
type Block struct {
	// Basic block name.
	Name string
	// Function containing the basic block.
	Parent *Func
	// Instructions in program order.
	Insts []*Inst
}

// IsEntry reports whether block is the first basic block of its function in
// layout order.
func (block *Block) IsEntry() bool {
	if block.Parent == nil || len(block.Parent.Blocks) == 0 {
		return false
	}
	return block.Parent.Blocks[0] == block
}

// Append appends the given instructions to the end of the basic block.
func (block *Block) Append(insts ...*Inst) {
	block.Insts = append(block.Insts, insts...)
}

// Index returns the position of inst within the basic block, or -1 if inst is
// not part of the basic block. Instructions are compared by identity.
func (block *Block) Index(inst *Inst) int {
	for i, cur := range block.Insts {
		if cur == inst {
			return i
		}
	}
	return -1
}

// String returns the string representation of the basic block.
func (block *Block) String() string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%s:", block.Name)
	for _, inst := range block.Insts {
		fmt.Fprintf(buf, "\n\t%v", inst)
	}
	return buf.String()
}
