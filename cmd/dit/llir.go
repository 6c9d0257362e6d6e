package main

import (
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
)

// protectedFuncs returns the names of the functions of the given LLVM IR
// module carrying the attr function attribute.
func protectedFuncs(llPath, attr string) (map[string]bool, error) {
	dbg.Printf("protectedFuncs(llPath = %q, attr = %q)", llPath, attr)
	m, err := asm.ParseFile(llPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return protectedFuncsOf(m, attr), nil
}

// protectedFuncsOf returns the names of the functions of m carrying the attr
// function attribute.
func protectedFuncsOf(m *ir.Module, attr string) map[string]bool {
	protected := make(map[string]bool)
	for _, f := range m.Funcs {
		if hasFuncAttr(f.FuncAttrs, attr) {
			protected[f.Name()] = true
		}
	}
	return protected
}

// hasFuncAttr reports whether the given function attributes contain the
// string attribute key, either directly or through an attribute group.
func hasFuncAttr(attrs []ir.FuncAttribute, key string) bool {
	for _, attr := range attrs {
		switch attr := attr.(type) {
		case ir.AttrString:
			if string(attr) == key {
				return true
			}
		case ir.AttrPair:
			if attr.Key == key {
				return true
			}
		case *ir.AttrGroupDef:
			if hasFuncAttr(attr.FuncAttrs, key) {
				return true
			}
		}
	}
	return false
}
