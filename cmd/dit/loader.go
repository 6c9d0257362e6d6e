package main

import (
	"debug/elf"
	"sort"

	"github.com/mewmew/dit/bin"
	"github.com/mewmew/dit/disasm/arm64"
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// loader is an AArch64 binary executable to machine function loader.
type loader struct {
	// Binary executable path.
	binPath string
	// Function addresses.
	funcAddrs bin.Addrs
	// Basic block addresses.
	blockAddrs bin.Addrs
	// Frame-setup and frame-destroy instruction addresses; nil if not
	// provided.
	frames *arm64.Frames
	// Maps from instruction address to debug location.
	lines map[bin.Addr]mir.DebugLoc
}

// newLoader returns a new loader based on the given binary executable path.
func newLoader(binPath string) (*loader, error) {
	l := &loader{
		binPath: binPath,
	}
	// Parse function addresses.
	if err := parseJSON("funcs.json", &l.funcAddrs); err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Sort(l.funcAddrs)
	// Parse basic block addresses.
	if err := parseJSON("blocks.json", &l.blockAddrs); err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Sort(l.blockAddrs)
	// Parse frame-setup and frame-destroy instruction addresses.
	frames := &arm64.Frames{}
	ok, err := parseOptionalJSON("frames.json", frames)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if ok {
		l.frames = frames
	}
	// Parse debug locations.
	if err := parseJSON("lines.json", &l.lines); err != nil {
		return nil, errors.WithStack(err)
	}
	return l, nil
}

// load decodes the machine functions of the binary executable.
func (l *loader) load() ([]*mir.Func, error) {
	dbg.Printf("load(binPath = %q)", l.binPath)
	// Parse ELF file.
	file, err := elf.Open(l.binPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()
	if file.Machine != elf.EM_AARCH64 {
		return nil, errors.Errorf("support for %v executables not yet implemented", file.Machine)
	}
	text := file.Section(".text")
	if text == nil || !isExec(text) {
		return nil, errors.Errorf("unable to locate executable .text section in %q", l.binPath)
	}
	code, err := text.Data()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	start := bin.Addr(text.Addr)
	end := start + bin.Addr(len(code))
	names := funcSymbols(file, start, end)
	funcAddrs := l.funcAddrs
	if len(funcAddrs) == 0 {
		for addr := range names {
			funcAddrs = append(funcAddrs, addr)
		}
		sort.Sort(funcAddrs)
	}
	d := &arm64.Decoder{
		FuncAddrs:  funcAddrs,
		BlockAddrs: l.blockAddrs,
		Frames:     l.frames,
		Lines:      l.lines,
		Names:      names,
	}
	funcs, err := d.Decode(start, code)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return funcs, nil
}

// funcSymbols returns the names of the function symbols of file located
// within [start, end).
func funcSymbols(file *elf.File, start, end bin.Addr) map[bin.Addr]string {
	names := make(map[bin.Addr]string)
	syms, err := file.Symbols()
	if err != nil {
		warn.Printf("unable to read symbol table; %v", err)
		return names
	}
	for _, sym := range syms {
		addr := bin.Addr(sym.Value)
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || addr < start || addr >= end {
			continue
		}
		if _, ok := names[addr]; !ok {
			names[addr] = sym.Name
		}
	}
	return names
}
