// The dit tool enables data independent timing for security-sensitive
// functions of AArch64 binary executables.
//
// Separation of concern is handled through reliance on oracles, which provide
// addresses of functions and basic blocks, frame-setup and frame-destroy
// instructions, and debug locations. Security-sensitive functions are marked
// by a function attribute in LLVM IR or listed in the configuration file.
//
// Usage:
//
//	dit [OPTION]... BIN...
//
// Flags:
//
//	-config string
//	      TOML configuration file
//	-dump
//	      dump machine functions before rewriting
//	-ll string
//	      LLVM IR module providing function attributes
//	-o string
//	      output listing file (default standard output)
//	-q    suppress non-error messages
package main

import (
	"flag"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/dit/arch/aarch64"
	"github.com/mewmew/dit/disasm/arm64"
	"github.com/mewmew/dit/dit"
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

func main() {
	// Parse command line arguments.
	var (
		// configPath specifies the path to the TOML configuration file.
		configPath string
		// dump specifies whether to dump machine functions before rewriting.
		dump bool
		// llPath specifies the path to the LLVM IR module.
		llPath string
		// output specifies the output listing path.
		output string
		// quiet specifies whether to suppress non-error messages.
		quiet bool
	)
	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.BoolVar(&dump, "dump", false, "dump machine functions before rewriting")
	flag.StringVar(&llPath, "ll", "", "LLVM IR module providing function attributes")
	flag.StringVar(&output, "o", "", "output listing file (default standard output)")
	flag.BoolVar(&quiet, "q", false, "suppress non-error messages")
	flag.Parse()

	cfg := defaultConfig()
	if configPath != "" {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			log.Fatalf("%+v", err)
		}
	}
	// Skip debug output if -q is set.
	if quiet || cfg.Quiet {
		dbg.SetOutput(ioutil.Discard)
		dit.SetOutput(ioutil.Discard)
		arm64.SetOutput(ioutil.Discard)
	}

	w := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			log.Fatalf("%+v", errors.WithStack(err))
		}
		defer f.Close()
		w = f
	}
	if err := run(w, cfg, llPath, dump, flag.Args()); err != nil {
		log.Fatalf("%+v", err)
	}
}

// run rewrites the given binary executables and writes their listings to w.
func run(w io.Writer, cfg *Config, llPath string, dump bool, binPaths []string) error {
	reg, err := aarch64.ParseReg(cfg.Scratch)
	if err != nil {
		return errors.WithStack(err)
	}
	scratch, err := aarch64.ReserveScratch(reg)
	if err != nil {
		return errors.WithStack(err)
	}
	t := aarch64.NewTarget(scratch)
	protected := make(map[string]bool)
	for _, name := range cfg.Protect {
		protected[name] = true
	}
	if llPath != "" {
		names, err := protectedFuncs(llPath, cfg.Attribute)
		if err != nil {
			return errors.WithStack(err)
		}
		for name := range names {
			protected[name] = true
		}
	}
	for _, binPath := range binPaths {
		l, err := newLoader(binPath)
		if err != nil {
			return errors.WithStack(err)
		}
		funcs, err := l.load()
		if err != nil {
			return errors.WithStack(err)
		}
		if dump {
			dumpFuncs(funcs)
		}
		n, err := transform(t, funcs, protected)
		if err != nil {
			return errors.WithStack(err)
		}
		dbg.Printf("%s: %d of %d functions rewritten", binPath, n, len(funcs))
		if err := writeListing(w, funcs); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
