package main

import (
	"debug/elf"

	"github.com/mewkiz/pkg/jsonutil"
	"github.com/mewkiz/pkg/osutil"
	"github.com/pkg/errors"
)

// parseJSON parses the given JSON file and stores the result into v.
func parseJSON(jsonPath string, v interface{}) error {
	if !osutil.Exists(jsonPath) {
		warn.Printf("unable to locate JSON file %q", jsonPath)
		return nil
	}
	dbg.Printf("parseJSON(jsonPath = %q, v = %T)", jsonPath, v)
	if err := jsonutil.ParseFile(jsonPath, v); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// parseOptionalJSON parses the given JSON file, if present, and stores the
// result into v. The boolean return value reports whether the file was
// present.
func parseOptionalJSON(jsonPath string, v interface{}) (bool, error) {
	if !osutil.Exists(jsonPath) {
		return false, nil
	}
	if err := parseJSON(jsonPath, v); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// ### [ Helper functions ] ####################################################

// isExec reports whether the given section is executable.
func isExec(sect *elf.Section) bool {
	return sect.Flags&elf.SHF_EXECINSTR != 0
}
