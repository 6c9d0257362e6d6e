package main

import (
	"github.com/BurntSushi/toml"
	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// Config is the configuration of the dit tool.
type Config struct {
	// Scratch register holding the saved DIT state.
	Scratch string `toml:"scratch"`
	// LLVM IR function attribute marking security-sensitive functions.
	Attribute string `toml:"attribute"`
	// Names of additional security-sensitive functions.
	Protect []string `toml:"protect"`
	// Suppress non-error messages.
	Quiet bool `toml:"quiet"`
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		Scratch:   "x14",
		Attribute: mir.AttrDITProtected,
	}
}

// loadConfig parses the given TOML configuration file. Unset keys keep their
// default values.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse configuration file %q", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		warn.Printf("unknown configuration keys in %q: %v", path, undecoded)
	}
	return cfg, nil
}
