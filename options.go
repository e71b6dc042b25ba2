// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aot

import (
	"os"

	"gate.computer/aot/classchain"
	"gate.computer/aot/record"
	"gate.computer/aot/reloc"
	"github.com/BurntSushi/toml"
	"github.com/apex/log"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Options are read from a TOML file:
//
//	disabled_inline_sites = ["java/lang/String.hashCode*"]
//	disabled_validations  = ["ValidateClassChain"]
//	chain_cache_size      = 4096
//	store_cache_size      = 256
//	log_level             = "debug"
//
// A zero store_cache_size disables the blob cache.
type Options struct {
	DisabledInlineSites []string `toml:"disabled_inline_sites"`
	DisabledValidations []string `toml:"disabled_validations"`
	ChainCacheSize      int      `toml:"chain_cache_size"`
	StoreCacheSize      int      `toml:"store_cache_size"`
	LogLevel            string   `toml:"log_level"`
}

const DefaultStoreCacheSize = 256

func DefaultOptions() Options {
	return Options{
		ChainCacheSize: classchain.DefaultCacheSize,
		StoreCacheSize: DefaultStoreCacheSize,
		LogLevel:       "info",
	}
}

func ParseOptions(data []byte) (Options, error) {
	o := DefaultOptions()
	if err := toml.Unmarshal(data, &o); err != nil {
		return o, errors.Wrap(err, "options")
	}
	if _, err := o.compile(); err != nil {
		return o, err
	}
	return o, nil
}

func LoadOptions(filename string) (Options, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return DefaultOptions(), errors.Wrap(err, "options")
	}

	o, err := ParseOptions(data)
	if err != nil {
		return o, errors.Wrapf(err, "%s", filename)
	}
	return o, nil
}

func (o Options) level() (log.Level, error) {
	if o.LogLevel == "" {
		return log.InfoLevel, nil
	}
	l, err := log.ParseLevel(o.LogLevel)
	return l, errors.Wrap(err, "log_level")
}

// anyGlob matches if one of the patterns matches.
type anyGlob []glob.Glob

func (g anyGlob) Match(s string) bool {
	for _, p := range g {
		if p.Match(s) {
			return true
		}
	}
	return false
}

func (o Options) compile() (*reloc.Options, error) {
	ro := new(reloc.Options)

	if len(o.DisabledInlineSites) > 0 {
		var patterns anyGlob
		for _, s := range o.DisabledInlineSites {
			p, err := glob.Compile(s)
			if err != nil {
				return nil, errors.Wrapf(err, "disabled_inline_sites: %q", s)
			}
			patterns = append(patterns, p)
		}
		ro.DisabledInlineSites = patterns
	}

	if len(o.DisabledValidations) > 0 {
		ro.DisabledValidations = make(map[record.Kind]bool)
		for _, name := range o.DisabledValidations {
			k, found := record.ParseKind(name)
			if !found || k.Family() != record.FamilyValidation {
				return nil, errors.Errorf("disabled_validations: %q is not a validation kind", name)
			}
			ro.DisabledValidations[k] = true
		}
	}

	if o.StoreCacheSize < 0 {
		return nil, errors.Errorf("store_cache_size: %d is negative", o.StoreCacheSize)
	}

	if _, err := o.level(); err != nil {
		return nil, err
	}

	return ro, nil
}
