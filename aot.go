// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aot loads methods which were compiled ahead of time by another
// process.  The stored code is copied into the code cache, its relocation
// table is applied against the current process state, and its metadata is
// rebased.
package aot

import (
	"runtime"
	"sync"

	"gate.computer/aot/assume"
	"gate.computer/aot/classchain"
	"gate.computer/aot/env"
	"gate.computer/aot/reloc"
	"gate.computer/aot/store"
	"gate.computer/aot/target"
	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/pkg/errors"

	_ "gate.computer/aot/target/arm64"
	_ "gate.computer/aot/target/power"
	_ "gate.computer/aot/target/x86"
)

type Config struct {
	Arch string // Defaults to the host architecture.

	// Env.Trampolines defaults to Code if it implements env.Trampolines.
	// Env.Store is wrapped in an LRU cache unless Options.StoreCacheSize
	// is zero.  Env.Symbols is ignored: a symbol validation manager is
	// created for each load which needs one.
	Env env.Environment

	Code     env.CodeCacheAllocator
	CodeLock sync.Locker // Defaults to Code if it is a sync.Locker.
	Data     env.DataCacheAllocator

	Helpers reloc.Helpers
	Globals map[reloc.GlobalKey]uint64
	Options Options

	Log log.Interface // Defaults to a CLI handler at Options.LogLevel.
}

// Process state shared by all loads.
type Process struct {
	target  target.Target
	env     env.Environment
	code    env.CodeCacheAllocator
	lock    sync.Locker
	data    env.DataCacheAllocator
	helpers reloc.Helpers
	globals reloc.GlobalValues
	table   assume.Table
	chains  *classchain.Validator
	options *reloc.Options
	log     log.Interface

	mu       sync.Mutex
	counters reloc.Counters
	statuses [NumStatuses]int
}

func NewProcess(c Config) (*Process, error) {
	if c.Arch == "" {
		c.Arch = runtime.GOARCH
	}

	t, err := target.ForArch(c.Arch)
	if err != nil {
		return nil, err
	}

	switch {
	case c.Env.VM == nil, c.Env.Resolver == nil, c.Env.Store == nil:
		return nil, errors.New("aot: VM, resolver and store are required")
	case c.Code == nil, c.Data == nil:
		return nil, errors.New("aot: code and data cache allocators are required")
	}

	if c.CodeLock == nil {
		if l, ok := c.Code.(sync.Locker); ok {
			c.CodeLock = l
		} else {
			c.CodeLock = new(sync.Mutex)
		}
	}
	if c.Env.Trampolines == nil {
		if tramps, ok := c.Code.(env.Trampolines); ok {
			c.Env.Trampolines = tramps
		}
	}
	c.Env.Symbols = nil

	options, err := c.Options.compile()
	if err != nil {
		return nil, err
	}

	if c.Log == nil {
		level, _ := c.Options.level()
		c.Log = &log.Logger{Handler: clihandler.Default, Level: level}
	}

	if c.Options.StoreCacheSize > 0 {
		cached, err := store.NewCached(c.Env.Store, c.Options.StoreCacheSize)
		if err != nil {
			return nil, err
		}
		c.Env.Store = cached
	}

	chains, err := classchain.NewValidator(c.Env.Store, c.Env.VM, c.Options.ChainCacheSize)
	if err != nil {
		return nil, err
	}

	p := &Process{
		target:  t,
		env:     c.Env,
		code:    c.Code,
		lock:    c.CodeLock,
		data:    c.Data,
		helpers: c.Helpers,
		chains:  chains,
		options: options,
		log:     c.Log.WithField("arch", t.Arch()),
	}

	if err := p.globals.Init(c.Globals); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Process) Target() target.Target { return p.target }

// Assumptions registered by loaded methods.
func (p *Process) Assumptions() *assume.Table { return &p.table }

// Counters accumulated over all loads.
func (p *Process) Counters() reloc.Counters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// Loads with the status.
func (p *Process) Loads(s Status) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statuses[s]
}

func (p *Process) account(s Status, c *reloc.Counters) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.statuses[s]++
	if c != nil {
		p.counters.Add(c)
	}
}

// ClassRedefined patches the sites which depend on the old class.
func (p *Process) ClassRedefined(old, replacement env.Class) []assume.Entry {
	p.chains.Purge()
	return p.table.ClassRedefined(uint64(old), uint64(replacement))
}

// ClassUnloaded patches the sites which depend on the class.
func (p *Process) ClassUnloaded(c env.Class) []assume.Entry {
	p.chains.Purge()
	return p.table.ClassUnloaded(uint64(c))
}

// MethodOverridden redirects the guards which assumed a single
// implementation.
func (p *Process) MethodOverridden(m env.Method) []assume.Entry {
	return p.table.MethodOverridden(uint64(m))
}

// Unloaded reclaims the assumptions owned by a method's metadata.
func (p *Process) Unloaded(l *Loaded) int {
	return p.table.Reclaim(l.Owner)
}
