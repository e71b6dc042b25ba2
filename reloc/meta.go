// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/assume"
	"gate.computer/aot/env"
	"gate.computer/aot/record"
)

func newMeta(r record.Record) applier {
	switch r := r.(type) {
	case *record.Blank:
		return &siteAssumption{h: &r.Header}
	case *record.Destination:
		return &traceCheck{r: r, exit: r.Kind == record.CheckMethodExit}
	case *record.Counter:
		return &debugCounter{r: r}
	case *record.Symbol:
		return &symbolAddress{r: r}
	case *record.PICTrampolines:
		return &picTrampolines{r: r}
	default:
		return &base{}
	}
}

// siteAssumption registers a patch site with the runtime without modifying
// the code.  An HCR site holds the method's class, which is replaced when the
// class is redefined.
type siteAssumption struct {
	base
	h *record.Header
}

func (a *siteAssumption) apply(ctx *Context, loc Location) error {
	c := ctx.Env.VM.ClassOfMethod(ctx.Method)

	switch a.h.Kind {
	case record.HCR:
		patch, err := ctx.pointerPatch(a.h, loc)
		if err != nil {
			return err
		}
		ctx.addAssumption(assume.RedefinitionSite, uint64(c), patch, a.h, loc, 0)
	case record.ClassUnloadAssumption:
		ctx.unloadAssumption(c, assume.PatchNone, a.h, loc)
	}
	return nil
}

// traceCheck skips method enter or exit hook calls while tracing is off.
type traceCheck struct {
	base
	r       *record.Destination
	exit    bool
	enabled bool
}

func (a *traceCheck) prepare(ctx *Context) error {
	if a.r.Destination >= uint64(len(ctx.Code.Bytes)) {
		return ErrCorruptTable
	}
	a.enabled = ctx.Env.VM.TracingEnabled(ctx.Method, a.exit)
	return nil
}

func (a *traceCheck) apply(ctx *Context, loc Location) error {
	if a.enabled {
		return ctx.patchBranch(loc, a.r.Destination)
	}
	return nil
}

type debugCounter struct {
	base
	r    *record.Counter
	addr uint64
}

// ignore counters unless both the counter service and the name store are
// configured.
func (a *debugCounter) ignore(ctx *Context) bool {
	return ctx.Env.Counters == nil || ctx.Env.Store == nil || ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *debugCounter) prepare(ctx *Context) error {
	name, err := ctx.Env.Store.At(a.r.NameOffset)
	if err != nil {
		ctx.Log.WithError(err).Warn("debug counter name")
		return ErrStoreLookup
	}

	a.addr, err = ctx.Env.Counters.Counter(string(name), a.r.Delta, a.r.Fidelity, a.r.StaticDelta)
	if err != nil {
		ctx.Log.WithError(err).WithField("counter", string(name)).Warn("debug counter")
		return ErrDebugCounter
	}
	return nil
}

func (a *debugCounter) apply(ctx *Context, loc Location) error {
	_, err := ctx.storePointer(a.r.Head(), loc, a.addr)
	return err
}

// symbolAddress stores a symbol bound by the symbol validation manager.
type symbolAddress struct {
	base
	r     *record.Symbol
	value uint64
}

func (a *symbolAddress) prepare(ctx *Context) error {
	sv, err := ctx.symbols()
	if err != nil {
		return err
	}

	value, found := sv.SymbolFromID(a.r.SymbolID, env.SymbolType(a.r.SymbolType))
	if !found {
		ctx.Log.WithField("id", a.r.SymbolID).Info("unbound symbol")
		return ErrSymbolFromManager
	}
	a.value = value
	return nil
}

func (a *symbolAddress) apply(ctx *Context, loc Location) error {
	var patch assume.Patch

	if a.r.Kind == record.DiscontiguousSymbolFromManager {
		if err := ctx.storeSequence(loc, a.r.Flags.KindSpecific(), a.value); err != nil {
			return err
		}
		patch = assume.PatchSequence
	} else {
		var err error
		if patch, err = ctx.storePointer(a.r.Head(), loc, a.value); err != nil {
			return err
		}
	}

	if env.SymbolType(a.r.SymbolType) == env.SymbolClass {
		ctx.unloadAssumption(env.Class(a.value), patch, a.r.Head(), loc)
	}
	return nil
}

// picTrampolines reserves trampoline slots for polymorphic inline caches.
// Nothing is patched.
type picTrampolines struct {
	base
	r *record.PICTrampolines
}

func (a *picTrampolines) prepare(ctx *Context) error {
	if ctx.Env.Trampolines == nil {
		return ErrMissingCollaborator
	}
	if err := ctx.Env.Trampolines.ReservePICTrampolines(int(a.r.Count)); err != nil {
		ctx.Log.WithError(err).WithField("count", a.r.Count).Debug("PIC trampoline reservation")
		return ErrPICTrampolineReservation
	}
	ctx.picTrampolines += int(a.r.Count)
	return nil
}
