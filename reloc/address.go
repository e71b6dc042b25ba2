// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/env"
	"gate.computer/aot/record"
)

func newAddress(r record.Record) applier {
	h := r.Head()

	switch h.Kind {
	case record.HelperAddress, record.AbsoluteHelperAddress:
		return &helperAddress{h: h, id: r.(*record.Helper).HelperID}
	case record.ArrayCopyHelper:
		return &helperAddress{h: h, id: HelperArrayCopy}
	case record.ArrayCopyToc:
		return &helperAddress{h: h, id: HelperArrayCopyTOC}

	case record.RelativeMethodAddress, record.AbsoluteMethodAddress, record.AbsoluteMethodAddressOrderedPair,
		record.FixedSequenceAddress, record.FixedSequenceAddress2:
		return &methodAddress{h: h}
	case record.MethodCallAddress:
		return &methodAddress{h: h, call: r.(*record.MethodCall)}

	case record.NativeMethodRelative:
		return &nativeCall{h: h}

	case record.Thunks, record.J2IThunks, record.J2IVirtualThunkPointer:
		return &thunkAddress{r: r.(*record.PoolEntry)}

	case record.Trampolines:
		return &trampoline{entry: r.(*record.PoolEntry)}
	case record.ResolvedTrampolines:
		return &trampoline{symbol: r.(*record.ResolvedTrampoline)}

	default:
		return &valueAddress{r: r}
	}
}

type helperAddress struct {
	base
	h    *record.Header
	id   uint32
	addr uint64
}

func (a *helperAddress) prepare(ctx *Context) error {
	addr, found := ctx.Helpers[a.id]
	if !found {
		ctx.Log.WithField("helper", a.id).Warn("unknown helper")
		return ErrHelperLookup
	}
	a.addr = addr
	return nil
}

func (a *helperAddress) apply(ctx *Context, loc Location) error {
	if a.h.Kind == record.AbsoluteHelperAddress {
		loc.Rel = 0
	}
	_, err := ctx.storePointer(a.h, loc, a.addr)
	return err
}

// methodAddress rebases an address which points into the method's own code.
type methodAddress struct {
	base
	h    *record.Header
	call *record.MethodCall
}

func (a *methodAddress) apply(ctx *Context, loc Location) error {
	delta := ctx.CodeDelta()

	switch {
	case a.call != nil:
		return ctx.storeAddress(loc, a.call.Address+delta)

	case a.h.Kind == record.FixedSequenceAddress, a.h.Kind == record.FixedSequenceAddress2:
		seq := a.h.Flags.KindSpecific()
		old, err := ctx.loadSequence(loc, seq)
		if err != nil {
			return err
		}
		return ctx.storeSequence(loc, seq, old+delta)

	default:
		old, err := ctx.loadAddress(loc)
		if err != nil {
			return err
		}
		return ctx.storeAddress(loc, old+delta)
	}
}

func (a *methodAddress) applyPair(ctx *Context, high, low Location) error {
	if a.h.Kind != record.AbsoluteMethodAddressOrderedPair {
		return ErrUnsupportedPair
	}
	old, err := ctx.loadPair(high, low)
	if err != nil {
		return err
	}
	return ctx.storePair(high, low, old+ctx.CodeDelta())
}

// nativeCall is a direct call to the method's native implementation.
type nativeCall struct {
	base
	h      *record.Header
	native uint64
}

func (a *nativeCall) prepare(ctx *Context) error {
	a.native = ctx.Env.VM.NativeAddress(ctx.Method)
	if a.native == 0 {
		return ErrPointerLookup
	}
	return nil
}

func (a *nativeCall) apply(ctx *Context, loc Location) error {
	return ctx.storeRelativeTarget(loc, a.native)
}

// valueAddress stores a value which is computed once from the context.
type valueAddress struct {
	base
	r        record.Record
	value    uint64
	sequence bool
}

func (a *valueAddress) prepare(ctx *Context) error {
	h := a.r.Head()

	switch h.Kind {
	case record.RamMethod:
		a.value = uint64(ctx.Method)
	case record.RamMethodSequence, record.RamMethodSequenceReg:
		a.value = uint64(ctx.Method)
		a.sequence = true
	case record.StartPC:
		a.value = ctx.Code.Base
	case record.NativeMethodAbsolute:
		a.value = ctx.Env.VM.NativeAddress(ctx.Method)
		if a.value == 0 {
			return ErrPointerLookup
		}

	case record.GlobalValue:
		key := GlobalKey(a.r.(*record.Global).Key)
		value, ok := ctx.Globals.Lookup(key)
		if !ok {
			ctx.Log.WithField("key", key.String()).Warn("global value lookup")
			return ErrGlobalValueLookup
		}
		a.value = value

	case record.BodyInfoAddress, record.BodyInfoAddressLoad, record.RecompQueuedFlag,
		record.CatchBlockCounter, record.BlockFrequency:
		if ctx.BodyInfo == 0 {
			return ErrMissingCollaborator
		}

		switch h.Kind {
		case record.BodyInfoAddress:
			a.value = ctx.BodyInfo
		case record.BodyInfoAddressLoad:
			a.value = ctx.BodyInfo
			a.sequence = true
		case record.RecompQueuedFlag:
			a.value = ctx.BodyInfo + env.BodyInfoFlags
		case record.CatchBlockCounter:
			a.value = ctx.BodyInfo + env.BodyInfoCatchBlockCounter
		case record.BlockFrequency:
			a.value = ctx.BodyInfo + env.BodyInfoFrequencies + a.r.(*record.Frequency).FrequencyOffset
		}

	default:
		return ErrUnknownKind
	}

	return nil
}

func (a *valueAddress) apply(ctx *Context, loc Location) error {
	if a.sequence {
		return ctx.storeSequence(loc, a.r.Head().Flags.KindSpecific(), a.value)
	}
	return ctx.storeAddress(loc, a.value)
}

// thunkAddress materializes interpreter glue for the signature of a
// constant pool method.
type thunkAddress struct {
	base
	r    *record.PoolEntry
	addr uint64
}

func (a *thunkAddress) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *thunkAddress) prepare(ctx *Context) error {
	if ctx.Env.Thunks == nil {
		return ErrMissingCollaborator
	}

	m, found := resolveAnyMethod(ctx.Env.Resolver, ctx.currentConstantPool(a.r.InlinedSite), uint32(a.r.CPIndex))
	if !found {
		return ErrConstantPoolResolution
	}
	sig := ctx.Env.VM.MethodSignature(m)

	if a.r.Kind == record.J2IThunks {
		if addr, found := ctx.Env.Thunks.Lookup(sig); found {
			a.addr = addr
			return nil
		}
	}

	addr, err := ctx.Env.Thunks.Thunk(sig)
	if err != nil {
		ctx.Log.WithError(err).WithField("signature", sig).Debug("thunk")
		return ErrThunk
	}
	a.addr = addr
	return nil
}

func (a *thunkAddress) apply(ctx *Context, loc Location) error {
	_, err := ctx.storePointer(a.r.Head(), loc, a.addr)
	return err
}

// trampoline reserves a call trampoline for a method.  Nothing is patched.
type trampoline struct {
	base
	entry  *record.PoolEntry
	symbol *record.ResolvedTrampoline
}

func (a *trampoline) ignore(ctx *Context) bool {
	return a.entry != nil && ctx.siteUnloaded(a.entry.InlinedSite)
}

func (a *trampoline) prepare(ctx *Context) error {
	if ctx.Env.Trampolines == nil {
		return ErrMissingCollaborator
	}

	var m env.Method

	if a.entry != nil {
		var found bool
		m, found = resolveAnyMethod(ctx.Env.Resolver, ctx.currentConstantPool(a.entry.InlinedSite), uint32(a.entry.CPIndex))
		if !found {
			return ErrConstantPoolResolution
		}
	} else {
		symbols, err := ctx.symbols()
		if err != nil {
			return err
		}
		x, found := symbols.SymbolFromID(a.symbol.SymbolID, env.SymbolMethod)
		if !found {
			return ErrSymbolFromManager
		}
		m = env.Method(x)
	}

	if err := ctx.Env.Trampolines.ReserveTrampoline(m); err != nil {
		ctx.Log.WithError(err).Debug("trampoline reservation")
		return ErrTrampolineReservation
	}
	ctx.trampolines = append(ctx.trampolines, m)
	return nil
}

func resolveAnyMethod(r env.ConstantPoolResolver, cp env.ConstantPool, index uint32) (env.Method, bool) {
	if cp == 0 {
		return 0, false
	}
	for _, resolve := range []func(env.ConstantPool, uint32) (env.Method, bool){
		r.ResolveStaticMethod,
		r.ResolveSpecialMethod,
		r.ResolveVirtualMethod,
		r.ResolveInterfaceMethod,
	} {
		if m, found := resolve(cp, index); found {
			return m, true
		}
	}
	return 0, false
}
