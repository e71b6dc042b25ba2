// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/env"
	"gate.computer/aot/record"
)

func newPool(r record.Record) applier {
	switch r := r.(type) {
	case *record.Pool:
		return &poolAddress{r: r}
	case *record.PoolEntry:
		return &poolEntry{r: r}
	case *record.Data:
		return &dataAddress{r: r}
	case *record.AllocCheck:
		return &allocCheck{r: r}
	default:
		return &base{}
	}
}

// poolAddress rebases a constant pool address from compile time to the pool
// of the live method (or inlined site).
type poolAddress struct {
	base
	r   *record.Pool
	cur env.ConstantPool
}

func (a *poolAddress) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *poolAddress) prepare(ctx *Context) error {
	a.cur = ctx.currentConstantPool(a.r.InlinedSite)
	if a.cur == 0 {
		return ErrConstantPoolResolution
	}
	return nil
}

func (a *poolAddress) rebase(old uint64) uint64 {
	return uint64(a.cur) + (old - a.r.ConstantPool)
}

func (a *poolAddress) apply(ctx *Context, loc Location) error {
	if seq := a.r.Flags.KindSpecific(); seq != 0 {
		old, err := ctx.loadSequence(loc, seq)
		if err != nil {
			return err
		}
		return ctx.storeSequence(loc, seq, a.rebase(old))
	}

	old, err := ctx.loadAddress(loc)
	if err != nil {
		return err
	}
	return ctx.storeAddress(loc, a.rebase(old))
}

func (a *poolAddress) applyPair(ctx *Context, high, low Location) error {
	old, err := ctx.loadPair(high, low)
	if err != nil {
		return err
	}
	return ctx.storePair(high, low, a.rebase(old))
}

// poolEntry stores the class or method which a constant pool entry resolves
// to.
type poolEntry struct {
	base
	r     *record.PoolEntry
	value uint64
	class env.Class // Set if the value is a class.
}

func (a *poolEntry) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *poolEntry) prepare(ctx *Context) error {
	cp := ctx.currentConstantPool(a.r.InlinedSite)
	if cp == 0 {
		return ErrConstantPoolResolution
	}

	var (
		res   = ctx.Env.Resolver
		index = uint32(a.r.CPIndex)
		m     env.Method
		found bool
	)

	switch a.r.Kind {
	case record.ClassObject, record.ClassAddress, record.InterfaceObject:
		a.class, found = res.ResolveClass(cp, index)
		a.value = uint64(a.class)

	case record.MethodObject, record.SpecialRamMethodConst, record.JNISpecialTargetAddress:
		m, found = res.ResolveSpecialMethod(cp, index)
	case record.StaticRamMethodConst, record.JNIStaticTargetAddress:
		m, found = res.ResolveStaticMethod(cp, index)
	case record.VirtualRamMethodConst, record.JNIVirtualTargetAddress:
		m, found = res.ResolveVirtualMethod(cp, index)

	default:
		return ErrUnknownKind
	}

	if !found {
		ctx.Log.WithField("index", index).Debug("unresolved constant pool entry")
		return ErrConstantPoolResolution
	}

	switch a.r.Kind {
	case record.JNISpecialTargetAddress, record.JNIStaticTargetAddress, record.JNIVirtualTargetAddress:
		a.value = ctx.Env.VM.NativeAddress(m)
		if a.value == 0 {
			return ErrPointerLookup
		}
	default:
		if m != 0 {
			a.value = uint64(m)
		}
	}
	return nil
}

func (a *poolEntry) apply(ctx *Context, loc Location) error {
	patch, err := ctx.storePointer(a.r.Head(), loc, a.value)
	if err == nil && a.class != 0 {
		ctx.unloadAssumption(a.class, patch, a.r.Head(), loc)
	}
	return err
}

// dataAddress stores the address of a static field plus a displacement.
type dataAddress struct {
	base
	r    *record.Data
	addr uint64
}

func (a *dataAddress) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *dataAddress) prepare(ctx *Context) error {
	addr, _, found := ctx.Env.Resolver.ResolveStaticField(ctx.currentConstantPool(a.r.InlinedSite), uint32(a.r.CPIndex))
	if !found {
		return ErrStaticFieldResolution
	}
	a.addr = addr + a.r.Offset
	return nil
}

func (a *dataAddress) apply(ctx *Context, loc Location) error {
	_, err := ctx.storePointer(a.r.Head(), loc, a.addr)
	return err
}

// allocCheck redirects an inline allocation to its slow path when the class
// is no longer allocatable inline.
type allocCheck struct {
	base
	r     *record.AllocCheck
	valid bool
}

func (a *allocCheck) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *allocCheck) prepare(ctx *Context) error {
	if a.r.Destination >= uint64(len(ctx.Code.Bytes)) {
		return ErrCorruptTable
	}

	ctx.Counters.AllocAttempted++
	a.valid = a.check(ctx)
	if !a.valid {
		ctx.Counters.AllocFailed++
	}
	return nil
}

func (a *allocCheck) check(ctx *Context) bool {
	vm := ctx.Env.VM

	c, found := ctx.Env.Resolver.ResolveClass(ctx.currentConstantPool(a.r.InlinedSite), uint32(a.r.CPIndex))
	if !found {
		return false
	}

	if a.r.Kind == record.VerifyRefArrayForAlloc {
		c, found = vm.ArrayClass(c)
		return found && vm.IsInitialized(c)
	}

	return vm.IsInitialized(c) && vm.InstanceSize(c) == a.r.AllocationSize
}

func (a *allocCheck) apply(ctx *Context, loc Location) error {
	if !a.valid {
		return ctx.patchBranch(loc, a.r.Destination)
	}
	return nil
}
