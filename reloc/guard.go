// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/assume"
	"gate.computer/aot/env"
	"gate.computer/aot/record"
)

func newGuard(r record.Record) applier {
	switch r := r.(type) {
	case *record.InlinedMethod:
		return &inlinedMethod{r: r}
	case *record.ProfiledGuard:
		return &profiledGuard{r: r}
	case *record.BreakpointGuard:
		return &breakpoint{r: r}
	default:
		return &base{}
	}
}

type resolution uint8

const (
	resolveStatic resolution = iota
	resolveSpecial
	resolveVirtual
	resolveInterface
	resolveAbstract
)

func (k resolution) overridable() bool {
	return k >= resolveVirtual
}

func inlinedResolution(k record.Kind) resolution {
	switch k {
	case record.InlinedStaticMethodWithNopGuard, record.InlinedStaticMethod, record.InlinedHCRMethod:
		return resolveStatic
	case record.InlinedSpecialMethodWithNopGuard, record.InlinedSpecialMethod:
		return resolveSpecial
	case record.InlinedInterfaceMethodWithNopGuard, record.InlinedInterfaceMethod:
		return resolveInterface
	case record.InlinedAbstractMethodWithNopGuard, record.InlinedAbstractMethod, record.AbstractGuard:
		return resolveAbstract
	default:
		return resolveVirtual
	}
}

// guardAssumptions registers the events which must invalidate a successfully
// validated guard.
func guardAssumptions(ctx *Context, h *record.Header, loc Location, dest int, callee env.Method, overridable bool) {
	ctx.addAssumption(assume.RedefinitionGuard, uint64(ctx.Env.VM.ClassOfMethod(callee)), assume.PatchBranch, h, loc, dest)
	if overridable {
		ctx.addAssumption(assume.OverrideGuard, uint64(callee), assume.PatchBranch, h, loc, dest)
	}
}

// inlinableMethod checks the conditions shared by all inlined sites.
func inlinableMethod(ctx *Context, m env.Method) bool {
	vm := ctx.Env.VM

	switch {
	case ctx.Options.inlineDisabled(vm.MethodSignature(m)):
		ctx.Log.WithField("signature", vm.MethodSignature(m)).Debug("inlining disabled")
		return false
	case vm.TracingEnabled(m, false), vm.TracingEnabled(m, true):
		return false
	case vm.IsBreakpointed(m):
		return false
	default:
		return true
	}
}

// inlinedMethod validates an inlined call site.  Failure is local: the site
// is marked unloaded, the guard (if any) is patched to the slow path, and the
// load continues.
type inlinedMethod struct {
	base
	r      *record.InlinedMethod
	site   *Site
	callee env.Method
	valid  bool
}

func (a *inlinedMethod) prepare(ctx *Context) error {
	s, err := ctx.site(a.r.InlinedSite)
	if err != nil {
		return err
	}
	a.site = s

	if a.r.Kind.HasDestination() && a.r.Destination >= uint64(len(ctx.Code.Bytes)) {
		return ErrCorruptTable
	}

	ctx.Counters.InlinedAttempted++

	a.callee, a.valid, err = a.validate(ctx, s)
	if err != nil {
		return err
	}

	if a.valid {
		s.Method = a.callee
		s.Unloaded = false
	} else {
		s.Unloaded = true
		ctx.Counters.InlinedFailed++
		ctx.Log.WithField("site", a.r.InlinedSite).WithError(ErrInlinedMethodGuard).Debug("inlined site")
	}
	return nil
}

func (a *inlinedMethod) validate(ctx *Context, s *Site) (m env.Method, valid bool, err error) {
	if s.Caller >= 0 && ctx.siteUnloaded(uint64(s.Caller)) {
		return
	}

	var (
		res   = ctx.Env.Resolver
		cp    = ctx.callerConstantPool(s)
		index = uint32(a.r.CPIndex)
		how   = inlinedResolution(a.r.Kind)
		found bool
	)

	if cp == 0 {
		return
	}

	if how >= resolveInterface && ctx.Env.Hierarchy == nil {
		err = ErrMissingCollaborator
		return
	}

	switch how {
	case resolveStatic:
		m, found = res.ResolveStaticMethod(cp, index)
	case resolveSpecial:
		m, found = res.ResolveSpecialMethod(cp, index)
	case resolveVirtual:
		m, found = res.ResolveVirtualMethod(cp, index)
	case resolveInterface:
		var iface env.Method
		if iface, found = res.ResolveInterfaceMethod(cp, index); found {
			c := ctx.Env.VM.ClassOfMethod(iface)
			m, found = ctx.Env.Hierarchy.FindSingleInterfaceImplementer(c, int32(index), ctx.Method)
		}
	case resolveAbstract:
		var abstract env.Method
		if abstract, found = res.ResolveVirtualMethod(cp, index); found {
			c := ctx.Env.VM.ClassOfMethod(abstract)
			m, found = ctx.Env.Hierarchy.FindSingleAbstractImplementer(c, int32(index), ctx.Method)
		}
	}

	if !found || m == 0 || !inlinableMethod(ctx, m) {
		return
	}

	if ok, err := ctx.validateChain(ctx.Env.VM.ClassOfMethod(m), a.r.ClassChain); err != nil || !ok {
		return m, false, err
	}

	if how.overridable() {
		if ctx.Env.Hierarchy == nil {
			err = ErrMissingCollaborator
			return
		}
		if ctx.Env.Hierarchy.IsOverridden(m) {
			return
		}
	}

	valid = true
	return
}

func (a *inlinedMethod) apply(ctx *Context, loc Location) error {
	if !a.r.Kind.HasDestination() {
		return nil
	}

	if !a.valid {
		return ctx.patchBranch(loc, a.r.Destination)
	}
	if err := ctx.branch(loc, a.r.Destination); err != nil {
		return err
	}

	guardAssumptions(ctx, a.r.Head(), loc, int(a.r.Destination), a.callee, inlinedResolution(a.r.Kind).overridable())
	return nil
}

// profiledGuard validates a site which was inlined from a receiver profile.
type profiledGuard struct {
	base
	r      *record.ProfiledGuard
	callee env.Method
	valid  bool
}

func (a *profiledGuard) prepare(ctx *Context) error {
	s, err := ctx.site(a.r.InlinedSite)
	if err != nil {
		return err
	}
	if a.r.Destination >= uint64(len(ctx.Code.Bytes)) {
		return ErrCorruptTable
	}

	ctx.Counters.InlinedAttempted++

	c, err := ctx.findClass(a.r.LoaderChain, a.r.ClassChain)
	if err != nil {
		return err
	}

	if c != 0 {
		if m, found := ctx.Env.VM.MethodAt(c, uint32(a.r.MethodIndex)); found && inlinableMethod(ctx, m) {
			a.callee = m
			a.valid = true

			if a.r.Kind == record.ProfiledMethodGuard {
				if ctx.Env.Hierarchy == nil {
					return ErrMissingCollaborator
				}
				a.valid = !ctx.Env.Hierarchy.IsOverridden(m)
			}
		}
	}

	if a.valid {
		s.Method = a.callee
		s.Unloaded = false
	} else {
		s.Unloaded = true
		ctx.Counters.InlinedFailed++
		ctx.Log.WithField("site", a.r.InlinedSite).WithError(ErrInlinedMethodGuard).Debug("profiled site")
	}
	return nil
}

func (a *profiledGuard) apply(ctx *Context, loc Location) error {
	if !a.valid {
		return ctx.patchBranch(loc, a.r.Destination)
	}
	if err := ctx.branch(loc, a.r.Destination); err != nil {
		return err
	}

	guardAssumptions(ctx, a.r.Head(), loc, int(a.r.Destination), a.callee, a.r.Kind == record.ProfiledMethodGuard)
	return nil
}

// breakpoint diverts an inlined site to the slow path if a breakpoint is set
// on its method.
type breakpoint struct {
	base
	r   *record.BreakpointGuard
	hit bool
}

func (a *breakpoint) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *breakpoint) prepare(ctx *Context) error {
	if a.r.Destination >= uint64(len(ctx.Code.Bytes)) {
		return ErrCorruptTable
	}
	a.hit = ctx.Env.VM.IsBreakpointed(ctx.siteMethod(a.r.InlinedSite))
	return nil
}

func (a *breakpoint) apply(ctx *Context, loc Location) error {
	if a.hit {
		return ctx.patchBranch(loc, a.r.Destination)
	}
	return nil
}
