// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/assume"
	"gate.computer/aot/env"
	"gate.computer/aot/record"
)

func newPointer(r record.Record) applier {
	switch r := r.(type) {
	case *record.ClassPtr:
		return &classPointer{r: r}
	case *record.MethodPtr:
		return &classPointer{r: &r.ClassPtr, vtable: int32(r.VTableOffset), method: true}
	case *record.SitePtr:
		return &sitePointer{r: r}
	default:
		return &base{}
	}
}

// classPointer stores the address of a class, or of a method found through
// the class's virtual table.
type classPointer struct {
	base
	r      *record.ClassPtr
	vtable int32
	method bool
	class  env.Class
	value  uint64
}

func (a *classPointer) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *classPointer) prepare(ctx *Context) error {
	if a.r.InlinedSite != record.NoSite {
		a.class = ctx.Env.VM.ClassOfMethod(ctx.siteMethod(a.r.InlinedSite))
		if a.r.ClassChain != 0 {
			ok, err := ctx.validateChain(a.class, a.r.ClassChain)
			if err != nil {
				return err
			}
			if !ok {
				a.class = 0
			}
		}
	} else {
		c, err := ctx.findClass(a.r.LoaderChain, a.r.ClassChain)
		if err != nil {
			return err
		}
		a.class = c
	}

	if a.class == 0 {
		ctx.Log.WithField("kind", a.r.Kind.String()).Debug("class pointer lookup")
		return ErrPointerLookup
	}

	a.value = uint64(a.class)

	if a.method {
		m, found := ctx.Env.VM.VirtualMethodAt(a.class, a.vtable)
		if !found {
			return ErrPointerLookup
		}
		a.value = uint64(m)
	}
	return nil
}

func (a *classPointer) apply(ctx *Context, loc Location) error {
	patch, err := ctx.storePointer(a.r.Head(), loc, a.value)
	if err != nil {
		return err
	}

	ctx.unloadAssumption(a.class, patch, a.r.Head(), loc)
	if !a.method {
		ctx.addAssumption(assume.RedefinitionSite, uint64(a.class), patch, a.r.Head(), loc, 0)
	}
	return nil
}

// sitePointer stores the method of an inlined site.
type sitePointer struct {
	base
	r      *record.SitePtr
	method env.Method
}

func (a *sitePointer) ignore(ctx *Context) bool {
	return ctx.siteUnloaded(a.r.InlinedSite)
}

func (a *sitePointer) prepare(ctx *Context) error {
	a.method = ctx.siteMethod(a.r.InlinedSite)
	if a.method == 0 {
		return ErrPointerLookup
	}
	return nil
}

func (a *sitePointer) apply(ctx *Context, loc Location) error {
	patch, err := ctx.storePointer(a.r.Head(), loc, uint64(a.method))
	if err == nil {
		ctx.unloadAssumption(ctx.Env.VM.ClassOfMethod(a.method), patch, a.r.Head(), loc)
	}
	return err
}
