// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reloc applies relocation records to a method's copied code.
package reloc

import (
	"math"

	"gate.computer/aot/assume"
	"gate.computer/aot/classchain"
	"gate.computer/aot/env"
	"gate.computer/aot/record"
	"gate.computer/aot/target"
	"github.com/apex/log"
)

// Helpers maps helper ids to runtime addresses.
type Helpers map[uint32]uint64

// Reserved helper ids.
const (
	HelperArrayCopy uint32 = 0xffff0000 + iota
	HelperArrayCopyTOC
)

// Site is an entry of the inlined call table.  Method is filled in when an
// inlined method record validates the site.
type Site struct {
	Method   env.Method
	Caller   int32 // Index of the calling site, or -1 for the outermost method.
	BCIndex  int32
	Unloaded bool
}

// Location is a patch site.  Rel is the base address of an instruction
// pointer relative encoding, or zero.
type Location struct {
	At  int
	Rel uint64
}

// Context is the state of one load attempt.
type Context struct {
	Target       target.Target
	Code         *target.Buffer
	OldCodeStart uint64 // Code address at compile time.

	Method       env.Method
	ConstantPool env.ConstantPool
	BodyInfo     uint64
	Owner        uint64 // Live metadata address; owns the registered assumptions.
	Sites        []Site

	Env         *env.Environment
	Helpers     Helpers
	Globals     *GlobalValues
	Assumptions *assume.Table
	Chains      *classchain.Validator
	Options     *Options

	Counters Counters
	Log      log.Interface

	trampolines    []env.Method
	picTrampolines int
}

func (ctx *Context) init() {
	if ctx.Log == nil {
		ctx.Log = log.Log
	}
}

// ReleaseTrampolines returns the trampoline reservations taken while
// applying relocations.  Called when the load fails.
func (ctx *Context) ReleaseTrampolines() {
	if ctx.Env == nil || ctx.Env.Trampolines == nil {
		return
	}

	for _, m := range ctx.trampolines {
		ctx.Env.Trampolines.UnreserveTrampoline(m)
	}
	if ctx.picTrampolines > 0 {
		ctx.Env.Trampolines.UnreservePICTrampolines(ctx.picTrampolines)
	}

	ctx.trampolines = nil
	ctx.picTrampolines = 0
}

// CodeDelta is the distance which the code moved.
func (ctx *Context) CodeDelta() uint64 {
	return ctx.Code.Base - ctx.OldCodeStart
}

func (ctx *Context) site(index uint64) (*Site, error) {
	if index >= uint64(len(ctx.Sites)) {
		return nil, ErrCorruptTable
	}
	return &ctx.Sites[index], nil
}

// siteUnloaded reports whether an inlined site is unusable.  The outermost
// method is never unloaded.
func (ctx *Context) siteUnloaded(index uint64) bool {
	if index == record.NoSite {
		return false
	}
	s, err := ctx.site(index)
	return err != nil || s.Unloaded || s.Method == 0
}

func (ctx *Context) siteMethod(index uint64) env.Method {
	if index == record.NoSite {
		return ctx.Method
	}
	if s, err := ctx.site(index); err == nil && !s.Unloaded {
		return s.Method
	}
	return 0
}

// currentConstantPool of an inlined site, or the method.
func (ctx *Context) currentConstantPool(index uint64) env.ConstantPool {
	if index == record.NoSite {
		return ctx.ConstantPool
	}
	if m := ctx.siteMethod(index); m != 0 {
		return ctx.Env.VM.ConstantPoolOfMethod(m)
	}
	return 0
}

// callerConstantPool is the pool through which an inlined site's callee was
// resolved.
func (ctx *Context) callerConstantPool(s *Site) env.ConstantPool {
	if s.Caller < 0 {
		return ctx.ConstantPool
	}
	return ctx.currentConstantPool(uint64(s.Caller))
}

func (ctx *Context) location(offset int32, eip bool) (loc Location, err error) {
	loc.At = int(offset)
	if loc.At < 0 || loc.At >= len(ctx.Code.Bytes) {
		err = ErrCorruptTable
		return
	}
	if eip {
		loc.Rel = ctx.Target.EIPBaseForCallOffset(ctx.Code, loc.At)
	}
	return
}

const dispSize = 4

// fits checks that an encoding of n bytes lies within the code.
func (ctx *Context) fits(at, n int) error {
	switch {
	case n <= 0:
		return ErrUnsupportedEncoding
	case at < 0 || at > len(ctx.Code.Bytes)-n:
		ctx.Log.WithFields(log.Fields{"at": at, "size": n}).Warn("patch outside code")
		return ErrCorruptTable
	default:
		return nil
	}
}

func (ctx *Context) addressSize(loc Location) int {
	if loc.Rel != 0 {
		return dispSize
	}
	return ctx.Target.Format().WordSize
}

// loadAddress reads the compile-time address at a location.
func (ctx *Context) loadAddress(loc Location) (uint64, error) {
	if err := ctx.fits(loc.At, ctx.addressSize(loc)); err != nil {
		return 0, err
	}
	if loc.Rel != 0 {
		disp := int32(ctx.Target.Load32(ctx.Code, loc.At))
		return loc.Rel - ctx.CodeDelta() + uint64(int64(disp)), nil
	}
	return ctx.Target.LoadAddress(ctx.Code, loc.At), nil
}

// storeAddress writes an absolute address, or a 32-bit displacement for an
// instruction pointer relative location.
func (ctx *Context) storeAddress(loc Location, addr uint64) error {
	if err := ctx.fits(loc.At, ctx.addressSize(loc)); err != nil {
		return err
	}

	if loc.Rel != 0 {
		disp := int64(addr - loc.Rel)
		if disp < math.MinInt32 || disp > math.MaxInt32 {
			return ErrRelativeTargetRange
		}
		ctx.Target.Store32(ctx.Code, loc.At, uint32(disp))
		return nil
	}

	ctx.Target.StoreAddress(ctx.Code, loc.At, addr)
	return nil
}

func (ctx *Context) loadSequence(loc Location, seq uint8) (uint64, error) {
	if err := ctx.fits(loc.At, ctx.Target.AddressSequenceSize(seq)); err != nil {
		return 0, err
	}
	return ctx.Target.LoadAddressSequence(ctx.Code, loc.At, seq), nil
}

func (ctx *Context) storeSequence(loc Location, seq uint8, addr uint64) error {
	if err := ctx.fits(loc.At, ctx.Target.AddressSequenceSize(seq)); err != nil {
		return err
	}
	ctx.Target.StoreAddressSequence(ctx.Code, loc.At, seq, addr)
	return nil
}

func (ctx *Context) pair(high, low Location) error {
	n := ctx.Target.AddressPairSize()
	if err := ctx.fits(high.At, n); err != nil {
		return err
	}
	return ctx.fits(low.At, n)
}

func (ctx *Context) loadPair(high, low Location) (uint64, error) {
	if err := ctx.pair(high, low); err != nil {
		return 0, err
	}
	return ctx.Target.LoadAddressPair(ctx.Code, high.At, low.At), nil
}

func (ctx *Context) storePair(high, low Location, addr uint64) error {
	if err := ctx.pair(high, low); err != nil {
		return err
	}
	ctx.Target.StoreAddressPair(ctx.Code, high.At, low.At, addr)
	return nil
}

func (ctx *Context) storeRelativeTarget(loc Location, addr uint64) error {
	if err := ctx.fits(loc.At, ctx.Target.RelativeTargetSize()); err != nil {
		return err
	}
	if !ctx.Target.StoreRelativeTarget(ctx.Code, loc.At, addr) {
		return ErrRelativeTargetRange
	}
	return nil
}

// branch checks that a guard can be redirected to dest, now or later.
func (ctx *Context) branch(loc Location, dest uint64) error {
	if dest >= uint64(len(ctx.Code.Bytes)) {
		return ErrCorruptTable
	}
	return ctx.fits(loc.At, ctx.Target.BranchSize())
}

func (ctx *Context) patchBranch(loc Location, dest uint64) error {
	if err := ctx.branch(loc, dest); err != nil {
		return err
	}
	ctx.Target.PatchBranch(ctx.Code, loc.At, int(dest))
	return nil
}

// storePointer writes a raw pointer using the encoding selected by the
// record's sequence bits.
func (ctx *Context) storePointer(h *record.Header, loc Location, addr uint64) (assume.Patch, error) {
	if seq := h.Flags.KindSpecific(); seq != 0 {
		return assume.PatchSequence, ctx.storeSequence(loc, seq, addr)
	}
	return assume.PatchAddress, ctx.storeAddress(loc, addr)
}

// pointerPatch checks that a pointer can be stored at a location when an
// assumption fires.
func (ctx *Context) pointerPatch(h *record.Header, loc Location) (assume.Patch, error) {
	if seq := h.Flags.KindSpecific(); seq != 0 {
		return assume.PatchSequence, ctx.fits(loc.At, ctx.Target.AddressSequenceSize(seq))
	}
	return assume.PatchAddress, ctx.fits(loc.At, ctx.addressSize(loc))
}

func (ctx *Context) addAssumption(kind assume.Kind, key uint64, patch assume.Patch, h *record.Header, loc Location, dest int) {
	if ctx.Assumptions == nil {
		return
	}

	ctx.Assumptions.Add(assume.Entry{
		Kind:  kind,
		Key:   key,
		Owner: ctx.Owner,
		Patch: patch,
		Site: assume.Site{
			Target: ctx.Target,
			Code:   ctx.Code,
			At:     loc.At,
			Rel:    loc.Rel,
			Seq:    h.Flags.KindSpecific(),
			Dest:   dest,
		},
	})
}

// unloadAssumption is registered for classes which can be unloaded.
func (ctx *Context) unloadAssumption(c env.Class, patch assume.Patch, h *record.Header, loc Location) {
	if !ctx.Env.VM.IsPermanent(c) {
		ctx.addAssumption(assume.UnloadSite, uint64(c), patch, h, loc, 0)
	}
}

func (ctx *Context) validateChain(c env.Class, offset uint64) (bool, error) {
	if ctx.Chains == nil {
		return false, ErrMissingCollaborator
	}
	ok, err := ctx.Chains.Validate(c, offset)
	if err != nil {
		ctx.Log.WithError(err).Warn("class chain lookup")
		return false, ErrStoreLookup
	}
	return ok, nil
}

func (ctx *Context) findClass(loaderChain, classChain uint64) (env.Class, error) {
	if ctx.Chains == nil {
		return 0, ErrMissingCollaborator
	}
	c, _, err := ctx.Chains.Find(loaderChain, classChain)
	if err != nil {
		ctx.Log.WithError(err).Warn("class chain lookup")
		return 0, ErrStoreLookup
	}
	return c, nil
}

func (ctx *Context) symbols() (env.SymbolValidationManager, error) {
	if ctx.Env.Symbols == nil {
		return nil, ErrMissingCollaborator
	}
	return ctx.Env.Symbols, nil
}
