// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

// NoSite is the inlined site index of the outermost method.
const NoSite = ^uint64(0)

// Blank carries no payload.
type Blank struct{ Header }

func (*Blank) fields(fields) {}

// Helper identifies a runtime helper routine.
type Helper struct {
	Header
	HelperID uint32
}

func (r *Helper) fields(f fields) { f.u32(&r.HelperID) }

// Global names a global value table entry.
type Global struct {
	Header
	Key uint32
}

func (r *Global) fields(f fields) { f.u32(&r.Key) }

// Pool refers to the constant pool of an inlined site (or the method).
type Pool struct {
	Header
	InlinedSite  uint64
	ConstantPool uint64 // Compile-time address.
}

func (r *Pool) fields(f fields) {
	f.word(&r.InlinedSite)
	f.word(&r.ConstantPool)
}

// PoolEntry refers to a constant pool index.
type PoolEntry struct {
	Pool
	CPIndex uint64
}

func (r *PoolEntry) fields(f fields) {
	r.Pool.fields(f)
	f.word(&r.CPIndex)
}

// Data refers to a static field with a displacement.
type Data struct {
	PoolEntry
	Offset uint64
}

func (r *Data) fields(f fields) {
	r.PoolEntry.fields(f)
	f.word(&r.Offset)
}

// AllocCheck verifies that inline allocation of a class remains valid.
type AllocCheck struct {
	PoolEntry
	AllocationSize uint64
	Destination    uint64 // Code offset of the slow path.
}

func (r *AllocCheck) fields(f fields) {
	r.PoolEntry.fields(f)
	f.word(&r.AllocationSize)
	f.word(&r.Destination)
}

// ValidateClassEntry validates a class resolved through the constant pool
// against a stored class chain.
type ValidateClassEntry struct {
	PoolEntry
	ClassChain uint64 // Store offset.
}

func (r *ValidateClassEntry) fields(f fields) {
	r.PoolEntry.fields(f)
	f.word(&r.ClassChain)
}

// ArbitraryClass is found by loader chain and class chain.
type ArbitraryClass struct {
	Header
	LoaderChain uint64
	ClassChain  uint64
}

func (r *ArbitraryClass) fields(f fields) {
	f.word(&r.LoaderChain)
	f.word(&r.ClassChain)
}

// InlinedMethod describes an inlined call site.  Destination is present only
// for kinds which guard the site with a patchable branch.
type InlinedMethod struct {
	Header
	InlinedSite  uint64
	ConstantPool uint64
	CPIndex      uint64
	ClassChain   uint64 // Defining class of the callee.
	Destination  uint64
}

func (r *InlinedMethod) fields(f fields) {
	f.word(&r.InlinedSite)
	f.word(&r.ConstantPool)
	f.word(&r.CPIndex)
	f.word(&r.ClassChain)
	if r.Kind.HasDestination() {
		f.word(&r.Destination)
	}
}

// ProfiledGuard describes a site inlined from a receiver profile.
type ProfiledGuard struct {
	Header
	InlinedSite uint64
	ClassChain  uint64
	LoaderChain uint64
	MethodIndex uint64 // Index of the callee within the profiled class.
	Destination uint64
}

func (r *ProfiledGuard) fields(f fields) {
	f.word(&r.InlinedSite)
	f.word(&r.ClassChain)
	f.word(&r.LoaderChain)
	f.word(&r.MethodIndex)
	f.word(&r.Destination)
}

// Destination is a branch target within the method's code.
type Destination struct {
	Header
	Destination uint64
}

func (r *Destination) fields(f fields) { f.word(&r.Destination) }

// BreakpointGuard protects a site which must take the slow path if a
// breakpoint is set on the inlined method.
type BreakpointGuard struct {
	Header
	InlinedSite uint64
	BCIndex     int32
	Destination uint64
}

func (r *BreakpointGuard) fields(f fields) {
	f.word(&r.InlinedSite)
	f.i32(&r.BCIndex)
	f.word(&r.Destination)
}

// ClassPtr locates a class by chain, or through an inlined site when
// InlinedSite is not NoSite.
type ClassPtr struct {
	Header
	InlinedSite uint64
	ClassChain  uint64
	LoaderChain uint64
}

func (r *ClassPtr) fields(f fields) {
	f.word(&r.InlinedSite)
	f.word(&r.ClassChain)
	f.word(&r.LoaderChain)
}

// MethodPtr locates a method by its class and virtual table offset.
type MethodPtr struct {
	ClassPtr
	VTableOffset uint64
}

func (r *MethodPtr) fields(f fields) {
	r.ClassPtr.fields(f)
	f.word(&r.VTableOffset)
}

// SitePtr refers to the method of an inlined site.
type SitePtr struct {
	Header
	InlinedSite uint64
}

func (r *SitePtr) fields(f fields) { f.word(&r.InlinedSite) }

type PICTrampolines struct {
	Header
	Count uint32
}

func (r *PICTrampolines) fields(f fields) { f.u32(&r.Count) }

// Counter names a debug counter by the store offset of its name.
type Counter struct {
	Header
	InlinedSite uint64
	NameOffset  uint64
	BCIndex     int32
	Delta       int32
	StaticDelta int32
	Fidelity    uint8
}

func (r *Counter) fields(f fields) {
	f.word(&r.InlinedSite)
	f.word(&r.NameOffset)
	f.i32(&r.BCIndex)
	f.i32(&r.Delta)
	f.i32(&r.StaticDelta)
	f.u8(&r.Fidelity)
}

// Symbol is materialized through the symbol validation manager.
type Symbol struct {
	Header
	SymbolID   uint16
	SymbolType uint16
}

func (r *Symbol) fields(f fields) {
	f.u16(&r.SymbolID)
	f.u16(&r.SymbolType)
}

// MethodCall is a direct call to a compile-time method address.
type MethodCall struct {
	Header
	Address uint64
}

func (r *MethodCall) fields(f fields) { f.word(&r.Address) }

type ResolvedTrampoline struct {
	Header
	SymbolID uint16
}

func (r *ResolvedTrampoline) fields(f fields) { f.u16(&r.SymbolID) }

// Frequency is a block frequency counter within the body info.
type Frequency struct {
	Header
	FrequencyOffset uint64
}

func (r *Frequency) fields(f fields) { f.word(&r.FrequencyOffset) }
