// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package env declares the identities and collaborator interfaces which the
// relocation engine consumes from the surrounding runtime.
package env

import (
	"errors"
)

// Identities are the runtime addresses of the corresponding structures.  Zero
// means none.
type (
	Class        uint64
	Method       uint64
	ConstantPool uint64
	Loader       uint64
)

// ClassChain is a class fingerprint: the class name and the identities of the
// class and its supertypes in a fixed order.
type ClassChain struct {
	Name    string   `cbor:"1,keyasint"`
	Entries []uint64 `cbor:"2,keyasint"`
}

func (c ClassChain) Equal(other ClassChain) bool {
	if c.Name != other.Name || len(c.Entries) != len(other.Entries) {
		return false
	}
	for i, x := range c.Entries {
		if other.Entries[i] != x {
			return false
		}
	}
	return true
}

type SymbolType uint8

const (
	SymbolNone SymbolType = iota
	SymbolClass
	SymbolMethod
	SymbolConstantPool
	SymbolThunk
)

var symbolTypeNames = [...]string{
	SymbolNone:         "none",
	SymbolClass:        "class",
	SymbolMethod:       "method",
	SymbolConstantPool: "constant pool",
	SymbolThunk:        "thunk",
}

func (t SymbolType) String() string {
	if int(t) < len(symbolTypeNames) {
		return symbolTypeNames[t]
	}
	return "invalid symbol type"
}

// VM answers questions about the live class and method graph.
type VM interface {
	ClassChain(c Class) (ClassChain, bool)
	LoaderFromChain(chain ClassChain) (Loader, bool)
	ClassByName(l Loader, name string) (Class, bool)
	SystemClassByName(name string) (Class, bool)
	ClassLoader(c Class) Loader

	// IsPermanent reports whether the class can never be unloaded.
	IsPermanent(c Class) bool

	ClassOfMethod(m Method) Class
	ConstantPoolOfMethod(m Method) ConstantPool
	ClassOfConstantPool(cp ConstantPool) Class
	ConstantPoolOfClass(c Class) ConstantPool

	SuperClass(c Class) (Class, bool)
	ComponentClass(array Class) (Class, bool)
	ArrayClass(component Class) (Class, bool)
	InstanceOf(c, cast Class, objectTypeIsFixed, castTypeIsFixed bool) bool
	IsInitialized(c Class) bool
	InstanceSize(c Class) uint64

	MethodAt(c Class, index uint32) (Method, bool)
	VirtualMethodAt(c Class, offset int32) (Method, bool)
	MethodBySignature(c Class, signature string) (Method, bool)
	MethodSignature(m Method) string
	NativeAddress(m Method) uint64
	StackWalkerMaySkipFrames(m Method, c Class) bool

	// TracingEnabled reports whether method enter (or exit) hooks are
	// currently enabled for the method.
	TracingEnabled(m Method, exit bool) bool
	IsBreakpointed(m Method) bool
}

// ConstantPoolResolver resolves constant pool entries without side effects on
// the pool.
type ConstantPoolResolver interface {
	ResolveClass(cp ConstantPool, index uint32) (Class, bool)
	ResolveStaticMethod(cp ConstantPool, index uint32) (Method, bool)
	ResolveSpecialMethod(cp ConstantPool, index uint32) (Method, bool)
	ResolveVirtualMethod(cp ConstantPool, index uint32) (Method, bool)
	ResolveInterfaceMethod(cp ConstantPool, index uint32) (Method, bool)
	ResolveImproperInterfaceMethod(cp ConstantPool, index uint32) (Method, bool)
	ResolveStaticField(cp ConstantPool, index uint32) (addr uint64, declaring Class, ok bool)
	ResolveInstanceField(cp ConstantPool, index uint32) (offset uint64, declaring Class, ok bool)
	ClassFromITableIndex(cp ConstantPool, index uint32) (Class, bool)
	DefiningClass(cp ConstantPool, index uint32, isStatic bool) (Class, bool)
}

// ClassHierarchyTable is used for single-implementer devirtualization.
type ClassHierarchyTable interface {
	FindSingleImplementer(c Class, vftSlot int32, caller Method, useResolvedInterfaceMethod bool) (Method, bool)
	FindSingleInterfaceImplementer(iface Class, cpIndex int32, caller Method) (Method, bool)
	FindSingleAbstractImplementer(c Class, vftSlot int32, caller Method) (Method, bool)
	FindSingleConcreteSubClass(c Class) (Class, bool)
	IsOverridden(m Method) bool
}

// SymbolValidationManager maps the small integer ids assigned at compile time
// to live symbols.  Every Validate method re-derives a symbol and reports
// whether it reproduces the identity recorded for the id.
type SymbolValidationManager interface {
	SymbolFromID(id uint16, t SymbolType) (uint64, bool)

	ValidateClassByName(classID, beholderID uint16, chainOffset uint64) bool
	ValidateProfiledClass(classID uint16, chainOffset, loaderChainOffset uint64) bool
	ValidateClassFromCP(classID, beholderID uint16, cpIndex uint32) bool
	ValidateDefiningClassFromCP(classID, beholderID uint16, cpIndex uint32, isStatic bool) bool
	ValidateStaticClassFromCP(classID, beholderID uint16, cpIndex uint32) bool
	ValidateClassFromITableIndexCP(classID, beholderID uint16, cpIndex uint32) bool
	ValidateDeclaringClassFromFieldOrStatic(classID, beholderID uint16, cpIndex uint32) bool
	ValidateArrayClassFromComponentClass(arrayClassID, componentClassID uint16) bool
	ValidateComponentClassFromArrayClass(componentClassID, arrayClassID uint16) bool
	ValidateSuperClassFromClass(superClassID, childClassID uint16) bool
	ValidateConcreteSubClassFromClass(childClassID, superClassID uint16) bool
	ValidateClassInstanceOfClass(classOneID, classTwoID uint16, objectTypeIsFixed, castTypeIsFixed, isInstanceOf bool) bool
	ValidateSystemClassByName(classID uint16, chainOffset uint64) bool
	ValidateClassChain(classID uint16, chainOffset uint64) bool

	ValidateMethodFromClass(methodID, beholderID uint16, index uint32) bool
	ValidateStaticMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool
	ValidateSpecialMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool
	ValidateVirtualMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool
	ValidateImproperInterfaceMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool
	ValidateVirtualMethodFromOffset(methodID, definingClassID, beholderID uint16, offset int32, ignoreRtResolve bool) bool
	ValidateInterfaceMethodFromCP(methodID, definingClassID, beholderID, lookupID uint16, cpIndex uint32) bool
	ValidateMethodFromClassAndSig(methodID, definingClassID, beholderID, lookupID uint16, signatureOffset uint64) bool
	ValidateStackWalkerMaySkipFrames(methodID, methodClassID uint16, skipFrames bool) bool
	ValidateClassInfoIsInitialized(classID uint16, isInitialized bool) bool
	ValidateMethodFromSingleImplementer(methodID, definingClassID, thisClassID uint16, cpIndexOrVftSlot int32, callerMethodID uint16, useResolvedInterfaceMethod bool) bool
	ValidateMethodFromSingleInterfaceImplementer(methodID, definingClassID, thisClassID uint16, cpIndex int32, callerMethodID uint16) bool
	ValidateMethodFromSingleAbstractImplementer(methodID, definingClassID, thisClassID uint16, vftSlot int32, callerMethodID uint16) bool
	ValidateJ2IThunkFromMethod(thunkID, methodID uint16) bool
}

var ErrNotFound = errors.New("blob not found")

// BlobStore is the persistent cache.  Keyed entries hold serialized method
// headers; items are anonymous blobs addressed by offset (class chains,
// names, signatures).
type BlobStore interface {
	Load(key string) ([]byte, error)
	Store(key string, blob []byte) error
	At(offset uint64) ([]byte, error)
	Put(item []byte) (offset uint64, err error)
}

// RuntimeResolver is implemented by VMs which can be configured to resolve
// every virtual call at run time.  Virtual table lookups made on behalf of
// compiled code fail in that mode unless the caller opts out.
type RuntimeResolver interface {
	RuntimeResolve() bool
}

// StaleMarker is implemented by stores which can retire an entry.
type StaleMarker interface {
	MarkStale(key string) error
}

// Thunks materializes interpreter-to-JIT glue for a signature.
type Thunks interface {
	Thunk(signature string) (uint64, error)
	Lookup(signature string) (uint64, bool)
}

// Trampolines reserves call trampoline slots in the current code cache.
// Reservations of a failed load are released with the Unreserve methods.
type Trampolines interface {
	ReserveTrampoline(m Method) error
	ReservePICTrampolines(n int) error
	UnreserveTrampoline(m Method)
	UnreservePICTrampolines(n int)
}

// DebugCounters locates or allocates the storage of a named counter.
type DebugCounters interface {
	Counter(name string, delta int32, fidelity uint8, staticDelta int32) (uint64, error)
}

// Environment bundles the collaborators.  Symbols is nil when the method was
// compiled without symbol validation.
type Environment struct {
	VM          VM
	Resolver    ConstantPoolResolver
	Hierarchy   ClassHierarchyTable
	Symbols     SymbolValidationManager
	Store       BlobStore
	Thunks      Thunks
	Trampolines Trampolines
	Counters    DebugCounters
}
