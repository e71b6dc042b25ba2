// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package svm implements symbol validation: the ids which a method's
// relocation records use to refer to classes, methods and thunks are bound
// to live symbols as the validation records are applied.
package svm

import (
	"gate.computer/aot/classchain"
	"gate.computer/aot/env"
)

// Ids bound before the first validation record is applied.
const (
	RootClassID  uint16 = 1 // The class of the method being loaded.
	RootMethodID uint16 = 2 // The method being loaded.
)

type binding struct {
	value uint64
	typ   env.SymbolType
}

// Manager is used by one load at a time.
type Manager struct {
	vm     env.VM
	res    env.ConstantPoolResolver
	cht    env.ClassHierarchyTable
	thunks env.Thunks
	store  env.BlobStore
	chains *classchain.Validator

	ids     map[uint16]binding
	symbols map[uint64]uint16

	runtimeResolve bool
}

var _ env.SymbolValidationManager = (*Manager)(nil)

// New manager with the root ids bound.  The environment's Symbols field is
// not consulted.
func New(e *env.Environment, chains *classchain.Validator, method env.Method) *Manager {
	m := &Manager{
		vm:      e.VM,
		res:     e.Resolver,
		cht:     e.Hierarchy,
		thunks:  e.Thunks,
		store:   e.Store,
		chains:  chains,
		ids:     make(map[uint16]binding),
		symbols: make(map[uint64]uint16),
	}
	if r, ok := e.VM.(env.RuntimeResolver); ok {
		m.runtimeResolve = r.RuntimeResolve()
	}
	m.bind(RootClassID, env.SymbolClass, uint64(e.VM.ClassOfMethod(method)))
	m.bind(RootMethodID, env.SymbolMethod, uint64(method))
	return m
}

// bind an id to a symbol.  An id binds one symbol and a symbol binds one id;
// rebinding the same pair succeeds.
func (m *Manager) bind(id uint16, t env.SymbolType, value uint64) bool {
	if id == 0 || value == 0 {
		return false
	}

	if b, found := m.ids[id]; found {
		return b.value == value && b.typ == t
	}
	if other, found := m.symbols[value]; found && other != id {
		return false
	}

	m.ids[id] = binding{value, t}
	m.symbols[value] = id
	return true
}

func (m *Manager) bound(id uint16, t env.SymbolType) (uint64, bool) {
	b, found := m.ids[id]
	if !found || b.typ != t {
		return 0, false
	}
	return b.value, true
}

func (m *Manager) class(id uint16) (env.Class, bool) {
	x, found := m.bound(id, env.SymbolClass)
	return env.Class(x), found
}

func (m *Manager) method(id uint16) (env.Method, bool) {
	x, found := m.bound(id, env.SymbolMethod)
	return env.Method(x), found
}

func (m *Manager) pool(beholderID uint16) (env.ConstantPool, bool) {
	beholder, found := m.class(beholderID)
	if !found {
		return 0, false
	}
	cp := m.vm.ConstantPoolOfClass(beholder)
	return cp, cp != 0
}

func (m *Manager) bindClass(id uint16, c env.Class, found bool) bool {
	return found && m.bind(id, env.SymbolClass, uint64(c))
}

// bindMethod binds a method and its defining class.
func (m *Manager) bindMethod(methodID, definingClassID uint16, x env.Method, found bool) bool {
	return found &&
		m.bind(definingClassID, env.SymbolClass, uint64(m.vm.ClassOfMethod(x))) &&
		m.bind(methodID, env.SymbolMethod, uint64(x))
}

// chainClass binds a class which is found by name and matches the stored
// chain.
func (m *Manager) chainClass(classID uint16, chainOffset uint64, find func(name string) (env.Class, bool)) bool {
	if m.chains == nil {
		return false
	}

	chain, err := m.chains.Chain(chainOffset)
	if err != nil {
		return false
	}

	c, found := find(chain.Name)
	if !found {
		return false
	}

	ok, err := m.chains.Validate(c, chainOffset)
	return err == nil && ok && m.bind(classID, env.SymbolClass, uint64(c))
}

func (m *Manager) SymbolFromID(id uint16, t env.SymbolType) (uint64, bool) {
	b, found := m.ids[id]
	if !found || (t != env.SymbolNone && b.typ != t) {
		return 0, false
	}
	return b.value, true
}

func (m *Manager) ValidateClassByName(classID, beholderID uint16, chainOffset uint64) bool {
	beholder, found := m.class(beholderID)
	if !found {
		return false
	}
	loader := m.vm.ClassLoader(beholder)

	return m.chainClass(classID, chainOffset, func(name string) (env.Class, bool) {
		return m.vm.ClassByName(loader, name)
	})
}

func (m *Manager) ValidateProfiledClass(classID uint16, chainOffset, loaderChainOffset uint64) bool {
	if m.chains == nil {
		return false
	}
	c, ok, err := m.chains.Find(loaderChainOffset, chainOffset)
	return err == nil && m.bindClass(classID, c, ok)
}

func (m *Manager) ValidateClassFromCP(classID, beholderID uint16, cpIndex uint32) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	c, found := m.res.ResolveClass(cp, cpIndex)
	return m.bindClass(classID, c, found)
}

func (m *Manager) ValidateDefiningClassFromCP(classID, beholderID uint16, cpIndex uint32, isStatic bool) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	c, found := m.res.DefiningClass(cp, cpIndex, isStatic)
	return m.bindClass(classID, c, found)
}

func (m *Manager) ValidateStaticClassFromCP(classID, beholderID uint16, cpIndex uint32) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	_, c, found := m.res.ResolveStaticField(cp, cpIndex)
	return m.bindClass(classID, c, found)
}

func (m *Manager) ValidateClassFromITableIndexCP(classID, beholderID uint16, cpIndex uint32) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	c, found := m.res.ClassFromITableIndex(cp, cpIndex)
	return m.bindClass(classID, c, found)
}

func (m *Manager) ValidateDeclaringClassFromFieldOrStatic(classID, beholderID uint16, cpIndex uint32) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	_, c, found := m.res.ResolveStaticField(cp, cpIndex)
	if !found {
		_, c, found = m.res.ResolveInstanceField(cp, cpIndex)
	}
	return m.bindClass(classID, c, found)
}

func (m *Manager) ValidateArrayClassFromComponentClass(arrayClassID, componentClassID uint16) bool {
	component, found := m.class(componentClassID)
	if !found {
		return false
	}
	array, found := m.vm.ArrayClass(component)
	return m.bindClass(arrayClassID, array, found)
}

func (m *Manager) ValidateComponentClassFromArrayClass(componentClassID, arrayClassID uint16) bool {
	array, found := m.class(arrayClassID)
	if !found {
		return false
	}
	component, found := m.vm.ComponentClass(array)
	return m.bindClass(componentClassID, component, found)
}

func (m *Manager) ValidateSuperClassFromClass(superClassID, childClassID uint16) bool {
	child, found := m.class(childClassID)
	if !found {
		return false
	}
	super, found := m.vm.SuperClass(child)
	return m.bindClass(superClassID, super, found)
}

func (m *Manager) ValidateConcreteSubClassFromClass(childClassID, superClassID uint16) bool {
	super, found := m.class(superClassID)
	if !found || m.cht == nil {
		return false
	}
	child, found := m.cht.FindSingleConcreteSubClass(super)
	return m.bindClass(childClassID, child, found)
}

func (m *Manager) ValidateClassInstanceOfClass(classOneID, classTwoID uint16, objectTypeIsFixed, castTypeIsFixed, isInstanceOf bool) bool {
	one, found1 := m.class(classOneID)
	two, found2 := m.class(classTwoID)
	if !found1 || !found2 {
		return false
	}
	return m.vm.InstanceOf(one, two, objectTypeIsFixed, castTypeIsFixed) == isInstanceOf
}

func (m *Manager) ValidateSystemClassByName(classID uint16, chainOffset uint64) bool {
	return m.chainClass(classID, chainOffset, m.vm.SystemClassByName)
}

func (m *Manager) ValidateClassChain(classID uint16, chainOffset uint64) bool {
	c, found := m.class(classID)
	if !found || m.chains == nil {
		return false
	}
	ok, err := m.chains.Validate(c, chainOffset)
	return err == nil && ok
}

func (m *Manager) ValidateMethodFromClass(methodID, beholderID uint16, index uint32) bool {
	beholder, found := m.class(beholderID)
	if !found {
		return false
	}
	x, found := m.vm.MethodAt(beholder, index)
	return found && m.bind(methodID, env.SymbolMethod, uint64(x))
}

func (m *Manager) methodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32, resolve func(env.ConstantPool, uint32) (env.Method, bool)) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	x, found := resolve(cp, cpIndex)
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) ValidateStaticMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool {
	return m.methodFromCP(methodID, definingClassID, beholderID, cpIndex, m.res.ResolveStaticMethod)
}

func (m *Manager) ValidateSpecialMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool {
	return m.methodFromCP(methodID, definingClassID, beholderID, cpIndex, m.res.ResolveSpecialMethod)
}

func (m *Manager) ValidateVirtualMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool {
	return m.methodFromCP(methodID, definingClassID, beholderID, cpIndex, m.res.ResolveVirtualMethod)
}

func (m *Manager) ValidateImproperInterfaceMethodFromCP(methodID, definingClassID, beholderID uint16, cpIndex uint32) bool {
	return m.methodFromCP(methodID, definingClassID, beholderID, cpIndex, m.res.ResolveImproperInterfaceMethod)
}

// ValidateVirtualMethodFromOffset fails while the VM resolves virtual calls
// at run time, unless ignoreRtResolve is set.
func (m *Manager) ValidateVirtualMethodFromOffset(methodID, definingClassID, beholderID uint16, offset int32, ignoreRtResolve bool) bool {
	if m.runtimeResolve && !ignoreRtResolve {
		return false
	}
	beholder, found := m.class(beholderID)
	if !found {
		return false
	}
	x, found := m.vm.VirtualMethodAt(beholder, offset)
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) ValidateInterfaceMethodFromCP(methodID, definingClassID, beholderID, lookupID uint16, cpIndex uint32) bool {
	cp, found := m.pool(beholderID)
	if !found {
		return false
	}
	lookup, found := m.class(lookupID)
	if !found {
		return false
	}
	iface, found := m.res.ResolveInterfaceMethod(cp, cpIndex)
	if !found {
		return false
	}
	x, found := m.vm.MethodBySignature(lookup, m.vm.MethodSignature(iface))
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) ValidateMethodFromClassAndSig(methodID, definingClassID, beholderID, lookupID uint16, signatureOffset uint64) bool {
	if _, found := m.class(beholderID); !found {
		return false
	}
	lookup, found := m.class(lookupID)
	if !found || m.store == nil {
		return false
	}
	sig, err := m.store.At(signatureOffset)
	if err != nil {
		return false
	}
	x, found := m.vm.MethodBySignature(lookup, string(sig))
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) ValidateStackWalkerMaySkipFrames(methodID, methodClassID uint16, skipFrames bool) bool {
	x, found1 := m.method(methodID)
	c, found2 := m.class(methodClassID)
	if !found1 || !found2 {
		return false
	}
	return m.vm.StackWalkerMaySkipFrames(x, c) == skipFrames
}

// ValidateClassInfoIsInitialized fails only if the class was initialized at
// compile time and is not now.
func (m *Manager) ValidateClassInfoIsInitialized(classID uint16, isInitialized bool) bool {
	c, found := m.class(classID)
	if !found {
		return false
	}
	return !isInitialized || m.vm.IsInitialized(c)
}

func (m *Manager) ValidateMethodFromSingleImplementer(methodID, definingClassID, thisClassID uint16, cpIndexOrVftSlot int32, callerMethodID uint16, useResolvedInterfaceMethod bool) bool {
	this, caller, found := m.implementerArgs(thisClassID, callerMethodID)
	if !found {
		return false
	}
	x, found := m.cht.FindSingleImplementer(this, cpIndexOrVftSlot, caller, useResolvedInterfaceMethod)
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) ValidateMethodFromSingleInterfaceImplementer(methodID, definingClassID, thisClassID uint16, cpIndex int32, callerMethodID uint16) bool {
	this, caller, found := m.implementerArgs(thisClassID, callerMethodID)
	if !found {
		return false
	}
	x, found := m.cht.FindSingleInterfaceImplementer(this, cpIndex, caller)
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) ValidateMethodFromSingleAbstractImplementer(methodID, definingClassID, thisClassID uint16, vftSlot int32, callerMethodID uint16) bool {
	this, caller, found := m.implementerArgs(thisClassID, callerMethodID)
	if !found {
		return false
	}
	x, found := m.cht.FindSingleAbstractImplementer(this, vftSlot, caller)
	return m.bindMethod(methodID, definingClassID, x, found)
}

func (m *Manager) implementerArgs(thisClassID, callerMethodID uint16) (this env.Class, caller env.Method, found bool) {
	if m.cht == nil {
		return
	}
	if this, found = m.class(thisClassID); !found {
		return
	}
	caller, found = m.method(callerMethodID)
	return
}

func (m *Manager) ValidateJ2IThunkFromMethod(thunkID, methodID uint16) bool {
	x, found := m.method(methodID)
	if !found || m.thunks == nil {
		return false
	}

	sig := m.vm.MethodSignature(x)
	addr, found := m.thunks.Lookup(sig)
	if !found {
		var err error
		if addr, err = m.thunks.Thunk(sig); err != nil {
			return false
		}
	}
	return m.bind(thunkID, env.SymbolThunk, addr)
}
