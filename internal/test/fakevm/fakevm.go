// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakevm implements the collaborator interfaces over a small
// in-memory class graph, for tests.
package fakevm

import (
	"errors"
	"sync"

	"gate.computer/aot/env"
)

var ErrThunk = errors.New("fakevm: thunk materialization failed")

type Class struct {
	ID           env.Class
	Name         string
	Loader       env.Loader
	Super        env.Class
	Component    env.Class
	Array        env.Class
	Initialized  bool
	InstanceSize uint64
	Permanent    bool
	Methods      []env.Method
	VTable       map[int32]env.Method
	Shape        uint64 // Part of the class chain; bump to simulate a changed class.
}

type Method struct {
	ID           env.Method
	Class        env.Class
	ConstantPool env.ConstantPool
	Signature    string
	Native       uint64
	Overridden   bool
	Breakpointed bool
	TraceEnter   bool
	TraceExit    bool
	SkipFrames   bool
}

// Entry is a constant pool slot.  Zero fields are unresolved.
type Entry struct {
	Class       env.Class
	Static      env.Method
	Special     env.Method
	Virtual     env.Method
	Interface   env.Method
	Improper    env.Method
	FieldAddr   uint64
	FieldOffset uint64
	Declaring   env.Class
	ITableClass env.Class
}

type ImplKey struct {
	Class env.Class
	Index int32
}

type World struct {
	mu sync.Mutex

	Classes   map[env.Class]*Class
	Methods   map[env.Method]*Method
	Pools     map[env.ConstantPool]map[uint32]*Entry
	PoolClass map[env.ConstantPool]env.Class

	Implementers          map[ImplKey]env.Method
	InterfaceImplementers map[ImplKey]env.Method
	AbstractImplementers  map[ImplKey]env.Method
	ConcreteSubClasses    map[env.Class]env.Class

	ThunkAddrs map[string]uint64
	ThunkFail  bool
	Counters   map[string]uint64

	ResolveAtRuntime bool

	nextAddr uint64
}

func New() *World {
	return &World{
		Classes:               make(map[env.Class]*Class),
		Methods:               make(map[env.Method]*Method),
		Pools:                 make(map[env.ConstantPool]map[uint32]*Entry),
		PoolClass:             make(map[env.ConstantPool]env.Class),
		Implementers:          make(map[ImplKey]env.Method),
		InterfaceImplementers: make(map[ImplKey]env.Method),
		AbstractImplementers:  make(map[ImplKey]env.Method),
		ConcreteSubClasses:    make(map[env.Class]env.Class),
		ThunkAddrs:            make(map[string]uint64),
		Counters:              make(map[string]uint64),
		nextAddr:              0x100000,
	}
}

func (w *World) alloc() uint64 {
	w.nextAddr += 0x100
	return w.nextAddr
}

// AddClass with a constant pool.
func (w *World) AddClass(name string, loader env.Loader, super env.Class) *Class {
	c := &Class{
		ID:          env.Class(w.alloc()),
		Name:        name,
		Loader:      loader,
		Super:       super,
		Initialized: true,
		VTable:      make(map[int32]env.Method),
	}
	w.Classes[c.ID] = c
	return c
}

// Pool of a class, created on demand.
func (w *World) Pool(c *Class) env.ConstantPool {
	for cp, owner := range w.PoolClass {
		if owner == c.ID {
			return cp
		}
	}
	cp := env.ConstantPool(w.alloc())
	w.PoolClass[cp] = c.ID
	w.Pools[cp] = make(map[uint32]*Entry)
	return cp
}

func (w *World) AddMethod(c *Class, signature string) *Method {
	m := &Method{
		ID:           env.Method(w.alloc()),
		Class:        c.ID,
		ConstantPool: w.Pool(c),
		Signature:    signature,
		Native:       w.alloc(),
	}
	w.Methods[m.ID] = m
	c.Methods = append(c.Methods, m.ID)
	return m
}

func (w *World) SetEntry(cp env.ConstantPool, index uint32, e Entry) {
	w.Pools[cp][index] = &e
}

func (w *World) entry(cp env.ConstantPool, index uint32) *Entry {
	if e := w.Pools[cp][index]; e != nil {
		return e
	}
	return new(Entry)
}

// VM

func (w *World) ClassChain(c env.Class) (env.ClassChain, bool) {
	class := w.Classes[c]
	if class == nil {
		return env.ClassChain{}, false
	}

	chain := env.ClassChain{Name: class.Name}
	for class != nil {
		chain.Entries = append(chain.Entries, uint64(class.ID), class.Shape)
		class = w.Classes[class.Super]
	}
	return chain, true
}

func (w *World) LoaderFromChain(chain env.ClassChain) (env.Loader, bool) {
	for _, c := range w.Classes {
		if live, _ := w.ClassChain(c.ID); live.Equal(chain) {
			return c.Loader, true
		}
	}
	return 0, false
}

func (w *World) ClassByName(l env.Loader, name string) (env.Class, bool) {
	for _, c := range w.Classes {
		if c.Loader == l && c.Name == name {
			return c.ID, true
		}
	}
	return 0, false
}

func (w *World) SystemClassByName(name string) (env.Class, bool) {
	return w.ClassByName(0, name)
}

func (w *World) ClassLoader(c env.Class) env.Loader {
	if class := w.Classes[c]; class != nil {
		return class.Loader
	}
	return 0
}

func (w *World) IsPermanent(c env.Class) bool {
	class := w.Classes[c]
	return class != nil && class.Permanent
}

func (w *World) ClassOfMethod(m env.Method) env.Class {
	if method := w.Methods[m]; method != nil {
		return method.Class
	}
	return 0
}

func (w *World) ConstantPoolOfMethod(m env.Method) env.ConstantPool {
	if method := w.Methods[m]; method != nil {
		return method.ConstantPool
	}
	return 0
}

func (w *World) ClassOfConstantPool(cp env.ConstantPool) env.Class {
	return w.PoolClass[cp]
}

func (w *World) ConstantPoolOfClass(c env.Class) env.ConstantPool {
	if class := w.Classes[c]; class != nil {
		return w.Pool(class)
	}
	return 0
}

func (w *World) SuperClass(c env.Class) (env.Class, bool) {
	class := w.Classes[c]
	if class == nil || class.Super == 0 {
		return 0, false
	}
	return class.Super, true
}

func (w *World) ComponentClass(array env.Class) (env.Class, bool) {
	class := w.Classes[array]
	if class == nil || class.Component == 0 {
		return 0, false
	}
	return class.Component, true
}

func (w *World) ArrayClass(component env.Class) (env.Class, bool) {
	class := w.Classes[component]
	if class == nil || class.Array == 0 {
		return 0, false
	}
	return class.Array, true
}

func (w *World) InstanceOf(c, cast env.Class, objectTypeIsFixed, castTypeIsFixed bool) bool {
	for class := w.Classes[c]; class != nil; class = w.Classes[class.Super] {
		if class.ID == cast {
			return true
		}
		if objectTypeIsFixed {
			break
		}
	}
	return false
}

func (w *World) IsInitialized(c env.Class) bool {
	class := w.Classes[c]
	return class != nil && class.Initialized
}

func (w *World) InstanceSize(c env.Class) uint64 {
	if class := w.Classes[c]; class != nil {
		return class.InstanceSize
	}
	return 0
}

func (w *World) MethodAt(c env.Class, index uint32) (env.Method, bool) {
	class := w.Classes[c]
	if class == nil || int(index) >= len(class.Methods) {
		return 0, false
	}
	return class.Methods[index], true
}

func (w *World) RuntimeResolve() bool {
	return w.ResolveAtRuntime
}

func (w *World) VirtualMethodAt(c env.Class, offset int32) (env.Method, bool) {
	class := w.Classes[c]
	if class == nil {
		return 0, false
	}
	m, found := class.VTable[offset]
	return m, found
}

func (w *World) MethodBySignature(c env.Class, signature string) (env.Method, bool) {
	if class := w.Classes[c]; class != nil {
		for _, m := range class.Methods {
			if w.Methods[m].Signature == signature {
				return m, true
			}
		}
	}
	return 0, false
}

func (w *World) MethodSignature(m env.Method) string {
	if method := w.Methods[m]; method != nil {
		return method.Signature
	}
	return ""
}

func (w *World) NativeAddress(m env.Method) uint64 {
	if method := w.Methods[m]; method != nil {
		return method.Native
	}
	return 0
}

func (w *World) StackWalkerMaySkipFrames(m env.Method, c env.Class) bool {
	method := w.Methods[m]
	return method != nil && method.SkipFrames
}

func (w *World) TracingEnabled(m env.Method, exit bool) bool {
	method := w.Methods[m]
	if method == nil {
		return false
	}
	if exit {
		return method.TraceExit
	}
	return method.TraceEnter
}

func (w *World) IsBreakpointed(m env.Method) bool {
	method := w.Methods[m]
	return method != nil && method.Breakpointed
}

// ConstantPoolResolver

func (w *World) ResolveClass(cp env.ConstantPool, index uint32) (env.Class, bool) {
	c := w.entry(cp, index).Class
	return c, c != 0
}

func (w *World) ResolveStaticMethod(cp env.ConstantPool, index uint32) (env.Method, bool) {
	m := w.entry(cp, index).Static
	return m, m != 0
}

func (w *World) ResolveSpecialMethod(cp env.ConstantPool, index uint32) (env.Method, bool) {
	m := w.entry(cp, index).Special
	return m, m != 0
}

func (w *World) ResolveVirtualMethod(cp env.ConstantPool, index uint32) (env.Method, bool) {
	m := w.entry(cp, index).Virtual
	return m, m != 0
}

func (w *World) ResolveInterfaceMethod(cp env.ConstantPool, index uint32) (env.Method, bool) {
	m := w.entry(cp, index).Interface
	return m, m != 0
}

func (w *World) ResolveImproperInterfaceMethod(cp env.ConstantPool, index uint32) (env.Method, bool) {
	m := w.entry(cp, index).Improper
	return m, m != 0
}

func (w *World) ResolveStaticField(cp env.ConstantPool, index uint32) (uint64, env.Class, bool) {
	e := w.entry(cp, index)
	return e.FieldAddr, e.Declaring, e.FieldAddr != 0
}

func (w *World) ResolveInstanceField(cp env.ConstantPool, index uint32) (uint64, env.Class, bool) {
	e := w.entry(cp, index)
	return e.FieldOffset, e.Declaring, e.Declaring != 0
}

func (w *World) ClassFromITableIndex(cp env.ConstantPool, index uint32) (env.Class, bool) {
	c := w.entry(cp, index).ITableClass
	return c, c != 0
}

func (w *World) DefiningClass(cp env.ConstantPool, index uint32, isStatic bool) (env.Class, bool) {
	e := w.entry(cp, index)
	m := e.Virtual
	if isStatic {
		m = e.Static
	}
	if m == 0 {
		return 0, false
	}
	return w.ClassOfMethod(m), true
}

// ClassHierarchyTable

func (w *World) FindSingleImplementer(c env.Class, vftSlot int32, caller env.Method, useResolvedInterfaceMethod bool) (env.Method, bool) {
	m, found := w.Implementers[ImplKey{c, vftSlot}]
	return m, found
}

func (w *World) FindSingleInterfaceImplementer(iface env.Class, cpIndex int32, caller env.Method) (env.Method, bool) {
	m, found := w.InterfaceImplementers[ImplKey{iface, cpIndex}]
	return m, found
}

func (w *World) FindSingleAbstractImplementer(c env.Class, vftSlot int32, caller env.Method) (env.Method, bool) {
	m, found := w.AbstractImplementers[ImplKey{c, vftSlot}]
	return m, found
}

func (w *World) FindSingleConcreteSubClass(c env.Class) (env.Class, bool) {
	sub, found := w.ConcreteSubClasses[c]
	return sub, found
}

func (w *World) IsOverridden(m env.Method) bool {
	method := w.Methods[m]
	return method != nil && method.Overridden
}

// Thunks

func (w *World) Thunk(signature string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ThunkFail {
		return 0, ErrThunk
	}
	addr, found := w.ThunkAddrs[signature]
	if !found {
		addr = w.alloc()
		w.ThunkAddrs[signature] = addr
	}
	return addr, nil
}

func (w *World) Lookup(signature string) (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	addr, found := w.ThunkAddrs[signature]
	return addr, found
}

// DebugCounters

func (w *World) Counter(name string, delta int32, fidelity uint8, staticDelta int32) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	addr, found := w.Counters[name]
	if !found {
		addr = w.alloc()
		w.Counters[name] = addr
	}
	return addr, nil
}

var ErrNoTrampolines = errors.New("fakevm: out of trampolines")

// Trampolines has a fixed number of free slots.
type Trampolines struct {
	Free     int
	Reserved []env.Method
}

func (t *Trampolines) ReserveTrampoline(m env.Method) error {
	if t.Free < 1 {
		return ErrNoTrampolines
	}
	t.Free--
	t.Reserved = append(t.Reserved, m)
	return nil
}

func (t *Trampolines) ReservePICTrampolines(n int) error {
	if t.Free < n {
		return ErrNoTrampolines
	}
	t.Free -= n
	return nil
}

func (t *Trampolines) UnreserveTrampoline(m env.Method) {
	for i, x := range t.Reserved {
		if x == m {
			t.Reserved = append(t.Reserved[:i], t.Reserved[i+1:]...)
			t.Free++
			return
		}
	}
}

func (t *Trampolines) UnreservePICTrampolines(n int) {
	t.Free += n
}

// Environment with the world as every collaborator except the symbol
// validation manager.
func (w *World) Environment(store env.BlobStore, tramps *Trampolines) *env.Environment {
	e := &env.Environment{
		VM:        w,
		Resolver:  w,
		Hierarchy: w,
		Store:     store,
		Thunks:    w,
		Counters:  w,
	}
	if tramps != nil {
		e.Trampolines = tramps
	}
	return e
}
