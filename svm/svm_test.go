// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package svm

import (
	"testing"

	"gate.computer/aot/classchain"
	"gate.computer/aot/env"
	"gate.computer/aot/internal/test/fakevm"
	"gate.computer/aot/store"
)

type world struct {
	*fakevm.World
	store  *store.Memory
	chains *classchain.Validator
	main   *fakevm.Class
	method *fakevm.Method
}

func newWorld(t *testing.T) *world {
	t.Helper()

	w := &world{World: fakevm.New(), store: store.NewMemory()}
	w.main = w.AddClass("app/Main", 1, 0)
	w.method = w.AddMethod(w.main, "main()V")

	var err error
	if w.chains, err = classchain.NewValidator(w.store, w.World, 0); err != nil {
		t.Fatal(err)
	}
	return w
}

func (w *world) manager() *Manager {
	return New(w.Environment(w.store, nil), w.chains, w.method.ID)
}

func (w *world) chain(t *testing.T, c env.Class) uint64 {
	t.Helper()

	chain, _ := w.ClassChain(c)
	offset, err := classchain.Put(w.store, chain)
	if err != nil {
		t.Fatal(err)
	}
	return offset
}

func TestRoots(t *testing.T) {
	w := newWorld(t)
	m := w.manager()

	if x, found := m.SymbolFromID(RootClassID, env.SymbolClass); !found || x != uint64(w.main.ID) {
		t.Errorf("root class: %#x %v", x, found)
	}
	if x, found := m.SymbolFromID(RootMethodID, env.SymbolNone); !found || x != uint64(w.method.ID) {
		t.Errorf("root method: %#x %v", x, found)
	}
	if _, found := m.SymbolFromID(RootMethodID, env.SymbolClass); found {
		t.Error("symbol type was ignored")
	}
	if _, found := m.SymbolFromID(3, env.SymbolNone); found {
		t.Error("unbound id")
	}
}

func TestBindingUniqueness(t *testing.T) {
	w := newWorld(t)
	m := w.manager()

	a := w.AddClass("app/A", 1, 0)
	b := w.AddClass("app/B", 1, 0)

	cp := w.Pool(w.main)
	w.SetEntry(cp, 1, fakevm.Entry{Class: a.ID})
	w.SetEntry(cp, 2, fakevm.Entry{Class: b.ID})

	if !m.ValidateClassFromCP(3, RootClassID, 1) {
		t.Fatal("first binding")
	}
	if !m.ValidateClassFromCP(3, RootClassID, 1) {
		t.Error("same binding again")
	}
	if m.ValidateClassFromCP(3, RootClassID, 2) {
		t.Error("id bound to another class")
	}
	if m.ValidateClassFromCP(4, RootClassID, 1) {
		t.Error("class bound to another id")
	}
	if m.ValidateClassFromCP(5, 9, 1) {
		t.Error("unbound beholder")
	}
}

func TestClassByName(t *testing.T) {
	w := newWorld(t)
	a := w.AddClass("app/A", 1, w.main.ID)
	offset := w.chain(t, a.ID)

	if m := w.manager(); !m.ValidateClassByName(3, RootClassID, offset) {
		t.Error("class by name")
	} else if !m.ValidateSuperClassFromClass(RootClassID, 3) {
		t.Error("superclass")
	} else if !m.ValidateClassChain(3, offset) {
		t.Error("class chain")
	}

	a.Shape++
	w.chains.Purge()

	if w.manager().ValidateClassByName(3, RootClassID, offset) {
		t.Error("changed class validated")
	}
}

func TestMethodFromCP(t *testing.T) {
	w := newWorld(t)
	m := w.manager()

	other := w.AddClass("app/Other", 1, 0)
	target := w.AddMethod(other, "run()V")
	w.SetEntry(w.Pool(w.main), 7, fakevm.Entry{Virtual: target.ID})

	if !m.ValidateVirtualMethodFromCP(4, 3, RootClassID, 7) {
		t.Fatal("virtual method")
	}
	if x, _ := m.SymbolFromID(3, env.SymbolClass); x != uint64(other.ID) {
		t.Errorf("defining class: %#x", x)
	}
	if m.ValidateStaticMethodFromCP(5, 6, RootClassID, 7) {
		t.Error("static lookup of a virtual entry")
	}
}

func TestVirtualMethodFromOffset(t *testing.T) {
	w := newWorld(t)

	target := w.AddMethod(w.main, "run()V")
	w.Classes[w.main.ID].VTable[24] = target.ID

	if !w.manager().ValidateVirtualMethodFromOffset(4, RootClassID, RootClassID, 24, false) {
		t.Error("vtable lookup")
	}

	w.ResolveAtRuntime = true

	if w.manager().ValidateVirtualMethodFromOffset(4, RootClassID, RootClassID, 24, false) {
		t.Error("vtable lookup succeeded while resolving at run time")
	}

	m := w.manager()
	if !m.ValidateVirtualMethodFromOffset(4, RootClassID, RootClassID, 24, true) {
		t.Error("runtime resolution was not ignored")
	}
	if x, _ := m.SymbolFromID(4, env.SymbolMethod); x != uint64(target.ID) {
		t.Errorf("method: %#x", x)
	}
}

func TestSingleImplementer(t *testing.T) {
	w := newWorld(t)
	m := w.manager()

	impl := w.AddMethod(w.main, "impl()V")
	w.Implementers[fakevm.ImplKey{Class: w.main.ID, Index: 2}] = impl.ID

	if !m.ValidateMethodFromSingleImplementer(4, RootClassID, RootClassID, 2, RootMethodID, false) {
		t.Error("single implementer")
	}
	if m.ValidateMethodFromSingleAbstractImplementer(5, RootClassID, RootClassID, 2, RootMethodID) {
		t.Error("no abstract implementer")
	}
}

func TestClassInfoIsInitialized(t *testing.T) {
	w := newWorld(t)
	m := w.manager()

	w.main.Initialized = false

	if !m.ValidateClassInfoIsInitialized(RootClassID, false) {
		t.Error("uninitialized at compile time")
	}
	if m.ValidateClassInfoIsInitialized(RootClassID, true) {
		t.Error("initialized at compile time")
	}
}

func TestJ2IThunk(t *testing.T) {
	w := newWorld(t)
	m := w.manager()

	if !m.ValidateJ2IThunkFromMethod(3, RootMethodID) {
		t.Fatal("thunk")
	}
	if x, found := m.SymbolFromID(3, env.SymbolThunk); !found || x != w.ThunkAddrs["main()V"] {
		t.Errorf("thunk symbol: %#x", x)
	}
}
