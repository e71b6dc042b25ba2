// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classchain

import (
	"bytes"
	"testing"

	"gate.computer/aot/env"
	"gate.computer/aot/internal/test/fakevm"
	"gate.computer/aot/store"
)

func TestCanonical(t *testing.T) {
	chain := env.ClassChain{Name: "app/Main", Entries: []uint64{1, 2, 3}}

	a, err := Marshal(chain)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(env.ClassChain{Name: "app/Main", Entries: []uint64{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encodings differ")
	}

	decoded, err := Unmarshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(chain) {
		t.Errorf("decoded: %+v", decoded)
	}

	if _, err := Unmarshal([]byte{0xff}); err == nil {
		t.Error("garbage was accepted")
	}
}

func TestValidate(t *testing.T) {
	w := fakevm.New()
	s := store.NewMemory()

	super := w.AddClass("app/Base", 1, 0)
	c := w.AddClass("app/Main", 1, super.ID)

	chain, _ := w.ClassChain(c.ID)
	offset, err := Put(s, chain)
	if err != nil {
		t.Fatal(err)
	}

	v, err := NewValidator(s, w, 0)
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := v.Validate(c.ID, offset); !ok || err != nil {
		t.Fatalf("validate: %v %v", ok, err)
	}
	if ok, _ := v.Validate(super.ID, offset); ok {
		t.Error("super class matched")
	}
	if ok, _ := v.Validate(0, offset); ok {
		t.Error("null class matched")
	}

	super.Shape++

	if ok, _ := v.Validate(c.ID, offset); !ok {
		t.Error("positive result was not cached")
	}
	v.Purge()
	if ok, _ := v.Validate(c.ID, offset); ok {
		t.Error("changed super class matched after purge")
	}

	if _, err := v.Validate(c.ID, offset+0x1000); err == nil {
		t.Error("missing chain")
	}
}

func TestFind(t *testing.T) {
	w := fakevm.New()
	s := store.NewMemory()

	loaderClass := w.AddClass("app/Loader", 3, 0)
	c := w.AddClass("app/Main", 3, 0)
	w.AddClass("app/Main", 4, 0)

	loaderChain, _ := w.ClassChain(loaderClass.ID)
	loaderOffset, err := Put(s, loaderChain)
	if err != nil {
		t.Fatal(err)
	}
	chain, _ := w.ClassChain(c.ID)
	classOffset, err := Put(s, chain)
	if err != nil {
		t.Fatal(err)
	}

	v, err := NewValidator(s, w, 16)
	if err != nil {
		t.Fatal(err)
	}

	found, ok, err := v.Find(loaderOffset, classOffset)
	if err != nil || !ok || found != c.ID {
		t.Errorf("find: %#x %v %v", found, ok, err)
	}

	c.Shape++
	v.Purge()

	found, ok, err = v.Find(loaderOffset, classOffset)
	if err != nil || ok || found != 0 {
		t.Errorf("stale find: %#x %v %v", found, ok, err)
	}
}
