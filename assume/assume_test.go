// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assume

import (
	"testing"

	"gate.computer/aot/target"
	"gate.computer/aot/target/x86"
)

func newSite(b *target.Buffer, at, dest int) Site {
	return Site{Target: x86.NewAMD64(), Code: b, At: at, Dest: dest}
}

func TestClassRedefined(t *testing.T) {
	b := &target.Buffer{Bytes: make([]byte, 32), Base: 0x10000}
	tab := new(Table)

	tab.Add(Entry{Kind: RedefinitionSite, Key: 0x500, Owner: 1, Patch: PatchAddress, Site: newSite(b, 0, 0)})
	tab.Add(Entry{Kind: RedefinitionGuard, Key: 0x500, Owner: 1, Patch: PatchBranch, Site: newSite(b, 8, 24)})
	tab.Add(Entry{Kind: RedefinitionSite, Key: 0x600, Owner: 1, Patch: PatchAddress, Site: newSite(b, 16, 0)})

	list := tab.ClassRedefined(0x500, 0x700)
	if len(list) != 2 {
		t.Fatalf("affected: %d", len(list))
	}

	tgt := x86.NewAMD64()
	if x := tgt.Load64(b, 0); x != 0x700 {
		t.Errorf("redefinition site: %#x", x)
	}
	if b.Bytes[8] != 0xe9 || int32(tgt.Load32(b, 9)) != 24-13 {
		t.Errorf("guard: % x", b.Bytes[8:13])
	}
	if tgt.Load64(b, 16) != 0 {
		t.Error("unrelated site was patched")
	}
	if tab.Len() != 3 {
		t.Error("redefinition removed entries")
	}
}

func TestClassUnloaded(t *testing.T) {
	b := &target.Buffer{Bytes: make([]byte, 16), Base: 0x10000}
	x86.NewAMD64().Store64(b, 0, 0x500)
	tab := new(Table)

	tab.Add(Entry{Kind: UnloadSite, Key: 0x500, Owner: 1, Patch: PatchAddress, Site: newSite(b, 0, 0)})
	tab.Add(Entry{Kind: OverrideGuard, Key: 0x500, Owner: 1, Patch: PatchBranch, Site: newSite(b, 8, 0)})

	if n := len(tab.ClassUnloaded(0x500)); n != 1 {
		t.Errorf("affected: %d", n)
	}
	if x86.NewAMD64().Load64(b, 0) != 0 {
		t.Error("unload site was not cleared")
	}
	if tab.Len() != 1 || tab.Snapshot()[0].Kind != OverrideGuard {
		t.Errorf("remaining: %+v", tab.Snapshot())
	}
}

func TestMethodOverridden(t *testing.T) {
	b := &target.Buffer{Bytes: make([]byte, 16), Base: 0x10000}
	tab := new(Table)

	tab.Add(Entry{Kind: OverrideGuard, Key: 0x900, Owner: 1, Patch: PatchBranch, Site: newSite(b, 0, 12)})

	if len(tab.MethodOverridden(0x800)) != 0 || b.Bytes[0] != 0 {
		t.Error("other method patched the guard")
	}
	if len(tab.MethodOverridden(0x900)) != 1 || b.Bytes[0] != 0xe9 {
		t.Error("guard was not redirected")
	}
}

func TestReclaim(t *testing.T) {
	tab := new(Table)
	for owner := uint64(1); owner <= 3; owner++ {
		tab.Add(Entry{Kind: UnloadSite, Key: 0x500, Owner: owner})
		tab.Add(Entry{Kind: RedefinitionSite, Key: 0x500, Owner: owner})
	}

	snapshot := tab.Snapshot()

	if n := tab.Reclaim(2); n != 2 {
		t.Errorf("reclaimed: %d", n)
	}
	if len(tab.Owned(2)) != 0 || len(tab.Owned(3)) != 2 {
		t.Error("ownership")
	}
	if len(snapshot) != 6 || snapshot[2].Owner != 2 {
		t.Error("snapshot was modified")
	}
}

func TestKindString(t *testing.T) {
	if s := OverrideGuard.String(); s != "override guard" {
		t.Error(s)
	}
	if s := Kind(99).String(); s != "<invalid assumption kind 99>" {
		t.Error(s)
	}
}

func TestRelativeSite(t *testing.T) {
	b := &target.Buffer{Bytes: make([]byte, 12), Base: 0x10000}
	for i := range b.Bytes {
		b.Bytes[i] = 0xcc
	}
	tgt := x86.NewAMD64()
	tab := new(Table)

	site := newSite(b, 1, 0)
	site.Rel = tgt.EIPBaseForCallOffset(b, 1)
	tab.Add(Entry{Kind: RedefinitionSite, Key: 0x500, Owner: 1, Patch: PatchAddress, Site: site})

	tab.ClassRedefined(0x500, 0x10105)
	if disp := int32(tgt.Load32(b, 1)); disp != 0x100 {
		t.Errorf("displacement %#x", disp)
	}

	// Unreachable addresses leave the displacement intact.
	tab.ClassRedefined(0x500, 0x10105+1<<40)
	if disp := int32(tgt.Load32(b, 1)); disp != 0x100 {
		t.Errorf("displacement %#x", disp)
	}

	tab.ClassUnloaded(0x500)
	if disp := int32(tgt.Load32(b, 1)); disp != -0x10005 {
		t.Errorf("displacement %#x", disp)
	}

	for _, i := range []int{0, 5, 6, 7, 8, 9, 10, 11} {
		if b.Bytes[i] != 0xcc {
			t.Errorf("byte %d outside the displacement: % x", i, b.Bytes)
			break
		}
	}
}
