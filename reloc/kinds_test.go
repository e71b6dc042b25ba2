// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"bytes"
	"testing"

	"gate.computer/aot/env"
	"gate.computer/aot/internal/test/fakevm"
	"gate.computer/aot/record"
	"gate.computer/aot/svm"
	"gate.computer/aot/target"
	"gate.computer/aot/target/arm64"
	"gate.computer/aot/target/power"
	"gate.computer/aot/target/x86"
)

func place(r record.Record, flags record.Flags, offsets ...int32) record.Record {
	h := r.Head()
	h.Flags |= flags
	h.Offsets = offsets
	return r
}

func filled(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestPatchExtents(t *testing.T) {
	const size = 32

	tests := []struct {
		name  string
		tgt   target.Target
		width int
		rec   func(f *fixture, off int32) record.Record
	}{
		{"Address", x86.NewAMD64(), 8, func(f *fixture, off int32) record.Record {
			return helper(7, off)
		}},
		{"Displacement", x86.NewAMD64(), 4, func(f *fixture, off int32) record.Record {
			f.ctx.Helpers[7] = newCodeStart + 0x100
			return place(helper(7), record.FlagEIPRelative, off)
		}},
		{"Call", x86.NewAMD64(), 4, func(f *fixture, off int32) record.Record {
			return place(record.New(record.NativeMethodRelative), 0, off)
		}},
		{"Branch", x86.NewAMD64(), 5, func(f *fixture, off int32) record.Record {
			f.method.Breakpointed = true
			r := record.New(record.Breakpoint).(*record.BreakpointGuard)
			r.InlinedSite = record.NoSite
			return place(r, 0, off)
		}},
		{"Sequence32", power.NewPPC64(), 8, func(f *fixture, off int32) record.Record {
			return place(record.New(record.FixedSequenceAddress), record.Flags(power.Sequence32), off)
		}},
		{"Sequence64", power.NewPPC64(), 20, func(f *fixture, off int32) record.Record {
			return place(record.New(record.FixedSequenceAddress2), record.Flags(power.Sequence64), off)
		}},
		{"Pair", power.NewPPC64(), 4, func(f *fixture, off int32) record.Record {
			r := record.New(record.ConstantPoolOrderedPair).(*record.Pool)
			r.InlinedSite = record.NoSite
			r.ConstantPool = 0x5000
			return place(r, 0, off, off)
		}},
		{"MoveWide", arm64.NewARM64(), 16, func(f *fixture, off int32) record.Record {
			return place(record.New(record.RamMethodSequence), 0, off)
		}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for _, off := range []int{size - 1, size - 4, size - 5, size - test.width} {
				f := newFixture(t, test.tgt, make([]byte, size), newCodeStart)

				var want error
				if off+test.width > size {
					want = ErrCorruptTable
				}

				if err := Apply(f.ctx, test.rec(f, int32(off))); err != want {
					t.Errorf("offset %d: %v", off, err)
				}
			}
		})
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	f := newFixture(t, x86.NewAMD64(), make([]byte, 32), newCodeStart)

	r := place(record.New(record.FixedSequenceAddress), record.Flags(power.Sequence32), 0)
	if err := Apply(f.ctx, r); err != ErrUnsupportedEncoding || !ErrUnsupportedEncoding.Invariant() {
		t.Errorf("error: %v", err)
	}
}

func TestFixedSequenceAddress(t *testing.T) {
	const old = oldCodeStart + 0x40

	for _, k := range []record.Kind{record.FixedSequenceAddress, record.FixedSequenceAddress2} {
		for _, seq := range []uint8{power.Sequence32, power.Sequence64} {
			tgt := power.NewPPC64()
			code := make([]byte, 32)
			f := newFixture(t, tgt, code, newCodeStart)
			tgt.StoreAddressSequence(f.ctx.Code, 4, seq, old)

			if err := Apply(f.ctx, place(record.New(k), record.Flags(seq), 4)); err != nil {
				t.Fatalf("%v %d: %v", k, seq, err)
			}
			if x := tgt.LoadAddressSequence(f.ctx.Code, 4, seq); x != newCodeStart+0x40 {
				t.Errorf("%v %d: %#x", k, seq, x)
			}

			end := 4 + tgt.AddressSequenceSize(seq)
			if !bytes.Equal(code[:4], make([]byte, 4)) || !bytes.Equal(code[end:], make([]byte, len(code)-end)) {
				t.Errorf("%v %d: wrote outside the sequence: % x", k, seq, code)
			}
		}
	}
}

func TestMoveWideSequence(t *testing.T) {
	tgt := arm64.NewARM64()
	code := make([]byte, 16)
	f := newFixture(t, tgt, code, newCodeStart)

	if err := Apply(f.ctx, place(record.New(record.RamMethodSequence), 0, 0)); err != nil {
		t.Fatal(err)
	}
	if x := tgt.LoadAddressSequence(f.ctx.Code, 0, 0); x != uint64(f.method.ID) {
		t.Errorf("method: %#x", x)
	}
}

func TestRelativeUnloadSite(t *testing.T) {
	code := filled(16, 0xcc)
	f := newFixture(t, x86.NewAMD64(), code, newCodeStart)

	other := f.world.AddClass("app/Other", 1, 0)
	f.world.SetEntry(f.method.ConstantPool, 5, fakevm.Entry{Class: other.ID})

	r := record.New(record.ClassObject).(*record.PoolEntry)
	r.InlinedSite = record.NoSite
	r.CPIndex = 5

	if err := Apply(f.ctx, place(r, record.FlagEIPRelative, 1)); err != nil {
		t.Fatal(err)
	}

	rel := int64(newCodeStart + 5)
	if disp := int32(f.ctx.Target.Load32(f.ctx.Code, 1)); int64(disp) != int64(other.ID)-rel {
		t.Errorf("displacement: %#x", disp)
	}

	if list := f.ctx.Assumptions.ClassUnloaded(uint64(other.ID)); len(list) != 1 {
		t.Fatalf("%d unload sites", len(list))
	}
	if disp := int32(f.ctx.Target.Load32(f.ctx.Code, 1)); int64(disp) != -rel {
		t.Errorf("cleared displacement: %#x", disp)
	}
	if code[0] != 0xcc || !bytes.Equal(code[5:], filled(11, 0xcc)) {
		t.Errorf("unload wrote past the displacement: % x", code)
	}
}

func TestHCRSite(t *testing.T) {
	const replacement = 0x123400

	t.Run("Absolute", func(t *testing.T) {
		f := newFixture(t, x86.NewAMD64(), make([]byte, 16), newCodeStart)

		if err := Apply(f.ctx, place(record.New(record.HCR), 0, 8)); err != nil {
			t.Fatal(err)
		}
		if list := f.ctx.Assumptions.ClassRedefined(uint64(f.class.ID), replacement); len(list) != 1 {
			t.Fatalf("%d redefinition sites", len(list))
		}
		if x := f.ctx.Target.Load64(f.ctx.Code, 8); x != replacement {
			t.Errorf("redefined class: %#x", x)
		}
	})

	t.Run("Relative", func(t *testing.T) {
		code := make([]byte, 16)
		f := newFixture(t, x86.NewAMD64(), code, newCodeStart)

		if err := Apply(f.ctx, place(record.New(record.HCR), record.FlagEIPRelative, 1)); err != nil {
			t.Fatal(err)
		}
		f.ctx.Assumptions.ClassRedefined(uint64(f.class.ID), replacement)

		if disp := int32(f.ctx.Target.Load32(f.ctx.Code, 1)); int64(disp) != replacement-(newCodeStart+5) {
			t.Errorf("displacement: %#x", disp)
		}
		if !bytes.Equal(code[5:], make([]byte, 11)) {
			t.Errorf("wrote past the displacement: % x", code)
		}
	})

	t.Run("Sequence", func(t *testing.T) {
		tgt := power.NewPPC64()
		f := newFixture(t, tgt, make([]byte, 32), newCodeStart)

		if err := Apply(f.ctx, place(record.New(record.HCR), record.Flags(power.Sequence64), 4)); err != nil {
			t.Fatal(err)
		}
		f.ctx.Assumptions.ClassRedefined(uint64(f.class.ID), replacement)

		if x := tgt.LoadAddressSequence(f.ctx.Code, 4, power.Sequence64); x != replacement {
			t.Errorf("redefined class: %#x", x)
		}
	})

	t.Run("Outside", func(t *testing.T) {
		f := newFixture(t, x86.NewAMD64(), make([]byte, 16), newCodeStart)

		if err := Apply(f.ctx, place(record.New(record.HCR), 0, 12)); err != ErrCorruptTable {
			t.Errorf("error: %v", err)
		}
		if n := f.ctx.Assumptions.Len(); n != 0 {
			t.Errorf("%d assumptions", n)
		}
	})
}

func TestReleaseTrampolines(t *testing.T) {
	f := newFixture(t, x86.NewAMD64(), make([]byte, 16), newCodeStart)
	f.tramps.Free = 4

	callee := f.world.AddMethod(f.class, "callee()V")
	f.world.SetEntry(f.method.ConstantPool, 6, fakevm.Entry{Static: callee.ID})

	tramp := record.New(record.Trampolines).(*record.PoolEntry)
	tramp.InlinedSite = record.NoSite
	tramp.CPIndex = 6

	pic := record.New(record.PicTrampolines).(*record.PICTrampolines)
	pic.Count = 2

	b := record.NewBuilder(record.Format64LE)
	for _, r := range []record.Record{place(tramp, 0, 0), place(pic, 0, 0), helper(8, 0)} {
		if err := b.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	if err := ApplyRelocations(f.ctx, b.Group()); err != ErrHelperLookup {
		t.Fatalf("error: %v", err)
	}
	if f.tramps.Free != 1 || len(f.tramps.Reserved) != 1 {
		t.Fatalf("reservations: %+v", f.tramps)
	}

	for i := 0; i < 2; i++ {
		f.ctx.ReleaseTrampolines()
		if f.tramps.Free != 4 || len(f.tramps.Reserved) != 0 {
			t.Errorf("release %d: %+v", i, f.tramps)
		}
	}
}

func TestDebugCounterWithoutStore(t *testing.T) {
	code := make([]byte, 16)
	f := newFixture(t, x86.NewAMD64(), code, newCodeStart)
	f.ctx.Env.Store = nil

	r := record.New(record.DebugCounter).(*record.Counter)
	r.InlinedSite = record.NoSite

	if err := Apply(f.ctx, place(r, 0, 8)); err != nil {
		t.Fatal(err)
	}
	if f.ctx.Counters.RecordsSkipped != 1 || f.ctx.Counters.RecordsApplied != 0 {
		t.Errorf("counters: %+v", f.ctx.Counters)
	}
	if !bytes.Equal(code, make([]byte, 16)) {
		t.Error("skipped counter modified code")
	}
}

type applyTest struct {
	name  string
	rec   func(t *testing.T, f *fixture) record.Record
	err   error
	check func(t *testing.T, f *fixture)
}

func runApplyTests(t *testing.T, tests []applyTest) {
	t.Helper()

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code := make([]byte, 64)
			copy(code, nop5)
			f := newFixture(t, x86.NewAMD64(), code, newCodeStart)

			if err := Apply(f.ctx, test.rec(t, f)); err != test.err {
				t.Fatalf("error: %v", err)
			}
			if test.check != nil {
				test.check(t, f)
			}
		})
	}
}

func (f *fixture) word(t *testing.T, at int, want uint64) {
	t.Helper()

	if x := f.ctx.Target.Load64(f.ctx.Code, at); x != want {
		t.Errorf("word at %d: %#x (expected %#x)", at, x, want)
	}
}

func (f *fixture) branched(t *testing.T, dest int) {
	t.Helper()

	b := f.ctx.Code.Bytes
	if b[0] != 0xe9 || int32(f.ctx.Target.Load32(f.ctx.Code, 1)) != int32(dest-5) {
		t.Errorf("guard not patched: % x", b[:5])
	}
}

func (f *fixture) unpatched(t *testing.T) {
	t.Helper()

	if b := f.ctx.Code.Bytes; !bytes.Equal(b[:5], nop5) {
		t.Errorf("guard was patched: % x", b[:5])
	}
}

func (f *fixture) other(t *testing.T) (*fakevm.Class, *fakevm.Method) {
	t.Helper()

	c := f.world.AddClass("app/Other", 1, 0)
	m := f.world.AddMethod(c, "run()V")
	c.VTable[24] = m.ID
	return c, m
}

func classPtr(t *testing.T, f *fixture, c env.Class, k record.Kind) *record.MethodPtr {
	chain := f.putChain(t, c)

	r := &record.MethodPtr{}
	r.Kind = k
	r.InlinedSite = record.NoSite
	r.ClassChain = chain
	r.LoaderChain = chain
	r.VTableOffset = 24
	return r
}

func TestPointerKinds(t *testing.T) {
	runApplyTests(t, []applyTest{
		{
			name: "ClassPointer",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				f.ctx.Helpers[0] = uint64(c.ID)
				return place(&classPtr(t, f, c.ID, record.ClassPointer).ClassPtr, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, f.ctx.Helpers[0])
				if n := f.ctx.Assumptions.Len(); n != 2 {
					t.Errorf("%d assumptions", n)
				}
			},
		},
		{
			name: "MethodPointer",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, m := f.other(t)
				f.ctx.Helpers[0] = uint64(m.ID)
				return place(classPtr(t, f, c.ID, record.MethodPointer), 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, f.ctx.Helpers[0])
				if n := f.ctx.Assumptions.Len(); n != 1 {
					t.Errorf("%d assumptions", n)
				}
			},
		},
		{
			name: "MethodPointerSlot",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				r := classPtr(t, f, c.ID, record.MethodPointer)
				r.VTableOffset = 32
				return place(r, 0, 8)
			},
			err: ErrPointerLookup,
		},
		{
			name: "InlinedMethodPointer",
			rec: func(t *testing.T, f *fixture) record.Record {
				_, m := f.other(t)
				f.ctx.Sites = []Site{{Caller: -1, Method: m.ID}}
				r := record.New(record.InlinedMethodPointer).(*record.SitePtr)
				return place(r, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, uint64(f.ctx.Sites[0].Method))
			},
		},
	})
}

func profiled(t *testing.T, f *fixture, index uint64) record.Record {
	c, _ := f.other(t)
	f.ctx.Sites = []Site{{Caller: -1}}

	chain := f.putChain(t, c.ID)
	r := record.New(record.ProfiledClassGuard).(*record.ProfiledGuard)
	r.ClassChain = chain
	r.LoaderChain = chain
	r.MethodIndex = index
	r.Destination = 32
	return place(r, 0, 0)
}

func TestGuardKinds(t *testing.T) {
	runApplyTests(t, []applyTest{
		{
			name: "ProfiledClassGuard",
			rec: func(t *testing.T, f *fixture) record.Record {
				return profiled(t, f, 0)
			},
			check: func(t *testing.T, f *fixture) {
				f.unpatched(t)
				if s := f.ctx.Sites[0]; s.Unloaded || s.Method == 0 {
					t.Errorf("site: %+v", s)
				}
				if n := f.ctx.Assumptions.Len(); n != 1 {
					t.Errorf("%d assumptions", n)
				}
			},
		},
		{
			name: "ProfiledClassGuardMiss",
			rec: func(t *testing.T, f *fixture) record.Record {
				return profiled(t, f, 5)
			},
			check: func(t *testing.T, f *fixture) {
				f.branched(t, 32)
				if !f.ctx.Sites[0].Unloaded {
					t.Error("site is not unloaded")
				}
			},
		},
		{
			name: "Breakpoint",
			rec: func(t *testing.T, f *fixture) record.Record {
				f.method.Breakpointed = true
				r := record.New(record.Breakpoint).(*record.BreakpointGuard)
				r.InlinedSite = record.NoSite
				r.Destination = 32
				return place(r, 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				f.branched(t, 32)
			},
		},
		{
			name: "BreakpointClear",
			rec: func(t *testing.T, f *fixture) record.Record {
				r := record.New(record.Breakpoint).(*record.BreakpointGuard)
				r.InlinedSite = record.NoSite
				r.Destination = 32
				return place(r, 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				f.unpatched(t)
			},
		},
	})
}

func poolRecord(f *fixture, k record.Kind, index uint64, e fakevm.Entry) *record.PoolEntry {
	f.world.SetEntry(f.method.ConstantPool, uint32(index), e)

	r := record.New(k).(*record.PoolEntry)
	r.InlinedSite = record.NoSite
	r.CPIndex = index
	return r
}

func TestConstantPoolKinds(t *testing.T) {
	runApplyTests(t, []applyTest{
		{
			name: "ClassObject",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				f.ctx.Helpers[0] = uint64(c.ID)
				return place(poolRecord(f, record.ClassObject, 4, fakevm.Entry{Class: c.ID}), 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, f.ctx.Helpers[0])
				if n := f.ctx.Assumptions.Len(); n != 1 {
					t.Errorf("%d assumptions", n)
				}
			},
		},
		{
			name: "ClassObjectUnresolved",
			rec: func(t *testing.T, f *fixture) record.Record {
				return place(poolRecord(f, record.ClassObject, 4, fakevm.Entry{}), 0, 8)
			},
			err: ErrConstantPoolResolution,
		},
		{
			name: "VerifyClassObjectForAlloc",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				c.InstanceSize = 16
				f.world.SetEntry(f.method.ConstantPool, 4, fakevm.Entry{Class: c.ID})

				r := record.New(record.VerifyClassObjectForAlloc).(*record.AllocCheck)
				r.InlinedSite = record.NoSite
				r.CPIndex = 4
				r.AllocationSize = 24
				r.Destination = 40
				return place(r, 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				f.branched(t, 40)
				if f.ctx.Counters.AllocAttempted != 1 || f.ctx.Counters.AllocFailed != 1 {
					t.Errorf("counters: %+v", f.ctx.Counters)
				}
			},
		},
		{
			name: "DataAddress",
			rec: func(t *testing.T, f *fixture) record.Record {
				f.world.SetEntry(f.method.ConstantPool, 9, fakevm.Entry{FieldAddr: 0x7000, Declaring: f.class.ID})

				r := record.New(record.DataAddress).(*record.Data)
				r.InlinedSite = record.NoSite
				r.CPIndex = 9
				r.Offset = 0x10
				return place(r, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, 0x7010)
			},
		},
	})
}

func TestAddressKinds(t *testing.T) {
	runApplyTests(t, []applyTest{
		{
			name: "J2IThunks",
			rec: func(t *testing.T, f *fixture) record.Record {
				_, m := f.other(t)
				f.world.ThunkAddrs[m.Signature] = 0xabc000
				return place(poolRecord(f, record.J2IThunks, 6, fakevm.Entry{Static: m.ID}), 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, 0xabc000)
			},
		},
		{
			name: "ThunksFailure",
			rec: func(t *testing.T, f *fixture) record.Record {
				_, m := f.other(t)
				f.world.ThunkFail = true
				return place(poolRecord(f, record.Thunks, 6, fakevm.Entry{Static: m.ID}), 0, 8)
			},
			err: ErrThunk,
		},
		{
			name: "Trampolines",
			rec: func(t *testing.T, f *fixture) record.Record {
				_, m := f.other(t)
				return place(poolRecord(f, record.Trampolines, 6, fakevm.Entry{Static: m.ID}), 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				if f.tramps.Free != 0 || len(f.tramps.Reserved) != 1 {
					t.Errorf("reservations: %+v", f.tramps)
				}
				f.unpatched(t)
			},
		},
		{
			name: "GlobalValue",
			rec: func(t *testing.T, f *fixture) record.Record {
				f.ctx.Globals = new(GlobalValues)
				if err := f.ctx.Globals.Init(map[GlobalKey]uint64{HeapBase: 0x5550000}); err != nil {
					t.Fatal(err)
				}
				r := record.New(record.GlobalValue).(*record.Global)
				r.Key = uint32(HeapBase)
				return place(r, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, 0x5550000)
			},
		},
		{
			name: "GlobalValueMissing",
			rec: func(t *testing.T, f *fixture) record.Record {
				r := record.New(record.GlobalValue).(*record.Global)
				r.Key = uint32(HeapTop)
				return place(r, 0, 8)
			},
			err: ErrGlobalValueLookup,
		},
		{
			name: "MethodCallAddress",
			rec: func(t *testing.T, f *fixture) record.Record {
				r := record.New(record.MethodCallAddress).(*record.MethodCall)
				r.Address = oldCodeStart + 0x30
				return place(r, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, newCodeStart+0x30)
			},
		},
	})
}

func withSymbols(f *fixture) {
	f.ctx.Env.Symbols = svm.New(f.ctx.Env, f.ctx.Chains, f.method.ID)
}

func TestMetaKinds(t *testing.T) {
	runApplyTests(t, []applyTest{
		{
			name: "DebugCounter",
			rec: func(t *testing.T, f *fixture) record.Record {
				offset, err := f.store.Put([]byte("calls"))
				if err != nil {
					t.Fatal(err)
				}
				r := record.New(record.DebugCounter).(*record.Counter)
				r.InlinedSite = record.NoSite
				r.NameOffset = offset
				r.Delta = 1
				return place(r, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, f.world.Counters["calls"])
			},
		},
		{
			name: "DebugCounterName",
			rec: func(t *testing.T, f *fixture) record.Record {
				r := record.New(record.DebugCounter).(*record.Counter)
				r.InlinedSite = record.NoSite
				r.NameOffset = 0x10000
				return place(r, 0, 8)
			},
			err: ErrStoreLookup,
		},
		{
			name: "CheckMethodEnter",
			rec: func(t *testing.T, f *fixture) record.Record {
				f.method.TraceEnter = true
				r := record.New(record.CheckMethodEnter).(*record.Destination)
				r.Destination = 48
				return place(r, 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				f.branched(t, 48)
			},
		},
		{
			name: "CheckMethodExit",
			rec: func(t *testing.T, f *fixture) record.Record {
				f.method.TraceEnter = true
				r := record.New(record.CheckMethodExit).(*record.Destination)
				r.Destination = 48
				return place(r, 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				f.unpatched(t)
			},
		},
		{
			name: "SymbolFromManager",
			rec: func(t *testing.T, f *fixture) record.Record {
				withSymbols(f)
				r := record.New(record.SymbolFromManager).(*record.Symbol)
				r.SymbolID = svm.RootClassID
				r.SymbolType = uint16(env.SymbolClass)
				return place(r, 0, 8)
			},
			check: func(t *testing.T, f *fixture) {
				f.word(t, 8, uint64(f.class.ID))
				if n := f.ctx.Assumptions.Len(); n != 1 {
					t.Errorf("%d assumptions", n)
				}
			},
		},
		{
			name: "SymbolFromManagerUnbound",
			rec: func(t *testing.T, f *fixture) record.Record {
				withSymbols(f)
				r := record.New(record.SymbolFromManager).(*record.Symbol)
				r.SymbolID = 99
				return place(r, 0, 8)
			},
			err: ErrSymbolFromManager,
		},
		{
			name: "PicTrampolines",
			rec: func(t *testing.T, f *fixture) record.Record {
				r := record.New(record.PicTrampolines).(*record.PICTrampolines)
				r.Count = 1
				return place(r, 0, 0)
			},
			check: func(t *testing.T, f *fixture) {
				if f.tramps.Free != 0 {
					t.Errorf("reservations: %+v", f.tramps)
				}
			},
		},
	})
}

func classFromCP(f *fixture, index uint32) record.Record {
	withSymbols(f)

	r := record.New(record.ValidateClassFromCP).(*record.ClassFromCP)
	r.ClassID = 3
	r.BeholderID = svm.RootClassID
	r.CPIndex = index
	return r
}

func TestValidationKinds(t *testing.T) {
	runApplyTests(t, []applyTest{
		{
			name: "ValidateClassFromCP",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				f.world.SetEntry(f.method.ConstantPool, 7, fakevm.Entry{Class: c.ID})
				f.ctx.Helpers[0] = uint64(c.ID)
				return classFromCP(f, 7)
			},
			check: func(t *testing.T, f *fixture) {
				if x, found := f.ctx.Env.Symbols.SymbolFromID(3, env.SymbolClass); !found || x != f.ctx.Helpers[0] {
					t.Errorf("bound symbol: %#x %v", x, found)
				}
				f.unpatched(t)
			},
		},
		{
			name: "ValidateClassFromCPUnresolved",
			rec: func(t *testing.T, f *fixture) record.Record {
				return classFromCP(f, 8)
			},
			err: ErrClassFromCPValidation,
		},
		{
			name: "ValidateArbitraryClass",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				chain := f.putChain(t, c.ID)
				r := record.New(record.ValidateArbitraryClass).(*record.ArbitraryClass)
				r.LoaderChain = chain
				r.ClassChain = chain
				return r
			},
		},
		{
			name: "ValidateInstanceField",
			rec: func(t *testing.T, f *fixture) record.Record {
				c, _ := f.other(t)
				f.world.SetEntry(f.method.ConstantPool, 2, fakevm.Entry{FieldOffset: 16, Declaring: c.ID})

				v := record.New(record.ValidateInstanceField).(*record.ValidateClassEntry)
				v.InlinedSite = record.NoSite
				v.CPIndex = 2
				v.ClassChain = f.putChain(t, c.ID)
				return v
			},
			check: func(t *testing.T, f *fixture) {
				if f.ctx.Counters.ValidationsAttempted != 1 || f.ctx.Counters.ValidationsFailed != 0 {
					t.Errorf("counters: %+v", f.ctx.Counters)
				}
			},
		},
		{
			name: "ValidateInstanceFieldUnresolved",
			rec: func(t *testing.T, f *fixture) record.Record {
				v := record.New(record.ValidateInstanceField).(*record.ValidateClassEntry)
				v.InlinedSite = record.NoSite
				v.CPIndex = 2
				return v
			},
			err: ErrInstanceFieldValidation,
		},
	})
}
