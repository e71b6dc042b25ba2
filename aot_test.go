// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aot

import (
	"context"
	"sync"
	"testing"

	"gate.computer/aot/cache"
	"gate.computer/aot/classchain"
	"gate.computer/aot/env"
	"gate.computer/aot/internal/test/fakevm"
	"gate.computer/aot/object"
	"gate.computer/aot/record"
	"gate.computer/aot/reloc"
	"gate.computer/aot/store"
	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"golang.org/x/xerrors"
)

const (
	compiledCode = 0x1000
	compiledData = 0x8000
	helperAddr   = 0xDEAD0000
)

type testProcess struct {
	*Process
	world  *fakevm.World
	store  *store.Memory
	code   *cache.CodeCache
	data   *cache.DataCache
	logs   *memory.Handler
	class  *fakevm.Class
	method *fakevm.Method
}

func newTestProcess(t *testing.T, codeSize int) *testProcess {
	t.Helper()

	tp := &testProcess{
		world: fakevm.New(),
		store: store.NewMemory(),
		logs:  memory.New(),
	}
	tp.class = tp.world.AddClass("app/Main", 1, 0)
	tp.method = tp.world.AddMethod(tp.class, "main()V")

	var err error

	if tp.code, err = cache.NewCodeCache(codeSize, 4); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tp.code.Close() })

	if tp.data, err = cache.NewDataCache(4096); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tp.data.Close() })

	e := tp.world.Environment(tp.store, nil)

	tp.Process, err = NewProcess(Config{
		Arch:    "amd64",
		Env:     *e,
		Code:    tp.code,
		Data:    tp.data,
		Helpers: reloc.Helpers{7: helperAddr},
		Options: DefaultOptions(),
		Log:     &log.Logger{Handler: tp.logs, Level: log.DebugLevel},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tp
}

func (tp *testProcess) put(t *testing.T, key string, h *object.MethodHeader) {
	t.Helper()

	blob, err := h.Marshal(tp.Target().Format())
	if err != nil {
		t.Fatal(err)
	}
	if err := tp.store.Store(key, blob); err != nil {
		t.Fatal(err)
	}
}

func table(t *testing.T, records ...record.Record) []byte {
	t.Helper()

	b := record.NewBuilder(record.Format64LE)
	for _, r := range records {
		if err := b.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return b.Bytes()
}

func helperRecord(at int32) record.Record {
	r := record.New(record.HelperAddress).(*record.Helper)
	r.HelperID = 7
	r.Offsets = []int32{at}
	return r
}

func methodHeader(relocs []byte) *object.MethodHeader {
	bodyInfo := uint64(cache.MetadataSize(2))

	return &object.MethodHeader{
		Code:  make([]byte, 32),
		Reloc: relocs,
		Meta: &object.Metadata{
			StartPC:        compiledCode,
			EndWarmPC:      compiledCode + 24,
			StartColdPC:    compiledCode + 24,
			EndPC:          compiledCode + 32,
			DataBase:       compiledData,
			BodyInfo:       compiledData + bodyInfo,
			InlinedTable:   compiledData + cache.MetadataHeaderSize,
			Flags:          object.FlagHasBodyInfo,
			NumFrequencies: 3,
			Sites:          []object.Site{{Caller: -1, BCIndex: 4}, {Caller: 0, BCIndex: 9}},
		},
	}
}

func statusOf(t *testing.T, err error) Status {
	t.Helper()

	var e *Error
	if !xerrors.As(err, &e) {
		t.Fatalf("error type: %#v", err)
	}
	return e.Status
}

func TestLoad(t *testing.T) {
	tp := newTestProcess(t, 4096)
	tp.put(t, "main", methodHeader(table(t, helperRecord(8))))

	rt := tp.NewRuntime()

	l, err := rt.Load(context.Background(), "main", tp.method.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rt.Status != StatusNoError {
		t.Errorf("status: %v", rt.Status)
	}

	code := tp.code.Bytes(l.Code)
	if x := tp.Target().Format().Word(code[8:]); x != helperAddr {
		t.Errorf("helper address: %#x", x)
	}

	m := l.Metadata
	if m.StartPC() != l.Entry || m.CodeAlloc() != l.Entry {
		t.Errorf("start pc: %#x", m.StartPC())
	}
	if m.EndPC() != l.Entry+32 || m.StartColdPC() != l.Entry+24 {
		t.Errorf("end pc: %#x", m.EndPC())
	}
	if m.InlinedTable() != l.Owner+cache.MetadataHeaderSize {
		t.Errorf("inlined table: %#x", m.InlinedTable())
	}
	if m.BodyInfo() != l.Owner+uint64(cache.MetadataSize(2)) {
		t.Errorf("body info: %#x", m.BodyInfo())
	}
	if n := m.NumSites(); n != 2 {
		t.Errorf("sites: %d", n)
	}
	if _, caller, bci := m.Site(1); caller != 0 || bci != 9 {
		t.Errorf("site: %d %d", caller, bci)
	}

	if tp.Loads(StatusNoError) != 1 || tp.Counters().RecordsApplied != 1 {
		t.Errorf("accounting: %d %+v", tp.Loads(StatusNoError), tp.Counters())
	}
}

func TestLoadValidationFailure(t *testing.T) {
	tp := newTestProcess(t, 4096)

	other := tp.world.AddClass("app/Other", 1, 0)
	tp.world.SetEntry(tp.method.ConstantPool, 5, fakevm.Entry{Class: other.ID})

	chain, _ := tp.world.ClassChain(other.ID)
	offset, err := classchain.Put(tp.store, chain)
	if err != nil {
		t.Fatal(err)
	}
	other.Shape++

	validate := record.New(record.ValidateClass).(*record.ValidateClassEntry)
	validate.InlinedSite = record.NoSite
	validate.CPIndex = 5
	validate.ClassChain = offset

	tp.put(t, "main", methodHeader(table(t, validate, helperRecord(8))))

	rt := tp.NewRuntime()

	_, err = rt.Load(context.Background(), "main", tp.method.ID)
	if s := statusOf(t, err); s != StatusValidationFailure || s.Retryable() {
		t.Errorf("status: %v", s)
	}
	if !tp.store.IsStale("main") {
		t.Error("entry was not marked stale")
	}
	if tp.code.Used() != 0 {
		t.Errorf("code cache was not released: %d", tp.code.Used())
	}
	tp.data.Walk(func(s env.Segment, kind env.RecordKind) {
		t.Errorf("data record was not released: %v", kind)
	})
	if n := tp.Assumptions().Len(); n != 0 {
		t.Errorf("assumptions: %d", n)
	}
	if rt.Counters.ValidationsFailed != 1 {
		t.Errorf("counters: %+v", rt.Counters)
	}
}

func TestLoadNotFound(t *testing.T) {
	tp := newTestProcess(t, 4096)

	_, err := tp.NewRuntime().Load(context.Background(), "missing", tp.method.ID)
	if s := statusOf(t, err); s != StatusNotFound {
		t.Errorf("status: %v", s)
	}
}

func TestLoadInvalidHeader(t *testing.T) {
	tp := newTestProcess(t, 4096)
	tp.store.Store("garbage", []byte{1, 2, 3})

	_, err := tp.NewRuntime().Load(context.Background(), "garbage", tp.method.ID)
	if s := statusOf(t, err); s != StatusInvalidHeader {
		t.Errorf("status: %v", s)
	}

	h := methodHeader(nil)
	h.Meta.InlinedTable = compiledData + 8
	tp.put(t, "misplaced", h)

	_, err = tp.NewRuntime().Load(context.Background(), "misplaced", tp.method.ID)
	if s := statusOf(t, err); s != StatusInvalidHeader {
		t.Errorf("status: %v", s)
	}
}

func TestLoadCodeCacheFull(t *testing.T) {
	tp := newTestProcess(t, 16)
	tp.put(t, "main", methodHeader(nil))

	_, err := tp.NewRuntime().Load(context.Background(), "main", tp.method.ID)
	if s := statusOf(t, err); s != StatusCodeCacheFull || !s.Retryable() {
		t.Errorf("status: %v", s)
	}
	if tp.store.IsStale("main") {
		t.Error("retryable failure marked the entry stale")
	}
}

func TestLoadInterrupted(t *testing.T) {
	tp := newTestProcess(t, 4096)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tp.NewRuntime().PrepareRelocate(ctx, methodHeader(nil), tp.method.ID)
	if s := statusOf(t, err); s != StatusReservationInterrupted {
		t.Errorf("status: %v", s)
	}
	if !xerrors.Is(err, context.Canceled) {
		t.Errorf("cause: %v", err)
	}
	if tp.code.Used() != 0 {
		t.Error("code was reserved")
	}
}

func TestLoadTrampolinesFull(t *testing.T) {
	tp := newTestProcess(t, 4096)

	r := record.New(record.PicTrampolines).(*record.PICTrampolines)
	r.Count = 5
	r.Offsets = []int32{0}
	tp.put(t, "main", methodHeader(table(t, r)))

	_, err := tp.NewRuntime().Load(context.Background(), "main", tp.method.ID)
	if s := statusOf(t, err); s != StatusRetryableFailure {
		t.Errorf("status: %v", s)
	}
	if tp.code.FreeTrampolines() != 4 {
		t.Error("trampolines were consumed")
	}
}

func TestLoadReleasesTrampolines(t *testing.T) {
	tp := newTestProcess(t, 4096)

	pic := record.New(record.PicTrampolines).(*record.PICTrampolines)
	pic.Count = 3
	pic.Offsets = []int32{0}

	unknown := helperRecord(8).(*record.Helper)
	unknown.HelperID = 8

	tp.put(t, "main", methodHeader(table(t, pic, unknown)))

	for i := 0; i < 3; i++ {
		_, err := tp.NewRuntime().Load(context.Background(), "main", tp.method.ID)
		if s := statusOf(t, err); s != StatusRelocationFailure {
			t.Fatalf("status: %v", s)
		}
		if n := tp.code.FreeTrampolines(); n != 4 {
			t.Fatalf("free trampolines after failed load %d: %d", i, n)
		}
	}
}

func TestConcurrentLoads(t *testing.T) {
	const (
		goroutines = 8
		loads      = 4
		codeSize   = 16
	)

	tp := newTestProcess(t, goroutines*loads*codeSize)
	relocs := table(t, helperRecord(8))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		loaded []*Loaded
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < loads; j++ {
				h := &object.MethodHeader{Code: make([]byte, codeSize), Reloc: relocs}
				l, err := tp.NewRuntime().PrepareRelocate(context.Background(), h, tp.method.ID)
				if err != nil {
					t.Error(err)
					return
				}

				mu.Lock()
				loaded = append(loaded, l)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(loaded) != goroutines*loads {
		t.Fatalf("loaded: %d", len(loaded))
	}
	if tp.code.Used() != goroutines*loads*codeSize {
		t.Errorf("used: %d", tp.code.Used())
	}

	seen := make(map[int]bool)
	for _, l := range loaded {
		if seen[l.Code.Offset] {
			t.Errorf("code offset %d loaded twice", l.Code.Offset)
		}
		seen[l.Code.Offset] = true

		if x := tp.Target().Format().Word(tp.code.Bytes(l.Code)[8:]); x != helperAddr {
			t.Errorf("helper address: %#x", x)
		}
	}
	if tp.Loads(StatusNoError) != goroutines*loads {
		t.Errorf("accounting: %d", tp.Loads(StatusNoError))
	}
}

func TestStoreCache(t *testing.T) {
	tp := newTestProcess(t, 4096)
	tp.put(t, "main", methodHeader(nil))

	if _, err := tp.NewRuntime().Load(context.Background(), "main", tp.method.ID); err != nil {
		t.Fatal(err)
	}

	// The backend is modified behind the cache.
	tp.store.Store("main", []byte{1, 2, 3})

	if _, err := tp.NewRuntime().Load(context.Background(), "main", tp.method.ID); err != nil {
		t.Errorf("cached entry was not used: %v", err)
	}
}

func TestUnloaded(t *testing.T) {
	tp := newTestProcess(t, 4096)

	r := record.New(record.ClassUnloadAssumption).(*record.Blank)
	r.Offsets = []int32{0}
	tp.put(t, "main", methodHeader(table(t, r)))

	l, err := tp.NewRuntime().Load(context.Background(), "main", tp.method.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n := tp.Assumptions().Len(); n != 1 {
		t.Fatalf("assumptions: %d", n)
	}
	if n := tp.Unloaded(l); n != 1 {
		t.Errorf("reclaimed: %d", n)
	}
	if tp.Assumptions().Len() != 0 {
		t.Error("assumptions remain")
	}
}

func TestRelocateMetadata(t *testing.T) {
	m := make(cache.Metadata, cache.MetadataSize(0))
	m.SetStartPC(0x1000)
	m.SetEndPC(0x1100)
	m.SetBodyInfo(0x8040)

	relocateMetadata(m, 0x3000, 0x100)

	if m.StartPC() != 0x4000 || m.EndPC() != 0x4100 {
		t.Errorf("code fields: %#x %#x", m.StartPC(), m.EndPC())
	}
	if m.BodyInfo() != 0x8140 {
		t.Errorf("body info: %#x", m.BodyInfo())
	}
	if m.StartColdPC() != 0 || m.InlinedTable() != 0 {
		t.Error("zero fields were rebased")
	}
}

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions([]byte(`
disabled_inline_sites = ["java/lang/String.*"]
disabled_validations = ["ValidateClassChain", "ValidateInstanceField"]
log_level = "debug"
`))
	if err != nil {
		t.Fatal(err)
	}
	if o.ChainCacheSize != classchain.DefaultCacheSize {
		t.Errorf("default cache size: %d", o.ChainCacheSize)
	}

	ro, err := o.compile()
	if err != nil {
		t.Fatal(err)
	}
	if !ro.DisabledInlineSites.Match("java/lang/String.hashCode()I") {
		t.Error("inline site pattern")
	}
	if !ro.DisabledValidations[record.ValidateClassChain] || !ro.DisabledValidations[record.ValidateInstanceField] {
		t.Error("disabled validation")
	}
	if o.StoreCacheSize != DefaultStoreCacheSize {
		t.Errorf("default store cache size: %d", o.StoreCacheSize)
	}

	for _, s := range []string{
		`disabled_validations = ["HelperAddress"]`,
		`disabled_inline_sites = ["[unterminated"]`,
		`log_level = "loud"`,
		`chain_cache_size = "many"`,
		`store_cache_size = -1`,
	} {
		if _, err := ParseOptions([]byte(s)); err == nil {
			t.Errorf("accepted: %s", s)
		}
	}
}
