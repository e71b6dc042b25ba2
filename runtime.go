// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aot

import (
	"context"

	"gate.computer/aot/cache"
	"gate.computer/aot/env"
	"gate.computer/aot/object"
	"gate.computer/aot/record"
	"gate.computer/aot/reloc"
	"gate.computer/aot/svm"
	"gate.computer/aot/target"
	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/xerrors"
)

// Loaded method.  Owner identifies the assumptions which it registered.
type Loaded struct {
	Method   env.Method
	Code     env.Segment
	Data     env.Segment
	Entry    uint64
	Owner    uint64
	Metadata cache.Metadata
}

// Runtime performs one load at a time.
type Runtime struct {
	p        *Process
	Status   Status
	Counters reloc.Counters
}

func (p *Process) NewRuntime() *Runtime {
	return &Runtime{p: p}
}

// Load a method from the store.  A validation failure marks the entry stale
// if the store supports it.
func (rt *Runtime) Load(ctx context.Context, key string, method env.Method) (*Loaded, error) {
	p := rt.p

	blob, err := p.env.Store.Load(key)
	if err != nil {
		if !xerrors.Is(err, env.ErrNotFound) {
			p.log.WithError(err).WithField("key", key).Warn("store")
		}
		return nil, rt.finish(StatusNotFound, err, nil)
	}

	h, err := object.Unmarshal(p.target.Format(), blob)
	if err != nil {
		return nil, rt.finish(StatusInvalidHeader, err, nil)
	}

	l, err := rt.PrepareRelocate(ctx, &h, method)
	if rt.Status == StatusValidationFailure {
		if m, ok := p.env.Store.(env.StaleMarker); ok {
			if err := m.MarkStale(key); err != nil {
				p.log.WithError(err).WithField("key", key).Warn("mark stale")
			}
		}
	}
	return l, err
}

type layout struct {
	size     int
	bodyInfo int // Offset within the data record, or zero.
}

func dataLayout(m *object.Metadata) (l layout, err error) {
	l.size = cache.MetadataSize(len(m.Sites))

	if m.InlinedTable != 0 && m.InlinedTable != m.DataBase+cache.MetadataHeaderSize {
		err = errors.New("inlined call table is not inside the metadata record")
		return
	}

	if m.Flags&object.FlagHasBodyInfo != 0 {
		offset := m.BodyInfo - m.DataBase
		if m.BodyInfo < m.DataBase || offset < uint64(l.size) || offset%8 != 0 || offset > 1<<20 {
			err = errors.Errorf("body info offset %#x is invalid", offset)
			return
		}
		l.bodyInfo = int(offset)
		l.size = l.bodyInfo + cache.BodyInfoSize(int(m.NumFrequencies))
	}
	return
}

// PrepareRelocate copies the code and metadata of a deserialized method into
// the caches and applies its relocation table.  On failure everything which
// was reserved is released.
func (rt *Runtime) PrepareRelocate(ctx context.Context, h *object.MethodHeader, method env.Method) (*Loaded, error) {
	p := rt.p
	rt.Counters = reloc.Counters{}

	meta := h.Meta
	if meta == nil {
		meta = new(object.Metadata)
	}

	l := p.log.WithFields(log.Fields{
		"method": method,
		"code":   humanize.Bytes(uint64(len(h.Code))),
		"reloc":  humanize.Bytes(uint64(len(h.Reloc))),
	})

	lay, err := dataLayout(meta)
	if err != nil {
		return nil, rt.finish(StatusInvalidHeader, err, l)
	}

	res, status, err := rt.reserveCode(ctx, h.Code)
	if err != nil {
		return nil, rt.finish(status, err, l)
	}

	codeSeg := res.segment
	codeAddr := p.code.Addr(codeSeg)

	dataSeg, ok := p.data.AllocateRecord(lay.size, env.RecordMetadata)
	if !ok {
		rt.releaseCode(res.id)
		return nil, rt.finish(StatusDataCacheFull, nil, l)
	}
	dataAddr := p.data.Addr(dataSeg)

	m := cache.Metadata(p.data.Bytes(dataSeg))
	initMetadata(m, meta, lay)
	relocateMetadata(m, codeAddr-meta.StartPC, dataAddr-meta.DataBase)

	e := p.env
	ctxReloc := &reloc.Context{
		Target:       p.target,
		Code:         &target.Buffer{Bytes: p.code.Bytes(codeSeg), Base: codeAddr},
		OldCodeStart: meta.StartPC,
		Method:       method,
		ConstantPool: e.VM.ConstantPoolOfMethod(method),
		BodyInfo:     m.BodyInfo(),
		Owner:        dataAddr,
		Sites:        make([]reloc.Site, len(meta.Sites)),
		Env:          &e,
		Helpers:      p.helpers,
		Globals:      &p.globals,
		Assumptions:  &p.table,
		Chains:       p.chains,
		Options:      p.options,
		Log:          l,
	}
	for i, s := range meta.Sites {
		ctxReloc.Sites[i] = reloc.Site{Caller: s.Caller, BCIndex: s.BCIndex}
	}
	if meta.Flags&object.FlagSymbolValidation != 0 {
		e.Symbols = svm.New(&e, p.chains, method)
	}

	err = reloc.ApplyRelocations(ctxReloc, record.Group{Format: p.target.Format(), Table: h.Reloc})
	rt.Counters = ctxReloc.Counters

	if err != nil {
		if n := p.table.Reclaim(dataAddr); n > 0 {
			l.WithField("assumptions", n).Debug("reclaimed")
		}
		p.data.FreeRecord(dataSeg)
		rt.releaseCode(res.id)
		ctxReloc.ReleaseTrampolines()

		status := relocationStatus(err)
		if code, ok := err.(reloc.Code); ok && code.Invariant() {
			l.WithError(err).Error("relocation invariant violated")
		}
		return nil, rt.finish(status, err, l)
	}

	for i, s := range ctxReloc.Sites {
		inlined := s.Method
		if s.Unloaded {
			inlined = 0
		}
		m.SetSite(i, inlined, s.Caller, s.BCIndex)
	}

	rt.commitCode(res.id)

	rt.finish(StatusNoError, nil, l)

	return &Loaded{
		Method:   method,
		Code:     codeSeg,
		Data:     dataSeg,
		Entry:    codeAddr,
		Owner:    dataAddr,
		Metadata: m,
	}, nil
}

type codeReservation struct {
	id      env.Reservation
	segment env.Segment
}

// reserveCode holds the allocator lock only while reserving and copying.
func (rt *Runtime) reserveCode(ctx context.Context, code []byte) (res codeReservation, status Status, err error) {
	p := rt.p

	if err = ctx.Err(); err != nil {
		status = StatusReservationInterrupted
		return
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if err = ctx.Err(); err != nil {
		status = StatusReservationInterrupted
		return
	}

	id, ok := p.code.Reserve(len(code))
	if !ok {
		status = StatusCodeCacheFull
		err = errors.New("code cache reservation")
		return
	}

	seg, ok := p.code.Allocate(id, len(code))
	if !ok {
		p.code.Unreserve(id)
		status = StatusCodeCacheFull
		err = errors.New("code cache allocation")
		return
	}

	copy(p.code.Bytes(seg), code)
	res = codeReservation{id, seg}
	return
}

func (rt *Runtime) releaseCode(id env.Reservation) {
	rt.p.lock.Lock()
	defer rt.p.lock.Unlock()
	rt.p.code.Unreserve(id)
}

// commitCode keeps the reserved memory allocated.
func (rt *Runtime) commitCode(id env.Reservation) {
	c, ok := rt.p.code.(interface{ Commit(env.Reservation) })
	if !ok {
		return
	}

	rt.p.lock.Lock()
	defer rt.p.lock.Unlock()
	c.Commit(id)
}

func (rt *Runtime) finish(s Status, err error, l log.Interface) error {
	rt.Status = s
	rt.p.account(s, &rt.Counters)

	if l == nil {
		l = rt.p.log
	}

	if s == StatusNoError {
		l.WithField("records", rt.Counters.RecordsApplied).Debug("loaded")
		return nil
	}

	l.WithError(err).WithField("status", s.String()).Info("load failed")
	return &Error{s, err}
}

func initMetadata(m cache.Metadata, meta *object.Metadata, lay layout) {
	m.SetStartPC(meta.StartPC)
	m.SetEndWarmPC(meta.EndWarmPC)
	m.SetStartColdPC(meta.StartColdPC)
	m.SetEndPC(meta.EndPC)
	m.SetCodeAlloc(meta.StartPC)
	if lay.bodyInfo != 0 {
		m.SetBodyInfo(meta.BodyInfo)
	}
	if len(meta.Sites) > 0 {
		m.SetInlinedTable(meta.DataBase + cache.MetadataHeaderSize)
	}
	m.SetFlags(meta.Flags)
	m.SetNumSites(len(meta.Sites))
}

// relocateMetadata corrects the fields which refer to the method itself.
func relocateMetadata(m cache.Metadata, codeDelta, dataDelta uint64) {
	m.Rebase(codeDelta, dataDelta)
}
