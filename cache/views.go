// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"encoding/binary"

	"gate.computer/aot/env"
)

var native = binary.LittleEndian

// Live metadata record layout.
const (
	metaStartPC      = 0
	metaEndWarmPC    = 8
	metaStartColdPC  = 16
	metaEndPC        = 24
	metaCodeAlloc    = 32
	metaBodyInfo     = 40
	metaInlinedTable = 48
	metaFlags        = 56
	metaNumSites     = 60

	MetadataHeaderSize = 64
	SiteSize           = 16 // method u64, caller i32, bytecode index i32
)

func MetadataSize(numSites int) int {
	return MetadataHeaderSize + numSites*SiteSize
}

// Metadata is a view of a live method metadata record.
type Metadata []byte

func (m Metadata) word(at int) uint64         { return native.Uint64(m[at:]) }
func (m Metadata) setWord(at int, x uint64)   { native.PutUint64(m[at:], x) }
func (m Metadata) rebase(at int, delta uint64) {
	if x := m.word(at); x != 0 {
		m.setWord(at, x+delta)
	}
}

func (m Metadata) StartPC() uint64       { return m.word(metaStartPC) }
func (m Metadata) EndWarmPC() uint64     { return m.word(metaEndWarmPC) }
func (m Metadata) StartColdPC() uint64   { return m.word(metaStartColdPC) }
func (m Metadata) EndPC() uint64         { return m.word(metaEndPC) }
func (m Metadata) CodeAlloc() uint64     { return m.word(metaCodeAlloc) }
func (m Metadata) BodyInfo() uint64      { return m.word(metaBodyInfo) }
func (m Metadata) InlinedTable() uint64  { return m.word(metaInlinedTable) }
func (m Metadata) Flags() uint32         { return native.Uint32(m[metaFlags:]) }
func (m Metadata) NumSites() int         { return int(native.Uint32(m[metaNumSites:])) }
func (m Metadata) SetStartPC(x uint64)   { m.setWord(metaStartPC, x) }
func (m Metadata) SetEndWarmPC(x uint64) { m.setWord(metaEndWarmPC, x) }
func (m Metadata) SetStartColdPC(x uint64) { m.setWord(metaStartColdPC, x) }
func (m Metadata) SetEndPC(x uint64)        { m.setWord(metaEndPC, x) }
func (m Metadata) SetCodeAlloc(x uint64)    { m.setWord(metaCodeAlloc, x) }
func (m Metadata) SetBodyInfo(x uint64)     { m.setWord(metaBodyInfo, x) }
func (m Metadata) SetInlinedTable(x uint64) { m.setWord(metaInlinedTable, x) }
func (m Metadata) SetFlags(x uint32)        { native.PutUint32(m[metaFlags:], x) }
func (m Metadata) SetNumSites(n int)        { native.PutUint32(m[metaNumSites:], uint32(n)) }

// Rebase the self-referential fields.  Program counters and the code
// allocation move with the code; body info and the inlined call table move
// with the metadata.  Zero fields are left alone.
func (m Metadata) Rebase(codeDelta, dataDelta uint64) {
	for _, at := range []int{metaStartPC, metaEndWarmPC, metaStartColdPC, metaEndPC, metaCodeAlloc} {
		m.rebase(at, codeDelta)
	}
	for _, at := range []int{metaBodyInfo, metaInlinedTable} {
		m.rebase(at, dataDelta)
	}
}

// Site of the inlined call table.
func (m Metadata) Site(i int) (method env.Method, caller, bcIndex int32) {
	at := MetadataHeaderSize + i*SiteSize
	return env.Method(native.Uint64(m[at:])), int32(native.Uint32(m[at+8:])), int32(native.Uint32(m[at+12:]))
}

func (m Metadata) SetSite(i int, method env.Method, caller, bcIndex int32) {
	at := MetadataHeaderSize + i*SiteSize
	native.PutUint64(m[at:], uint64(method))
	native.PutUint32(m[at+8:], uint32(caller))
	native.PutUint32(m[at+12:], uint32(bcIndex))
}

func BodyInfoSize(numFrequencies int) int {
	return env.BodyInfoFrequencies + numFrequencies*4
}

// BodyInfo is a view of a live body info record.
type BodyInfo []byte

func (b BodyInfo) InvocationCount() int32 {
	return int32(native.Uint32(b[env.BodyInfoInvocationCount:]))
}

func (b BodyInfo) Flags() uint32             { return native.Uint32(b[env.BodyInfoFlags:]) }
func (b BodyInfo) RecompilationQueued() bool { return b.Flags()&env.BodyInfoRecompQueued != 0 }
func (b BodyInfo) CatchBlockCounter() uint32 { return native.Uint32(b[env.BodyInfoCatchBlockCounter:]) }

func (b BodyInfo) Frequency(i int) uint32 {
	return native.Uint32(b[env.BodyInfoFrequencies+i*4:])
}
