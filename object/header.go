// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object implements the serialized form of a compiled method.
package object

import (
	"io"
	"math"

	"gate.computer/aot/buffer"
	"gate.computer/aot/internal"
	"gate.computer/aot/record"
	"import.name/pan"
)

// Metadata flags.
const (
	FlagSymbolValidation uint32 = 1 << iota // Validation records refer to symbol ids.
	FlagHasBodyInfo
)

// Site is an entry of the inlined call table.
type Site struct {
	Caller  int32 // Index of the calling site, or -1.
	BCIndex int32
}

// Metadata describes the method as it was when compiled.  Addresses are
// compile-time addresses; they are rebased at load time.
type Metadata struct {
	StartPC        uint64
	EndWarmPC      uint64
	StartColdPC    uint64 // Zero if the method has no cold part.
	EndPC          uint64
	DataBase       uint64 // Address of the metadata record.
	BodyInfo       uint64 // Zero if there is none.
	InlinedTable   uint64
	Flags          uint32
	NumFrequencies uint32
	Sites          []Site
}

// MethodHeader pairs compiled code with its relocation table.  Meta is nil
// if the serialized form has no metadata trailer.
type MethodHeader struct {
	Code  []byte
	Reloc []byte
	Meta  *Metadata
}

type corruptError string

func (s corruptError) Error() string       { return string(s) }
func (s corruptError) PublicError() string { return string(s) }
func (s corruptError) Corrupt() bool       { return true }

var (
	ErrSizeMismatch = corruptError("method header size does not match its blob")
	ErrTrailing     = corruptError("method header has trailing data")
)

const maxBlobSize = math.MaxUint32

// Marshal the header as [word allocSize][u32 codeSize][code][u32 relocSize]
// [reloc][metadata].
func (h *MethodHeader) Marshal(f record.Format) (b []byte, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := recover(); x != nil {
				err = internal.Error(x)
				b = nil
			}
		}()
	}

	buf := buffer.MakeDynamicHint(nil, f.ByteOrder, f.WordSize+8+len(h.Code)+len(h.Reloc))
	buf.PutWord(f.WordSize, 0)
	putBlob(&buf, h.Code)
	putBlob(&buf, h.Reloc)

	if m := h.Meta; m != nil {
		for _, x := range []uint64{m.StartPC, m.EndWarmPC, m.StartColdPC, m.EndPC, m.DataBase, m.BodyInfo, m.InlinedTable} {
			buf.PutWord(f.WordSize, x)
		}
		buf.PutUint32(m.Flags)
		buf.PutUint32(m.NumFrequencies)
		buf.PutUint32(uint32(len(m.Sites)))
		for _, s := range m.Sites {
			buf.PutUint32(uint32(s.Caller))
			buf.PutUint32(uint32(s.BCIndex))
		}
	}

	b = buf.Bytes()
	f.PutWord(b, uint64(len(b)))
	return
}

func putBlob(buf *buffer.Dynamic, blob []byte) {
	if uint64(len(blob)) > maxBlobSize {
		pan.Panic(buffer.ErrSizeLimit)
	}
	buf.PutUint32(uint32(len(blob)))
	buf.PutBytes(blob)
}

// Unmarshal a header.  The returned blobs are copies.
func Unmarshal(f record.Format, b []byte) (h MethodHeader, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := recover(); x != nil {
				err = internal.Error(x)
				h = MethodHeader{}
			}
		}()
	}

	h = unmarshal(f, &reader{f, b})
	return
}

func unmarshal(f record.Format, r *reader) (h MethodHeader) {
	allocSize := r.word()
	if allocSize != uint64(len(r.b)+f.WordSize) {
		pan.Panic(ErrSizeMismatch)
	}

	h.Code = r.blob()
	h.Reloc = r.blob()

	if len(r.b) == 0 {
		return
	}

	m := new(Metadata)
	for _, x := range []*uint64{&m.StartPC, &m.EndWarmPC, &m.StartColdPC, &m.EndPC, &m.DataBase, &m.BodyInfo, &m.InlinedTable} {
		*x = r.word()
	}
	m.Flags = r.uint32()
	m.NumFrequencies = r.uint32()

	n := r.uint32()
	if uint64(n)*8 > uint64(len(r.b)) {
		pan.Panic(io.ErrUnexpectedEOF)
	}
	m.Sites = make([]Site, n)
	for i := range m.Sites {
		m.Sites[i].Caller = int32(r.uint32())
		m.Sites[i].BCIndex = int32(r.uint32())
	}

	if len(r.b) != 0 {
		pan.Panic(ErrTrailing)
	}

	h.Meta = m
	return
}

type reader struct {
	f record.Format
	b []byte
}

func (r *reader) take(n int) []byte {
	if n > len(r.b) {
		pan.Panic(io.ErrUnexpectedEOF)
	}
	b := r.b[:n]
	r.b = r.b[n:]
	return b
}

func (r *reader) word() uint64   { return r.f.Word(r.take(r.f.WordSize)) }
func (r *reader) uint32() uint32 { return r.f.ByteOrder.Uint32(r.take(4)) }

func (r *reader) blob() []byte {
	n := r.uint32()
	if uint64(n) > uint64(len(r.b)) {
		pan.Panic(io.ErrUnexpectedEOF)
	}
	return append([]byte{}, r.take(int(n))...)
}
