// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"math"
	"sync"

	"gate.computer/aot/buffer"
	"gate.computer/aot/internal"
	"import.name/pan"
)

type sizeTable struct {
	once  sync.Once
	sizes [NumKinds]uint16
}

// Indexed by Format.Wide.
var sizeTables [2]sizeTable

func (t *sizeTable) get(f Format) *[NumKinds]uint16 {
	t.once.Do(func() {
		for k := Kind(0); k < NumKinds; k++ {
			s := sizer{f: f, n: f.HeaderSize()}
			New(k).fields(&s)
			t.sizes[k] = uint16(s.n)
		}
	})
	return &t.sizes
}

// HeaderAndPayloadSize of a record kind, excluding the offset array.  The
// result depends only on the word size.
func HeaderAndPayloadSize(k Kind, f Format) int {
	i := 0
	if f.Wide() {
		i = 1
	}
	return int(sizeTables[i].get(f)[k])
}

// PeekSize reads the size field of the record at the start of b without
// decoding it.
func PeekSize(f Format, b []byte) (int, error) {
	if len(b) < 2 {
		return 0, ErrCorrupt
	}
	return int(f.ByteOrder.Uint16(b)), nil
}

// PeekKind reads the type tag of the record at the start of b.
func PeekKind(f Format, b []byte) (Kind, error) {
	if len(b) < 3 {
		return 0, ErrCorrupt
	}
	k := Kind(b[2])
	if !k.Valid() {
		return k, UnknownKindError(k)
	}
	return k, nil
}

// Decode the record at the start of b into an owned value.  Bytes beyond the
// record's size are ignored.
func Decode(f Format, b []byte) (r Record, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := recover(); x != nil {
				err = internal.Error(x)
				r = nil
			}
		}()
	}

	r = decode(f, b)
	return
}

func decode(f Format, b []byte) Record {
	if len(b) < f.HeaderSize() {
		pan.Panic(ErrCorrupt)
	}

	size := int(f.ByteOrder.Uint16(b))
	kind := Kind(b[2])
	if !kind.Valid() {
		pan.Panic(UnknownKindError(kind))
	}
	if size > len(b) {
		pan.Panic(ErrCorrupt)
	}

	fixed := HeaderAndPayloadSize(kind, f)
	if size < fixed {
		pan.Panic(ErrSizeMismatch)
	}

	r := New(kind)
	h := r.Head()
	h.Size = uint16(size)
	h.Flags = Flags(b[3])
	if f.Wide() {
		h.Extra = f.ByteOrder.Uint32(b[4:])
	}

	d := decoder{f, b[f.HeaderSize():fixed]}
	r.fields(&d)
	if len(d.b) != 0 {
		pan.Panic(ErrSizeMismatch)
	}

	tail := b[fixed:size]
	width := h.Flags.OffsetSize()
	if len(tail)%width != 0 {
		pan.Panic(ErrSizeMismatch)
	}

	if n := len(tail) / width; n > 0 {
		h.Offsets = make([]int32, n)
		for i := range h.Offsets {
			if width == 4 {
				h.Offsets[i] = int32(f.ByteOrder.Uint32(tail[i*4:]))
			} else {
				h.Offsets[i] = int32(int16(f.ByteOrder.Uint16(tail[i*2:])))
			}
		}
	}

	return r
}

// Encode a record.  The size field and the wide offsets flag are derived from
// the payload and the offsets; other header fields are taken as is.
func Encode(f Format, r Record) (b []byte, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := recover(); x != nil {
				err = internal.Error(x)
				b = nil
			}
		}()
	}

	b = encode(f, r)
	return
}

func encode(f Format, r Record) []byte {
	h := r.Head()
	if !h.Kind.Valid() {
		pan.Panic(UnknownKindError(h.Kind))
	}

	flags := h.Flags
	for _, x := range h.Offsets {
		if x < math.MinInt16 || x > math.MaxInt16 {
			flags |= FlagWideOffsets
		}
	}

	size := HeaderAndPayloadSize(h.Kind, f) + len(h.Offsets)*flags.OffsetSize()

	buf := buffer.MakeLimited(nil, f.ByteOrder, math.MaxUint16)
	buf.PutUint16(uint16(size))
	buf.PutByte(byte(h.Kind))
	buf.PutByte(byte(flags))
	if f.Wide() {
		buf.PutUint32(h.Extra)
	}

	r.fields(&encoder{f, &buf})

	for _, x := range h.Offsets {
		if flags.Wide() {
			buf.PutUint32(uint32(x))
		} else {
			buf.PutUint16(uint16(int16(x)))
		}
	}

	h.Size = uint16(size)
	h.Flags = flags
	return buf.Bytes()
}
