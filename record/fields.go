// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"io"

	"gate.computer/aot/buffer"
	"import.name/pan"
)

// fields visits the payload fields of a shape in their binary order.  The
// same declaration drives decoding, encoding and size computation.
type fields interface {
	u8(*uint8)
	flag(*bool)
	u16(*uint16)
	u32(*uint32)
	i32(*int32)
	word(*uint64)
}

type sizer struct {
	f Format
	n int
}

func (s *sizer) u8(*uint8)    { s.n++ }
func (s *sizer) flag(*bool)   { s.n++ }
func (s *sizer) u16(*uint16)  { s.n += 2 }
func (s *sizer) u32(*uint32)  { s.n += 4 }
func (s *sizer) i32(*int32)   { s.n += 4 }
func (s *sizer) word(*uint64) { s.n += s.f.WordSize }

type decoder struct {
	f Format
	b []byte
}

func (d *decoder) take(n int) []byte {
	if len(d.b) < n {
		pan.Panic(io.ErrUnexpectedEOF)
	}
	x := d.b[:n]
	d.b = d.b[n:]
	return x
}

func (d *decoder) u8(p *uint8)    { *p = d.take(1)[0] }
func (d *decoder) flag(p *bool)   { *p = d.take(1)[0] != 0 }
func (d *decoder) u16(p *uint16)  { *p = d.f.ByteOrder.Uint16(d.take(2)) }
func (d *decoder) u32(p *uint32)  { *p = d.f.ByteOrder.Uint32(d.take(4)) }
func (d *decoder) i32(p *int32)   { *p = int32(d.f.ByteOrder.Uint32(d.take(4))) }
func (d *decoder) word(p *uint64) { *p = d.f.Word(d.take(d.f.WordSize)) }

type encoder struct {
	f Format
	b *buffer.Limited
}

func (e *encoder) u8(p *uint8) { e.b.PutByte(*p) }

func (e *encoder) flag(p *bool) {
	var x byte
	if *p {
		x = 1
	}
	e.b.PutByte(x)
}

func (e *encoder) u16(p *uint16)  { e.b.PutUint16(*p) }
func (e *encoder) u32(p *uint32)  { e.b.PutUint32(*p) }
func (e *encoder) i32(p *int32)   { e.b.PutUint32(uint32(*p)) }
func (e *encoder) word(p *uint64) { e.b.PutWord(e.f.WordSize, *p) }
