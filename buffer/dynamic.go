// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Dynamic is a variable-capacity buffer which encodes integers in a fixed byte
// order.  The default value is a valid little-endian buffer.
type Dynamic struct {
	buf     []byte
	order   binary.ByteOrder
	maxSize int // For limiting allocation; not enforced by this implementation.
}

// MakeDynamic buffer.  The slice must be empty.
//
// This function can be used in field initializer expressions.  The initialized
// field must not be copied.
func MakeDynamic(b []byte, order binary.ByteOrder) Dynamic {
	return MakeDynamicHint(b, order, 0)
}

// MakeDynamicHint avoids making excessive allocations if the maximum buffer
// size can be estimated in advance.  The slice must be empty.
func MakeDynamicHint(b []byte, order binary.ByteOrder, maxSizeHint int) Dynamic {
	if len(b) != 0 {
		panic("slice must be empty")
	}
	return Dynamic{b, order, maxSizeHint}
}

// NewDynamic buffer.  The slice must be empty.
func NewDynamic(b []byte, order binary.ByteOrder) *Dynamic {
	d := MakeDynamic(b, order)
	return &d
}

// Len doesn't panic.
func (d *Dynamic) Len() int {
	return len(d.buf)
}

// Bytes doesn't panic.
func (d *Dynamic) Bytes() []byte {
	return d.buf
}

// ByteOrder doesn't panic.
func (d *Dynamic) ByteOrder() binary.ByteOrder {
	if d.order == nil {
		return binary.LittleEndian
	}
	return d.order
}

// PutByte doesn't panic unless out of memory.
func (d *Dynamic) PutByte(value byte) {
	d.Extend(1)[0] = value
}

// PutUint16 doesn't panic unless out of memory.
func (d *Dynamic) PutUint16(i uint16) {
	d.ByteOrder().PutUint16(d.Extend(2), i)
}

// PutUint32 doesn't panic unless out of memory.
func (d *Dynamic) PutUint32(i uint32) {
	d.ByteOrder().PutUint32(d.Extend(4), i)
}

// PutUint64 doesn't panic unless out of memory.
func (d *Dynamic) PutUint64(i uint64) {
	d.ByteOrder().PutUint64(d.Extend(8), i)
}

// PutWord stores the low bytes of i using the given word size (4 or 8).
func (d *Dynamic) PutWord(wordSize int, i uint64) {
	if wordSize == 8 {
		d.PutUint64(i)
	} else {
		d.PutUint32(uint32(i))
	}
}

// PutBytes doesn't panic unless out of memory.
func (d *Dynamic) PutBytes(b []byte) {
	copy(d.Extend(len(b)), b)
}

// Extend doesn't panic unless out of memory.
func (d *Dynamic) Extend(addLen int) []byte {
	offset := len(d.buf)

	if size := offset + addLen; size <= cap(d.buf) {
		if size < offset { // Check for overflow
			panic(errors.New("buffer size out of range"))
		}

		d.buf = d.buf[:size]
	} else {
		d.grow(addLen)
	}

	return d.buf[offset:]
}

// ResizeBytes doesn't panic unless out of memory.
func (d *Dynamic) ResizeBytes(newLen int) []byte {
	if newLen <= cap(d.buf) {
		d.buf = d.buf[:newLen]
	} else {
		d.grow(newLen - len(d.buf))
	}

	return d.buf
}

func (d *Dynamic) grow(addLen int) {
	newLen := len(d.buf) + addLen

	newCap := cap(d.buf)*2 + addLen
	if newCap < cap(d.buf) { // Handle overflow
		newCap = newLen
	}

	if newCap > d.maxSize {
		if d.maxSize >= newLen { // Ignore it if we went over it
			newCap = d.maxSize
		}
	}

	newBuf := make([]byte, newLen, newCap)
	copy(newBuf, d.buf)
	d.buf = newBuf
}
