// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"encoding/binary"

	"import.name/pan"
)

// Limited is a dynamic buffer with a maximum size.  The default value is an
// empty buffer that cannot grow.
type Limited struct {
	d Dynamic
}

// MakeLimited buffer with a maximum size.  The slice must be empty.
//
// This function can be used in field initializer expressions.  The initialized
// field must not be copied.
func MakeLimited(b []byte, order binary.ByteOrder, maxSize int) Limited {
	return Limited{MakeDynamicHint(b, order, maxSize)}
}

// NewLimited buffer with a maximum size.  The slice must be empty.
func NewLimited(b []byte, order binary.ByteOrder, maxSize int) *Limited {
	l := MakeLimited(b, order, maxSize)
	return &l
}

// Len doesn't panic.
func (l *Limited) Len() int {
	return l.d.Len()
}

// Bytes doesn't panic.
func (l *Limited) Bytes() []byte {
	return l.d.Bytes()
}

// PutByte panics with ErrSizeLimit if the buffer is already full.
func (l *Limited) PutByte(value byte) {
	l.Extend(1)[0] = value
}

// PutUint16 panics with ErrSizeLimit if 2 bytes cannot be appended.
func (l *Limited) PutUint16(i uint16) {
	l.d.ByteOrder().PutUint16(l.Extend(2), i)
}

// PutUint32 panics with ErrSizeLimit if 4 bytes cannot be appended.
func (l *Limited) PutUint32(i uint32) {
	l.d.ByteOrder().PutUint32(l.Extend(4), i)
}

// PutUint64 panics with ErrSizeLimit if 8 bytes cannot be appended.
func (l *Limited) PutUint64(i uint64) {
	l.d.ByteOrder().PutUint64(l.Extend(8), i)
}

// PutWord panics with ErrSizeLimit if the word cannot be appended.
func (l *Limited) PutWord(wordSize int, i uint64) {
	if wordSize == 8 {
		l.PutUint64(i)
	} else {
		l.PutUint32(uint32(i))
	}
}

// Extend panics with ErrSizeLimit if n bytes cannot be appended to the buffer.
func (l *Limited) Extend(n int) []byte {
	if len(l.d.buf)+n > l.d.maxSize {
		pan.Panic(ErrSizeLimit)
	}
	return l.d.Extend(n)
}
