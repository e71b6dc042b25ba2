// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

// Flags of a binary record header.
type Flags uint8

const (
	FlagWideOffsets Flags = 0x80
	FlagEIPRelative Flags = 0x40

	FlagsKindSpecific Flags = 0x0f
)

func (f Flags) Wide() bool        { return f&FlagWideOffsets != 0 }
func (f Flags) EIPRelative() bool { return f&FlagEIPRelative != 0 }

// KindSpecific bits: the address sequence number, or the profiled guard
// flavor.
func (f Flags) KindSpecific() uint8 {
	return uint8(f & FlagsKindSpecific)
}

// OffsetSize is the byte width of one offset array entry.
func (f Flags) OffsetSize() int {
	if f.Wide() {
		return 4
	}
	return 2
}

// Header is the common part of every decoded record: the binary header
// fields and an owned copy of the trailing offset array.
type Header struct {
	Size    uint16
	Kind    Kind
	Flags   Flags
	Extra   uint32 // Prologue offset on wide formats.
	Offsets []int32
}

func (h *Header) Head() *Header { return h }

// Record is a decoded relocation record.  The concrete type is one of the
// payload shapes declared in this package.
type Record interface {
	Head() *Header
	fields(fields)
}
