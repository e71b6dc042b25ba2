// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
)

// Format describes the machine word and byte order of a relocation table.
type Format struct {
	WordSize  int // 4 or 8
	ByteOrder binary.ByteOrder
}

var (
	Format32LE = Format{4, binary.LittleEndian}
	Format64LE = Format{8, binary.LittleEndian}
	Format64BE = Format{8, binary.BigEndian}
)

// Wide formats carry the extra header word.
func (f Format) Wide() bool {
	return f.WordSize == 8
}

// HeaderSize of a record in this format.
func (f Format) HeaderSize() int {
	if f.Wide() {
		return 8
	}
	return 4
}

func (f Format) Word(b []byte) uint64 {
	if f.WordSize == 8 {
		return f.ByteOrder.Uint64(b)
	}
	return uint64(f.ByteOrder.Uint32(b))
}

func (f Format) PutWord(b []byte, x uint64) {
	if f.WordSize == 8 {
		f.ByteOrder.PutUint64(b, x)
	} else {
		f.ByteOrder.PutUint32(b, uint32(x))
	}
}

func (f Format) valid() bool {
	return (f.WordSize == 4 || f.WordSize == 8) && f.ByteOrder != nil
}
