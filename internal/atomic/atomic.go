// Copyright (c) 2017 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package atomic stores little-endian values into code which may be
// executing.
package atomic

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

var littleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// PutUint32 is atomic if the destination is naturally aligned.
func PutUint32(b []byte, val uint32) {
	_ = b[3]
	p := unsafe.Pointer(&b[0])
	if littleEndian && uintptr(p)&3 == 0 {
		atomic.StoreUint32((*uint32)(p), val)
	} else {
		binary.LittleEndian.PutUint32(b, val)
	}
}

// PutUint64 is atomic if the destination is naturally aligned.
func PutUint64(b []byte, val uint64) {
	_ = b[7]
	p := unsafe.Pointer(&b[0])
	if littleEndian && uintptr(p)&7 == 0 {
		atomic.StoreUint64((*uint64)(p), val)
	} else {
		binary.LittleEndian.PutUint64(b, val)
	}
}
