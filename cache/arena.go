// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements the code and data cache allocators.
package cache

import (
	"unsafe"

	"gate.computer/aot/env"
	"github.com/pkg/errors"
)

type arena struct {
	mem   []byte
	base  uint64
	unmap func() error
}

func makeArena(size int) (a arena, err error) {
	if size <= 0 {
		err = errors.Errorf("cache: invalid size %d", size)
		return
	}

	a.mem, a.unmap, err = mapArena(size)
	if err != nil {
		return
	}
	a.base = uint64(uintptr(unsafe.Pointer(&a.mem[0])))
	return
}

// Close releases the memory.
func (a *arena) Close() (err error) {
	if a.unmap != nil {
		err = a.unmap()
		a.unmap = nil
		a.mem = nil
	}
	return
}

func (a *arena) Bytes(s env.Segment) []byte {
	return a.mem[s.Offset : s.Offset+s.Length : s.Offset+s.Length]
}

func (a *arena) Addr(s env.Segment) uint64 {
	return a.base + uint64(s.Offset)
}

// Base address of the arena.
func (a *arena) Base() uint64 {
	return a.base
}
