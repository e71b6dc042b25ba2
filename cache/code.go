// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"sync"

	"gate.computer/aot/env"
)

type fullError string

func (s fullError) Error() string       { return string(s) }
func (s fullError) PublicError() string { return string(s) }
func (s fullError) Retryable() bool     { return true }

var ErrTrampolinesFull = fullError("trampoline pool is exhausted")

type reservation struct {
	offset int
	size   int
	used   int
}

// CodeCache is a bump allocator over one arena.  Reserve, Allocate, Unreserve
// and Commit must be called with Lock held; the trampoline pool has its own
// lock.
type CodeCache struct {
	sync.Mutex
	arena

	top          int
	next         env.Reservation
	reservations map[env.Reservation]*reservation

	trampMu     sync.Mutex
	trampFree   int
	trampolines map[env.Method]int // Reference counts.
}

var (
	_ env.CodeCacheAllocator = (*CodeCache)(nil)
	_ env.Trampolines        = (*CodeCache)(nil)
)

func NewCodeCache(size, trampolines int) (*CodeCache, error) {
	a, err := makeArena(size)
	if err != nil {
		return nil, err
	}

	return &CodeCache{
		arena:        a,
		reservations: make(map[env.Reservation]*reservation),
		trampFree:    trampolines,
		trampolines:  make(map[env.Method]int),
	}, nil
}

func (c *CodeCache) Reserve(size int) (env.Reservation, bool) {
	if size < 0 || c.top+size > len(c.mem) {
		return 0, false
	}

	c.next++
	c.reservations[c.next] = &reservation{offset: c.top, size: size}
	c.top += size
	return c.next, true
}

func (c *CodeCache) Allocate(r env.Reservation, size int) (env.Segment, bool) {
	res := c.reservations[r]
	if res == nil || size < 0 || res.used+size > res.size {
		return env.Segment{}, false
	}

	s := env.Segment{Offset: res.offset + res.used, Length: size}
	res.used += size
	return s, true
}

// Unreserve releases a reservation.  Its space is reused only if it was the
// most recent one.
func (c *CodeCache) Unreserve(r env.Reservation) {
	res := c.reservations[r]
	if res == nil {
		return
	}
	delete(c.reservations, r)

	if res.offset+res.size == c.top {
		c.top = res.offset
	}
}

// Commit forgets a reservation whose memory stays allocated.
func (c *CodeCache) Commit(r env.Reservation) {
	delete(c.reservations, r)
}

// Used bytes.
func (c *CodeCache) Used() int {
	return c.top
}

func (c *CodeCache) Size() int {
	return len(c.mem)
}

// ReserveTrampoline shares one slot between all reservations of a method.
func (c *CodeCache) ReserveTrampoline(m env.Method) error {
	c.trampMu.Lock()
	defer c.trampMu.Unlock()

	if c.trampolines[m] == 0 {
		if c.trampFree < 1 {
			return ErrTrampolinesFull
		}
		c.trampFree--
	}
	c.trampolines[m]++
	return nil
}

// UnreserveTrampoline frees the slot when the last reservation of the method
// is released.
func (c *CodeCache) UnreserveTrampoline(m env.Method) {
	c.trampMu.Lock()
	defer c.trampMu.Unlock()

	switch n := c.trampolines[m]; n {
	case 0:
	case 1:
		delete(c.trampolines, m)
		c.trampFree++
	default:
		c.trampolines[m] = n - 1
	}
}

// ReservePICTrampolines reserves all or nothing.
func (c *CodeCache) ReservePICTrampolines(n int) error {
	c.trampMu.Lock()
	defer c.trampMu.Unlock()

	if n > c.trampFree {
		return ErrTrampolinesFull
	}
	c.trampFree -= n
	return nil
}

func (c *CodeCache) UnreservePICTrampolines(n int) {
	c.trampMu.Lock()
	defer c.trampMu.Unlock()
	c.trampFree += n
}

// FreeTrampolines is the number of unreserved slots.
func (c *CodeCache) FreeTrampolines() int {
	c.trampMu.Lock()
	defer c.trampMu.Unlock()
	return c.trampFree
}
