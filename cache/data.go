// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"encoding/binary"
	"sync"

	"gate.computer/aot/env"
)

const (
	recordHeaderSize = 8 // u32 size, u8 kind, padding
	recordAlign      = 8
)

// DataCache is an arena of tagged records.  Freed records are reused first
// fit, without splitting.
type DataCache struct {
	mu sync.Mutex
	arena
	top  int
	free []env.Segment
}

var _ env.DataCacheAllocator = (*DataCache)(nil)

func NewDataCache(size int) (*DataCache, error) {
	a, err := makeArena(size)
	if err != nil {
		return nil, err
	}
	return &DataCache{arena: a}, nil
}

func align(n int) int {
	return (n + recordAlign - 1) &^ (recordAlign - 1)
}

func (c *DataCache) AllocateRecord(size int, kind env.RecordKind) (env.Segment, bool) {
	if size < 0 || kind == env.RecordFree {
		return env.Segment{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var s env.Segment

	for i, f := range c.free {
		if f.Length >= size {
			c.free = append(c.free[:i], c.free[i+1:]...)
			s = env.Segment{Offset: f.Offset, Length: size}
			goto found
		}
	}

	{
		need := recordHeaderSize + align(size)
		if c.top+need > len(c.mem) {
			return env.Segment{}, false
		}
		s = env.Segment{Offset: c.top + recordHeaderSize, Length: size}
		binary.LittleEndian.PutUint32(c.mem[c.top:], uint32(align(size)))
		c.top += need
	}

found:
	c.mem[s.Offset-recordHeaderSize+4] = byte(kind)
	clear(c.Bytes(s))
	return s, true
}

func (c *DataCache) FreeRecord(s env.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := s.Offset - recordHeaderSize
	if h < 0 || c.mem[h+4] == byte(env.RecordFree) {
		return
	}
	c.mem[h+4] = byte(env.RecordFree)
	c.free = append(c.free, env.Segment{Offset: s.Offset, Length: int(binary.LittleEndian.Uint32(c.mem[h:]))})
}

// Kind of the record.
func (c *DataCache) Kind(s env.Segment) env.RecordKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return env.RecordKind(c.mem[s.Offset-recordHeaderSize+4])
}

// Walk the allocated records in address order.
func (c *DataCache) Walk(visit func(s env.Segment, kind env.RecordKind)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for h := 0; h < c.top; {
		size := int(binary.LittleEndian.Uint32(c.mem[h:]))
		if kind := env.RecordKind(c.mem[h+4]); kind != env.RecordFree {
			visit(env.Segment{Offset: h + recordHeaderSize, Length: size}, kind)
		}
		h += recordHeaderSize + size
	}
}

func (c *DataCache) Used() int { return c.top }
func (c *DataCache) Size() int { return len(c.mem) }
