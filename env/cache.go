// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

// Segment is an (offset, length) handle into an allocator's arena.
type Segment struct {
	Offset int
	Length int
}

// Reservation identifies a code cache reservation.  Zero is invalid.
type Reservation int

// RecordKind tags data cache records.
type RecordKind uint8

const (
	RecordFree RecordKind = iota
	RecordMetadata
	RecordBodyInfo
	RecordCounter
)

func (k RecordKind) String() string {
	switch k {
	case RecordFree:
		return "free"
	case RecordMetadata:
		return "metadata"
	case RecordBodyInfo:
		return "body info"
	case RecordCounter:
		return "counter"
	default:
		return "invalid record kind"
	}
}

// CodeCacheAllocator hands out executable memory.  Reserve and Allocate are
// called with the allocator lock held.
type CodeCacheAllocator interface {
	Reserve(size int) (Reservation, bool)
	Allocate(r Reservation, size int) (Segment, bool)
	Unreserve(r Reservation)
	Bytes(s Segment) []byte
	Addr(s Segment) uint64
}

// DataCacheAllocator hands out metadata memory.
type DataCacheAllocator interface {
	AllocateRecord(size int, kind RecordKind) (Segment, bool)
	FreeRecord(s Segment)
	Bytes(s Segment) []byte
	Addr(s Segment) uint64
}

// Body info record layout.
const (
	BodyInfoInvocationCount   = 0  // int32
	BodyInfoFlags             = 4  // uint32
	BodyInfoCatchBlockCounter = 8  // uint32
	BodyInfoFrequencies       = 24 // uint32 per block

	BodyInfoRecompQueued uint32 = 1 << 0
)
