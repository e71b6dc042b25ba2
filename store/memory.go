// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements persistent blob stores for method headers and
// offset-addressed items.
package store

import (
	"encoding/binary"
	"sort"
	"sync"

	"gate.computer/aot/buffer"
	"gate.computer/aot/env"
	"github.com/pkg/errors"
)

var ErrBadOffset = errors.New("store: item offset is out of range")

// Memory is a process-local store.  Items are appended to a byte arena with a
// length prefix; the offset of an item is its position in the arena plus one,
// so that zero is never a valid offset.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	stale   map[string]bool
	items   buffer.Dynamic
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string][]byte),
		stale:   make(map[string]bool),
		items:   buffer.MakeDynamic(nil, binary.LittleEndian),
	}
}

func (m *Memory) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, found := m.entries[key]
	if !found || m.stale[key] {
		return nil, env.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *Memory) Store(key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = append([]byte(nil), blob...)
	delete(m.stale, key)
	return nil
}

func (m *Memory) MarkStale(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.entries[key]; !found {
		return env.ErrNotFound
	}
	m.stale[key] = true
	return nil
}

// Keys lists the entries in sorted order.  Stale entries are included.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) IsStale(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.stale[key]
}

func (m *Memory) Put(item []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := uint64(m.items.Len()) + 1
	m.items.PutUint32(uint32(len(item)))
	m.items.PutBytes(item)
	return offset, nil
}

func (m *Memory) At(offset uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	arena := m.items.Bytes()
	if offset == 0 || offset+3 > uint64(len(arena)) {
		return nil, ErrBadOffset
	}

	pos := offset - 1
	n := uint64(binary.LittleEndian.Uint32(arena[pos:]))
	pos += 4
	if pos+n > uint64(len(arena)) {
		return nil, ErrBadOffset
	}
	return append([]byte(nil), arena[pos:pos+n]...), nil
}
