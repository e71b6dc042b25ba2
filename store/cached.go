// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"gate.computer/aot/env"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached puts an LRU cache in front of another store.  Keyed loads and items
// are cached; Store and MarkStale invalidate the key.
type Cached struct {
	backend env.BlobStore
	entries *lru.Cache[string, []byte]
	items   *lru.Cache[uint64, []byte]
}

func NewCached(backend env.BlobStore, size int) (*Cached, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}

	items, err := lru.New[uint64, []byte](size)
	if err != nil {
		return nil, err
	}

	return &Cached{backend, entries, items}, nil
}

// Load returns a shared slice which must not be modified.
func (c *Cached) Load(key string) ([]byte, error) {
	if blob, found := c.entries.Get(key); found {
		return blob, nil
	}

	blob, err := c.backend.Load(key)
	if err != nil {
		return nil, err
	}

	c.entries.Add(key, blob)
	return blob, nil
}

func (c *Cached) Store(key string, blob []byte) error {
	c.entries.Remove(key)
	return c.backend.Store(key, blob)
}

func (c *Cached) MarkStale(key string) error {
	c.entries.Remove(key)

	if m, ok := c.backend.(env.StaleMarker); ok {
		return m.MarkStale(key)
	}
	return nil
}

func (c *Cached) Put(item []byte) (uint64, error) {
	return c.backend.Put(item)
}

// At returns a shared slice which must not be modified.
func (c *Cached) At(offset uint64) ([]byte, error) {
	if item, found := c.items.Get(offset); found {
		return item, nil
	}

	item, err := c.backend.At(offset)
	if err != nil {
		return nil, err
	}

	c.items.Add(offset, item)
	return item, nil
}
