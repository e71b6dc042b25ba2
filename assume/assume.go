// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assume maintains the runtime assumptions registered by relocated
// methods: code locations which must be patched when a class is redefined or
// unloaded, or when a method is overridden.
package assume

import (
	"fmt"
	"math"
	"sync"

	"gate.computer/aot/target"
)

type Kind uint8

const (
	RedefinitionSite  Kind = iota // Key is a class.
	UnloadSite                    // Key is a class.
	OverrideGuard                 // Key is a method.
	RedefinitionGuard             // Key is a class.
)

func (k Kind) String() string {
	switch k {
	case RedefinitionSite:
		return "redefinition site"
	case UnloadSite:
		return "unload site"
	case OverrideGuard:
		return "override guard"
	case RedefinitionGuard:
		return "redefinition guard"
	default:
		return fmt.Sprintf("<invalid assumption kind %d>", uint8(k))
	}
}

// Patch describes what happens to the site when the assumption is
// invalidated.
type Patch uint8

const (
	PatchNone     Patch = iota // Owner is notified only.
	PatchAddress               // Store a new address.
	PatchSequence              // Store a new address as an instruction sequence.
	PatchBranch                // Redirect the guard to Dest.
)

// Site is a patchable location in relocated code.
type Site struct {
	Target target.Target
	Code   *target.Buffer
	At     int
	Rel    uint64 // Base of an instruction pointer relative displacement.
	Seq    uint8  // For PatchSequence.
	Dest   int    // For PatchBranch.
}

type Entry struct {
	Kind  Kind
	Key   uint64
	Owner uint64 // Metadata address of the method which registered it.
	Patch Patch
	Site  Site
}

// storeAddress leaves a relative site unmodified if it cannot reach the
// address.  Its owner is invalidated anyway.
func (e *Entry) storeAddress(addr uint64) {
	switch e.Patch {
	case PatchAddress:
		if e.Site.Rel != 0 {
			disp := int64(addr - e.Site.Rel)
			if disp < math.MinInt32 || disp > math.MaxInt32 {
				return
			}
			e.Site.Target.Store32(e.Site.Code, e.Site.At, uint32(disp))
		} else {
			e.Site.Target.StoreAddress(e.Site.Code, e.Site.At, addr)
		}
	case PatchSequence:
		e.Site.Target.StoreAddressSequence(e.Site.Code, e.Site.At, e.Site.Seq, addr)
	}
}

func (e *Entry) redirect() {
	if e.Patch == PatchBranch {
		e.Site.Target.PatchBranch(e.Site.Code, e.Site.At, e.Site.Dest)
	}
}

// Table is an append-only list which may be scanned while entries are being
// added.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
}

func (t *Table) Add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, e)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

// Snapshot of the current entries.  The returned slice is not modified by
// later additions.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.entries[:len(t.entries):len(t.entries)]
}

// Owned lists the entries registered by an owner.
func (t *Table) Owned(owner uint64) (list []Entry) {
	for _, e := range t.Snapshot() {
		if e.Owner == owner {
			list = append(list, e)
		}
	}
	return
}

// Reclaim removes the entries registered by an owner, after a failed load or
// when the method is discarded.
func (t *Table) Reclaim(owner uint64) int {
	return t.remove(func(e *Entry) bool { return e.Owner == owner })
}

func (t *Table) remove(match func(*Entry) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Copy so that outstanding snapshots stay intact.
	kept := make([]Entry, 0, len(t.entries))
	for i := range t.entries {
		if !match(&t.entries[i]) {
			kept = append(kept, t.entries[i])
		}
	}

	n := len(t.entries) - len(kept)
	t.entries = kept
	return n
}

func (t *Table) matching(kinds []Kind, key uint64) (list []Entry) {
	for _, e := range t.Snapshot() {
		if e.Key != key {
			continue
		}
		for _, k := range kinds {
			if e.Kind == k {
				list = append(list, e)
				break
			}
		}
	}
	return
}

// ClassRedefined stores the new class at redefinition sites and redirects
// redefinition guards.  The affected entries are returned so that their
// owners can be invalidated.
func (t *Table) ClassRedefined(old, replacement uint64) []Entry {
	list := t.matching([]Kind{RedefinitionSite, RedefinitionGuard}, old)
	for i := range list {
		e := &list[i]
		switch e.Kind {
		case RedefinitionSite:
			e.storeAddress(replacement)
		case RedefinitionGuard:
			e.redirect()
		}
	}
	return list
}

// ClassUnloaded clears unload sites and redirects guards which depended on
// the class.  Every entry keyed by the class is removed.
func (t *Table) ClassUnloaded(class uint64) []Entry {
	list := t.matching([]Kind{UnloadSite, RedefinitionSite, RedefinitionGuard}, class)
	for i := range list {
		e := &list[i]
		switch e.Kind {
		case UnloadSite, RedefinitionSite:
			e.storeAddress(0)
		case RedefinitionGuard:
			e.redirect()
		}
	}

	t.remove(func(e *Entry) bool {
		return e.Key == class && e.Kind != OverrideGuard
	})
	return list
}

// MethodOverridden redirects the override guards of a method.
func (t *Table) MethodOverridden(method uint64) []Entry {
	list := t.matching([]Kind{OverrideGuard}, method)
	for i := range list {
		list[i].redirect()
	}
	return list
}
