// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// GlobalKey indexes the global value table.
type GlobalKey uint32

const (
	CountForRecompile GlobalKey = iota
	HeapBase
	HeapTop
	HeapBaseForBarrierRange0
	HeapSizeForBarrierRange0
	ActiveCardTableBase

	NumGlobalKeys
)

var globalKeyNames = [NumGlobalKeys]string{
	CountForRecompile:        "CountForRecompile",
	HeapBase:                 "HeapBase",
	HeapTop:                  "HeapTop",
	HeapBaseForBarrierRange0: "HeapBaseForBarrierRange0",
	HeapSizeForBarrierRange0: "HeapSizeForBarrierRange0",
	ActiveCardTableBase:      "ActiveCardTableBase",
}

func (k GlobalKey) String() string {
	if k < NumGlobalKeys {
		return globalKeyNames[k]
	}
	return fmt.Sprintf("<invalid global key %d>", uint32(k))
}

var ErrGlobalsInitialized = errors.New("global value table is already initialized")

// GlobalValues is initialized once and read-only thereafter.
type GlobalValues struct {
	once   sync.Once
	done   atomic.Bool
	values [NumGlobalKeys]uint64
}

// Init the table.  Only the first call has an effect.
func (g *GlobalValues) Init(values map[GlobalKey]uint64) (err error) {
	err = ErrGlobalsInitialized

	g.once.Do(func() {
		for k, v := range values {
			if k >= NumGlobalKeys {
				panic(fmt.Errorf("global key out of range: %d", k))
			}
			g.values[k] = v
		}
		g.done.Store(true)
		err = nil
	})

	return
}

// Lookup a value.  It fails if the key is out of range or the table has not
// been initialized.
func (g *GlobalValues) Lookup(k GlobalKey) (uint64, bool) {
	if g == nil || k >= NumGlobalKeys || !g.done.Load() {
		return 0, false
	}
	return g.values[k], true
}
