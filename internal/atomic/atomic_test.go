// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atomic

import (
	"encoding/binary"
	"testing"
)

func TestPut(t *testing.T) {
	b := make([]byte, 24)

	for _, at := range []int{0, 1, 4, 8, 13} {
		PutUint32(b[at:], 0x11223344+uint32(at))
		if x := binary.LittleEndian.Uint32(b[at:]); x != 0x11223344+uint32(at) {
			t.Errorf("32-bit at %d: %#x", at, x)
		}
	}

	for _, at := range []int{0, 3, 8, 16} {
		PutUint64(b[at:], 0x1122334455667788+uint64(at))
		if x := binary.LittleEndian.Uint64(b[at:]); x != 0x1122334455667788+uint64(at) {
			t.Errorf("64-bit at %d: %#x", at, x)
		}
	}
}
