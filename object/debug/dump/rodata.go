// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dump

import (
	"fmt"
	"io"

	"gate.computer/aot/record"
)

// Data prints words in the byte order of the format.
func Data(w io.Writer, f record.Format, data []byte, addr uint64) (err error) {
	for offset := addr; len(data) > 0; {
		if addr == 0 { // relative
			fmt.Fprintf(w, "%8x", offset)
		} else {
			fmt.Fprintf(w, "%08x", offset)
		}

		for i := 0; i < 4 && len(data) > 0; i++ {
			switch {
			case len(data) >= 8:
				fmt.Fprintf(w, " %016x", f.ByteOrder.Uint64(data))
				data = data[8:]
				offset += 8

			case len(data) >= 4:
				fmt.Fprintf(w, " ........%08x", f.ByteOrder.Uint32(data))
				data = data[4:]
				offset += 4

			default:
				fmt.Fprintf(w, " %x", data)
				offset += uint64(len(data))
				data = nil
			}
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	return
}
