// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !cgo

package dump

import (
	"errors"
	"io"
)

func Code(w io.Writer, arch string, code []byte, addr uint64, notes Annotations) error {
	return errors.New("object/debug/dump.Code requires cgo")
}
