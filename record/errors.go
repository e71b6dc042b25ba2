// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"fmt"
)

type corruptError string

func (e corruptError) Error() string       { return string(e) }
func (e corruptError) PublicError() string { return string(e) }
func (e corruptError) Corrupt() bool       { return true }

// Errors implementing interface{ Corrupt() bool }.
var (
	ErrCorrupt      = corruptError("relocation table is corrupt")
	ErrSizeMismatch = corruptError("relocation record size does not match its kind")
)

// UnknownKindError is returned for an unrecognized type tag.
type UnknownKindError Kind

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("unknown relocation kind %d", uint8(e))
}

func (e UnknownKindError) PublicError() string { return e.Error() }
func (UnknownKindError) Corrupt() bool         { return true }
