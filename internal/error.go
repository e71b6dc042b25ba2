// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"io"

	"import.name/pan"
)

// Error converts a recovered panic value into an error.  Panics which were
// not raised through pan are propagated.
func Error(x interface{}) error {
	err := pan.Error(x)
	if err == nil {
		return nil
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return truncated{}
	}

	return err
}

type truncated struct{}

func (truncated) Error() string       { return "relocation data is truncated" }
func (truncated) PublicError() string { return "relocation data is truncated" }
func (truncated) Corrupt() bool       { return true }
func (truncated) Unwrap() error       { return io.ErrUnexpectedEOF }
