// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package cache

func mapArena(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}
