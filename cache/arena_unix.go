// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package cache

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func mapArena(size int) (mem []byte, unmap func() error, err error) {
	mem, err = unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		err = errors.Wrapf(err, "cache: mmap %d bytes", size)
		return
	}

	unmap = func() error { return unix.Munmap(mem) }
	return
}
