// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"gate.computer/aot/buffer"
)

// Builder assembles a relocation table.
type Builder struct {
	format Format
	buf    buffer.Dynamic
}

func NewBuilder(f Format) *Builder {
	b := &Builder{
		format: f,
		buf:    buffer.MakeDynamic(nil, f.ByteOrder),
	}
	b.buf.PutWord(f.WordSize, 0)
	return b
}

// Add encodes a record.  The record's Size and Flags fields are updated.
func (b *Builder) Add(r Record) error {
	data, err := Encode(b.format, r)
	if err != nil {
		return err
	}
	b.buf.PutBytes(data)
	return nil
}

// Len of the table so far, including the leading word.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Bytes of the table with the leading size word filled in.  The builder may
// be extended afterwards.
func (b *Builder) Bytes() []byte {
	table := b.buf.Bytes()
	b.format.PutWord(table, uint64(len(table)))
	return table
}

// Group view of the table.
func (b *Builder) Group() Group {
	return Group{b.format, b.Bytes()}
}
