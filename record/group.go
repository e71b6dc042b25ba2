// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

// Group is a method's relocation table: a leading word holding the total
// size, followed by records.
type Group struct {
	Format Format
	Table  []byte
}

// Size of the table, as stored in its leading word.
func (g Group) Size() int {
	if len(g.Table) < g.Format.WordSize {
		return 0
	}
	return int(g.Format.Word(g.Table))
}

// First record offset.
func (g Group) First() int {
	return g.Format.WordSize
}

// PastLast record offset.
func (g Group) PastLast() int {
	return g.Size()
}

// Check the leading word against the table length.  An empty table (no
// bytes at all) is valid and holds no records.
func (g Group) Check() error {
	if !g.Format.valid() {
		return ErrCorrupt
	}
	if len(g.Table) == 0 {
		return nil
	}
	if len(g.Table) < g.Format.WordSize {
		return ErrCorrupt
	}
	if n := g.Size(); n < g.First() || n > len(g.Table) {
		return ErrCorrupt
	}
	return nil
}

// Next returns the offset of the record following the one at offset,
// without decoding it.
func (g Group) Next(offset int) (int, error) {
	size, err := PeekSize(g.Format, g.Table[offset:g.PastLast()])
	if err != nil {
		return 0, err
	}
	if size < g.Format.HeaderSize() || offset+size > g.PastLast() {
		return 0, ErrCorrupt
	}
	return offset + size, nil
}

// Decode the record at offset.
func (g Group) Decode(offset int) (Record, error) {
	return Decode(g.Format, g.Table[offset:g.PastLast()])
}

// Walk visits every record in order without decoding payloads.  It stops at
// the first error returned by visit.  The sum of record sizes must land
// exactly on the table size.
func (g Group) Walk(visit func(offset int, k Kind) error) error {
	if err := g.Check(); err != nil {
		return err
	}
	if len(g.Table) == 0 {
		return nil
	}

	for offset := g.First(); offset < g.PastLast(); {
		k, err := PeekKind(g.Format, g.Table[offset:g.PastLast()])
		if err != nil {
			return err
		}

		next, err := g.Next(offset)
		if err != nil {
			return err
		}

		if err := visit(offset, k); err != nil {
			return err
		}

		offset = next
	}

	return nil
}

// Records decodes the whole table.
func (g Group) Records() (records []Record, err error) {
	err = g.Walk(func(offset int, _ Kind) error {
		r, err := g.Decode(offset)
		if err == nil {
			records = append(records, r)
		}
		return err
	})
	return
}
