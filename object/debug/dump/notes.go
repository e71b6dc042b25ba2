// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dump prints code and metadata of stored methods.
package dump

import (
	"sort"

	"gate.computer/aot/record"
)

// Annotations map code offsets to descriptions.
type Annotations map[int][]string

// PatchSites lists the offsets named by the records of a relocation table.
// Paired offsets of ordered pair records are all included.
func PatchSites(g record.Group) (Annotations, error) {
	records, err := g.Records()
	if err != nil {
		return nil, err
	}

	notes := make(Annotations)
	for _, r := range records {
		h := r.Head()
		for _, at := range h.Offsets {
			notes[int(at)] = append(notes[int(at)], h.Kind.String())
		}
	}
	return notes, nil
}

func (a Annotations) offsets() []int {
	list := make([]int, 0, len(a))
	for at := range a {
		list = append(list, at)
	}
	sort.Ints(list)
	return list
}
