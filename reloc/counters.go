// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/record"
)

// Counters are diagnostic only.
type Counters struct {
	ValidationsAttempted int
	ValidationsFailed    int
	InlinedAttempted     int
	InlinedFailed        int
	AllocAttempted       int
	AllocFailed          int
	RecordsApplied       int
	RecordsSkipped       int

	Kinds [record.NumKinds]int
}

// Add another set of counters to this one.
func (c *Counters) Add(other *Counters) {
	c.ValidationsAttempted += other.ValidationsAttempted
	c.ValidationsFailed += other.ValidationsFailed
	c.InlinedAttempted += other.InlinedAttempted
	c.InlinedFailed += other.InlinedFailed
	c.AllocAttempted += other.AllocAttempted
	c.AllocFailed += other.AllocFailed
	c.RecordsApplied += other.RecordsApplied
	c.RecordsSkipped += other.RecordsSkipped

	for i, n := range other.Kinds {
		c.Kinds[i] += n
	}
}
