// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/record"
	"github.com/gobwas/glob"
)

type Options struct {
	// DisabledInlineSites matches the signatures of methods whose inlined
	// sites are treated as invalid.
	DisabledInlineSites glob.Glob

	// DisabledValidations lists validation kinds which are skipped.
	DisabledValidations map[record.Kind]bool
}

func (o *Options) inlineDisabled(signature string) bool {
	return o != nil && o.DisabledInlineSites != nil && o.DisabledInlineSites.Match(signature)
}

func (o *Options) validationDisabled(k record.Kind) bool {
	return o != nil && o.DisabledValidations[k]
}
