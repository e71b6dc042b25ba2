// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

package dump

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/knightsc/gapstone"
)

type engineConfig struct {
	arch    int
	mode    int
	syntax  uint
	padInsn uint // Zero if the architecture has no padding instruction.
}

var engines = map[string]engineConfig{
	"amd64": {gapstone.CS_ARCH_X86, gapstone.CS_MODE_64, gapstone.CS_OPT_SYNTAX_ATT, gapstone.X86_INS_INT3},
	"386":   {gapstone.CS_ARCH_X86, gapstone.CS_MODE_32, gapstone.CS_OPT_SYNTAX_ATT, gapstone.X86_INS_INT3},
	"arm64": {gapstone.CS_ARCH_ARM64, gapstone.CS_MODE_LITTLE_ENDIAN, gapstone.CS_OPT_SYNTAX_DEFAULT, gapstone.ARM64_INS_BRK},
	"ppc64": {gapstone.CS_ARCH_PPC, gapstone.CS_MODE_64 | gapstone.CS_MODE_BIG_ENDIAN, gapstone.CS_OPT_SYNTAX_DEFAULT, 0},
}

// Code disassembles relocated or compiled code.  Patch sites are annotated
// with the names attached to their byte offsets.
func Code(w io.Writer, arch string, code []byte, addr uint64, notes Annotations) (err error) {
	c, found := engines[arch]
	if !found {
		return fmt.Errorf("dump: unsupported architecture: %s", arch)
	}

	engine, err := gapstone.New(c.arch, c.mode)
	if err != nil {
		return
	}
	defer engine.Close()

	if err = engine.SetOption(gapstone.CS_OPT_SYNTAX, c.syntax); err != nil {
		return
	}

	insns, err := engine.Disasm(code, 0, 0)
	if err != nil {
		return
	}
	if len(insns) == 0 {
		return
	}

	offsets := notes.offsets()

	last := addr + uint64(insns[len(insns)-1].Address)
	addrWidth := (len(fmt.Sprintf("%x", last)) + 7) &^ 7

	var addrFmt string
	if addr == 0 { // relative
		addrFmt = fmt.Sprintf("%%%dx", addrWidth)
	} else {
		addrFmt = fmt.Sprintf("%%0%dx", addrWidth)
	}

	skipPad := false

	for _, insn := range insns {
		if c.padInsn != 0 && insn.Id == c.padInsn {
			if skipPad {
				continue
			}
			skipPad = true
		} else {
			skipPad = false
		}

		fmt.Fprintf(w, addrFmt, addr+uint64(insn.Address))
		fmt.Fprint(w, "\t", strings.TrimSpace(fmt.Sprintf("%s\t%s", insn.Mnemonic, insn.OpStr)))

		start, end := int(insn.Address), int(insn.Address+insn.Size)
		i := sort.SearchInts(offsets, start)
		for ; i < len(offsets) && offsets[i] < end; i++ {
			fmt.Fprintf(w, "\t; +%d %s", offsets[i]-start, strings.Join(notes[offsets[i]], ", "))
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	return nil
}
