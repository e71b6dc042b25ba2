// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program aotdump inspects a persistent method store.
package main

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"gate.computer/aot/object"
	"gate.computer/aot/object/debug/dump"
	"gate.computer/aot/record"
	"gate.computer/aot/store/sqlite"
	"gate.computer/aot/target"
	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	_ "gate.computer/aot/target/arm64"
	_ "gate.computer/aot/target/power"
	_ "gate.computer/aot/target/x86"
)

var (
	dbPath  = "aot.db"
	arch    = runtime.GOARCH
	verbose = false
)

var rootCmd = &cobra.Command{
	Use:           "aotdump",
	Short:         "Inspect stored ahead-of-time compiled methods",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetHandler(clihandler.Default)
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"l"},
	Short:   "List stored methods",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		keys, err := s.Keys()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		for _, key := range keys {
			blob, err := s.Load(key)
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("load")
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", humanize.Bytes(uint64(len(blob))), key)
		}
		return w.Flush()
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Print the metadata and relocation records of a method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, h, err := load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("code:  %s\n", humanize.Bytes(uint64(len(h.Code))))
		fmt.Printf("reloc: %s\n", humanize.Bytes(uint64(len(h.Reloc))))

		if m := h.Meta; m != nil {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "start pc\t%#x\n", m.StartPC)
			fmt.Fprintf(w, "end warm pc\t%#x\n", m.EndWarmPC)
			fmt.Fprintf(w, "start cold pc\t%#x\n", m.StartColdPC)
			fmt.Fprintf(w, "end pc\t%#x\n", m.EndPC)
			fmt.Fprintf(w, "data base\t%#x\n", m.DataBase)
			fmt.Fprintf(w, "body info\t%#x\n", m.BodyInfo)
			fmt.Fprintf(w, "inlined table\t%#x\n", m.InlinedTable)
			fmt.Fprintf(w, "flags\t%#x\n", m.Flags)
			for i, s := range m.Sites {
				fmt.Fprintf(w, "site %d\tcaller %d bci %d\n", i, s.Caller, s.BCIndex)
			}
			w.Flush()
		}
		fmt.Println()

		g := record.Group{Format: f, Table: h.Reloc}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		err = g.Walk(func(offset int, k record.Kind) error {
			r, err := g.Decode(offset)
			if err != nil {
				return err
			}
			rh := r.Head()
			fmt.Fprintf(w, "%#x\t%s\t%#02x\t%v\t%+v\n", offset, k, uint8(rh.Flags), rh.Offsets, r)
			return nil
		})
		w.Flush()
		return err
	},
}

var disasmCmd = &cobra.Command{
	Use:   "disasm <key>",
	Short: "Disassemble the code of a method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, h, err := load(args[0])
		if err != nil {
			return err
		}

		notes, err := dump.PatchSites(record.Group{Format: f, Table: h.Reloc})
		if err != nil {
			log.WithError(err).Warn("relocation table")
		}

		var addr uint64
		if h.Meta != nil {
			addr = h.Meta.StartPC
		}
		return dump.Code(os.Stdout, arch, h.Code, addr, notes)
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <key>",
	Short: "Print the relocation table as words",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, h, err := load(args[0])
		if err != nil {
			return err
		}
		return dump.Data(os.Stdout, f, h.Reloc, 0)
	},
}

var staleCmd = &cobra.Command{
	Use:   "stale <key>...",
	Short: "Retire stored methods",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, key := range args {
			if err := s.MarkStale(key); err != nil {
				return err
			}
			log.WithField("key", key).Info("marked stale")
		}
		return nil
	},
}

func load(key string) (f record.Format, h object.MethodHeader, err error) {
	t, err := target.ForArch(arch)
	if err != nil {
		return
	}
	f = t.Format()

	s, err := sqlite.Open(dbPath)
	if err != nil {
		return
	}
	defer s.Close()

	blob, err := s.Load(key)
	if err != nil {
		return
	}

	log.WithFields(log.Fields{
		"key":  key,
		"size": humanize.Bytes(uint64(len(blob))),
	}).Debug("loaded")

	h, err = object.Unmarshal(f, blob)
	return
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", dbPath, "store database")
	rootCmd.PersistentFlags().StringVarP(&arch, "arch", "a", arch, "target architecture")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")

	rootCmd.AddCommand(lsCmd, inspectCmd, disasmCmd, rawCmd, staleCmd)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("aotdump")
	}
}
