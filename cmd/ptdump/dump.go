// Copyright 2026 The rvmm Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"rvmm.dev/rvmm/pkg/mmu"
	"rvmm.dev/rvmm/pkg/riscv"
)

// dumpCmd implements subcommands.Command for the "dump" command.
type dumpCmd struct {
	asid  uint
	stats bool
}

// Name implements subcommands.Command.Name.
func (*dumpCmd) Name() string {
	return "dump"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*dumpCmd) Synopsis() string {
	return "build the page tables a manifest describes and print the tree"
}

// Usage implements subcommands.Command.Usage.
func (*dumpCmd) Usage() string {
	return `dump [flags] <manifest.toml> - build the page tables a manifest describes and print the tree
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *dumpCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&d.asid, "asid", 0, "address space identifier to encode into satp")
	f.BoolVar(&d.stats, "stats", false, "print page-table node counts")
}

// Execute implements subcommands.Command.Execute.
func (d *dumpCmd) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	manifest, err := loadManifest(f.Arg(0))
	if err != nil {
		return fail("%v", err)
	}
	allocator := mmu.NewRuntimeAllocator()
	as, err := manifest.build(allocator)
	if err != nil {
		return fail("%v", err)
	}

	as.DebugDump(os.Stdout)
	fmt.Printf("satp %#x\n", riscv.SATP(as.Mode().SATPMode(), uint16(d.asid), as.RootPhysical()))
	if d.stats {
		allocated, freed := allocator.Stats()
		fmt.Printf("nodes allocated %d freed %d\n", allocated, freed)
	}
	return subcommands.ExitSuccess
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "ptdump: "+format+"\n", args...)
	return subcommands.ExitFailure
}
