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
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"rvmm.dev/rvmm/pkg/mmu"
)

// translateCmd implements subcommands.Command for the "translate" command.
type translateCmd struct{}

// Name implements subcommands.Command.Name.
func (*translateCmd) Name() string {
	return "translate"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*translateCmd) Synopsis() string {
	return "resolve virtual addresses through a manifest's page tables"
}

// Usage implements subcommands.Command.Usage.
func (*translateCmd) Usage() string {
	return `translate <manifest.toml> <vaddr>... - resolve virtual addresses through a manifest's page tables
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*translateCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*translateCmd) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	manifest, err := loadManifest(f.Arg(0))
	if err != nil {
		return fail("%v", err)
	}
	as, err := manifest.build(mmu.NewRuntimeAllocator())
	if err != nil {
		return fail("%v", err)
	}

	status := subcommands.ExitSuccess
	for _, arg := range f.Args()[1:] {
		vaddr, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return fail("bad address %q: %v", arg, err)
		}
		paddr, opts, err := as.Query(uintptr(vaddr))
		switch {
		case errors.Is(err, mmu.ErrNotFound):
			fmt.Printf("%#x unmapped\n", vaddr)
			status = subcommands.ExitFailure
		case err != nil:
			fmt.Printf("%#x error: %v\n", vaddr, err)
			status = subcommands.ExitFailure
		default:
			attrs := ""
			if opts.User {
				attrs += " user"
			}
			if opts.Global {
				attrs += " global"
			}
			fmt.Printf("%#x -> %#x %v%s\n", vaddr, paddr, opts.AccessType, attrs)
		}
	}
	return status
}
