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

package mmu

import (
	"fmt"
	"io"
)

// DebugDump writes a human-readable rendering of the live page-table tree,
// one line per valid entry. Intended for debug consoles and host tooling,
// not for parsing.
func (as *AddressSpace) DebugDump(w io.Writer) {
	as.mu.Lock()
	defer as.mu.Unlock()

	fmt.Fprintf(w, "%v aspace [%#x, %#x) root phys %#x\n",
		as.mode, as.base, as.base+as.size, as.rootPhys)

	// The root's reach starts at the canonical sign-extension prefix of
	// the space, not at its base.
	prefix := as.base &^ as.mode.CanonicalMask()
	as.dumpTable(w, as.root, as.mode.Levels()-1, prefix)
}

func (as *AddressSpace) dumpTable(w io.Writer, table *PTEs, level int, base uintptr) {
	indent := (as.mode.Levels() - 1 - level) * 2
	for i := range table {
		entry := table[i].Load()
		if !entry.Valid() {
			continue
		}
		va := base + uintptr(i)*pageSizeAtLevel(level)
		if entry.IsTable() {
			fmt.Fprintf(w, "%*sL%d[%3d] va %#x table phys %#x\n",
				indent, "", level, i, va, entry.Address())
			if child := as.Allocator.LookupPTEs(entry.Address()); child != nil {
				as.dumpTable(w, child, level-1, va)
			}
			continue
		}
		opts := entry.Opts()
		attrs := ""
		if opts.User {
			attrs += " user"
		}
		if opts.Global {
			attrs += " global"
		}
		fmt.Fprintf(w, "%*sL%d[%3d] va %#x -> pa %#x %v%s\n",
			indent, "", level, i, va, entry.Address(), opts.AccessType, attrs)
	}
}
