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
	"rvmm.dev/rvmm/pkg/hostarch"
	"rvmm.dev/rvmm/pkg/log"
)

// mapVisitor installs one terminal entry per walk iteration, asking the
// walker to build intermediate tables as needed.
type mapVisitor struct {
	as    *AddressSpace
	paddr uintptr
	count int
	opts  MapOpts
	e     error
}

func (v *mapVisitor) err() error { return v.e }

func (v *mapVisitor) visit(level, index int, pte *PTE, vaddr *uintptr) walkAction {
	if pte.Valid() {
		// The walker never hands us a pointer entry, so this is an
		// existing terminal mapping (a superpage if level > 0).
		// Replacing it requires an explicit unmap first.
		v.e = ErrAlreadyExists
		return walkHalt
	}

	if level > 0 {
		// Open slot above the leaf level: build the next table down.
		return walkAllocPT
	}

	*pte = makeLeafPTE(v.paddr, v.opts)
	*vaddr += hostarch.PageSize
	v.paddr += hostarch.PageSize
	v.count--
	if v.count == 0 {
		return walkCommitAndHalt
	}
	return walkCommitAndRestart
}

// Map establishes count page mappings from vaddr onward to consecutive
// physical pages starting at paddr, and returns the number of pages mapped.
// A conflicting existing mapping fails with ErrAlreadyExists and an
// allocation failure with ErrNoMemory; in both cases pages already mapped
// by this call stay mapped and are reported in the returned count.
//
// New mappings of previously invalid entries need no TLB invalidation: no
// stale translation can exist for memory that was never mapped.
func (as *AddressSpace) Map(vaddr, paddr uintptr, count int, opts MapOpts) (int, error) {
	log.Debugf("mmu: map vaddr %#x paddr %#x count %d %v", vaddr, paddr, count, opts.AccessType)

	if count == 0 {
		return 0, nil
	}
	if err := as.checkRange(vaddr, count); err != nil {
		return 0, err
	}

	// Kernel mappings survive address-space switches.
	if as.flags&AspaceKernel != 0 {
		opts.Global = true
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	v := &mapVisitor{as: as, paddr: paddr, count: count, opts: opts}
	err := as.walk(vaddr, v)
	return count - v.count, err
}
