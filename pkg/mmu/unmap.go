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

// unmapVisitor clears terminal entries and skips holes. Intermediate
// tables that become empty are not reclaimed; their pages stay owned by
// the tree (see Allocator.FreePTEs).
type unmapVisitor struct {
	count    int
	unmapped int
	e        error
}

func (v *unmapVisitor) err() error { return v.e }

func (v *unmapVisitor) visit(level, index int, pte *PTE, vaddr *uintptr) walkAction {
	if pte.Valid() {
		if level > 0 {
			// A terminal entry above the leaf level is a
			// superpage; splitting one is not supported.
			v.e = ErrUnsupported
			return walkHalt
		}

		*pte = 0
		*vaddr += hostarch.PageSize
		v.count--
		v.unmapped++
		if v.count == 0 {
			return walkCommitAndHalt
		}
		return walkCommitAndRestart
	}

	// Nothing mapped here; unmapping a hole is not an error. Skip
	// forward one page.
	*vaddr += hostarch.PageSize
	v.count--
	if v.count == 0 {
		return walkHalt
	}
	return walkRestart
}

// Unmap removes the mappings for count pages starting at vaddr and returns
// the number of pages that were actually mapped. Holes in the range are
// skipped silently.
//
// The TLB is invalidated for exactly the requested range regardless of how
// many pages were mapped: conservatively over-invalidating is always safe,
// while reasoning about which translations another hart may have cached is
// not.
func (as *AddressSpace) Unmap(vaddr uintptr, count int) (int, error) {
	log.Debugf("mmu: unmap vaddr %#x count %d", vaddr, count)

	if count == 0 {
		return 0, nil
	}
	if err := as.checkRange(vaddr, count); err != nil {
		return 0, err
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	v := &unmapVisitor{count: count}
	err := as.walk(vaddr, v)

	FlushTLBRange(vaddr, count)

	return v.unmapped, err
}
