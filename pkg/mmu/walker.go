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

// vaddrToIndex computes the index into the 512-entry table at the given
// level. The address is canonicalized first so stray high bits never
// corrupt the index. Levels count down from Levels()-1 at the root.
func vaddrToIndex(vaddr uintptr, level int, mode Mode) int {
	vaddr &= mode.CanonicalMask()
	return int(vaddr >> pageShiftAtLevel(level) & (ptEntries - 1))
}

// pageSizeAtLevel returns the bytes of address space one entry covers at
// the given level: 4 KiB at level 0, multiplied by 512 per level above.
func pageSizeAtLevel(level int) uintptr {
	return uintptr(1) << pageShiftAtLevel(level)
}

// pageMaskAtLevel masks the offset into an entry's reach at the given
// level, used to fold the low-order virtual bits back into a resolved
// physical address.
func pageMaskAtLevel(level int) uintptr {
	return pageSizeAtLevel(level) - 1
}

func pageShiftAtLevel(level int) uint {
	return pageShift + uint(level)*ptIndexBits
}

// walkAction is a pageVisitor's verdict on the entry the walker stopped at.
type walkAction int

const (
	// walkHalt stops the walk.
	walkHalt walkAction = iota

	// walkRestart re-descends from the root. The visitor must have
	// advanced the virtual address, or the walk loops forever.
	walkRestart

	// walkCommitAndRestart writes the (mutated) entry back, then
	// re-descends from the root. Any structural or address change
	// invalidates the walker's cached level and table pointer, so the
	// only safe continuation is a fresh descent.
	walkCommitAndRestart

	// walkCommitAndHalt writes the entry back, then stops.
	walkCommitAndHalt

	// walkAllocPT installs a freshly allocated table at the current
	// position and descends into it.
	walkAllocPT
)

// pageVisitor is the per-operation decision function driving the walker.
// It is only invoked on non-pointer entries: the walker descends through
// pointer entries on its own.
type pageVisitor interface {
	// visit decides what to do at (level, index). pte is a scratch copy
	// of the entry; mutations take effect only if the verdict commits.
	// The visitor advances *vaddr as it consumes pages.
	visit(level, index int, pte *PTE, vaddr *uintptr) walkAction

	// err returns the error accumulated by the visitor.
	err() error
}

// walk descends from the root toward vaddr, stopping at the first
// non-pointer entry and dispatching to the visitor. It is the single
// traversal engine shared by map, unmap and query.
func (as *AddressSpace) walk(vaddr uintptr, visitor pageVisitor) error {
restart:
	level := as.mode.Levels() - 1
	index := vaddrToIndex(vaddr, level, as.mode)
	table := as.root

	for {
		ptep := &table[index]
		entry := ptep.Load()

		if entry.IsTable() {
			// Pointer entry: descend.
			table = as.Allocator.LookupPTEs(entry.Address())
			if table == nil {
				panic("mmu: pointer entry references unknown table")
			}
			level--
			if level < 0 {
				panic("mmu: pointer entry at leaf level")
			}
			index = vaddrToIndex(vaddr, level, as.mode)
			continue
		}

		// Invalid or terminal entry: the visitor decides.
		switch visitor.visit(level, index, &entry, &vaddr) {
		case walkHalt:
			return visitor.err()

		case walkRestart:
			goto restart

		case walkCommitAndRestart:
			ptep.Store(entry)
			goto restart

		case walkCommitAndHalt:
			ptep.Store(entry)
			return visitor.err()

		case walkAllocPT:
			child, err := as.Allocator.NewPTEs()
			if err != nil {
				return err
			}
			phys := as.Allocator.PhysicalFor(child)
			// The node is fully zeroed before this store publishes
			// it; a concurrent walker that observes the pointer
			// entry also observes the zeroed contents.
			ptep.Store(makeTablePTE(phys))
			table = child
			level--
			if level < 0 {
				panic("mmu: table allocation below leaf level")
			}
			index = vaddrToIndex(vaddr, level, as.mode)

		default:
			panic("mmu: invalid walk action")
		}
	}
}
