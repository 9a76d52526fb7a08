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
	"rvmm.dev/rvmm/pkg/sync"
)

// AspaceFlags classify an address space.
type AspaceFlags uint32

// AspaceKernel marks the kernel address space. Its base and size are pinned
// to the mode's fixed kernel window and its mappings are encoded global.
const AspaceKernel AspaceFlags = 1 << 0

// AddressSpace is one virtual-memory context. It owns its root page-table
// node exclusively; every non-root node is owned by the single pointer entry
// referencing it.
//
// Only the kernel address space is implemented. User spaces are an
// acknowledged future extension and fail Init with ErrNotImplemented.
type AddressSpace struct {
	// mu serializes structural operations on the tree. Query takes it
	// too: a lookup racing a mutation on the same range has no useful
	// answer.
	mu sync.Mutex

	base  uintptr
	size  uintptr
	flags AspaceFlags
	mode  Mode

	// root is the top-level table, referenced both by kernel pointer
	// (software walks) and physical address (hardware consumption via
	// satp).
	root     *PTEs
	rootPhys uintptr

	// Allocator provides page-table nodes.
	Allocator Allocator
}

// Init initializes the address space over the given range.
//
// Geometry violations (zero-or-single-page size, wrapping range, a kernel
// space not matching the mode's fixed window) are programming errors and
// panic: an unrepresentable page-table configuration is a correctness bug,
// not a recoverable fault.
func (as *AddressSpace) Init(mode Mode, base, size uintptr, flags AspaceFlags, allocator Allocator) error {
	if size <= hostarch.PageSize {
		panic("mmu: address space smaller than two pages")
	}
	if base+size-1 <= base {
		panic("mmu: address space wraps")
	}

	if flags&AspaceKernel == 0 {
		// User address spaces are not yet designed.
		return ErrNotImplemented
	}
	if base != mode.KernelBase() || size != mode.KernelSize() {
		panic("mmu: kernel address space must cover the fixed kernel window")
	}

	as.base = base
	as.size = size
	as.flags = flags
	as.mode = mode
	as.Allocator = allocator

	if kernelRoot != nil {
		as.root = kernelRoot
		as.rootPhys = kernelRootPhys
	} else {
		root, err := allocator.NewPTEs()
		if err != nil {
			return err
		}
		as.root = root
		as.rootPhys = allocator.PhysicalFor(root)
	}

	log.Debugf("mmu: %v aspace [%#x, %#x) root phys %#x", mode, base, base+size, as.rootPhys)
	return nil
}

// NewKernelAspace initializes a kernel address space covering the mode's
// fixed kernel window.
func NewKernelAspace(mode Mode, allocator Allocator) (*AddressSpace, error) {
	as := new(AddressSpace)
	if err := as.Init(mode, mode.KernelBase(), mode.KernelSize(), AspaceKernel, allocator); err != nil {
		return nil, err
	}
	return as, nil
}

// Base returns the first virtual address owned by the space.
func (as *AddressSpace) Base() uintptr { return as.base }

// Size returns the size of the space in bytes.
func (as *AddressSpace) Size() uintptr { return as.size }

// Mode returns the paging mode the space is built for.
func (as *AddressSpace) Mode() Mode { return as.mode }

// RootPhysical returns the physical address of the root table, in the form
// satp consumes.
func (as *AddressSpace) RootPhysical() uintptr { return as.rootPhys }

// Destroy tears down the address space. Reclaiming a live page-table tree
// has not been designed yet; the error is deliberate so callers see the gap
// instead of a silent leak.
func (as *AddressSpace) Destroy() error {
	return ErrNotImplemented
}

// ContextSwitch makes the given address space current on the calling hart;
// nil selects the kernel-only context. Switching requires ASID management
// that has not been designed yet.
func ContextSwitch(as *AddressSpace) error {
	return ErrNotImplemented
}

// checkVaddr validates that vaddr lies within the space.
func (as *AddressSpace) checkVaddr(vaddr uintptr) error {
	if vaddr < as.base || vaddr > as.base+as.size-1 {
		return ErrOutOfRange
	}
	return nil
}

// checkRange validates that the count pages starting at vaddr all lie
// within the space. It runs before any tree mutation, so a rejected call
// has zero side effects.
func (as *AddressSpace) checkRange(vaddr uintptr, count int) error {
	if count < 0 {
		return ErrOutOfRange
	}
	if err := as.checkVaddr(vaddr); err != nil {
		return err
	}
	end, ok := hostarch.Addr(vaddr).AddLength(uint64(count) * hostarch.PageSize)
	if !ok || uintptr(end) > as.base+as.size {
		return ErrOutOfRange
	}
	return nil
}
