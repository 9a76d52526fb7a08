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

// Package mmu is the architecture-specific virtual-memory core for 64-bit
// RISC-V. It owns the hardware page tables: it translates generic
// address-space operations (map, unmap, query) into the Sv39/Sv48 radix-tree
// format the MMU walks, and keeps translation caches coherent across harts
// through the SBI remote-fence capability.
//
// The tree of a given AddressSpace is hardware-visible shared state.
// Structural operations on one AddressSpace are serialized by its internal
// lock; entries are always read and written atomically so a concurrent
// hardware walk on another hart never observes a torn entry.
package mmu

import (
	"fmt"

	"rvmm.dev/rvmm/pkg/hostarch"
	"rvmm.dev/rvmm/pkg/log"
	"rvmm.dev/rvmm/pkg/riscv"
)

// Mode is a RISC-V paging mode.
type Mode int

// Supported paging modes.
const (
	// Sv39: 39-bit virtual addresses, 3 translation levels.
	Sv39 Mode = 39

	// Sv48: 48-bit virtual addresses, 4 translation levels.
	Sv48 Mode = 48
)

// Levels returns the number of page-table levels, root included.
func (m Mode) Levels() int {
	switch m {
	case Sv39:
		return 3
	case Sv48:
		return 4
	default:
		panic(fmt.Sprintf("mmu: invalid paging mode %d", int(m)))
	}
}

// CanonicalMask masks the architecturally significant virtual-address bits.
// Bits above it carry only the canonical sign extension and must never reach
// the per-level index computation.
func (m Mode) CanonicalMask() uintptr {
	return uintptr(1)<<uint(m) - 1
}

// SATPMode returns the satp MODE field value selecting this paging mode.
func (m Mode) SATPMode() uint64 {
	switch m {
	case Sv39:
		return riscv.SATPModeSv39
	case Sv48:
		return riscv.SATPModeSv48
	default:
		panic(fmt.Sprintf("mmu: invalid paging mode %d", int(m)))
	}
}

// KernelBase returns the fixed base of the kernel address space window in
// this mode.
func (m Mode) KernelBase() uintptr {
	switch m {
	case Sv39:
		return 0xffffffc000000000
	case Sv48:
		return 0xffff800000000000
	default:
		panic(fmt.Sprintf("mmu: invalid paging mode %d", int(m)))
	}
}

// KernelSize returns the fixed size of the kernel address space window:
// 64 GiB under Sv39 and 512 GiB under Sv48, matching the early boot
// mapping of all physical memory.
func (m Mode) KernelSize() uintptr {
	switch m {
	case Sv39:
		return 64 << 30
	case Sv48:
		return 512 << 30
	default:
		panic(fmt.Sprintf("mmu: invalid paging mode %d", int(m)))
	}
}

func (m Mode) String() string {
	switch m {
	case Sv39:
		return "Sv39"
	case Sv48:
		return "Sv48"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// asidMask is the hardware-implemented portion of the satp ASID field,
// discovered once at boot by EarlyInit.
var asidMask uint64

// EarlyInit discovers the implemented ASID width by writing all-ones into
// the satp ASID field and reading back which bits stick. It must run once on
// the boot hart, single-threaded, before any address space other than the
// identity boot mapping exists.
func EarlyInit() {
	orig := riscv.ReadSATP()
	riscv.WriteSATP(orig | riscv.SATPASIDMask<<riscv.SATPASIDShift)
	asidMask = riscv.ReadSATP() >> riscv.SATPASIDShift & riscv.SATPASIDMask
	riscv.WriteSATP(orig)
}

// Init completes MMU bring-up on the boot hart.
func Init() {
	log.Infof("mmu: ASID mask %#x", asidMask)
}

// ASIDMask returns the hardware ASID mask discovered by EarlyInit.
func ASIDMask() uint64 {
	return asidMask
}

// The kernel root table. On a real system this is a link-time-allocated
// table already live in satp when Go code starts running; boot registers it
// here. When unset (host builds, tests), the first kernel AddressSpace
// allocates its root instead.
var (
	kernelRoot     *PTEs
	kernelRootPhys uintptr
)

// SetKernelPageTable registers the statically allocated kernel root table
// and its physical address. phys must be page-aligned.
func SetKernelPageTable(root *PTEs, phys uintptr) {
	if phys&hostarch.PageMask != 0 {
		panic("mmu: kernel root table is not page aligned")
	}
	kernelRoot = root
	kernelRootPhys = phys
}
