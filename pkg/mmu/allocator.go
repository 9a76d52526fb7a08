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

// Allocator is used to allocate and look up page-table nodes. The pkg/mmu
// core consumes it as a capability; on a real system it fronts the physical
// page allocator and the static kernel mapping's address translators.
type Allocator interface {
	// NewPTEs returns a new page-table node. The node is page-aligned,
	// fully zeroed before it is returned, and exclusively owned by the
	// caller. Returns ErrNoMemory if no page can be allocated; the
	// failure propagates unmodified to the operation that requested the
	// node.
	NewPTEs() (*PTEs, error)

	// PhysicalFor returns the physical address of a node obtained from
	// NewPTEs, suitable for encoding into a pointer entry or satp.
	PhysicalFor(ptes *PTEs) uintptr

	// LookupPTEs translates a physical address from a pointer entry back
	// to a kernel-accessible node, or nil if the address is unknown.
	LookupPTEs(phys uintptr) *PTEs

	// FreePTEs returns a node to the allocator. The current core never
	// reclaims nodes on unmap; this exists so a future destroy path can.
	FreePTEs(ptes *PTEs)
}

// RuntimeAllocator is an Allocator backed by the Go heap, with the node's
// own (suitably aligned) address standing in for its physical address. It
// serves host builds, tools and tests; a kernel build plugs in an allocator
// over the real physical memory manager instead.
type RuntimeAllocator struct {
	// Limit caps the number of live nodes; zero means unlimited. Tests
	// use it to exercise allocation-failure paths.
	Limit int

	tables    map[uintptr]*PTEs
	allocated int
	freed     int
}

// NewRuntimeAllocator returns a RuntimeAllocator.
func NewRuntimeAllocator() *RuntimeAllocator {
	return &RuntimeAllocator{
		tables: make(map[uintptr]*PTEs),
	}
}

// NewPTEs implements Allocator.NewPTEs.
func (a *RuntimeAllocator) NewPTEs() (*PTEs, error) {
	if a.Limit != 0 && a.allocated-a.freed >= a.Limit {
		return nil, ErrNoMemory
	}
	ptes := newAlignedPTEs()
	a.tables[a.PhysicalFor(ptes)] = ptes
	a.allocated++
	return ptes, nil
}

// PhysicalFor implements Allocator.PhysicalFor.
func (a *RuntimeAllocator) PhysicalFor(ptes *PTEs) uintptr {
	return physicalFor(ptes)
}

// LookupPTEs implements Allocator.LookupPTEs.
func (a *RuntimeAllocator) LookupPTEs(phys uintptr) *PTEs {
	return a.tables[phys]
}

// FreePTEs implements Allocator.FreePTEs.
func (a *RuntimeAllocator) FreePTEs(ptes *PTEs) {
	delete(a.tables, a.PhysicalFor(ptes))
	a.freed++
}

// Stats returns the number of nodes ever allocated and freed.
func (a *RuntimeAllocator) Stats() (allocated, freed int) {
	return a.allocated, a.freed
}
