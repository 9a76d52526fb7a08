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

//go:build linux

package mmu

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"rvmm.dev/rvmm/pkg/hostarch"
)

// HostAllocator is an Allocator backed by anonymous host mmap. Every node
// sits on its own hardware page, so the "physical" addresses it hands out
// are genuinely page-aligned without any carving. Used by host-side tools
// that want table layouts indistinguishable from a real system's.
type HostAllocator struct {
	bufs map[uintptr][]byte
}

// NewHostAllocator returns a HostAllocator.
func NewHostAllocator() *HostAllocator {
	return &HostAllocator{
		bufs: make(map[uintptr][]byte),
	}
}

// NewPTEs implements Allocator.NewPTEs.
func (a *HostAllocator) NewPTEs() (*PTEs, error) {
	b, err := unix.Mmap(-1, 0, hostarch.PageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrNoMemory, err)
	}
	a.bufs[uintptr(unsafe.Pointer(&b[0]))] = b
	return (*PTEs)(unsafe.Pointer(&b[0])), nil
}

// PhysicalFor implements Allocator.PhysicalFor.
func (a *HostAllocator) PhysicalFor(ptes *PTEs) uintptr {
	return uintptr(unsafe.Pointer(ptes))
}

// LookupPTEs implements Allocator.LookupPTEs.
func (a *HostAllocator) LookupPTEs(phys uintptr) *PTEs {
	b, ok := a.bufs[phys]
	if !ok {
		return nil
	}
	return (*PTEs)(unsafe.Pointer(&b[0]))
}

// FreePTEs implements Allocator.FreePTEs.
func (a *HostAllocator) FreePTEs(ptes *PTEs) {
	phys := a.PhysicalFor(ptes)
	if b, ok := a.bufs[phys]; ok {
		delete(a.bufs, phys)
		unix.Munmap(b)
	}
}

// Close unmaps every node still owned by the allocator.
func (a *HostAllocator) Close() {
	for phys, b := range a.bufs {
		delete(a.bufs, phys)
		unix.Munmap(b)
	}
}
