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
	"sync/atomic"

	"rvmm.dev/rvmm/pkg/hostarch"
)

// PTE is a page table entry in the RISC-V Sv39/Sv48 format. The hardware
// distinguishes the two valid interpretations by the permission bits: a
// valid entry with R/W/X all clear points at the next-level table, anything
// else is a terminal mapping.
type PTE uint64

// PTEs is a page-table node: a full page of entries.
type PTEs [hostarch.PTEntries]PTE

// Local shorthands for the tree geometry.
const (
	pageShift   = hostarch.PageShift
	ptIndexBits = hostarch.PTIndexBits
	ptEntries   = hostarch.PTEntries
)

// Hardware bit assignments.
const (
	pteValid    PTE = 1 << 0
	pteRead     PTE = 1 << 1
	pteWrite    PTE = 1 << 2
	pteExecute  PTE = 1 << 3
	pteUser     PTE = 1 << 4
	pteGlobal   PTE = 1 << 5
	pteAccessed PTE = 1 << 6
	pteDirty    PTE = 1 << 7

	ptePermMask = pteRead | pteWrite | pteExecute

	// The PPN field occupies bits 10..53.
	ptePPNShift = 10
	ptePPNMask  = (1 << 44) - 1
)

// Load atomically reads the entry. Entries in live tables are shared with
// the hardware walker and with translators on other harts, so all in-table
// access is atomic.
func (p *PTE) Load() PTE {
	return PTE(atomic.LoadUint64((*uint64)(p)))
}

// Store atomically writes the entry. The release ordering of Store is what
// guarantees that a hart observing a new pointer entry also observes the
// zero-filled node it references.
func (p *PTE) Store(v PTE) {
	atomic.StoreUint64((*uint64)(p), uint64(v))
}

// Clear atomically invalidates the entry.
func (p *PTE) Clear() {
	p.Store(0)
}

// Valid returns true iff the entry is valid in either interpretation.
func (v PTE) Valid() bool {
	return v&pteValid != 0
}

// IsTable returns true iff the entry points at a next-level table.
func (v PTE) IsTable() bool {
	return v&pteValid != 0 && v&ptePermMask == 0
}

// Address returns the physical address the entry maps, or the physical
// address of the child table for pointer entries.
func (v PTE) Address() uintptr {
	return uintptr(v>>ptePPNShift&ptePPNMask) << hostarch.PageShift
}

// Opts decodes the permission and attribute bits of a terminal entry.
// Terminal entries are always readable; read-only is the absence of the
// write bit.
func (v PTE) Opts() MapOpts {
	return MapOpts{
		AccessType: hostarch.AccessType{
			Read:    true,
			Write:   v&pteWrite != 0,
			Execute: v&pteExecute != 0,
		},
		User:   v&pteUser != 0,
		Global: v&pteGlobal != 0,
	}
}

// makeTablePTE encodes a pointer entry referencing the page-table node at
// the given physical address.
func makeTablePTE(phys uintptr) PTE {
	return physToPPN(phys) | pteValid
}

// makeLeafPTE encodes a terminal entry mapping the given physical page.
// Requests that cannot be represented are normalized: writable implies
// readable, and a request with neither read nor write still gets the read
// bit since an unreadable mapping does not exist in this format. Accessed
// and dirty are pre-set so the hardware never needs to write back into the
// tree.
func makeLeafPTE(phys uintptr, opts MapOpts) PTE {
	v := physToPPN(phys) | pteValid | pteAccessed | pteDirty
	if opts.AccessType.Write {
		v |= pteRead | pteWrite
	} else {
		v |= pteRead
	}
	if opts.AccessType.Execute {
		v |= pteExecute
	}
	if opts.User {
		v |= pteUser
	}
	if opts.Global {
		v |= pteGlobal
	}
	return v
}

func physToPPN(phys uintptr) PTE {
	return PTE(phys>>hostarch.PageShift&ptePPNMask) << ptePPNShift
}

// MapOpts are passed to Map and returned by Query.
type MapOpts struct {
	// AccessType defines permissions. Write-without-read collapses to
	// read+write; there is no write-only encoding.
	AccessType hostarch.AccessType

	// User indicates the page is accessible in user mode.
	User bool

	// Global marks the translation as not ASID-tagged, so it survives an
	// address-space switch. Kernel-space mappings are always global.
	Global bool
}
