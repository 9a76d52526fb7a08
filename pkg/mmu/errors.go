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
	"errors"
)

// Errors returned by address-space operations. All are matchable with
// errors.Is.
var (
	// ErrOutOfRange indicates an address outside the address space. It is
	// returned before any tree mutation; a rejected call has no side
	// effects.
	ErrOutOfRange = errors.New("mmu: address out of range")

	// ErrNotFound indicates a query on an unmapped address.
	ErrNotFound = errors.New("mmu: no mapping found")

	// ErrNoMemory indicates that a page-table node could not be
	// allocated. A multi-page operation that fails mid-way reports its
	// partial progress through its returned count.
	ErrNoMemory = errors.New("mmu: out of memory")

	// ErrAlreadyExists indicates an attempt to map over an existing
	// mapping. Replacing a live mapping requires an explicit unmap first.
	ErrAlreadyExists = errors.New("mmu: mapping already exists")

	// ErrUnsupported indicates a page-table structure this implementation
	// does not handle, currently only superpage (non-leaf-level terminal)
	// entries.
	ErrUnsupported = errors.New("mmu: unsupported page-table structure")

	// ErrNotImplemented marks operations whose design is genuinely
	// unfinished (user address spaces, destroy, context switch). Callers
	// must see the failure rather than a silent no-op.
	ErrNotImplemented = errors.New("mmu: not implemented")
)
