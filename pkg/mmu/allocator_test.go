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
	"testing"

	"rvmm.dev/rvmm/pkg/hostarch"
)

func testAllocator(t *testing.T, a Allocator) {
	t.Helper()

	ptes, err := a.NewPTEs()
	if err != nil {
		t.Fatalf("NewPTEs: %v", err)
	}

	// Nodes are page-aligned and zeroed.
	phys := a.PhysicalFor(ptes)
	if phys&hostarch.PageMask != 0 {
		t.Errorf("node at %#x is not page aligned", phys)
	}
	for i := range ptes {
		if ptes[i] != 0 {
			t.Fatalf("entry %d not zeroed: %#x", i, uint64(ptes[i]))
		}
	}

	// The physical address round-trips through lookup.
	if got := a.LookupPTEs(phys); got != ptes {
		t.Errorf("LookupPTEs(%#x) = %p, want %p", phys, got, ptes)
	}
	if got := a.LookupPTEs(phys + hostarch.PageSize); got != nil {
		t.Errorf("LookupPTEs(unknown) = %p, want nil", got)
	}

	a.FreePTEs(ptes)
	if got := a.LookupPTEs(phys); got != nil {
		t.Errorf("LookupPTEs after free = %p, want nil", got)
	}
}

func TestRuntimeAllocator(t *testing.T) {
	testAllocator(t, NewRuntimeAllocator())
}

func TestRuntimeAllocatorLimit(t *testing.T) {
	a := NewRuntimeAllocator()
	a.Limit = 2

	first, err := a.NewPTEs()
	if err != nil {
		t.Fatalf("NewPTEs: %v", err)
	}
	if _, err := a.NewPTEs(); err != nil {
		t.Fatalf("NewPTEs: %v", err)
	}
	if _, err := a.NewPTEs(); !errors.Is(err, ErrNoMemory) {
		t.Fatalf("NewPTEs over limit = %v, want ErrNoMemory", err)
	}

	// The limit caps live nodes, not total allocations.
	a.FreePTEs(first)
	if _, err := a.NewPTEs(); err != nil {
		t.Fatalf("NewPTEs after free: %v", err)
	}

	if allocated, freed := a.Stats(); allocated != 3 || freed != 1 {
		t.Errorf("Stats = (%d, %d), want (3, 1)", allocated, freed)
	}
}
