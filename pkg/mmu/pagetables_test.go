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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rvmm.dev/rvmm/pkg/hostarch"
	"rvmm.dev/rvmm/pkg/sbi"
)

const (
	testPaddr = uintptr(0x80000000)

	pageSize = uintptr(hostarch.PageSize)
	mega2    = uintptr(1) << 21 // reach of one level-0 table
)

type fenceRange struct {
	Start, Size uintptr
}

type fenceRecorder struct {
	remote   []fenceRange
	local    []uintptr
	localAll int
}

// interposeFences replaces the SBI and sfence.vma touchpoints for the
// duration of the test so invalidation traffic can be accounted for.
func interposeFences(t *testing.T) *fenceRecorder {
	t.Helper()
	rec := new(fenceRecorder)
	oldRemote, oldLocal, oldAll := remoteFenceFn, localFenceFn, localFenceAllFn
	remoteFenceFn = func(harts sbi.HartMask, start, size uintptr) error {
		if harts != sbi.AllHarts {
			t.Errorf("remote fence addressed to %+v, want all harts", harts)
		}
		rec.remote = append(rec.remote, fenceRange{start, size})
		return nil
	}
	localFenceFn = func(vaddr uintptr) {
		rec.local = append(rec.local, vaddr)
	}
	localFenceAllFn = func() {
		rec.localAll++
	}
	t.Cleanup(func() {
		remoteFenceFn, localFenceFn, localFenceAllFn = oldRemote, oldLocal, oldAll
	})
	return rec
}

func newTestAspace(t *testing.T, mode Mode) (*AddressSpace, *RuntimeAllocator) {
	t.Helper()
	allocator := NewRuntimeAllocator()
	as, err := NewKernelAspace(mode, allocator)
	if err != nil {
		t.Fatalf("NewKernelAspace(%v): %v", mode, err)
	}
	return as, allocator
}

type mapping struct {
	va   uintptr
	pa   uintptr
	opts MapOpts
}

func checkMappings(t *testing.T, as *AddressSpace, want []mapping) {
	t.Helper()
	for _, m := range want {
		pa, opts, err := as.Query(m.va)
		if err != nil {
			t.Errorf("Query(%#x): %v", m.va, err)
			continue
		}
		if pa != m.pa {
			t.Errorf("Query(%#x) = %#x, want %#x", m.va, pa, m.pa)
		}
		if diff := cmp.Diff(m.opts, opts); diff != "" {
			t.Errorf("Query(%#x) opts mismatch (-want +got):\n%s", m.va, diff)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	interposeFences(t)

	for _, tc := range []struct {
		name string
		in   MapOpts
		want MapOpts
	}{
		{
			name: "read",
			in:   MapOpts{AccessType: hostarch.Read},
			want: MapOpts{AccessType: hostarch.Read, Global: true},
		},
		{
			name: "read-write",
			in:   MapOpts{AccessType: hostarch.ReadWrite},
			want: MapOpts{AccessType: hostarch.ReadWrite, Global: true},
		},
		{
			name: "read-execute",
			in:   MapOpts{AccessType: hostarch.ReadExecute},
			want: MapOpts{AccessType: hostarch.ReadExecute, Global: true},
		},
		{
			name: "rwx",
			in:   MapOpts{AccessType: hostarch.AnyAccess},
			want: MapOpts{AccessType: hostarch.AnyAccess, Global: true},
		},
		{
			// Write-without-read is not representable and
			// normalizes to read+write.
			name: "write-only",
			in:   MapOpts{AccessType: hostarch.Write},
			want: MapOpts{AccessType: hostarch.ReadWrite, Global: true},
		},
		{
			// Neither read nor write still encodes the read bit.
			name: "no-access",
			in:   MapOpts{AccessType: hostarch.NoAccess},
			want: MapOpts{AccessType: hostarch.Read, Global: true},
		},
		{
			name: "user",
			in:   MapOpts{AccessType: hostarch.ReadWrite, User: true},
			want: MapOpts{AccessType: hostarch.ReadWrite, User: true, Global: true},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			as, _ := newTestAspace(t, Sv39)
			va := as.Base() + 42*pageSize

			n, err := as.Map(va, testPaddr, 1, tc.in)
			if n != 1 || err != nil {
				t.Fatalf("Map = (%d, %v), want (1, nil)", n, err)
			}
			checkMappings(t, as, []mapping{
				{va, testPaddr, tc.want},
			})
		})
	}
}

func TestMultiPageContiguity(t *testing.T) {
	interposeFences(t)
	as, _ := newTestAspace(t, Sv39)

	// Straddle a level-0 table boundary to force mid-walk restarts.
	const n = 8
	va := as.Base() + mega2 - 4*pageSize
	mapped, err := as.Map(va, testPaddr, n, MapOpts{AccessType: hostarch.ReadWrite})
	if mapped != n || err != nil {
		t.Fatalf("Map = (%d, %v), want (%d, nil)", mapped, err, n)
	}

	want := make([]mapping, 0, n)
	for k := uintptr(0); k < n; k++ {
		want = append(want, mapping{
			va:   va + k*pageSize,
			pa:   testPaddr + k*pageSize,
			opts: MapOpts{AccessType: hostarch.ReadWrite, Global: true},
		})
	}
	checkMappings(t, as, want)
}

func TestSv48(t *testing.T) {
	interposeFences(t)
	as, allocator := newTestAspace(t, Sv48)

	va := as.Base() + 7*pageSize
	if n, err := as.Map(va, testPaddr, 1, MapOpts{AccessType: hostarch.Read}); n != 1 || err != nil {
		t.Fatalf("Map = (%d, %v), want (1, nil)", n, err)
	}
	checkMappings(t, as, []mapping{
		{va, testPaddr, MapOpts{AccessType: hostarch.Read, Global: true}},
	})

	// Root plus one intermediate node per non-root level.
	if allocated, _ := allocator.Stats(); allocated != Sv48.Levels() {
		t.Errorf("allocated %d nodes, want %d", allocated, Sv48.Levels())
	}
}

func TestTableSharing(t *testing.T) {
	interposeFences(t)
	as, allocator := newTestAspace(t, Sv39)

	// Two pages under the same 2 MiB region must share the intermediate
	// tables: root, one level-1 node, one level-0 node.
	if _, err := as.Map(as.Base(), testPaddr, 1, MapOpts{AccessType: hostarch.Read}); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := as.Map(as.Base()+100*pageSize, testPaddr, 1, MapOpts{AccessType: hostarch.Read}); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if allocated, _ := allocator.Stats(); allocated != 3 {
		t.Errorf("allocated %d nodes, want 3", allocated)
	}

	// A page in the next 2 MiB region needs exactly one more level-0
	// node.
	if _, err := as.Map(as.Base()+mega2, testPaddr, 1, MapOpts{AccessType: hostarch.Read}); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if allocated, _ := allocator.Stats(); allocated != 4 {
		t.Errorf("allocated %d nodes, want 4", allocated)
	}
}

func TestRangeRejection(t *testing.T) {
	rec := interposeFences(t)
	as, allocator := newTestAspace(t, Sv39)

	for _, va := range []uintptr{
		as.Base() - pageSize,
		as.Base() - 1,
		as.Base() + as.Size(),
		0,
	} {
		if n, err := as.Map(va, testPaddr, 1, MapOpts{}); !errors.Is(err, ErrOutOfRange) || n != 0 {
			t.Errorf("Map(%#x) = (%d, %v), want ErrOutOfRange", va, n, err)
		}
		if n, err := as.Unmap(va, 1); !errors.Is(err, ErrOutOfRange) || n != 0 {
			t.Errorf("Unmap(%#x) = (%d, %v), want ErrOutOfRange", va, n, err)
		}
		if _, _, err := as.Query(va); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Query(%#x) = %v, want ErrOutOfRange", va, err)
		}
	}

	// A range whose tail leaves the space is rejected up front.
	if n, err := as.Map(as.Base()+as.Size()-pageSize, testPaddr, 2, MapOpts{}); !errors.Is(err, ErrOutOfRange) || n != 0 {
		t.Errorf("Map over the end = (%d, %v), want ErrOutOfRange", n, err)
	}
	if n, err := as.Unmap(as.Base()+as.Size()-pageSize, 2); !errors.Is(err, ErrOutOfRange) || n != 0 {
		t.Errorf("Unmap over the end = (%d, %v), want ErrOutOfRange", n, err)
	}

	// The last byte of the space is still inside it.
	if _, _, err := as.Query(as.Base() + as.Size() - 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Query(last byte) = %v, want ErrNotFound", err)
	}

	// Rejected calls have zero side effects: no allocation, no
	// shootdown.
	if allocated, _ := allocator.Stats(); allocated != 1 {
		t.Errorf("allocated %d nodes, want 1 (root only)", allocated)
	}
	if len(rec.remote) != 0 || len(rec.local) != 0 {
		t.Errorf("rejected calls issued fences: %+v / %+v", rec.remote, rec.local)
	}
}

func TestZeroCountNoOps(t *testing.T) {
	rec := interposeFences(t)
	as, allocator := newTestAspace(t, Sv39)

	if n, err := as.Map(as.Base(), testPaddr, 0, MapOpts{}); n != 0 || err != nil {
		t.Errorf("Map count=0 = (%d, %v), want (0, nil)", n, err)
	}
	if n, err := as.Unmap(as.Base(), 0); n != 0 || err != nil {
		t.Errorf("Unmap count=0 = (%d, %v), want (0, nil)", n, err)
	}
	if allocated, _ := allocator.Stats(); allocated != 1 {
		t.Errorf("allocated %d nodes, want 1 (root only)", allocated)
	}
	if len(rec.remote) != 0 || len(rec.local) != 0 {
		t.Errorf("zero-count calls issued fences: %+v / %+v", rec.remote, rec.local)
	}
}

func TestUnmapExactRange(t *testing.T) {
	rec := interposeFences(t)
	as, _ := newTestAspace(t, Sv39)

	const n = 4
	va := as.Base()
	if mapped, err := as.Map(va, testPaddr, 2*n, MapOpts{AccessType: hostarch.ReadWrite}); mapped != 2*n || err != nil {
		t.Fatalf("Map = (%d, %v)", mapped, err)
	}

	unmapped, err := as.Unmap(va, n)
	if unmapped != n || err != nil {
		t.Fatalf("Unmap = (%d, %v), want (%d, nil)", unmapped, err, n)
	}

	for k := uintptr(0); k < n; k++ {
		if _, _, err := as.Query(va + k*pageSize); !errors.Is(err, ErrNotFound) {
			t.Errorf("Query(%#x) after unmap = %v, want ErrNotFound", va+k*pageSize, err)
		}
	}
	want := make([]mapping, 0, n)
	for k := uintptr(n); k < 2*n; k++ {
		want = append(want, mapping{
			va:   va + k*pageSize,
			pa:   testPaddr + k*pageSize,
			opts: MapOpts{AccessType: hostarch.ReadWrite, Global: true},
		})
	}
	checkMappings(t, as, want)

	// Exactly the requested range was invalidated.
	if diff := cmp.Diff([]fenceRange{{va, n * pageSize}}, rec.remote); diff != "" {
		t.Errorf("remote fence mismatch (-want +got):\n%s", diff)
	}
	if len(rec.local) != n {
		t.Errorf("local fences %d, want %d", len(rec.local), n)
	}
}

func TestUnmapHole(t *testing.T) {
	rec := interposeFences(t)
	as, allocator := newTestAspace(t, Sv39)

	// Unmapping a hole succeeds, changes nothing, but still invalidates
	// the requested range conservatively.
	n, err := as.Unmap(as.Base()+mega2, 16)
	if n != 0 || err != nil {
		t.Fatalf("Unmap(hole) = (%d, %v), want (0, nil)", n, err)
	}
	if allocated, _ := allocator.Stats(); allocated != 1 {
		t.Errorf("allocated %d nodes, want 1 (root only)", allocated)
	}
	if len(rec.remote) != 1 {
		t.Errorf("remote fences %d, want 1", len(rec.remote))
	}

	// A hole between two mappings is skipped, not an error.
	va := as.Base()
	if _, err := as.Map(va, testPaddr, 1, MapOpts{AccessType: hostarch.Read}); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := as.Map(va+2*pageSize, testPaddr+2*pageSize, 1, MapOpts{AccessType: hostarch.Read}); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if n, err := as.Unmap(va, 3); n != 2 || err != nil {
		t.Errorf("Unmap across hole = (%d, %v), want (2, nil)", n, err)
	}
}

func TestMapConflict(t *testing.T) {
	interposeFences(t)
	as, _ := newTestAspace(t, Sv39)

	va := as.Base()
	if _, err := as.Map(va+pageSize, testPaddr, 1, MapOpts{AccessType: hostarch.Read}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	// Mapping over the existing page fails immediately.
	if n, err := as.Map(va+pageSize, testPaddr+mega2, 1, MapOpts{}); !errors.Is(err, ErrAlreadyExists) || n != 0 {
		t.Errorf("Map over mapping = (%d, %v), want (0, ErrAlreadyExists)", n, err)
	}

	// A multi-page map that runs into the conflict reports its partial
	// progress; the page mapped before the conflict stays mapped.
	n, err := as.Map(va, testPaddr+mega2, 2, MapOpts{AccessType: hostarch.ReadWrite})
	if !errors.Is(err, ErrAlreadyExists) || n != 1 {
		t.Fatalf("Map = (%d, %v), want (1, ErrAlreadyExists)", n, err)
	}
	checkMappings(t, as, []mapping{
		{va, testPaddr + mega2, MapOpts{AccessType: hostarch.ReadWrite, Global: true}},
		{va + pageSize, testPaddr, MapOpts{AccessType: hostarch.Read, Global: true}},
	})
}

func TestMapOutOfMemory(t *testing.T) {
	interposeFences(t)

	t.Run("no-progress", func(t *testing.T) {
		as, allocator := newTestAspace(t, Sv39)
		allocator.Limit = 2 // root + level-1 only
		n, err := as.Map(as.Base(), testPaddr, 1, MapOpts{})
		if !errors.Is(err, ErrNoMemory) || n != 0 {
			t.Fatalf("Map = (%d, %v), want (0, ErrNoMemory)", n, err)
		}

		// Raising the limit lets the same call complete; the
		// partially built intermediate chain is reused.
		allocator.Limit = 3
		if n, err := as.Map(as.Base(), testPaddr, 1, MapOpts{}); n != 1 || err != nil {
			t.Fatalf("Map after raise = (%d, %v), want (1, nil)", n, err)
		}
	})

	t.Run("partial-progress", func(t *testing.T) {
		as, allocator := newTestAspace(t, Sv39)
		allocator.Limit = 3 // root + level-1 + one level-0 node

		// Two pages fit in the first level-0 table; the third needs a
		// second node and fails.
		va := as.Base() + mega2 - 2*pageSize
		n, err := as.Map(va, testPaddr, 4, MapOpts{AccessType: hostarch.Read})
		if !errors.Is(err, ErrNoMemory) || n != 2 {
			t.Fatalf("Map = (%d, %v), want (2, ErrNoMemory)", n, err)
		}
		checkMappings(t, as, []mapping{
			{va, testPaddr, MapOpts{AccessType: hostarch.Read, Global: true}},
			{va + pageSize, testPaddr + pageSize, MapOpts{AccessType: hostarch.Read, Global: true}},
		})
	})
}

func TestSuperpage(t *testing.T) {
	rec := interposeFences(t)
	as, allocator := newTestAspace(t, Sv39)

	// Hand-install a 2 MiB superpage; Map never creates one.
	va := as.Base() + 4*mega2
	l1, err := allocator.NewPTEs()
	if err != nil {
		t.Fatalf("NewPTEs: %v", err)
	}
	as.root[vaddrToIndex(va, 2, Sv39)].Store(makeTablePTE(allocator.PhysicalFor(l1)))
	l1[vaddrToIndex(va, 1, Sv39)].Store(makeLeafPTE(testPaddr, MapOpts{AccessType: hostarch.ReadWrite, Global: true}))

	// Query resolves through the level-1 offset mask.
	pa, opts, err := as.Query(va + 0x12345)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if want := testPaddr + 0x12345; pa != want {
		t.Errorf("Query = %#x, want %#x", pa, want)
	}
	if diff := cmp.Diff(MapOpts{AccessType: hostarch.ReadWrite, Global: true}, opts); diff != "" {
		t.Errorf("opts mismatch (-want +got):\n%s", diff)
	}

	// Mapping over it conflicts; unmapping it is unsupported.
	if _, err := as.Map(va, testPaddr, 1, MapOpts{}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Map over superpage = %v, want ErrAlreadyExists", err)
	}
	if n, err := as.Unmap(va, 1); !errors.Is(err, ErrUnsupported) || n != 0 {
		t.Errorf("Unmap superpage = (%d, %v), want (0, ErrUnsupported)", n, err)
	}
	// Even the failed unmap invalidated its range.
	if len(rec.remote) == 0 {
		t.Errorf("failed unmap issued no remote fence")
	}
}

func TestNotImplemented(t *testing.T) {
	as, allocator := newTestAspace(t, Sv39)

	var user AddressSpace
	if err := user.Init(Sv39, 0x1000, 1<<30, 0, allocator); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("user Init = %v, want ErrNotImplemented", err)
	}
	if err := as.Destroy(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Destroy = %v, want ErrNotImplemented", err)
	}
	if err := ContextSwitch(as); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("ContextSwitch = %v, want ErrNotImplemented", err)
	}
	if err := ContextSwitch(nil); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("ContextSwitch(nil) = %v, want ErrNotImplemented", err)
	}
}

func TestKernelWindowPinned(t *testing.T) {
	allocator := NewRuntimeAllocator()

	defer func() {
		if recover() == nil {
			t.Errorf("Init with wrong kernel window did not panic")
		}
	}()
	var as AddressSpace
	as.Init(Sv39, Sv39.KernelBase()+pageSize, Sv39.KernelSize(), AspaceKernel, allocator)
}

func TestStaticKernelRoot(t *testing.T) {
	interposeFences(t)

	root := newAlignedPTEs()
	SetKernelPageTable(root, physicalFor(root))
	t.Cleanup(func() {
		kernelRoot = nil
		kernelRootPhys = 0
	})

	allocator := NewRuntimeAllocator()
	as, err := NewKernelAspace(Sv39, allocator)
	if err != nil {
		t.Fatalf("NewKernelAspace: %v", err)
	}
	if as.root != root {
		t.Errorf("aspace did not adopt the registered root table")
	}
	if as.RootPhysical() != physicalFor(root) {
		t.Errorf("RootPhysical = %#x, want %#x", as.RootPhysical(), physicalFor(root))
	}
	// The static root is not an allocator node.
	if allocated, _ := allocator.Stats(); allocated != 0 {
		t.Errorf("allocated %d nodes, want 0", allocated)
	}

	// The tree is still fully usable.
	if n, err := as.Map(as.Base(), testPaddr, 1, MapOpts{AccessType: hostarch.Read}); n != 1 || err != nil {
		t.Fatalf("Map = (%d, %v)", n, err)
	}
	checkMappings(t, as, []mapping{
		{as.Base(), testPaddr, MapOpts{AccessType: hostarch.Read, Global: true}},
	})
}

func TestDebugDump(t *testing.T) {
	interposeFences(t)
	as, _ := newTestAspace(t, Sv39)

	if _, err := as.Map(as.Base(), testPaddr, 1, MapOpts{AccessType: hostarch.ReadExecute}); err != nil {
		t.Fatalf("Map: %v", err)
	}

	var sb strings.Builder
	as.DebugDump(&sb)
	out := sb.String()
	for _, want := range []string{"Sv39", "table phys", "r-x", "global"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
