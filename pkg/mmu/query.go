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

// queryVisitor resolves a single address. The walker only stops on
// non-pointer entries, so a valid entry here is terminal by construction,
// at whatever level it sits (a superpage resolves with that level's
// offset mask).
type queryVisitor struct {
	paddr uintptr
	opts  MapOpts
	e     error
}

func (v *queryVisitor) err() error { return v.e }

func (v *queryVisitor) visit(level, index int, pte *PTE, vaddr *uintptr) walkAction {
	if !pte.Valid() {
		v.e = ErrNotFound
		return walkHalt
	}
	v.paddr = pte.Address() | *vaddr&pageMaskAtLevel(level)
	v.opts = pte.Opts()
	return walkHalt
}

// Query returns the physical address backing vaddr and the permissions of
// its mapping. Returns ErrNotFound if nothing is mapped there.
func (as *AddressSpace) Query(vaddr uintptr) (uintptr, MapOpts, error) {
	if err := as.checkVaddr(vaddr); err != nil {
		return 0, MapOpts{}, err
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	v := new(queryVisitor)
	if err := as.walk(vaddr, v); err != nil {
		return 0, MapOpts{}, err
	}
	return v.paddr, v.opts, nil
}
