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
	"rvmm.dev/rvmm/pkg/riscv"
	"rvmm.dev/rvmm/pkg/sbi"
)

// Fence indirection points. Tests interpose these to account for
// invalidation traffic without firmware underneath.
var (
	remoteFenceFn   = sbi.RemoteSFenceVMA
	localFenceFn    = riscv.SFenceVMA
	localFenceAllFn = riscv.SFenceVMAAll
)

// FlushTLBRange invalidates the translations for count pages starting at
// vaddr on every hart. The remote fence is addressed to all harts; whether
// that covers the issuing hart is the firmware's business, so the local
// TLB is additionally fenced page by page. The call returns only once the
// firmware has acknowledged the remote request.
func FlushTLBRange(vaddr uintptr, count int) {
	if count == 0 {
		return
	}

	// TODO: track which harts have observed each address space and
	// address the fence to those instead of everyone.
	if err := remoteFenceFn(sbi.AllHarts, vaddr, uintptr(count)*hostarch.PageSize); err != nil {
		log.Warningf("mmu: remote sfence.vma [%#x, +%d pages) failed: %v", vaddr, count, err)
	}

	for ; count > 0; count-- {
		localFenceFn(vaddr)
		vaddr += hostarch.PageSize
	}
}

// FlushTLBAll invalidates all translations on every hart.
func FlushTLBAll() {
	if err := remoteFenceFn(sbi.AllHarts, 0, ^uintptr(0)); err != nil {
		log.Warningf("mmu: global remote sfence.vma failed: %v", err)
	}
	localFenceAllFn()
}
