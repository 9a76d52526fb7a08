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
	"unsafe"

	"rvmm.dev/rvmm/pkg/hostarch"
)

// newAlignedPTEs allocates a zeroed node on a page boundary. The Go heap
// only guarantees the natural alignment of PTE, so the node is carved out
// of an over-sized allocation; the interior pointer keeps the whole
// allocation live.
func newAlignedPTEs() *PTEs {
	buf := make([]byte, unsafe.Sizeof(PTEs{})+hostarch.PageSize)
	offset := -uintptr(unsafe.Pointer(&buf[0])) & hostarch.PageMask
	return (*PTEs)(unsafe.Pointer(&buf[offset]))
}

// physicalFor returns the node's own address, the identity "physical"
// address used by host-side allocators.
func physicalFor(ptes *PTEs) uintptr {
	return uintptr(unsafe.Pointer(ptes))
}
