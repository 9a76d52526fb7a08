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

// Package hostarch contains host and target memory-architecture details:
// address and access-permission types and the base page geometry shared by
// every paging mode this project supports.
package hostarch

// Page geometry. RISC-V uses 4 KiB base pages in all Sv* paging modes.
const (
	// PageShift is log2(PageSize).
	PageShift = 12

	// PageSize is the size of a base page in bytes.
	PageSize = 1 << PageShift

	// PageMask masks the offset within a base page.
	PageMask = PageSize - 1

	// PTEntries is the number of entries in one page-table node. Each
	// node occupies exactly one base page of 8-byte entries.
	PTEntries = PageSize / 8

	// PTIndexBits is the number of virtual-address bits consumed by one
	// page-table level.
	PTIndexBits = 9
)
