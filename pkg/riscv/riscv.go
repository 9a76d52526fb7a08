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

// Package riscv provides access to RISC-V privileged-architecture state:
// the satp address-translation control register and the local sfence.vma
// translation-cache invalidation primitives.
//
// On riscv64 these are backed by the real instructions. On every other
// platform the package maintains a simulated satp register with the same
// WARL (write-any, read-legal) field behavior, so code that probes or
// programs the MMU can run under the host test toolchain.
package riscv

// satp register layout (RV64).
const (
	// SATPModeBare disables translation.
	SATPModeBare = 0

	// SATPModeSv39 selects 39-bit, 3-level translation.
	SATPModeSv39 = 8

	// SATPModeSv48 selects 48-bit, 4-level translation.
	SATPModeSv48 = 9

	// SATPModeShift is the bit position of the MODE field.
	SATPModeShift = 60

	// SATPASIDShift is the bit position of the ASID field.
	SATPASIDShift = 44

	// SATPASIDMask is the maximum width of the ASID field. The
	// implemented width is discovered at boot by probing which bits
	// stick.
	SATPASIDMask = 0xffff

	// SATPPPNMask masks the physical page number of the root table.
	SATPPPNMask = (1 << 44) - 1
)

// SATP encodes a satp value selecting the given translation mode, address
// space identifier and root page-table physical address. root must be
// page-aligned.
func SATP(mode uint64, asid uint16, root uintptr) uint64 {
	if root&0xfff != 0 {
		panic("riscv: satp root table is not page aligned")
	}
	return mode<<SATPModeShift |
		uint64(asid)<<SATPASIDShift |
		(uint64(root)>>12)&SATPPPNMask
}
