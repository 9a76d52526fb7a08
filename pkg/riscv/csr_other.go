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

//go:build !riscv64

package riscv

import (
	"rvmm.dev/rvmm/pkg/sync"
)

// Simulated satp register for non-RISC-V hosts. The simulation preserves the
// WARL behavior of the ASID field: writes to unimplemented ASID bits read
// back as zero, which is exactly what boot-time ASID-width probing relies on.
var (
	simMu       sync.Mutex
	simSATP     uint64
	simASIDBits uint = 16
)

// SetSimulatedASIDBits configures how many ASID bits the simulated satp
// register implements. Only meaningful on non-riscv64 builds; tests use it
// to exercise the boot-time probe against different hardware widths.
func SetSimulatedASIDBits(n uint) {
	simMu.Lock()
	defer simMu.Unlock()
	if n > 16 {
		n = 16
	}
	simASIDBits = n
}

// ReadSATP returns the current value of the simulated satp register.
func ReadSATP() uint64 {
	simMu.Lock()
	defer simMu.Unlock()
	return simSATP
}

// WriteSATP writes the simulated satp register, legalizing the ASID field
// the way WARL hardware would.
func WriteSATP(v uint64) {
	simMu.Lock()
	defer simMu.Unlock()
	implemented := uint64(1)<<simASIDBits - 1
	v &^= (SATPASIDMask &^ implemented) << SATPASIDShift
	simSATP = v
}

// SFenceVMA is a no-op on hosts without a RISC-V TLB.
func SFenceVMA(vaddr uintptr) {
}

// SFenceVMAAll is a no-op on hosts without a RISC-V TLB.
func SFenceVMAAll() {
}
