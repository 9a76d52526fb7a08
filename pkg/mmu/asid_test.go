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

package mmu

import (
	"testing"

	"rvmm.dev/rvmm/pkg/riscv"
)

// TestASIDProbe runs the boot-time ASID-width probe against simulated
// hardware of varying widths.
func TestASIDProbe(t *testing.T) {
	t.Cleanup(func() {
		riscv.SetSimulatedASIDBits(16)
		asidMask = 0
	})

	for _, tc := range []struct {
		bits uint
		want uint64
	}{
		{16, 0xffff},
		{9, 0x1ff},
		{8, 0xff},
		{1, 0x1},
		{0, 0},
	} {
		riscv.SetSimulatedASIDBits(tc.bits)

		// The probe must restore whatever satp held before it ran.
		before := uint64(0x1234)
		riscv.WriteSATP(before)

		EarlyInit()
		if got := ASIDMask(); got != tc.want {
			t.Errorf("%d ASID bits: mask = %#x, want %#x", tc.bits, got, tc.want)
		}
		if after := riscv.ReadSATP(); after != before {
			t.Errorf("%d ASID bits: probe left satp %#x, want %#x", tc.bits, after, before)
		}
	}
}
