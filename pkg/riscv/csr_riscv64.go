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

//go:build riscv64

package riscv

// ReadSATP returns the current value of the satp CSR.
func ReadSATP() uint64

// WriteSATP writes the satp CSR. The hardware may legalize the value; read
// it back to learn what actually stuck.
func WriteSATP(v uint64)

// SFenceVMA invalidates cached translations for the page containing vaddr
// on the executing hart.
func SFenceVMA(vaddr uintptr)

// SFenceVMAAll invalidates all cached translations on the executing hart.
func SFenceVMAAll()
