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

package sbi

// machineCall on non-RISC-V hosts succeeds without doing anything; there is
// no firmware to call. Tests interpose callFn to observe requests.
func machineCall(eid, fid int64, a0, a1, a2, a3 uintptr) (ret int64, value int64) {
	return retSuccess, 0
}
