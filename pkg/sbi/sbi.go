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

// Package sbi implements the client side of the RISC-V Supervisor Binary
// Interface, the call gate into machine-mode firmware. Only the pieces the
// virtual-memory core consumes are implemented: the base extension for
// probing and the RFENCE extension for cross-hart translation-cache
// invalidation.
//
// Calls are synchronous: the firmware does not return control until the
// request has been carried out on the addressed harts.
package sbi

import (
	"errors"
	"fmt"
)

// Extension IDs.
const (
	extBase   = 0x10
	extRFence = 0x52464E43 // "RFNC"
)

// Base extension function IDs.
const (
	baseGetSpecVersion = 0
	baseGetImplID      = 1
	baseProbeExtension = 3
)

// RFENCE extension function IDs.
const (
	rfenceFenceI    = 0
	rfenceSFenceVMA = 1
)

// SBI standard error codes (returned in a0).
const (
	retSuccess          = 0
	retFailed           = -1
	retNotSupported     = -2
	retInvalidParam     = -3
	retDenied           = -4
	retInvalidAddress   = -5
	retAlreadyAvailable = -6
)

// Errors returned by SBI calls.
var (
	ErrFailed           = errors.New("sbi: call failed")
	ErrNotSupported     = errors.New("sbi: not supported")
	ErrInvalidParam     = errors.New("sbi: invalid parameter")
	ErrDenied           = errors.New("sbi: denied")
	ErrInvalidAddress   = errors.New("sbi: invalid address")
	ErrAlreadyAvailable = errors.New("sbi: already available")
)

func retToError(ret int64) error {
	switch ret {
	case retSuccess:
		return nil
	case retFailed:
		return ErrFailed
	case retNotSupported:
		return ErrNotSupported
	case retInvalidParam:
		return ErrInvalidParam
	case retDenied:
		return ErrDenied
	case retInvalidAddress:
		return ErrInvalidAddress
	case retAlreadyAvailable:
		return ErrAlreadyAvailable
	default:
		return fmt.Errorf("sbi: unknown error %d", ret)
	}
}

// HartMask selects the harts addressed by a remote-fence request.
type HartMask struct {
	// Mask is a bitmap of hart IDs relative to Base.
	Mask uint64

	// Base is the hart ID corresponding to bit 0 of Mask. A Base of
	// ^uint64(0) addresses every hart in the system and ignores Mask.
	Base uint64
}

// AllHarts addresses every hart in the system.
var AllHarts = HartMask{Base: ^uint64(0)}

// callFn performs the machine call. It is a variable so tests (and hosts
// without firmware) can interpose.
var callFn = machineCall

// SpecVersion returns the SBI specification version implemented by the
// firmware.
func SpecVersion() (major, minor int, err error) {
	ret, value := callFn(extBase, baseGetSpecVersion, 0, 0, 0, 0)
	if err := retToError(ret); err != nil {
		return 0, 0, err
	}
	return int(value >> 24 & 0x7f), int(value & 0xffffff), nil
}

// ProbeExtension reports whether the firmware implements the given SBI
// extension.
func ProbeExtension(eid int64) bool {
	ret, value := callFn(extBase, baseProbeExtension, uintptr(eid), 0, 0, 0)
	return ret == retSuccess && value != 0
}

// HaveRFence reports whether the firmware implements the RFENCE extension.
func HaveRFence() bool {
	return ProbeExtension(extRFence)
}

// RemoteFenceI executes fence.i on the addressed harts.
func RemoteFenceI(harts HartMask) error {
	ret, _ := callFn(extRFence, rfenceFenceI,
		uintptr(harts.Mask), uintptr(harts.Base), 0, 0)
	return retToError(ret)
}

// RemoteSFenceVMA executes sfence.vma on the addressed harts for the given
// virtual-address range, invalidating any translations they have cached for
// it. The call blocks until the firmware acknowledges completion.
func RemoteSFenceVMA(harts HartMask, start, size uintptr) error {
	ret, _ := callFn(extRFence, rfenceSFenceVMA,
		uintptr(harts.Mask), uintptr(harts.Base), start, size)
	return retToError(ret)
}
