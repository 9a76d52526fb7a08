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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"rvmm.dev/rvmm/pkg/hostarch"
	"rvmm.dev/rvmm/pkg/mmu"
)

// Manifest describes a page-table tree to build. Addresses are strings so
// the manifest can use hex, which is how anyone reasoning about page tables
// actually writes addresses.
//
//	mode = "sv39"
//
//	[[mapping]]
//	vaddr  = "0xffffffc000000000"
//	paddr  = "0x80200000"
//	count  = 16
//	access = "rwx"
type Manifest struct {
	Mode     string    `toml:"mode"`
	Mappings []Mapping `toml:"mapping"`
}

// Mapping is one contiguous run of page mappings.
type Mapping struct {
	Vaddr  string `toml:"vaddr"`
	Paddr  string `toml:"paddr"`
	Count  int    `toml:"count"`
	Access string `toml:"access"`
	User   bool   `toml:"user"`
}

func loadManifest(path string) (*Manifest, error) {
	m := new(Manifest)
	if _, err := toml.DecodeFile(path, m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return m, nil
}

func (m *Manifest) mode() (mmu.Mode, error) {
	switch strings.ToLower(m.Mode) {
	case "sv39", "":
		return mmu.Sv39, nil
	case "sv48":
		return mmu.Sv48, nil
	default:
		return 0, fmt.Errorf("unknown paging mode %q", m.Mode)
	}
}

// build constructs the address space the manifest describes.
func (m *Manifest) build(allocator mmu.Allocator) (*mmu.AddressSpace, error) {
	mode, err := m.mode()
	if err != nil {
		return nil, err
	}
	as, err := mmu.NewKernelAspace(mode, allocator)
	if err != nil {
		return nil, err
	}
	for i, mp := range m.Mappings {
		vaddr, err := parseAddr(mp.Vaddr)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: vaddr: %w", i, err)
		}
		paddr, err := parseAddr(mp.Paddr)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: paddr: %w", i, err)
		}
		count := mp.Count
		if count == 0 {
			count = 1
		}
		access, err := parseAccess(mp.Access)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		n, err := as.Map(vaddr, paddr, count, mmu.MapOpts{
			AccessType: access,
			User:       mp.User,
		})
		if err != nil {
			return nil, fmt.Errorf("mapping %d: mapped %d of %d pages: %w", i, n, count, err)
		}
	}
	return as, nil
}

func parseAddr(s string) (uintptr, error) {
	if s == "" {
		return 0, fmt.Errorf("missing address")
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	if hostarch.Addr(v).PageOffset() != 0 {
		return 0, fmt.Errorf("address %q is not page aligned", s)
	}
	return uintptr(v), nil
}

func parseAccess(s string) (hostarch.AccessType, error) {
	var access hostarch.AccessType
	if s == "" {
		return hostarch.Read, nil
	}
	for _, c := range s {
		switch c {
		case 'r':
			access.Read = true
		case 'w':
			access.Write = true
		case 'x':
			access.Execute = true
		case '-':
		default:
			return access, fmt.Errorf("bad access %q: unknown permission %q", s, c)
		}
	}
	return access, nil
}
