// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package advisory

import (
	"fmt"
	"slices"
	"strings"
)

// Arch is a target CPU architecture as used in rust target triples.
type Arch string

// OS is a target operating system as used in rust target triples.
type OS string

var knownArchs = []Arch{
	"aarch64", "arm", "avr", "bpf", "hexagon", "loongarch64", "m68k", "mips", "mips32r6", "mips64",
	"mips64r6", "msp430", "nvptx64", "powerpc", "powerpc64", "riscv32", "riscv64", "s390x", "sparc",
	"sparc64", "thumbv6m", "thumbv7em", "thumbv7m", "thumbv8m", "wasm32", "wasm64", "x86", "x86_64",
}

var knownOSes = []OS{
	"aix", "android", "cuda", "dragonfly", "emscripten", "espidf", "freebsd", "fuchsia", "haiku",
	"hermit", "horizon", "illumos", "ios", "l4re", "linux", "macos", "netbsd", "none", "openbsd",
	"psp", "redox", "solaris", "solid_asp3", "tvos", "uefi", "unknown", "vita", "vxworks", "wasi",
	"watchos", "windows",
}

// ParseArch accepts known architecture names only.
func ParseArch(s string) (Arch, error) {
	a := Arch(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(knownArchs, a) {
		return "", fmt.Errorf("unknown target architecture %q", s)
	}
	return a, nil
}

// ParseOS accepts known operating system names only. "darwin" is mapped to "macos".
func ParseOS(s string) (OS, error) {
	o := OS(strings.ToLower(strings.TrimSpace(s)))
	if o == "darwin" {
		o = "macos"
	}
	if !slices.Contains(knownOSes, o) {
		return "", fmt.Errorf("unknown target os %q", s)
	}
	return o, nil
}
