// Copyright (c) 2026 The Kestrel Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package utils collects small invariant-checking and numeric helpers
// shared across the compiler packages.
package utils

import (
	"fmt"
	"math"
)

// Assert panics with a formatted message when cond is false. It is for
// conditions the compiler's own invariants guarantee, never for
// user-source errors (those go through internal/compileerr instead).
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Unimplement marks a code path deliberately not yet written.
func Unimplement() {
	panic("not implemented yet")
}

// ShouldNotReachHere marks a switch arm or branch the caller's own
// invariants rule out.
func ShouldNotReachHere() {
	panic("should not reach here")
}

// Align16 rounds n up to the next multiple of 16, the stack alignment
// the System V x86-64 ABI requires at a call instruction.
func Align16(n int) int {
	return (n + 15) &^ 15
}

// Float64ToHex renders f's raw bit pattern as a 0x-prefixed hex
// literal, used to keep emitted double constants exact and greppable
// in the generated assembly's comments.
func Float64ToHex(f float64) string {
	return fmt.Sprintf("0x%x", math.Float64bits(f))
}
