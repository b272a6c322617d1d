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
package codegen

import "kestrel/internal/sema"

// Symbol is the closed variant of named entities a Block binds:
// constants, variables/parameters, and callables. Unlike sema.Type,
// symbols are inherently tied to where they live (their Block, and for
// values, their frame slot), so they belong in codegen rather than sema
// (see DESIGN.md's package-split rationale).
type Symbol interface {
	isSymbol()
	Name() string
}

// wordSize is the slot width used for every stack value this compiler
// manipulates: a local, a parameter, a static link, or one pushed
// r-value are all exactly one machine word.
const wordSize = 8

// ConstantSymbol is a name bound to a fixed value, classified and
// stored at declaration time; it occupies no frame slot because its
// value (or its string data label) is baked directly into referencing
// instructions.
type ConstantSymbol struct {
	NameStr     string
	Type        sema.Type
	IntValue    int64
	DoubleValue float64
	// StringLabel names the .data entry holding this constant's bytes,
	// set only when Type is sema.String.
	StringLabel string
}

func (*ConstantSymbol) isSymbol()        {}
func (c *ConstantSymbol) Name() string   { return c.NameStr }

// VariableSymbol is a local variable or parameter bound to a frame
// slot, addressed at Offset(rbx) where rbx holds the defining block's
// frame base (spec.md §4.2's fixed frame-base register).
type VariableSymbol struct {
	NameStr     string
	Type        sema.Type
	Offset      int  // byte offset from the frame-base register, signed
	IsParam     bool
	ByReference bool // true => this slot holds a pointer to the actual value
	Owner       *Block
}

func (*VariableSymbol) isSymbol()      {}
func (v *VariableSymbol) Name() string { return v.NameStr }

// FunctionSymbol is a function or procedure; ReturnType is nil for a
// procedure. Label is the assembly entry point emitted for its body.
type FunctionSymbol struct {
	NameStr    string
	Params     []*VariableSymbol
	ReturnType sema.Type
	Label      string
	Owner      *Block // enclosing block, whose frame this callable's static link points at
	Body       *Block // this callable's own block, once built
}

func (*FunctionSymbol) isSymbol()      {}
func (f *FunctionSymbol) Name() string { return f.NameStr }

// IsProcedure reports whether this callable has no return value.
func (f *FunctionSymbol) IsProcedure() bool { return f.ReturnType == nil }

// staticLinkOffset is the fixed frame-relative offset at which a
// callable's static link (a pointer to its enclosing block's frame
// base) is stored, immediately below the return address and saved rbp.
const staticLinkOffset = 16

// firstParamOffset is where the first formal parameter lives, directly
// above the static link slot.
const firstParamOffset = staticLinkOffset + wordSize
