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

import (
	"strconv"
	"strings"

	"kestrel/internal/compileerr"
	"kestrel/internal/sema"
	"kestrel/internal/syntax"
)

// Block is one lexical scope's fully-resolved symbol table together
// with the assembly it has already been lowered to — construction and
// code emission happen together, the same way the original's Block
// constructor builds its scope and emits its body in one pass (spec.md
// §4.3). This is why Block lives in codegen rather than sema: it owns
// an Emitter and a frame layout, neither of which is a pure semantic
// concept.
type Block struct {
	Parent *Block
	Depth  int
	Types  *typeEnv
	Syms   map[string]Symbol

	nextLocalOffset int // next free offset below the frame base, decreasing

	Emitter   *Emitter
	Self      *FunctionSymbol // non-nil when this block is a callable's own body
	RetOffset int             // frame slot backing Self's return value, valid when Self.ReturnType != nil
	Locals    []*VariableSymbol // this block's own local variables, in declaration order
	pr        *Program
}

// FrameLocalsSize is the byte count sub rsp must reserve for this
// block's own locals (not its parameters, which live above the frame
// base, nor the static link).
func (b *Block) FrameLocalsSize() int { return -b.nextLocalOffset }

func (b *Block) allocLocal() int {
	b.nextLocalOffset -= wordSize
	return b.nextLocalOffset
}

// buildBlock constructs one Block for sb, recursively building a child
// Block for every nested callable, and lowers sb's own body statement
// into the returned Block's Emitter. self is non-nil exactly when sb is
// a callable's body (as opposed to the program's top-level block).
func buildBlock(parent *Block, sb *syntax.Block, pr *Program, self *FunctionSymbol) (*Block, error) {
	depth := 0
	var parentTypes *typeEnv
	if parent != nil {
		depth = parent.Depth + 1
		parentTypes = parent.Types
	}
	b := &Block{
		Parent: parent,
		Depth:  depth,
		Types:  newTypeEnv(parentTypes),
		Syms:   map[string]Symbol{},
		Self:   self,
		pr:     pr,
	}
	if self != nil {
		// Set before the body is lowered, so lowerLValue can recognise an
		// assignment to the callable's own name (fn.Body == cur).
		self.Body = b
	}

	// Step 1: type aliases, in declaration order, so a later alias may
	// reference an earlier one.
	for _, ta := range sb.TypeAliases {
		t, err := resolveType(b.Types, ta.Type)
		if err != nil {
			return nil, err
		}
		b.Types.define(ta.Name, t)
	}

	// Step 2: constants, classified from their raw literal text.
	for _, c := range sb.Constants {
		sym, err := classifyConstant(b, c)
		if err != nil {
			return nil, err
		}
		if _, dup := b.Syms[c.Name]; dup {
			return nil, compileerr.New(compileerr.DuplicateMember, "duplicate declaration %q at %s", c.Name, c.Pos)
		}
		b.Syms[c.Name] = sym
	}

	// Step 3: the function/procedure's own parameters, if this block is
	// a callable body (self != nil). These occupy positive offsets above
	// the static link slot, in declaration order.
	if self != nil {
		for i, p := range self.Params {
			p.Owner = b
			if _, dup := b.Syms[p.NameStr]; dup {
				return nil, compileerr.New(compileerr.DuplicateMember, "duplicate parameter %q", p.NameStr)
			}
			b.Syms[p.NameStr] = p
			_ = i
		}
	}

	if self != nil && self.ReturnType != nil {
		b.RetOffset = b.allocLocal()
	}

	// Step 4: local variables, each given a fresh descending frame slot.
	for _, v := range sb.Variables {
		t, err := resolveType(b.Types, v.Type)
		if err != nil {
			return nil, err
		}
		if _, dup := b.Syms[v.Name]; dup {
			return nil, compileerr.New(compileerr.DuplicateMember, "duplicate declaration %q at %s", v.Name, v.Pos)
		}
		vsym := &VariableSymbol{
			NameStr: v.Name,
			Type:    t,
			Offset:  b.allocLocal(),
			Owner:   b,
		}
		b.Syms[v.Name] = vsym
		b.Locals = append(b.Locals, vsym)
	}

	// Step 5: nested callables. Each is registered before its own body is
	// built, so it can call itself recursively (the function-name-self-
	// reference rule) and so its siblings can call it regardless of
	// textual order.
	fnSyms := make([]*FunctionSymbol, 0, len(sb.Callables))
	for _, c := range sb.Callables {
		fnSym, err := makeFunctionSymbol(b, c)
		if err != nil {
			return nil, err
		}
		if _, dup := b.Syms[c.Name]; dup {
			return nil, compileerr.New(compileerr.DuplicateMember, "duplicate declaration %q at %s", c.Name, c.Pos)
		}
		b.Syms[c.Name] = fnSym
		fnSyms = append(fnSyms, fnSym)
	}
	for i, c := range sb.Callables {
		fnSym := fnSyms[i]
		childBlock, err := buildBlock(b, c.Body, pr, fnSym)
		if err != nil {
			return nil, err
		}
		fnSym.Body = childBlock
		pr.addBody(childBlock.Emitter)
	}

	// Step 6: lower this block's own body statement into its Emitter.
	tag := "program"
	if self != nil {
		tag = "proc_" + self.NameStr
	}
	b.Emitter = NewEmitter(tag)
	if err := lowerBlockBody(b, sb); err != nil {
		return nil, err
	}
	return b, nil
}

// makeFunctionSymbol resolves a callable's signature (param types,
// by-reference markers, return type) without yet building its body.
func makeFunctionSymbol(owner *Block, c *syntax.Callable) (*FunctionSymbol, error) {
	fn := &FunctionSymbol{NameStr: c.Name, Owner: owner, Label: ".Lfn_" + c.Name}
	for i, p := range c.Params {
		t, err := resolveType(owner.Types, p.Type)
		if err != nil {
			return nil, err
		}
		if !p.ByReference && !sema.AllowedPassByValue(t) {
			return nil, compileerr.New(compileerr.DisallowedByValue, "parameter %q of type %s must be passed by reference", p.Name, t.Signature())
		}
		fn.Params = append(fn.Params, &VariableSymbol{
			NameStr:     p.Name,
			Type:        t,
			Offset:      firstParamOffset + i*wordSize,
			IsParam:     true,
			ByReference: p.ByReference,
		})
	}
	if c.ReturnType != nil {
		rt, err := resolveType(owner.Types, c.ReturnType)
		if err != nil {
			return nil, err
		}
		if !sema.AllowedPassByValue(rt) {
			return nil, compileerr.New(compileerr.DisallowedByValue, "function %q cannot return type %s", c.Name, rt.Signature())
		}
		fn.ReturnType = rt
	}
	return fn, nil
}

// resolveSymbol finds name starting in b and widening outward through
// enclosing blocks, returning the symbol and how many static-link hops
// (0 = same block) separate the use from its binding (spec.md §4.3's
// deepest-binding rule).
func resolveSymbol(b *Block, name string) (Symbol, int, bool) {
	hops := 0
	for cur := b; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Syms[name]; ok {
			return sym, hops, true
		}
		hops++
	}
	return nil, 0, false
}

// classifyConstant determines a declared constant's type from its raw
// literal text (spec.md §4.3 step 3: hex/decimal integer, double, or
// quoted string), mirroring the same classification ConstantLiteral
// expressions use inline.
func classifyConstant(b *Block, c *syntax.Constant) (*ConstantSymbol, error) {
	t, iv, dv, sv, err := classifyLiteral(c.Literal)
	if err != nil {
		return nil, compileerr.New(compileerr.MiscSemantic, "bad constant %q at %s: %v", c.Name, c.Pos, err)
	}
	sym := &ConstantSymbol{NameStr: c.Name, Type: t, IntValue: iv, DoubleValue: dv}
	if t == sema.String {
		sym.StringLabel = b.pr.internString(sv)
	}
	return sym, nil
}

// classifyLiteral is the shared literal-text classifier used for both
// const declarations and inline ConstantLiteral expressions.
func classifyLiteral(lit string) (t sema.Type, iv int64, dv float64, sv string, err error) {
	if strings.HasPrefix(lit, "'") {
		sv = strings.ReplaceAll(strings.Trim(lit, "'"), "''", "'")
		return sema.String, 0, 0, sv, nil
	}
	if strings.ContainsAny(lit, ".eE") && !strings.HasPrefix(lit, "0x") && !strings.HasPrefix(lit, "0X") {
		d, perr := strconv.ParseFloat(lit, 64)
		if perr != nil {
			return nil, 0, 0, "", perr
		}
		return sema.Double, 0, d, "", nil
	}
	n, perr := strconv.ParseInt(lit, 0, 64)
	if perr != nil {
		return nil, 0, 0, "", perr
	}
	return sema.Integer, n, 0, "", nil
}
