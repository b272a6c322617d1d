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
	"kestrel/internal/compileerr"
	"kestrel/internal/sema"
	"kestrel/internal/syntax"
	"kestrel/internal/utils"
)

// builtinNames is the fixed set of identifiers that resolve to the
// runtime ABI (spec.md §6) rather than to a user-declared callable;
// they never appear in any Block's symbol table, so call lowering
// checks this set before falling back to resolveSymbol.
var builtinNames = map[string]bool{
	"write": true, "writeln": true,
	"read": true, "readf": true, "reads": true, "readsln": true,
	"strlen": true, "strcat": true, "getchr": true, "setchr": true,
}

// lowerCall lowers either a value-producing call expression or an
// explicit call statement; callers that discard the result (procedure
// calls, ExplicitCallStatement) simply ignore a nil return type.
func lowerCall(e *Emitter, cur *Block, name string, args []syntax.Expression, pos syntax.Pos) (sema.Type, error) {
	if builtinNames[name] {
		return lowerBuiltinCall(e, cur, name, args, pos)
	}
	return lowerUserCall(e, cur, name, args, pos)
}

// lowerBuiltinCall dispatches the per-argument-type write/writeln
// family (spec.md §4.5's supplemented builtin dispatch) and the
// simpler single-argument I/O and string builtins.
func lowerBuiltinCall(e *Emitter, cur *Block, name string, args []syntax.Expression, pos syntax.Pos) (sema.Type, error) {
	switch name {
	case "write", "writeln":
		for _, a := range args {
			t, err := lowerRValue(e, cur, a)
			if err != nil {
				return nil, err
			}
			switch {
			case sema.IsInteger(t):
				e.Emit("pop rdi")
				e.Emit("call builtin$write$int")
			case sema.IsDouble(t):
				e.Emit("pop rax")
				e.Emit("movq xmm0, rax")
				e.Emit("call builtin$write$double")
			case isString(t):
				e.Emit("pop rdi")
				e.Emit("call builtin$write$string")
			default:
				return nil, compileerr.New(compileerr.TypeMismatch, "%s cannot print a %s value at %s", name, t.Signature(), pos)
			}
		}
		if name == "writeln" {
			e.Emit("call builtin$writeln")
		}
		return nil, nil

	case "read", "readf", "reads", "readsln":
		if len(args) != 1 {
			return nil, compileerr.New(compileerr.ArityMismatch, "%s takes exactly one argument at %s", name, pos)
		}
		lv, ok := args[0].(syntax.MaybeLValue)
		if !ok {
			return nil, compileerr.New(compileerr.NotAnLValue, "%s requires a variable argument at %s", name, pos)
		}
		t, err := lowerLValue(e, cur, lv)
		if err != nil {
			return nil, err
		}
		wantInt, wantDouble, wantString := name == "read", name == "readf", name == "reads" || name == "readsln"
		if (wantInt && !sema.IsInteger(t)) || (wantDouble && !sema.IsDouble(t)) || (wantString && !isString(t)) {
			return nil, compileerr.New(compileerr.TypeMismatch, "%s argument has the wrong type at %s", name, pos)
		}
		e.Emit("mov rdi, %s", RegLValuePtr)
		e.Emit("call builtin$%s", name)
		return nil, nil

	case "strlen":
		if len(args) != 1 {
			return nil, compileerr.New(compileerr.ArityMismatch, "strlen takes exactly one argument at %s", pos)
		}
		t, err := lowerRValue(e, cur, args[0])
		if err != nil {
			return nil, err
		}
		if !isString(t) {
			return nil, compileerr.New(compileerr.TypeMismatch, "strlen requires a string argument at %s", pos)
		}
		e.Emit("pop rdi")
		e.Emit("call builtin$strlen")
		e.Emit("movsx rax, eax")
		e.Emit("push rax")
		return sema.Integer, nil

	case "getchr":
		if len(args) != 2 {
			return nil, compileerr.New(compileerr.ArityMismatch, "getchr takes exactly two arguments at %s", pos)
		}
		if err := lowerBuiltinArgs(e, cur, args, pos, sema.String, sema.Integer); err != nil {
			return nil, err
		}
		e.Emit("pop rsi")
		e.Emit("pop rdi")
		e.Emit("call builtin$getchr")
		e.Emit("movsx rax, al")
		e.Emit("push rax")
		return sema.Integer, nil

	case "setchr":
		if len(args) != 3 {
			return nil, compileerr.New(compileerr.ArityMismatch, "setchr takes exactly three arguments at %s", pos)
		}
		if err := lowerBuiltinArgs(e, cur, args, pos, sema.String, sema.Integer, sema.Integer); err != nil {
			return nil, err
		}
		e.Emit("pop rdx")
		e.Emit("pop rsi")
		e.Emit("pop rdi")
		e.Emit("call builtin$setchr")
		return nil, nil

	case "strcat":
		if len(args) != 2 {
			return nil, compileerr.New(compileerr.ArityMismatch, "strcat takes exactly two arguments at %s", pos)
		}
		if err := lowerBuiltinArgs(e, cur, args, pos, sema.String, sema.String); err != nil {
			return nil, err
		}
		e.Emit("pop rsi")
		e.Emit("pop rdi")
		e.Emit("call builtin$strcat")
		e.Emit("push rax")
		return sema.String, nil

	default:
		return nil, compileerr.New(compileerr.UnresolvedName, "unknown builtin %q at %s", name, pos)
	}
}

// lowerBuiltinArgs lowers args left to right, checking each against the
// corresponding want type in want (by Signature, so Integer/Double/
// String comparisons work without caring about pointer identity).
func lowerBuiltinArgs(e *Emitter, cur *Block, args []syntax.Expression, pos syntax.Pos, want ...sema.Type) error {
	for i, a := range args {
		t, err := lowerRValue(e, cur, a)
		if err != nil {
			return err
		}
		if !sema.Equal(t, want[i]) {
			return compileerr.New(compileerr.TypeMismatch, "argument %d expected %s, got %s at %s", i+1, want[i].Signature(), t.Signature(), pos)
		}
	}
	return nil
}

// lowerUserCall lowers a call to a program-declared function or
// procedure: arguments are pushed in reverse declaration order,
// followed by the static link, matching the frame layout symbol.go
// assigns (spec.md §4.2/§4.3/§4.4).
func lowerUserCall(e *Emitter, cur *Block, name string, args []syntax.Expression, pos syntax.Pos) (sema.Type, error) {
	sym, hops, ok := resolveSymbol(cur, name)
	if !ok {
		return nil, compileerr.New(compileerr.UnresolvedName, "unresolved call to %q at %s", name, pos)
	}
	fn, ok := sym.(*FunctionSymbol)
	if !ok {
		return nil, compileerr.New(compileerr.TypeMismatch, "%q is not callable at %s", name, pos)
	}
	utils.Assert(fn.Label != "", "callable %q registered without an entry label", name)
	if len(args) != len(fn.Params) {
		return nil, compileerr.New(compileerr.ArityMismatch, "%q expects %d arguments, %d given at %s", name, len(fn.Params), len(args), pos)
	}
	for i := len(fn.Params) - 1; i >= 0; i-- {
		p := fn.Params[i]
		a := args[i]
		if p.ByReference {
			lv, ok := a.(syntax.MaybeLValue)
			if !ok {
				return nil, compileerr.New(compileerr.NotAnLValue, "argument %d of %q must be a variable at %s", i+1, name, pos)
			}
			at, err := lowerLValue(e, cur, lv)
			if err != nil {
				return nil, err
			}
			if !sema.Equal(at, p.Type) {
				return nil, compileerr.New(compileerr.TypeMismatch, "argument %d of %q has type %s, expected %s at %s", i+1, name, at.Signature(), p.Type.Signature(), pos)
			}
			e.Emit("push %s", RegLValuePtr)
			continue
		}
		at, err := lowerRValue(e, cur, a)
		if err != nil {
			return nil, err
		}
		if sema.IsDouble(p.Type) && sema.IsInteger(at) {
			e.Emit("pop rax")
			e.Emit("cvtsi2sd xmm0, rax")
			e.Emit("movq rax, xmm0")
			e.Emit("push rax")
		} else if !sema.Equal(at, p.Type) {
			return nil, compileerr.New(compileerr.TypeMismatch, "argument %d of %q has type %s, expected %s at %s", i+1, name, at.Signature(), p.Type.Signature(), pos)
		}
	}
	link := frameAddr(e, hops)
	e.Emit("push %s", link)
	e.Emit("call %s", fn.Label)
	if fn.ReturnType == nil {
		return nil, nil
	}
	if sema.IsDouble(fn.ReturnType) {
		e.Emit("movq rax, xmm0")
		e.Emit("push rax")
	} else {
		e.Emit("push %s", RegReturn)
	}
	return fn.ReturnType, nil
}
