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
	"math"

	"kestrel/internal/compileerr"
	"kestrel/internal/sema"
	"kestrel/internal/syntax"
	"kestrel/internal/utils"
)

// Expression lowering follows spec.md §4.4's value-category split:
// emit_lvalue leaves the address of a storage location in RegLValuePtr,
// emit_rvalue pushes one word carrying a value onto the real machine
// stack. A single invariant ties every lvalue together regardless of
// type: the address left in RegLValuePtr always points directly at the
// value's own storage — for a scalar that's the word itself, for a
// heap-owning aggregate (String/Record/Array) that's the first byte of
// its buffer, never a slot that merely holds a pointer to it. Frame
// slots for aggregate locals/params DO hold a pointer rather than the
// buffer inline, so resolving such an lvalue loads that pointer once;
// RecordAccess/ArrayAccess/PointerDereference all already land on a
// direct address by construction, so they need no further indirection.

func isAggregate(t sema.Type) bool { return sema.NeedsFinalize(t) }

// lowerLValue emits code leaving expr's storage address in
// RegLValuePtr and returns its static type.
func lowerLValue(e *Emitter, cur *Block, expr syntax.MaybeLValue) (sema.Type, error) {
	switch v := expr.(type) {
	case *syntax.Identifier:
		sym, hops, ok := resolveSymbol(cur, v.Name)
		if !ok {
			return nil, compileerr.New(compileerr.UnresolvedName, "unresolved name %q at %s", v.Name, v.Pos)
		}
		switch s := sym.(type) {
		case *VariableSymbol:
			base := frameAddr(e, hops)
			addr := slot(base, s.Offset)
			if s.ByReference || isAggregate(s.Type) {
				e.Emit("mov %s, %s", RegLValuePtr, addr)
			} else {
				e.Emit("lea %s, %s", RegLValuePtr, addr)
			}
			return s.Type, nil
		case *FunctionSymbol:
			if s.Body == cur && s.ReturnType != nil {
				e.Emit("lea %s, [%s%s]", RegLValuePtr, RegFrameBase, offsetSuffix(cur.RetOffset))
				return s.ReturnType, nil
			}
			return nil, compileerr.New(compileerr.NotAnLValue, "callable %q is not assignable at %s", v.Name, v.Pos)
		default:
			return nil, compileerr.New(compileerr.NotAnLValue, "%q is not assignable at %s", v.Name, v.Pos)
		}

	case *syntax.RecordAccess:
		baseType, err := lowerLValue(e, cur, v.LV)
		if err != nil {
			return nil, err
		}
		rec, ok := baseType.(*sema.Record)
		if !ok {
			return nil, compileerr.New(compileerr.TypeMismatch, "%s is not a record at %s", baseType.Signature(), v.Pos)
		}
		field, ok := rec.Field(v.Field)
		if !ok {
			return nil, compileerr.New(compileerr.UnresolvedName, "no field %q at %s", v.Field, v.Pos)
		}
		e.Emit("lea %s, [%s+%d]", RegLValuePtr, RegLValuePtr, field.Index*wordSize)
		return field.Type, nil

	case *syntax.ArrayAccess:
		baseType, err := lowerLValue(e, cur, v.LV)
		if err != nil {
			return nil, err
		}
		arr, ok := baseType.(*sema.Array)
		if !ok {
			return nil, compileerr.New(compileerr.TypeMismatch, "%s is not an array at %s", baseType.Signature(), v.Pos)
		}
		if len(v.Index) != len(arr.Bounds) {
			return nil, compileerr.New(compileerr.ArityMismatch, "array has %d dimensions, %d indices given at %s", len(arr.Bounds), len(v.Index), v.Pos)
		}
		e.Emit("push %s", RegLValuePtr) // save buffer base across index evaluation
		if err := lowerArrayOffset(e, cur, arr, v.Index); err != nil {
			return nil, err
		}
		e.Emit("pop %s", "rdi")
		e.Emit("lea %s, [rdi+r12]", RegLValuePtr)
		return arr.Element, nil

	case *syntax.PointerDereference:
		t, err := lowerRValue(e, cur, v.Operand)
		if err != nil {
			return nil, err
		}
		ptr, ok := t.(*sema.Pointer)
		if !ok {
			return nil, compileerr.New(compileerr.TypeMismatch, "%s is not a pointer at %s", t.Signature(), v.Pos)
		}
		e.Emit("pop %s", RegLValuePtr)
		return ptr.Base, nil

	default:
		return nil, compileerr.New(compileerr.NotAnLValue, "expression is not assignable")
	}
}

// lowerArrayOffset evaluates every dimension's index expression
// (reversed-then-forward order, matching how the original evaluates
// rightmost dimensions first but combines offsets left to right) and
// leaves the flat byte offset into arr's buffer in r12, bound-checking
// each dimension along the way.
func lowerArrayOffset(e *Emitter, cur *Block, arr *sema.Array, index []syntax.Expression) error {
	for i := len(index) - 1; i >= 0; i-- {
		t, err := lowerRValue(e, cur, index[i])
		if err != nil {
			return err
		}
		if !sema.IsInteger(t) {
			return compileerr.New(compileerr.TypeMismatch, "array index must be integer, got %s", t.Signature())
		}
	}
	e.Emit("xor r12, r12")
	for i, bound := range arr.Bounds {
		e.Emit("pop rax")
		e.Emit("sub rax, %d", bound.Min)
		e.Emit("push rax") // the check call below clobbers rax
		e.Emit("mov rdi, rax")
		e.Emit("xor esi, esi")
		e.Emit("mov rdx, %d", bound.Size()-1)
		e.Emit("call builtin$checkarrayindex") // (index, lo, hi)
		e.Emit("pop rax")
		if i == 0 {
			e.Emit("mov r12, rax")
		} else {
			e.Emit("imul r12, r12, %d", bound.Size())
			e.Emit("add r12, rax")
		}
	}
	e.Emit("imul r12, r12, %d", wordSize)
	return nil
}

func offsetSuffix(offset int) string {
	if offset >= 0 {
		return "+" + itoaInt(offset)
	}
	return itoaInt(offset)
}

func itoaInt(v int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// frameAddr leaves, in a register, the frame base reached by chasing
// hops static links up from the block currently executing. hops==0
// returns RegFrameBase itself without touching it; otherwise the chase
// happens in rax, which lowerLValue/lowerRValue callers must treat as
// clobbered.
func frameAddr(e *Emitter, hops int) string {
	if hops == 0 {
		return RegFrameBase
	}
	e.Emit("mov rax, %s", RegFrameBase)
	for i := 0; i < hops; i++ {
		e.Emit("mov rax, [rax+%d]", staticLinkOffset)
	}
	return "rax"
}

// lowerRValue emits code that pushes expr's value as one word onto the
// real machine stack and returns its static type. For String/Record/
// Array results, the pushed word is always a freshly owned buffer
// pointer: every read of an aggregate value deep-copies, so ownership
// at the destination of any subsequent assignment is never ambiguous.
func lowerRValue(e *Emitter, cur *Block, expr syntax.Expression) (sema.Type, error) {
	switch v := expr.(type) {
	case *syntax.ConstantLiteral:
		return lowerLiteral(e, cur, v.Literal)

	case *syntax.Identifier:
		sym, hops, ok := resolveSymbol(cur, v.Name)
		if !ok {
			return nil, compileerr.New(compileerr.UnresolvedName, "unresolved name %q at %s", v.Name, v.Pos)
		}
		if cs, ok := sym.(*ConstantSymbol); ok {
			return lowerConstantSymbol(e, cs)
		}
		t, err := lowerLValue(e, cur, identLValue(cur, v))
		_ = hops
		if err != nil {
			return nil, err
		}
		return loadRValueFromAddr(e, t)

	case *syntax.RecordAccess:
		t, err := lowerLValue(e, cur, v)
		if err != nil {
			return nil, err
		}
		return loadRValueFromAddr(e, t)

	case *syntax.ArrayAccess:
		t, err := lowerLValue(e, cur, v)
		if err != nil {
			return nil, err
		}
		return loadRValueFromAddr(e, t)

	case *syntax.PointerDereference:
		t, err := lowerLValue(e, cur, v)
		if err != nil {
			return nil, err
		}
		return loadRValueFromAddr(e, t)

	case *syntax.BinaryOp:
		return lowerBinaryOp(e, cur, v)

	case *syntax.UnaryOp:
		return lowerUnaryOp(e, cur, v)

	case *syntax.CallWithArguments:
		t, err := lowerCall(e, cur, v.Name, v.Args, v.Pos)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, compileerr.New(compileerr.TypeMismatch, "procedure %q used as a value at %s", v.Name, v.Pos)
		}
		return t, nil

	default:
		return nil, compileerr.New(compileerr.MiscSemantic, "unhandled expression form %T", expr)
	}
}

// identLValue re-exposes an Identifier as its own MaybeLValue view; it
// exists only so lowerRValue can reuse lowerLValue's symbol handling
// for the VariableSymbol/FunctionSymbol-self-reference cases without
// duplicating it.
func identLValue(cur *Block, id *syntax.Identifier) syntax.MaybeLValue { return id }

// loadRValueFromAddr reads the value currently addressed by
// RegLValuePtr and pushes it: scalars are copied as-is, aggregates are
// deep-copied into a fresh buffer first.
func loadRValueFromAddr(e *Emitter, t sema.Type) (sema.Type, error) {
	if !isAggregate(t) {
		e.Emit("push qword ptr [%s]", RegLValuePtr)
		return t, nil
	}
	if isString(t) {
		// RegLValuePtr (r14) is callee-saved, so it survives both calls below
		// without needing to be saved across them.
		e.Emit("mov rdi, %s", RegLValuePtr)
		e.Emit("call builtin$strlen")
		e.Emit("inc eax")
		e.Emit("mov rsi, rax") // size = len+1
		e.Emit("mov rdi, 0")   // selector: malloc(rsi)
		e.Emit("call builtin$callsysv")
		e.Emit("mov r12, rax") // r12 = new buffer ptr
		e.Emit("mov rsi, r12")
		e.Emit("mov rdx, %s", RegLValuePtr)
		e.Emit("mov rdi, 2") // selector: strcpy(rsi=dst, rdx=src)
		e.Emit("call builtin$callsysv")
		e.Emit("push rax")
		return t, nil
	}
	size := aggregateByteSize(t)
	e.Emit("mov rsi, %d", size)
	e.Emit("mov rdi, 0") // selector: malloc(rsi)
	e.Emit("call builtin$callsysv")
	e.Emit("mov r13, rax")
	n := size / wordSize
	for i := 0; i < n; i++ {
		e.Emit("mov rax, [%s+%d]", RegLValuePtr, i*wordSize)
		e.Emit("mov [r13+%d], rax", i*wordSize)
	}
	e.Emit("push r13")
	return t, nil
}

func lowerConstantSymbol(e *Emitter, c *ConstantSymbol) (sema.Type, error) {
	switch {
	case sema.IsInteger(c.Type):
		e.Emit("mov rax, %d", c.IntValue)
		e.Emit("push rax")
	case sema.IsDouble(c.Type):
		e.Emit("mov rax, %d # %s", int64(math.Float64bits(c.DoubleValue)), utils.Float64ToHex(c.DoubleValue))
		e.Emit("push rax")
	default:
		emitDuplicateFromLabel(e, c.StringLabel)
	}
	return c.Type, nil
}

func lowerLiteral(e *Emitter, cur *Block, lit string) (sema.Type, error) {
	t, iv, dv, sv, err := classifyLiteral(lit)
	if err != nil {
		return nil, compileerr.New(compileerr.MiscSemantic, "bad literal %q: %v", lit, err)
	}
	switch {
	case t == sema.Integer:
		e.Emit("mov rax, %d", iv)
		e.Emit("push rax")
	case t == sema.Double:
		e.Emit("mov rax, %d # %s", int64(math.Float64bits(dv)), utils.Float64ToHex(dv))
		e.Emit("push rax")
	default:
		label := cur.pr.internString(sv)
		emitDuplicateFromLabel(e, label)
	}
	return t, nil
}

func emitDuplicateFromLabel(e *Emitter, label string) {
	e.Emit("lea rdi, %s[rip]", label)
	e.Emit("call builtin$strlen")
	e.Emit("inc eax")
	e.Emit("mov rsi, rax") // size = len+1
	e.Emit("mov rdi, 0")   // selector: malloc(rsi)
	e.Emit("call builtin$callsysv")
	e.Emit("mov r12, rax") // r12 = new buffer ptr
	e.Emit("mov rsi, r12")
	e.Emit("lea rdx, %s[rip]", label)
	e.Emit("mov rdi, 2") // selector: strcpy(rsi=dst, rdx=src)
	e.Emit("call builtin$callsysv")
	e.Emit("push rax")
}

// ensureDouble coerces an integer raw-bit word already popped into reg
// into the matching xmm register, leaving doubles untouched.
func ensureDouble(e *Emitter, t sema.Type, gpr, xmm string) {
	if sema.IsInteger(t) {
		e.Emit("cvtsi2sd %s, %s", xmm, gpr)
	} else {
		e.Emit("movq %s, %s", xmm, gpr)
	}
}

func lowerBinaryOp(e *Emitter, cur *Block, v *syntax.BinaryOp) (sema.Type, error) {
	lt, err := lowerRValue(e, cur, v.LHS)
	if err != nil {
		return nil, err
	}
	rt, err := lowerRValue(e, cur, v.RHS)
	if err != nil {
		return nil, err
	}

	switch v.Op {
	case syntax.OpDiv, syntax.OpMod, syntax.OpOr, syntax.OpXor, syntax.OpAnd, syntax.OpLeftShift, syntax.OpRightShift:
		if !sema.IsInteger(lt) || !sema.IsInteger(rt) {
			return nil, compileerr.New(compileerr.TypeMismatch, "%s requires integer operands at %s", v.Op, v.Pos)
		}
		e.Emit("pop rcx")
		e.Emit("pop rax")
		switch v.Op {
		case syntax.OpDiv:
			e.Emit("cqo")
			e.Emit("idiv rcx")
		case syntax.OpMod:
			e.Emit("cqo")
			e.Emit("idiv rcx")
			e.Emit("mov rax, rdx")
		case syntax.OpOr:
			e.Emit("or rax, rcx")
		case syntax.OpXor:
			e.Emit("xor rax, rcx")
		case syntax.OpAnd:
			e.Emit("and rax, rcx")
		case syntax.OpLeftShift:
			e.Emit("sal rax, cl")
		case syntax.OpRightShift:
			e.Emit("sar rax, cl")
		}
		e.Emit("push rax")
		return sema.Integer, nil
	}

	if !sema.IsNumeric(lt) || !sema.IsNumeric(rt) {
		return nil, compileerr.New(compileerr.TypeMismatch, "%s requires numeric operands, got %s and %s at %s", v.Op, lt.Signature(), rt.Signature(), v.Pos)
	}

	useDouble := v.Op == syntax.OpSlash || sema.IsDouble(lt) || sema.IsDouble(rt)
	if useDouble {
		e.Emit("pop rcx")
		e.Emit("pop rax")
		ensureDouble(e, lt, "rax", "xmm0")
		ensureDouble(e, rt, "rcx", "xmm1")
		switch v.Op {
		case syntax.OpPlus:
			e.Emit("addsd xmm0, xmm1")
		case syntax.OpMinus:
			e.Emit("subsd xmm0, xmm1")
		case syntax.OpTimes:
			e.Emit("mulsd xmm0, xmm1")
		case syntax.OpSlash:
			e.Emit("divsd xmm0, xmm1")
		default:
			e.Emit("ucomisd xmm0, xmm1")
			emitSetCC(e, v.Op, true)
			e.Emit("push rax")
			return sema.Integer, nil
		}
		e.Emit("movq rax, xmm0")
		e.Emit("push rax")
		return sema.Double, nil
	}

	e.Emit("pop rcx")
	e.Emit("pop rax")
	switch v.Op {
	case syntax.OpPlus:
		e.Emit("add rax, rcx")
	case syntax.OpMinus:
		e.Emit("sub rax, rcx")
	case syntax.OpTimes:
		e.Emit("imul rax, rcx")
	default:
		e.Emit("cmp rax, rcx")
		emitSetCC(e, v.Op, false)
		e.Emit("push rax")
		return sema.Integer, nil
	}
	e.Emit("push rax")
	return sema.Integer, nil
}

func emitSetCC(e *Emitter, op syntax.BinaryOperator, float bool) {
	var cc string
	switch op {
	case syntax.OpEqual:
		cc = "e"
	case syntax.OpNotEqual:
		cc = "ne"
	case syntax.OpLessThan:
		if float {
			cc = "b"
		} else {
			cc = "l"
		}
	case syntax.OpGreaterThan:
		if float {
			cc = "a"
		} else {
			cc = "g"
		}
	case syntax.OpLessOrEqual:
		if float {
			cc = "be"
		} else {
			cc = "le"
		}
	case syntax.OpGreaterOrEqual:
		if float {
			cc = "ae"
		} else {
			cc = "ge"
		}
	default:
		cc = "e"
	}
	e.Emit("set%s al", cc)
	e.Emit("movzx eax, al")
}

func lowerUnaryOp(e *Emitter, cur *Block, v *syntax.UnaryOp) (sema.Type, error) {
	if v.Op == syntax.OpAt {
		lv, ok := v.Operand.(syntax.MaybeLValue)
		if !ok {
			return nil, compileerr.New(compileerr.NotAnLValue, "@ requires an assignable operand at %s", v.Pos)
		}
		t, err := lowerLValue(e, cur, lv)
		if err != nil {
			return nil, err
		}
		e.Emit("push %s", RegLValuePtr)
		return sema.NewPointer(t), nil
	}

	t, err := lowerRValue(e, cur, v.Operand)
	if err != nil {
		return nil, err
	}
	switch v.Op {
	case syntax.OpNot:
		if !sema.IsInteger(t) {
			return nil, compileerr.New(compileerr.TypeMismatch, "not requires an integer operand at %s", v.Pos)
		}
		e.Emit("pop rax")
		e.Emit("cmp rax, 0")
		e.Emit("sete al")
		e.Emit("movzx eax, al")
		e.Emit("push rax")
		return sema.Integer, nil
	case syntax.OpUnaryPlus:
		if !sema.IsNumeric(t) {
			return nil, compileerr.New(compileerr.TypeMismatch, "unary + requires a numeric operand at %s", v.Pos)
		}
		return t, nil
	case syntax.OpUnaryMinus:
		if !sema.IsNumeric(t) {
			return nil, compileerr.New(compileerr.TypeMismatch, "unary - requires a numeric operand at %s", v.Pos)
		}
		if sema.IsDouble(t) {
			e.Emit("pop rax")
			e.Emit("movq xmm0, rax")
			e.Emit("pxor xmm1, xmm1")
			e.Emit("subsd xmm1, xmm0")
			e.Emit("movq rax, xmm1")
			e.Emit("push rax")
		} else {
			e.Emit("pop rax")
			e.Emit("neg rax")
			e.Emit("push rax")
		}
		return t, nil
	default:
		return nil, compileerr.New(compileerr.MiscSemantic, "unhandled unary operator %s", v.Op)
	}
}
