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

// lowerBlockBody emits b's prologue, its locals' initialization, its
// single body statement, its locals' finalization and its epilogue, in
// that order (spec.md §4.3's construction-order rule). It is called
// once per Block, whether b is the program's top-level scope or a
// callable's own body — the two differ only in how many words the
// epilogue's ret pops off after the return address.
func lowerBlockBody(b *Block, sb *syntax.Block) error {
	if b.Self != nil {
		b.Emitter.EmitLabel(b.Self.Label)
	} else {
		b.Emitter.EmitLabel(".Lprogram_entry")
	}
	b.Emitter.Emit("push rbp")
	b.Emitter.Emit("mov rbp, rsp")
	b.Emitter.Emit("push %s", RegFrameBase)
	b.Emitter.Emit("mov %s, rbp", RegFrameBase)
	if size := utils.Align16(b.FrameLocalsSize()); size > 0 {
		b.Emitter.Emit("sub rsp, %d", size)
	}

	for _, v := range b.Locals {
		emitInitializeSlot(b.Emitter, v.Type, RegFrameBase, v.Offset)
	}

	if err := lowerStmt(b.Emitter, b, sb.Body); err != nil {
		return err
	}

	for i := len(b.Locals) - 1; i >= 0; i-- {
		v := b.Locals[i]
		emitFinalizeSlot(b.Emitter, v.Type, RegFrameBase, v.Offset)
	}

	if b.Self != nil && b.Self.ReturnType != nil {
		if sema.IsDouble(b.Self.ReturnType) {
			b.Emitter.Emit("movq xmm0, [%s%s]", RegFrameBase, offsetSuffix(b.RetOffset))
		} else {
			b.Emitter.Emit("mov %s, [%s%s]", RegReturn, RegFrameBase, offsetSuffix(b.RetOffset))
		}
	}

	b.Emitter.Emit("mov rsp, %s", RegFrameBase)
	b.Emitter.Emit("pop %s", RegFrameBase)
	b.Emitter.Emit("pop rbp")
	if b.Self != nil {
		popWords := len(b.Self.Params) + 1 // +1 for the static link
		b.Emitter.Emit("ret %d", popWords*wordSize)
	} else {
		b.Emitter.Emit("ret")
	}
	return nil
}

// lowerStmt lowers one statement into e, within the scope cur.
func lowerStmt(e *Emitter, cur *Block, s syntax.Statement) error {
	switch v := s.(type) {
	case *syntax.EmptyStatement:
		return nil

	case *syntax.CompoundStatement:
		for _, inner := range v.Statements {
			if err := lowerStmt(e, cur, inner); err != nil {
				return err
			}
		}
		return nil

	case *syntax.AssignStatement:
		lt, err := lowerLValue(e, cur, v.LHS)
		if err != nil {
			return err
		}
		e.Emit("push %s", RegLValuePtr) // the assignment target survives RHS evaluation on the real stack
		rt, err := lowerRValue(e, cur, v.RHS)
		if err != nil {
			return err
		}
		if !assignable(lt, rt) {
			return compileerr.New(compileerr.TypeMismatch, "cannot assign %s to %s at %s", rt.Signature(), lt.Signature(), v.Pos)
		}
		if sema.IsDouble(lt) && sema.IsInteger(rt) {
			e.Emit("pop rax")
			e.Emit("cvtsi2sd xmm0, rax")
			e.Emit("movq rax, xmm0")
			e.Emit("push rax")
		}
		e.Emit("pop rdi") // rdi = the word to store (raw value, or owned buffer pointer)
		e.Emit("pop %s", RegLValuePtr)
		e.Emit("push rdi")
		assignThroughLValuePtr(e, lt)
		return nil

	case *syntax.ExplicitCallStatement:
		t, err := lowerCall(e, cur, v.Name, v.Args, v.Pos)
		if err != nil {
			return err
		}
		if t != nil {
			// a function called as a statement: drop its pushed result
			if isAggregate(t) {
				e.Emit("pop rsi")
				e.Emit("mov rdi, 1") // selector: free(rsi)
				e.Emit("call builtin$callsysv")
			} else {
				e.Emit("add rsp, %d", wordSize)
			}
		}
		return nil

	case *syntax.ExpressionStatement:
		t, err := lowerRValue(e, cur, v.Expr)
		if err != nil {
			return err
		}
		if isAggregate(t) {
			e.Emit("pop rsi")
			e.Emit("mov rdi, 1") // selector: free(rsi); discard an unused aggregate result
			e.Emit("call builtin$callsysv")
		} else {
			e.Emit("add rsp, %d", wordSize)
		}
		return nil

	case *syntax.IfStatement:
		return lowerIf(e, cur, v)

	case *syntax.WhileStatement:
		return lowerWhile(e, cur, v)

	case *syntax.RepeatStatement:
		return lowerRepeat(e, cur, v)

	case *syntax.ForStatement:
		return lowerFor(e, cur, v)

	default:
		return compileerr.New(compileerr.MiscSemantic, "unhandled statement form %T", s)
	}
}

// assignable reports whether a value of type rt may be stored into a
// slot of type lt: exact structural match, or the Integer-to-Double
// numeric coercion spec.md allows on assignment.
func assignable(lt, rt sema.Type) bool {
	if sema.Equal(lt, rt) {
		return true
	}
	return sema.IsDouble(lt) && sema.IsInteger(rt)
}

// assignThroughLValuePtr stores the word on top of the real stack into
// the address in RegLValuePtr for type t, leaving the stack balanced.
func assignThroughLValuePtr(e *Emitter, t sema.Type) {
	if !isAggregate(t) {
		e.Emit("pop rax")
		e.Emit("mov qword ptr [%s], rax", RegLValuePtr)
		return
	}
	e.Emit("pop r12") // r12 = new owned buffer pointer (survives the free call below)
	e.Emit("mov rsi, qword ptr [%s]", RegLValuePtr)
	e.Emit("mov rdi, 1") // selector: free(rsi), releasing the destination's previous buffer
	e.Emit("call builtin$callsysv")
	e.Emit("mov qword ptr [%s], r12", RegLValuePtr)
}

// lowerCondition lowers cond, which must be Integer-typed, and leaves
// its truth value as a comparison against zero ready for a jcc.
func lowerCondition(e *Emitter, cur *Block, cond syntax.Expression, pos syntax.Pos) error {
	t, err := lowerRValue(e, cur, cond)
	if err != nil {
		return err
	}
	if !sema.IsInteger(t) {
		return compileerr.New(compileerr.NonIntegerCondition, "condition must be integer, got %s at %s", t.Signature(), pos)
	}
	e.Emit("pop rax")
	e.Emit("cmp rax, 0")
	return nil
}

func lowerIf(e *Emitter, cur *Block, v *syntax.IfStatement) error {
	if err := lowerCondition(e, cur, v.Cond, v.Pos); err != nil {
		return err
	}
	elseLabel := NewEmitter("else").Label()
	endLabel := NewEmitter("endif").Label()
	e.Emit("je %s", elseLabel)
	if err := lowerStmt(e, cur, v.Then); err != nil {
		return err
	}
	e.Emit("jmp %s", endLabel)
	e.EmitLabel(elseLabel)
	if v.Else != nil {
		if err := lowerStmt(e, cur, v.Else); err != nil {
			return err
		}
	}
	e.EmitLabel(endLabel)
	return nil
}

// lowerWhile lowers a pre-tested loop, reusing the top-of-loop label a
// fresh Emitter hands out purely for its unique id (the self-
// referential-label trick the original relies on to avoid a separate
// label allocator).
func lowerWhile(e *Emitter, cur *Block, v *syntax.WhileStatement) error {
	top := NewEmitter("while_top").Label()
	bottom := NewEmitter("while_bottom").Label()
	e.EmitLabel(top)
	if err := lowerCondition(e, cur, v.Cond, v.Pos); err != nil {
		return err
	}
	e.Emit("je %s", bottom)
	if err := lowerStmt(e, cur, v.Body); err != nil {
		return err
	}
	e.Emit("jmp %s", top)
	e.EmitLabel(bottom)
	return nil
}

// lowerRepeat lowers a post-tested loop that runs until Cond becomes
// non-zero (spec.md's resolution of the repeat/until open question;
// see DESIGN.md).
func lowerRepeat(e *Emitter, cur *Block, v *syntax.RepeatStatement) error {
	top := NewEmitter("repeat_top").Label()
	e.EmitLabel(top)
	if err := lowerStmt(e, cur, v.Body); err != nil {
		return err
	}
	if err := lowerCondition(e, cur, v.Cond, v.Pos); err != nil {
		return err
	}
	e.Emit("je %s", top)
	return nil
}

func lowerFor(e *Emitter, cur *Block, v *syntax.ForStatement) error {
	sym, hops, ok := resolveSymbol(cur, v.Var)
	if !ok {
		return compileerr.New(compileerr.UnresolvedName, "unresolved loop variable %q at %s", v.Var, v.Pos)
	}
	vs, ok := sym.(*VariableSymbol)
	if !ok || !sema.IsInteger(vs.Type) {
		return compileerr.New(compileerr.TypeMismatch, "for-loop variable %q must be an integer variable at %s", v.Var, v.Pos)
	}

	it, err := lowerRValue(e, cur, v.Initial)
	if err != nil {
		return err
	}
	if !sema.IsInteger(it) {
		return compileerr.New(compileerr.TypeMismatch, "for-loop initial value must be integer at %s", v.Pos)
	}
	e.Emit("pop rcx")
	base := frameAddr(e, hops)
	e.Emit("mov qword ptr %s, rcx", slot(base, vs.Offset))

	ft, err := lowerRValue(e, cur, v.Final)
	if err != nil {
		return err
	}
	if !sema.IsInteger(ft) {
		return compileerr.New(compileerr.TypeMismatch, "for-loop final value must be integer at %s", v.Pos)
	}
	// The final value is evaluated exactly once and stays on the real
	// stack for the loop's lifetime; each iteration peeks it rather than
	// popping, and it is dropped once on exit below.

	top := NewEmitter("for_top").Label()
	bottom := NewEmitter("for_bottom").Label()
	e.EmitLabel(top)

	base = frameAddr(e, hops)
	e.Emit("mov rcx, qword ptr [rsp]")
	e.Emit("mov rax, qword ptr %s", slot(base, vs.Offset))
	e.Emit("cmp rax, rcx")
	if v.Direction == syntax.ForUp {
		e.Emit("jg %s", bottom)
	} else {
		e.Emit("jl %s", bottom)
	}

	if err := lowerStmt(e, cur, v.Body); err != nil {
		return err
	}

	base = frameAddr(e, hops)
	if v.Direction == syntax.ForUp {
		e.Emit("add qword ptr %s, 1", slot(base, vs.Offset))
	} else {
		e.Emit("sub qword ptr %s, 1", slot(base, vs.Offset))
	}
	e.Emit("jmp %s", top)
	e.EmitLabel(bottom)
	e.Emit("add rsp, %d", wordSize)
	return nil
}
