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
	"fmt"

	"kestrel/internal/sema"
)

// slot renders the memory operand for offset bytes from base (the
// frame-base register holding some block's frame).
func slot(base string, offset int) string {
	if offset >= 0 {
		return fmt.Sprintf("[%s+%d]", base, offset)
	}
	return fmt.Sprintf("[%s%d]", base, offset)
}

// emitInitializeSlot emits the per-type "bring a fresh slot into a
// valid, finalizable state" sequence (spec.md §3's Lifecycle section),
// called once per local/param slot when its owning block's frame is
// set up. Integer/Double/Pointer need only be zeroed; String/Record/
// Array are heap-owning and get a freshly allocated empty/zeroed
// buffer.
func emitInitializeSlot(e *Emitter, t sema.Type, base string, offset int) {
	if t == nil {
		return
	}
	dst := slot(base, offset)
	switch {
	case sema.IsInteger(t), sema.IsDouble(t):
		e.Emit("mov qword ptr %s, 0", dst)
	case isPointer(t):
		e.Emit("mov qword ptr %s, 0", dst)
	case isString(t):
		emitAllocString(e, dst, "")
	default:
		emitAllocAggregate(e, t, dst)
	}
}

func isPointer(t sema.Type) bool { _, ok := t.(*sema.Pointer); return ok }
func isString(t sema.Type) bool  { return t.Signature() == sema.String.Signature() }

// emitAllocString allocates a fresh heap buffer sized for value and
// stores its pointer at dst. An empty value allocates a one-byte
// buffer holding just the terminator.
func emitAllocString(e *Emitter, dst string, value string) {
	e.Emit("mov rsi, %d", len(value)+1)
	e.Emit("mov rdi, 0") // selector: malloc(rsi)
	e.Emit("call builtin$callsysv")
	e.Emit("mov qword ptr %s, rax", dst)
	e.Emit("mov byte ptr [rax], 0")
}

// emitAllocAggregate allocates the heap buffer backing a Record or
// Array slot, sized to hold Count (or field count) words, and stores
// the pointer at dst. Individual element/field initialization for
// nested aggregate-typed members happens lazily on first assignment,
// matching the original's shallow-allocate-then-assign convention.
func emitAllocAggregate(e *Emitter, t sema.Type, dst string) {
	size := aggregateByteSize(t)
	e.Emit("mov rsi, %d", size)
	e.Emit("mov rdi, 0") // selector: malloc(rsi)
	e.Emit("call builtin$callsysv")
	e.Emit("mov qword ptr %s, rax", dst)
	for i := 0; i < size/wordSize; i++ {
		e.Emit("mov qword ptr [rax+%d], 0", i*wordSize)
	}
}

// aggregateByteSize is the flat byte size of a Record/Array's backing
// buffer: one word per field or element, since every field/element
// itself stores either a raw scalar or a pointer to its own heap
// buffer (spec.md §3's uniform word-sized slot rule).
func aggregateByteSize(t sema.Type) int {
	switch v := t.(type) {
	case *sema.Record:
		return len(v.Fields) * wordSize
	case *sema.Array:
		return int(v.Count()) * wordSize
	default:
		return wordSize
	}
}

// emitFinalizeSlot releases whatever heap buffer a String/Record/Array
// slot owns. Integer/Double/Pointer slots need no action (spec.md §3).
func emitFinalizeSlot(e *Emitter, t sema.Type, base string, offset int) {
	if !sema.NeedsFinalize(t) {
		return
	}
	src := slot(base, offset)
	if rec, ok := t.(*sema.Record); ok {
		for _, f := range rec.Fields {
			if sema.NeedsFinalize(f.Type) {
				e.Emit("mov rax, qword ptr %s", src)
				emitFinalizeSlot(e, f.Type, "rax", f.Index*wordSize)
			}
		}
	}
	if arr, ok := t.(*sema.Array); ok && sema.NeedsFinalize(arr.Element) {
		for i := int64(0); i < arr.Count(); i++ {
			e.Emit("mov rax, qword ptr %s", src)
			emitFinalizeSlot(e, arr.Element, "rax", int(i)*wordSize)
		}
	}
	e.Emit("mov rsi, qword ptr %s", src)
	e.Emit("mov rdi, 1") // selector: free(rsi)
	e.Emit("call builtin$callsysv")
}

// emitAssignSlot emits the sequence that stores the r-value currently
// on top of the real machine stack into the slot at offset(base). For
// String/Record/Array, the r-value on the stack is always a freshly
// owned buffer (expression lowering deep-copies on read, per
// lower_expr.go), so assignment only has to free the destination's
// previous buffer and adopt the new one; scalars are a plain move
// (spec.md §3/§4.4).
func emitAssignSlot(e *Emitter, t sema.Type, base string, offset int) {
	dst := slot(base, offset)
	if !sema.NeedsFinalize(t) {
		e.Emit("pop rax")
		e.Emit("mov qword ptr %s, rax", dst)
		return
	}
	// Source buffer pointer is on the real stack; destination's previous
	// buffer (if any) is released before the new one is adopted.
	e.Emit("pop rax") // rax = source buffer pointer
	if _, ok := t.(*sema.Record); ok {
		e.Emit("mov r12, rax") // r12 = source buffer ptr, survives the finalize call below
		emitFinalizeSlot(e, t, base, offset)
		e.Emit("mov qword ptr %s, r12", dst)
		return
	}
	if isString(t) {
		e.Emit("mov r13, rax") // r13 = source buffer ptr (callee-saved, survives the calls below)
		e.Emit("mov rdi, r13")
		e.Emit("call builtin$strlen")
		e.Emit("inc eax")
		e.Emit("mov rsi, rax") // size = len+1
		e.Emit("mov rdi, 0")   // selector: malloc(rsi)
		e.Emit("call builtin$callsysv")
		e.Emit("mov r12, rax") // r12 = new buffer ptr
		e.Emit("mov rsi, r12")
		e.Emit("mov rdx, r13")
		e.Emit("mov rdi, 2") // selector: strcpy(rsi=dst, rdx=src)
		e.Emit("call builtin$callsysv")
		emitFinalizeSlot(e, t, base, offset)
		e.Emit("mov qword ptr %s, r12", dst)
		return
	}
	e.Emit("mov r12, rax") // r12 = source buffer ptr, survives the finalize call below
	emitFinalizeSlot(e, t, base, offset)
	e.Emit("mov qword ptr %s, r12", dst)
}
