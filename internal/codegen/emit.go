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

// Package codegen lowers a parsed program (internal/syntax) straight to
// x86-64 assembly text, using internal/sema's Type variants for the
// structural decisions along the way. There is no intermediate
// representation and no register allocator: every construct is lowered
// directly to a fixed-register instruction sequence (spec.md §4.2,
// §9's Non-goals).
package codegen

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Emitter is an append-only instruction stream built up during one
// construction pass (spec.md §4.2). Its shape is grounded on falcon's
// Assembler (NewAssembler/Emit/label-per-construction), but its content
// is Intel-syntax text matching the fixed-register discipline the
// original codegen.h's AssemblyContext uses, not falcon's AT&T/LSRA
// pipeline.
type Emitter struct {
	tag   string
	label string
	lines []string
}

var labelSeq int64

// nextLabelID returns a process-wide monotonically increasing id, used
// to make every Emitter's label unique even across many Emitters built
// for the same tag (e.g. many "if" blocks in one program).
func nextLabelID() int64 { return atomic.AddInt64(&labelSeq, 1) }

// NewEmitter starts a fresh instruction stream tagged tag; its Label is
// derived once here and never changes, so a construction can reference
// its own start (the self-referential loop-top trick spec.md's While/
// Repeat/For lowering uses — see lower_stmt.go).
func NewEmitter(tag string) *Emitter {
	e := &Emitter{tag: tag}
	e.label = fmt.Sprintf(".L%s_%d", tag, nextLabelID())
	return e
}

// Label is this emitter's construction-unique label, usable as a jump
// target from within its own stream or from a caller that embeds it.
func (e *Emitter) Label() string { return e.label }

// Emit appends one formatted instruction line.
func (e *Emitter) Emit(format string, args ...interface{}) {
	e.lines = append(e.lines, "\t"+fmt.Sprintf(format, args...))
}

// Comment appends a comment-only line, used sparingly to mark which
// source construct a block of instructions lowers.
func (e *Emitter) Comment(format string, args ...interface{}) {
	e.lines = append(e.lines, "\t# "+fmt.Sprintf(format, args...))
}

// EmitLabel appends a bare label definition line.
func (e *Emitter) EmitLabel(label string) {
	e.lines = append(e.lines, label+":")
}

// EmitOwnLabel appends this emitter's own Label as a definition,
// letting callers mark "here" explicitly instead of only referencing it.
func (e *Emitter) EmitOwnLabel() { e.EmitLabel(e.label) }

// Append splices other's lines onto e and clears other — destructive,
// matching the original's append-and-drain construction style: once
// spliced, a sub-emitter is not reused.
func (e *Emitter) Append(other *Emitter) {
	if other == nil {
		return
	}
	e.lines = append(e.lines, other.lines...)
	other.lines = nil
}

// Code renders the accumulated stream as assembly text, one instruction
// per line.
func (e *Emitter) Code() string {
	if len(e.lines) == 0 {
		return ""
	}
	return strings.Join(e.lines, "\n") + "\n"
}

// Registers fixed by the generated program's calling convention
// (spec.md §4.2): frame-base, l-value-pointer and return-value carriers
// that survive across emit_lvalue/emit_rvalue calls instead of being
// allocated per-expression.
const (
	RegFrameBase  = "rbx"
	RegLValuePtr  = "r14"
	RegReturn     = "r15"
	RegReturnF    = "xmm0" // floating-point return/accumulator, mirrors original's xmm0 convention
)
