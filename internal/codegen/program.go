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
	"strings"

	"kestrel/internal/syntax"
)

// Program is the whole-module construction context: the running set of
// string constants destined for .data, and the ordered list of
// assembled callable bodies, in the order their Blocks were built
// (spec.md §6's "global constants stream + all block emitters in
// construction order" layout).
type Program struct {
	strings     []stringConst
	nextStrID   int
	bodies      []*Emitter
	Root        *Block
}

type stringConst struct {
	label string
	value string
}

// NewProgram builds the full semantic scope tree for prog and lowers
// every block's body into its own Emitter, in construction order. The
// returned Program is ready for Assemble.
func NewProgram(prog *syntax.Program) (*Program, error) {
	pr := &Program{}
	root, err := buildBlock(nil, prog.Body, pr, nil)
	if err != nil {
		return nil, err
	}
	pr.Root = root
	pr.addBody(root.Emitter)
	return pr, nil
}

// internString registers s for emission as a .data byte string and
// returns the unique label referencing it.
func (pr *Program) internString(s string) string {
	label := fmt.Sprintf(".Lstr%d", pr.nextStrID)
	pr.nextStrID++
	pr.strings = append(pr.strings, stringConst{label: label, value: s})
	return label
}

// addBody records a fully-lowered callable or top-level body, in
// construction order, for final concatenation.
func (pr *Program) addBody(e *Emitter) {
	pr.bodies = append(pr.bodies, e)
}

// Assemble renders the complete assembly text: the fixed prelude, every
// .data string constant, then every lowered body in construction order,
// finishing with the main trampoline spec.md §6 requires (spec.md §4.2,
// §6).
func (pr *Program) Assemble() string {
	var b strings.Builder
	b.WriteString(".intel_syntax noprefix\n")
	b.WriteString(".extern builtin$callsysv\n")
	b.WriteString(".extern builtin$checkarrayindex\n")
	for _, name := range []string{"read", "readf", "reads", "readsln", "write$int", "write$double", "write$string", "writeln", "strlen", "strcat", "getchr", "setchr"} {
		fmt.Fprintf(&b, ".extern builtin$%s\n", name)
	}
	b.WriteString("\n.data\n")
	for _, sc := range pr.strings {
		fmt.Fprintf(&b, "%s:\n\t.asciz \"%s\"\n", sc.label, escapeAsciz(sc.value))
	}
	b.WriteString("\n.text\n")
	for _, body := range pr.bodies {
		b.WriteString(body.Code())
	}
	b.WriteString("\n.globl main\n")
	b.WriteString("main:\n")
	b.WriteString("\tpush rbp\n")
	b.WriteString("\tmov rbp, rsp\n")
	b.WriteString("\tcall .Lprogram_entry\n")
	b.WriteString("\txor eax, eax\n")
	b.WriteString("\tpop rbp\n")
	b.WriteString("\tret\n")
	return b.String()
}

func escapeAsciz(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
