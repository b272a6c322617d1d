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
package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Print writes a readable dump of prog to w. It is a single explicit
// printer matching on the AST sum types — the Design Note's replacement
// for the original's virtual, stream-operator-dispatched print().
func Print(w io.Writer, prog *Program) {
	pp := &printer{w: w}
	fmt.Fprintf(w, "program %s;\n", prog.Name)
	pp.block(prog.Body, 0)
}

type printer struct {
	w io.Writer
}

func (pp *printer) indent(depth int) string { return strings.Repeat("  ", depth) }

func (pp *printer) block(b *Block, depth int) {
	ind := pp.indent(depth)
	for _, c := range b.Constants {
		fmt.Fprintf(pp.w, "%sconst %s = %s;\n", ind, c.Name, c.Literal)
	}
	for _, t := range b.TypeAliases {
		fmt.Fprintf(pp.w, "%stype %s = %s;\n", ind, t.Name, pp.typeStr(t.Type))
	}
	for _, v := range b.Variables {
		fmt.Fprintf(pp.w, "%svar %s: %s;\n", ind, v.Name, pp.typeStr(v.Type))
	}
	for _, c := range b.Callables {
		pp.callable(c, depth)
	}
	fmt.Fprintf(pp.w, "%sbegin\n", ind)
	pp.stmt(b.Body, depth+1)
	fmt.Fprintf(pp.w, "%send\n", ind)
}

func (pp *printer) callable(c *Callable, depth int) {
	ind := pp.indent(depth)
	kind := "procedure"
	if c.ReturnType != nil {
		kind = "function"
	}
	params := make([]string, 0, len(c.Params))
	for _, pm := range c.Params {
		ref := ""
		if pm.ByReference {
			ref = "var "
		}
		params = append(params, fmt.Sprintf("%s%s: %s", ref, pm.Name, pp.typeStr(pm.Type)))
	}
	sig := fmt.Sprintf("%s%s(%s)", ind, c.Name, strings.Join(params, ", "))
	if c.ReturnType != nil {
		fmt.Fprintf(pp.w, "%s%s: %s;\n", ind, kind+" "+c.Name+"("+strings.Join(params, ", ")+")", pp.typeStr(c.ReturnType))
	} else {
		fmt.Fprintf(pp.w, "%s %s;\n", kind, sig)
	}
	pp.block(c.Body, depth+1)
}

func (pp *printer) typeStr(t Type) string {
	switch v := t.(type) {
	case *TypeIdentifier:
		return v.Name
	case *PointerType:
		return "^" + pp.typeStr(v.Base)
	case *RecordType:
		fields := make([]string, 0, len(v.Fields))
		for _, f := range v.Fields {
			fields = append(fields, fmt.Sprintf("%s: %s", f.Name, pp.typeStr(f.Type)))
		}
		return fmt.Sprintf("record %s end", strings.Join(fields, "; "))
	case *ArraySchema:
		bounds := make([]string, 0, len(v.Bounds))
		for _, b := range v.Bounds {
			bounds = append(bounds, fmt.Sprintf("%d..%d", b.Min, b.Max))
		}
		return fmt.Sprintf("array [%s] of %s", strings.Join(bounds, ", "), pp.typeStr(v.ElementType))
	default:
		return "<type>"
	}
}

func (pp *printer) stmt(s Statement, depth int) {
	ind := pp.indent(depth)
	switch v := s.(type) {
	case *CompoundStatement:
		for _, inner := range v.Statements {
			pp.stmt(inner, depth)
			fmt.Fprintln(pp.w, ";")
		}
	case *AssignStatement:
		fmt.Fprintf(pp.w, "%s%s := %s", ind, pp.expr(v.LHS), pp.expr(v.RHS))
	case *ExplicitCallStatement:
		if v.Args == nil {
			fmt.Fprintf(pp.w, "%s%s", ind, v.Name)
			break
		}
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = pp.expr(a)
		}
		fmt.Fprintf(pp.w, "%s%s(%s)", ind, v.Name, strings.Join(args, ", "))
	case *WhileStatement:
		fmt.Fprintf(pp.w, "%swhile %s do\n", ind, pp.expr(v.Cond))
		pp.stmt(v.Body, depth+1)
	case *RepeatStatement:
		fmt.Fprintf(pp.w, "%srepeat\n", ind)
		pp.stmt(v.Body, depth+1)
		fmt.Fprintf(pp.w, "\n%suntil %s", ind, pp.expr(v.Cond))
	case *ForStatement:
		dir := "to"
		if v.Direction == ForDown {
			dir = "downto"
		}
		fmt.Fprintf(pp.w, "%sfor %s := %s %s %s do\n", ind, v.Var, pp.expr(v.Initial), dir, pp.expr(v.Final))
		pp.stmt(v.Body, depth+1)
	case *IfStatement:
		fmt.Fprintf(pp.w, "%sif %s then\n", ind, pp.expr(v.Cond))
		pp.stmt(v.Then, depth+1)
		if v.Else != nil {
			fmt.Fprintf(pp.w, "\n%selse\n", ind)
			pp.stmt(v.Else, depth+1)
		}
	case *ExpressionStatement:
		fmt.Fprintf(pp.w, "%s%s", ind, pp.expr(v.Expr))
	case *EmptyStatement:
		fmt.Fprintf(pp.w, "%s{empty}", ind)
	default:
		fmt.Fprintf(pp.w, "%s<stmt>", ind)
	}
}

func (pp *printer) expr(e Expression) string {
	switch v := e.(type) {
	case *Identifier:
		return v.Name
	case *RecordAccess:
		return fmt.Sprintf("%s.%s", pp.expr(v.LV), v.Field)
	case *ArrayAccess:
		idx := make([]string, 0, len(v.Index))
		for _, i := range v.Index {
			idx = append(idx, pp.expr(i))
		}
		return fmt.Sprintf("%s[%s]", pp.expr(v.LV), strings.Join(idx, ", "))
	case *PointerDereference:
		return pp.expr(v.Operand) + "^"
	case *ConstantLiteral:
		return v.Literal
	case *BinaryOp:
		return fmt.Sprintf("(%s %s %s)", pp.expr(v.LHS), v.Op, pp.expr(v.RHS))
	case *UnaryOp:
		return fmt.Sprintf("(%s %s)", v.Op, pp.expr(v.Operand))
	case *CallWithArguments:
		args := make([]string, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, pp.expr(a))
		}
		return fmt.Sprintf("%s(%s)", v.Name, strings.Join(args, ", "))
	default:
		return "<expr>"
	}
}
