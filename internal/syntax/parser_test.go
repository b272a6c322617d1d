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
package syntax_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Program {
	t.Helper()
	prog, err := syntax.ParseProgram("test.y", strings.NewReader(src), false)
	require.NoError(t, err)
	return prog
}

func TestParseEmptyProgram(t *testing.T) {
	prog := parse(t, "program Empty; begin end.")
	assert.Equal(t, "Empty", prog.Name)
	cs, ok := prog.Body.Body.(*syntax.CompoundStatement)
	require.True(t, ok)
	assert.Empty(t, cs.Statements)
}

func TestParseCallStatementWithArguments(t *testing.T) {
	prog := parse(t, `
program P;
begin
  writeln(1, 2);
end.
`)
	cs := prog.Body.Body.(*syntax.CompoundStatement)
	require.Len(t, cs.Statements, 1)
	call, ok := cs.Statements[0].(*syntax.ExplicitCallStatement)
	require.True(t, ok, "a call used as a statement must parse as ExplicitCallStatement")
	assert.Equal(t, "writeln", call.Name)
	require.Len(t, call.Args, 2)
}

func TestParseBareCallStatementHasNoArgs(t *testing.T) {
	prog := parse(t, `
program P;
begin
  writeln;
end.
`)
	cs := prog.Body.Body.(*syntax.CompoundStatement)
	call := cs.Statements[0].(*syntax.ExplicitCallStatement)
	assert.Equal(t, "writeln", call.Name)
	assert.Nil(t, call.Args)
}

func TestParseAssignment(t *testing.T) {
	prog := parse(t, `
program P;
var x: integer;
begin
  x := 1 + 2 * 3;
end.
`)
	cs := prog.Body.Body.(*syntax.CompoundStatement)
	assign := cs.Statements[0].(*syntax.AssignStatement)
	lhs := assign.LHS.(*syntax.Identifier)
	assert.Equal(t, "x", lhs.Name)
	rhs := assign.RHS.(*syntax.BinaryOp)
	assert.Equal(t, syntax.OpPlus, rhs.Op)
}

func TestParseArrayAndRecordAccess(t *testing.T) {
	prog := parse(t, `
program P;
type point = record x, y: integer; end;
var a: array[1..10] of point;
begin
  a[1].x := 5;
end.
`)
	cs := prog.Body.Body.(*syntax.CompoundStatement)
	assign := cs.Statements[0].(*syntax.AssignStatement)
	rec := assign.LHS.(*syntax.RecordAccess)
	assert.Equal(t, "x", rec.Field)
	arr := rec.LV.(*syntax.ArrayAccess)
	require.Len(t, arr.Index, 1)
}

func TestParseForRepeatWhile(t *testing.T) {
	prog := parse(t, `
program P;
var i: integer;
begin
  for i := 1 to 10 do i := i + 1;
  while i > 0 do i := i - 1;
  repeat i := i + 1 until i >= 5;
end.
`)
	cs := prog.Body.Body.(*syntax.CompoundStatement)
	require.Len(t, cs.Statements, 3)
	forS := cs.Statements[0].(*syntax.ForStatement)
	assert.Equal(t, syntax.ForUp, forS.Direction)
	_, ok := cs.Statements[1].(*syntax.WhileStatement)
	assert.True(t, ok)
	_, ok = cs.Statements[2].(*syntax.RepeatStatement)
	assert.True(t, ok)
}

func TestParseRejectsMissingDot(t *testing.T) {
	_, err := syntax.ParseProgram("test.y", strings.NewReader("program P; begin end"), false)
	assert.Error(t, err)
}
