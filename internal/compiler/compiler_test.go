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
package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/compiler"
	"kestrel/internal/testsupport"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	asm, err := compiler.Compile("test.y", strings.NewReader(src), compiler.Options{})
	require.NoError(t, err)
	return asm
}

func TestCompileEmitsPrelude(t *testing.T) {
	asm := compile(t, `
program Empty;
begin
end.
`)
	assert.Contains(t, asm, ".intel_syntax noprefix")
	assert.Contains(t, asm, ".extern builtin$callsysv")
	assert.Contains(t, asm, ".Lprogram_entry:")
	assert.Contains(t, asm, "main:")
	assert.Contains(t, asm, "call .Lprogram_entry")
}

func TestCompileRecursiveFunction(t *testing.T) {
	asm := compile(t, `
program Fact;
function fact(n: integer): integer;
begin
  if n <= 1 then
    fact := 1
  else
    fact := n * fact(n - 1);
end;
begin
  writeln(fact(6));
end.
`)
	assert.Contains(t, asm, ".Lfn_fact:")
	assert.Contains(t, asm, "call .Lfn_fact")
	assert.Contains(t, asm, "call builtin$write$int")
}

func TestCompileByReferenceSwap(t *testing.T) {
	asm := compile(t, `
program Swap;
var x, y: integer;
procedure swap(var a: integer; var b: integer);
var t: integer;
begin
  t := a;
  a := b;
  b := t;
end;
begin
  x := 1;
  y := 2;
  swap(x, y);
end.
`)
	assert.Contains(t, asm, ".Lfn_swap:")
	assert.Contains(t, asm, "call .Lfn_swap")
}

func TestCompileArrayBoundsCheck(t *testing.T) {
	asm := compile(t, `
program Arr;
var
  a: array[1..10] of integer;
  i: integer;
begin
  i := 1;
  a[i] := 42;
  writeln(a[i]);
end.
`)
	assert.Contains(t, asm, "call builtin$checkarrayindex")
}

func TestCompileRejectsTypeMismatch(t *testing.T) {
	_, err := compiler.Compile("test.y", strings.NewReader(`
program Bad;
var s: string;
begin
  s := 1;
end.
`), compiler.Options{})
	assert.Error(t, err)
}

func TestCompileRejectsUnresolvedName(t *testing.T) {
	_, err := compiler.Compile("test.y", strings.NewReader(`
program Bad;
begin
  x := 1;
end.
`), compiler.Options{})
	assert.Error(t, err)
}

// TestEndToEndArithmeticAndOutput links and runs a compiled program
// against the checked-in builtin$* runtime, exercising the full
// assemble/link/run path rather than just asserting on emitted text.
// It is skipped when gcc/as are unavailable, since it genuinely shells
// out to an external C toolchain.
func TestEndToEndArithmeticAndOutput(t *testing.T) {
	if testing.Short() || !testsupport.Toolchain() {
		t.Skip("no C toolchain available")
	}
	dir := t.TempDir()
	runtimeObj, err := testsupport.BuildRuntime(dir)
	require.NoError(t, err)

	asm := compile(t, `
program Arith;
var
  a, b: integer;
  d: double;
begin
  a := 6;
  b := 7;
  d := a / b;
  writeln(a * b);
  write(a);
  write(' ');
  writeln(b);
end.
`)
	result, err := testsupport.AssembleLinkRun(dir, asm, runtimeObj, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "42\n6 7\n", result.Stdout)
}

func TestEndToEndRecursionAndStrings(t *testing.T) {
	if testing.Short() || !testsupport.Toolchain() {
		t.Skip("no C toolchain available")
	}
	dir := t.TempDir()
	runtimeObj, err := testsupport.BuildRuntime(dir)
	require.NoError(t, err)

	asm := compile(t, `
program Fact;
var greeting: string;
function fact(n: integer): integer;
begin
  if n <= 1 then
    fact := 1
  else
    fact := n * fact(n - 1);
end;
begin
  greeting := 'hello';
  writeln(fact(6));
  writeln(greeting);
end.
`)
	result, err := testsupport.AssembleLinkRun(dir, asm, runtimeObj, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "720\nhello\n", result.Stdout)
}
