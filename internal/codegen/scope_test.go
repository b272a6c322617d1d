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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/compileerr"
	"kestrel/internal/sema"
	"kestrel/internal/syntax"
)

func parseAndBuild(t *testing.T, src string) (*Program, error) {
	t.Helper()
	prog, err := syntax.ParseProgram("test.y", strings.NewReader(src), false)
	require.NoError(t, err)
	return NewProgram(prog)
}

func TestBuildBlockResolvesNestedScopes(t *testing.T) {
	pr, err := parseAndBuild(t, `
program P;
var x: integer;
procedure outer;
var y: integer;
  procedure inner;
  begin
    y := x;
  end;
begin
  inner;
end;
begin
end.
`)
	require.NoError(t, err)
	outer, ok := pr.Root.Syms["outer"].(*FunctionSymbol)
	require.True(t, ok)
	inner, ok := outer.Body.Syms["inner"].(*FunctionSymbol)
	require.True(t, ok)
	assert.Equal(t, 2, inner.Body.Depth)
}

func TestDuplicateVariableIsRejected(t *testing.T) {
	_, err := parseAndBuild(t, `
program P;
var
  x: integer;
  x: double;
begin
end.
`)
	require.Error(t, err)
	var ce *compileerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerr.DuplicateMember, ce.Kind)
}

func TestByValueAggregateParamIsRejected(t *testing.T) {
	_, err := parseAndBuild(t, `
program P;
type rec = record a: integer; end;
procedure p(r: rec);
begin
end;
begin
end.
`)
	require.Error(t, err)
	var ce *compileerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerr.DisallowedByValue, ce.Kind)
}

func TestByReferenceAggregateParamIsAccepted(t *testing.T) {
	pr, err := parseAndBuild(t, `
program P;
type rec = record a: integer; end;
procedure p(var r: rec);
begin
end;
begin
end.
`)
	require.NoError(t, err)
	fn := pr.Root.Syms["p"].(*FunctionSymbol)
	require.Len(t, fn.Params, 1)
	assert.True(t, fn.Params[0].ByReference)
	_, isRecord := fn.Params[0].Type.(*sema.Record)
	assert.True(t, isRecord)
}

func TestArrayEmptyBoundIsRejected(t *testing.T) {
	_, err := parseAndBuild(t, `
program P;
var a: array[5..1] of integer;
begin
end.
`)
	require.Error(t, err)
	var ce *compileerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compileerr.InvalidArrayBound, ce.Kind)
}

func TestConstantClassification(t *testing.T) {
	pr, err := parseAndBuild(t, `
program P;
const
  pi = 3.14;
  n = 42;
  greeting = 'hi';
begin
end.
`)
	require.NoError(t, err)
	pi := pr.Root.Syms["pi"].(*ConstantSymbol)
	assert.True(t, sema.IsDouble(pi.Type))
	n := pr.Root.Syms["n"].(*ConstantSymbol)
	assert.True(t, sema.IsInteger(n.Type))
	assert.Equal(t, int64(42), n.IntValue)
	greeting := pr.Root.Syms["greeting"].(*ConstantSymbol)
	assert.Equal(t, sema.String, greeting.Type)
}
