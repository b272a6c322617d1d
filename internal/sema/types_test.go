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
package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualPrimitives(t *testing.T) {
	assert.True(t, Equal(Integer, Integer))
	assert.True(t, Equal(Double, Double))
	assert.True(t, Equal(String, String))
	assert.False(t, Equal(Integer, Double))
	assert.False(t, Equal(Integer, String))
}

func TestEqualPointer(t *testing.T) {
	pi := NewPointer(Integer)
	pi2 := NewPointer(Integer)
	pd := NewPointer(Double)
	assert.True(t, Equal(pi, pi2), "two pointers to the same base type are structurally equal")
	assert.False(t, Equal(pi, pd))
	assert.False(t, Equal(pi, Integer))
}

func TestEqualRecord(t *testing.T) {
	a := &Record{Fields: []Field{{Name: "x", Type: Integer, Index: 0}, {Name: "y", Type: Double, Index: 1}}}
	b := &Record{Fields: []Field{{Name: "x", Type: Integer, Index: 0}, {Name: "y", Type: Double, Index: 1}}}
	c := &Record{Fields: []Field{{Name: "x", Type: Integer, Index: 0}}}
	assert.True(t, Equal(a, b), "records with identical field name/type/order are structurally equal")
	assert.False(t, Equal(a, c))
}

func TestEqualArray(t *testing.T) {
	a := &Array{Bounds: []Bound{{Min: 1, Max: 10}}, Element: Integer}
	b := &Array{Bounds: []Bound{{Min: 1, Max: 10}}, Element: Integer}
	c := &Array{Bounds: []Bound{{Min: 0, Max: 10}}, Element: Integer}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c), "different bounds make two array types structurally distinct")
}

func TestRecordField(t *testing.T) {
	rec := &Record{Fields: []Field{{Name: "x", Type: Integer, Index: 0}, {Name: "y", Type: Double, Index: 1}}}
	f, ok := rec.Field("y")
	require.True(t, ok)
	assert.Equal(t, Double, f.Type)
	_, ok = rec.Field("z")
	assert.False(t, ok)
}

func TestArrayCount(t *testing.T) {
	arr := &Array{Bounds: []Bound{{Min: 1, Max: 10}, {Min: 0, Max: 2}}, Element: Integer}
	assert.Equal(t, int64(10*3), arr.Count())
}

func TestAllowedPassByValue(t *testing.T) {
	assert.True(t, AllowedPassByValue(Integer))
	assert.True(t, AllowedPassByValue(Double))
	assert.True(t, AllowedPassByValue(NewPointer(Integer)))
	assert.False(t, AllowedPassByValue(String))
	assert.False(t, AllowedPassByValue(&Record{}))
	assert.False(t, AllowedPassByValue(&Array{Bounds: []Bound{{Min: 0, Max: 0}}, Element: Integer}))
}

func TestNeedsFinalize(t *testing.T) {
	assert.True(t, NeedsFinalize(String))
	assert.True(t, NeedsFinalize(&Record{}))
	assert.True(t, NeedsFinalize(&Array{Bounds: []Bound{{Min: 0, Max: 0}}, Element: Integer}))
	assert.False(t, NeedsFinalize(Integer))
	assert.False(t, NeedsFinalize(Double))
	assert.False(t, NeedsFinalize(NewPointer(String)))
}

func TestNumericPredicates(t *testing.T) {
	assert.True(t, IsInteger(Integer))
	assert.True(t, IsDouble(Double))
	assert.True(t, IsNumeric(Integer))
	assert.True(t, IsNumeric(Double))
	assert.False(t, IsNumeric(String))
}

func TestSignatureDistinguishesShapes(t *testing.T) {
	rec := &Record{Fields: []Field{{Name: "x", Type: Integer, Index: 0}}}
	arr := &Array{Bounds: []Bound{{Min: 1, Max: 3}}, Element: Integer}
	sigs := map[string]bool{}
	for _, ty := range []Type{Integer, Double, String, NewPointer(Integer), rec, arr} {
		sig := ty.Signature()
		assert.False(t, sigs[sig], "signature %q collided with another type's signature", sig)
		sigs[sig] = true
	}
}
