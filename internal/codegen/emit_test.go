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
)

func TestEmitterLabelsAreUnique(t *testing.T) {
	a := NewEmitter("if")
	b := NewEmitter("if")
	assert.NotEqual(t, a.Label(), b.Label(), "two Emitters built for the same tag must still mint distinct labels")
	assert.True(t, strings.HasPrefix(a.Label(), ".Lif_"))
}

func TestEmitAndComment(t *testing.T) {
	e := NewEmitter("body")
	e.Emit("mov rax, %d", 42)
	e.Comment("answer")
	code := e.Code()
	assert.Contains(t, code, "\tmov rax, 42\n")
	assert.Contains(t, code, "\t# answer\n")
}

func TestEmitLabelAndOwnLabel(t *testing.T) {
	e := NewEmitter("loop")
	e.EmitOwnLabel()
	e.Emit("nop")
	e.EmitLabel(".Lcustom")
	code := e.Code()
	assert.True(t, strings.HasPrefix(code, e.Label()+":\n"))
	assert.Contains(t, code, ".Lcustom:\n")
}

func TestAppendDrainsSource(t *testing.T) {
	dst := NewEmitter("outer")
	dst.Emit("push rbp")
	src := NewEmitter("inner")
	src.Emit("nop")
	dst.Append(src)
	assert.Equal(t, "\tpush rbp\n\tnop\n", dst.Code())
	assert.Equal(t, "", src.Code(), "Append must drain the source emitter's lines")
}

func TestEmptyEmitterRendersEmptyCode(t *testing.T) {
	e := NewEmitter("empty")
	assert.Equal(t, "", e.Code())
}
