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

// Package compiler orchestrates the front end (internal/syntax) and the
// semantic/codegen core (internal/codegen) into the single Compile
// entry point the CLI driver (cmd/kestrel) calls.
package compiler

import (
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"kestrel/internal/codegen"
	"kestrel/internal/syntax"
)

// Options controls the optional diagnostic side-channels spec.md §6
// wires to CLI flags.
type Options struct {
	// PrintAST, if non-nil, receives a pretty-printed dump of the parsed
	// program before lowering begins.
	PrintAST io.Writer
	// Trace enables lexer/parser verbose logging via glog.
	Trace bool
}

// Compile reads one Pascal-family source file from r and returns its
// lowered x86-64 assembly text.
func Compile(fileName string, r io.Reader, opts Options) (string, error) {
	glog.V(1).Infof("compiling %s", fileName)
	prog, err := syntax.ParseProgram(fileName, r, opts.Trace)
	if err != nil {
		return "", errors.Wrapf(err, "parse error in %s", fileName)
	}
	if opts.PrintAST != nil {
		syntax.Print(opts.PrintAST, prog)
	}
	pr, err := codegen.NewProgram(prog)
	if err != nil {
		return "", err
	}
	return pr.Assemble(), nil
}
