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

// Command kestrel compiles one Pascal-family source file into x86-64
// assembly (spec.md §6).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"kestrel/internal/compileerr"
	"kestrel/internal/compiler"
)

var (
	printAST bool
	trace    bool
	outPath  string
)

func main() {
	root := &cobra.Command{
		Use:   "kestrel <source.y>",
		Short: "Compile a Pascal-family source file to x86-64 assembly",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVarP(&printAST, "p", "p", false, "print the parsed AST before compiling")
	root.Flags().BoolVarP(&trace, "s", "s", false, "trace lexer/parser token scanning")
	root.Flags().StringVarP(&outPath, "o", "o", "", "output assembly path (default: stdout)")

	// glog reads its verbosity from the standard flag package; -s raises
	// it so the lexer/parser's glog.V(1)/V(2) trace calls actually fire.
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if trace {
		_ = flag.Set("v", "2")
	}
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var astOut *os.File
	if printAST {
		astOut = os.Stderr
	}

	opts := compiler.Options{Trace: trace}
	if astOut != nil {
		opts.PrintAST = astOut
	}

	asm, err := compiler.Compile(path, f, opts)
	if err != nil {
		reportFatal(path, err)
		return err
	}

	if outPath == "" {
		fmt.Print(asm)
		return nil
	}
	return os.WriteFile(outPath, []byte(asm), 0o644)
}

// reportFatal prints the one-line diagnostic spec.md §7 requires for a
// fatal compile error: its Kind when the error is a compileerr.Error,
// or the raw message otherwise.
func reportFatal(path string, err error) {
	if ce, ok := compileerr.As(err); ok {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", path, ce.Kind, ce.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
}
