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

// Package testsupport assembles, links and runs the output of
// internal/compiler so package tests can assert on a real program's
// behavior instead of only on emitted instruction text.
package testsupport

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Toolchain reports whether gcc and as are on PATH, so tests can skip
// cleanly in environments without a C toolchain.
func Toolchain() bool {
	return commandExists("gcc") && commandExists("as")
}

// RunResult holds everything one assemble-link-run cycle produced.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// BuildRuntime compiles the checked-in builtin$* runtime implementation
// (runtime.c, next to this file) to an object file under dir and returns
// its path, for use as AssembleLinkRun's runtimeObj argument.
func BuildRuntime(dir string) (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("testsupport: could not locate runtime.c")
	}
	srcPath := filepath.Join(filepath.Dir(thisFile), "runtime.c")
	objPath := filepath.Join(dir, "runtime.o")
	cmd := exec.Command("gcc", "-c", "-o", objPath, srcPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("building runtime: %w: %s", err, stderr.String())
	}
	return objPath, nil
}

// AssembleLinkRun writes asm to a temp file, links it against
// runtimeObj (the compiled builtin$* ABI implementation) with gcc, and
// runs the resulting binary, feeding it stdin.
func AssembleLinkRun(dir, asm, runtimeObj, stdin string) (RunResult, error) {
	srcPath := filepath.Join(dir, "program.s")
	binPath := filepath.Join(dir, "program")
	if err := os.WriteFile(srcPath, []byte(asm), 0o644); err != nil {
		return RunResult{}, err
	}

	link := exec.Command("gcc", "-no-pie", "-o", binPath, srcPath, runtimeObj)
	var linkErr bytes.Buffer
	link.Stderr = &linkErr
	if err := link.Run(); err != nil {
		return RunResult{}, fmt.Errorf("link failed: %w: %s", err, linkErr.String())
	}

	run := exec.Command(binPath)
	run.Stdin = bytes.NewBufferString(stdin)
	var stdout, stderr bytes.Buffer
	run.Stdout = &stdout
	run.Stderr = &stderr
	err := run.Run()

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		return RunResult{}, err
	}
	return RunResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
}
