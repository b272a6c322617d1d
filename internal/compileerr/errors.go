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

// Package compileerr models the error kinds spec.md §7 requires the
// semantic/codegen core to surface. Every detected error is fatal: the
// core never recovers from one, and the caller (cmd/kestrel) reports it
// and exits nonzero, matching spec.md §7's propagation policy.
package compileerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed set of error categories from spec.md §7's table.
type Kind int

const (
	UnresolvedName Kind = iota
	TypeMismatch
	InvalidArrayBound
	DuplicateMember
	NotAnLValue
	NonIntegerCondition
	ArityMismatch
	DisallowedByValue
	MiscSemantic
)

func (k Kind) String() string {
	switch k {
	case UnresolvedName:
		return "UnresolvedName"
	case TypeMismatch:
		return "TypeMismatch"
	case InvalidArrayBound:
		return "InvalidArrayBound"
	case DuplicateMember:
		return "DuplicateMember"
	case NotAnLValue:
		return "NotAnLValue"
	case NonIntegerCondition:
		return "NonIntegerCondition"
	case ArityMismatch:
		return "ArityMismatch"
	case DisallowedByValue:
		return "DisallowedByValue"
	default:
		return "MiscSemantic"
	}
}

// Error is the typed value carried under the pkg/errors wrap New
// produces; Cause recovers it from a wrapped error so the reporter can
// bucket by Kind without parsing the message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// New builds a Kind-tagged, stack-trace-carrying error. Compiler code
// should never recover from it; it is meant to propagate straight to
// the fatal reporter in cmd/kestrel.
func New(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// As recovers the typed *Error from err, unwrapping pkg/errors'
// stack-trace wrapper if present.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
