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
	"kestrel/internal/compileerr"
	"kestrel/internal/sema"
	"kestrel/internal/syntax"
)

// typeEnv resolves a syntax.Type (as written in source) to a sema.Type
// (the closed semantic variant), chaining outward through enclosing
// blocks the way name resolution does for values (spec.md §4.3).
type typeEnv struct {
	parent *typeEnv
	named  map[string]sema.Type
}

func newTypeEnv(parent *typeEnv) *typeEnv {
	return &typeEnv{parent: parent, named: map[string]sema.Type{}}
}

func (e *typeEnv) define(name string, t sema.Type) { e.named[name] = t }

func (e *typeEnv) lookup(name string) (sema.Type, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if t, ok := cur.named[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// resolveType turns a parsed Type into its semantic meaning, resolving
// TypeIdentifier against primitives first and the alias environment
// second.
func resolveType(env *typeEnv, t syntax.Type) (sema.Type, error) {
	switch v := t.(type) {
	case *syntax.TypeIdentifier:
		switch v.Name {
		case "integer":
			return sema.Integer, nil
		case "double":
			return sema.Double, nil
		case "string":
			return sema.String, nil
		}
		if resolved, ok := env.lookup(v.Name); ok {
			return resolved, nil
		}
		return nil, compileerr.New(compileerr.UnresolvedName, "unknown type %q at %s", v.Name, v.Pos)
	case *syntax.PointerType:
		base, err := resolveType(env, v.Base)
		if err != nil {
			return nil, err
		}
		return sema.NewPointer(base), nil
	case *syntax.RecordType:
		fields := make([]sema.Field, 0, len(v.Fields))
		seen := map[string]bool{}
		for i, f := range v.Fields {
			if seen[f.Name] {
				return nil, compileerr.New(compileerr.DuplicateMember, "duplicate field %q at %s", f.Name, v.Pos)
			}
			seen[f.Name] = true
			ft, err := resolveType(env, f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sema.Field{Name: f.Name, Type: ft, Index: i})
		}
		return &sema.Record{Fields: fields}, nil
	case *syntax.ArraySchema:
		if len(v.Bounds) == 0 {
			return nil, compileerr.New(compileerr.InvalidArrayBound, "array with no dimensions at %s", v.Pos)
		}
		bounds := make([]sema.Bound, 0, len(v.Bounds))
		for _, b := range v.Bounds {
			if b.Max < b.Min {
				return nil, compileerr.New(compileerr.InvalidArrayBound, "array bound %d..%d is empty at %s", b.Min, b.Max, v.Pos)
			}
			bounds = append(bounds, sema.Bound{Min: b.Min, Max: b.Max})
		}
		elem, err := resolveType(env, v.ElementType)
		if err != nil {
			return nil, err
		}
		return &sema.Array{Bounds: bounds, Element: elem}, nil
	default:
		return nil, compileerr.New(compileerr.MiscSemantic, "unhandled type form %T", t)
	}
}
