// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hir holds the post-resolution, typed form of a program: the
// CandyType lattice, the declaration model, and the flat numbered
// expression bodies lowering produces. Everything here is addressed by
// IDs, never by direct pointers, so the structures stay acyclic and
// query-cacheable.
package hir

import (
	"sort"
	"strings"

	"github.com/kraklabs/candy/pkg/id"
)

// Type is the CandyType algebra: a tagged disjoint union over the
// variants below. Types are immutable values; construction normalizes
// unions and intersections.
type Type interface {
	typeNode()
	// String renders a canonical form; set-like variants render sorted,
	// so String doubles as a structural-equality witness.
	String() string
}

// UserType references a declared trait, class or enum with type
// arguments.
type UserType struct {
	Module id.ModuleID
	Name   id.Symbol
	Args   []Type
}

// ThisTypeNode is `This`; only valid inside trait and impl declarations
// and baked away before any assignability check.
type ThisTypeNode struct{}

// TupleType is an ordered, unlabeled product.
type TupleType struct {
	Components []Type
}

// NamedField labels one component of a named tuple.
type NamedField struct {
	Label id.Symbol
	Type  Type
}

// NamedTupleType is a product with unique labels in declared order.
type NamedTupleType struct {
	Fields []NamedField
}

// EnumVariantType is one case of an enum type; Payload is nil for
// payload-less variants.
type EnumVariantType struct {
	Name    id.Symbol
	Payload Type
}

// EnumTypeNode maps variant names to optional payload types.
type EnumTypeNode struct {
	Variants []EnumVariantType
}

// FunctionType is a function signature; Receiver is nil for free
// functions.
type FunctionType struct {
	Receiver   Type
	Parameters []Type
	Return     Type
}

// UnionType is a flat, unordered set of at least two alternatives.
type UnionType struct {
	Variants []Type
}

// IntersectionType is a flat, unordered set of at least two members.
type IntersectionType struct {
	Members []Type
}

// ParameterType references a generic parameter, bound to the declaration
// that introduced it.
type ParameterType struct {
	Declaration id.DeclarationID
	Name        id.Symbol
}

// ReflectionType is a compile-time handle to a declaration; its resulting
// type depends on the target's kind.
type ReflectionType struct {
	Target id.DeclarationID
	Kind   id.DeclarationKind
}

// ErrorTypeNode is the sentinel produced on lowering failure. It
// propagates without producing further diagnostics.
type ErrorTypeNode struct{}

func (UserType) typeNode()         {}
func (ThisTypeNode) typeNode()     {}
func (TupleType) typeNode()        {}
func (NamedTupleType) typeNode()   {}
func (EnumTypeNode) typeNode()     {}
func (FunctionType) typeNode()     {}
func (UnionType) typeNode()        {}
func (IntersectionType) typeNode() {}
func (ParameterType) typeNode()    {}
func (ReflectionType) typeNode()   {}
func (ErrorTypeNode) typeNode()    {}

// Distinguished core types. Any is the top of the lattice, Never the
// bottom; both live in the core package's root module.
var (
	anyName   = id.Intern("Any")
	neverName = id.Intern("Never")
)

// AnyType returns the top type.
func AnyType() UserType { return UserType{Module: id.RootModule(id.CorePackage), Name: anyName} }

// NeverType returns the bottom type.
func NeverType() UserType { return UserType{Module: id.RootModule(id.CorePackage), Name: neverName} }

// ErrorType returns the lowering-failure sentinel.
func ErrorType() Type { return ErrorTypeNode{} }

// ThisType returns the `This` placeholder.
func ThisType() Type { return ThisTypeNode{} }

// CoreType returns a nullary user type in the core root module; the
// built-in Int, Text and Bool types are addressed this way.
func CoreType(name string) UserType {
	return UserType{Module: id.RootModule(id.CorePackage), Name: id.Intern(name)}
}

// IsAny reports whether t is the top type.
func IsAny(t Type) bool {
	u, ok := t.(UserType)
	return ok && u.Name == anyName && u.Module.IsRoot() && u.Module.Package.IsCore() && len(u.Args) == 0
}

// IsNever reports whether t is the bottom type.
func IsNever(t Type) bool {
	u, ok := t.(UserType)
	return ok && u.Name == neverName && u.Module.IsRoot() && u.Module.Package.IsCore() && len(u.Args) == 0
}

// IsError reports whether t is the error sentinel.
func IsError(t Type) bool {
	_, ok := t.(ErrorTypeNode)
	return ok
}

// NewUnion builds a normalized union: nested unions are flattened,
// duplicates removed by structural equality, and a single remaining
// alternative collapses to itself. An empty alternative list is Never.
func NewUnion(types ...Type) Type {
	flat := make([]Type, 0, len(types))
	for _, t := range types {
		if u, ok := t.(UnionType); ok {
			flat = append(flat, u.Variants...)
			continue
		}
		flat = append(flat, t)
	}
	flat = dedupe(flat)
	switch len(flat) {
	case 0:
		return NeverType()
	case 1:
		return flat[0]
	}
	return UnionType{Variants: flat}
}

// NewIntersection builds a normalized intersection: nested intersections
// flatten, duplicates are removed, and Never anywhere short-circuits the
// whole intersection to Never. An empty member list is Any.
func NewIntersection(types ...Type) Type {
	flat := make([]Type, 0, len(types))
	for _, t := range types {
		if i, ok := t.(IntersectionType); ok {
			flat = append(flat, i.Members...)
			continue
		}
		flat = append(flat, t)
	}
	for _, t := range flat {
		if IsNever(t) {
			return NeverType()
		}
	}
	flat = dedupe(flat)
	switch len(flat) {
	case 0:
		return AnyType()
	case 1:
		return flat[0]
	}
	return IntersectionType{Members: flat}
}

// dedupe removes structural duplicates preserving first-seen order.
func dedupe(types []Type) []Type {
	seen := make(map[string]bool, len(types))
	out := types[:0]
	for _, t := range types {
		key := t.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// Equal reports structural equality; unions and intersections compare as
// sets.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

func (t UserType) String() string {
	var b strings.Builder
	b.WriteString(t.Module.String())
	b.WriteByte('.')
	b.WriteString(t.Name.String())
	if len(t.Args) > 0 {
		b.WriteByte('[')
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.String())
		}
		b.WriteByte(']')
	}
	return b.String()
}

func (ThisTypeNode) String() string { return "This" }

func (t TupleType) String() string {
	parts := make([]string, len(t.Components))
	for i, c := range t.Components {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t NamedTupleType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Label.String() + ": " + f.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t EnumTypeNode) String() string {
	parts := make([]string, len(t.Variants))
	for i, v := range t.Variants {
		if v.Payload == nil {
			parts[i] = v.Name.String()
		} else {
			parts[i] = v.Name.String() + "(" + v.Payload.String() + ")"
		}
	}
	return "enum{" + strings.Join(parts, ", ") + "}"
}

func (t FunctionType) String() string {
	var b strings.Builder
	if t.Receiver != nil {
		b.WriteString(t.Receiver.String())
		b.WriteByte('.')
	}
	b.WriteByte('(')
	for i, p := range t.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	if t.Return == nil {
		b.WriteString("()")
	} else {
		b.WriteString(t.Return.String())
	}
	return b.String()
}

// setString renders members sorted so equal sets render equally.
func setString(op string, members []Type) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.String()
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

func (t UnionType) String() string        { return setString("|", t.Variants) }
func (t IntersectionType) String() string { return setString("&", t.Members) }

func (t ParameterType) String() string {
	return "?" + t.Name.String() + "@" + t.Declaration.String()
}

func (t ReflectionType) String() string {
	return "reflect(" + t.Target.String() + ")"
}

func (ErrorTypeNode) String() string { return "<error>" }
