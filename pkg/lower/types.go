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

// Package lower produces the typed HIR: declaration signatures, the
// CandyType for every type syntax node, and flat numbered expression
// bodies. It also assembles the solver's rule environment from the impls
// in scope, which closes the loop between assignability and impl
// selection.
package lower

import (
	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/hir"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/index"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/resolve"
)

// ModuleOfDecl returns the module a declaration belongs to: the module of
// its resource, extended by the inline-module steps on its path.
func ModuleOfDecl(declID id.DeclarationID) id.ModuleID {
	module := index.ModuleOfResource(declID.Resource)
	for i := 0; i < len(declID.Path)-1; i++ {
		step := declID.Path[i]
		if step.Kind == id.KindModule {
			module = module.Child(step.Name)
		}
	}
	return module
}

// typeLowerer lowers type syntax within one scope.
type typeLowerer struct {
	ctx         *query.Context
	scope       resolve.Scope
	resource    id.ResourceID
	diagnostics *report.List
}

// LowerType converts AST type syntax into the CandyType algebra within
// the given scope. Unresolved names produce the error type plus a
// diagnostic; the error type then propagates silently.
func LowerType(ctx *query.Context, scope resolve.Scope, res id.ResourceID, node ast.Type, diagnostics *report.List) hir.Type {
	l := &typeLowerer{ctx: ctx, scope: scope, resource: res, diagnostics: diagnostics}
	return l.lower(node)
}

func (l *typeLowerer) lower(node ast.Type) hir.Type {
	if node == nil {
		// Absent type syntax (an omitted return type) is the unit tuple.
		return hir.TupleType{}
	}

	switch t := node.(type) {
	case *ast.NamedType:
		return l.lowerNamed(t)

	case *ast.ThisType:
		if !l.thisAllowed() {
			span := t.Span
			l.diagnostics.Add(report.New(report.ErrThisTypeIllegal, l.resource, &span))
			return hir.ErrorType()
		}
		return hir.ThisType()

	case *ast.GroupType:
		return l.lower(t.Inner)

	case *ast.UnionType:
		// Nested unions flatten transparently during construction.
		return hir.NewUnion(l.lower(t.Left), l.lower(t.Right))

	case *ast.IntersectionType:
		return hir.NewIntersection(l.lower(t.Left), l.lower(t.Right))

	case *ast.TupleType:
		components := make([]hir.Type, len(t.Components))
		for i, c := range t.Components {
			components[i] = l.lower(c)
		}
		return hir.TupleType{Components: components}

	case *ast.NamedTupleType:
		fields := make([]hir.NamedField, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = hir.NamedField{Label: id.Intern(f.Label), Type: l.lower(f.Type)}
		}
		return hir.NamedTupleType{Fields: fields}

	case *ast.EnumType:
		variants := make([]hir.EnumVariantType, len(t.Variants))
		for i, v := range t.Variants {
			variant := hir.EnumVariantType{Name: id.Intern(v.Name)}
			if v.Payload != nil {
				variant.Payload = l.lower(v.Payload)
			}
			variants[i] = variant
		}
		return hir.EnumTypeNode{Variants: variants}

	case *ast.FunctionType:
		fn := hir.FunctionType{Return: l.lower(t.Return)}
		if t.Receiver != nil {
			fn.Receiver = l.lower(t.Receiver)
		}
		fn.Parameters = make([]hir.Type, len(t.Parameters))
		for i, p := range t.Parameters {
			fn.Parameters[i] = l.lower(p)
		}
		return fn

	default:
		span := node.NodeInfo().Span
		l.diagnostics.Add(report.New(report.ErrUnsupportedFeature, l.resource, &span, "type syntax"))
		return hir.ErrorType()
	}
}

// lowerNamed resolves a type name. A type parameter wins as Parameter;
// a trait/class/enum becomes User with lowered arguments.
func (l *typeLowerer) lowerNamed(t *ast.NamedType) hir.Type {
	name := id.Intern(t.Name)
	candidates := resolve.TypesOnly(resolve.Resolve(l.ctx, l.scope, name))

	span := t.Span
	switch len(candidates) {
	case 0:
		l.diagnostics.Add(report.New(report.ErrTypeNotFound, l.resource, &span, t.Name))
		return hir.ErrorType()
	case 1:
		// Committed below.
	default:
		if sameTarget(candidates) {
			break
		}
		// Duplicates within one module are a declaration clash; the same
		// name arriving through different imports is lookup ambiguity.
		if sameModule(candidates) {
			l.diagnostics.Add(report.New(report.ErrMultipleTypesWithName, l.resource, &span, t.Name))
		} else {
			l.diagnostics.Add(report.New(report.ErrAmbiguousType, l.resource, &span, t.Name))
		}
		return hir.ErrorType()
	}

	chosen := candidates[0]
	if chosen.IsTypeParam {
		if len(t.Args) > 0 {
			l.diagnostics.Add(report.New(report.ErrUnsupportedFeature, l.resource, &span,
				"type arguments on a type parameter"))
			return hir.ErrorType()
		}
		return hir.ParameterType{Declaration: chosen.Decl, Name: name}
	}
	if chosen.IsModule {
		l.diagnostics.Add(report.New(report.ErrTypeNotFound, l.resource, &span, t.Name))
		return hir.ErrorType()
	}

	args := make([]hir.Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = l.lower(a)
	}
	return hir.UserType{Module: ModuleOfDecl(chosen.Decl), Name: name, Args: args}
}

// sameTarget reports whether every candidate addresses the same
// declaration (the same name reached through two import paths is not an
// ambiguity).
func sameTarget(candidates []resolve.Candidate) bool {
	for _, c := range candidates[1:] {
		if c.IsTypeParam != candidates[0].IsTypeParam || !c.Decl.Equal(candidates[0].Decl) {
			return false
		}
	}
	return true
}

// sameModule reports whether every candidate lives in the same module.
func sameModule(candidates []resolve.Candidate) bool {
	first := ModuleOfDecl(candidates[0].Decl)
	for _, c := range candidates[1:] {
		if c.IsTypeParam || !ModuleOfDecl(c.Decl).Equal(first) {
			return false
		}
	}
	return !candidates[0].IsTypeParam
}

// thisAllowed reports whether This is legal in the current scope: inside
// a trait or impl declaration.
func (l *typeLowerer) thisAllowed() bool {
	if !l.scope.InDecl {
		return false
	}
	for i := range l.scope.Decl.Path {
		switch l.scope.Decl.Path[i].Kind {
		case id.KindTrait, id.KindImpl:
			return true
		}
	}
	return false
}
