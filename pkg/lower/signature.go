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

// provideDecl lowers one declaration's signature: type parameters with
// bounds, trait upper bounds, impl base/trait, function signature,
// property shape. Bodies are lowered separately.
func provideDecl(ctx *query.Context, declID id.DeclarationID) (query.Value, report.List) {
	var diagnostics report.List

	node := index.DeclarationAST(ctx, declID)
	if node == nil {
		return (*hir.Declaration)(nil), diagnostics
	}

	module := ModuleOfDecl(declID)
	scope := resolve.DeclScope(module, declID)
	res := declID.Resource

	lowerType := func(t ast.Type) hir.Type {
		return LowerType(ctx, scope, res, t, &diagnostics)
	}

	decl := &hir.Declaration{
		ID:       declID,
		Kind:     node.DeclKind(),
		Name:     id.Intern(node.DeclName()),
		IsPublic: ast.IsPublic(node),
		Module:   module,
		Children: index.DeclarationsOf(ctx, declID),
	}

	for _, tp := range ast.TypeParams(node) {
		bound := hir.Type(hir.AnyType())
		if tp.UpperBound != nil {
			bound = lowerType(tp.UpperBound)
		}
		decl.TypeParams = append(decl.TypeParams, hir.TypeParamDecl{
			Name:       id.Intern(tp.Name),
			UpperBound: bound,
		})
	}

	switch n := node.(type) {
	case *ast.TraitDecl:
		for _, bound := range n.UpperBounds {
			decl.UpperBounds = append(decl.UpperBounds, lowerType(bound))
		}

	case *ast.ImplDecl:
		decl.Base = lowerType(n.Base)
		if n.Trait != nil {
			decl.Trait = lowerType(n.Trait)
		}

	case *ast.FunctionDecl:
		if n.Receiver != nil {
			decl.Receiver = lowerType(n.Receiver)
		}
		for _, p := range n.Params {
			decl.Params = append(decl.Params, hir.ParamDecl{
				Name:       id.Intern(p.Name),
				Type:       lowerType(p.Type),
				HasDefault: p.Default != nil,
			})
		}
		decl.Return = lowerType(n.ReturnType)

	case *ast.PropertyDecl:
		decl.IsMutable = n.IsMutable
		decl.HasInitializer = n.Initializer != nil
		if n.Type != nil {
			decl.DeclaredType = lowerType(n.Type)
		}

	case *ast.GetterDecl:
		decl.Return = lowerType(n.ReturnType)

	case *ast.SetterDecl:
		decl.Params = []hir.ParamDecl{{
			Name: id.Intern(n.Param.Name),
			Type: lowerType(n.Param.Type),
		}}
		decl.Return = hir.TupleType{}

	case *ast.ConstructorDecl:
		for _, p := range n.Params {
			decl.Params = append(decl.Params, hir.ParamDecl{
				Name:       id.Intern(p.Name),
				Type:       lowerType(p.Type),
				HasDefault: p.Default != nil,
			})
		}

	case *ast.EnumDecl:
		for _, v := range n.Variants {
			variant := hir.EnumVariantType{Name: id.Intern(v.Name)}
			if v.Payload != nil {
				variant.Payload = lowerType(v.Payload)
			}
			decl.Variants = append(decl.Variants, variant)
		}
	}

	return decl, diagnostics
}

// DeclSignature returns the lowered signature of a declaration, or nil
// if the declaration no longer exists.
func DeclSignature(ctx *query.Context, declID id.DeclarationID) *hir.Declaration {
	v, err := ctx.Evaluate(QueryDecl, declID)
	if err != nil {
		return nil
	}
	decl, _ := v.(*hir.Declaration)
	return decl
}

// FindTypeDecl finds the declaration a user type refers to among its
// module's members.
func FindTypeDecl(ctx *query.Context, module id.ModuleID, name id.Symbol) *hir.Declaration {
	for _, memberID := range index.ModuleMembers(ctx, module) {
		step := memberID.Last()
		if step.Name != name || !step.Kind.IsTypeBearing() {
			continue
		}
		return DeclSignature(ctx, memberID)
	}
	return nil
}

// ValueTypeOf computes the type a reference to a value declaration has:
// a function's signature, a property's declared (or inferred) type, a
// getter's return type.
func ValueTypeOf(ctx *query.Context, declID id.DeclarationID) hir.Type {
	decl := DeclSignature(ctx, declID)
	if decl == nil {
		return hir.ErrorType()
	}
	switch decl.Kind {
	case id.KindFunction, id.KindConstructor:
		return decl.Signature()
	case id.KindProperty:
		if decl.DeclaredType != nil {
			return decl.DeclaredType
		}
		if decl.HasInitializer {
			if body := BodyOf(ctx, declID); body != nil {
				return body.ResultType()
			}
		}
		return hir.ErrorType()
	case id.KindGetter:
		return decl.Return
	case id.KindSetter:
		return decl.Signature()
	}
	return hir.ErrorType()
}
