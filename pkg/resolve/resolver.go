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

package resolve

import (
	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/index"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
)

// Scope is a resolution scope: a file-level module, or a declaration
// inside one.
type Scope struct {
	Module id.ModuleID
	Decl   id.DeclarationID
	InDecl bool
}

// ModuleScope is the scope of a file-level module.
func ModuleScope(module id.ModuleID) Scope {
	return Scope{Module: module}
}

// DeclScope is the scope inside a declaration.
func DeclScope(module id.ModuleID, decl id.DeclarationID) Scope {
	return Scope{Module: module, Decl: decl, InDecl: true}
}

// Candidate is one declaration an identifier may refer to. Matches from
// different scope levels are all returned; the resolver does not shadow.
type Candidate struct {
	// Decl addresses the declaration; for type parameters it addresses
	// the owning declaration instead.
	Decl     id.DeclarationID
	Kind     id.DeclarationKind
	Name     id.Symbol
	IsPublic bool

	// IsTypeParam marks a generic-parameter match.
	IsTypeParam bool

	// IsModule marks a module binding (via alias or import); Module is
	// the bound module.
	IsModule bool
	Module   id.ModuleID
}

// nameKey keys the resolution query.
type nameKey struct {
	Scope Scope
	Name  id.Symbol
}

// Resolve returns all candidate declarations for an identifier in a
// scope, walking outward and through use-lines.
func Resolve(ctx *query.Context, scope Scope, name id.Symbol) []Candidate {
	v, err := ctx.Evaluate(QueryName, nameKey{Scope: scope, Name: name})
	if err != nil {
		return nil
	}
	candidates, _ := v.([]Candidate)
	return candidates
}

// TypesOnly filters candidates to type-bearing kinds (type parameters
// included).
func TypesOnly(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.IsTypeParam || c.Kind.IsTypeBearing() {
			out = append(out, c)
		}
	}
	return out
}

// ValuesOnly filters candidates to value-bearing kinds.
func ValuesOnly(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if !c.IsTypeParam && c.Kind.IsValueBearing() {
			out = append(out, c)
		}
	}
	return out
}

// provideName collects candidates from every scope level: declaration
// children first, then type parameters, walking outward to the file-level
// module, whose imports end the walk.
func provideName(ctx *query.Context, key nameKey) (query.Value, report.List) {
	var candidates []Candidate
	scope := key.Scope
	name := key.Name

	for {
		if !scope.InDecl {
			// Rule 1 at module level: the module's own members.
			candidates = append(candidates, matchMembers(ctx, index.ModuleMembers(ctx, scope.Module), name)...)

			// Rule 3: imported modules' public children, recursively
			// through public use-lines; aliases bind module names.
			location := index.LocateModule(ctx, scope.Module)
			if location.Found && !location.IsInline {
				visited := map[string]bool{scope.Module.Key(): true}
				for _, imp := range ImportsOf(ctx, location.Resource).List {
					candidates = append(candidates, matchImport(ctx, imp, name, visited)...)
				}
			}
			break
		}

		// Rule 1: children of the declaration.
		candidates = append(candidates, matchChildren(ctx, scope.Decl, name)...)

		// Rule 2: type parameters, for uppercase identifiers only, so
		// value lookups stay distinguishable.
		if name.IsUppercase() {
			if node := index.DeclarationAST(ctx, scope.Decl); node != nil {
				for _, tp := range ast.TypeParams(node) {
					if id.Intern(tp.Name) == name {
						candidates = append(candidates, Candidate{
							Decl:        scope.Decl,
							Name:        name,
							IsTypeParam: true,
						})
					}
				}
			}
		}

		// Rule 4: recurse into the parent.
		if parent, ok := index.ParentOf(scope.Decl); ok {
			scope = DeclScope(scope.Module, parent)
		} else {
			scope = ModuleScope(index.ModuleOfResource(scope.Decl.Resource))
		}
	}

	return candidates, report.List{}
}

// matchChildren matches a declaration's children by name. Overloads all
// match: they share a name and differ only in disambiguator.
func matchChildren(ctx *query.Context, parent id.DeclarationID, name id.Symbol) []Candidate {
	return matchMembers(ctx, index.DeclarationsOf(ctx, parent), name)
}

func matchMembers(ctx *query.Context, members []id.DeclarationID, name id.Symbol) []Candidate {
	var out []Candidate
	for _, declID := range members {
		step := declID.Last()
		if step.Name != name || step.Name == id.NoName {
			continue
		}
		node := index.DeclarationAST(ctx, declID)
		out = append(out, Candidate{
			Decl:     declID,
			Kind:     step.Kind,
			Name:     step.Name,
			IsPublic: ast.IsPublic(node),
		})
	}
	return out
}

// matchImport matches one import against the identifier: the alias (or
// the module's last segment) binds the module itself, and the module's
// public children are searched recursively through public use-lines.
func matchImport(ctx *query.Context, imp Import, name id.Symbol, visited map[string]bool) []Candidate {
	var out []Candidate

	bound := imp.Alias
	if bound == id.NoName && len(imp.Module.Segments) > 0 {
		bound = imp.Module.Segments[len(imp.Module.Segments)-1]
	}
	if bound == name {
		out = append(out, Candidate{
			Kind:     id.KindModule,
			Name:     name,
			IsModule: true,
			Module:   imp.Module,
			IsPublic: true,
		})
	}

	out = append(out, publicChildren(ctx, imp.Module, name, visited)...)
	return out
}

// publicChildren searches a module's public members for the name,
// following the module's own public use-lines transitively.
func publicChildren(ctx *query.Context, module id.ModuleID, name id.Symbol, visited map[string]bool) []Candidate {
	if visited[module.Key()] {
		return nil
	}
	visited[module.Key()] = true

	var out []Candidate
	for _, c := range matchMembers(ctx, index.ModuleMembers(ctx, module), name) {
		if c.IsPublic {
			out = append(out, c)
		}
	}

	location := index.LocateModule(ctx, module)
	if location.Found && !location.IsInline {
		for _, imp := range ImportsOf(ctx, location.Resource).List {
			if !imp.IsPublic {
				continue
			}
			out = append(out, publicChildren(ctx, imp.Module, name, visited)...)
		}
	}
	return out
}

