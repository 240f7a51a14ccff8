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

// Package index turns a package's file tree into an addressable set of
// declarations: every declaration gets a stable DeclarationID whose path
// steps are assigned deterministically, and modules resolve to at most one
// location. All lookups are queries, so the index follows resource
// invalidation for free.
package index

import (
	"strings"

	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
)

// Query names registered by this package.
const (
	QueryFileAST       = "index.file_ast"
	QueryDeclarations  = "index.declarations"
	QueryModuleLocator = "index.module_location"
)

// Register wires the index queries onto the engine. The parser is the
// external frontend; it is treated as a pure function of the text.
func Register(e *query.Engine, parser ast.Parser) {
	e.Register(query.Query{Name: QueryFileAST, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideFileAST(ctx, parser, key.(id.ResourceID))
	}})
	e.Register(query.Query{Name: QueryDeclarations, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideDeclarations(ctx, key.(id.ResourceID))
	}})
	e.Register(query.Query{Name: QueryModuleLocator, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideModuleLocation(ctx, key.(id.ModuleID))
	}})
}

// provideFileAST parses one resource. A missing resource yields a nil
// file without diagnostics; the caller knows why it asked.
func provideFileAST(ctx *query.Context, parser ast.Parser, res id.ResourceID) (query.Value, report.List) {
	text, ok := ctx.ReadResource(res)
	if !ok {
		return (*ast.File)(nil), report.List{}
	}
	file, diagnostics := parser.Parse(res, text)
	return file, diagnostics
}

// FileAST returns the parsed AST of a resource, or nil if the resource
// does not exist or was unparseable.
func FileAST(ctx *query.Context, res id.ResourceID) *ast.File {
	v, err := ctx.Evaluate(QueryFileAST, res)
	if err != nil {
		return nil
	}
	file, _ := v.(*ast.File)
	return file
}

// Table is the declaration index of one resource: every declaration in
// the file keyed by its canonical path, with deterministic ordering.
type Table struct {
	Resource id.ResourceID
	// Order lists every declaration of the file in source order
	// (pre-order).
	Order []id.DeclarationID
	// TopLevel lists the file's top-level declarations.
	TopLevel []id.DeclarationID
	nodes    map[string]ast.Decl
	children map[string][]id.DeclarationID
}

// Node returns the AST node of a declaration, or nil if the ID no longer
// exists.
func (t *Table) Node(declID id.DeclarationID) ast.Decl {
	if t == nil {
		return nil
	}
	return t.nodes[declID.Key()]
}

// Children returns the ordered child IDs of a declaration.
func (t *Table) Children(declID id.DeclarationID) []id.DeclarationID {
	if t == nil {
		return nil
	}
	return t.children[declID.Key()]
}

// provideDeclarations builds the declaration table for one resource.
func provideDeclarations(ctx *query.Context, res id.ResourceID) (query.Value, report.List) {
	// Parse diagnostics stay with the file_ast entry; re-reporting them
	// here would double them up.
	file := FileAST(ctx, res)

	table := &Table{
		Resource: res,
		nodes:    make(map[string]ast.Decl),
		children: make(map[string][]id.DeclarationID),
	}
	if file == nil {
		return table, report.List{}
	}

	table.TopLevel = indexSiblings(table, id.DeclarationID{Resource: res}, file.Decls)
	return table, report.List{}
}

// indexSiblings assigns disambiguated path steps to one sibling group and
// recurses into children. Inline modules use their declared names, impls
// their ordinal among impl siblings, and overloaded functions an ordinal
// among same-named siblings.
func indexSiblings(table *Table, parent id.DeclarationID, decls []ast.Decl) []id.DeclarationID {
	seen := make(map[id.PathStep]int)
	ids := make([]id.DeclarationID, 0, len(decls))

	for _, decl := range decls {
		base := id.PathStep{Kind: decl.DeclKind(), Name: id.Intern(decl.DeclName())}
		step := base
		step.Disambiguator = seen[base]
		seen[base]++

		declID := parent.Child(step)
		key := declID.Key()
		table.nodes[key] = decl
		table.Order = append(table.Order, declID)
		ids = append(ids, declID)

		if children := ast.ChildDecls(decl); len(children) > 0 {
			table.children[key] = indexSiblings(table, declID, children)
		}
	}
	return ids
}

// Declarations returns the resource's declaration table; never nil.
func Declarations(ctx *query.Context, res id.ResourceID) *Table {
	v, err := ctx.Evaluate(QueryDeclarations, res)
	if err != nil {
		return &Table{Resource: res}
	}
	return v.(*Table)
}

// DeclarationAST returns the AST node of a declaration, or nil if the ID
// no longer exists.
func DeclarationAST(ctx *query.Context, declID id.DeclarationID) ast.Decl {
	return Declarations(ctx, declID.Resource).Node(declID)
}

// DeclarationsOf returns the ordered child ids of a declaration.
func DeclarationsOf(ctx *query.Context, declID id.DeclarationID) []id.DeclarationID {
	return Declarations(ctx, declID.Resource).Children(declID)
}

// ParentOf returns the enclosing declaration, or ok=false for top-level
// declarations.
func ParentOf(declID id.DeclarationID) (id.DeclarationID, bool) {
	parent, ok := declID.Parent()
	if !ok || len(parent.Path) == 0 {
		return id.DeclarationID{}, false
	}
	return parent, true
}

// ModuleOfResource computes the module a resource belongs to, from its
// path alone: `foo/bar.candy` is module foo:bar, and a module file
// (`_.candy` or `module.candy`) names its directory's module.
func ModuleOfResource(res id.ResourceID) id.ModuleID {
	path := strings.TrimSuffix(res.Path, ".candy")
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if last == "_" || last == "module" {
		segments = segments[:len(segments)-1]
	}
	module := id.RootModule(res.Package)
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		module = module.Child(id.Intern(segment))
	}
	return module
}

// Location is where a module lives: its defining resource and, for
// inline modules, the declaration inside that resource.
type Location struct {
	Found    bool
	Resource id.ResourceID
	// Inline is the inline module declaration, when the module is not a
	// whole file; zero otherwise.
	Inline   id.DeclarationID
	IsInline bool
}

// provideModuleLocation maps a module ID to its defining file or inline
// declaration. A module is a file at <path>.candy, a directory with a
// `_.candy` or `module.candy` module file, or an inline module inside an
// ancestor's file; the first match in that order wins, so every module
// resolves to at most one location.
func provideModuleLocation(ctx *query.Context, module id.ModuleID) (query.Value, report.List) {
	// File forms for the full segment path.
	if res, ok := fileForSegments(ctx, module.Package, module.Segments); ok {
		return Location{Found: true, Resource: res}, report.List{}
	}

	// Otherwise: longest prefix that is a file, remaining segments must
	// descend through inline modules.
	for cut := len(module.Segments) - 1; cut >= 0; cut-- {
		res, ok := fileForSegments(ctx, module.Package, module.Segments[:cut])
		if !ok {
			continue
		}
		if declID, ok := descendInline(ctx, res, module.Segments[cut:]); ok {
			return Location{Found: true, Resource: res, Inline: declID, IsInline: true}, report.List{}
		}
	}

	return Location{}, report.List{}
}

// fileForSegments finds the resource file for a segment path, preferring
// <path>.candy over <path>/_.candy over <path>/module.candy. The package
// root only has the module-file forms.
func fileForSegments(ctx *query.Context, pkg id.PackageID, segments []id.Symbol) (id.ResourceID, bool) {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.String()
	}
	joined := strings.Join(parts, "/")

	var candidates []string
	if joined != "" {
		candidates = []string{
			joined + ".candy",
			joined + "/" + "_.candy",
			joined + "/" + "module.candy",
		}
	} else {
		candidates = []string{"_.candy", "module.candy"}
	}

	for _, path := range candidates {
		res := id.NewResourceID(pkg, path)
		if ctx.ResourceExists(res) {
			return res, true
		}
	}
	return id.ResourceID{}, false
}

// descendInline walks inline module declarations inside a file.
func descendInline(ctx *query.Context, res id.ResourceID, segments []id.Symbol) (id.DeclarationID, bool) {
	table := Declarations(ctx, res)
	current := table.TopLevel
	var found id.DeclarationID

	for _, segment := range segments {
		matched := false
		for _, childID := range current {
			step := childID.Last()
			if step.Kind == id.KindModule && step.Name == segment {
				found = childID
				current = table.Children(childID)
				matched = true
				break
			}
		}
		if !matched {
			return id.DeclarationID{}, false
		}
	}
	return found, true
}

// LocateModule resolves a module to its location.
func LocateModule(ctx *query.Context, module id.ModuleID) Location {
	v, err := ctx.Evaluate(QueryModuleLocator, module)
	if err != nil {
		return Location{}
	}
	return v.(Location)
}

// ModuleMembers returns the declarations that are direct members of a
// module: the top-level declarations of its file, or the children of its
// inline declaration.
func ModuleMembers(ctx *query.Context, module id.ModuleID) []id.DeclarationID {
	location := LocateModule(ctx, module)
	if !location.Found {
		return nil
	}
	table := Declarations(ctx, location.Resource)
	if location.IsInline {
		return table.Children(location.Inline)
	}
	return table.TopLevel
}
