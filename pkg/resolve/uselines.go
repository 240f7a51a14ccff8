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

// Package resolve interprets use-lines into module references and
// resolves identifiers in scopes to candidate declarations. Both run as
// queries over the declaration index.
package resolve

import (
	"strings"

	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/index"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
)

// Query names registered by this package.
const (
	QueryImports = "resolve.imports"
	QueryName    = "resolve.name"
)

// Import is one resolved use-line: the target module and the optional
// alias it is bound under.
type Import struct {
	Module   id.ModuleID
	Alias    id.Symbol // NoName when the line has no alias
	IsPublic bool
}

// Imports is the resolved import list of one file, in source order, with
// the implicit core import appended when applicable.
type Imports struct {
	List []Import
}

// Register wires the resolver queries onto the engine.
func Register(e *query.Engine) {
	e.Register(query.Query{Name: QueryImports, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideImports(ctx, key.(id.ResourceID))
	}})
	e.Register(query.Query{Name: QueryName, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideName(ctx, key.(nameKey))
	}})
}

// provideImports resolves every use-line of a file. Duplicate explicit
// imports keep their source order; ambiguity between them surfaces at
// lookup time, not here.
func provideImports(ctx *query.Context, res id.ResourceID) (query.Value, report.List) {
	var diagnostics report.List
	imports := Imports{}

	file := index.FileAST(ctx, res)
	if file == nil {
		return imports, diagnostics
	}

	anchor := anchorModule(res)
	sawCore := res.Package.IsCore()

	for i := range file.UseLines {
		use := file.UseLines[i]
		target, ok := resolveUseLine(ctx, res, anchor, use, &diagnostics)
		if !ok {
			continue
		}
		if target.Package.IsCore() {
			sawCore = true
		}
		imports.List = append(imports.List, Import{
			Module:   target,
			Alias:    id.Intern(use.Alias),
			IsPublic: use.IsPublic,
		})
	}

	// Packages other than core get an implicit `use Core` when no
	// explicit core import exists.
	if !sawCore {
		imports.List = append(imports.List, Import{Module: id.RootModule(id.CorePackage)})
	}

	return imports, diagnostics
}

// anchorModule is the module relative use-lines navigate from: the
// module of the directory the file sits in. For a module file (`_.candy`
// or `module.candy`) that is the file's own module; for a named file it
// is the parent, which makes one-dot forms reach siblings.
func anchorModule(res id.ResourceID) id.ModuleID {
	module := id.RootModule(res.Package)
	parts := strings.Split(res.Path, "/")
	for _, segment := range parts[:len(parts)-1] {
		if segment == "" {
			continue
		}
		module = module.Child(id.Intern(segment))
	}
	return module
}

// resolveUseLine interprets one use-line relative to the file's anchor
// module.
func resolveUseLine(ctx *query.Context, res id.ResourceID, anchor id.ModuleID, use ast.UseLine, diagnostics *report.List) (id.ModuleID, bool) {
	span := use.Span

	var target id.ModuleID
	switch {
	case use.DotCount == 0 && len(use.Segments) == 0:
		diagnostics.Add(report.New(report.ErrInvalidUseLine, res, &span, "empty use line"))
		return id.ModuleID{}, false

	case use.IsCrossPackage():
		pkg := id.NewPackageID(use.Segments[0])
		if len(ctx.EnumerateResources(pkg)) == 0 {
			diagnostics.Add(report.New(report.ErrUseLineTargetNotFound, res, &span, use.Segments[0]))
			return id.ModuleID{}, false
		}
		target = id.RootModule(pkg)
		target = descend(target, use.Segments[1:])

	case use.DotCount == 0:
		// Absolute in-package: a path from the package root.
		target = descend(id.RootModule(res.Package), use.Segments)

	default:
		// Relative: k dots go up k-1 levels from the anchor.
		base := anchor
		for up := 0; up < use.DotCount-1; up++ {
			parent, ok := base.Parent()
			if !ok {
				diagnostics.Add(report.New(report.ErrTooManyUpNavigations, res, &span))
				return id.ModuleID{}, false
			}
			base = parent
		}
		target = descend(base, use.Segments)
	}

	if !index.LocateModule(ctx, target).Found {
		diagnostics.Add(report.New(report.ErrUseLineTargetNotFound, res, &span,
			strings.Join(use.Segments, ".")))
		return id.ModuleID{}, false
	}
	return target, true
}

func descend(module id.ModuleID, segments []string) id.ModuleID {
	for _, segment := range segments {
		module = module.Child(id.Intern(segment))
	}
	return module
}

// ImportsOf returns the resolved import list of a file.
func ImportsOf(ctx *query.Context, res id.ResourceID) Imports {
	v, err := ctx.Evaluate(QueryImports, res)
	if err != nil {
		return Imports{}
	}
	return v.(Imports)
}
