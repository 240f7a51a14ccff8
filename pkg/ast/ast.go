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

// Package ast defines the abstract syntax tree the external frontend hands
// to the compiler core, and the Parser interface that boundary runs
// through. The core never reads source text itself; everything below
// operates on these nodes.
//
// Node IDs are per-file ordinals assigned by the frontend. Lowering maps
// them to HIR local IDs, so they must be stable for unchanged text.
package ast

import (
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
)

// NodeID numbers an AST node within its file.
type NodeID int

// Node is the base of every AST node.
type Node struct {
	ID   NodeID
	Span report.Span
}

// File is one parsed source file.
type File struct {
	Resource id.ResourceID
	UseLines []UseLine
	Decls    []Decl
}

// UseLine is one import directive.
//
// DotCount distinguishes the three forms: 0 for absolute in-package and
// cross-package lines, k >= 1 for relative lines where k dots mean "go up
// k-1 levels from the file's module, then descend".
//
// For cross-package lines the first segment is the external package name
// (uppercase first letter).
type UseLine struct {
	Node
	DotCount int
	Segments []string
	Alias    string
	// IsPublic re-exports the import: name resolution follows public
	// use-lines when searching an imported module's children.
	IsPublic bool
}

// IsCrossPackage reports whether the line imports from another package.
func (u UseLine) IsCrossPackage() bool {
	return u.DotCount == 0 && len(u.Segments) > 0 &&
		u.Segments[0] != "" && u.Segments[0][0] >= 'A' && u.Segments[0][0] <= 'Z'
}

// Decl is implemented by all declaration nodes.
type Decl interface {
	declNode()
	NodeInfo() Node
	DeclKind() id.DeclarationKind
	DeclName() string // "" for unnamed declarations (impls)
}

// TypeParam declares one generic parameter with an optional upper bound.
type TypeParam struct {
	Node
	Name       string
	UpperBound Type // nil means unbounded
}

// Param is one function parameter.
type Param struct {
	Node
	Name    string
	Type    Type
	Default Expr // nil when the parameter has no default
}

// ModuleDecl is a nested inline module.
type ModuleDecl struct {
	Node
	Name     string
	IsPublic bool
	Decls    []Decl
}

// TraitDecl declares a trait with optional upper-bound traits.
type TraitDecl struct {
	Node
	Name        string
	IsPublic    bool
	TypeParams  []TypeParam
	UpperBounds []Type
	Decls       []Decl
}

// ClassDecl declares a concrete type.
type ClassDecl struct {
	Node
	Name       string
	IsPublic   bool
	TypeParams []TypeParam
	Decls      []Decl
}

// EnumDecl declares an enum type; variants carry optional payloads.
type EnumDecl struct {
	Node
	Name       string
	IsPublic   bool
	TypeParams []TypeParam
	Variants   []EnumVariant
}

// EnumVariant is one case of an enum.
type EnumVariant struct {
	Node
	Name    string
	Payload Type // nil for payload-less variants
}

// ImplDecl asserts that a base type satisfies a trait.
type ImplDecl struct {
	Node
	TypeParams []TypeParam
	Base       Type
	Trait      Type // nil for inherent impls
	Decls      []Decl
}

// FunctionDecl declares a function, optionally with a receiver.
type FunctionDecl struct {
	Node
	Name       string
	IsPublic   bool
	TypeParams []TypeParam
	Receiver   Type // nil for free functions
	Params     []Param
	ReturnType Type // nil means unit
	Body       []Expr
}

// PropertyDecl declares a property.
type PropertyDecl struct {
	Node
	Name        string
	IsPublic    bool
	IsMutable   bool
	Type        Type // nil when inferred from the initializer
	Initializer Expr // nil for abstract properties
}

// GetterDecl declares a computed property getter.
type GetterDecl struct {
	Node
	Name       string
	IsPublic   bool
	ReturnType Type
	Body       []Expr
}

// SetterDecl declares a property setter.
type SetterDecl struct {
	Node
	Name     string
	IsPublic bool
	Param    Param
	Body     []Expr
}

// ConstructorDecl declares a class constructor.
type ConstructorDecl struct {
	Node
	IsPublic bool
	Params   []Param
	Body     []Expr
}

func (d *ModuleDecl) declNode()      {}
func (d *TraitDecl) declNode()       {}
func (d *ClassDecl) declNode()       {}
func (d *EnumDecl) declNode()        {}
func (d *ImplDecl) declNode()        {}
func (d *FunctionDecl) declNode()    {}
func (d *PropertyDecl) declNode()    {}
func (d *GetterDecl) declNode()      {}
func (d *SetterDecl) declNode()      {}
func (d *ConstructorDecl) declNode() {}

func (d *ModuleDecl) NodeInfo() Node      { return d.Node }
func (d *TraitDecl) NodeInfo() Node       { return d.Node }
func (d *ClassDecl) NodeInfo() Node       { return d.Node }
func (d *EnumDecl) NodeInfo() Node        { return d.Node }
func (d *ImplDecl) NodeInfo() Node        { return d.Node }
func (d *FunctionDecl) NodeInfo() Node    { return d.Node }
func (d *PropertyDecl) NodeInfo() Node    { return d.Node }
func (d *GetterDecl) NodeInfo() Node      { return d.Node }
func (d *SetterDecl) NodeInfo() Node      { return d.Node }
func (d *ConstructorDecl) NodeInfo() Node { return d.Node }

func (d *ModuleDecl) DeclKind() id.DeclarationKind      { return id.KindModule }
func (d *TraitDecl) DeclKind() id.DeclarationKind       { return id.KindTrait }
func (d *ClassDecl) DeclKind() id.DeclarationKind       { return id.KindClass }
func (d *EnumDecl) DeclKind() id.DeclarationKind        { return id.KindEnum }
func (d *ImplDecl) DeclKind() id.DeclarationKind        { return id.KindImpl }
func (d *FunctionDecl) DeclKind() id.DeclarationKind    { return id.KindFunction }
func (d *PropertyDecl) DeclKind() id.DeclarationKind    { return id.KindProperty }
func (d *GetterDecl) DeclKind() id.DeclarationKind      { return id.KindGetter }
func (d *SetterDecl) DeclKind() id.DeclarationKind      { return id.KindSetter }
func (d *ConstructorDecl) DeclKind() id.DeclarationKind { return id.KindConstructor }

func (d *ModuleDecl) DeclName() string      { return d.Name }
func (d *TraitDecl) DeclName() string       { return d.Name }
func (d *ClassDecl) DeclName() string       { return d.Name }
func (d *EnumDecl) DeclName() string        { return d.Name }
func (d *ImplDecl) DeclName() string        { return "" }
func (d *FunctionDecl) DeclName() string    { return d.Name }
func (d *PropertyDecl) DeclName() string    { return d.Name }
func (d *GetterDecl) DeclName() string      { return d.Name }
func (d *SetterDecl) DeclName() string      { return d.Name }
func (d *ConstructorDecl) DeclName() string { return "" }

// ChildDecls returns the nested declarations of d, or nil.
func ChildDecls(d Decl) []Decl {
	switch decl := d.(type) {
	case *ModuleDecl:
		return decl.Decls
	case *TraitDecl:
		return decl.Decls
	case *ClassDecl:
		return decl.Decls
	case *ImplDecl:
		return decl.Decls
	}
	return nil
}

// IsPublic reads a declaration's visibility.
func IsPublic(d Decl) bool {
	switch decl := d.(type) {
	case *ModuleDecl:
		return decl.IsPublic
	case *TraitDecl:
		return decl.IsPublic
	case *ClassDecl:
		return decl.IsPublic
	case *EnumDecl:
		return decl.IsPublic
	case *FunctionDecl:
		return decl.IsPublic
	case *PropertyDecl:
		return decl.IsPublic
	case *GetterDecl:
		return decl.IsPublic
	case *SetterDecl:
		return decl.IsPublic
	case *ConstructorDecl:
		return decl.IsPublic
	}
	return false
}

// TypeParams reads a declaration's generic parameters.
func TypeParams(d Decl) []TypeParam {
	switch decl := d.(type) {
	case *TraitDecl:
		return decl.TypeParams
	case *ClassDecl:
		return decl.TypeParams
	case *EnumDecl:
		return decl.TypeParams
	case *ImplDecl:
		return decl.TypeParams
	case *FunctionDecl:
		return decl.TypeParams
	}
	return nil
}
