// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package asttest provides a fake frontend for tests: pre-built ASTs
// served through the Parser interface, plus terse constructors for the
// node shapes the middle-end tests need.
package asttest

import (
	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
)

// Parser serves pre-registered files. Content handed to Parse is
// ignored; tests drive incrementality by swapping the registered tree
// and invalidating the resource.
type Parser struct {
	files map[id.ResourceID]*ast.File
}

// NewParser creates an empty fake parser.
func NewParser() *Parser {
	return &Parser{files: make(map[id.ResourceID]*ast.File)}
}

// Put registers the AST for a resource.
func (p *Parser) Put(file *ast.File) {
	p.files[file.Resource] = file
}

// Remove drops a registered AST.
func (p *Parser) Remove(res id.ResourceID) {
	delete(p.files, res)
}

// Parse implements ast.Parser.
func (p *Parser) Parse(res id.ResourceID, _ string) (*ast.File, report.List) {
	if file, ok := p.files[res]; ok {
		return file, report.List{}
	}
	var diagnostics report.List
	diagnostics.Add(report.New(report.ErrSyntaxError, res, nil, "no fixture registered"))
	return nil, diagnostics
}

// B numbers nodes while building one file's tree.
type B struct {
	next ast.NodeID
}

// NewBuilder creates a node builder for one file.
func NewBuilder() *B { return &B{} }

// N mints the next node.
func (b *B) N() ast.Node {
	node := ast.Node{ID: b.next}
	b.next++
	return node
}

// File assembles a file.
func (b *B) File(res id.ResourceID, uses []ast.UseLine, decls ...ast.Decl) *ast.File {
	return &ast.File{Resource: res, UseLines: uses, Decls: decls}
}

// Use builds an absolute or relative use line.
func (b *B) Use(dots int, segments ...string) ast.UseLine {
	return ast.UseLine{Node: b.N(), DotCount: dots, Segments: segments}
}

// UseAlias builds a use line with an alias.
func (b *B) UseAlias(dots int, alias string, segments ...string) ast.UseLine {
	return ast.UseLine{Node: b.N(), DotCount: dots, Segments: segments, Alias: alias}
}

// UsePublic builds a re-exporting use line.
func (b *B) UsePublic(dots int, segments ...string) ast.UseLine {
	return ast.UseLine{Node: b.N(), DotCount: dots, Segments: segments, IsPublic: true}
}

// Named builds a named type reference.
func (b *B) Named(name string, args ...ast.Type) *ast.NamedType {
	return &ast.NamedType{Node: b.N(), Name: name, Args: args}
}

// This builds the This type.
func (b *B) This() *ast.ThisType { return &ast.ThisType{Node: b.N()} }

// Union builds a binary union type.
func (b *B) Union(left, right ast.Type) *ast.UnionType {
	return &ast.UnionType{Node: b.N(), Left: left, Right: right}
}

// Intersection builds a binary intersection type.
func (b *B) Intersection(left, right ast.Type) *ast.IntersectionType {
	return &ast.IntersectionType{Node: b.N(), Left: left, Right: right}
}

// Group parenthesizes a type.
func (b *B) Group(inner ast.Type) *ast.GroupType {
	return &ast.GroupType{Node: b.N(), Inner: inner}
}

// Tuple builds a tuple type.
func (b *B) Tuple(components ...ast.Type) *ast.TupleType {
	return &ast.TupleType{Node: b.N(), Components: components}
}

// FnType builds a function type.
func (b *B) FnType(params []ast.Type, ret ast.Type) *ast.FunctionType {
	return &ast.FunctionType{Node: b.N(), Parameters: params, Return: ret}
}

// TypeParam declares a generic parameter.
func (b *B) TypeParam(name string, bound ast.Type) ast.TypeParam {
	return ast.TypeParam{Node: b.N(), Name: name, UpperBound: bound}
}

// Module builds a public inline module.
func (b *B) Module(name string, decls ...ast.Decl) *ast.ModuleDecl {
	return &ast.ModuleDecl{Node: b.N(), Name: name, IsPublic: true, Decls: decls}
}

// Trait builds a public trait.
func (b *B) Trait(name string, decls ...ast.Decl) *ast.TraitDecl {
	return &ast.TraitDecl{Node: b.N(), Name: name, IsPublic: true, Decls: decls}
}

// TraitBounded builds a public trait with upper bounds.
func (b *B) TraitBounded(name string, bounds []ast.Type, decls ...ast.Decl) *ast.TraitDecl {
	return &ast.TraitDecl{Node: b.N(), Name: name, IsPublic: true, UpperBounds: bounds, Decls: decls}
}

// Class builds a public class.
func (b *B) Class(name string, decls ...ast.Decl) *ast.ClassDecl {
	return &ast.ClassDecl{Node: b.N(), Name: name, IsPublic: true, Decls: decls}
}

// ClassGeneric builds a public generic class.
func (b *B) ClassGeneric(name string, params []ast.TypeParam, decls ...ast.Decl) *ast.ClassDecl {
	return &ast.ClassDecl{Node: b.N(), Name: name, IsPublic: true, TypeParams: params, Decls: decls}
}

// Impl builds an impl of a trait for a base type.
func (b *B) Impl(base ast.Type, trait ast.Type, decls ...ast.Decl) *ast.ImplDecl {
	return &ast.ImplDecl{Node: b.N(), Base: base, Trait: trait, Decls: decls}
}

// ImplGeneric builds a generic impl.
func (b *B) ImplGeneric(params []ast.TypeParam, base ast.Type, trait ast.Type, decls ...ast.Decl) *ast.ImplDecl {
	return &ast.ImplDecl{Node: b.N(), TypeParams: params, Base: base, Trait: trait, Decls: decls}
}

// Fn builds a public function.
func (b *B) Fn(name string, params []ast.Param, ret ast.Type, body ...ast.Expr) *ast.FunctionDecl {
	return &ast.FunctionDecl{Node: b.N(), Name: name, IsPublic: true, Params: params, ReturnType: ret, Body: body}
}

// FnLocal builds a module-local function.
func (b *B) FnLocal(name string, params []ast.Param, ret ast.Type, body ...ast.Expr) *ast.FunctionDecl {
	return &ast.FunctionDecl{Node: b.N(), Name: name, Params: params, ReturnType: ret, Body: body}
}

// Param builds a function parameter.
func (b *B) Param(name string, typ ast.Type) ast.Param {
	return ast.Param{Node: b.N(), Name: name, Type: typ}
}

// Property builds a public immutable property.
func (b *B) Property(name string, typ ast.Type, initializer ast.Expr) *ast.PropertyDecl {
	return &ast.PropertyDecl{Node: b.N(), Name: name, IsPublic: true, Type: typ, Initializer: initializer}
}

// Getter builds a public getter.
func (b *B) Getter(name string, ret ast.Type, body ...ast.Expr) *ast.GetterDecl {
	return &ast.GetterDecl{Node: b.N(), Name: name, IsPublic: true, ReturnType: ret, Body: body}
}

// Setter builds a public setter.
func (b *B) Setter(name string, param ast.Param, body ...ast.Expr) *ast.SetterDecl {
	return &ast.SetterDecl{Node: b.N(), Name: name, IsPublic: true, Param: param, Body: body}
}

// Enum builds a public enum declaration.
func (b *B) Enum(name string, variants ...ast.EnumVariant) *ast.EnumDecl {
	return &ast.EnumDecl{Node: b.N(), Name: name, IsPublic: true, Variants: variants}
}

// Variant builds one enum case.
func (b *B) Variant(name string, payload ast.Type) ast.EnumVariant {
	return ast.EnumVariant{Node: b.N(), Name: name, Payload: payload}
}

// LambdaOf builds an anonymous function literal.
func (b *B) LambdaOf(params []ast.Param, body ...ast.Expr) *ast.Lambda {
	return &ast.Lambda{Node: b.N(), Params: params, Body: body}
}

// Int builds an integer literal.
func (b *B) Int(value int64) *ast.IntLiteral {
	return &ast.IntLiteral{Node: b.N(), Value: value}
}

// Text builds a plain text literal.
func (b *B) Text(value string) *ast.TextLiteral {
	return &ast.TextLiteral{Node: b.N(), Parts: []ast.TextPart{{Node: b.N(), Literal: value}}}
}

// TextInterp builds a text literal from alternating parts.
func (b *B) TextInterp(parts ...ast.TextPart) *ast.TextLiteral {
	return &ast.TextLiteral{Node: b.N(), Parts: parts}
}

// Lit builds a literal text part.
func (b *B) Lit(value string) ast.TextPart {
	return ast.TextPart{Node: b.N(), Literal: value}
}

// Interp builds an interpolated text part.
func (b *B) Interp(e ast.Expr) ast.TextPart {
	return ast.TextPart{Node: b.N(), Interpolation: e}
}

// Ident builds an identifier reference.
func (b *B) Ident(name string) *ast.Identifier {
	return &ast.Identifier{Node: b.N(), Name: name}
}

// CallOf builds an unqualified call.
func (b *B) CallOf(name string, args ...ast.Expr) *ast.Call {
	return b.MethodCall(nil, name, args...)
}

// MethodCall builds a receiver call.
func (b *B) MethodCall(receiver ast.Expr, name string, args ...ast.Expr) *ast.Call {
	callArgs := make([]ast.CallArg, len(args))
	for i, a := range args {
		callArgs[i] = ast.CallArg{Node: b.N(), Value: a}
	}
	return &ast.Call{Node: b.N(), Receiver: receiver, Name: name, Args: callArgs}
}

// IsOf builds `value is Type`.
func (b *B) IsOf(value ast.Expr, typ ast.Type) *ast.Is {
	return &ast.Is{Node: b.N(), Value: value, Type: typ}
}

// NeedsOf builds `needs condition`.
func (b *B) NeedsOf(condition ast.Expr) *ast.Needs {
	return &ast.Needs{Node: b.N(), Condition: condition}
}
