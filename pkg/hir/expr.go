// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hir

import (
	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/id"
)

// Expression is one numbered node of a lowered body. Operands reference
// earlier expressions by local ID, so a body is a flat DAG in evaluation
// order.
type Expression interface {
	exprNode()
	Local() id.LocalID
	// StaticType is the expression's type, computed bottom-up during
	// lowering.
	StaticType() Type
}

// IntExpression is an integer literal.
type IntExpression struct {
	ID    id.LocalID
	Value int64
}

// TextExpression is one literal text segment.
type TextExpression struct {
	ID    id.LocalID
	Value string
}

// ReferenceExpression references a resolved declaration.
type ReferenceExpression struct {
	ID     id.LocalID
	Target id.DeclarationID
	Type   Type
}

// ParameterReference references a parameter of the enclosing function.
type ParameterReference struct {
	ID   id.LocalID
	Name id.Symbol
	Type Type
}

// CallExpression invokes a resolved function over already-lowered
// arguments.
type CallExpression struct {
	ID        id.LocalID
	Function  id.DeclarationID
	Receiver  *id.LocalID // nil for unqualified calls
	Arguments []id.LocalID
	Type      Type
}

// IsExpression tests trait membership of a value; its type is Bool.
type IsExpression struct {
	ID     id.LocalID
	Value  id.LocalID
	Tested Type
}

// NeedsExpression asserts a compile-time requirement.
type NeedsExpression struct {
	ID        id.LocalID
	Condition id.LocalID
	Message   *id.LocalID // nil when no message was given
}

// LambdaExpression is an anonymous function; its body is the local range
// [BodyStart, BodyEnd) within the enclosing flat body.
type LambdaExpression struct {
	ID        id.LocalID
	Params    []ParamDecl
	BodyStart int
	BodyEnd   int
	Type      Type
}

// ErrorExpression is the sentinel for expressions that failed to lower;
// its type is the error type and it produces no further diagnostics.
type ErrorExpression struct {
	ID id.LocalID
}

func (e IntExpression) exprNode()      {}
func (e TextExpression) exprNode()     {}
func (e ReferenceExpression) exprNode() {}
func (e ParameterReference) exprNode() {}
func (e CallExpression) exprNode()     {}
func (e IsExpression) exprNode()       {}
func (e NeedsExpression) exprNode()    {}
func (e LambdaExpression) exprNode()   {}
func (e ErrorExpression) exprNode()    {}

func (e IntExpression) Local() id.LocalID       { return e.ID }
func (e TextExpression) Local() id.LocalID      { return e.ID }
func (e ReferenceExpression) Local() id.LocalID { return e.ID }
func (e ParameterReference) Local() id.LocalID  { return e.ID }
func (e CallExpression) Local() id.LocalID      { return e.ID }
func (e IsExpression) Local() id.LocalID        { return e.ID }
func (e NeedsExpression) Local() id.LocalID     { return e.ID }
func (e LambdaExpression) Local() id.LocalID    { return e.ID }
func (e ErrorExpression) Local() id.LocalID     { return e.ID }

func (e IntExpression) StaticType() Type       { return CoreType("Int") }
func (e TextExpression) StaticType() Type      { return CoreType("Text") }
func (e ReferenceExpression) StaticType() Type { return e.Type }
func (e ParameterReference) StaticType() Type  { return e.Type }
func (e CallExpression) StaticType() Type      { return e.Type }
func (e IsExpression) StaticType() Type        { return CoreType("Bool") }
func (e NeedsExpression) StaticType() Type     { return TupleType{} }
func (e LambdaExpression) StaticType() Type    { return e.Type }
func (e ErrorExpression) StaticType() Type     { return ErrorType() }

// Body is the lowered form of one declaration body: the flat numbered
// expression list plus the mapping from AST node IDs to the HIR locals
// lowering produced for them.
type Body struct {
	Declaration id.DeclarationID
	Expressions []Expression
	ASTMap      map[ast.NodeID]id.LocalID
}

// Expression returns the expression with the given ordinal.
func (b *Body) Expression(ordinal int) (Expression, bool) {
	if ordinal < 0 || ordinal >= len(b.Expressions) {
		return nil, false
	}
	return b.Expressions[ordinal], true
}

// ResultType is the static type of the body's last expression, or unit
// for empty bodies.
func (b *Body) ResultType() Type {
	if len(b.Expressions) == 0 {
		return TupleType{}
	}
	return b.Expressions[len(b.Expressions)-1].StaticType()
}
