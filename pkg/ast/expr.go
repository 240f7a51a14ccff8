// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ast

// Expr is implemented by all expression nodes.
type Expr interface {
	exprNode()
	NodeInfo() Node
}

// IntLiteral is an integer literal.
type IntLiteral struct {
	Node
	Value int64
}

// TextPart is one segment of a text literal: either literal text or an
// interpolated expression.
type TextPart struct {
	Node
	Literal       string
	Interpolation Expr // nil for literal parts
}

// TextLiteral is a text literal, possibly with interpolations.
type TextLiteral struct {
	Node
	Parts []TextPart
}

// Identifier references a name in scope.
type Identifier struct {
	Node
	Name string
}

// CallArg is one argument of a call, optionally labeled.
type CallArg struct {
	Node
	Label string // "" for positional arguments
	Value Expr
}

// Call invokes a function: `receiver.name(args)` or `name(args)` when
// Receiver is nil.
type Call struct {
	Node
	Receiver Expr // nil for unqualified calls
	Name     string
	TypeArgs []Type
	Args     []CallArg
}

// Is tests whether a value's type satisfies a trait: `value is Trait`.
type Is struct {
	Node
	Value Expr
	Type  Type
}

// Needs asserts a compile-time requirement on its condition.
type Needs struct {
	Node
	Condition Expr
	Message   Expr // nil when no message is given
}

// Lambda is an anonymous function literal.
type Lambda struct {
	Node
	Params []Param
	Body   []Expr
}

func (e *IntLiteral) exprNode()  {}
func (e *TextLiteral) exprNode() {}
func (e *Identifier) exprNode()  {}
func (e *Call) exprNode()        {}
func (e *Is) exprNode()          {}
func (e *Needs) exprNode()       {}
func (e *Lambda) exprNode()      {}

func (e *IntLiteral) NodeInfo() Node  { return e.Node }
func (e *TextLiteral) NodeInfo() Node { return e.Node }
func (e *Identifier) NodeInfo() Node  { return e.Node }
func (e *Call) NodeInfo() Node        { return e.Node }
func (e *Is) NodeInfo() Node          { return e.Node }
func (e *Needs) NodeInfo() Node       { return e.Node }
func (e *Lambda) NodeInfo() Node      { return e.Node }
