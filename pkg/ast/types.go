// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ast

// Type is implemented by all type-syntax nodes.
type Type interface {
	typeNode()
	NodeInfo() Node
}

// NamedType references a declared type or type parameter by name, with
// optional type arguments.
type NamedType struct {
	Node
	Name string
	Args []Type
}

// ThisType is the `This` keyword; only legal inside traits and impls.
type ThisType struct {
	Node
}

// TupleType is an ordered list of component types.
type TupleType struct {
	Node
	Components []Type
}

// NamedTupleField labels one component of a named tuple type.
type NamedTupleField struct {
	Node
	Label string
	Type  Type
}

// NamedTupleType is a tuple with labeled components.
type NamedTupleType struct {
	Node
	Fields []NamedTupleField
}

// EnumTypeVariant is one case of a structural enum type.
type EnumTypeVariant struct {
	Node
	Name    string
	Payload Type // nil for payload-less variants
}

// EnumType is a structural enum type.
type EnumType struct {
	Node
	Variants []EnumTypeVariant
}

// FunctionType is a function signature type.
type FunctionType struct {
	Node
	Receiver   Type // nil for free function types
	Parameters []Type
	Return     Type
}

// UnionType is a binary union; lowering flattens nests to n-ary form.
type UnionType struct {
	Node
	Left  Type
	Right Type
}

// IntersectionType is a binary intersection; lowering flattens nests.
type IntersectionType struct {
	Node
	Left  Type
	Right Type
}

// GroupType is a parenthesized type; it collapses during lowering.
type GroupType struct {
	Node
	Inner Type
}

func (t *NamedType) typeNode()        {}
func (t *ThisType) typeNode()         {}
func (t *TupleType) typeNode()        {}
func (t *NamedTupleType) typeNode()   {}
func (t *EnumType) typeNode()         {}
func (t *FunctionType) typeNode()     {}
func (t *UnionType) typeNode()        {}
func (t *IntersectionType) typeNode() {}
func (t *GroupType) typeNode()        {}

func (t *NamedType) NodeInfo() Node        { return t.Node }
func (t *ThisType) NodeInfo() Node         { return t.Node }
func (t *TupleType) NodeInfo() Node        { return t.Node }
func (t *NamedTupleType) NodeInfo() Node   { return t.Node }
func (t *EnumType) NodeInfo() Node         { return t.Node }
func (t *FunctionType) NodeInfo() Node     { return t.Node }
func (t *UnionType) NodeInfo() Node        { return t.Node }
func (t *IntersectionType) NodeInfo() Node { return t.Node }
func (t *GroupType) NodeInfo() Node        { return t.Node }
