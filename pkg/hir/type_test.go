// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/candy/pkg/id"
)

var (
	intType  = CoreType("Int")
	textType = CoreType("Text")
	boolType = CoreType("Bool")
)

func TestNewUnion_FlattensAndDedupes(t *testing.T) {
	nested := NewUnion(NewUnion(intType, textType), boolType)
	flat := NewUnion(intType, textType, boolType)

	require.IsType(t, UnionType{}, nested)
	assert.Len(t, nested.(UnionType).Variants, 3)
	assert.True(t, Equal(nested, flat))

	// Idempotent.
	assert.True(t, Equal(NewUnion(intType, intType), intType))
	// Commutative: unions compare as sets.
	assert.True(t, Equal(NewUnion(textType, intType), NewUnion(intType, textType)))
}

func TestNewUnion_SingleAndEmpty(t *testing.T) {
	assert.True(t, Equal(NewUnion(intType), intType))
	assert.True(t, IsNever(NewUnion()))
}

func TestNewIntersection_Laws(t *testing.T) {
	nested := NewIntersection(NewIntersection(intType, textType), boolType)
	flat := NewIntersection(intType, textType, boolType)
	assert.True(t, Equal(nested, flat))
	assert.True(t, Equal(NewIntersection(intType, intType), intType))
	assert.True(t, Equal(
		NewIntersection(textType, intType),
		NewIntersection(intType, textType)))
}

func TestNewIntersection_NeverShortCircuits(t *testing.T) {
	assert.True(t, IsNever(NewIntersection(intType, NeverType(), textType)))
}

func TestEqual_DistinguishesVariants(t *testing.T) {
	assert.False(t, Equal(intType, textType))
	assert.False(t, Equal(TupleType{Components: []Type{intType}}, intType))
	assert.False(t, Equal(
		NewUnion(intType, textType),
		NewIntersection(intType, textType)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, intType))
}

func TestBakeThis(t *testing.T) {
	fn := FunctionType{
		Receiver:   ThisType(),
		Parameters: []Type{ThisType(), intType},
		Return:     NewUnion(ThisType(), textType),
	}
	baked := BakeThis(fn, intType)

	expected := FunctionType{
		Receiver:   intType,
		Parameters: []Type{intType, intType},
		Return:     NewUnion(intType, textType),
	}
	assert.True(t, Equal(baked, expected))
}

func TestBakeThis_LeavesParameterAndReflection(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	decl := id.NewDeclarationID(res, id.PathStep{Kind: id.KindTrait, Name: id.Intern("Foo")})
	param := ParameterType{Declaration: decl, Name: id.Intern("T")}
	reflection := ReflectionType{Target: decl, Kind: id.KindTrait}

	assert.True(t, Equal(BakeThis(param, intType), param))
	assert.True(t, Equal(BakeThis(reflection, intType), reflection))
}

func TestBakeGenerics(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "list.candy")
	decl := id.NewDeclarationID(res, id.PathStep{Kind: id.KindClass, Name: id.Intern("List")})
	tParam := ParameterType{Declaration: decl, Name: id.Intern("T")}

	list := UserType{Module: id.RootModule(id.ThisPackage), Name: id.Intern("List"), Args: []Type{tParam}}
	subst := Substitution{}.Bind(decl, id.Intern("T"), intType)

	baked := BakeGenerics(list, subst)
	want := UserType{Module: id.RootModule(id.ThisPackage), Name: id.Intern("List"), Args: []Type{intType}}
	assert.True(t, Equal(baked, want))

	// Unbound parameters stay.
	other := ParameterType{Declaration: decl, Name: id.Intern("U")}
	assert.True(t, Equal(BakeGenerics(other, subst), other))
}

func TestBakeGenerics_CommutesWithFlattening(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	decl := id.NewDeclarationID(res, id.PathStep{Kind: id.KindFunction, Name: id.Intern("f")})
	tParam := ParameterType{Declaration: decl, Name: id.Intern("T")}

	// Substituting T := Int into (T | Text) collapses with the union
	// already containing Int.
	union := NewUnion(tParam, textType, intType)
	subst := Substitution{}.Bind(decl, id.Intern("T"), intType)
	baked := BakeGenerics(union, subst)

	assert.True(t, Equal(baked, NewUnion(intType, textType)))
}

func TestDeclaration_AsTypeAndSignature(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "list.candy")
	declID := id.NewDeclarationID(res, id.PathStep{Kind: id.KindClass, Name: id.Intern("List")})
	decl := &Declaration{
		ID:     declID,
		Kind:   id.KindClass,
		Name:   id.Intern("List"),
		Module: id.RootModule(id.ThisPackage),
		TypeParams: []TypeParamDecl{
			{Name: id.Intern("T"), UpperBound: AnyType()},
		},
	}

	asType := decl.AsType()
	require.Len(t, asType.Args, 1)
	assert.IsType(t, ParameterType{}, asType.Args[0])

	fn := &Declaration{
		Kind:   id.KindFunction,
		Params: []ParamDecl{{Name: id.Intern("x"), Type: intType}},
		Return: textType,
	}
	sig := fn.Signature()
	assert.True(t, Equal(sig, FunctionType{Parameters: []Type{intType}, Return: textType}))
}
