// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/candy/pkg/id"
)

// fakeEnv is a hand-wired assignability environment for lattice tests.
type fakeEnv struct {
	traits  map[string][]Type // trait type string -> upper bounds
	impls   map[[2]string]bool
	bounds  map[string]Type
	reflect map[string]Type
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		traits:  make(map[string][]Type),
		impls:   make(map[[2]string]bool),
		bounds:  make(map[string]Type),
		reflect: make(map[string]Type),
	}
}

func (e *fakeEnv) TraitUpperBounds(t UserType) ([]Type, bool) {
	bounds, ok := e.traits[t.String()]
	return bounds, ok
}

func (e *fakeEnv) HasImpl(child Type, parent UserType) bool {
	return e.impls[[2]string{child.String(), parent.String()}]
}

func (e *fakeEnv) ParameterBound(p ParameterType) Type {
	if bound, ok := e.bounds[p.String()]; ok {
		return bound
	}
	return AnyType()
}

func (e *fakeEnv) ReflectionResult(r ReflectionType) Type {
	if result, ok := e.reflect[r.String()]; ok {
		return result
	}
	return ErrorType()
}

func (e *fakeEnv) addImpl(child Type, parent UserType) {
	e.impls[[2]string{child.String(), parent.String()}] = true
}

func trait(name string) UserType {
	return UserType{Module: id.RootModule(id.ThisPackage), Name: id.Intern(name)}
}

func TestIsAssignable_Trivials(t *testing.T) {
	env := newFakeEnv()

	assert.True(t, IsAssignable(env, intType, intType))
	assert.True(t, IsAssignable(env, intType, AnyType()))
	assert.True(t, IsAssignable(env, NeverType(), intType))
	assert.True(t, IsAssignable(env, AnyType(), AnyType()))

	assert.False(t, IsAssignable(env, AnyType(), intType))
	assert.False(t, IsAssignable(env, intType, NeverType()))
}

func TestIsAssignable_ImplMakesClassAssignableToTrait(t *testing.T) {
	env := newFakeEnv()
	foo := trait("Foo")
	env.traits[foo.String()] = nil

	// S1: impl Int: Foo makes Int assignable to Foo.
	assert.False(t, IsAssignable(env, intType, foo))
	env.addImpl(intType, foo)
	assert.True(t, IsAssignable(env, intType, foo))
}

func TestIsAssignable_TraitUpperBounds(t *testing.T) {
	env := newFakeEnv()
	equals := trait("Equals")
	hashable := trait("Hashable")
	ordered := trait("Ordered")
	env.traits[equals.String()] = nil
	env.traits[hashable.String()] = nil
	// Ordered requires both Equals and Hashable.
	env.traits[ordered.String()] = []Type{equals, hashable}

	combined := NewIntersection(equals, hashable)
	assert.True(t, IsAssignable(env, ordered, combined))
	assert.True(t, IsAssignable(env, ordered, equals))
	assert.True(t, IsAssignable(env, ordered, hashable))

	// A trait with no bounds promises nothing.
	assert.False(t, IsAssignable(env, equals, hashable))
}

func TestIsAssignable_UnionRules(t *testing.T) {
	env := newFakeEnv()
	intOrText := NewUnion(intType, textType)

	// Union on the left: all elements must fit.
	assert.True(t, IsAssignable(env, intOrText, NewUnion(intType, textType, boolType)))
	assert.False(t, IsAssignable(env, intOrText, intType))

	// Union on the right: any element may accept.
	assert.True(t, IsAssignable(env, intType, intOrText))
	assert.False(t, IsAssignable(env, boolType, intOrText))
}

func TestIsAssignable_IntersectionRules(t *testing.T) {
	env := newFakeEnv()
	foo := trait("Foo")
	bar := trait("Bar")
	env.traits[foo.String()] = nil
	env.traits[bar.String()] = nil
	env.addImpl(intType, foo)
	env.addImpl(intType, bar)

	both := NewIntersection(foo, bar)

	// Intersection on the right: all members must accept.
	assert.True(t, IsAssignable(env, intType, both))
	env2 := newFakeEnv()
	env2.traits[foo.String()] = nil
	env2.traits[bar.String()] = nil
	env2.addImpl(intType, foo)
	assert.False(t, IsAssignable(env2, intType, both))

	// Intersection on the left: any member suffices.
	assert.True(t, IsAssignable(env, both, foo))
}

func TestIsAssignable_ParameterUsesBound(t *testing.T) {
	env := newFakeEnv()
	foo := trait("Foo")
	env.traits[foo.String()] = nil
	env.addImpl(intType, foo)

	res := id.NewResourceID(id.ThisPackage, "f.candy")
	decl := id.NewDeclarationID(res, id.PathStep{Kind: id.KindFunction, Name: id.Intern("f")})
	tParam := ParameterType{Declaration: decl, Name: id.Intern("T")}
	env.bounds[tParam.String()] = intType

	assert.True(t, IsAssignable(env, tParam, foo))
	assert.True(t, IsAssignable(env, tParam, tParam))
}

func TestIsAssignable_ReflectionUsesResult(t *testing.T) {
	env := newFakeEnv()
	res := id.NewResourceID(id.ThisPackage, "f.candy")
	decl := id.NewDeclarationID(res, id.PathStep{Kind: id.KindFunction, Name: id.Intern("f")})
	r := ReflectionType{Target: decl, Kind: id.KindFunction}
	env.reflect[r.String()] = FunctionType{Parameters: []Type{intType}, Return: textType}

	assert.True(t, IsAssignable(env, r, FunctionType{Parameters: []Type{intType}, Return: textType}))
	assert.False(t, IsAssignable(env, r, FunctionType{Parameters: []Type{textType}, Return: textType}))
}

func TestIsAssignable_TuplesAndFunctionsAreStructural(t *testing.T) {
	env := newFakeEnv()
	pair := TupleType{Components: []Type{intType, textType}}
	samePair := TupleType{Components: []Type{intType, textType}}
	swapped := TupleType{Components: []Type{textType, intType}}

	assert.True(t, IsAssignable(env, pair, samePair))
	assert.False(t, IsAssignable(env, pair, swapped))

	fn := FunctionType{Parameters: []Type{intType}, Return: textType}
	assert.True(t, IsAssignable(env, fn, FunctionType{Parameters: []Type{intType}, Return: textType}))
	assert.False(t, IsAssignable(env, fn, FunctionType{Parameters: []Type{intType}, Return: intType}))
}

func TestIsAssignable_ErrorSilencesChecks(t *testing.T) {
	env := newFakeEnv()
	assert.True(t, IsAssignable(env, ErrorType(), intType))
	assert.True(t, IsAssignable(env, intType, ErrorType()))
}

func TestIsAssignable_UnbakedThisPanics(t *testing.T) {
	env := newFakeEnv()
	assert.Panics(t, func() { IsAssignable(env, ThisType(), intType) })
	assert.Panics(t, func() { IsAssignable(env, intType, ThisType()) })
}

func TestIsAssignable_CyclicTraitBoundsTerminate(t *testing.T) {
	env := newFakeEnv()
	a := trait("A")
	b := trait("B")
	env.traits[a.String()] = []Type{b}
	env.traits[b.String()] = []Type{a}

	// Must terminate; neither reaches a concrete acceptor.
	assert.False(t, IsAssignable(env, a, intType))
}
