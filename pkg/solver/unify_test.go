// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func val(head string, args ...Term) Value { return Value{Head: head, Args: args} }
func v(name string) Variable              { return Variable{Name: name} }

func TestUnify_ValueValue(t *testing.T) {
	// unify(Map[?A, ?A], Map[Int, Int]) = {?A := Int}
	subst, ok := Unify(
		val("Map", v("A"), v("A")),
		val("Map", val("Int"), val("Int")),
	)
	require.True(t, ok)
	assert.True(t, termEqual(subst.Apply(v("A")), val("Int")))
}

func TestUnify_RepeatedBindingMustAgree(t *testing.T) {
	// unify(Map[?A, ?A], Map[Int, String]) = None
	_, ok := Unify(
		val("Map", v("A"), v("A")),
		val("Map", val("Int"), val("String")),
	)
	assert.False(t, ok)
}

func TestUnify_OccursCheck(t *testing.T) {
	// unify(?Batman, Na[?Batman]) = None
	_, ok := Unify(v("Batman"), val("Na", v("Batman")))
	assert.False(t, ok)

	// Nested occurrence.
	_, ok = Unify(v("X"), val("List", val("Map", val("Int"), v("X"))))
	assert.False(t, ok)
}

func TestUnify_HeadsAndArityMustMatch(t *testing.T) {
	_, ok := Unify(val("List", val("Int")), val("Set", val("Int")))
	assert.False(t, ok)

	_, ok = Unify(val("List", val("Int")), val("List", val("Int"), val("Int")))
	assert.False(t, ok)
}

func TestUnify_VarVarTieBreak(t *testing.T) {
	// The lexicographically smaller name is substituted toward the
	// larger, whichever side it appears on.
	left, ok := Unify(v("a"), v("b"))
	require.True(t, ok)
	right, ok := Unify(v("b"), v("a"))
	require.True(t, ok)

	assert.True(t, termEqual(left.Apply(v("a")), v("b")))
	assert.True(t, termEqual(right.Apply(v("a")), v("b")))
}

func TestUnify_Soundness(t *testing.T) {
	// Property: if unify(a, b) = σ then σ(a) == σ(b).
	cases := []struct {
		a, b Term
	}{
		{val("Map", v("A"), val("Int")), val("Map", val("String"), v("B"))},
		{val("List", v("A")), val("List", val("Map", v("B"), val("Int")))},
		{v("X"), val("Pair", v("Y"), v("Y"))},
		{val("Pair", v("X"), v("X")), val("Pair", v("Y"), val("Int"))},
	}
	for _, tc := range cases {
		subst, ok := Unify(tc.a, tc.b)
		require.True(t, ok, "unify(%s, %s)", tc.a, tc.b)
		assert.True(t, termEqual(subst.Apply(tc.a), subst.Apply(tc.b)),
			"apply(σ, %s) != apply(σ, %s)", tc.a, tc.b)
	}
}

func TestUnify_SubstitutionIsFixpoint(t *testing.T) {
	// Applying the unifier twice must not grow the term further: the
	// accumulated bindings are kept fully resolved.
	subst, ok := Unify(
		val("Triple", v("A"), v("B"), v("A")),
		val("Triple", v("B"), val("List", val("Int")), v("A")),
	)
	require.True(t, ok)

	for _, term := range []Term{
		val("Triple", v("A"), v("B"), v("A")),
		v("A"), v("B"),
	} {
		once := subst.Apply(term)
		twice := subst.Apply(once)
		assert.True(t, termEqual(once, twice), "apply not idempotent on %s", term)
		assert.Equal(t, termSize(once), termSize(twice))
	}
}

func TestUnify_ChainedVariables(t *testing.T) {
	// ?A = ?B, ?B = Int ends with both resolved to Int.
	subst, ok := Unify(
		val("Pair", v("A"), v("B")),
		val("Pair", v("B"), val("Int")),
	)
	require.True(t, ok)
	assert.True(t, termEqual(subst.Apply(v("A")), val("Int")))
	assert.True(t, termEqual(subst.Apply(v("B")), val("Int")))
}

func TestUnifyGoals(t *testing.T) {
	a := Goal{Trait: "Equals", Args: []Term{val("List", v("T"))}}
	b := Goal{Trait: "Equals", Args: []Term{val("List", val("Int"))}}
	subst, ok := UnifyGoals(a, b)
	require.True(t, ok)
	assert.True(t, termEqual(subst.Apply(v("T")), val("Int")))

	_, ok = UnifyGoals(a, Goal{Trait: "Hash", Args: []Term{val("List", val("Int"))}})
	assert.False(t, ok)
}
