// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChain_AcceptsSolverOutput(t *testing.T) {
	// Property: a Unique result's chain replays to completion with zero
	// rules left over.
	s := New([]Rule{implListEquals(t), implIntEquals(t)}, nil)
	goal, err := NewGoal(traitType("Equals"),
		classType("List", classType("List", classType("Int"))), testDecider())
	require.NoError(t, err)

	result := s.Solve(goal, nil)
	require.Equal(t, Unique, result.Outcome)
	assert.True(t, VerifyChain(goal, result.Steps, nil))
}

func TestVerifyChain_WithEnvironmentFacts(t *testing.T) {
	s := New([]Rule{implListEquals(t)}, nil)
	tVar := v("T@caller")
	env := []Goal{{Trait: TraitHead(traitType("Equals")), Args: []Term{tVar}}}
	goal := Goal{
		Trait: TraitHead(traitType("Equals")),
		Args:  []Term{Value{Head: TypeHead(classType("List")), Args: []Term{tVar}}},
	}

	result := s.Solve(goal, env)
	require.Equal(t, Unique, result.Outcome)
	assert.True(t, VerifyChain(goal, result.Steps, env))
}

func TestVerifyChain_RejectsTruncatedChain(t *testing.T) {
	s := New([]Rule{implListEquals(t), implIntEquals(t)}, nil)
	goal, err := NewGoal(traitType("Equals"), classType("List", classType("Int")), testDecider())
	require.NoError(t, err)

	result := s.Solve(goal, nil)
	require.Equal(t, Unique, result.Outcome)
	require.Len(t, result.Steps, 2)

	assert.False(t, VerifyChain(goal, result.Steps[:1], nil),
		"a chain missing its leaf step must not verify")
	assert.False(t, VerifyChain(goal, append(result.Steps, result.Steps[1]), nil),
		"leftover steps must not verify")
}

func TestVerifyChain_RejectsWrongRule(t *testing.T) {
	intRule := implIntEquals(t)
	s := New([]Rule{intRule}, nil)
	goal, err := NewGoal(traitType("Equals"), classType("Int"), testDecider())
	require.NoError(t, err)
	result := s.Solve(goal, nil)
	require.Equal(t, Unique, result.Outcome)

	other, err := NewGoal(traitType("Equals"), classType("Batman"), testDecider())
	require.NoError(t, err)
	assert.False(t, VerifyChain(other, result.Steps, nil))
}
