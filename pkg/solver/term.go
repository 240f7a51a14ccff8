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

// Package solver decides impl satisfaction: whether a type implements a
// trait, and which impl serves it. Impls are modeled as Horn clauses over
// a small term language; solving is unification-driven resolution with an
// explicit depth bound and ambiguity detection.
package solver

import (
	"strings"

	"github.com/kraklabs/candy/pkg/hir"
	"github.com/kraklabs/candy/pkg/id"
)

// Term is a solver term: either a concrete value with a head and
// arguments, or a variable.
type Term interface {
	termNode()
	String() string
}

// Value is a concrete type head (class, built-in or structural
// constructor) applied to argument terms.
type Value struct {
	Head string
	Args []Term
}

// Variable is a placeholder corresponding to a type parameter. Names are
// canonical: two variables with the same name are the same variable.
type Variable struct {
	Name string
}

func (Value) termNode()    {}
func (Variable) termNode() {}

func (v Value) String() string {
	if len(v.Args) == 0 {
		return v.Head
	}
	parts := make([]string, len(v.Args))
	for i, a := range v.Args {
		parts[i] = a.String()
	}
	return v.Head + "[" + strings.Join(parts, ", ") + "]"
}

func (v Variable) String() string { return "?" + v.Name }

// Goal asserts a trait membership: Trait applied to argument terms, the
// last argument being the subject type.
type Goal struct {
	Trait string
	Args  []Term
}

func (g Goal) String() string {
	parts := make([]string, len(g.Args))
	for i, a := range g.Args {
		parts[i] = a.String()
	}
	return g.Trait + "(" + strings.Join(parts, ", ") + ")"
}

// Subject returns the goal's subject term (the last argument).
func (g Goal) Subject() Term {
	if len(g.Args) == 0 {
		return nil
	}
	return g.Args[len(g.Args)-1]
}

// Rule is the Horn-clause encoding of one impl: Head holds whenever all
// Constraints hold. Origin is the impl declaration the rule came from.
type Rule struct {
	Origin      id.DeclarationID
	Head        Goal
	Constraints []Goal
}

func (r Rule) String() string {
	if len(r.Constraints) == 0 {
		return r.Head.String()
	}
	parts := make([]string, len(r.Constraints))
	for i, c := range r.Constraints {
		parts[i] = c.String()
	}
	return r.Head.String() + " <- " + strings.Join(parts, ", ")
}

// TraitHead returns the canonical solver head for a trait type.
func TraitHead(t hir.UserType) string { return userHead(t) }

// TypeHead returns the canonical solver head for a concrete user type.
func TypeHead(t hir.UserType) string { return userHead(t) }

func userHead(t hir.UserType) string {
	return t.Module.Key() + "." + t.Name.String()
}

// VariableName returns the canonical variable name for a type parameter.
func VariableName(p hir.ParameterType) string {
	return p.Name.String() + "@" + p.Declaration.Key()
}

// termSize measures a term for the occurs-safety property: variables and
// nullary values count 1, applications add their arguments.
func termSize(t Term) int {
	switch term := t.(type) {
	case Variable:
		return 1
	case Value:
		size := 1
		for _, a := range term.Args {
			size += termSize(a)
		}
		return size
	}
	return 0
}

// occursIn reports whether the variable occurs anywhere inside the term.
func occursIn(name string, t Term) bool {
	switch term := t.(type) {
	case Variable:
		return term.Name == name
	case Value:
		for _, a := range term.Args {
			if occursIn(name, a) {
				return true
			}
		}
	}
	return false
}

// termEqual reports structural equality of terms.
func termEqual(a, b Term) bool {
	switch at := a.(type) {
	case Variable:
		bt, ok := b.(Variable)
		return ok && at.Name == bt.Name
	case Value:
		bt, ok := b.(Value)
		if !ok || at.Head != bt.Head || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !termEqual(at.Args[i], bt.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}
