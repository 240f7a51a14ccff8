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

package solver

import (
	"fmt"
	"strconv"
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/kraklabs/candy/pkg/hir"
)

// Rule-building failures. The lowering layer turns these into located
// diagnostics.
var (
	// ErrCompoundTrait rejects impls whose trait clause references more
	// than one trait in a single step.
	ErrCompoundTrait = errors.NewKind("impl implements a compound trait")

	// ErrTraitAsParameter rejects goals whose trait arguments are
	// themselves traits.
	ErrTraitAsParameter = errors.NewKind("trait %s has a trait as parameter")
)

// TraitDecider answers whether a user type names a trait. The declaration
// index provides the real implementation.
type TraitDecider interface {
	IsTrait(t hir.UserType) bool
}

// TraitDeciderFunc adapts a function to the TraitDecider interface.
type TraitDeciderFunc func(t hir.UserType) bool

// IsTrait implements TraitDecider.
func (f TraitDeciderFunc) IsTrait(t hir.UserType) bool { return f(t) }

// ruleBuilder lowers one impl's types into terms, numbering the fresh
// variables it mints so rule construction is deterministic.
type ruleBuilder struct {
	decider TraitDecider
	scope   string // canonical impl key; keeps fresh variables rule-local
	fresh   int
	goals   []Goal
}

func (b *ruleBuilder) freshVariable() Variable {
	v := Variable{Name: "#" + strconv.Itoa(b.fresh) + "@" + b.scope}
	b.fresh++
	return v
}

// lowerTerm converts a type into a solver term, appending asserting goals
// for every trait encountered: a trait in term position lowers to a fresh
// variable constrained by the trait.
func (b *ruleBuilder) lowerTerm(t hir.Type) Term {
	switch node := t.(type) {
	case hir.ParameterType:
		return Variable{Name: VariableName(node)}

	case hir.UserType:
		args := make([]Term, len(node.Args))
		for i, a := range node.Args {
			args[i] = b.lowerTerm(a)
		}
		if b.decider.IsTrait(node) {
			subject := b.freshVariable()
			b.goals = append(b.goals, Goal{
				Trait: TraitHead(node),
				Args:  append(args, Term(subject)),
			})
			return subject
		}
		return Value{Head: TypeHead(node), Args: args}

	case hir.TupleType:
		args := make([]Term, len(node.Components))
		for i, c := range node.Components {
			args[i] = b.lowerTerm(c)
		}
		return Value{Head: "tuple/" + strconv.Itoa(len(args)), Args: args}

	case hir.NamedTupleType:
		labels := make([]string, len(node.Fields))
		args := make([]Term, len(node.Fields))
		for i, f := range node.Fields {
			labels[i] = f.Label.String()
			args[i] = b.lowerTerm(f.Type)
		}
		return Value{Head: "ntuple(" + strings.Join(labels, ",") + ")", Args: args}

	case hir.EnumTypeNode:
		names := make([]string, len(node.Variants))
		var args []Term
		for i, v := range node.Variants {
			names[i] = v.Name.String()
			if v.Payload != nil {
				args = append(args, b.lowerTerm(v.Payload))
			}
		}
		return Value{Head: "enum(" + strings.Join(names, ",") + ")", Args: args}

	case hir.FunctionType:
		head := "fn/" + strconv.Itoa(len(node.Parameters))
		var args []Term
		if node.Receiver != nil {
			head = "method/" + strconv.Itoa(len(node.Parameters))
			args = append(args, b.lowerTerm(node.Receiver))
		}
		for _, p := range node.Parameters {
			args = append(args, b.lowerTerm(p))
		}
		if node.Return != nil {
			args = append(args, b.lowerTerm(node.Return))
		} else {
			args = append(args, Value{Head: "tuple/0"})
		}
		return Value{Head: head, Args: args}

	case hir.ReflectionType:
		return Value{Head: "reflect(" + node.Target.Key() + ")"}

	default:
		// Unions, intersections, This and the error sentinel have no
		// ground solver form; they lower to an opaque head that only
		// unifies with itself.
		return Value{Head: "<opaque:" + t.String() + ">"}
	}
}

// BuildRule turns one impl declaration into its Horn clause:
//
//  1. each type-parameter bound becomes a goal over the parameter's
//     variable,
//  2. the base type lowers to the subject term (a trait base lowers to a
//     constrained fresh variable),
//  3. the implemented trait lowers to a fresh variable plus exactly one
//     asserting goal; substituting the subject term for that variable
//     yields the head,
//  4. constraints are the union of the step-1 goals and every lowering
//     goal other than the head.
func BuildRule(impl *hir.Declaration, decider TraitDecider) (Rule, error) {
	if impl.Trait == nil {
		return Rule{}, fmt.Errorf("impl %s has no trait clause", impl.ID)
	}

	b := &ruleBuilder{decider: decider, scope: impl.ID.Key()}

	// Step 1: parameter bounds.
	var constraints []Goal
	for _, tp := range impl.TypeParams {
		if tp.UpperBound == nil || hir.IsAny(tp.UpperBound) {
			continue
		}
		bound, ok := tp.UpperBound.(hir.UserType)
		if !ok || !decider.IsTrait(bound) {
			// Non-trait bounds carry no solver obligation.
			continue
		}
		args := make([]Term, 0, len(bound.Args)+1)
		for _, a := range bound.Args {
			args = append(args, b.lowerTerm(a))
		}
		args = append(args, Term(Variable{
			Name: VariableName(hir.ParameterType{Declaration: impl.ID, Name: tp.Name}),
		}))
		constraints = append(constraints, Goal{Trait: TraitHead(bound), Args: args})
	}

	// Step 2: the base type becomes the subject term.
	// Goals minted while lowering bound arguments join here as well.
	baseTerm := b.lowerTerm(impl.Base)
	constraints = append(constraints, b.goals...)

	// Step 3: the implemented trait must lower to exactly one asserting
	// goal; more than one means a compound trait.
	traitStart := len(b.goals)
	traitTerm := b.lowerTerm(impl.Trait)
	traitGoals := b.goals[traitStart:]
	if len(traitGoals) != 1 {
		return Rule{}, ErrCompoundTrait.New()
	}
	traitVar, ok := traitTerm.(Variable)
	if !ok {
		return Rule{}, ErrCompoundTrait.New()
	}

	// Substitute the subject into the asserting goal to form the head.
	subst := Substitution{traitVar.Name: baseTerm}
	head := subst.ApplyGoal(traitGoals[0])

	// Step 4: remaining lowering goals join the constraints, with the
	// head substitution applied throughout.
	for i, g := range constraints {
		constraints[i] = subst.ApplyGoal(g)
	}

	return Rule{Origin: impl.ID, Head: head, Constraints: constraints}, nil
}

// NewGoal builds the query goal "does subject implement trait". Trait
// arguments that are themselves traits are rejected: impl selection over
// trait-valued parameters is not solvable.
func NewGoal(trait hir.UserType, subject hir.Type, decider TraitDecider) (Goal, error) {
	for _, arg := range trait.Args {
		if user, ok := arg.(hir.UserType); ok && decider.IsTrait(user) {
			return Goal{}, ErrTraitAsParameter.New(TraitHead(trait))
		}
	}
	b := &ruleBuilder{decider: decider, scope: "<goal>"}
	args := make([]Term, 0, len(trait.Args)+1)
	for _, a := range trait.Args {
		args = append(args, b.lowerTerm(a))
	}
	args = append(args, b.lowerTerm(subject))
	if len(b.goals) > 0 {
		// A trait appeared in term position after all (nested inside a
		// tuple or argument); same rejection applies.
		return Goal{}, ErrTraitAsParameter.New(TraitHead(trait))
	}
	return Goal{Trait: TraitHead(trait), Args: args}, nil
}
