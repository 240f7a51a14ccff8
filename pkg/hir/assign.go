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

package hir

import (
	"github.com/kraklabs/candy/pkg/report"
)

// Env answers the declaration-dependent questions assignability needs.
// The driver wires it to the declaration index and the trait solver; the
// lattice itself stays free of those dependencies.
type Env interface {
	// TraitUpperBounds returns the upper-bound traits of a trait type with
	// the trait's type arguments applied, or ok=false if t does not name a
	// trait.
	TraitUpperBounds(t UserType) (bounds []Type, ok bool)

	// HasImpl reports whether an impl of the parent trait for the child
	// type is in scope.
	HasImpl(child Type, parent UserType) bool

	// ParameterBound returns the declared upper bound of a generic
	// parameter; unbounded parameters report Any.
	ParameterBound(p ParameterType) Type

	// ReflectionResult returns the resulting type of a reflection handle
	// (module, type, function or property signature).
	ReflectionResult(r ReflectionType) Type
}

// IsAssignable reports whether a value of type child may appear where
// parent is expected. This appearing on either side is a programmer
// error: the caller should have baked it, and the check panics with
// InternalError (which unwinds to the driver).
func IsAssignable(env Env, child, parent Type) bool {
	c := &assignChecker{env: env, seen: make(map[[2]string]bool)}
	return c.check(child, parent)
}

type assignChecker struct {
	env  Env
	seen map[[2]string]bool
}

func (c *assignChecker) check(child, parent Type) bool {
	if isThis(child) || isThis(parent) {
		panic(report.ErrInternal.New("unbaked This type in assignability check"))
	}

	// The error sentinel satisfies every check so one lowering failure
	// does not cascade.
	if IsError(child) || IsError(parent) {
		return true
	}

	if Equal(child, parent) {
		return true
	}
	if IsAny(parent) || IsNever(child) {
		return true
	}
	if IsAny(child) || IsNever(parent) {
		return false
	}

	// Trait upper-bound walks can revisit a pair on cyclic bounds; a
	// revisited pair holds nothing new.
	pair := [2]string{child.String(), parent.String()}
	if c.seen[pair] {
		return false
	}
	c.seen[pair] = true

	if r, ok := child.(ReflectionType); ok {
		return c.check(c.env.ReflectionResult(r), parent)
	}
	if r, ok := parent.(ReflectionType); ok {
		return c.check(child, c.env.ReflectionResult(r))
	}

	if u, ok := child.(UnionType); ok {
		for _, variant := range u.Variants {
			if !c.check(variant, parent) {
				return false
			}
		}
		return true
	}
	if u, ok := parent.(UnionType); ok {
		for _, variant := range u.Variants {
			if c.check(child, variant) {
				return true
			}
		}
		return false
	}
	if i, ok := child.(IntersectionType); ok {
		for _, member := range i.Members {
			if c.check(member, parent) {
				return true
			}
		}
		return false
	}
	if i, ok := parent.(IntersectionType); ok {
		for _, member := range i.Members {
			if !c.check(child, member) {
				return false
			}
		}
		return true
	}

	if p, ok := child.(ParameterType); ok {
		return c.check(c.env.ParameterBound(p), parent)
	}
	if p, ok := parent.(ParameterType); ok {
		return c.check(child, c.env.ParameterBound(p))
	}

	childUser, childIsUser := child.(UserType)
	parentUser, parentIsUser := parent.(UserType)
	if childIsUser && parentIsUser {
		if bounds, isTrait := c.env.TraitUpperBounds(childUser); isTrait {
			// A trait reaches the traits in its upper-bound closure and
			// nothing else. Intersections on the right already demand all
			// members, so reachability through any one bound is the right
			// base case here.
			for _, bound := range bounds {
				if c.check(bound, parent) {
					return true
				}
			}
			return false
		}
		return c.env.HasImpl(childUser, parentUser)
	}
	if childIsUser && !parentIsUser {
		return false
	}

	// Tuples, named tuples, enums and functions have no implicit
	// conversions: anything not structurally identical was already
	// rejected by the Equal check above.
	return false
}

func isThis(t Type) bool {
	_, ok := t.(ThisTypeNode)
	return ok
}
