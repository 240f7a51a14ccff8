// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package solver

import "sort"

// Conflict reports two impls whose rule heads unify with a common ground
// instance: some type could be served by either impl.
type Conflict struct {
	Trait   string
	First   Rule
	Second  Rule
	Unifier Substitution
}

// CheckCoherence verifies that for each trait no two impls overlap. For
// every pair of rule heads of the same trait, if the heads unify the pair
// is a conflict. Results are ordered deterministically by trait head and
// rule origin.
func CheckCoherence(rules []Rule) []Conflict {
	byTrait := make(map[string][]Rule)
	for _, rule := range rules {
		byTrait[rule.Head.Trait] = append(byTrait[rule.Head.Trait], rule)
	}

	traits := make([]string, 0, len(byTrait))
	for trait := range byTrait {
		traits = append(traits, trait)
	}
	sort.Strings(traits)

	var conflicts []Conflict
	for _, trait := range traits {
		group := byTrait[trait]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Origin.Key() < group[j].Origin.Key()
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if unifier, ok := UnifyGoals(group[i].Head, group[j].Head); ok {
					conflicts = append(conflicts, Conflict{
						Trait:   trait,
						First:   group[i],
						Second:  group[j],
						Unifier: unifier,
					})
				}
			}
		}
	}
	return conflicts
}
