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

package lower

import (
	"log/slog"

	"github.com/kraklabs/candy/pkg/hir"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/index"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/solver"
)

// Query names registered by this package.
const (
	QueryDecl      = "lower.decl"
	QueryBody      = "lower.body"
	QueryRules     = "lower.rules"
	QueryCoherence = "lower.coherence"
)

// rulesKey keys the environment-wide rule set; there is exactly one.
type rulesKey struct{}

// Service owns the compilation's package closure: the root package plus
// the transitive dependencies whose impls form the solver environment.
type Service struct {
	packages []id.PackageID
	logger   *slog.Logger
}

// Register wires the lowering queries onto the engine. The package list
// is the root package plus its transitive dependency closure.
func Register(e *query.Engine, packages []id.PackageID, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{packages: packages, logger: logger}

	e.Register(query.Query{Name: QueryDecl, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideDecl(ctx, key.(id.DeclarationID))
	}})
	e.Register(query.Query{Name: QueryBody, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return svc.provideBody(ctx, key.(id.DeclarationID))
	}})
	e.Register(query.Query{Name: QueryRules, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return svc.provideRules(ctx)
	}})
	e.Register(query.Query{Name: QueryCoherence, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return svc.provideCoherence(ctx)
	}})
	return svc
}

// Decider returns the trait decider backed by the declaration index.
func (s *Service) Decider(ctx *query.Context) solver.TraitDecider {
	return solver.TraitDeciderFunc(func(t hir.UserType) bool {
		decl := FindTypeDecl(ctx, t.Module, t.Name)
		return decl != nil && decl.Kind == id.KindTrait
	})
}

// provideRules collects every impl in the package closure and builds its
// Horn clause. Impls whose trait clause is compound are reported and
// skipped.
func (s *Service) provideRules(ctx *query.Context) (query.Value, report.List) {
	var diagnostics report.List
	var rules []solver.Rule
	decider := s.Decider(ctx)

	for _, pkg := range s.packages {
		for _, res := range ctx.EnumerateResources(pkg) {
			table := index.Declarations(ctx, res)
			for _, declID := range table.Order {
				if declID.Last().Kind != id.KindImpl {
					continue
				}
				decl := DeclSignature(ctx, declID)
				if decl == nil || decl.Trait == nil {
					// Inherent impls contribute no trait rule.
					continue
				}
				rule, err := solver.BuildRule(decl, decider)
				if err != nil {
					if solver.ErrCompoundTrait.Is(err) {
						node := index.DeclarationAST(ctx, declID)
						var span *report.Span
						if node != nil {
							s := node.NodeInfo().Span
							span = &s
						}
						diagnostics.Add(report.New(report.ErrCannotImplementCompoundTrait, res, span))
					}
					continue
				}
				rules = append(rules, rule)
			}
		}
	}

	s.logger.Debug("lower.rules", "count", len(rules))
	return rules, diagnostics
}

// Rules returns the solver rule environment for the compilation.
func (s *Service) Rules(ctx *query.Context) []solver.Rule {
	v, err := ctx.Evaluate(QueryRules, rulesKey{})
	if err != nil {
		return nil
	}
	rules, _ := v.([]solver.Rule)
	return rules
}

// provideCoherence checks every impl pair of every trait for overlap and
// reports ConflictingImpls with both impl locations.
func (s *Service) provideCoherence(ctx *query.Context) (query.Value, report.List) {
	var diagnostics report.List
	conflicts := solver.CheckCoherence(s.Rules(ctx))

	for _, conflict := range conflicts {
		first := conflict.First.Origin
		second := conflict.Second.Origin
		diagnostics.Add(report.New(report.ErrConflictingImpls, first.Resource, nil, conflict.Trait).
			WithRelated(first.Resource, nil, "first impl: "+first.String()).
			WithRelated(second.Resource, nil, "second impl: "+second.String()))
	}

	return len(conflicts), diagnostics
}

// CheckCoherence runs the coherence check, returning the number of
// conflicts; the diagnostics land on the query entry.
func (s *Service) CheckCoherence(ctx *query.Context) int {
	v, err := ctx.Evaluate(QueryCoherence, rulesKey{})
	if err != nil {
		return 0
	}
	count, _ := v.(int)
	return count
}

// Env builds the assignability environment over this context: trait
// bounds and parameter bounds from the declaration index, impl existence
// from the solver.
func (s *Service) Env(ctx *query.Context) hir.Env {
	return &analysisEnv{ctx: ctx, svc: s}
}

type analysisEnv struct {
	ctx *query.Context
	svc *Service
}

func (e *analysisEnv) TraitUpperBounds(t hir.UserType) ([]hir.Type, bool) {
	decl := FindTypeDecl(e.ctx, t.Module, t.Name)
	if decl == nil || decl.Kind != id.KindTrait {
		return nil, false
	}

	// Apply the trait's type arguments to its bounds.
	subst := hir.Substitution{}
	for i, tp := range decl.TypeParams {
		if i < len(t.Args) {
			subst = subst.Bind(decl.ID, tp.Name, t.Args[i])
		}
	}
	bounds := make([]hir.Type, len(decl.UpperBounds))
	for i, bound := range decl.UpperBounds {
		bounds[i] = hir.BakeGenerics(bound, subst)
	}
	return bounds, true
}

func (e *analysisEnv) HasImpl(child hir.Type, parent hir.UserType) bool {
	outcome, _ := e.svc.SolveImpl(e.ctx, child, parent)
	return outcome == solver.Unique
}

func (e *analysisEnv) ParameterBound(p hir.ParameterType) hir.Type {
	decl := DeclSignature(e.ctx, p.Declaration)
	if decl == nil {
		return hir.AnyType()
	}
	if tp, ok := decl.TypeParam(p.Name); ok && tp.UpperBound != nil {
		return tp.UpperBound
	}
	return hir.AnyType()
}

func (e *analysisEnv) ReflectionResult(r hir.ReflectionType) hir.Type {
	decl := DeclSignature(e.ctx, r.Target)
	if decl == nil {
		return hir.ErrorType()
	}
	switch decl.Kind {
	case id.KindFunction, id.KindConstructor, id.KindSetter:
		return decl.Signature()
	case id.KindProperty, id.KindGetter:
		return ValueTypeOf(e.ctx, r.Target)
	case id.KindTrait, id.KindClass, id.KindEnum:
		return decl.AsType()
	case id.KindModule:
		return hir.CoreType("Module")
	}
	return hir.ErrorType()
}

// SolveImpl asks the solver whether an impl of the trait exists for the
// subject type. The returned result carries ambiguity and overflow so
// callers can report them.
func (s *Service) SolveImpl(ctx *query.Context, subject hir.Type, trait hir.UserType) (solver.Outcome, error) {
	decider := s.Decider(ctx)
	goal, err := solver.NewGoal(trait, subject, decider)
	if err != nil {
		return solver.None, err
	}
	result := solver.New(s.Rules(ctx), s.logger).Solve(goal, nil)
	return result.Outcome, nil
}
