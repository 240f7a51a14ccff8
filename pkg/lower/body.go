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
	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/hir"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/index"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/resolve"
	"github.com/kraklabs/candy/pkg/solver"
)

// infixPlus is the text-concatenation method string interpolation
// desugars to.
var infixPlus = id.Intern("infixPlus")

// provideBody lowers one declaration's body into a flat numbered
// expression list plus the AST-to-HIR id map.
func (s *Service) provideBody(ctx *query.Context, declID id.DeclarationID) (query.Value, report.List) {
	var diagnostics report.List

	node := index.DeclarationAST(ctx, declID)
	if node == nil {
		return (*hir.Body)(nil), diagnostics
	}

	var exprs []ast.Expr
	switch n := node.(type) {
	case *ast.FunctionDecl:
		exprs = n.Body
	case *ast.GetterDecl:
		exprs = n.Body
	case *ast.SetterDecl:
		exprs = n.Body
	case *ast.ConstructorDecl:
		exprs = n.Body
	case *ast.PropertyDecl:
		if n.Initializer != nil {
			exprs = []ast.Expr{n.Initializer}
		}
	default:
		return (*hir.Body)(nil), diagnostics
	}

	decl := DeclSignature(ctx, declID)
	if decl == nil {
		return (*hir.Body)(nil), diagnostics
	}

	l := &bodyLowerer{
		ctx:         ctx,
		svc:         s,
		declID:      declID,
		res:         declID.Resource,
		scope:       resolve.DeclScope(decl.Module, declID),
		env:         s.Env(ctx),
		astMap:      make(map[ast.NodeID]id.LocalID),
		diagnostics: &diagnostics,
	}
	if len(decl.Params) > 0 {
		frame := make(map[id.Symbol]hir.Type, len(decl.Params))
		for _, p := range decl.Params {
			frame[p.Name] = p.Type
		}
		l.params = append(l.params, frame)
	}

	for _, e := range exprs {
		l.lowerExpr(e)
	}

	body := &hir.Body{
		Declaration: declID,
		Expressions: l.exprs,
		ASTMap:      l.astMap,
	}
	return body, diagnostics
}

// BodyOf returns the lowered body of a declaration, or nil for
// declarations without one.
func BodyOf(ctx *query.Context, declID id.DeclarationID) *hir.Body {
	v, err := ctx.Evaluate(QueryBody, declID)
	if err != nil {
		return nil
	}
	body, _ := v.(*hir.Body)
	return body
}

// bodyLowerer lowers one body bottom-up, numbering expressions as they
// are produced.
type bodyLowerer struct {
	ctx         *query.Context
	svc         *Service
	declID      id.DeclarationID
	res         id.ResourceID
	scope       resolve.Scope
	env         hir.Env
	exprs       []hir.Expression
	astMap      map[ast.NodeID]id.LocalID
	diagnostics *report.List
	params      []map[id.Symbol]hir.Type
}

func (l *bodyLowerer) next() id.LocalID {
	return id.LocalID{Declaration: l.declID, Ordinal: len(l.exprs)}
}

func (l *bodyLowerer) push(node ast.Node, e hir.Expression) id.LocalID {
	l.exprs = append(l.exprs, e)
	l.astMap[node.ID] = e.Local()
	return e.Local()
}

func (l *bodyLowerer) typeAt(local id.LocalID) hir.Type {
	return l.exprs[local.Ordinal].StaticType()
}

func (l *bodyLowerer) pushError(node ast.Node) id.LocalID {
	return l.push(node, hir.ErrorExpression{ID: l.next()})
}

func (l *bodyLowerer) lowerType(node ast.Type) hir.Type {
	return LowerType(l.ctx, l.scope, l.res, node, l.diagnostics)
}

// lowerExpr lowers one expression and returns its local id.
func (l *bodyLowerer) lowerExpr(e ast.Expr) id.LocalID {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return l.push(n.Node, hir.IntExpression{ID: l.next(), Value: n.Value})

	case *ast.TextLiteral:
		return l.lowerText(n)

	case *ast.Identifier:
		return l.lowerIdentifier(n)

	case *ast.Call:
		return l.lowerCall(n)

	case *ast.Is:
		return l.lowerIs(n)

	case *ast.Needs:
		return l.lowerNeeds(n)

	case *ast.Lambda:
		return l.lowerLambda(n)

	default:
		span := e.NodeInfo().Span
		l.diagnostics.Add(report.New(report.ErrUnsupportedFeature, l.res, &span, "expression syntax"))
		return l.pushError(e.NodeInfo())
	}
}

// lowerText lowers a text literal. Interpolation desugars to
// left-associative infixPlus calls on a starting empty-string literal,
// one segment per part.
func (l *bodyLowerer) lowerText(n *ast.TextLiteral) id.LocalID {
	if len(n.Parts) == 1 && n.Parts[0].Interpolation == nil {
		return l.push(n.Node, hir.TextExpression{ID: l.next(), Value: n.Parts[0].Literal})
	}

	acc := l.push(n.Node, hir.TextExpression{ID: l.next(), Value: ""})
	for _, part := range n.Parts {
		var segment id.LocalID
		if part.Interpolation == nil {
			segment = l.push(part.Node, hir.TextExpression{ID: l.next(), Value: part.Literal})
		} else {
			segment = l.lowerExpr(part.Interpolation)
		}
		acc = l.pushConcat(n, acc, segment)
	}
	return acc
}

// pushConcat emits one infixPlus call of the interpolation chain.
func (l *bodyLowerer) pushConcat(n *ast.TextLiteral, acc, segment id.LocalID) id.LocalID {
	candidates := l.memberFunctions(l.typeAt(acc), infixPlus)
	if len(candidates) == 0 {
		span := n.Span
		l.diagnostics.Add(report.New(report.ErrUndefinedIdentifier, l.res, &span, infixPlus.String()))
		return l.pushError(n.Node)
	}
	chosen := candidates[0]
	receiver := acc
	local := l.next()
	l.exprs = append(l.exprs, hir.CallExpression{
		ID:        local,
		Function:  chosen.ID,
		Receiver:  &receiver,
		Arguments: []id.LocalID{segment},
		Type:      hir.BakeThis(chosen.Return, l.typeAt(acc)),
	})
	l.astMap[n.ID] = local
	return local
}

// lowerIdentifier resolves a bare name: function parameters first, then
// the enclosing scopes.
func (l *bodyLowerer) lowerIdentifier(n *ast.Identifier) id.LocalID {
	name := id.Intern(n.Name)

	for i := len(l.params) - 1; i >= 0; i-- {
		if t, ok := l.params[i][name]; ok {
			return l.push(n.Node, hir.ParameterReference{ID: l.next(), Name: name, Type: t})
		}
	}

	candidates := resolve.ValuesOnly(resolve.Resolve(l.ctx, l.scope, name))
	span := n.Span
	switch {
	case len(candidates) == 0:
		l.diagnostics.Add(report.New(report.ErrUndefinedIdentifier, l.res, &span, n.Name))
		return l.pushError(n.Node)
	case len(candidates) > 1 && !sameTarget(candidates):
		l.diagnostics.Add(report.New(report.ErrAmbiguousIdentifier, l.res, &span, n.Name))
		return l.pushError(n.Node)
	}

	target := candidates[0].Decl
	return l.push(n.Node, hir.ReferenceExpression{
		ID:     l.next(),
		Target: target,
		Type:   ValueTypeOf(l.ctx, target),
	})
}

// lowerCall lowers `receiver.name(args)` or `name(args)`: arguments
// bottom-up, then overload selection by pairwise assignability.
func (l *bodyLowerer) lowerCall(n *ast.Call) id.LocalID {
	args := make([]id.LocalID, len(n.Args))
	argTypes := make([]hir.Type, len(n.Args))
	argsPoisoned := false
	for i, a := range n.Args {
		args[i] = l.lowerExpr(a.Value)
		argTypes[i] = l.typeAt(args[i])
		if hir.IsError(argTypes[i]) {
			argsPoisoned = true
		}
	}

	name := id.Intern(n.Name)
	var receiver *id.LocalID
	var candidates []*hir.Declaration

	if n.Receiver != nil {
		recv := l.lowerExpr(n.Receiver)
		receiver = &recv
		recvType := l.typeAt(recv)
		if hir.IsError(recvType) {
			// The receiver already failed; stay silent.
			return l.pushError(n.Node)
		}
		candidates = l.memberFunctions(recvType, name)
	} else {
		for _, c := range resolve.ValuesOnly(resolve.Resolve(l.ctx, l.scope, name)) {
			decl := DeclSignature(l.ctx, c.Decl)
			if decl != nil && (decl.Kind == id.KindFunction || decl.Kind == id.KindConstructor) {
				candidates = append(candidates, decl)
			}
		}
	}

	span := n.Span
	if len(candidates) == 0 {
		if !argsPoisoned {
			l.diagnostics.Add(report.New(report.ErrUndefinedIdentifier, l.res, &span, n.Name))
		}
		return l.pushError(n.Node)
	}

	var viable []*hir.Declaration
	for _, c := range candidates {
		if l.accepts(c, argTypes) {
			viable = append(viable, c)
		}
	}

	switch {
	case len(viable) == 0:
		if !argsPoisoned {
			l.diagnostics.Add(report.New(report.ErrNoMatchingOverload, l.res, &span, n.Name))
		}
		return l.pushError(n.Node)
	case len(viable) > 1:
		if !argsPoisoned {
			l.diagnostics.Add(report.New(report.ErrAmbiguousCall, l.res, &span, n.Name))
		}
		return l.pushError(n.Node)
	}

	chosen := viable[0]
	returnType := chosen.Return
	if receiver != nil {
		returnType = hir.BakeThis(returnType, l.typeAt(*receiver))
	}

	local := l.next()
	l.exprs = append(l.exprs, hir.CallExpression{
		ID:        local,
		Function:  chosen.ID,
		Receiver:  receiver,
		Arguments: args,
		Type:      returnType,
	})
	l.astMap[n.ID] = local
	return local
}

// accepts reports whether a function can take the argument types:
// missing trailing arguments must have defaults, and every provided
// argument must be assignable to its parameter.
func (l *bodyLowerer) accepts(decl *hir.Declaration, argTypes []hir.Type) bool {
	if len(argTypes) > len(decl.Params) {
		return false
	}
	for _, p := range decl.Params[len(argTypes):] {
		if !p.HasDefault {
			return false
		}
	}
	for i, argType := range argTypes {
		if !hir.IsAssignable(l.env, argType, decl.Params[i].Type) {
			return false
		}
	}
	return true
}

// memberFunctions finds functions named name among the members of a
// receiver type: the type declaration's children, with parameter types
// resolved through their bounds.
func (l *bodyLowerer) memberFunctions(recvType hir.Type, name id.Symbol) []*hir.Declaration {
	switch t := recvType.(type) {
	case hir.UserType:
		owner := FindTypeDecl(l.ctx, t.Module, t.Name)
		if owner == nil {
			return nil
		}
		var out []*hir.Declaration
		for _, childID := range owner.Children {
			step := childID.Last()
			if step.Name != name || !step.Kind.IsValueBearing() {
				continue
			}
			if decl := DeclSignature(l.ctx, childID); decl != nil && decl.Kind == id.KindFunction {
				out = append(out, decl)
			}
		}
		return out
	case hir.ParameterType:
		return l.memberFunctions(l.env.ParameterBound(t), name)
	}
	return nil
}

// lowerIs lowers `value is Trait`. The expression's type is Bool; the
// solver runs now so ambiguity and overflow surface at the check site.
func (l *bodyLowerer) lowerIs(n *ast.Is) id.LocalID {
	value := l.lowerExpr(n.Value)
	tested := l.lowerType(n.Type)
	span := n.Span

	if trait, ok := tested.(hir.UserType); ok && !hir.IsError(l.typeAt(value)) {
		if l.svc.Decider(l.ctx).IsTrait(trait) {
			outcome, err := l.svc.SolveImpl(l.ctx, l.typeAt(value), trait)
			switch {
			case err != nil && solver.ErrTraitAsParameter.Is(err):
				l.diagnostics.Add(report.New(report.ErrTraitAsParameter, l.res, &span))
			case outcome == solver.Ambiguous:
				l.diagnostics.Add(report.New(report.ErrAmbiguousImpls, l.res, &span, trait.Name.String()))
			case outcome == solver.Overflow:
				l.diagnostics.Add(report.New(report.ErrSolverOverflow, l.res, &span))
			}
		}
	}

	return l.push(n.Node, hir.IsExpression{ID: l.next(), Value: value, Tested: tested})
}

// lowerNeeds lowers `needs condition`; the condition must be a Bool.
func (l *bodyLowerer) lowerNeeds(n *ast.Needs) id.LocalID {
	condition := l.lowerExpr(n.Condition)
	conditionType := l.typeAt(condition)

	if !hir.IsError(conditionType) && !hir.IsAssignable(l.env, conditionType, hir.CoreType("Bool")) {
		span := n.Span
		l.diagnostics.Add(report.New(report.ErrNotAssignable, l.res, &span,
			conditionType.String(), "Bool"))
	}

	var message *id.LocalID
	if n.Message != nil {
		m := l.lowerExpr(n.Message)
		message = &m
	}
	return l.push(n.Node, hir.NeedsExpression{ID: l.next(), Condition: condition, Message: message})
}

// lowerLambda lowers an anonymous function into the enclosing flat body,
// recording its expression range.
func (l *bodyLowerer) lowerLambda(n *ast.Lambda) id.LocalID {
	params := make([]hir.ParamDecl, len(n.Params))
	frame := make(map[id.Symbol]hir.Type, len(n.Params))
	for i, p := range n.Params {
		t := l.lowerType(p.Type)
		params[i] = hir.ParamDecl{Name: id.Intern(p.Name), Type: t, HasDefault: p.Default != nil}
		frame[params[i].Name] = t
	}

	l.params = append(l.params, frame)
	bodyStart := len(l.exprs)
	var last id.LocalID
	for _, e := range n.Body {
		last = l.lowerExpr(e)
	}
	bodyEnd := len(l.exprs)
	l.params = l.params[:len(l.params)-1]

	returnType := hir.Type(hir.TupleType{})
	if bodyEnd > bodyStart {
		returnType = l.typeAt(last)
	}
	paramTypes := make([]hir.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}

	return l.push(n.Node, hir.LambdaExpression{
		ID:        l.next(),
		Params:    params,
		BodyStart: bodyStart,
		BodyEnd:   bodyEnd,
		Type:      hir.FunctionType{Parameters: paramTypes, Return: returnType},
	})
}
