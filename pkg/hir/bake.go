// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package hir

import "github.com/kraklabs/candy/pkg/id"

// ParamKey addresses one generic parameter in a substitution: the
// declaring declaration plus the parameter name.
type ParamKey struct {
	Declaration string // canonical DeclarationID key
	Name        id.Symbol
}

// KeyOf returns the substitution key for a parameter type.
func KeyOf(p ParameterType) ParamKey {
	return ParamKey{Declaration: p.Declaration.Key(), Name: p.Name}
}

// Substitution maps generic parameters to concrete types.
type Substitution map[ParamKey]Type

// Bind returns a substitution extended with one binding.
func (s Substitution) Bind(decl id.DeclarationID, name id.Symbol, t Type) Substitution {
	out := make(Substitution, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[ParamKey{Declaration: decl.Key(), Name: name}] = t
	return out
}

// BakeThis substitutes every This occurrence in t with the concrete type.
// Parameter and Reflection types are unaffected.
func BakeThis(t Type, concrete Type) Type {
	return rewrite(t, func(node Type) (Type, bool) {
		if _, ok := node.(ThisTypeNode); ok {
			return concrete, true
		}
		return nil, false
	})
}

// BakeGenerics substitutes parameter references by looking up
// (declaration, name) in the substitution. Parameters without a binding
// stay as they are; all other constructors recurse.
func BakeGenerics(t Type, subst Substitution) Type {
	if len(subst) == 0 {
		return t
	}
	return rewrite(t, func(node Type) (Type, bool) {
		if p, ok := node.(ParameterType); ok {
			if bound, found := subst[KeyOf(p)]; found {
				return bound, true
			}
		}
		return nil, false
	})
}

// rewrite applies replace top-down; where replace declines it recurses
// into children, re-normalizing unions and intersections so substitution
// commutes with flattening.
func rewrite(t Type, replace func(Type) (Type, bool)) Type {
	if t == nil {
		return nil
	}
	if out, ok := replace(t); ok {
		return out
	}
	switch node := t.(type) {
	case UserType:
		if len(node.Args) == 0 {
			return node
		}
		args := make([]Type, len(node.Args))
		for i, a := range node.Args {
			args[i] = rewrite(a, replace)
		}
		return UserType{Module: node.Module, Name: node.Name, Args: args}
	case TupleType:
		components := make([]Type, len(node.Components))
		for i, c := range node.Components {
			components[i] = rewrite(c, replace)
		}
		return TupleType{Components: components}
	case NamedTupleType:
		fields := make([]NamedField, len(node.Fields))
		for i, f := range node.Fields {
			fields[i] = NamedField{Label: f.Label, Type: rewrite(f.Type, replace)}
		}
		return NamedTupleType{Fields: fields}
	case EnumTypeNode:
		variants := make([]EnumVariantType, len(node.Variants))
		for i, v := range node.Variants {
			variants[i] = EnumVariantType{Name: v.Name, Payload: rewrite(v.Payload, replace)}
		}
		return EnumTypeNode{Variants: variants}
	case FunctionType:
		params := make([]Type, len(node.Parameters))
		for i, p := range node.Parameters {
			params[i] = rewrite(p, replace)
		}
		return FunctionType{
			Receiver:   rewrite(node.Receiver, replace),
			Parameters: params,
			Return:     rewrite(node.Return, replace),
		}
	case UnionType:
		variants := make([]Type, len(node.Variants))
		for i, v := range node.Variants {
			variants[i] = rewrite(v, replace)
		}
		return NewUnion(variants...)
	case IntersectionType:
		members := make([]Type, len(node.Members))
		for i, m := range node.Members {
			members[i] = rewrite(m, replace)
		}
		return NewIntersection(members...)
	default:
		// ThisTypeNode, ParameterType, ReflectionType, ErrorTypeNode:
		// leaves for this rewrite.
		return t
	}
}
