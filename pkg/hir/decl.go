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

import "github.com/kraklabs/candy/pkg/id"

// TypeParamDecl is one generic parameter of a declaration with its lowered
// upper bound; unbounded parameters carry Any.
type TypeParamDecl struct {
	Name       id.Symbol
	UpperBound Type
}

// ParamDecl is one lowered function parameter.
type ParamDecl struct {
	Name       id.Symbol
	Type       Type
	HasDefault bool
}

// Declaration is the lowered, signature-level form of one declaration.
// Bodies are lowered separately (see Body); children are addressed by ID
// so the structure stays acyclic.
type Declaration struct {
	ID       id.DeclarationID
	Kind     id.DeclarationKind
	Name     id.Symbol
	IsPublic bool
	// Module is the module this declaration belongs to.
	Module id.ModuleID

	TypeParams []TypeParamDecl

	// UpperBounds holds a trait's upper-bound trait references.
	UpperBounds []Type

	// Base and Trait describe an impl: the implemented-for type and the
	// implemented trait (nil for inherent impls).
	Base  Type
	Trait Type

	// Receiver, Params and Return describe a function; Receiver is nil
	// for free functions.
	Receiver Type
	Params   []ParamDecl
	Return   Type

	// IsMutable, DeclaredType and HasInitializer describe a property.
	IsMutable      bool
	DeclaredType   Type
	HasInitializer bool

	// Enum variants, for enum declarations.
	Variants []EnumVariantType

	Children []id.DeclarationID
}

// TypeParam looks up a type parameter by name.
func (d *Declaration) TypeParam(name id.Symbol) (TypeParamDecl, bool) {
	for _, tp := range d.TypeParams {
		if tp.Name == name {
			return tp, true
		}
	}
	return TypeParamDecl{}, false
}

// AsType returns the user type a trait/class/enum declaration denotes,
// with its own type parameters as arguments.
func (d *Declaration) AsType() UserType {
	args := make([]Type, len(d.TypeParams))
	for i, tp := range d.TypeParams {
		args[i] = ParameterType{Declaration: d.ID, Name: tp.Name}
	}
	return UserType{Module: d.Module, Name: d.Name, Args: args}
}

// Signature returns a function declaration's type.
func (d *Declaration) Signature() FunctionType {
	params := make([]Type, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Type
	}
	return FunctionType{Receiver: d.Receiver, Parameters: params, Return: d.Return}
}
