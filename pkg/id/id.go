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

package id

import (
	"fmt"
	"strconv"
	"strings"
)

// PackageID identifies a package in the global package namespace.
type PackageID struct {
	Name Symbol
}

// NewPackageID interns the package name and returns its ID.
func NewPackageID(name string) PackageID {
	return PackageID{Name: Intern(name)}
}

// Distinguished packages. CorePackage is the standard library; ThisPackage
// is the current project being compiled.
var (
	CorePackage = PackageID{Name: Intern("Core")}
	ThisPackage = PackageID{Name: Intern("this")}
)

// IsCore reports whether the package is the core package.
func (p PackageID) IsCore() bool { return p == CorePackage }

func (p PackageID) String() string { return p.Name.String() }

// ResourceID identifies a source file: a package plus a path relative to
// the package root. Paths use forward slashes regardless of host OS.
type ResourceID struct {
	Package PackageID
	Path    string
}

// NewResourceID builds a resource ID from package and relative path.
func NewResourceID(pkg PackageID, path string) ResourceID {
	return ResourceID{Package: pkg, Path: path}
}

func (r ResourceID) String() string {
	return r.Package.String() + ":" + r.Path
}

// ModuleID identifies a module by its path through the module tree.
// Segments are ordered from the package root downward; the root module of
// a package has no segments.
type ModuleID struct {
	Package  PackageID
	Segments []Symbol
}

// RootModule returns the root module of a package.
func RootModule(pkg PackageID) ModuleID {
	return ModuleID{Package: pkg}
}

// Child returns the module one level below this one.
func (m ModuleID) Child(segment Symbol) ModuleID {
	segments := make([]Symbol, 0, len(m.Segments)+1)
	segments = append(segments, m.Segments...)
	segments = append(segments, segment)
	return ModuleID{Package: m.Package, Segments: segments}
}

// Parent returns the enclosing module and true, or a zero module and false
// for a package root.
func (m ModuleID) Parent() (ModuleID, bool) {
	if len(m.Segments) == 0 {
		return ModuleID{}, false
	}
	return ModuleID{Package: m.Package, Segments: m.Segments[:len(m.Segments)-1]}, true
}

// IsRoot reports whether this is a package's root module.
func (m ModuleID) IsRoot() bool { return len(m.Segments) == 0 }

// Equal reports structural equality.
func (m ModuleID) Equal(other ModuleID) bool {
	if m.Package != other.Package || len(m.Segments) != len(other.Segments) {
		return false
	}
	for i, s := range m.Segments {
		if s != other.Segments[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical encoding usable as a map key.
func (m ModuleID) Key() string { return m.String() }

func (m ModuleID) String() string {
	var b strings.Builder
	b.WriteString(m.Package.String())
	for _, s := range m.Segments {
		b.WriteByte(':')
		b.WriteString(s.String())
	}
	return b.String()
}

// DeclarationKind discriminates the kinds of declarations a path step can
// address.
type DeclarationKind uint8

const (
	KindModule DeclarationKind = iota
	KindTrait
	KindImpl
	KindClass
	KindEnum
	KindConstructor
	KindFunction
	KindProperty
	KindGetter
	KindSetter
)

var kindNames = [...]string{
	KindModule:      "module",
	KindTrait:       "trait",
	KindImpl:        "impl",
	KindClass:       "class",
	KindEnum:        "enum",
	KindConstructor: "constructor",
	KindFunction:    "function",
	KindProperty:    "property",
	KindGetter:      "getter",
	KindSetter:      "setter",
}

func (k DeclarationKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsTypeBearing reports whether declarations of this kind can be used in
// type position.
func (k DeclarationKind) IsTypeBearing() bool {
	switch k {
	case KindModule, KindTrait, KindClass, KindEnum:
		return true
	}
	return false
}

// IsValueBearing reports whether declarations of this kind can be used in
// value position.
func (k DeclarationKind) IsValueBearing() bool {
	switch k {
	case KindConstructor, KindFunction, KindProperty, KindGetter, KindSetter:
		return true
	}
	return false
}

// PathStep is one disambiguated step on a declaration path. Name is NoName
// for declarations without one (impls). Disambiguator orders overloads and
// unnamed siblings: the n-th same-named sibling gets disambiguator n.
type PathStep struct {
	Kind          DeclarationKind
	Name          Symbol
	Disambiguator int
}

func (s PathStep) String() string {
	name := s.Name.String()
	if s.Name == NoName {
		name = "_"
	}
	if s.Disambiguator == 0 {
		return fmt.Sprintf("%s[%s]", s.Kind, name)
	}
	return fmt.Sprintf("%s[%s#%d]", s.Kind, name, s.Disambiguator)
}

// DeclarationID addresses one declaration: the resource it lives in plus
// the disambiguated path from the resource's top level down to it.
//
// Every prefix of the path addresses an ancestor declaration that actually
// exists.
type DeclarationID struct {
	Resource ResourceID
	Path     []PathStep
}

// NewDeclarationID builds a declaration ID.
func NewDeclarationID(resource ResourceID, path ...PathStep) DeclarationID {
	return DeclarationID{Resource: resource, Path: path}
}

// Child returns the declaration ID one step below this one.
func (d DeclarationID) Child(step PathStep) DeclarationID {
	path := make([]PathStep, 0, len(d.Path)+1)
	path = append(path, d.Path...)
	path = append(path, step)
	return DeclarationID{Resource: d.Resource, Path: path}
}

// Parent returns the enclosing declaration and true, or a zero ID and
// false if this is a top-level declaration of its resource.
func (d DeclarationID) Parent() (DeclarationID, bool) {
	if len(d.Path) == 0 {
		return DeclarationID{}, false
	}
	return DeclarationID{Resource: d.Resource, Path: d.Path[:len(d.Path)-1]}, true
}

// Last returns the final path step. Calling Last on a resource-root ID is
// a programmer error.
func (d DeclarationID) Last() PathStep {
	return d.Path[len(d.Path)-1]
}

// Equal reports structural equality.
func (d DeclarationID) Equal(other DeclarationID) bool {
	if d.Resource != other.Resource || len(d.Path) != len(other.Path) {
		return false
	}
	for i, s := range d.Path {
		if s != other.Path[i] {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether d addresses an ancestor of other (or other
// itself).
func (d DeclarationID) IsPrefixOf(other DeclarationID) bool {
	if d.Resource != other.Resource || len(d.Path) > len(other.Path) {
		return false
	}
	for i, s := range d.Path {
		if s != other.Path[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical encoding usable as a map key.
func (d DeclarationID) Key() string { return d.String() }

func (d DeclarationID) String() string {
	var b strings.Builder
	b.WriteString(d.Resource.String())
	for _, s := range d.Path {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// LocalID addresses an entity inside one declaration's body, numbered in
// lowering order. Local IDs are only valid within the body that created
// them.
type LocalID struct {
	Declaration DeclarationID
	Ordinal     int
}

func (l LocalID) String() string {
	return l.Declaration.String() + "%" + strconv.Itoa(l.Ordinal)
}
