// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntern_StableHandles(t *testing.T) {
	a := Intern("List")
	b := Intern("List")
	c := Intern("Map")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "List", a.String())
	assert.Equal(t, "Map", c.String())
}

func TestIntern_NoNameReserved(t *testing.T) {
	assert.Equal(t, NoName, Intern(""))
	assert.Equal(t, "", NoName.String())
}

func TestIntern_Concurrent(t *testing.T) {
	// Interning the same strings from many goroutines must hand out
	// identical symbols.
	const workers = 16
	results := make([][]Symbol, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				results[w] = append(results[w], Intern("concurrent-"+string(rune('a'+i%26))))
			}
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
}

func TestSymbol_IsUppercase(t *testing.T) {
	assert.True(t, Intern("Foo").IsUppercase())
	assert.False(t, Intern("foo").IsUppercase())
	assert.False(t, NoName.IsUppercase())
}

func TestModuleID_ChildParent(t *testing.T) {
	root := RootModule(ThisPackage)
	require.True(t, root.IsRoot())

	foo := root.Child(Intern("foo"))
	bar := foo.Child(Intern("bar"))

	assert.Equal(t, "this:foo:bar", bar.String())

	parent, ok := bar.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(foo))

	_, ok = root.Parent()
	assert.False(t, ok)
}

func TestModuleID_ChildDoesNotAliasParentSegments(t *testing.T) {
	root := RootModule(ThisPackage)
	foo := root.Child(Intern("foo"))
	a := foo.Child(Intern("a"))
	b := foo.Child(Intern("b"))

	// Appending to the same parent twice must not clobber the first child.
	assert.Equal(t, "this:foo:a", a.String())
	assert.Equal(t, "this:foo:b", b.String())
}

func TestDeclarationID_PathPrefix(t *testing.T) {
	res := NewResourceID(ThisPackage, "foo.candy")
	module := NewDeclarationID(res, PathStep{Kind: KindModule, Name: Intern("foo")})
	fn := module.Child(PathStep{Kind: KindFunction, Name: Intern("bar")})
	overload := module.Child(PathStep{Kind: KindFunction, Name: Intern("bar"), Disambiguator: 1})

	assert.True(t, module.IsPrefixOf(fn))
	assert.True(t, module.IsPrefixOf(module))
	assert.False(t, fn.IsPrefixOf(module))
	assert.False(t, fn.Equal(overload))

	parent, ok := fn.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(module))
}

func TestDeclarationID_KeyIsCanonical(t *testing.T) {
	res := NewResourceID(CorePackage, "int.candy")
	a := NewDeclarationID(res,
		PathStep{Kind: KindImpl, Disambiguator: 2})
	b := NewDeclarationID(res,
		PathStep{Kind: KindImpl, Disambiguator: 2})

	assert.Equal(t, a.Key(), b.Key())
	assert.Contains(t, a.Key(), "impl[_#2]")
}

func TestDeclarationKind_Bearing(t *testing.T) {
	assert.True(t, KindTrait.IsTypeBearing())
	assert.True(t, KindClass.IsTypeBearing())
	assert.False(t, KindFunction.IsTypeBearing())
	assert.True(t, KindFunction.IsValueBearing())
	assert.True(t, KindGetter.IsValueBearing())
	assert.False(t, KindModule.IsValueBearing())
}

func TestLocalID_String(t *testing.T) {
	res := NewResourceID(ThisPackage, "foo.candy")
	decl := NewDeclarationID(res, PathStep{Kind: KindFunction, Name: Intern("main")})
	local := LocalID{Declaration: decl, Ordinal: 3}
	assert.Equal(t, decl.String()+"%3", local.String())
}
