// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/ast/asttest"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/resource"
)

func setup(t *testing.T) (*query.Context, *asttest.Parser, *resource.MemoryProvider) {
	t.Helper()
	parser := asttest.NewParser()
	provider := resource.NewMemoryProvider()
	engine := query.NewEngine(nil)
	Register(engine, parser)
	return engine.NewContext(provider), parser, provider
}

func TestModuleOfResource(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"foo.candy", "this:foo"},
		{"foo/bar.candy", "this:foo:bar"},
		{"foo/_.candy", "this:foo"},
		{"foo/module.candy", "this:foo"},
		{"_.candy", "this"},
		{"module.candy", "this"},
	}
	for _, tc := range cases {
		module := ModuleOfResource(id.NewResourceID(id.ThisPackage, tc.path))
		assert.Equal(t, tc.want, module.String(), tc.path)
	}
}

func TestDeclarations_PathAssignment(t *testing.T) {
	ctx, parser, provider := setup(t)
	res := id.NewResourceID(id.ThisPackage, "foo.candy")
	provider.Put(res, "source text")

	b := asttest.NewBuilder()
	parser.Put(b.File(res, nil,
		b.Trait("Foo"),
		b.Impl(b.Named("Int"), b.Named("Foo")),
		b.Impl(b.Named("Text"), b.Named("Foo")),
		b.Fn("bar", nil, nil),
		b.Fn("bar", []ast.Param{b.Param("x", b.Named("Int"))}, nil),
		b.Module("inner",
			b.Fn("baz", nil, nil),
		),
	))

	table := Declarations(ctx, res)
	require.Len(t, table.TopLevel, 6)

	// Impls are disambiguated by ordinal among impl siblings.
	assert.Equal(t, "impl[_]", table.TopLevel[1].Last().String())
	assert.Equal(t, "impl[_#1]", table.TopLevel[2].Last().String())

	// Overloads share a name but differ in disambiguator.
	assert.Equal(t, "function[bar]", table.TopLevel[3].Last().String())
	assert.Equal(t, "function[bar#1]", table.TopLevel[4].Last().String())

	// Nested declarations extend the parent path.
	inner := table.TopLevel[5]
	children := table.Children(inner)
	require.Len(t, children, 1)
	assert.True(t, inner.IsPrefixOf(children[0]))
	assert.Equal(t, "function[baz]", children[0].Last().String())

	// Node lookup round-trips.
	node := table.Node(children[0])
	require.NotNil(t, node)
	assert.Equal(t, "baz", node.DeclName())
}

func TestDeclarations_DeterministicAcrossRuns(t *testing.T) {
	build := func() []string {
		ctx, parser, provider := setup(t)
		res := id.NewResourceID(id.ThisPackage, "foo.candy")
		provider.Put(res, "x")
		b := asttest.NewBuilder()
		parser.Put(b.File(res, nil,
			b.Class("A"),
			b.Impl(b.Named("A"), b.Named("T")),
			b.Fn("f", nil, nil),
		))
		var keys []string
		for _, declID := range Declarations(ctx, res).Order {
			keys = append(keys, declID.Key())
		}
		return keys
	}
	assert.Equal(t, build(), build())
}

func TestDeclarationAST_MissingID(t *testing.T) {
	ctx, parser, provider := setup(t)
	res := id.NewResourceID(id.ThisPackage, "foo.candy")
	provider.Put(res, "x")
	b := asttest.NewBuilder()
	parser.Put(b.File(res, nil, b.Class("A")))

	ghost := id.NewDeclarationID(res, id.PathStep{Kind: id.KindClass, Name: id.Intern("Ghost")})
	assert.Nil(t, DeclarationAST(ctx, ghost))
}

func TestParentOf(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "foo.candy")
	module := id.NewDeclarationID(res, id.PathStep{Kind: id.KindModule, Name: id.Intern("m")})
	fn := module.Child(id.PathStep{Kind: id.KindFunction, Name: id.Intern("f")})

	parent, ok := ParentOf(fn)
	require.True(t, ok)
	assert.True(t, parent.Equal(module))

	_, ok = ParentOf(module)
	assert.False(t, ok, "top-level declarations have no parent declaration")
}

func TestLocateModule_FileForms(t *testing.T) {
	ctx, parser, provider := setup(t)

	// foo.candy defines module foo; bar/_.candy defines module bar.
	foo := id.NewResourceID(id.ThisPackage, "foo.candy")
	bar := id.NewResourceID(id.ThisPackage, "bar/_.candy")
	root := id.NewResourceID(id.ThisPackage, "_.candy")
	for _, res := range []id.ResourceID{foo, bar, root} {
		provider.Put(res, "x")
		parser.Put(asttest.NewBuilder().File(res, nil))
	}

	location := LocateModule(ctx, id.RootModule(id.ThisPackage).Child(id.Intern("foo")))
	require.True(t, location.Found)
	assert.Equal(t, foo, location.Resource)
	assert.False(t, location.IsInline)

	location = LocateModule(ctx, id.RootModule(id.ThisPackage).Child(id.Intern("bar")))
	require.True(t, location.Found)
	assert.Equal(t, bar, location.Resource)

	location = LocateModule(ctx, id.RootModule(id.ThisPackage))
	require.True(t, location.Found)
	assert.Equal(t, root, location.Resource)

	location = LocateModule(ctx, id.RootModule(id.ThisPackage).Child(id.Intern("ghost")))
	assert.False(t, location.Found)
}

func TestLocateModule_Inline(t *testing.T) {
	ctx, parser, provider := setup(t)
	res := id.NewResourceID(id.ThisPackage, "foo.candy")
	provider.Put(res, "x")

	b := asttest.NewBuilder()
	parser.Put(b.File(res, nil,
		b.Module("inner",
			b.Module("deep"),
		),
	))

	module := id.RootModule(id.ThisPackage).
		Child(id.Intern("foo")).
		Child(id.Intern("inner")).
		Child(id.Intern("deep"))

	location := LocateModule(ctx, module)
	require.True(t, location.Found)
	assert.True(t, location.IsInline)
	assert.Equal(t, res, location.Resource)
	assert.Equal(t, "module[deep]", location.Inline.Last().String())

	members := ModuleMembers(ctx, module)
	assert.Empty(t, members)

	inner := id.RootModule(id.ThisPackage).Child(id.Intern("foo")).Child(id.Intern("inner"))
	members = ModuleMembers(ctx, inner)
	require.Len(t, members, 1)
}

func TestModuleMembers_FileModule(t *testing.T) {
	ctx, parser, provider := setup(t)
	res := id.NewResourceID(id.ThisPackage, "foo.candy")
	provider.Put(res, "x")
	b := asttest.NewBuilder()
	parser.Put(b.File(res, nil, b.Class("A"), b.Fn("f", nil, nil)))

	members := ModuleMembers(ctx, id.RootModule(id.ThisPackage).Child(id.Intern("foo")))
	require.Len(t, members, 2)
	assert.Equal(t, "class[A]", members[0].Last().String())
}
