// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/ast/asttest"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/resource"
)

func newTestSession(t *testing.T) (*Session, *asttest.Parser, *resource.MemoryProvider) {
	t.Helper()
	parser := asttest.NewParser()
	provider := resource.NewMemoryProvider()
	session := NewSession(provider, parser, []id.PackageID{id.ThisPackage}, nil)
	return session, parser, provider
}

func TestScenarioS6_MissingUseTargetThenCreated(t *testing.T) {
	session, parser, provider := newTestSession(t)

	a := id.NewResourceID(id.ThisPackage, "a.candy")
	b := id.NewResourceID(id.ThisPackage, "b.candy")

	builder := asttest.NewBuilder()
	parser.Put(builder.File(a, []ast.UseLine{builder.Use(1, "b")}))

	// Open a.candy with `use .b`; b.candy does not exist.
	require.NoError(t, session.Open(a, "use .b"))
	diagnostics, err := session.Errors(a)
	require.NoError(t, err)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "UseLineTargetNotFound", diagnostics[0].ID())

	// Create b.candy and invalidate: the error disappears.
	provider.Put(b, "")
	parser.Put(asttest.NewBuilder().File(b, nil))
	session.Invalidate(b)

	diagnostics, err = session.Errors(a)
	require.NoError(t, err)
	assert.Empty(t, diagnostics)
}

func TestSession_ErrorsOnlyForResource(t *testing.T) {
	session, parser, _ := newTestSession(t)

	good := id.NewResourceID(id.ThisPackage, "good.candy")
	bad := id.NewResourceID(id.ThisPackage, "bad.candy")

	bg := asttest.NewBuilder()
	parser.Put(bg.File(good, nil, bg.Class("Fine")))
	bb := asttest.NewBuilder()
	parser.Put(bb.File(bad, nil, bb.Fn("f", nil, bb.Named("Ghost"))))

	require.NoError(t, session.Open(good, ""))
	require.NoError(t, session.Open(bad, ""))

	diagnostics, err := session.Errors(bad)
	require.NoError(t, err)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "TypeNotFound", diagnostics[0].ID())

	diagnostics, err = session.Errors(good)
	require.NoError(t, err)
	assert.Empty(t, diagnostics)
}

func TestSession_EditKeepsOverlayAndInvalidates(t *testing.T) {
	session, parser, _ := newTestSession(t)
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	parser.Put(asttest.NewBuilder().File(res, nil))

	require.NoError(t, session.Open(res, "hello"))
	require.NoError(t, session.Edit(res, []resource.TextEdit{{
		Start:   report.Position{Line: 0, Column: 0},
		End:     report.Position{Line: 0, Column: 5},
		NewText: "bye",
	}}))

	text, ok := session.Context().ReadResource(res)
	require.True(t, ok)
	assert.Equal(t, "bye", text)
}

func TestSession_InconsistentEditShutsDown(t *testing.T) {
	session, parser, _ := newTestSession(t)
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	parser.Put(asttest.NewBuilder().File(res, nil))

	require.NoError(t, session.Open(res, "ab"))
	err := session.Edit(res, []resource.TextEdit{{
		Start:   report.Position{Line: 9, Column: 0},
		End:     report.Position{Line: 9, Column: 1},
		NewText: "x",
	}})
	require.Error(t, err)
	assert.True(t, report.ErrInconsistentState.Is(err))

	// Every further operation refuses.
	err = session.Open(res, "again")
	assert.True(t, ErrSessionClosed.Is(err))
	_, err = session.Errors(res)
	assert.True(t, ErrSessionClosed.Is(err))
}

func TestSession_GenericQuery(t *testing.T) {
	session, parser, _ := newTestSession(t)
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	b := asttest.NewBuilder()
	parser.Put(b.File(res, nil, b.Class("A")))
	require.NoError(t, session.Open(res, ""))

	v, err := session.Query(QueryAnalyze, res)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = session.Query("no.such.query", res)
	assert.Error(t, err)
}

func TestSession_CheckAll(t *testing.T) {
	session, parser, provider := newTestSession(t)

	good := id.NewResourceID(id.ThisPackage, "good.candy")
	bad := id.NewResourceID(id.ThisPackage, "bad.candy")
	provider.Put(good, "")
	provider.Put(bad, "")
	bg := asttest.NewBuilder()
	parser.Put(bg.File(good, nil, bg.Class("Fine")))
	bb := asttest.NewBuilder()
	parser.Put(bb.File(bad, nil, bb.Fn("f", nil, bb.Named("Ghost"))))

	results, err := session.CheckAll()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[bad], 1)
}

func TestProjectConfig_LoadAndPackages(t *testing.T) {
	root := t.TempDir()
	depDir := filepath.Join(root, "deps", "json")
	require.NoError(t, os.MkdirAll(depDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte(
		"name: myproject\ndependencies:\n  Json: deps/json\n"), 0o600))

	cfg, err := LoadProjectConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "myproject", cfg.Name)

	packages := cfg.Packages()
	require.Len(t, packages, 2)
	assert.Equal(t, id.ThisPackage, packages[0])
	assert.Equal(t, id.NewPackageID("Json"), packages[1])

	provider := cfg.Mount(root)
	depRoot, ok := provider.PackageRoot(id.NewPackageID("Json"))
	require.True(t, ok)
	assert.Equal(t, depDir, depRoot)
}

func TestProjectConfig_MissingName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte("dependencies: {}\n"), 0o600))
	_, err := LoadProjectConfig(root)
	assert.Error(t, err)
}
