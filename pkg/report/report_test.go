// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/candy/pkg/id"
)

func TestStableIDs(t *testing.T) {
	assert.Equal(t, "UseLineTargetNotFound", StableID(ErrUseLineTargetNotFound))
	assert.Equal(t, "ConflictingImpls", StableID(ErrConflictingImpls))
	assert.Equal(t, "TryingToFindImplForTraitWithTraitAsParameter", StableID(ErrTraitAsParameter))
	assert.Equal(t, "CycleDetected", StableID(ErrCycleDetected))
}

func TestNew_FormatsTitle(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	d := New(ErrUndefinedIdentifier, res, nil, "foo")

	assert.Equal(t, "UndefinedIdentifier", d.ID())
	assert.Equal(t, "undefined identifier: foo", d.Title)
	assert.Equal(t, res, d.Resource)
}

func TestDiagnostic_WithRelated(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	other := id.NewResourceID(id.ThisPackage, "b.candy")

	d := New(ErrConflictingImpls, res, nil, "Foo").
		WithRelated(other, nil, "other impl is here")

	require.Len(t, d.Related, 1)
	assert.Equal(t, other, d.Related[0].Resource)

	// The original value stays untouched; With* returns copies.
	d2 := d.WithRelated(res, nil, "and here")
	assert.Len(t, d.Related, 1)
	assert.Len(t, d2.Related, 2)
}

func TestList_ForResource_SortsBySpan(t *testing.T) {
	a := id.NewResourceID(id.ThisPackage, "a.candy")
	b := id.NewResourceID(id.ThisPackage, "b.candy")

	spanAt := func(line int) *Span {
		return &Span{Start: Position{Line: line}, End: Position{Line: line, Column: 1}}
	}

	var l List
	l.Add(New(ErrTypeNotFound, a, spanAt(5), "Late"))
	l.Add(New(ErrTypeNotFound, b, spanAt(0), "Other"))
	l.Add(New(ErrTypeNotFound, a, spanAt(1), "Early"))
	l.Add(New(ErrTypeNotFound, a, nil, "NoSpan"))

	got := l.ForResource(a)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Span)
	assert.Equal(t, 1, got[1].Span.Start.Line)
	assert.Equal(t, 5, got[2].Span.Start.Line)
}

func TestList_AllReturnsCopy(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	var l List
	l.Add(New(ErrSyntaxError, res, nil, "bad token"))

	all := l.All()
	all[0].Title = "mutated"
	assert.Equal(t, "syntax error: bad token", l.All()[0].Title)
}
