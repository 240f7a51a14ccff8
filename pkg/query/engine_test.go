// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/resource"
)

func newTestContext(t *testing.T, register func(*Engine)) (*Context, *resource.MemoryProvider) {
	t.Helper()
	provider := resource.NewMemoryProvider()
	engine := NewEngine(nil)
	if register != nil {
		register(engine)
	}
	return engine.NewContext(provider), provider
}

func TestEvaluate_RunsProviderOncePerKey(t *testing.T) {
	runs := 0
	ctx, _ := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "double",
			Provide: func(ctx *Context, key Key) (Value, report.List) {
				runs++
				return key.(int) * 2, report.List{}
			},
		})
	})

	v, err := ctx.Evaluate("double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = ctx.Evaluate("double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, runs, "provider must not re-run on a cache hit")

	_, err = ctx.Evaluate("double", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
}

func TestEvaluate_ReplaysStoredErrors(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	runs := 0
	ctx, _ := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "failing",
			Provide: func(ctx *Context, key Key) (Value, report.List) {
				runs++
				var l report.List
				l.Add(report.New(report.ErrTypeNotFound, res, nil, "Missing"))
				return nil, l
			},
		})
	})

	_, err := ctx.Evaluate("failing", "k")
	require.NoError(t, err)
	_, err = ctx.Evaluate("failing", "k")
	require.NoError(t, err)

	assert.Equal(t, 1, runs)
	stored := ctx.DiagnosticsFor("failing", "k")
	require.Equal(t, 1, stored.Len())
	assert.Equal(t, "TypeNotFound", stored.All()[0].ID())
}

func TestEvaluate_CycleDetected(t *testing.T) {
	var ctx *Context
	ctx, _ = newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "selfish",
			Provide: func(c *Context, key Key) (Value, report.List) {
				_, err := c.Evaluate("selfish", key)
				// The branch is aborted; the provider reports it softly.
				var l report.List
				if ErrCycleDetected.Is(err) {
					l.Add(report.New(report.ErrCycleDetected,
						id.NewResourceID(id.ThisPackage, "x.candy"), nil, "selfish"))
				}
				return nil, l
			},
		})
	})

	_, err := ctx.Evaluate("selfish", 1)
	require.NoError(t, err)
	stored := ctx.DiagnosticsFor("selfish", 1)
	require.Equal(t, 1, stored.Len())
	assert.Equal(t, "CycleDetected", stored.All()[0].ID())
}

func TestEvaluate_CycleWithDifferentKeysIsFine(t *testing.T) {
	ctx, _ := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "countdown",
			Provide: func(c *Context, key Key) (Value, report.List) {
				n := key.(int)
				if n <= 0 {
					return 0, report.List{}
				}
				prev, err := c.Evaluate("countdown", n-1)
				if err != nil {
					return nil, report.List{}
				}
				return prev.(int) + 1, report.List{}
			},
		})
	})

	v, err := ctx.Evaluate("countdown", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestEvaluate_UnknownQuery(t *testing.T) {
	ctx, _ := newTestContext(t, nil)
	_, err := ctx.Evaluate("nope", 1)
	assert.True(t, ErrUnknownQuery.Is(err))
}

func TestInvalidate_TransitiveDependents(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	reads, derived := 0, 0
	ctx, provider := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "text",
			Provide: func(c *Context, key Key) (Value, report.List) {
				reads++
				text, _ := c.ReadResource(key.(id.ResourceID))
				return text, report.List{}
			},
		})
		e.Register(Query{
			Name: "length",
			Provide: func(c *Context, key Key) (Value, report.List) {
				derived++
				text, _ := c.Evaluate("text", key)
				return len(text.(string)), report.List{}
			},
		})
	})

	provider.Put(res, "abc")
	v, err := ctx.Evaluate("length", res)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, derived)

	// Change the resource and invalidate: both queries recompute.
	provider.Put(res, "abcdef")
	removed := ctx.Invalidate(res)
	assert.Equal(t, 2, removed)

	v, err = ctx.Evaluate("length", res)
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, 2, reads)
	assert.Equal(t, 2, derived)
}

func TestInvalidate_UnrelatedEntriesSurvive(t *testing.T) {
	resA := id.NewResourceID(id.ThisPackage, "a.candy")
	resB := id.NewResourceID(id.ThisPackage, "b.candy")
	runs := map[string]int{}
	ctx, provider := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "text",
			Provide: func(c *Context, key Key) (Value, report.List) {
				res := key.(id.ResourceID)
				runs[res.Path]++
				text, _ := c.ReadResource(res)
				return text, report.List{}
			},
		})
	})

	provider.Put(resA, "a")
	provider.Put(resB, "b")
	_, _ = ctx.Evaluate("text", resA)
	_, _ = ctx.Evaluate("text", resB)

	ctx.Invalidate(resA)
	_, _ = ctx.Evaluate("text", resA)
	_, _ = ctx.Evaluate("text", resB)

	assert.Equal(t, 2, runs["a.candy"])
	assert.Equal(t, 1, runs["b.candy"])
}

func TestInvalidate_MissingFileObservedThenCreated(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "b.candy")
	ctx, provider := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "exists",
			Provide: func(c *Context, key Key) (Value, report.List) {
				return c.ResourceExists(key.(id.ResourceID)), report.List{}
			},
		})
	})

	v, _ := ctx.Evaluate("exists", res)
	assert.Equal(t, false, v)

	provider.Put(res, "now present")
	ctx.Invalidate(res)

	v, _ = ctx.Evaluate("exists", res)
	assert.Equal(t, true, v)
}

func TestCancellation_NotMemoized(t *testing.T) {
	runs := 0
	var ctx *Context
	ctx, _ = newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "slow",
			Provide: func(c *Context, key Key) (Value, report.List) {
				runs++
				c.Cancel() // simulate cancellation arriving mid-run
				return "partial", report.List{}
			},
		})
	})

	_, err := ctx.Evaluate("slow", 1)
	assert.True(t, ErrIncomplete.Is(err))

	// A fresh context (cancellation is sticky per context) re-runs it.
	ctx2 := ctx.Engine().NewContext(resource.NewMemoryProvider())
	_, err = ctx2.Evaluate("slow", 1)
	assert.True(t, ErrIncomplete.Is(err))
	assert.Equal(t, 2, runs, "incomplete results must not be memoized")
}

func TestDeterminism_SameInputsSameOutputs(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")

	run := func() (Value, []report.Diagnostic) {
		provider := resource.NewMemoryProvider()
		provider.Put(res, "content")
		engine := NewEngine(nil)
		engine.Register(Query{
			Name: "analyze",
			Provide: func(c *Context, key Key) (Value, report.List) {
				text, _ := c.ReadResource(key.(id.ResourceID))
				var l report.List
				l.Add(report.New(report.ErrUnsupportedFeature, res, nil, text))
				return "analyzed:" + text, l
			},
		})
		ctx := engine.NewContext(provider)
		v, err := ctx.Evaluate("analyze", res)
		require.NoError(t, err)
		return v, ctx.DiagnosticsFor("analyze", res).All()
	}

	v1, d1 := run()
	v2, d2 := run()
	assert.Equal(t, v1, v2)
	assert.Equal(t, d1, d2)
}

func TestDependenciesOf(t *testing.T) {
	res := id.NewResourceID(id.ThisPackage, "a.candy")
	ctx, provider := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "text",
			Provide: func(c *Context, key Key) (Value, report.List) {
				text, _ := c.ReadResource(key.(id.ResourceID))
				return text, report.List{}
			},
		})
		e.Register(Query{
			Name: "length",
			Provide: func(c *Context, key Key) (Value, report.List) {
				text, _ := c.Evaluate("text", key)
				return len(text.(string)), report.List{}
			},
		})
	})
	provider.Put(res, "abc")
	_, err := ctx.Evaluate("length", res)
	require.NoError(t, err)

	deps, ok := ctx.DependenciesOf("length", res)
	require.True(t, ok)
	assert.Equal(t, []string{"text"}, deps.Queries)
	assert.Empty(t, deps.Resources)

	deps, ok = ctx.DependenciesOf("text", res)
	require.True(t, ok)
	assert.Empty(t, deps.Queries)
	assert.Equal(t, []string{"res:this:a.candy"}, deps.Resources)

	_, ok = ctx.DependenciesOf("text", "uncached key")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	ctx, _ := newTestContext(t, func(e *Engine) {
		e.Register(Query{
			Name: "id",
			Provide: func(c *Context, key Key) (Value, report.List) {
				return key, report.List{}
			},
		})
	})
	_, _ = ctx.Evaluate("id", 1)
	_, _ = ctx.Evaluate("id", 2)

	stats := ctx.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.QueryCounts["id"])
}
