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

package query

import (
	"sort"
	"sync/atomic"

	"github.com/opentracing/opentracing-go"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/resource"
)

// Hard evaluation outcomes. Everything else is a soft failure reported as
// diagnostics next to a safe value.
var (
	// ErrCycleDetected is returned when a query re-enters itself with the
	// same key. The branch is aborted and nothing is memoized; callers
	// treat it as a non-fatal compilation error.
	ErrCycleDetected = errors.NewKind("query cycle: %s")

	// ErrIncomplete is returned when evaluation was abandoned because the
	// context was cancelled. Incomplete results are never memoized.
	ErrIncomplete = errors.NewKind("evaluation cancelled: %s")

	// ErrUnknownQuery is returned for names no query was registered under.
	ErrUnknownQuery = errors.NewKind("unknown query: %s")
)

// Context executes queries against one immutable view of the world. It
// owns the memo table, the dependency tracker and the cancellation flag.
//
// A context is single-threaded cooperative: one driver pulls top-level
// queries and recursion into dependent queries is synchronous, so the memo
// table needs no locking. Coarse parallelism is achieved by giving each
// root its own context over a provider snapshot. Only the cancellation
// flag may be touched from other goroutines.
type Context struct {
	engine   *Engine
	provider resource.Provider
	tracer   opentracing.Tracer

	memo  map[entrySlot][]*entry
	stack []frame
	seq   int

	cancelled atomic.Bool
}

// frame is one active evaluation on the call stack.
type frame struct {
	slot  entrySlot
	key   Key
	entry *entry
}

// NewContext creates a fresh context backed by the given resource
// provider. All resource reads made by providers must go through
// Context.ReadResource so the dependency tracker sees them.
func (e *Engine) NewContext(provider resource.Provider) *Context {
	return &Context{
		engine:   e,
		provider: provider,
		tracer:   opentracing.GlobalTracer(),
		memo:     make(map[entrySlot][]*entry),
	}
}

// Engine returns the engine this context was created from.
func (c *Context) Engine() *Engine { return c.engine }

// Cancel requests cooperative cancellation. Safe to call from another
// goroutine.
func (c *Context) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether cancellation was requested. Long-running
// providers poll this and bail out early.
func (c *Context) Cancelled() bool { return c.cancelled.Load() }

// Evaluate runs the named query for the key, returning the cached value
// when present. The provider runs exactly once per key; its diagnostics
// are stored with the value and re-surfaced on every cache hit.
func (c *Context) Evaluate(name string, key Key) (Value, error) {
	q, ok := c.engine.queries[name]
	if !ok {
		return nil, ErrUnknownQuery.New(name)
	}
	if c.cancelled.Load() {
		c.engine.metrics.cancelled.Inc()
		return nil, ErrIncomplete.New(name)
	}

	slot := hashKey(name, key)

	// Cached?
	if cached := c.lookup(slot, key); cached != nil {
		c.engine.metrics.cacheHits.WithLabelValues(name).Inc()
		c.recordDependency(slot)
		return cached.value, nil
	}

	// Re-entry with the same key is a cycle. Abort the branch without
	// storing a value.
	for _, f := range c.stack {
		if f.slot == slot && sameKey(f.key, key) {
			c.engine.metrics.cycles.Inc()
			c.engine.logger.Debug("query.cycle", "query", name)
			return nil, ErrCycleDetected.New(name)
		}
	}

	c.recordDependency(slot)

	span := c.tracer.StartSpan("query." + name)
	defer span.Finish()

	en := &entry{
		key:       key,
		deps:      make(map[entrySlot]bool),
		resources: make(map[string]bool),
	}
	c.stack = append(c.stack, frame{slot: slot, key: key, entry: en})
	value, diagnostics := q.Provide(c, key)
	c.stack = c.stack[:len(c.stack)-1]

	if c.cancelled.Load() {
		// Abandon the result: incomplete values must not be memoized.
		c.engine.metrics.cancelled.Inc()
		return nil, ErrIncomplete.New(name)
	}

	en.value = value
	en.diagnostics = diagnostics
	en.seq = c.seq
	c.seq++
	c.memo[slot] = append(c.memo[slot], en)

	c.engine.metrics.evaluations.WithLabelValues(name).Inc()
	c.engine.metrics.memoEntries.Set(float64(c.entryCount()))
	if n := diagnostics.Len(); n > 0 {
		c.engine.metrics.diagnostics.Add(float64(n))
		c.engine.logger.Debug("query.diagnostics", "query", name, "count", n)
	}

	return value, nil
}

// ReadResource reads a source file through the session's resource
// provider, recording the read as a dependency of the running query so a
// later content change invalidates it.
func (c *Context) ReadResource(res id.ResourceID) (string, bool) {
	if len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1].entry
		top.resources[resourceKey(res)] = true
	}
	return c.provider.Read(res)
}

// ResourceExists checks existence through the provider, also recorded as
// a dependency: a query that observed "missing" must rerun once the file
// appears.
func (c *Context) ResourceExists(res id.ResourceID) bool {
	if len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1].entry
		top.resources[resourceKey(res)] = true
	}
	return c.provider.Exists(res)
}

// EnumerateResources lists a package's source files through the provider.
// The listing is recorded as a dependency on the package's pseudo
// resource, so adding or removing files invalidates enumeration-based
// queries.
func (c *Context) EnumerateResources(pkg id.PackageID) []id.ResourceID {
	if len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1].entry
		top.resources[packageKey(pkg)] = true
	}
	return c.provider.Enumerate(pkg)
}

// recordDependency marks slot as a dependency of the running query, if
// any.
func (c *Context) recordDependency(slot entrySlot) {
	if len(c.stack) == 0 {
		return
	}
	c.stack[len(c.stack)-1].entry.deps[slot] = true
}

// lookup finds the memo entry for slot whose stored key deep-equals key.
func (c *Context) lookup(slot entrySlot, key Key) *entry {
	for _, en := range c.memo[slot] {
		if sameKey(en.key, key) {
			return en
		}
	}
	return nil
}

func (c *Context) entryCount() int {
	n := 0
	for _, chain := range c.memo {
		n += len(chain)
	}
	return n
}

// resourceKey is the canonical dependency key for one file.
func resourceKey(res id.ResourceID) string { return "res:" + res.String() }

// packageKey is the canonical dependency key for a package's file listing.
func packageKey(pkg id.PackageID) string { return "pkg:" + pkg.String() }

// Invalidate drops every cached entry whose dependency set transitively
// reads the given resource. Recomputation happens on demand at the next
// Evaluate. The resource's package listing is invalidated too, since the
// change may be a file appearing or disappearing.
func (c *Context) Invalidate(res id.ResourceID) int {
	dirty := map[string]bool{
		resourceKey(res): true,
		packageKey(res.Package): true,
	}
	return c.invalidateDirty(dirty)
}

// invalidateDirty removes entries reading any dirty resource key, then
// iterates to a fixpoint removing entries that depended on removed
// entries.
func (c *Context) invalidateDirty(dirty map[string]bool) int {
	removedSlots := make(map[entrySlot]bool)
	removed := 0

	remove := func(pred func(*entry) bool) bool {
		any := false
		for slot, chain := range c.memo {
			kept := chain[:0]
			for _, en := range chain {
				if pred(en) {
					removedSlots[slot] = true
					removed++
					any = true
					continue
				}
				kept = append(kept, en)
			}
			if len(kept) == 0 {
				delete(c.memo, slot)
			} else {
				c.memo[slot] = kept
			}
		}
		return any
	}

	// Seed: entries that directly read a dirty resource.
	remove(func(en *entry) bool {
		for key := range en.resources {
			if dirty[key] {
				return true
			}
		}
		return false
	})

	// Propagate: entries depending on a removed slot. A removed slot may
	// still hold sibling entries with different keys; dropping the whole
	// slot's dependents over-approximates, which is safe.
	for {
		progressed := remove(func(en *entry) bool {
			for dep := range en.deps {
				if removedSlots[dep] {
					return true
				}
			}
			return false
		})
		if !progressed {
			break
		}
	}

	if removed > 0 {
		c.engine.metrics.invalidated.Add(float64(removed))
		c.engine.metrics.memoEntries.Set(float64(c.entryCount()))
		c.engine.logger.Debug("query.invalidate", "removed", removed)
	}
	return removed
}

// Diagnostics returns the union of diagnostics stored with all live memo
// entries, ordered by entry creation so identical evaluations produce
// identical aggregates.
func (c *Context) Diagnostics() report.List {
	var entries []*entry
	for _, chain := range c.memo {
		entries = append(entries, chain...)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	var all report.List
	for _, en := range entries {
		all.AddAll(en.diagnostics)
	}
	return all
}

// DiagnosticsFor returns the diagnostics stored for one (query, key), or
// an empty list if the entry is not cached.
func (c *Context) DiagnosticsFor(name string, key Key) report.List {
	if en := c.lookup(hashKey(name, key), key); en != nil {
		return en.diagnostics
	}
	return report.List{}
}

// Dependencies describes what one cached entry consumed: the query names
// it invoked and the canonical keys of the resources it read, both
// sorted. Tools use this to inspect the dependency graph; invalidation
// uses the same records.
type Dependencies struct {
	Queries   []string
	Resources []string
}

// DependenciesOf returns the recorded dependencies of a cached entry, or
// ok=false when the entry is not cached.
func (c *Context) DependenciesOf(name string, key Key) (Dependencies, bool) {
	en := c.lookup(hashKey(name, key), key)
	if en == nil {
		return Dependencies{}, false
	}
	var deps Dependencies
	seen := make(map[string]bool)
	for slot := range en.deps {
		if !seen[slot.name] {
			seen[slot.name] = true
			deps.Queries = append(deps.Queries, slot.name)
		}
	}
	for res := range en.resources {
		deps.Resources = append(deps.Resources, res)
	}
	sort.Strings(deps.Queries)
	sort.Strings(deps.Resources)
	return deps, true
}

// Stats describes the memo table for status displays.
type Stats struct {
	Entries     int
	QueryCounts map[string]int
}

// Stats returns a snapshot of the memo table.
func (c *Context) Stats() Stats {
	s := Stats{QueryCounts: make(map[string]int)}
	for slot, chain := range c.memo {
		s.Entries += len(chain)
		s.QueryCounts[slot.name] += len(chain)
	}
	return s
}
