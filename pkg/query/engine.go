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

// Package query implements the memoized, context-threaded computation
// engine the compiler core runs on. Every analysis is a named query with a
// hashable key and a provider function; the engine caches (value, errors)
// per key, records the precise dependency graph while providers run, and
// invalidates transitively when a resource's content changes.
//
// Providers fail softly: they return a safe value plus reported
// diagnostics. The only hard outcomes Evaluate can produce are
// ErrCycleDetected (a query re-entered itself with the same key),
// ErrIncomplete (cooperative cancellation) and ErrUnknownQuery.
package query

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/mitchellh/hashstructure"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/candy/pkg/report"
)

// Key is any hashable value identifying one invocation of a query.
type Key interface{}

// Value is a query result. Results are owned by the memo table; providers
// must hand back values they no longer mutate.
type Value interface{}

// Provider computes the value for one key. It may evaluate other queries
// and read resources through the Context, and nothing else.
type Provider func(ctx *Context, key Key) (Value, report.List)

// Query couples a stable name with its provider.
type Query struct {
	Name    string
	Provide Provider
}

// Engine holds the registered queries and the metrics describing their
// execution. Contexts created from one engine share query definitions but
// nothing else.
type Engine struct {
	queries  map[string]Query
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  engineMetrics
}

// NewEngine creates an engine with no queries registered.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		queries:  make(map[string]Query),
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	e.metrics = newEngineMetrics(e.registry)
	return e
}

// Register adds a query definition. Registering the same name twice is a
// programmer error and panics.
func (e *Engine) Register(q Query) {
	if _, exists := e.queries[q.Name]; exists {
		panic(fmt.Sprintf("query %q registered twice", q.Name))
	}
	e.queries[q.Name] = q
}

// Registry exposes the engine's prometheus registry for serving.
func (e *Engine) Registry() *prometheus.Registry { return e.registry }

// Names returns the registered query names (unordered).
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.queries))
	for name := range e.queries {
		names = append(names, name)
	}
	return names
}

// entrySlot addresses one memo bucket: query name plus the structural hash
// of the key. Distinct keys hashing to the same slot are disambiguated by
// deep equality on the stored key.
type entrySlot struct {
	name string
	hash uint64
}

// entry is one memoized (value, errors) pair plus the dependencies
// recorded while its provider ran. seq numbers entries in creation
// order so aggregated diagnostics come out deterministically.
type entry struct {
	key         Key
	value       Value
	diagnostics report.List
	deps        map[entrySlot]bool
	resources   map[string]bool // canonical resource keys read by this entry
	seq         int
}

// hashKey computes the structural hash of a key. Keys that hashstructure
// cannot process are a programmer error.
func hashKey(name string, key Key) entrySlot {
	h, err := hashstructure.Hash(key, nil)
	if err != nil {
		panic(fmt.Sprintf("query %q: unhashable key %T: %v", name, key, err))
	}
	return entrySlot{name: name, hash: h}
}

func sameKey(a, b Key) bool { return reflect.DeepEqual(a, b) }
