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

// Package driver exposes the compiler core to hosting tools: sessions
// with editor overlays, generic query invocation, and per-resource
// diagnostics. One session owns one query context; overlay mutations
// invalidate the affected memo entries.
package driver

import (
	"fmt"
	"log/slog"
	"sort"

	uuid "github.com/satori/go.uuid"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/index"
	"github.com/kraklabs/candy/pkg/lower"
	"github.com/kraklabs/candy/pkg/query"
	"github.com/kraklabs/candy/pkg/report"
	"github.com/kraklabs/candy/pkg/resolve"
	"github.com/kraklabs/candy/pkg/resource"
)

// QueryAnalyze is the per-resource analysis driver query: it forces
// imports, signatures and bodies for everything in the file.
const QueryAnalyze = "driver.analyze"

// ErrSessionClosed is returned by every operation after the session shut
// down.
var ErrSessionClosed = errors.NewKind("session %s is closed")

// Session is one live compilation session over a package set.
type Session struct {
	id       string
	engine   *query.Engine
	overlay  *resource.Overlay
	ctx      *query.Context
	analysis *lower.Service
	packages []id.PackageID
	logger   *slog.Logger
	closed   bool
}

// NewSession assembles the full query pipeline over a base provider.
// The packages list is the root package plus its dependency closure; the
// parser is the external frontend.
func NewSession(base resource.Provider, parser ast.Parser, packages []id.PackageID, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	overlay := resource.NewOverlay(base, logger)
	engine := query.NewEngine(logger)
	index.Register(engine, parser)
	resolve.Register(engine)
	analysis := lower.Register(engine, packages, logger)

	engine.Register(query.Query{Name: QueryAnalyze, Provide: func(ctx *query.Context, key query.Key) (query.Value, report.List) {
		return provideAnalyze(ctx, key.(id.ResourceID))
	}})

	session := &Session{
		id:       uuid.NewV4().String(),
		engine:   engine,
		overlay:  overlay,
		ctx:      engine.NewContext(overlay),
		analysis: analysis,
		packages: packages,
		logger:   logger,
	}
	logger.Debug("session.new", "session_id", session.id, "packages", len(packages))
	return session
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Engine exposes the engine (metrics registry, query names).
func (s *Session) Engine() *query.Engine { return s.engine }

// Analysis exposes the lowering service (solver environment, coherence).
func (s *Session) Analysis() *lower.Service { return s.analysis }

// Context exposes the session's query context.
func (s *Session) Context() *query.Context { return s.ctx }

// provideAnalyze forces every analysis of one resource so its
// diagnostics are materialized in the memo table.
func provideAnalyze(ctx *query.Context, res id.ResourceID) (query.Value, report.List) {
	_ = resolve.ImportsOf(ctx, res)
	table := index.Declarations(ctx, res)
	for _, declID := range table.Order {
		_ = lower.DeclSignature(ctx, declID)
		_ = lower.BodyOf(ctx, declID)
	}
	return len(table.Order), report.List{}
}

// Open registers or replaces the editor overlay for a resource.
func (s *Session) Open(res id.ResourceID, text string) error {
	if s.closed {
		return ErrSessionClosed.New(s.id)
	}
	s.overlay.Open(res, text)
	s.ctx.Invalidate(res)
	return nil
}

// Edit applies range edits to an open overlay. An inconsistent edit
// shuts the session down: positions the tool and the core disagree on
// mean the two sides have diverged.
func (s *Session) Edit(res id.ResourceID, edits []resource.TextEdit) error {
	if s.closed {
		return ErrSessionClosed.New(s.id)
	}
	if err := s.overlay.Edit(res, edits); err != nil {
		if report.ErrInconsistentState.Is(err) {
			s.logger.Warn("session.shutdown", "session_id", s.id, "reason", err.Error())
			s.closed = true
		}
		return err
	}
	s.ctx.Invalidate(res)
	return nil
}

// Close drops the overlay for a resource.
func (s *Session) Close(res id.ResourceID) error {
	if s.closed {
		return ErrSessionClosed.New(s.id)
	}
	s.overlay.Close(res)
	s.ctx.Invalidate(res)
	return nil
}

// Shutdown closes the session.
func (s *Session) Shutdown() {
	s.closed = true
	s.ctx.Cancel()
}

// Query invokes a registered query by name. InternalError panics unwind
// here and come back as errors; everything else is soft.
func (s *Session) Query(name string, key query.Key) (value query.Value, err error) {
	if s.closed {
		return nil, ErrSessionClosed.New(s.id)
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && report.ErrInternal.Is(e) {
				s.logger.Error("session.internal_error", "session_id", s.id, "err", e.Error())
				err = e
				return
			}
			panic(r)
		}
	}()
	return s.ctx.Evaluate(name, key)
}

// Errors returns the aggregated diagnostics whose primary location is
// the resource, after analyzing it and checking coherence. The result is
// sorted by span.
func (s *Session) Errors(res id.ResourceID) (diagnostics []report.Diagnostic, err error) {
	if s.closed {
		return nil, ErrSessionClosed.New(s.id)
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && report.ErrInternal.Is(e) {
				s.logger.Error("session.internal_error", "session_id", s.id, "err", e.Error())
				err = e
				return
			}
			panic(r)
		}
	}()

	if _, err := s.ctx.Evaluate(QueryAnalyze, res); err != nil {
		return nil, err
	}
	s.analysis.CheckCoherence(s.ctx)

	return s.ctx.Diagnostics().ForResource(res), nil
}

// CheckAll analyzes every resource of every package and returns all
// diagnostics grouped per resource. Resources without diagnostics are
// omitted.
func (s *Session) CheckAll() (map[id.ResourceID][]report.Diagnostic, error) {
	if s.closed {
		return nil, ErrSessionClosed.New(s.id)
	}

	var all []id.ResourceID
	for _, pkg := range s.packages {
		all = append(all, s.ctx.EnumerateResources(pkg)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })

	out := make(map[id.ResourceID][]report.Diagnostic)
	for _, res := range all {
		diagnostics, err := s.Errors(res)
		if err != nil {
			return nil, fmt.Errorf("analyze %s: %w", res, err)
		}
		if len(diagnostics) > 0 {
			out[res] = diagnostics
		}
	}
	return out, nil
}

// Invalidate drops cached results depending on a resource; tools call it
// when disk content changed outside an overlay.
func (s *Session) Invalidate(res id.ResourceID) int {
	if s.closed {
		return 0
	}
	return s.ctx.Invalidate(res)
}
