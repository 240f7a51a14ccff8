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

// Package report defines the structured compiler diagnostics emitted by
// every analysis pass. A diagnostic is a value, not a Go error: providers
// report them through the query context and keep going with a safe result.
// The go-errors kinds below give each diagnostic a stable identity that
// tools can match on.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/candy/pkg/id"
	errors "gopkg.in/src-d/go-errors.v1"
)

// Stable diagnostic kinds. The kind message is the short human title; the
// stable ID used on the wire is the PascalCase name next to it.
var (
	// Parse / structural.
	ErrSyntaxError                  = errors.NewKind("syntax error: %s")
	ErrInvalidUseLine               = errors.NewKind("invalid use line: %s")
	ErrTooManyUpNavigations         = errors.NewKind("use line navigates above the package root")
	ErrUseLineTargetNotFound        = errors.NewKind("use line target not found: %s")

	// Resolution.
	ErrUndefinedIdentifier    = errors.NewKind("undefined identifier: %s")
	ErrAmbiguousIdentifier    = errors.NewKind("ambiguous identifier: %s")
	ErrMultipleTypesWithName  = errors.NewKind("multiple types named %s in scope")
	ErrTypeNotFound           = errors.NewKind("type not found: %s")
	ErrAmbiguousType          = errors.NewKind("ambiguous type: %s")

	// Typing.
	ErrNotAssignable      = errors.NewKind("%s is not assignable to %s")
	ErrAmbiguousCall      = errors.NewKind("call to %s is ambiguous")
	ErrNoMatchingOverload = errors.NewKind("no overload of %s matches the arguments")
	ErrThisTypeIllegal    = errors.NewKind("This type is only allowed inside traits and impls")

	// Solver.
	ErrAmbiguousImpls              = errors.NewKind("multiple impls satisfy %s")
	ErrConflictingImpls            = errors.NewKind("conflicting impls for trait %s")
	ErrCannotImplementCompoundTrait = errors.NewKind("cannot implement a compound trait")
	ErrSolverOverflow              = errors.NewKind("impl resolution exceeded the depth limit")
	ErrTraitAsParameter            = errors.NewKind("cannot find impl for a trait with a trait as parameter")

	// Infrastructure.
	ErrCycleDetected      = errors.NewKind("cycle detected while computing %s")
	ErrInconsistentState  = errors.NewKind("inconsistent state: %s")
	ErrUnsupportedFeature = errors.NewKind("unsupported feature: %s")
	ErrInternal           = errors.NewKind("internal error: %s")
)

// kindIDs maps go-errors kinds back to their stable string IDs.
var kindIDs = map[*errors.Kind]string{
	ErrSyntaxError:                  "SyntaxError",
	ErrInvalidUseLine:               "InvalidUseLine",
	ErrTooManyUpNavigations:         "TooManyUpNavigationsInUseLine",
	ErrUseLineTargetNotFound:        "UseLineTargetNotFound",
	ErrUndefinedIdentifier:          "UndefinedIdentifier",
	ErrAmbiguousIdentifier:          "AmbiguousIdentifier",
	ErrMultipleTypesWithName:        "MultipleTypesWithSameName",
	ErrTypeNotFound:                 "TypeNotFound",
	ErrAmbiguousType:                "AmbiguousType",
	ErrNotAssignable:                "NotAssignable",
	ErrAmbiguousCall:                "AmbiguousCall",
	ErrNoMatchingOverload:           "NoMatchingOverload",
	ErrThisTypeIllegal:              "ThisTypeIllegal",
	ErrAmbiguousImpls:               "AmbiguousImpls",
	ErrConflictingImpls:             "ConflictingImpls",
	ErrCannotImplementCompoundTrait: "CannotImplementCompoundTrait",
	ErrSolverOverflow:               "SolverOverflow",
	ErrTraitAsParameter:             "TryingToFindImplForTraitWithTraitAsParameter",
	ErrCycleDetected:                "CycleDetected",
	ErrInconsistentState:            "InconsistentState",
	ErrUnsupportedFeature:           "UnsupportedFeature",
	ErrInternal:                     "InternalError",
}

// StableID returns the wire-stable ID for a kind, or "Unknown".
func StableID(kind *errors.Kind) string {
	if s, ok := kindIDs[kind]; ok {
		return s
	}
	return "Unknown"
}

// Position is a zero-based line/column position. Columns count UTF-16 code
// units for LSP interop.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span is a half-open [Start, End) range inside a resource.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Before reports whether p orders strictly before q.
func (p Position) Before(q Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Column < q.Column)
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// RelatedInformation points at another location that explains the primary
// diagnostic (the other conflicting impl, the previous definition).
type RelatedInformation struct {
	Resource id.ResourceID
	Span     *Span
	Message  string
}

// Diagnostic is one reported compiler error. Severity is single-level:
// everything reported is an error.
type Diagnostic struct {
	Kind        *errors.Kind
	Resource    id.ResourceID
	Span        *Span
	Title       string
	Description string
	Related     []RelatedInformation
}

// New builds a diagnostic with a formatted title from the kind's message.
func New(kind *errors.Kind, resource id.ResourceID, span *Span, args ...interface{}) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Resource: resource,
		Span:     span,
		Title:    kind.New(args...).Error(),
	}
}

// WithDescription returns a copy with the longer description set.
func (d Diagnostic) WithDescription(description string) Diagnostic {
	d.Description = description
	return d
}

// WithRelated returns a copy with one more related location appended.
func (d Diagnostic) WithRelated(resource id.ResourceID, span *Span, message string) Diagnostic {
	related := make([]RelatedInformation, 0, len(d.Related)+1)
	related = append(related, d.Related...)
	related = append(related, RelatedInformation{Resource: resource, Span: span, Message: message})
	d.Related = related
	return d
}

// ID returns the stable string ID of the diagnostic's kind.
func (d Diagnostic) ID() string { return StableID(d.Kind) }

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Resource.String())
	if d.Span != nil {
		b.WriteByte('@')
		b.WriteString(d.Span.String())
	}
	b.WriteString(": ")
	b.WriteString(d.Title)
	return b.String()
}

// List is an ordered collection of diagnostics. Providers append to a list
// and hand it back with their value; the engine stores and replays it.
type List struct {
	diagnostics []Diagnostic
}

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) { l.diagnostics = append(l.diagnostics, d) }

// AddAll appends every diagnostic of another list.
func (l *List) AddAll(other List) {
	l.diagnostics = append(l.diagnostics, other.diagnostics...)
}

// All returns the diagnostics in report order. The returned slice is a
// copy; callers may not mutate engine state through it.
func (l List) All() []Diagnostic {
	out := make([]Diagnostic, len(l.diagnostics))
	copy(out, l.diagnostics)
	return out
}

// Len returns the number of diagnostics.
func (l List) Len() int { return len(l.diagnostics) }

// IsEmpty reports whether the list holds no diagnostics.
func (l List) IsEmpty() bool { return len(l.diagnostics) == 0 }

// ForResource returns the diagnostics whose primary location is the given
// resource, sorted by span start for stable presentation.
func (l List) ForResource(resource id.ResourceID) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.diagnostics {
		if d.Resource == resource {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Span, out[j].Span
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Start.Before(b.Start)
		}
	})
	return out
}
