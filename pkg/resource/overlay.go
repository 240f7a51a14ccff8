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

package resource

import (
	"log/slog"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
)

// TextEdit replaces the half-open range [Start, End) with NewText.
// Positions are zero-based; columns count UTF-16 code units for LSP
// interop.
type TextEdit struct {
	Start   report.Position `json:"start"`
	End     report.Position `json:"end"`
	NewText string          `json:"new_text"`
}

// Overlay wraps a base provider with in-memory replacement content.
// Editors push buffers in with Open, amend them with Edit, and drop them
// with Close; overlay content shadows the base until cleared.
//
// Overlay mutations are serialized: an edit holds the write lock while it
// recomputes the text, so concurrent readers see either the pre- or
// post-edit content, never a mixture.
type Overlay struct {
	mu      sync.RWMutex
	base    Provider
	content map[id.ResourceID]string
	logger  *slog.Logger
}

// NewOverlay wraps base.
func NewOverlay(base Provider, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{
		base:    base,
		content: make(map[id.ResourceID]string),
		logger:  logger,
	}
}

// Open registers or replaces the overlay content for a resource.
func (o *Overlay) Open(res id.ResourceID, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.content[res] = text
	o.logger.Debug("overlay.open", "resource", res.String(), "bytes", len(text))
}

// Close drops the overlay, falling back to base content.
func (o *Overlay) Close(res id.ResourceID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.content, res)
	o.logger.Debug("overlay.close", "resource", res.String())
}

// HasOverlay reports whether the resource currently has overlay content.
func (o *Overlay) HasOverlay(res id.ResourceID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.content[res]
	return ok
}

// Edit applies range edits to the overlay in order. Offsets are computed
// from the current overlay text, with the line table recomputed per edit.
// An edit with an out-of-range position fails with InconsistentState and
// leaves the overlay unchanged; the consuming session is expected to shut
// down.
func (o *Overlay) Edit(res id.ResourceID, edits []TextEdit) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	text, ok := o.content[res]
	if !ok {
		return report.ErrInconsistentState.New("edit of " + res.String() + " without an open overlay")
	}

	// Work on a copy; commit only when every edit applied.
	working := text
	for i, edit := range edits {
		next, err := applyEdit(working, edit)
		if err != nil {
			o.logger.Warn("overlay.edit.inconsistent",
				"resource", res.String(), "edit", i, "err", err)
			return err
		}
		working = next
	}

	o.content[res] = working
	o.logger.Debug("overlay.edit", "resource", res.String(), "edits", len(edits))
	return nil
}

// applyEdit replaces one range in text.
func applyEdit(text string, edit TextEdit) (string, error) {
	if edit.End.Before(edit.Start) {
		return "", report.ErrInconsistentState.New("edit range end precedes start")
	}
	start, err := byteOffset(text, edit.Start)
	if err != nil {
		return "", err
	}
	end, err := byteOffset(text, edit.End)
	if err != nil {
		return "", err
	}
	return text[:start] + edit.NewText + text[end:], nil
}

// byteOffset converts a zero-based line / UTF-16 column position into a
// byte offset into text.
func byteOffset(text string, pos report.Position) (int, error) {
	if pos.Line < 0 || pos.Column < 0 {
		return 0, report.ErrInconsistentState.New("negative position")
	}

	lineStart := 0
	for line := 0; line < pos.Line; line++ {
		next := indexNewline(text, lineStart)
		if next < 0 {
			return 0, report.ErrInconsistentState.New("line past end of text")
		}
		lineStart = next + 1
	}

	// Walk the line counting UTF-16 code units until the column lands.
	offset := lineStart
	units := 0
	for offset < len(text) && text[offset] != '\n' {
		if units == pos.Column {
			return offset, nil
		}
		r, size := utf8.DecodeRuneInString(text[offset:])
		units += utf16.RuneLen(r)
		if units > pos.Column {
			return 0, report.ErrInconsistentState.New("column inside a surrogate pair")
		}
		offset += size
	}
	if units == pos.Column {
		return offset, nil
	}
	return 0, report.ErrInconsistentState.New("column past end of line")
}

func indexNewline(text string, from int) int {
	for i := from; i < len(text); i++ {
		if text[i] == '\n' {
			return i
		}
	}
	return -1
}

// Enumerate merges overlay-only resources into the base listing. A
// resource that exists only as an overlay is still addressable.
func (o *Overlay) Enumerate(pkg id.PackageID) []id.ResourceID {
	o.mu.RLock()
	defer o.mu.RUnlock()

	listed := o.base.Enumerate(pkg)
	seen := make(map[id.ResourceID]bool, len(listed))
	for _, res := range listed {
		seen[res] = true
	}
	for res := range o.content {
		if res.Package == pkg && !seen[res] {
			listed = append(listed, res)
		}
	}
	sortResources(listed)
	return listed
}

// Exists checks the overlay first, then the base.
func (o *Overlay) Exists(res id.ResourceID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if _, ok := o.content[res]; ok {
		return true
	}
	return o.base.Exists(res)
}

// Read serves overlay content when present, shadowing the base.
func (o *Overlay) Read(res id.ResourceID) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if text, ok := o.content[res]; ok {
		return text, true
	}
	return o.base.Read(res)
}

// Snapshot returns an immutable view of the current overlay state over the
// base provider. Parallel root drivers each take a snapshot so overlay
// mutations cannot tear mid-analysis.
func (o *Overlay) Snapshot() Provider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	copied := make(map[id.ResourceID]string, len(o.content))
	for res, text := range o.content {
		copied[res] = text
	}
	return &snapshotProvider{base: o.base, content: copied}
}

type snapshotProvider struct {
	base    Provider
	content map[id.ResourceID]string
}

func (s *snapshotProvider) Enumerate(pkg id.PackageID) []id.ResourceID {
	listed := s.base.Enumerate(pkg)
	seen := make(map[id.ResourceID]bool, len(listed))
	for _, res := range listed {
		seen[res] = true
	}
	for res := range s.content {
		if res.Package == pkg && !seen[res] {
			listed = append(listed, res)
		}
	}
	sortResources(listed)
	return listed
}

func (s *snapshotProvider) Exists(res id.ResourceID) bool {
	if _, ok := s.content[res]; ok {
		return true
	}
	return s.base.Exists(res)
}

func (s *snapshotProvider) Read(res id.ResourceID) (string, bool) {
	if text, ok := s.content[res]; ok {
		return text, true
	}
	return s.base.Read(res)
}

func sortResources(resources []id.ResourceID) {
	for i := 1; i < len(resources); i++ {
		for j := i; j > 0 && resources[j].Path < resources[j-1].Path; j-- {
			resources[j], resources[j-1] = resources[j-1], resources[j]
		}
	}
}
