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

// Package resource gives the compiler core its only view of source files:
// a read interface over package file trees, with an overlay layer that
// editors use to shadow disk content for unsaved buffers.
package resource

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kraklabs/candy/pkg/id"
)

// SourceExtension is the file suffix of Candy source files.
const SourceExtension = ".candy"

// Module files naming a directory's own module.
const (
	ModuleFileUnderscore = "_.candy"
	ModuleFileNamed      = "module.candy"
)

// Provider is the read-only view of source files. All leaf data the query
// engine touches comes through one of these.
type Provider interface {
	// Enumerate lists all source files of a package, sorted by path.
	Enumerate(pkg id.PackageID) []id.ResourceID
	// Exists reports whether the resource currently has content.
	Exists(res id.ResourceID) bool
	// Read returns the resource's full text, or false if it does not
	// exist.
	Read(res id.ResourceID) (string, bool)
}

// defaultExcludes are glob patterns never enumerated, mirroring the usual
// build and VCS directories.
var defaultExcludes = []string{
	".git/**",
	".candy/**",
	"build/**",
	"node_modules/**",
}

// FSProvider reads packages from directories on disk.
type FSProvider struct {
	mu       sync.RWMutex
	roots    map[id.PackageID]string
	excludes []string
	logger   *slog.Logger
}

// NewFSProvider creates a provider with the default exclude globs plus any
// extra patterns.
func NewFSProvider(logger *slog.Logger, extraExcludes ...string) *FSProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSProvider{
		roots:    make(map[id.PackageID]string),
		excludes: append(append([]string{}, defaultExcludes...), extraExcludes...),
		logger:   logger,
	}
}

// AddPackage mounts a package's root directory.
func (p *FSProvider) AddPackage(pkg id.PackageID, root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots[pkg] = root
}

// PackageRoot returns the mounted root for a package, if any.
func (p *FSProvider) PackageRoot(pkg id.PackageID) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	root, ok := p.roots[pkg]
	return root, ok
}

// Enumerate walks the package root collecting .candy files, skipping
// excluded paths. Results are sorted for determinism.
func (p *FSProvider) Enumerate(pkg id.PackageID) []id.ResourceID {
	p.mu.RLock()
	root, ok := p.roots[pkg]
	excludes := p.excludes
	p.mu.RUnlock()
	if !ok {
		return nil
	}

	var resources []id.ResourceID
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if rel != "." && excluded(rel+"/", excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(rel, SourceExtension) || excluded(rel, excludes) {
			return nil
		}
		resources = append(resources, id.NewResourceID(pkg, rel))
		return nil
	})
	if err != nil {
		p.logger.Warn("resource.enumerate.error", "package", pkg.String(), "err", err)
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].Path < resources[j].Path })
	return resources
}

// excluded matches a slash path against the exclude globs.
func excluded(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// A directory pattern like ".git/**" must also skip the ".git/"
		// directory node itself.
		if dir, found := strings.CutSuffix(pattern, "/**"); found {
			if ok, _ := doublestar.Match(dir+"/", rel); ok {
				return true
			}
		}
	}
	return false
}

// Exists reports whether the file is on disk.
func (p *FSProvider) Exists(res id.ResourceID) bool {
	path, ok := p.resolve(res)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read returns the file's full text.
func (p *FSProvider) Read(res id.ResourceID) (string, bool) {
	path, ok := p.resolve(res)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(path) //nolint:gosec // paths come from enumeration under mounted roots
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (p *FSProvider) resolve(res id.ResourceID) (string, bool) {
	p.mu.RLock()
	root, ok := p.roots[res.Package]
	p.mu.RUnlock()
	if !ok {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(res.Path)), true
}

// MemoryProvider serves fixed in-memory content; tests and provider
// snapshots use it.
type MemoryProvider struct {
	content map[id.ResourceID]string
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{content: make(map[id.ResourceID]string)}
}

// Put sets a resource's content.
func (p *MemoryProvider) Put(res id.ResourceID, text string) { p.content[res] = text }

// Delete removes a resource.
func (p *MemoryProvider) Delete(res id.ResourceID) { delete(p.content, res) }

// Enumerate lists the package's resources sorted by path.
func (p *MemoryProvider) Enumerate(pkg id.PackageID) []id.ResourceID {
	var resources []id.ResourceID
	for res := range p.content {
		if res.Package == pkg {
			resources = append(resources, res)
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].Path < resources[j].Path })
	return resources
}

// Exists reports whether the resource was Put.
func (p *MemoryProvider) Exists(res id.ResourceID) bool {
	_, ok := p.content[res]
	return ok
}

// Read returns the stored content.
func (p *MemoryProvider) Read(res id.ResourceID) (string, bool) {
	text, ok := p.content[res]
	return text, ok
}
