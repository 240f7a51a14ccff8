// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/resource"
)

// ConfigFile is the per-project metadata file at the package root.
const ConfigFile = "candy.yaml"

// ProjectConfig is the candy.yaml contents: the package name and the
// dependency packages with the directories they live in.
type ProjectConfig struct {
	Name string `yaml:"name"`
	// Dependencies maps package names to their root directories,
	// relative to the project root.
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
	// Core optionally points at the core package checkout; empty means
	// no core sources are mounted.
	Core string `yaml:"core,omitempty"`
	// Exclude lists extra glob patterns never enumerated.
	Exclude []string `yaml:"exclude,omitempty"`
}

// DefaultProjectConfig returns the config a fresh project starts with.
func DefaultProjectConfig(name string) *ProjectConfig {
	return &ProjectConfig{Name: name}
}

// LoadProjectConfig reads candy.yaml from the project root.
func LoadProjectConfig(root string) (*ProjectConfig, error) {
	path := filepath.Join(root, ConfigFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is the project the user named
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%s: missing required key %q", path, "name")
	}
	return &cfg, nil
}

// Packages returns the compilation's package closure in deterministic
// order: the project itself, its dependencies sorted by name, and core
// when mounted.
func (c *ProjectConfig) Packages() []id.PackageID {
	packages := []id.PackageID{id.ThisPackage}
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		packages = append(packages, id.NewPackageID(name))
	}
	if c.Core != "" {
		packages = append(packages, id.CorePackage)
	}
	return packages
}

// Mount builds the file-system provider for the project: the root
// directory as the current package plus every dependency root.
func (c *ProjectConfig) Mount(root string) *resource.FSProvider {
	provider := resource.NewFSProvider(nil, c.Exclude...)
	provider.AddPackage(id.ThisPackage, root)
	for name, dir := range c.Dependencies {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		provider.AddPackage(id.NewPackageID(name), dir)
	}
	if c.Core != "" {
		dir := c.Core
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		provider.AddPackage(id.CorePackage, dir)
	}
	return provider
}
