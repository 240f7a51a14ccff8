// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/candy/internal/ui"
	"github.com/kraklabs/candy/pkg/id"
)

// Directories never watched (descriptor economy and noise).
var watchSkipDirs = map[string]bool{
	".git": true, ".candy": true, "build": true, "node_modules": true,
}

const watchDebounce = 2 * time.Second

// runWatch executes the 'watch' CLI command: one full check, then an
// incremental re-check whenever project files change, debounced.
//
// Examples:
//
//	candy watch                 Watch the current directory
//	candy watch path/to/project Watch a specific project
func runWatch(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: candy watch [<project>]

Description:
  Run a full check, then keep the session alive and re-check whenever a
  .candy file under the project changes. Changed resources are
  invalidated in the query engine, so each re-check only recomputes the
  affected analyses.

`)
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	root := "."
	if len(fs.Args()) > 0 {
		root = fs.Args()[0]
	}

	session, _, ok := newProjectSession(fs.Args(), globals)
	if !ok {
		return 1
	}

	if _, err := checkOnce(session, globals); err != nil {
		fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
		return 1
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[candy watch] fsnotify failed: %v\n", err)
		return 1
	}
	defer watcher.Close()

	watchCount := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && base != ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err == nil {
			watchCount++
		}
		return nil
	})
	fmt.Fprintf(os.Stderr, "[candy watch] watching %d dirs\n", watchCount)

	var debounceTimer *time.Timer
	var timerCh <-chan time.Time
	pending := make(map[string]bool)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if !strings.HasSuffix(event.Name, ".candy") {
				continue
			}
			pending[event.Name] = true
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(watchDebounce)
			timerCh = debounceTimer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "[candy watch] fsnotify error: %v\n", err)

		case <-timerCh:
			timerCh = nil
			for path := range pending {
				if rel, err := filepath.Rel(root, path); err == nil {
					session.Invalidate(id.NewResourceID(id.ThisPackage, filepath.ToSlash(rel)))
				}
			}
			pending = make(map[string]bool)

			count, err := checkOnce(session, globals)
			if err != nil {
				fmt.Fprintf(os.Stderr, "re-check failed: %v\n", err)
				continue
			}
			if count == 0 {
				_, _ = ui.Green.Fprintln(os.Stderr, "[candy watch] clean")
			}
		}
	}
}
