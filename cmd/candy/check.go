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

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/candy/internal/errors"
	"github.com/kraklabs/candy/internal/ui"
	"github.com/kraklabs/candy/pkg/ast"
	"github.com/kraklabs/candy/pkg/driver"
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
)

// runCheck executes the 'check' CLI command: analyze a whole project and
// print its diagnostics. Exits 0 when the project is clean.
//
// Flags:
//   - --metrics-addr: HTTP address serving the engine's Prometheus
//     metrics while the check runs (default: disabled)
//
// Examples:
//
//	candy check                 Check the current directory
//	candy check path/to/project Check a specific project
//	candy --json check          One JSON object per diagnostic
func runCheck(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: candy check [options] [<project>]

Description:
  Analyze every source file of the project named by <project> (default:
  the current directory). The project root must contain candy.yaml with
  at least the package name; dependencies listed there are mounted and
  their impls join the trait-solver environment.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	session, _, ok := newProjectSession(fs.Args(), globals)
	if !ok {
		return 1
	}

	if *metricsAddr != "" {
		registry := session.Engine().Registry()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			slog.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	count, err := checkOnce(session, globals)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	if count > 0 {
		return 1
	}
	return 0
}

// newProjectSession loads candy.yaml, mounts the project and its
// dependencies, and assembles a session over the linked frontend.
func newProjectSession(args []string, globals GlobalFlags) (*driver.Session, *driver.ProjectConfig, bool) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	parser := ast.Frontend()
	if parser == nil {
		errors.FatalError(errors.NewFrontendError(
			"No parser frontend linked into this build",
			"The compiler core delegates parsing to an external frontend",
			"Use a candy distribution that bundles the frontend, or register one via ast.RegisterFrontend",
			nil,
		), globals.JSON)
		return nil, nil, false
	}

	cfg, err := driver.LoadProjectConfig(root)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load project configuration",
			fmt.Sprintf("Failed to read %s in %s", driver.ConfigFile, root),
			"Run from a project directory, or pass the project path: candy check <project>",
			err,
		), globals.JSON)
		return nil, nil, false
	}

	logLevel := slog.LevelWarn
	switch globals.Verbose {
	case 1:
		logLevel = slog.LevelInfo
	case 2:
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	session := driver.NewSession(cfg.Mount(root), parser, cfg.Packages(), logger)
	return session, cfg, true
}

// checkOnce analyzes every file and prints the diagnostics; returns the
// diagnostic count.
func checkOnce(session *driver.Session, globals GlobalFlags) (int, error) {
	files := session.Context().EnumerateResources(id.ThisPackage)
	progress := NewProgressBar(NewProgressConfig(globals), int64(len(files)), "Checking files")

	results := make(map[id.ResourceID][]report.Diagnostic)
	var ordered []id.ResourceID
	for _, res := range files {
		diagnostics, err := session.Errors(res)
		if err != nil {
			return 0, err
		}
		if len(diagnostics) > 0 {
			results[res] = diagnostics
			ordered = append(ordered, res)
		}
		if progress != nil {
			_ = progress.Add(1)
		}
	}
	if progress != nil {
		_ = progress.Finish()
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	total := 0
	for _, diagnostics := range results {
		total += len(diagnostics)
	}

	if globals.JSON {
		printDiagnosticsJSON(ordered, results)
		return total, nil
	}

	for _, res := range ordered {
		fmt.Println()
		ui.SubHeader(res.Path)
		for _, d := range results[res] {
			location := ""
			if d.Span != nil {
				location = fmt.Sprintf("%d:%d ", d.Span.Start.Line+1, d.Span.Start.Column+1)
			}
			_, _ = ui.Red.Printf("  %s", location)
			fmt.Printf("%s %s\n", ui.Label(d.ID()), d.Title)
			for _, related := range d.Related {
				fmt.Printf("    %s %s\n", ui.DimText(related.Resource.Path), ui.DimText(related.Message))
			}
		}
	}

	fmt.Println()
	if total == 0 {
		_, _ = ui.Green.Printf("✓ %d files checked, no errors\n", len(files))
	} else {
		_, _ = ui.Red.Printf("✗ %d files checked, %d error(s)\n", len(files), total)
	}

	if globals.Verbose >= 1 {
		stats := session.Context().Stats()
		fmt.Println()
		ui.SubHeader("Engine:")
		fmt.Printf("  memo entries: %s\n", ui.CountText(stats.Entries))
		names := make([]string, 0, len(stats.QueryCounts))
		for name := range stats.QueryCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, ui.DimText(fmt.Sprintf("%d", stats.QueryCounts[name])))
		}
	}

	return total, nil
}

// printDiagnosticsJSON streams one JSON object per diagnostic.
func printDiagnosticsJSON(ordered []id.ResourceID, results map[id.ResourceID][]report.Diagnostic) {
	encoder := json.NewEncoder(os.Stdout)
	for _, res := range ordered {
		for _, d := range results[res] {
			payload := struct {
				ID       string       `json:"id"`
				Resource string       `json:"resource"`
				Span     *report.Span `json:"span,omitempty"`
				Title    string       `json:"title"`
			}{
				ID:       d.ID(),
				Resource: res.Path,
				Span:     d.Span,
				Title:    d.Title,
			}
			_ = encoder.Encode(payload)
		}
	}
}
